package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"framefuse/internal/jobs"
)

// pngHeader is the 8-byte PNG signature; enough for fixtures that only need
// to look like frames on disk.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// FrameBlob builds an in-memory upload fixture with PNG-shaped content.
func FrameBlob(name string) jobs.FrameBlob {
	return jobs.FrameBlob{Name: name, Data: append([]byte(nil), pngHeader...)}
}

// FrameBlobs builds upload fixtures for each provided name.
func FrameBlobs(names ...string) []jobs.FrameBlob {
	blobs := make([]jobs.FrameBlob, 0, len(names))
	for _, name := range names {
		blobs = append(blobs, FrameBlob(name))
	}
	return blobs
}

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = 0x42
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
