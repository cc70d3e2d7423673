package api

import (
	"reflect"
	"testing"
	"time"

	"framefuse/internal/queue"
)

func TestFromJob(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	job := &queue.Job{
		ID:                   "abc",
		Status:               queue.StatusCompleted,
		Frames:               []queue.Frame{{Original: "a.png"}, {Original: "b.png"}},
		Progress:             100,
		CreatedAt:            created,
		UpdatedAt:            created.Add(time.Minute),
		OutputSize:           2048,
		ProcessingDurationMs: 1500,
	}

	converted := FromJob(job)
	if converted.ID != "abc" || converted.Status != "completed" || converted.FrameCount != 2 {
		t.Fatalf("unexpected conversion: %+v", converted)
	}
	if converted.CreatedAt == "" || converted.UpdatedAt == "" {
		t.Fatalf("timestamps missing: %+v", converted)
	}
	if converted.OutputSize != 2048 || converted.ProcessingMs != 1500 {
		t.Fatalf("artifact metadata missing: %+v", converted)
	}

	if got := FromJob(nil); got != (Job{}) {
		t.Fatalf("nil job should convert to zero value, got %+v", got)
	}
}

func TestEchoFilesTruncates(t *testing.T) {
	job := &queue.Job{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		job.Frames = append(job.Frames, queue.Frame{Original: name + ".png"})
	}

	echo := EchoFiles(job)
	want := []string{"a.png", "b.png", "c.png", "d.png", "e.png", "..."}
	if !reflect.DeepEqual(echo, want) {
		t.Fatalf("echo = %v, want %v", echo, want)
	}

	short := &queue.Job{Frames: []queue.Frame{{Original: "only.png"}}}
	if echo := EchoFiles(short); len(echo) != 1 || echo[0] != "only.png" {
		t.Fatalf("short echo = %v", echo)
	}
}
