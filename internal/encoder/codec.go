package encoder

import "strings"

// Codec identifies an output format. Every supported codec preserves the
// alpha channel of the source frames.
type Codec string

const (
	CodecVP9    Codec = "vp9"
	CodecVP8    Codec = "vp8"
	CodecProRes Codec = "prores"
	CodecQTRLE  Codec = "qtrle"
	CodecGIF    Codec = "gif"
)

// ParseCodec maps a user-supplied codec name to a Codec. Matching is
// case-insensitive; an empty string selects VP9.
func ParseCodec(value string) (Codec, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "vp9":
		return CodecVP9, true
	case "vp8":
		return CodecVP8, true
	case "prores":
		return CodecProRes, true
	case "qtrle":
		return CodecQTRLE, true
	case "gif":
		return CodecGIF, true
	default:
		return "", false
	}
}

// Extension returns the artifact file extension for the codec.
func (c Codec) Extension() string {
	switch c {
	case CodecProRes, CodecQTRLE:
		return "mov"
	case CodecGIF:
		return "gif"
	default:
		return "webm"
	}
}

// MediaType returns the MIME type served for the codec's artifact.
func (c Codec) MediaType() string {
	return MediaTypeForExtension(c.Extension())
}

// MediaTypeForExtension maps an artifact file extension to its MIME type. A
// leading dot is tolerated so callers can pass filepath.Ext output directly.
func MediaTypeForExtension(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "mov":
		return "video/quicktime"
	case "gif":
		return "image/gif"
	default:
		return "video/webm"
	}
}

// TwoPhase reports whether encoding runs as two sequential ffmpeg
// invocations. Only GIF does: palette generation, then palette application.
func (c Codec) TwoPhase() bool {
	return c == CodecGIF
}

// Quality selects the speed/quality trade-off for codecs that support one.
type Quality string

const (
	QualityFast     Quality = "fast"
	QualityBalanced Quality = "balanced"
	QualityBest     Quality = "best"
)

// ParseQuality maps a user-supplied quality name to a Quality. "good" is
// accepted as an alias for balanced; an empty string selects balanced.
func ParseQuality(value string) (Quality, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "balanced", "good":
		return QualityBalanced, true
	case "fast":
		return QualityFast, true
	case "best":
		return QualityBest, true
	default:
		return "", false
	}
}
