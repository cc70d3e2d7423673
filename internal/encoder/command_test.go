package encoder

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseCodec(t *testing.T) {
	tests := []struct {
		input string
		want  Codec
		ok    bool
	}{
		{"vp9", CodecVP9, true},
		{"VP9", CodecVP9, true},
		{"", CodecVP9, true},
		{"vp8", CodecVP8, true},
		{"prores", CodecProRes, true},
		{"qtrle", CodecQTRLE, true},
		{"gif", CodecGIF, true},
		{"h264", "", false},
		{"mpeg", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCodec(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseCodec(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseQuality(t *testing.T) {
	tests := []struct {
		input string
		want  Quality
		ok    bool
	}{
		{"fast", QualityFast, true},
		{"balanced", QualityBalanced, true},
		{"good", QualityBalanced, true},
		{"best", QualityBest, true},
		{"", QualityBalanced, true},
		{"ludicrous", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseQuality(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseQuality(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCodecArtifactNaming(t *testing.T) {
	tests := []struct {
		codec     Codec
		extension string
		mediaType string
	}{
		{CodecVP9, "webm", "video/webm"},
		{CodecVP8, "webm", "video/webm"},
		{CodecProRes, "mov", "video/quicktime"},
		{CodecQTRLE, "mov", "video/quicktime"},
		{CodecGIF, "gif", "image/gif"},
	}
	for _, tt := range tests {
		if got := tt.codec.Extension(); got != tt.extension {
			t.Errorf("%s.Extension() = %q, want %q", tt.codec, got, tt.extension)
		}
		if got := tt.codec.MediaType(); got != tt.mediaType {
			t.Errorf("%s.MediaType() = %q, want %q", tt.codec, got, tt.mediaType)
		}
	}
}

func TestMediaTypeForExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{"mov", "video/quicktime"},
		{".mov", "video/quicktime"},
		{"GIF", "image/gif"},
		{"webm", "video/webm"},
		{"", "video/webm"},
	}
	for _, tt := range tests {
		if got := MediaTypeForExtension(tt.ext); got != tt.want {
			t.Errorf("MediaTypeForExtension(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func baseRequest(codec Codec, quality Quality) Request {
	return Request{
		Binary:            "ffmpeg",
		Codec:             codec,
		Quality:           quality,
		FrameRate:         24,
		FramePattern:      "frame_%04d.png",
		OutputName:        "output." + codec.Extension(),
		PaletteScaleWidth: 640,
	}
}

func TestBuildVP9QualityTiers(t *testing.T) {
	tests := []struct {
		quality  Quality
		deadline string
		cpuUsed  string
	}{
		{QualityBest, "best", "0"},
		{QualityBalanced, "good", "1"},
		{QualityFast, "realtime", "5"},
	}
	for _, tt := range tests {
		plan := Build(baseRequest(CodecVP9, tt.quality))
		if len(plan.Commands) != 1 {
			t.Fatalf("quality %s: expected one command, got %d", tt.quality, len(plan.Commands))
		}
		args := plan.Commands[0].Args
		want := []string{
			"-y", "-v", "error", "-stats", "-framerate", "24", "-i", "frame_%04d.png",
			"-c:v", "libvpx-vp9", "-pix_fmt", "yuva420p",
			"-deadline", tt.deadline, "-cpu-used", tt.cpuUsed,
			"output.webm",
		}
		if !reflect.DeepEqual(args, want) {
			t.Errorf("quality %s args:\n got %v\nwant %v", tt.quality, args, want)
		}
	}
}

func TestBuildSinglePhaseCodecs(t *testing.T) {
	tests := []struct {
		codec Codec
		flags []string
	}{
		{CodecVP8, []string{"-c:v", "libvpx", "-pix_fmt", "yuva420p"}},
		{CodecProRes, []string{"-c:v", "prores_ks", "-profile:v", "4444", "-pix_fmt", "yuva444p10le"}},
		{CodecQTRLE, []string{"-c:v", "qtrle"}},
	}
	for _, tt := range tests {
		plan := Build(baseRequest(tt.codec, QualityBalanced))
		if len(plan.Commands) != 1 {
			t.Fatalf("%s: expected one command, got %d", tt.codec, len(plan.Commands))
		}
		joined := strings.Join(plan.Commands[0].Args, " ")
		if !strings.Contains(joined, strings.Join(tt.flags, " ")) {
			t.Errorf("%s args missing %v: %s", tt.codec, tt.flags, joined)
		}
		if plan.OutputName != "output.mov" && plan.OutputName != "output.webm" {
			t.Errorf("%s: unexpected output name %s", tt.codec, plan.OutputName)
		}
		if plan.PaletteName != "" {
			t.Errorf("%s: single-phase plan should not name a palette", tt.codec)
		}
	}
}

// Progress reporting reads the frame counter off the encoder's stats line,
// which the quiet loglevel suppresses unless stats output is requested
// explicitly. Every phase of every plan must carry both flags.
func TestBuildRequestsStatsDespiteQuietLog(t *testing.T) {
	for _, codec := range []Codec{CodecVP9, CodecVP8, CodecProRes, CodecQTRLE, CodecGIF} {
		plan := Build(baseRequest(codec, QualityBalanced))
		for i, cmd := range plan.Commands {
			joined := strings.Join(cmd.Args, " ")
			if !strings.Contains(joined, "-v error") {
				t.Errorf("%s phase %d: missing quiet loglevel: %s", codec, i, joined)
			}
			if !strings.Contains(joined, "-stats") {
				t.Errorf("%s phase %d: -v error without -stats silences the frame counter: %s", codec, i, joined)
			}
		}
	}
}

func TestBuildGIFTwoPhase(t *testing.T) {
	req := baseRequest(CodecGIF, QualityBalanced)
	req.FrameRate = 12
	plan := Build(req)

	if len(plan.Commands) != 2 {
		t.Fatalf("expected two commands, got %d", len(plan.Commands))
	}
	if plan.PaletteName != "palette.png" {
		t.Fatalf("palette name = %q", plan.PaletteName)
	}

	palette := strings.Join(plan.Commands[0].Args, " ")
	if !strings.Contains(palette, "palettegen=stats_mode=diff:transparency_color=ffffff") {
		t.Errorf("palette phase missing palettegen filter: %s", palette)
	}
	if !strings.Contains(palette, "fps=12,scale=640:-1:flags=lanczos") {
		t.Errorf("palette phase missing scale chain: %s", palette)
	}
	if !strings.HasSuffix(palette, "palette.png") {
		t.Errorf("palette phase should write palette.png: %s", palette)
	}

	encode := strings.Join(plan.Commands[1].Args, " ")
	if !strings.Contains(encode, "-i palette.png") {
		t.Errorf("encode phase must consume the palette: %s", encode)
	}
	if !strings.Contains(encode, "paletteuse=dither=bayer:bayer_scale=5:diff_mode=rectangle") {
		t.Errorf("encode phase missing paletteuse filter: %s", encode)
	}
	if !strings.Contains(encode, "-gifflags +transdiff") {
		t.Errorf("encode phase missing transparency diff flag: %s", encode)
	}
	if !strings.HasSuffix(encode, "output.gif") {
		t.Errorf("encode phase should write output.gif: %s", encode)
	}
}
