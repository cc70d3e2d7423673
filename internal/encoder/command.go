package encoder

import (
	"fmt"
	"strconv"

	"framefuse/internal/services/ffmpeg"
)

// paletteFileName is the intermediate artifact of a two-phase GIF encode. It
// lives next to the frames and is reclaimed with the job directory.
const paletteFileName = "palette.png"

// Request describes one encode to plan. FrameRate must already be clamped to
// the configured range; the builder does not apply policy of its own.
type Request struct {
	Binary            string
	Codec             Codec
	Quality           Quality
	FrameRate         int
	FramePattern      string
	OutputName        string
	PaletteScaleWidth int
}

// Plan is the ordered list of ffmpeg invocations for one job. Single-phase
// codecs produce one command; GIF produces palette generation followed by
// palette application.
type Plan struct {
	Commands    []ffmpeg.Command
	OutputName  string
	PaletteName string
}

// Build translates a Request into the ffmpeg command sequence that encodes a
// numbered frame sequence while preserving transparency.
func Build(req Request) Plan {
	if req.Codec.TwoPhase() {
		return buildGIF(req)
	}

	args := inputArgs(req)
	args = append(args, codecArgs(req.Codec, req.Quality)...)
	args = append(args, req.OutputName)

	return Plan{
		Commands:   []ffmpeg.Command{{Binary: req.Binary, Args: args}},
		OutputName: req.OutputName,
	}
}

func inputArgs(req Request) []string {
	// ffmpeg only prints the frame= stats line at loglevel info or above;
	// -stats keeps the counter flowing on stderr despite -v error.
	return []string{
		"-y",
		"-v", "error",
		"-stats",
		"-framerate", strconv.Itoa(req.FrameRate),
		"-i", req.FramePattern,
	}
}

func codecArgs(codec Codec, quality Quality) []string {
	switch codec {
	case CodecVP8:
		return []string{"-c:v", "libvpx", "-pix_fmt", "yuva420p"}
	case CodecProRes:
		return []string{"-c:v", "prores_ks", "-profile:v", "4444", "-pix_fmt", "yuva444p10le"}
	case CodecQTRLE:
		return []string{"-c:v", "qtrle"}
	default:
		deadline, cpuUsed := vp9Speed(quality)
		return []string{
			"-c:v", "libvpx-vp9",
			"-pix_fmt", "yuva420p",
			"-deadline", deadline,
			"-cpu-used", cpuUsed,
		}
	}
}

// vp9Speed maps the quality setting onto libvpx-vp9's deadline/cpu-used pair.
func vp9Speed(quality Quality) (string, string) {
	switch quality {
	case QualityBest:
		return "best", "0"
	case QualityFast:
		return "realtime", "5"
	default:
		return "good", "1"
	}
}

// buildGIF plans the two-phase GIF encode: first a palette optimized for
// inter-frame diffs with white mapped to transparent, then the actual encode
// applying that palette with bayer dithering.
func buildGIF(req Request) Plan {
	scale := fmt.Sprintf("fps=%d,scale=%d:-1:flags=lanczos", req.FrameRate, req.PaletteScaleWidth)

	paletteArgs := append(inputArgs(req),
		"-vf", scale+",palettegen=stats_mode=diff:transparency_color=ffffff",
		paletteFileName,
	)
	encodeArgs := append(inputArgs(req),
		"-i", paletteFileName,
		"-lavfi", scale+" [x]; [x][1:v] paletteuse=dither=bayer:bayer_scale=5:diff_mode=rectangle",
		"-gifflags", "+transdiff",
		req.OutputName,
	)

	return Plan{
		Commands: []ffmpeg.Command{
			{Binary: req.Binary, Args: paletteArgs},
			{Binary: req.Binary, Args: encodeArgs},
		},
		OutputName:  req.OutputName,
		PaletteName: paletteFileName,
	}
}
