package encoder

import (
	"strconv"
	"strings"
)

// ParseFrame extracts the current frame counter from an ffmpeg stats line
// such as "frame=   42 fps=24 ...". It reports false for lines without a
// parseable counter.
func ParseFrame(line string) (int, bool) {
	idx := strings.Index(line, "frame=")
	if idx < 0 {
		return 0, false
	}
	fields := strings.Fields(line[idx+len("frame="):])
	if len(fields) == 0 {
		return 0, false
	}
	frame, err := strconv.Atoi(fields[0])
	if err != nil || frame < 0 {
		return 0, false
	}
	return frame, true
}

// Percent converts a frame counter into a whole progress percentage, capped
// at 100. A non-positive total yields 0.
func Percent(current, total int) int {
	if total <= 0 || current <= 0 {
		return 0
	}
	percent := current * 100 / total
	if percent > 100 {
		return 100
	}
	return percent
}
