package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an encode job.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusUploaded,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Frame pairs an uploaded frame's sanitized original name with the
// zero-padded sequential name assigned at the start of processing. Sequential
// is empty until the rename step runs.
type Frame struct {
	Original   string `json:"original"`
	Sequential string `json:"sequential,omitempty"`
}

// Job represents one request to encode an ordered frame set into a single
// output artifact.
type Job struct {
	ID                   string
	Status               Status
	Frames               []Frame
	Progress             int
	CreatedAt            time.Time
	UpdatedAt            time.Time
	WorkDir              string
	OutputPath           string
	OutputSize           int64
	ProcessingDurationMs int64
	ErrorMessage         string
}

// FrameCount returns the number of registered frames.
func (j *Job) FrameCount() int {
	if j == nil {
		return 0
	}
	return len(j.Frames)
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Uploaded   int
	Processing int
	Completed  int
	Failed     int
}
