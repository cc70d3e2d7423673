package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes an encode job in a transport-friendly format.
type Job struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	FrameCount   int    `json:"frameCount"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
	OutputSize   int64  `json:"outputSize,omitempty"`
	ProcessingMs int64  `json:"processingMs,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// JobResponse wraps a single job payload.
type JobResponse struct {
	Job Job `json:"job"`
}

// UploadResponse acknowledges a registration with a short echo of the
// accepted filenames.
type UploadResponse struct {
	Job   Job      `json:"job"`
	Files []string `json:"files"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// StartRequest carries the encode parameters for starting a job. All fields
// are optional; absent fields select the configured defaults.
type StartRequest struct {
	Codec     string `json:"codec"`
	Quality   string `json:"quality"`
	FrameRate int    `json:"frameRate"`
}

// JobCounts aggregates jobs per lifecycle state.
type JobCounts struct {
	Total      int `json:"total"`
	Uploaded   int `json:"uploaded"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// HealthResponse reports daemon liveness and job counts.
type HealthResponse struct {
	Status        string    `json:"status"`
	Database      string    `json:"database"`
	UptimeSeconds int64     `json:"uptimeSeconds"`
	Jobs          JobCounts `json:"jobs"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
