package api

import "framefuse/internal/queue"

// FromJob converts a stored job into its API representation.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}
	converted := Job{
		ID:           job.ID,
		Status:       string(job.Status),
		Progress:     job.Progress,
		FrameCount:   job.FrameCount(),
		OutputSize:   job.OutputSize,
		ProcessingMs: job.ProcessingDurationMs,
		ErrorMessage: job.ErrorMessage,
	}
	if !job.CreatedAt.IsZero() {
		converted.CreatedAt = job.CreatedAt.Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		converted.UpdatedAt = job.UpdatedAt.Format(dateTimeFormat)
	}
	return converted
}

// FromJobs converts a job list.
func FromJobs(jobs []*queue.Job) []Job {
	converted := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		converted = append(converted, FromJob(job))
	}
	return converted
}

// maxEchoedFiles bounds the filename echo in upload responses.
const maxEchoedFiles = 5

// EchoFiles returns at most five of the accepted frame names, appending
// "..." when the list was truncated.
func EchoFiles(job *queue.Job) []string {
	if job == nil {
		return nil
	}
	names := make([]string, 0, maxEchoedFiles+1)
	for _, frame := range job.Frames {
		if len(names) == maxEchoedFiles {
			names = append(names, "...")
			break
		}
		names = append(names, frame.Original)
	}
	return names
}

// FromHealth converts aggregate counts.
func FromHealth(health queue.HealthSummary) JobCounts {
	return JobCounts{
		Total:      health.Total,
		Uploaded:   health.Uploaded,
		Processing: health.Processing,
		Completed:  health.Completed,
		Failed:     health.Failed,
	}
}
