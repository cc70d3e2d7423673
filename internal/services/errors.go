package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput marks requests rejected before a job is created or started.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks lookups for unknown job identifiers.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState marks operations against a job outside the required status.
	ErrInvalidState = errors.New("invalid state")
	// ErrNotReady marks artifact requests for jobs that have not completed.
	ErrNotReady = errors.New("not ready")
	// ErrEncodingFailure marks non-zero exits from the external encoder.
	ErrEncodingFailure = errors.New("encoding failure")
	// ErrTimeout marks encoder invocations that exceeded their deadline.
	ErrTimeout = errors.New("timeout")
	// ErrStorageFailure marks disk I/O faults during rename or cleanup.
	ErrStorageFailure = errors.New("storage failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrEncodingFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Message strips the sentinel prefix from a wrapped error, leaving the
// human-readable detail recorded on failed jobs.
func Message(err error) string {
	if err == nil {
		return ""
	}
	text := err.Error()
	for _, marker := range []error{
		ErrInvalidInput,
		ErrNotFound,
		ErrInvalidState,
		ErrNotReady,
		ErrEncodingFailure,
		ErrTimeout,
		ErrStorageFailure,
	} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(text, prefix) {
			return strings.TrimPrefix(text, prefix)
		}
	}
	return text
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
