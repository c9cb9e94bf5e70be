package domain

import "time"

// EnrichJob is one queued enrichment attempt for a photo.
// It is the message body published on the job transport.
type EnrichJob struct {
	PhotoID    string    `json:"photo_id"`
	RequestID  string    `json:"request_id,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewEnrichJob creates a job stamped with the current time.
func NewEnrichJob(photoID, requestID string) EnrichJob {
	return EnrichJob{
		PhotoID:    photoID,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC(),
	}
}

// SkippedPhoto records a photo that a batch request did not queue.
type SkippedPhoto struct {
	PhotoID string `json:"photo_id"`
	Reason  string `json:"reason"`
}

// BatchResult is the outcome of a batch enrichment request.
type BatchResult struct {
	Queued  []string       `json:"queued"`
	Skipped []SkippedPhoto `json:"skipped"`
}
