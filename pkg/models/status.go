package models

import (
	"time"
)

// RemoteStatusValue is the status string reported by GET /api/status/{job_id}
type RemoteStatusValue string

const (
	RemoteStatusPending    RemoteStatusValue = "pending"
	RemoteStatusProcessing RemoteStatusValue = "processing"
	RemoteStatusRunning    RemoteStatusValue = "running" // reported by the reference backend while rendering
	RemoteStatusCompleted  RemoteStatusValue = "completed"
	RemoteStatusFailed     RemoteStatusValue = "failed"
)

// RemoteStatus is the job status document served by the generation service.
// The same shape is returned by POST /api/generate-video.
type RemoteStatus struct {
	JobID    string            `json:"job_id,omitempty"`
	Status   RemoteStatusValue `json:"status"`
	Progress float64           `json:"progress"`
	Message  string            `json:"message,omitempty"`
	VideoURL string            `json:"video_url,omitempty"`
}

// IsCompleted reports the completed sentinel
func (s RemoteStatus) IsCompleted() bool {
	return s.Status == RemoteStatusCompleted
}

// IsFailed reports the failed sentinel
func (s RemoteStatus) IsFailed() bool {
	return s.Status == RemoteStatusFailed
}

// SubmitResponse is the minimal body a successful submission must carry
type SubmitResponse struct {
	JobID string `json:"job_id"`
}

// Job is a server-side generation job tracked by the reference service
type Job struct {
	ID          string             `json:"job_id"`
	Request     GenerationRequest  `json:"request"`
	Status      RemoteStatusValue  `json:"status"`
	Progress    float64            `json:"progress"`
	Message     string             `json:"message,omitempty"`
	VideoURL    string             `json:"video_url,omitempty"`
	Scenes      []string           `json:"scenes,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Transitions []StatusTransition `json:"transitions,omitempty"`
}

// RemoteStatus returns the wire document for the job
func (j *Job) RemoteStatus() RemoteStatus {
	return RemoteStatus{
		JobID:    j.ID,
		Status:   j.Status,
		Progress: j.Progress,
		Message:  j.Message,
		VideoURL: j.VideoURL,
	}
}

// StatusTransition tracks job status changes with timestamps
type StatusTransition struct {
	From      RemoteStatusValue `json:"from"`
	To        RemoteStatusValue `json:"to"`
	Timestamp time.Time         `json:"timestamp"`
	Reason    string            `json:"reason,omitempty"`
}
