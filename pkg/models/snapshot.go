package models

import (
	"errors"
	"fmt"
	"time"
)

// JobHandle is the opaque job identifier returned by the generation service
type JobHandle string

// JobSnapshot is the orchestrator's current view of one job. Observers only
// ever receive copies.
type JobSnapshot struct {
	JobID     JobHandle `json:"job_id,omitempty"` // empty until submission succeeds
	State     JobState  `json:"state"`
	Progress  float64   `json:"progress"` // 0-100
	Message   string    `json:"message"`
	VideoURL  string    `json:"video_url,omitempty"` // set only in StateCompleted
	UpdatedAt time.Time `json:"updated_at"`
}

// HasJob reports whether the snapshot refers to an accepted job
func (s JobSnapshot) HasJob() bool {
	return s.JobID != ""
}

// Validate checks the snapshot invariants
func (s JobSnapshot) Validate() error {
	if s.Progress < 0 || s.Progress > 100 {
		return fmt.Errorf("progress %.1f out of range", s.Progress)
	}
	if (s.VideoURL != "") != (s.State == StateCompleted) {
		return errors.New("video_url must be set if and only if state is completed")
	}
	return nil
}
