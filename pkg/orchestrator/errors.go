package orchestrator

import (
	"errors"
	"fmt"

	"github.com/psantana5/vidgen/pkg/models"
)

var (
	// ErrConflict is returned by Submit while a job is submitting or polling
	ErrConflict = errors.New("a job is already in progress")
	// ErrClosed is returned by Submit after Close
	ErrClosed = errors.New("orchestrator closed")
	// ErrCancelled is returned by Submit when Cancel or Close interrupted it
	ErrCancelled = errors.New("job cancelled")
)

// SubmissionError reports that the service did not accept a job. The
// snapshot is Failed with the same message.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// TransientPollError is one failed status query. Polling continues.
type TransientPollError struct {
	JobID models.JobHandle
	Err   error
}

func (e *TransientPollError) Error() string {
	return fmt.Sprintf("status check for job %s failed: %v", e.JobID, e.Err)
}

func (e *TransientPollError) Unwrap() error {
	return e.Err
}
