package models

import (
	"fmt"
)

// JobState is the orchestrator-side lifecycle state of one job
type JobState string

const (
	StateIdle       JobState = "idle"       // No job, or the last job was cancelled
	StateSubmitting JobState = "submitting" // Submit call in flight
	StatePolling    JobState = "polling"    // Job accepted, status loop running
	StateCompleted  JobState = "completed"  // Service reported completion
	StateFailed     JobState = "failed"     // Submission failed or service reported failure
)

// validTransitions maps from-state to allowed to-states
var validTransitions = map[JobState]map[JobState]bool{
	StateIdle: {
		StateSubmitting: true, // Idle → Submitting (submit called)
		StateFailed:     true, // Idle → Failed (submit rejected before the call)
	},
	StateSubmitting: {
		StatePolling: true, // Submitting → Polling (service accepted)
		StateFailed:  true, // Submitting → Failed (service rejected or transport error)
		StateIdle:    true, // Submitting → Idle (cancelled while submitting)
	},
	StatePolling: {
		StateCompleted: true, // Polling → Completed (status=completed)
		StateFailed:    true, // Polling → Failed (status=failed)
		StateIdle:      true, // Polling → Idle (cancel)
	},
	// Terminal for the job, but the orchestrator can start a new cycle
	StateCompleted: {
		StateSubmitting: true,
	},
	StateFailed: {
		StateSubmitting: true,
	},
}

// ValidateTransition checks if a state transition is valid
func ValidateTransition(from, to JobState) error {
	allowed, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("unknown source state: %s", from)
	}

	if !allowed[to] {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}

	return nil
}

// IsTerminal reports whether no further automatic transitions happen from s
func (s JobState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// IsActive reports whether a job is in flight (a new submit would conflict)
func (s JobState) IsActive() bool {
	return s == StateSubmitting || s == StatePolling
}

// IsSettled reports whether the orchestrator is not driving anything: it is
// idle or the last job reached a terminal state
func (s JobState) IsSettled() bool {
	return !s.IsActive()
}
