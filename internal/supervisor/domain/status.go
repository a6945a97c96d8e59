package domain

import "time"

// State is the lifecycle state of the single job session.
type State string

const (
	StateIdle            State = "IDLE"
	StateStarting        State = "STARTING"
	StateRunning         State = "RUNNING"
	StateCompleted       State = "COMPLETED"
	StateCriticalFailure State = "CRITICAL_FAILURE"
	StateStopped         State = "STOPPED"
)

// Terminal reports whether the state ends a run. Only terminal states
// may be reset back to IDLE.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateCriticalFailure, StateStopped:
		return true
	}
	return false
}

// Active reports whether status polling is permitted in this state.
func (s State) Active() bool {
	return s == StateStarting || s == StateRunning
}

// JobStatus is the authoritative remote view of the run, read on every
// poll. SuccessCount and FailureCount never decrease while IsActive is
// true for the same run.
type JobStatus struct {
	IsActive          bool `json:"is_running"`
	SuccessCount      int  `json:"success"`
	FailureCount      int  `json:"failure"`
	AllProductsFailed bool `json:"all_products_failed"`
}

// Outcome labels a terminal report.
type Outcome string

const (
	OutcomeCompleted       Outcome = "COMPLETED"
	OutcomeCriticalFailure Outcome = "CRITICAL_FAILURE"
	OutcomeStopped         Outcome = "STOPPED"
)

// CompletionReport is the single terminal summary produced once per
// run.
type CompletionReport struct {
	RunID        string    `json:"run_id"`
	Outcome      Outcome   `json:"outcome"`
	SuccessCount int       `json:"success"`
	FailureCount int       `json:"failure"`
	TotalUnits   int       `json:"total_orders"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}
