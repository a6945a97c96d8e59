package supervisor

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quickcart/order-supervisor/internal/supervisor/domain"
)

// Session is the single-job lifecycle state machine. One instance is
// live per client session and it is the sole writer of the lifecycle
// state. Every transition executes under one lock so a status apply,
// a user stop and a reset can never interleave.
type Session struct {
	mu sync.Mutex

	state     domain.State
	runID     string
	config    domain.JobConfig
	startedAt time.Time

	lastStatus *domain.JobStatus
	report     *domain.CompletionReport
	// reported is the per-run one-shot guard: exactly one terminal
	// report per run, no matter how many poll responses repeat the
	// terminal condition.
	reported bool
}

// Snapshot is a consistent read of the session for callers.
type Snapshot struct {
	State      domain.State
	RunID      string
	Config     domain.JobConfig
	LastStatus *domain.JobStatus
	LastReport *domain.CompletionReport
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{state: domain.StateIdle}
}

// State returns the current lifecycle state.
func (s *Session) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of the observable session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:  s.state,
		RunID:  s.runID,
		Config: s.config,
	}
	if s.lastStatus != nil {
		st := *s.lastStatus
		snap.LastStatus = &st
	}
	if s.report != nil {
		r := *s.report
		snap.LastReport = &r
	}
	return snap
}

// BeginStart moves IDLE to STARTING with a fresh run ID and freezes
// the admitted config for the duration of the run. Concurrent starts
// are rejected outright, never queued.
func (s *Session) BeginStart(cfg domain.JobConfig) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateIdle {
		return "", domain.ErrAlreadyRunning
	}

	s.state = domain.StateStarting
	s.runID = uuid.New().String()
	s.config = cfg
	s.startedAt = time.Now()
	s.lastStatus = nil
	s.report = nil
	s.reported = false
	return s.runID, nil
}

// StartAccepted moves STARTING to RUNNING after the remote
// acknowledged the start request.
func (s *Session) StartAccepted(runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateStarting || s.runID != runID {
		return false
	}
	s.state = domain.StateRunning
	return true
}

// StartRejected reverts STARTING to IDLE. No run state is retained.
func (s *Session) StartRejected(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateStarting || s.runID != runID {
		return
	}
	s.state = domain.StateIdle
	s.runID = ""
}

// ApplyStatus reconciles one poll result against the local state as a
// single atomic step. Results for a stale run ID, or arriving after
// the session left the active states, are discarded. The returned
// report is non-nil exactly once per run, on the poll that produced
// the terminal transition.
func (s *Session) ApplyStatus(runID string, st domain.JobStatus) (report *domain.CompletionReport, state domain.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if runID != s.runID || !s.state.Active() {
		return nil, s.state
	}

	// Resume resync: the remote says the run is live but the local
	// state never saw the acknowledgement (page reload, restart).
	// Adopt RUNNING without re-issuing the start request.
	if s.state == domain.StateStarting && st.IsActive {
		s.state = domain.StateRunning
	}

	// Start race: the remote is already inactive and the local state
	// never reached RUNNING. No run happened from this session's
	// perspective, so no report is emitted.
	if s.state == domain.StateStarting && !st.IsActive {
		s.state = domain.StateIdle
		s.runID = ""
		return nil, s.state
	}

	cur := st
	s.lastStatus = &cur

	if st.AllProductsFailed {
		if s.reported {
			return nil, s.state
		}
		return s.finishLocked(domain.OutcomeCriticalFailure, st), s.state
	}

	if !st.IsActive {
		if s.reported {
			return nil, s.state
		}
		return s.finishLocked(domain.OutcomeCompleted, st), s.state
	}

	return nil, s.state
}

// MarkStopped records a remotely confirmed cancellation. It loses to a
// terminal transition that already landed: the one-shot guard decides
// the race between a stop acknowledgement and a completing poll.
func (s *Session) MarkStopped(runID string) *domain.CompletionReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	if runID != s.runID || !s.state.Active() || s.reported {
		return nil
	}

	var st domain.JobStatus
	if s.lastStatus != nil {
		st = *s.lastStatus
	}
	return s.finishLocked(domain.OutcomeStopped, st)
}

// Reset moves a terminal state back to IDLE. It is caller-driven and
// rejected from any non-terminal state.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Terminal() {
		return domain.ErrNotTerminal
	}
	s.state = domain.StateIdle
	s.runID = ""
	return nil
}

// finishLocked applies the terminal transition and builds the single
// report for the run. Callers hold s.mu and have checked s.reported.
func (s *Session) finishLocked(outcome domain.Outcome, st domain.JobStatus) *domain.CompletionReport {
	switch outcome {
	case domain.OutcomeCompleted:
		s.state = domain.StateCompleted
	case domain.OutcomeCriticalFailure:
		s.state = domain.StateCriticalFailure
	case domain.OutcomeStopped:
		s.state = domain.StateStopped
	}

	s.reported = true
	s.report = &domain.CompletionReport{
		RunID:        s.runID,
		Outcome:      outcome,
		SuccessCount: st.SuccessCount,
		FailureCount: st.FailureCount,
		TotalUnits:   s.config.TotalUnits,
		StartedAt:    s.startedAt,
		FinishedAt:   time.Now(),
	}
	return s.report
}
