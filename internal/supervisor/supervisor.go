package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quickcart/order-supervisor/internal/supervisor/domain"
)

// RemoteAPI is the remote job control and account surface the
// supervisor drives. Implemented by internal/remote.Client.
type RemoteAPI interface {
	Balance(ctx context.Context) (float64, error)
	Price(ctx context.Context) (float64, error)
	StartJob(ctx context.Context, cfg domain.JobConfig, plan ExecutionPlan) error
	StopJob(ctx context.Context) error
	JobStatus(ctx context.Context) (domain.JobStatus, error)
}

// RunStore persists terminal reports as run history.
type RunStore interface {
	SaveRun(ctx context.Context, report domain.CompletionReport) error
}

// EventPublisher emits run lifecycle events. Publish failures are
// logged by the supervisor, never surfaced to callers.
type EventPublisher interface {
	PublishRunEvent(ctx context.Context, event string, report domain.CompletionReport) error
}

// Config wires a Supervisor.
type Config struct {
	Logger       *slog.Logger
	Remote       RemoteAPI
	Runs         RunStore
	Events       EventPublisher
	PollInterval time.Duration
	PollTimeout  time.Duration
	StartTimeout time.Duration
	StopTimeout  time.Duration
}

// Supervisor is the admission gate and lifecycle owner for the single
// automation job of this session.
type Supervisor struct {
	logger       *slog.Logger
	session      *Session
	remote       RemoteAPI
	runs         RunStore
	events       EventPublisher
	pollInterval time.Duration
	pollTimeout  time.Duration
	startTimeout time.Duration
	stopTimeout  time.Duration

	reconciler *Reconciler
}

// New creates a supervisor with an idle session.
func New(cfg *Config) *Supervisor {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	startTimeout := cfg.StartTimeout
	if startTimeout <= 0 {
		startTimeout = 30 * time.Second
	}
	stopTimeout := cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = 30 * time.Second
	}

	return &Supervisor{
		logger:       cfg.Logger,
		session:      NewSession(),
		remote:       cfg.Remote,
		runs:         cfg.Runs,
		events:       cfg.Events,
		pollInterval: pollInterval,
		pollTimeout:  cfg.PollTimeout,
		startTimeout: startTimeout,
		stopTimeout:  stopTimeout,
	}
}

// Snapshot returns the current lifecycle state, last polled status and
// last terminal report.
func (s *Supervisor) Snapshot() Snapshot {
	return s.session.Snapshot()
}

// Start admits the config against the live balance and price and, if
// accepted, issues the remote start request and begins polling. A
// start timeout is treated as a rejection: the session reverts to
// IDLE. The returned warning is non-nil when parallelism was clamped.
func (s *Supervisor) Start(ctx context.Context, cfg domain.JobConfig) (*ClampWarning, error) {
	balance, price, err := s.fetchAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance and price: %w", err)
	}

	admitted, warn, err := CheckAdmission(cfg, balance, price)
	if err != nil {
		return warn, err
	}
	if warn != nil {
		s.logger.Warn("parallel windows clamped to total orders",
			slog.Int("configured", warn.Configured),
			slog.Int("effective", warn.Effective),
		)
	}

	plan := ResolveOrder(admitted.Products, admitted.FallbackMode)

	runID, err := s.session.BeginStart(admitted)
	if err != nil {
		return warn, err
	}

	startCtx, cancel := context.WithTimeout(ctx, s.startTimeout)
	defer cancel()

	if err := s.remote.StartJob(startCtx, admitted, plan); err != nil {
		s.session.StartRejected(runID)
		s.logger.Error("remote start rejected",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		return warn, err
	}

	s.session.StartAccepted(runID)
	s.logger.Info("run started",
		slog.String("run_id", runID),
		slog.Int("total_orders", admitted.TotalUnits),
		slog.Int("parallel_windows", admitted.MaxParallelism),
		slog.Bool("order_all", plan.OrderAll),
	)
	s.publishEvent("run.started", domain.CompletionReport{RunID: runID, TotalUnits: admitted.TotalUnits})

	s.startReconciler(runID)
	return warn, nil
}

// Stop issues the remote stop request. The session becomes STOPPED
// only after the remote confirms cancellation; on failure or timeout
// the state holds RUNNING and the stop is retryable.
func (s *Supervisor) Stop(ctx context.Context) error {
	if !s.session.State().Active() {
		return domain.ErrNotRunning
	}

	snap := s.session.Snapshot()

	stopCtx, cancel := context.WithTimeout(ctx, s.stopTimeout)
	defer cancel()

	if err := s.remote.StopJob(stopCtx); err != nil {
		s.logger.Error("remote stop failed",
			slog.String("run_id", snap.RunID),
			slog.String("error", err.Error()),
		)
		return err
	}

	report := s.session.MarkStopped(snap.RunID)
	if report == nil {
		// A completing poll won the race; its report already went out.
		return nil
	}

	s.logger.Info("run stopped by user",
		slog.String("run_id", report.RunID),
		slog.Int("success", report.SuccessCount),
		slog.Int("failure", report.FailureCount),
	)
	s.handleReport(*report)
	return nil
}

// Reset clears a terminal state back to IDLE so the next run can be
// configured. It is rejected from non-terminal states.
func (s *Supervisor) Reset() error {
	return s.session.Reset()
}

// Resume checks the remote status once at startup and adopts a run
// that is still live on the remote side without re-issuing a start
// request. Used after a service restart.
func (s *Supervisor) Resume(ctx context.Context, cfg domain.JobConfig) error {
	statusCtx, cancel := context.WithTimeout(ctx, s.startTimeout)
	defer cancel()

	status, err := s.remote.JobStatus(statusCtx)
	if err != nil {
		return fmt.Errorf("resume check failed: %w", err)
	}
	if !status.IsActive {
		return nil
	}

	runID, err := s.session.BeginStart(cfg)
	if err != nil {
		return err
	}

	s.logger.Info("adopting live remote run",
		slog.String("run_id", runID),
		slog.Int("success", status.SuccessCount),
		slog.Int("failure", status.FailureCount),
	)

	// The first reconciled poll moves STARTING to RUNNING.
	s.startReconciler(runID)
	return nil
}

// Shutdown stops the polling loop if one is live. The remote run is
// left untouched.
func (s *Supervisor) Shutdown() {
	if s.reconciler != nil {
		s.reconciler.Stop()
	}
}

func (s *Supervisor) startReconciler(runID string) {
	s.reconciler = NewReconciler(&ReconcilerConfig{
		Logger:   s.logger,
		Session:  s.session,
		Poller:   s.remote,
		RunID:    runID,
		Interval: s.pollInterval,
		Timeout:  s.pollTimeout,
		OnReport: s.handleReport,
	})
	s.reconciler.Start(context.Background())
}

// fetchAccount reads balance and price in parallel.
func (s *Supervisor) fetchAccount(ctx context.Context) (balance, price float64, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balance, err = s.remote.Balance(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		price, err = s.remote.Price(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	return balance, price, nil
}

// handleReport persists and publishes the single terminal report of a
// run. Persistence failures are logged; the report already reached the
// session state and must not be blocked.
func (s *Supervisor) handleReport(report domain.CompletionReport) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.runs != nil {
		if err := s.runs.SaveRun(ctx, report); err != nil {
			s.logger.Error("failed to persist run report",
				slog.String("run_id", report.RunID),
				slog.String("error", err.Error()),
			)
		}
	}

	event := "run.completed"
	switch report.Outcome {
	case domain.OutcomeCriticalFailure:
		event = "run.critical_failure"
	case domain.OutcomeStopped:
		event = "run.stopped"
	}
	s.publishEvent(event, report)
}

func (s *Supervisor) publishEvent(event string, report domain.CompletionReport) {
	if s.events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.events.PublishRunEvent(ctx, event, report); err != nil {
		s.logger.Warn("failed to publish run event",
			slog.String("event", event),
			slog.String("run_id", report.RunID),
			slog.String("error", err.Error()),
		)
	}
}
