package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/quickcart/order-supervisor/internal/supervisor/domain"
)

// StatusPoller reads the authoritative remote run status.
type StatusPoller interface {
	JobStatus(ctx context.Context) (domain.JobStatus, error)
}

// Reconciler polls the remote status at a fixed cadence while the
// session is in an active state and drives the session to its terminal
// state. Each tick runs one poll-and-reconcile cycle end to end; ticks
// that fire while a cycle is still outstanding are dropped by the
// ticker rather than stacked.
type Reconciler struct {
	logger   *slog.Logger
	session  *Session
	poller   StatusPoller
	runID    string
	interval time.Duration
	timeout  time.Duration
	onReport func(domain.CompletionReport)

	stopChan chan struct{}
	doneChan chan struct{}

	// lastErrClass suppresses repeat noise: a transient poll failure is
	// logged once per error class, then silently retried on following
	// ticks until the class changes or a poll succeeds.
	lastErrClass string
}

// ReconcilerConfig wires a reconciler for one run.
type ReconcilerConfig struct {
	Logger   *slog.Logger
	Session  *Session
	Poller   StatusPoller
	RunID    string
	Interval time.Duration
	Timeout  time.Duration
	OnReport func(domain.CompletionReport)
}

// NewReconciler creates a reconciler bound to a single run ID.
func NewReconciler(cfg *ReconcilerConfig) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = interval
	}

	return &Reconciler{
		logger:   cfg.Logger,
		session:  cfg.Session,
		poller:   cfg.Poller,
		runID:    cfg.RunID,
		interval: interval,
		timeout:  timeout,
		onReport: cfg.OnReport,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start launches the polling loop. The loop exits on its own when the
// session leaves the active states, or when Stop or the context cancels
// it.
func (r *Reconciler) Start(ctx context.Context) {
	go r.loop(ctx)
}

// Stop cancels the polling loop and waits for the in-flight cycle to
// finish.
func (r *Reconciler) Stop() {
	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
	<-r.doneChan
}

// Done reports loop termination, for tests and shutdown ordering.
func (r *Reconciler) Done() <-chan struct{} {
	return r.doneChan
}

func (r *Reconciler) loop(ctx context.Context) {
	defer close(r.doneChan)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("status reconciler started",
		slog.String("run_id", r.runID),
		slog.Duration("interval", r.interval),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("status reconciler stopped - context canceled",
				slog.String("run_id", r.runID),
			)
			return

		case <-r.stopChan:
			r.logger.Info("status reconciler stopped",
				slog.String("run_id", r.runID),
			)
			return

		case <-ticker.C:
			if done := r.tick(ctx); done {
				return
			}
		}
	}
}

// tick performs one poll-and-reconcile cycle. It returns true when the
// session has left the active states and the loop should exit.
func (r *Reconciler) tick(ctx context.Context) bool {
	if !r.session.State().Active() {
		return true
	}

	pollCtx, cancel := context.WithTimeout(ctx, r.timeout)
	status, err := r.poller.JobStatus(pollCtx)
	cancel()

	if err != nil {
		// Transient poll failures never transition state. Retry on the
		// next tick.
		class := classifyPollError(err)
		if class != r.lastErrClass {
			r.logger.Warn("status poll failed",
				slog.String("run_id", r.runID),
				slog.String("class", class),
				slog.String("error", err.Error()),
			)
			r.lastErrClass = class
		}
		return false
	}
	r.lastErrClass = ""

	report, state := r.session.ApplyStatus(r.runID, status)
	if report != nil && r.onReport != nil {
		r.onReport(*report)
	}

	if !state.Active() {
		r.logger.Info("run reached terminal state",
			slog.String("run_id", r.runID),
			slog.String("state", string(state)),
		)
		return true
	}

	r.logger.Debug("run status reconciled",
		slog.String("run_id", r.runID),
		slog.Int("success", status.SuccessCount),
		slog.Int("failure", status.FailureCount),
	)
	return false
}

// classifyPollError buckets transient poll failures so repeats of the
// same failure mode are logged once.
func classifyPollError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "network"
	}
	return "remote"
}
