package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/quickcart/order-supervisor/internal/supervisor/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedPoller replays a fixed sequence of poll results and then
// repeats the last one.
type scriptedPoller struct {
	mu     sync.Mutex
	script []pollResult
	pos    int
	polls  int
}

type pollResult struct {
	status domain.JobStatus
	err    error
}

func (p *scriptedPoller) JobStatus(ctx context.Context) (domain.JobStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.polls++
	res := p.script[p.pos]
	if p.pos < len(p.script)-1 {
		p.pos++
	}
	return res.status, res.err
}

func (p *scriptedPoller) pollCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runReconciler(t *testing.T, session *Session, runID string, poller StatusPoller) []domain.CompletionReport {
	t.Helper()

	var mu sync.Mutex
	var reports []domain.CompletionReport

	r := NewReconciler(&ReconcilerConfig{
		Logger:   testLogger(),
		Session:  session,
		Poller:   poller,
		RunID:    runID,
		Interval: 5 * time.Millisecond,
		Timeout:  50 * time.Millisecond,
		OnReport: func(rep domain.CompletionReport) {
			mu.Lock()
			reports = append(reports, rep)
			mu.Unlock()
		},
	})
	r.Start(context.Background())

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		r.Stop()
		t.Fatal("reconciler did not terminate")
	}

	mu.Lock()
	defer mu.Unlock()
	return reports
}

func TestReconciler_DrivesRunToCompletion(t *testing.T) {
	s, runID := startedSession(t)

	poller := &scriptedPoller{script: []pollResult{
		{status: domain.JobStatus{IsActive: true}},
		{status: domain.JobStatus{IsActive: true, SuccessCount: 1}},
		{status: domain.JobStatus{IsActive: true, SuccessCount: 2, FailureCount: 1}},
		{status: domain.JobStatus{IsActive: false, SuccessCount: 3, FailureCount: 1}},
	}}

	reports := runReconciler(t, s, runID, poller)

	require.Len(t, reports, 1)
	assert.Equal(t, domain.OutcomeCompleted, reports[0].Outcome)
	assert.Equal(t, 3, reports[0].SuccessCount)
	assert.Equal(t, 1, reports[0].FailureCount)
	assert.Equal(t, domain.StateCompleted, s.State())
}

func TestReconciler_CriticalFailureReportedOnce(t *testing.T) {
	s, runID := startedSession(t)

	// the all-failed flag repeats; only one report may come out
	poller := &scriptedPoller{script: []pollResult{
		{status: domain.JobStatus{IsActive: true}},
		{status: domain.JobStatus{IsActive: true, FailureCount: 2, AllProductsFailed: true}},
		{status: domain.JobStatus{IsActive: false, FailureCount: 2, AllProductsFailed: true}},
	}}

	reports := runReconciler(t, s, runID, poller)

	require.Len(t, reports, 1)
	assert.Equal(t, domain.OutcomeCriticalFailure, reports[0].Outcome)
	assert.Equal(t, domain.StateCriticalFailure, s.State())
}

func TestReconciler_PollErrorsRetryWithoutTransition(t *testing.T) {
	s, runID := startedSession(t)

	poller := &scriptedPoller{script: []pollResult{
		{err: errors.New("connection refused")},
		{err: errors.New("connection refused")},
		{status: domain.JobStatus{IsActive: true, SuccessCount: 1}},
		{status: domain.JobStatus{IsActive: false, SuccessCount: 1}},
	}}

	reports := runReconciler(t, s, runID, poller)

	require.Len(t, reports, 1)
	assert.Equal(t, domain.OutcomeCompleted, reports[0].Outcome)
	assert.GreaterOrEqual(t, poller.pollCount(), 4)
}

func TestReconciler_ExitsWhenRunLeavesActiveStates(t *testing.T) {
	s, runID := startedSession(t)

	poller := &scriptedPoller{script: []pollResult{
		{status: domain.JobStatus{IsActive: true}},
	}}

	r := NewReconciler(&ReconcilerConfig{
		Logger:   testLogger(),
		Session:  s,
		Poller:   poller,
		RunID:    runID,
		Interval: 5 * time.Millisecond,
	})
	r.Start(context.Background())

	// a user stop lands while polling continues
	require.NotNil(t, s.MarkStopped(runID))

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		r.Stop()
		t.Fatal("reconciler kept polling after terminal transition")
	}
	assert.Equal(t, domain.StateStopped, s.State())
}

func TestReconciler_StopCancelsLoop(t *testing.T) {
	s, runID := startedSession(t)

	poller := &scriptedPoller{script: []pollResult{
		{status: domain.JobStatus{IsActive: true}},
	}}

	r := NewReconciler(&ReconcilerConfig{
		Logger:   testLogger(),
		Session:  s,
		Poller:   poller,
		RunID:    runID,
		Interval: 5 * time.Millisecond,
	})
	r.Start(context.Background())

	time.Sleep(20 * time.Millisecond)
	r.Stop()

	select {
	case <-r.Done():
	default:
		t.Fatal("Stop returned before the loop finished")
	}
	// the run itself is untouched
	assert.Equal(t, domain.StateRunning, s.State())
}
