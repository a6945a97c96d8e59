package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickcart/order-supervisor/internal/supervisor/domain"
)

type fakeBroker struct {
	routingKey string
	body       []byte
	err        error
}

func (f *fakeBroker) Publish(ctx context.Context, routingKey string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.routingKey = routingKey
	f.body = body
	return nil
}

func TestEmitter_PublishRunEvent(t *testing.T) {
	broker := &fakeBroker{}
	emitter := NewEmitter(broker)

	report := domain.CompletionReport{
		RunID:        uuid.New().String(),
		Outcome:      domain.OutcomeCompleted,
		SuccessCount: 3,
		FailureCount: 1,
		TotalUnits:   4,
	}
	require.NoError(t, emitter.PublishRunEvent(context.Background(), RunCompleted, report))

	assert.Equal(t, RunCompleted, broker.routingKey)

	var got map[string]any
	require.NoError(t, json.Unmarshal(broker.body, &got))
	assert.Equal(t, RunCompleted, got["event"])
	assert.Equal(t, report.RunID, got["run_id"])
	assert.Equal(t, string(domain.OutcomeCompleted), got["outcome"])
	assert.Equal(t, float64(3), got["success"])
	assert.Equal(t, float64(1), got["failure"])
	assert.Equal(t, float64(4), got["total_orders"])
	assert.NotEmpty(t, got["event_id"])
	assert.NotEmpty(t, got["emitted_at"])
}

func TestEmitter_BrokerFailureSurfaced(t *testing.T) {
	broker := &fakeBroker{err: errors.New("channel closed")}
	emitter := NewEmitter(broker)

	err := emitter.PublishRunEvent(context.Background(), RunStarted, domain.CompletionReport{RunID: "r1"})
	assert.ErrorContains(t, err, "channel closed")
}
