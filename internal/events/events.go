// Package events shapes run lifecycle events and publishes them over
// RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quickcart/order-supervisor/internal/supervisor/domain"
)

// Routing keys for run lifecycle events.
const (
	RunStarted         = "run.started"
	RunCompleted       = "run.completed"
	RunCriticalFailure = "run.critical_failure"
	RunStopped         = "run.stopped"
)

// Broker is the message transport. Implemented by rabbitmq.Publisher.
type Broker interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Emitter publishes run lifecycle events.
type Emitter struct {
	broker Broker
}

// NewEmitter creates an emitter over the given broker.
func NewEmitter(broker Broker) *Emitter {
	return &Emitter{broker: broker}
}

// runEvent is the JSON body of a lifecycle event.
type runEvent struct {
	EventID      string    `json:"event_id"`
	Event        string    `json:"event"`
	RunID        string    `json:"run_id"`
	Outcome      string    `json:"outcome,omitempty"`
	SuccessCount int       `json:"success"`
	FailureCount int       `json:"failure"`
	TotalOrders  int       `json:"total_orders"`
	EmittedAt    time.Time `json:"emitted_at"`
}

// PublishRunEvent publishes one lifecycle event; the event name doubles
// as the routing key.
func (e *Emitter) PublishRunEvent(ctx context.Context, event string, report domain.CompletionReport) error {
	body, err := json.Marshal(runEvent{
		EventID:      uuid.New().String(),
		Event:        event,
		RunID:        report.RunID,
		Outcome:      string(report.Outcome),
		SuccessCount: report.SuccessCount,
		FailureCount: report.FailureCount,
		TotalOrders:  report.TotalUnits,
		EmittedAt:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode run event: %w", err)
	}

	return e.broker.Publish(ctx, event, body)
}
