package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/openstack-gateway/pkg/gateway"
)

const observerLogPrefix = "events:observer"

// EventPublisher is the interface for publishing resource change events.
type EventPublisher interface {
	PublishChanged(ctx context.Context, event *ResourceChangedEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (for stdio usage without COMMS).
type NoOpPublisher struct{}

// PublishChanged is a no-op.
func (p *NoOpPublisher) PublishChanged(_ context.Context, _ *ResourceChangedEvent) error {
	return nil
}

// CallbackPublisher is an EventPublisher that calls a callback function (for testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *ResourceChangedEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *ResourceChangedEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishChanged calls the callback.
func (p *CallbackPublisher) PublishChanged(ctx context.Context, event *ResourceChangedEvent) error {
	return p.callback(ctx, event)
}

// Observer publishes a change event for every successful mutating invocation.
type Observer struct {
	publisher EventPublisher
}

// NewObserver creates an Observer. A nil publisher uses NoOpPublisher.
func NewObserver(publisher EventPublisher) *Observer {
	if publisher == nil {
		publisher = &NoOpPublisher{}
	}
	return &Observer{publisher: publisher}
}

// Observe implements gateway.Observer. Publish failures are logged only.
func (o *Observer) Observe(ctx context.Context, inv gateway.Invocation) {
	if !inv.Mutating || inv.Outcome() != gateway.OutcomeSuccess {
		return
	}
	if err := o.publisher.PublishChanged(ctx, EventFromInvocation(inv)); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to publish change for %s %s: %v", observerLogPrefix, inv.Kind, inv.Path, err))
	}
}

// EventFromInvocation builds the change event for inv.
func EventFromInvocation(inv gateway.Invocation) *ResourceChangedEvent {
	return &ResourceChangedEvent{
		InvocationID: inv.ID.String(),
		Family:       string(inv.Family),
		Resource:     inv.Resource,
		ResourceID:   inv.ResourceID,
		Kind:         string(inv.Kind),
		Path:         inv.Path,
		Verb:         string(inv.Verb),
		Status:       inv.Status,
		Timestamp:    inv.Started.Add(inv.Duration).UTC().Format(time.RFC3339),
	}
}

var _ gateway.Observer = (*Observer)(nil)
