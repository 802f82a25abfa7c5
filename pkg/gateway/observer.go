package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/morezero/openstack-gateway/pkg/openstack"
)

const observerLogPrefix = "gateway:observer"

// Outcome labels.
const (
	OutcomeSuccess       = "success"
	OutcomeUpstreamError = "upstream_error"
	OutcomeError         = "error"
)

// Invocation describes one routed call after it completed.
type Invocation struct {
	ID         uuid.UUID
	Kind       Kind
	Path       string
	ResourceID string
	Family     Family
	Resource   string
	Verb       openstack.Verb
	Mutating   bool
	// Status is the upstream HTTP status, zero when no response was received.
	Status   int
	ErrCode  string
	ErrMsg   string
	Started  time.Time
	Duration time.Duration
}

// Outcome classifies the invocation.
func (i Invocation) Outcome() string {
	switch {
	case i.ErrCode != "":
		return OutcomeError
	case i.Status >= 400:
		return OutcomeUpstreamError
	default:
		return OutcomeSuccess
	}
}

// Observer is notified after every routed call. It must not block for long and
// cannot change the outcome of the call.
type Observer interface {
	Observe(ctx context.Context, inv Invocation)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, inv Invocation)

func (f ObserverFunc) Observe(ctx context.Context, inv Invocation) {
	f(ctx, inv)
}

// Observers fans an invocation out to each observer in order. A panicking
// observer is logged and skipped.
type Observers []Observer

func (o Observers) Observe(ctx context.Context, inv Invocation) {
	for _, obs := range o {
		if obs == nil {
			continue
		}
		observeSafely(ctx, obs, inv)
	}
}

func observeSafely(ctx context.Context, obs Observer, inv Invocation) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error(fmt.Sprintf("%s - observer panicked for invocation %s: %v", observerLogPrefix, inv.ID, rec))
		}
	}()
	obs.Observe(ctx, inv)
}
