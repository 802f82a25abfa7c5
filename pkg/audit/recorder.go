// Package audit records gateway invocations in the audit log.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/openstack-gateway/pkg/db"
	"github.com/morezero/openstack-gateway/pkg/gateway"
)

const logPrefix = "audit:recorder"

// DefaultWriteTimeout bounds a single audit write.
const DefaultWriteTimeout = 3 * time.Second

// Store persists invocation records.
type Store interface {
	InsertInvocation(ctx context.Context, rec *db.InvocationRecord) error
}

// NewRecorderParams holds parameters for NewRecorder.
type NewRecorderParams struct {
	Store        Store
	WriteTimeout time.Duration
}

// Recorder is a gateway.Observer writing every invocation to a Store. A
// failed write is logged and never affects the call.
type Recorder struct {
	store   Store
	timeout time.Duration
}

// NewRecorder creates a new Recorder.
func NewRecorder(params NewRecorderParams) *Recorder {
	timeout := params.WriteTimeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	return &Recorder{store: params.Store, timeout: timeout}
}

// Observe implements gateway.Observer.
func (r *Recorder) Observe(ctx context.Context, inv gateway.Invocation) {
	if r.store == nil {
		return
	}
	// The write outlives a caller that already gave up on the call.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.store.InsertInvocation(writeCtx, Record(inv)); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to record invocation %s: %v", logPrefix, inv.ID, err))
	}
}

// Record converts an invocation to its audit row.
func Record(inv gateway.Invocation) *db.InvocationRecord {
	return &db.InvocationRecord{
		ID:           inv.ID.String(),
		Kind:         string(inv.Kind),
		Path:         inv.Path,
		ResourceID:   db.OptionalString(inv.ResourceID),
		Family:       string(inv.Family),
		Resource:     inv.Resource,
		Verb:         string(inv.Verb),
		Mutating:     inv.Mutating,
		Status:       inv.Status,
		Outcome:      inv.Outcome(),
		ErrorCode:    db.OptionalString(inv.ErrCode),
		ErrorMessage: db.OptionalString(inv.ErrMsg),
		Started:      inv.Started.UTC(),
		DurationMs:   inv.Duration.Milliseconds(),
	}
}

var _ gateway.Observer = (*Recorder)(nil)
