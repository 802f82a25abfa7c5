package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/morezero/openstack-gateway/pkg/db"
	"github.com/morezero/openstack-gateway/pkg/gateway"
	"github.com/morezero/openstack-gateway/pkg/openstack"
)

type memoryStore struct {
	records  []*db.InvocationRecord
	err      error
	deadline bool
	ctxErr   error
}

func (m *memoryStore) InsertInvocation(ctx context.Context, rec *db.InvocationRecord) error {
	_, m.deadline = ctx.Deadline()
	m.ctxErr = ctx.Err()
	m.records = append(m.records, rec)
	return m.err
}

func sampleInvocation() gateway.Invocation {
	return gateway.Invocation{
		ID:       uuid.MustParse("6a1f0c52-1d55-4a43-9a43-5b9f3b0e2a11"),
		Kind:     gateway.KindGetNoID,
		Path:     "/v2.0/ports",
		Family:   gateway.FamilyNetwork,
		Resource: "ports",
		Verb:     openstack.VerbGet,
		Status:   200,
		Started:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration: 250 * time.Millisecond,
	}
}

func TestRecord(t *testing.T) {
	rec := Record(sampleInvocation())

	if rec.ID != "6a1f0c52-1d55-4a43-9a43-5b9f3b0e2a11" {
		t.Errorf("audit:recorder_test - ID = %s", rec.ID)
	}
	if rec.Outcome != gateway.OutcomeSuccess {
		t.Errorf("audit:recorder_test - Outcome = %s", rec.Outcome)
	}
	if rec.DurationMs != 250 {
		t.Errorf("audit:recorder_test - DurationMs = %d", rec.DurationMs)
	}
	if rec.ResourceID != nil || rec.ErrorCode != nil || rec.ErrorMessage != nil {
		t.Errorf("audit:recorder_test - empty optional fields should be NULL: %+v", rec)
	}

	inv := sampleInvocation()
	inv.ResourceID = "p1"
	inv.Status = 0
	inv.ErrCode = openstack.CodeNetwork
	inv.ErrMsg = "connection refused"
	rec = Record(inv)
	if rec.Outcome != gateway.OutcomeError {
		t.Errorf("audit:recorder_test - Outcome = %s", rec.Outcome)
	}
	if rec.ResourceID == nil || *rec.ResourceID != "p1" || rec.ErrorCode == nil || *rec.ErrorCode != openstack.CodeNetwork {
		t.Errorf("audit:recorder_test - record = %+v", rec)
	}
}

func TestRecorder_Observe(t *testing.T) {
	store := &memoryStore{}
	rec := NewRecorder(NewRecorderParams{Store: store})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Observe(ctx, sampleInvocation())

	if len(store.records) != 1 {
		t.Fatalf("audit:recorder_test - expected 1 record, got %d", len(store.records))
	}
	if !store.deadline {
		t.Error("audit:recorder_test - write should carry a deadline")
	}
	if store.ctxErr != nil {
		t.Errorf("audit:recorder_test - write context should not inherit cancellation, got %v", store.ctxErr)
	}
}

func TestRecorder_StoreErrorIsSwallowed(t *testing.T) {
	store := &memoryStore{err: errors.New("db down")}
	NewRecorder(NewRecorderParams{Store: store}).Observe(context.Background(), sampleInvocation())
	if len(store.records) != 1 {
		t.Errorf("audit:recorder_test - expected write attempt")
	}
}

func TestRecorder_NilStore(t *testing.T) {
	NewRecorder(NewRecorderParams{}).Observe(context.Background(), sampleInvocation())
}
