package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/morezero/openstack-gateway/pkg/gateway"
	"github.com/morezero/openstack-gateway/pkg/openstack"
)

func TestNoOpPublisher(t *testing.T) {
	pub := &NoOpPublisher{}
	if err := pub.PublishChanged(context.Background(), &ResourceChangedEvent{Family: "compute"}); err != nil {
		t.Errorf("events:publisher_test - expected no error, got %v", err)
	}
}

func TestCallbackPublisher(t *testing.T) {
	var captured *ResourceChangedEvent

	pub := NewCallbackPublisher(func(_ context.Context, event *ResourceChangedEvent) error {
		captured = event
		return nil
	})

	if err := pub.PublishChanged(context.Background(), &ResourceChangedEvent{Family: "volume", Resource: "volumes"}); err != nil {
		t.Errorf("events:publisher_test - expected no error, got %v", err)
	}
	if captured == nil || captured.Resource != "volumes" {
		t.Fatalf("events:publisher_test - captured = %+v", captured)
	}
}

func invocation(verb openstack.Verb, status int, errCode string) gateway.Invocation {
	return gateway.Invocation{
		ID:         uuid.MustParse("0b6f3b8e-8f2a-4c1e-9d9a-6f4f3a2b1c0d"),
		Kind:       gateway.KindDeleteParam,
		Path:       "/servers",
		ResourceID: "s1",
		Family:     gateway.FamilyCompute,
		Resource:   "servers",
		Verb:       verb,
		Mutating:   verb != openstack.VerbGet,
		Status:     status,
		ErrCode:    errCode,
		Started:    time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
		Duration:   1500 * time.Millisecond,
	}
}

func TestObserver(t *testing.T) {
	tests := []struct {
		name string
		inv  gateway.Invocation
		want bool
	}{
		{name: "successful delete", inv: invocation(openstack.VerbDelete, 204, ""), want: true},
		{name: "successful post", inv: invocation(openstack.VerbPost, 202, ""), want: true},
		{name: "read", inv: invocation(openstack.VerbGet, 200, ""), want: false},
		{name: "upstream error", inv: invocation(openstack.VerbDelete, 404, ""), want: false},
		{name: "gateway error", inv: invocation(openstack.VerbDelete, 0, openstack.CodeNetwork), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []*ResourceChangedEvent
			obs := NewObserver(NewCallbackPublisher(func(_ context.Context, e *ResourceChangedEvent) error {
				got = append(got, e)
				return nil
			}))
			obs.Observe(context.Background(), tt.inv)
			if (len(got) == 1) != tt.want {
				t.Errorf("events:publisher_test - published %d events, want published=%v", len(got), tt.want)
			}
		})
	}
}

func TestObserver_PublishErrorIsSwallowed(t *testing.T) {
	obs := NewObserver(NewCallbackPublisher(func(context.Context, *ResourceChangedEvent) error {
		return errors.New("connection closed")
	}))
	obs.Observe(context.Background(), invocation(openstack.VerbDelete, 204, ""))
}

func TestNewObserver_NilPublisher(t *testing.T) {
	NewObserver(nil).Observe(context.Background(), invocation(openstack.VerbDelete, 204, ""))
}

func TestEventFromInvocation(t *testing.T) {
	e := EventFromInvocation(invocation(openstack.VerbDelete, 204, ""))
	want := ResourceChangedEvent{
		InvocationID: "0b6f3b8e-8f2a-4c1e-9d9a-6f4f3a2b1c0d",
		Family:       "compute",
		Resource:     "servers",
		ResourceID:   "s1",
		Kind:         "conoha_openstack_delete_param",
		Path:         "/servers",
		Verb:         "DELETE",
		Status:       204,
		Timestamp:    "2025-06-15T12:00:01Z",
	}
	if *e != want {
		t.Errorf("events:publisher_test - event = %+v, want %+v", *e, want)
	}
}
