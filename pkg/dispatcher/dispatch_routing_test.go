package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/morezero/openstack-gateway/pkg/gateway"
	"github.com/morezero/openstack-gateway/pkg/openstack"
)

type fakeTools struct {
	kind  gateway.Kind
	args  map[string]any
	out   string
	err   error
	panic any
	calls int
}

func (f *fakeTools) Call(_ context.Context, kind gateway.Kind, args map[string]any) (string, error) {
	f.calls++
	f.kind = kind
	f.args = args
	if f.panic != nil {
		panic(f.panic)
	}
	return f.out, f.err
}

// TestDispatch_UnknownMethod verifies that unknown methods return METHOD_NOT_FOUND.
func TestDispatch_UnknownMethod(t *testing.T) {
	tools := &fakeTools{}
	disp := NewDispatcher(NewDispatcherParams{Tools: tools})

	resp := disp.Dispatch(context.Background(), &GatewayRequest{
		ID:     "test-1",
		Method: "nonexistent",
		Params: json.RawMessage(`{}`),
	})

	if resp.Ok {
		t.Error("dispatcher:dispatch_routing_test - expected Ok=false for unknown method")
	}
	if resp.ID != "test-1" {
		t.Errorf("dispatcher:dispatch_routing_test - expected ID=test-1, got %s", resp.ID)
	}
	if resp.Error == nil {
		t.Fatal("dispatcher:dispatch_routing_test - expected error, got nil")
	}
	if resp.Error.Code != CodeMethodNotFound {
		t.Errorf("dispatcher:dispatch_routing_test - expected METHOD_NOT_FOUND, got %s", resp.Error.Code)
	}
	if resp.Error.Retryable {
		t.Error("dispatcher:dispatch_routing_test - METHOD_NOT_FOUND should not be retryable")
	}
	if tools.calls != 0 {
		t.Errorf("dispatcher:dispatch_routing_test - expected no tool calls, got %d", tools.calls)
	}
}

func TestDispatch_UnknownMethodPreservesRequestID(t *testing.T) {
	disp := NewDispatcher(NewDispatcherParams{Tools: &fakeTools{}})

	ids := []string{"req-1", "req-2", "unique-abc-123", ""}
	for _, id := range ids {
		resp := disp.Dispatch(context.Background(), &GatewayRequest{
			ID:     id,
			Method: "unknown",
			Params: json.RawMessage(`{}`),
		})

		if resp.ID != id {
			t.Errorf("dispatcher:dispatch_routing_test - expected ID=%q, got %q", id, resp.ID)
		}
	}
}

func TestDispatch_ToolCall(t *testing.T) {
	tools := &fakeTools{out: `{"status":200,"statusText":"OK","body":{"servers":[]}}`}
	disp := NewDispatcher(NewDispatcherParams{Tools: tools})

	resp := disp.Dispatch(context.Background(), &GatewayRequest{
		ID:     "req-1",
		Method: string(gateway.KindGetNoID),
		Params: json.RawMessage(`{"path":"/servers/detail"}`),
	})

	if !resp.Ok {
		t.Fatalf("dispatcher:dispatch_routing_test - expected ok, got %+v", resp.Error)
	}
	if tools.kind != gateway.KindGetNoID || tools.args["path"] != "/servers/detail" {
		t.Errorf("dispatcher:dispatch_routing_test - tool got %s %v", tools.kind, tools.args)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("dispatcher:dispatch_routing_test - marshal: %v", err)
	}
	want := `{"id":"req-1","ok":true,"result":{"status":200,"statusText":"OK","body":{"servers":[]}}}`
	if string(data) != want {
		t.Errorf("dispatcher:dispatch_routing_test - response = %s, want %s", data, want)
	}
}

func TestDispatch_ToolCallWithoutParams(t *testing.T) {
	tools := &fakeTools{err: openstack.NewInvalidArgumentError("path is required")}
	disp := NewDispatcher(NewDispatcherParams{Tools: tools})

	resp := disp.Dispatch(context.Background(), &GatewayRequest{ID: "req-1", Method: string(gateway.KindGetNoID)})
	if tools.calls != 1 || tools.args == nil {
		t.Fatalf("dispatcher:dispatch_routing_test - expected one call with empty args, got %d %v", tools.calls, tools.args)
	}
	if resp.Ok || resp.Error.Code != openstack.CodeInvalidArgument {
		t.Errorf("dispatcher:dispatch_routing_test - response = %+v", resp.Error)
	}
}

func TestDispatch_ToolErrors(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantCode      string
		wantMessage   string
		wantRetryable bool
	}{
		{
			name:        "unroutable",
			err:         openstack.NewUnroutableError("/nope"),
			wantCode:    openstack.CodeUnroutable,
			wantMessage: "Unhandled path: /nope",
		},
		{
			name:        "configuration",
			err:         openstack.NewConfigurationError("required identity fields are not defined"),
			wantCode:    openstack.CodeConfiguration,
			wantMessage: "required identity fields are not defined",
		},
		{
			name:          "network",
			err:           openstack.NewNetworkError(errors.New("connection refused")),
			wantCode:      openstack.CodeNetwork,
			wantMessage:   "request failed: connection refused",
			wantRetryable: true,
		},
		{
			name:        "caller deadline",
			err:         openstack.NewNetworkError(fmt.Errorf("Get \"http://compute.test\": %w", context.DeadlineExceeded)),
			wantCode:    openstack.CodeNetwork,
			wantMessage: "request failed: Get \"http://compute.test\": context deadline exceeded",
		},
		{
			name:          "plain error",
			err:           errors.New("boom"),
			wantCode:      openstack.CodeInternal,
			wantMessage:   "boom",
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			disp := NewDispatcher(NewDispatcherParams{Tools: &fakeTools{err: tt.err}})
			resp := disp.Dispatch(context.Background(), &GatewayRequest{
				ID:     "req-1",
				Method: string(gateway.KindDeleteParam),
				Params: json.RawMessage(`{"path":"/servers","param":"s1"}`),
			})
			if resp.Ok || resp.Error == nil {
				t.Fatal("dispatcher:dispatch_routing_test - expected error response")
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("dispatcher:dispatch_routing_test - code = %s, want %s", resp.Error.Code, tt.wantCode)
			}
			if resp.Error.Message != tt.wantMessage {
				t.Errorf("dispatcher:dispatch_routing_test - message = %q, want %q", resp.Error.Message, tt.wantMessage)
			}
			if resp.Error.Retryable != tt.wantRetryable {
				t.Errorf("dispatcher:dispatch_routing_test - retryable = %v", resp.Error.Retryable)
			}
		})
	}
}

func TestDispatch_InvalidParams(t *testing.T) {
	tools := &fakeTools{}
	disp := NewDispatcher(NewDispatcherParams{Tools: tools})

	resp := disp.Dispatch(context.Background(), &GatewayRequest{
		ID:     "req-1",
		Method: string(gateway.KindGetID),
		Params: json.RawMessage(`["not","an","object"]`),
	})
	if resp.Ok || resp.Error.Code != openstack.CodeInvalidArgument {
		t.Errorf("dispatcher:dispatch_routing_test - response = %+v", resp.Error)
	}
	if tools.calls != 0 {
		t.Errorf("dispatcher:dispatch_routing_test - expected no tool calls, got %d", tools.calls)
	}
}

func TestDispatch_RecoversFromPanic(t *testing.T) {
	disp := NewDispatcher(NewDispatcherParams{Tools: &fakeTools{panic: "boom"}})

	resp := disp.Dispatch(context.Background(), &GatewayRequest{
		ID:     "req-9",
		Method: string(gateway.KindGetNoID),
		Params: json.RawMessage(`{"path":"/servers/detail"}`),
	})
	if resp == nil || resp.Ok || resp.ID != "req-9" {
		t.Fatalf("dispatcher:dispatch_routing_test - response = %+v", resp)
	}
	if resp.Error.Code != openstack.CodeInternal || resp.Error.Message != "Unexpected error occurred" {
		t.Errorf("dispatcher:dispatch_routing_test - error = %+v", resp.Error)
	}
}

func TestDispatch_ListOperations(t *testing.T) {
	disp := NewDispatcher(NewDispatcherParams{Tools: &fakeTools{}})

	tests := []struct {
		name   string
		params string
		want   int
		ok     bool
	}{
		{name: "all", params: `{}`, want: len(gateway.Routes()), ok: true},
		{name: "no params", params: ``, want: len(gateway.Routes()), ok: true},
		{name: "by kind", params: `{"kind":"conoha_openstack_delete_param"}`, want: len(gateway.Paths(gateway.KindDeleteParam)), ok: true},
		{name: "unknown kind", params: `{"kind":"conoha_openstack_patch"}`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := disp.Dispatch(context.Background(), &GatewayRequest{
				ID:     "req-1",
				Method: MethodListOperations,
				Params: json.RawMessage(tt.params),
			})
			if resp.Ok != tt.ok {
				t.Fatalf("dispatcher:dispatch_routing_test - ok = %v, error = %+v", resp.Ok, resp.Error)
			}
			if !tt.ok {
				return
			}
			out := resp.Result.(*ListOperationsOutput)
			if len(out.Operations) != tt.want {
				t.Errorf("dispatcher:dispatch_routing_test - got %d operations, want %d", len(out.Operations), tt.want)
			}
		})
	}
}

func TestListOperations_Mutating(t *testing.T) {
	for _, op := range ListOperations("").Operations {
		if op.Mutating != (op.Verb != "GET") {
			t.Errorf("dispatcher:dispatch_routing_test - %s %s mutating=%v", op.Kind, op.Path, op.Mutating)
		}
		if op.Kind == gateway.KindPostRequestBody && op.Schema == "" {
			t.Errorf("dispatcher:dispatch_routing_test - %s has no schema", op.Path)
		}
	}
}

func TestDispatch_Health(t *testing.T) {
	disp := NewDispatcher(NewDispatcherParams{
		Tools: &fakeTools{},
		Health: func(context.Context) interface{} {
			return map[string]string{"status": "degraded"}
		},
	})
	resp := disp.Dispatch(context.Background(), &GatewayRequest{ID: "h", Method: MethodHealth})
	if !resp.Ok {
		t.Fatal("dispatcher:dispatch_routing_test - expected ok")
	}
	if resp.Result.(map[string]string)["status"] != "degraded" {
		t.Errorf("dispatcher:dispatch_routing_test - result = %v", resp.Result)
	}

	bare := NewDispatcher(NewDispatcherParams{Tools: &fakeTools{}})
	resp = bare.Dispatch(context.Background(), &GatewayRequest{ID: "h", Method: MethodHealth})
	if !resp.Ok || resp.Result.(map[string]string)["status"] != "healthy" {
		t.Errorf("dispatcher:dispatch_routing_test - result = %v", resp.Result)
	}
}
