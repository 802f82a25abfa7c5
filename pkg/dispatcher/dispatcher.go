package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/morezero/openstack-gateway/pkg/commsutil"
	"github.com/morezero/openstack-gateway/pkg/gateway"
	"github.com/morezero/openstack-gateway/pkg/openstack"
)

const logPrefix = "dispatcher:dispatch"

// Method names served besides the tool kinds.
const (
	MethodListOperations = "listOperations"
	MethodHealth         = "health"
)

// Error codes specific to the transport.
const (
	CodeMethodNotFound = "METHOD_NOT_FOUND"
	CodeInvalidRequest = "INVALID_REQUEST"
)

// ToolCaller executes a tool call and reports failures as errors.
type ToolCaller interface {
	Call(ctx context.Context, kind gateway.Kind, args map[string]any) (string, error)
}

// HealthFunc reports service health.
type HealthFunc func(ctx context.Context) interface{}

// NewDispatcherParams holds parameters for NewDispatcher.
type NewDispatcherParams struct {
	Tools  ToolCaller
	Health HealthFunc
}

// Dispatcher routes COMMS requests to gateway tools.
type Dispatcher struct {
	tools  ToolCaller
	health HealthFunc
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(params NewDispatcherParams) *Dispatcher {
	return &Dispatcher{tools: params.Tools, health: params.Health}
}

// Dispatch routes a request to the tool or method it names and returns a response.
func (d *Dispatcher) Dispatch(ctx context.Context, req *GatewayRequest) (resp *GatewayResponse) {
	requestID := ""
	if req.Ctx != nil {
		requestID = req.Ctx.RequestID
	}
	slog.Debug(fmt.Sprintf("%s - method=%s id=%s requestId=%s", logPrefix, req.Method, req.ID, requestID))

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error(fmt.Sprintf("%s - recovered from panic in %s: %v", logPrefix, req.Method, rec))
			resp = errorResponse(req.ID, openstack.CodeInternal, "Unexpected error occurred", false)
		}
	}()

	if kind, ok := gateway.ParseKind(req.Method); ok {
		return d.handleTool(ctx, req, kind)
	}

	switch req.Method {
	case MethodListOperations:
		return d.handleListOperations(req)
	case MethodHealth:
		return d.handleHealth(ctx, req)
	default:
		return errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("Unknown method: %s", req.Method), false)
	}
}

func (d *Dispatcher) handleTool(ctx context.Context, req *GatewayRequest, kind gateway.Kind) *GatewayResponse {
	args := map[string]any{}
	if len(req.Params) > 0 && string(req.Params) != "null" {
		if err := commsutil.DecodePayload(req.Params, &args); err != nil {
			return errorResponse(req.ID, openstack.CodeInvalidArgument, fmt.Sprintf("Failed to parse %s params", kind), false)
		}
	}

	out, err := d.tools.Call(ctx, kind, args)
	if err != nil {
		return gatewayErrorToResponse(req.ID, err)
	}
	return &GatewayResponse{ID: req.ID, Ok: true, Result: resultValue(out)}
}

// resultValue embeds JSON output as-is and anything else as a string.
func resultValue(out string) interface{} {
	if json.Valid([]byte(out)) {
		return json.RawMessage(out)
	}
	return out
}

// OperationInfo describes one routable operation.
type OperationInfo struct {
	Kind     gateway.Kind   `json:"kind"`
	Path     string         `json:"path"`
	Family   gateway.Family `json:"family"`
	Verb     string         `json:"verb"`
	Schema   string         `json:"schema,omitempty"`
	Mutating bool           `json:"mutating"`
}

// ListOperationsInput filters listOperations.
type ListOperationsInput struct {
	Kind string `json:"kind,omitempty"`
}

// ListOperationsOutput is the listOperations result.
type ListOperationsOutput struct {
	Operations []OperationInfo `json:"operations"`
}

func (d *Dispatcher) handleListOperations(req *GatewayRequest) *GatewayResponse {
	var input ListOperationsInput
	if len(req.Params) > 0 && string(req.Params) != "null" {
		if err := json.Unmarshal(req.Params, &input); err != nil {
			return errorResponse(req.ID, openstack.CodeInvalidArgument, "Failed to parse listOperations params", false)
		}
	}
	if input.Kind != "" {
		if _, ok := gateway.ParseKind(input.Kind); !ok {
			return errorResponse(req.ID, openstack.CodeInvalidArgument, fmt.Sprintf("Unknown kind: %s", input.Kind), false)
		}
	}
	return &GatewayResponse{ID: req.ID, Ok: true, Result: ListOperations(gateway.Kind(input.Kind))}
}

// ListOperations returns the routing table, optionally filtered by kind.
func ListOperations(kind gateway.Kind) *ListOperationsOutput {
	out := &ListOperationsOutput{Operations: []OperationInfo{}}
	for _, r := range gateway.Routes() {
		if kind != "" && r.Kind != kind {
			continue
		}
		out.Operations = append(out.Operations, OperationInfo{
			Kind:     r.Kind,
			Path:     r.Path,
			Family:   r.Family,
			Verb:     string(r.Verb),
			Schema:   r.Schema,
			Mutating: r.Mutating(),
		})
	}
	return out
}

func (d *Dispatcher) handleHealth(ctx context.Context, req *GatewayRequest) *GatewayResponse {
	if d.health == nil {
		return &GatewayResponse{ID: req.ID, Ok: true, Result: map[string]string{"status": "healthy"}}
	}
	return &GatewayResponse{ID: req.ID, Ok: true, Result: d.health(ctx)}
}

// --- helpers ---

func errorResponse(id, code, message string, retryable bool) *GatewayResponse {
	return &GatewayResponse{
		ID: id,
		Ok: false,
		Error: &ErrorDetail{
			Code:      code,
			Message:   message,
			Retryable: retryable,
		},
	}
}

func gatewayErrorToResponse(id string, err error) *GatewayResponse {
	var gwErr *openstack.GatewayError
	if errors.As(err, &gwErr) {
		retryable := gwErr.Code == openstack.CodeNetwork || gwErr.Code == openstack.CodeInternal
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			retryable = false
		}
		return errorResponse(id, gwErr.Code, gwErr.Error(), retryable)
	}
	return errorResponse(id, openstack.CodeInternal, err.Error(), true)
}
