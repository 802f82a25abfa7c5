// Package tools is the boundary between tool protocols and the router. It is
// the only place where failures become "Error: ..." strings.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/morezero/openstack-gateway/pkg/catalog"
	"github.com/morezero/openstack-gateway/pkg/gateway"
	"github.com/morezero/openstack-gateway/pkg/openstack"
	"github.com/morezero/openstack-gateway/pkg/schema"
)

const logPrefix = "tools:handler"

// UnexpectedError is returned when a call fails with something other than an error value.
const UnexpectedError = "Unexpected error occurred"

// Router routes a decoded operation.
type Router interface {
	Route(ctx context.Context, op gateway.Operation) (string, error)
}

// Validator checks a document against a named contract.
type Validator interface {
	Validate(name string, doc any) error
}

// HandlerParams holds parameters for NewHandler.
type HandlerParams struct {
	Router    Router
	Validator Validator
	Catalog   *catalog.ResolvedCatalog
}

// Handler decodes tool calls, validates bodies and routes them.
type Handler struct {
	router    Router
	validator Validator
	catalog   *catalog.ResolvedCatalog
}

// NewHandler creates a new Handler. A nil Validator disables body validation.
func NewHandler(params HandlerParams) *Handler {
	return &Handler{
		router:    params.Router,
		validator: params.Validator,
		catalog:   params.Catalog,
	}
}

// Call decodes args for kind, validates the request body against the route's
// contract and routes the operation.
func (h *Handler) Call(ctx context.Context, kind gateway.Kind, args map[string]any) (string, error) {
	op, err := gateway.DecodeArguments(kind, args)
	if err != nil {
		return "", err
	}
	if err := h.validateBody(op); err != nil {
		return "", err
	}
	return h.router.Route(ctx, op)
}

func (h *Handler) validateBody(op gateway.Operation) error {
	if h.validator == nil || !op.Kind.NeedsBody() {
		return nil
	}
	route, ok := gateway.Lookup(op.Kind, op.Path)
	if !ok || route.Schema == "" {
		return nil
	}
	if err := h.validator.Validate(route.Schema, op.Body); err != nil {
		var vErr *schema.ValidationError
		if errors.As(err, &vErr) {
			return &openstack.GatewayError{Code: openstack.CodeInvalidArgument, Message: vErr.Error()}
		}
		return &openstack.GatewayError{Code: openstack.CodeInternal, Message: "body validation failed", Err: err}
	}
	return nil
}

// Invoke is Call with the failure converted to text. It never panics and never
// returns an empty result for a failed call.
func (h *Handler) Invoke(ctx context.Context, kind gateway.Kind, args map[string]any) (out string) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error(fmt.Sprintf("%s - recovered from panic in %s: %v", logPrefix, kind, rec))
			out = Recovered(rec)
		}
	}()
	return Envelope(h.Call(ctx, kind, args))
}

// Envelope renders the result of a call: out on success, "Error: <message>" on failure.
func Envelope(out string, err error) string {
	if err != nil {
		return "Error: " + err.Error()
	}
	return out
}

// Recovered renders a recovered panic value.
func Recovered(rec any) string {
	if err, ok := rec.(error); ok {
		return "Error: " + err.Error()
	}
	return UnexpectedError
}

// Prompt renders the named prompt after validating its arguments.
func (h *Handler) Prompt(name string, args map[string]string) (string, error) {
	if h.catalog == nil {
		return "", openstack.NewConfigurationError("catalog is not loaded")
	}
	prompt := h.catalog.Prompt(name)
	if prompt == nil {
		return "", openstack.NewInvalidArgumentError(fmt.Sprintf("unknown prompt: %s", name))
	}
	for _, a := range prompt.Arguments {
		value, ok := args[a.Name]
		if !ok {
			if a.Required {
				return "", openstack.NewInvalidArgumentError(fmt.Sprintf("%s is required", a.Name))
			}
			continue
		}
		if a.Schema == "" || h.validator == nil {
			continue
		}
		if err := h.validator.Validate(a.Schema, value); err != nil {
			return "", openstack.NewInvalidArgumentError(fmt.Sprintf("%s does not satisfy %s", a.Name, a.Schema))
		}
	}
	text, err := prompt.Render(args)
	if err != nil {
		return "", &openstack.GatewayError{Code: openstack.CodeInternal, Message: "failed to render prompt", Err: err}
	}
	return text, nil
}
