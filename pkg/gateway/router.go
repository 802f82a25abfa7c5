package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/morezero/openstack-gateway/pkg/openstack"
)

const logPrefix = "gateway:router"

// Executor performs a single upstream call.
type Executor interface {
	Execute(ctx context.Context, req *openstack.OperationRequest) (*openstack.RawResponse, error)
}

// Endpoints holds the base URL of each family.
type Endpoints struct {
	Compute  string
	Network  string
	Image    string
	Volume   string
	TenantID string
	// Headers are sent on every call to the family, e.g. microversions.
	Headers map[Family]map[string]string
}

// BaseURL returns the base URL for f. The volume base is scoped to the tenant
// and is empty unless both the volume URL and the tenant id are set.
func (e Endpoints) BaseURL(f Family) string {
	switch f {
	case FamilyCompute:
		return e.Compute
	case FamilyNetwork:
		return e.Network
	case FamilyImage:
		return e.Image
	case FamilyVolume:
		if e.Volume == "" || e.TenantID == "" {
			return ""
		}
		return e.Volume + "/" + e.TenantID
	default:
		return ""
	}
}

// Operation is a tool call addressed to the router.
type Operation struct {
	Kind Kind           `json:"kind"`
	Path string         `json:"path"`
	ID   string         `json:"id,omitempty"`
	Body map[string]any `json:"requestBody,omitempty"`
}

// RouterParams holds parameters for NewRouter.
type RouterParams struct {
	Executor      Executor
	Endpoints     Endpoints
	SlimResponses bool
	Observer      Observer
}

// Router resolves operations through the routing table and executes them.
type Router struct {
	executor Executor
	bases    map[Family]string
	headers  map[Family]map[string]string
	slim     bool
	observer Observer
}

// NewRouter creates a new Router. Base URLs are resolved once here.
func NewRouter(params RouterParams) *Router {
	bases := make(map[Family]string, len(Families()))
	for _, f := range Families() {
		bases[f] = params.Endpoints.BaseURL(f)
	}
	observer := params.Observer
	if observer == nil {
		observer = Observers(nil)
	}
	return &Router{
		executor: params.Executor,
		bases:    bases,
		headers:  params.Endpoints.Headers,
		slim:     params.SlimResponses,
		observer: observer,
	}
}

// Prepare resolves op into its route and upstream request without performing I/O.
func (r *Router) Prepare(op Operation) (Route, *openstack.OperationRequest, error) {
	route, ok := Lookup(op.Kind, op.Path)
	if !ok {
		return Route{}, nil, openstack.NewUnroutableError(op.Path)
	}
	if op.Kind.NeedsID() && op.ID == "" {
		return route, nil, openstack.NewInvalidArgumentError(fmt.Sprintf("%s requires an id", op.Kind))
	}
	if op.Kind.NeedsBody() && op.Body == nil {
		return route, nil, openstack.NewInvalidArgumentError(fmt.Sprintf("%s requires a requestBody", op.Kind))
	}

	base := r.bases[route.Family]
	if base == "" {
		return route, nil, openstack.NewConfigurationError(fmt.Sprintf("%s base URL is not defined", route.Family))
	}

	path := route.UpstreamPath(op.ID)
	var req *openstack.OperationRequest
	switch route.Verb {
	case openstack.VerbGet:
		req = openstack.NewGet(base, path)
	case openstack.VerbDelete:
		req = openstack.NewDelete(base, path)
	case openstack.VerbPost:
		req = openstack.NewPost(base, path, op.Body)
	case openstack.VerbPut:
		req = openstack.NewPut(base, path, op.Body)
	default:
		return route, nil, openstack.NewGatewayError(openstack.CodeInternal, fmt.Sprintf("route %s %s has no verb", op.Kind, op.Path))
	}
	return route, req.WithHeader(r.headers[route.Family]), nil
}

// Route executes op and renders the upstream response. Upstream error statuses
// are rendered like any other response; only failures to obtain a response
// are returned as errors.
func (r *Router) Route(ctx context.Context, op Operation) (string, error) {
	inv := Invocation{
		ID:         uuid.New(),
		Kind:       op.Kind,
		Path:       op.Path,
		ResourceID: op.ID,
		Started:    time.Now(),
	}

	out, err := r.route(ctx, op, &inv)

	inv.Duration = time.Since(inv.Started)
	if err != nil {
		inv.ErrCode = openstack.CodeOf(err)
		inv.ErrMsg = err.Error()
		slog.Warn(fmt.Sprintf("%s - %s %s failed: code=%s", logPrefix, op.Kind, op.Path, inv.ErrCode))
	} else {
		slog.Info(fmt.Sprintf("%s - %s %s %s -> %d (%s)", logPrefix, op.Kind, inv.Verb, op.Path, inv.Status, inv.Duration))
	}
	r.observer.Observe(ctx, inv)
	return out, err
}

func (r *Router) route(ctx context.Context, op Operation, inv *Invocation) (string, error) {
	route, req, err := r.Prepare(op)
	if route.Kind != "" {
		inv.Family = route.Family
		inv.Resource = route.Resource
		inv.Verb = route.Verb
		inv.Mutating = route.Mutating()
	}
	if err != nil {
		return "", err
	}

	raw, err := r.executor.Execute(ctx, req)
	if err != nil {
		return "", err
	}
	inv.Status = raw.StatusCode

	format := openstack.FormatResponse
	if r.slim {
		format = route.Slim.Formatter()
	}
	return format(raw)
}

// HealthOutput reports which families can be called.
type HealthOutput struct {
	Status    string          `json:"status"`
	Families  map[string]bool `json:"families"`
	Routes    int             `json:"routes"`
	Timestamp string          `json:"timestamp"`
}

// Health reports the configuration state of every family. It performs no I/O.
func (r *Router) Health() *HealthOutput {
	families := make(map[string]bool, len(r.bases))
	status := "healthy"
	for _, f := range Families() {
		ok := r.bases[f] != ""
		families[string(f)] = ok
		if !ok {
			status = "degraded"
		}
	}
	return &HealthOutput{
		Status:    status,
		Families:  families,
		Routes:    len(routes),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
