package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/morezero/openstack-gateway/internal/config"
	"github.com/morezero/openstack-gateway/pkg/catalog"
	"github.com/morezero/openstack-gateway/pkg/db"
	"github.com/morezero/openstack-gateway/pkg/gateway"
	"github.com/morezero/openstack-gateway/pkg/mcpserver"
)

// Health statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const recentInvocations = 25

type healthSource interface {
	Health() *gateway.HealthOutput
}

type auditStore interface {
	Ping(ctx context.Context) error
	ListInvocations(ctx context.Context, params db.ListInvocationsParams) ([]db.InvocationRecord, int, error)
	CountByOutcome(ctx context.Context) ([]db.OutcomeCount, error)
}

type commsConn interface {
	IsConnected() bool
}

// Server serves the HTTP surface of the gateway.
type Server struct {
	cfg     *config.Config
	health  healthSource
	catalog *catalog.ResolvedCatalog
	// audit is nil when DATABASE_URL is unset.
	audit   auditStore
	comms   commsConn
	metrics http.Handler
}

// HealthChecks reports dependency checks. Nil means the dependency is not used.
type HealthChecks struct {
	Comms    *bool `json:"comms,omitempty"`
	Database *bool `json:"database,omitempty"`
}

// HealthReport is the /health payload.
type HealthReport struct {
	Status    string          `json:"status"`
	Families  map[string]bool `json:"families"`
	Routes    int             `json:"routes"`
	Checks    HealthChecks    `json:"checks"`
	Timestamp string          `json:"timestamp"`
}

// Health combines family configuration with COMMS and database checks. A
// failed dependency makes the gateway unhealthy; an unconfigured family only
// degrades it.
func (s *Server) Health(ctx context.Context) *HealthReport {
	h := s.health.Health()
	report := &HealthReport{
		Status:    h.Status,
		Families:  h.Families,
		Routes:    h.Routes,
		Timestamp: h.Timestamp,
	}
	if s.comms != nil {
		ok := s.comms.IsConnected()
		report.Checks.Comms = &ok
		if !ok {
			report.Status = StatusUnhealthy
		}
	}
	if s.audit != nil {
		ok := s.audit.Ping(ctx) == nil
		report.Checks.Database = &ok
		if !ok {
			report.Status = StatusUnhealthy
		}
	}
	return report
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome())
	mux.HandleFunc("/tool/", s.handleToolDetail())
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", handleReady)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
	defer cancel()
	h := s.Health(ctx)
	w.Header().Set("Content-Type", "application/json")
	if h.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(h)
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// homePageTemplate is the HTML for the gateway home page (white bg, black/blue text).
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Name}}</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    a { color: #0066cc; }
    h1, h2, h3 { color: #0066cc; }
    .status-healthy { color: #0066cc; font-weight: bold; }
    .status-degraded { color: #b36b00; font-weight: bold; }
    .status-unhealthy { color: #cc0000; font-weight: bold; }
    table { border-collapse: collapse; width: 100%; max-width: 1100px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; }
    th { background: #f0f4f8; color: #0066cc; }
    .stat { font-weight: bold; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    section { margin-bottom: 2rem; }
    .error { color: #cc0000; }
  </style>
</head>
<body>
  <h1>{{.Name}} <small>v{{.Version}}</small></h1>
  {{if .Description}}<p class="meta">{{.Description}}</p>{{end}}

  <section>
    <h2>Health</h2>
    <p>Status: <span class="status-{{.Health.Status}}">{{.Health.Status}}</span></p>
    <table>
      <thead><tr><th>Family</th><th>Configured</th></tr></thead>
      <tbody>
        {{range $family, $ok := .Health.Families}}
        <tr><td>{{$family}}</td><td>{{if $ok}}<span class="stat">yes</span>{{else}}<span class="error">no</span>{{end}}</td></tr>
        {{end}}
      </tbody>
    </table>
    {{with .Comms}}<p>COMMS: {{if eq . "ok"}}<span class="stat">OK</span>{{else}}<span class="error">Disconnected</span>{{end}}</p>{{end}}
    {{with .Database}}<p>Database: {{if eq . "ok"}}<span class="stat">OK</span>{{else}}<span class="error">Failed</span>{{end}}</p>{{end}}
    <p>Timestamp: {{.Health.Timestamp}}</p>
  </section>

  <section>
    <h2>Operations</h2>
    <p>Total routes: <span class="stat">{{len .Routes}}</span></p>
    <table>
      <thead>
        <tr><th>Tool</th><th>Path</th><th>Family</th><th>Verb</th><th>Body</th><th>Mutating</th></tr>
      </thead>
      <tbody>
        {{range .Routes}}
        <tr>
          <td><a href="/tool/{{.Kind}}">{{.Kind}}</a></td>
          <td>{{.Path}}</td>
          <td>{{.Family}}</td>
          <td>{{.Verb}}</td>
          <td>{{.Schema}}</td>
          <td>{{if .Mutating}}yes{{end}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
  </section>

  <section>
    <h2>Recent invocations</h2>
    {{if not .AuditEnabled}}
    <p class="meta">Audit log disabled (DATABASE_URL not set).</p>
    {{else if .AuditError}}
    <p class="error">Could not load invocations: {{.AuditError}}</p>
    {{else}}
    <p>Total recorded: <span class="stat">{{.Total}}</span>{{range .Counts}} · {{.Family}}/{{.Outcome}}: {{.Count}}{{end}}</p>
    {{if not .Invocations}}
    <p>No invocations recorded.</p>
    {{else}}
    <table>
      <thead>
        <tr><th>Started</th><th>Tool</th><th>Path</th><th>Status</th><th>Outcome</th><th>Duration (ms)</th><th>Error</th></tr>
      </thead>
      <tbody>
        {{range .Invocations}}
        <tr>
          <td>{{.Started.Format "2006-01-02 15:04:05"}}</td>
          <td>{{.Kind}}</td>
          <td>{{.Path}}</td>
          <td>{{if .Status}}{{.Status}}{{end}}</td>
          <td>{{.Outcome}}</td>
          <td>{{.DurationMs}}</td>
          <td>{{with .ErrorCode}}{{.}}{{end}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
    {{end}}
  </section>
</body>
</html>
`

// routeRow is one row of the operations table.
type routeRow struct {
	Kind     gateway.Kind
	Path     string
	Family   gateway.Family
	Verb     string
	Schema   string
	Mutating bool
}

// homeData is the data passed to the home page template.
type homeData struct {
	Name         string
	Version      string
	Description  string
	Health       *HealthReport
	Comms        string
	Database     string
	Routes       []routeRow
	AuditEnabled bool
	AuditError   string
	Total        int
	Counts       []db.OutcomeCount
	Invocations  []db.InvocationRecord
}

func routeRows() []routeRow {
	routes := gateway.Routes()
	rows := make([]routeRow, 0, len(routes))
	for _, r := range routes {
		rows = append(rows, routeRow{
			Kind:     r.Kind,
			Path:     r.Path,
			Family:   r.Family,
			Verb:     string(r.Verb),
			Schema:   r.Schema,
			Mutating: r.Mutating(),
		})
	}
	return rows
}

// checkLabel renders a dependency check for the home page: "" when unused.
func checkLabel(ok *bool) string {
	switch {
	case ok == nil:
		return ""
	case *ok:
		return "ok"
	default:
		return "failed"
	}
}

// handleHome returns an HTTP handler for the gateway home page.
func (s *Server) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		cat := s.catalog.Catalog()
		data := homeData{
			Name:         cat.Name,
			Version:      cat.Version,
			Description:  cat.Description,
			Health:       s.Health(ctx),
			Routes:       routeRows(),
			AuditEnabled: s.audit != nil,
		}
		data.Comms = checkLabel(data.Health.Checks.Comms)
		data.Database = checkLabel(data.Health.Checks.Database)

		if s.audit != nil {
			invocations, total, err := s.audit.ListInvocations(ctx, db.ListInvocationsParams{Page: 1, Limit: recentInvocations})
			if err == nil {
				data.Counts, err = s.audit.CountByOutcome(ctx)
			}
			if err != nil {
				data.AuditError = err.Error()
			} else {
				data.Invocations = invocations
				data.Total = total
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

// toolDetailPageTemplate is the HTML for a single tool page.
const toolDetailPageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Kind}} – {{.Name}}</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    a { color: #0066cc; }
    h1, h2, h3 { color: #0066cc; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; vertical-align: top; }
    th { background: #f0f4f8; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 0.5rem; white-space: pre-line; }
    section { margin-bottom: 2rem; }
    pre { background: #f5f5f5; padding: 0.75rem; overflow-x: auto; font-size: 0.85rem; margin: 0.25rem 0; border: 1px solid #eee; }
    .back { margin-bottom: 1rem; }
    .actions { margin: 1rem 0; }
    .btn { display: inline-block; padding: 0.5rem 1rem; background: #0066cc; color: #fff; text-decoration: none; border-radius: 4px; }
    .btn:hover { background: #0052a3; }
  </style>
</head>
<body>
  <p class="back"><a href="/">← Back to gateway</a></p>
  <h1>{{.Kind}}</h1>
  {{if .Description}}<p class="meta">{{.Description}}</p>{{end}}
  <p class="actions"><a href="/tool/{{.Kind}}/docs" class="btn">View API (Swagger)</a></p>

  <section>
    <h2>Paths</h2>
    <table>
      <thead><tr><th>Path</th><th>Family</th><th>Verb</th><th>Body</th><th>Note</th></tr></thead>
      <tbody>
        {{range .Paths}}
        <tr><td>{{.Path}}</td><td>{{.Family}}</td><td>{{.Verb}}</td><td>{{.Schema}}</td><td>{{.Note}}</td></tr>
        {{end}}
      </tbody>
    </table>
  </section>

  <section>
    <h2>Input schema</h2>
    <pre>{{json .InputSchema}}</pre>
  </section>
</body>
</html>
`

// toolPath is one accepted path of a tool.
type toolPath struct {
	Path   string
	Family gateway.Family
	Verb   string
	Schema string
	Note   string
}

// toolDetailData is the data passed to the tool detail page template.
type toolDetailData struct {
	Name        string
	Kind        gateway.Kind
	Description string
	Paths       []toolPath
	InputSchema map[string]any
}

func (s *Server) toolDetail(kind gateway.Kind) (*toolDetailData, error) {
	input, err := mcpserver.InputSchema(kind)
	if err != nil {
		return nil, err
	}
	data := &toolDetailData{
		Name:        s.catalog.Catalog().Name,
		Kind:        kind,
		InputSchema: input,
	}
	tool := s.catalog.Tool(string(kind))
	if tool != nil {
		data.Description = strings.TrimSpace(tool.Description)
	}
	for _, p := range gateway.Paths(kind) {
		route, _ := gateway.Lookup(kind, p)
		row := toolPath{Path: p, Family: route.Family, Verb: string(route.Verb), Schema: route.Schema}
		if tool != nil {
			row.Note = tool.Paths[p]
		}
		data.Paths = append(data.Paths, row)
	}
	return data, nil
}

// swaggerUIPage is the HTML that embeds Swagger UI from CDN and loads the OpenAPI spec.
const swaggerUIPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>API – {{.Kind}}</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function() {
      SwaggerUIBundle({
        url: "{{.SpecURL}}",
        dom_id: "#swagger-ui",
        presets: [
          SwaggerUIBundle.presets.apis,
          SwaggerUIBundle.SwaggerUIStandalonePreset
        ]
      });
    };
  </script>
</body>
</html>
`

// handleToolDetail returns an HTTP handler for the tool detail page, its OpenAPI spec, and Swagger docs.
func (s *Server) handleToolDetail() http.HandlerFunc {
	tmpl := template.Must(template.New("toolDetail").Funcs(template.FuncMap{
		"json": func(v interface{}) string {
			if v == nil {
				return ""
			}
			b, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return fmt.Sprintf("%v", v)
			}
			return string(b)
		},
	}).Parse(toolDetailPageTemplate))
	swaggerTmpl := template.Must(template.New("swagger").Parse(swaggerUIPage))
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/tool/")
		if rest == "" {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		name, suffix, _ := strings.Cut(rest, "/")
		kind, ok := gateway.ParseKind(name)
		if !ok {
			http.NotFound(w, r)
			return
		}

		detail, err := s.toolDetail(kind)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		switch suffix {
		case "openapi.json":
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Cache-Control", "public, max-age=60")
			if err := json.NewEncoder(w).Encode(buildOpenAPISpec(detail, s.catalog.Catalog().Version)); err != nil {
				slog.Error(fmt.Sprintf("%s - openapi json encode: %v", logPrefix, err))
			}
			return
		case "docs":
			scheme := "https"
			if r.TLS == nil {
				scheme = "http"
			}
			specURL := scheme + "://" + r.Host + "/tool/" + url.PathEscape(string(kind)) + "/openapi.json"
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			swaggerTmpl.Execute(w, map[string]string{"Kind": string(kind), "SpecURL": specURL})
			return
		case "":
			// fall through to detail page
		default:
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, detail); err != nil {
			slog.Error(fmt.Sprintf("%s - tool detail template execute: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
