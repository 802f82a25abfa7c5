// Package mcpserver exposes the gateway tools and prompts over MCP stdio.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/morezero/openstack-gateway/pkg/catalog"
	"github.com/morezero/openstack-gateway/pkg/gateway"
	"github.com/morezero/openstack-gateway/pkg/tools"
)

const logPrefix = "mcpserver:server"

// ToolHandler is the tool boundary the server dispatches to.
type ToolHandler interface {
	Invoke(ctx context.Context, kind gateway.Kind, args map[string]any) string
	Prompt(name string, args map[string]string) (string, error)
}

// ServerParams holds parameters for NewServer.
type ServerParams struct {
	Handler ToolHandler
	Catalog *catalog.ResolvedCatalog
}

// Server wraps the MCP server.
type Server struct {
	mcpServer *server.MCPServer
	handler   ToolHandler
	catalog   *catalog.ResolvedCatalog
}

// NewServer creates a server with every tool kind and every catalog prompt registered.
func NewServer(params ServerParams) (*Server, error) {
	if params.Handler == nil {
		return nil, fmt.Errorf("%s - handler is required", logPrefix)
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("%s - catalog is required", logPrefix)
	}

	cat := params.Catalog.Catalog()
	s := &Server{
		mcpServer: server.NewMCPServer(
			cat.Name,
			cat.Version,
			server.WithToolCapabilities(false),
			server.WithPromptCapabilities(false),
		),
		handler: params.Handler,
		catalog: params.Catalog,
	}

	if err := s.registerTools(); err != nil {
		return nil, err
	}
	s.registerPrompts()
	return s, nil
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() error {
	for _, kind := range gateway.Kinds() {
		raw, err := RawInputSchema(kind)
		if err != nil {
			return err
		}
		s.mcpServer.AddTool(mcp.Tool{
			Name:           string(kind),
			Description:    s.toolDescription(kind),
			RawInputSchema: raw,
		}, s.toolHandler(kind))
	}
	return nil
}

// toolDescription joins the catalog description with the per-path notes.
func (s *Server) toolDescription(kind gateway.Kind) string {
	entry := s.catalog.Tool(string(kind))
	if entry == nil {
		return string(kind)
	}
	desc := strings.TrimSpace(entry.Description)
	if len(entry.Paths) == 0 {
		return desc
	}

	var b strings.Builder
	b.WriteString(desc)
	b.WriteString("\n\nPaths:")
	seen := make(map[string]bool, len(entry.Paths))
	for _, p := range gateway.Paths(kind) {
		if note, ok := entry.Paths[p]; ok {
			fmt.Fprintf(&b, "\n- %s: %s", p, note)
			seen[p] = true
		}
	}
	extra := make([]string, 0)
	for p := range entry.Paths {
		if !seen[p] {
			extra = append(extra, p)
		}
	}
	sort.Strings(extra)
	for _, p := range extra {
		fmt.Fprintf(&b, "\n- %s: %s", p, entry.Paths[p])
	}
	return b.String()
}

func (s *Server) toolHandler(kind gateway.Kind) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text := s.handler.Invoke(ctx, kind, request.GetArguments())
		return mcp.NewToolResultText(text), nil
	}
}

func (s *Server) registerPrompts() {
	for _, p := range s.catalog.Prompts() {
		opts := []mcp.PromptOption{mcp.WithPromptDescription(strings.TrimSpace(p.Description))}
		for _, a := range p.Arguments {
			argOpts := []mcp.ArgumentOption{mcp.ArgumentDescription(a.Description)}
			if a.Required {
				argOpts = append(argOpts, mcp.RequiredArgument())
			}
			opts = append(opts, mcp.WithArgument(a.Name, argOpts...))
		}
		s.mcpServer.AddPrompt(mcp.NewPrompt(p.Name, opts...), s.promptHandler(p.Name))
	}
}

func (s *Server) promptHandler(name string) server.PromptHandlerFunc {
	return func(_ context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		text, err := s.handler.Prompt(name, request.Params.Arguments)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - prompt %s rejected: %v", logPrefix, name, err))
			return nil, err
		}
		return &mcp.GetPromptResult{
			Messages: []mcp.PromptMessage{
				{Role: mcp.RoleUser, Content: mcp.NewTextContent(text)},
			},
		}, nil
	}
}

// ServeStdio serves the protocol on stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	cat := s.catalog.Catalog()
	slog.Info(fmt.Sprintf("%s - Serving %s v%s on stdio", logPrefix, cat.Name, cat.Version))
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("%s - stdio server: %w", logPrefix, err)
	}
	return nil
}

var _ ToolHandler = (*tools.Handler)(nil)
