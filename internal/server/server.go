// Package server orchestrates all components: NATS client, audit DB, gateway, dispatcher, HTTP health.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	comms "github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/morezero/openstack-gateway/internal/config"
	"github.com/morezero/openstack-gateway/pkg/catalog"
	"github.com/morezero/openstack-gateway/pkg/commsutil"
	"github.com/morezero/openstack-gateway/pkg/dispatcher"
	"github.com/morezero/openstack-gateway/pkg/events"
	"github.com/morezero/openstack-gateway/pkg/gateway"
	"github.com/morezero/openstack-gateway/pkg/mcpserver"
	"github.com/morezero/openstack-gateway/pkg/metrics"
)

const logPrefix = "server:server"

const shutdownTimeout = 10 * time.Second

// Run starts the NATS and HTTP server, blocks until a shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	SetupLogging(cfg.LogLevel, os.Stdout)
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting openstack-gateway", logPrefix))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Step 1: Connect to NATS
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to NATS: %w", logPrefix, err)
	}
	defer nc.Drain()
	slog.Info(fmt.Sprintf("%s - Connected to NATS at %s", logPrefix, cfg.COMMSURL))

	// Step 2: Optional audit database
	pool, repo, recorder, err := openAudit(ctx, cfg)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	// Step 3: Observers (metrics, audit, change events)
	collector := metrics.NewCollector()
	observers := []gateway.Observer{collector}
	if recorder != nil {
		observers = append(observers, recorder)
	}

	cat, err := LoadCatalog(cfg)
	if err != nil {
		return err
	}
	if cfg.PublishEvents {
		publisher := events.NewCommsPublisher(nc, changeEventOpts(cfg, cat))
		observers = append(observers, events.NewObserver(publisher))
		slog.Info(fmt.Sprintf("%s - Publishing change events", logPrefix))
	}

	gw, err := NewGateway(NewGatewayParams{Config: cfg, Catalog: cat, Observers: observers})
	if err != nil {
		return err
	}

	s := &Server{
		cfg:     cfg,
		health:  gw.Router,
		catalog: gw.Catalog,
		comms:   nc,
		metrics: collector.Handler(),
	}
	if repo != nil {
		s.audit = repo
	}

	// Step 4: Dispatcher and subscription
	disp := dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{
		Tools:  gw.Tools,
		Health: func(ctx context.Context) interface{} { return s.Health(ctx) },
	})
	subject := gatewaySubject(cfg, gw.Catalog)
	var workers errgroup.Group
	workers.SetLimit(cfg.MaxConcurrentRequests)
	defer workers.Wait()
	sub, err := nc.Subscribe(subject, s.handleRequest(ctx, disp, &workers))
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, subject, err)
	}
	defer sub.Unsubscribe()
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, subject))

	// Step 5: HTTP server, stopped when the signal context ends
	httpServer := &http.Server{Addr: cfg.HTTPListenAddr(), Handler: s.Routes()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s - HTTP server: %w", logPrefix, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info(fmt.Sprintf("%s - Shutting down", logPrefix))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	slog.Info(fmt.Sprintf("%s - openstack-gateway is ready", logPrefix))
	err = g.Wait()
	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return err
}

// RunStdio serves the MCP protocol on stdin/stdout. Logs go to stderr.
func RunStdio() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	SetupLogging(cfg.LogLevel, os.Stderr)
	if err := cfg.ValidateMicroversions(); err != nil {
		return err
	}

	ctx := context.Background()
	pool, _, recorder, err := openAudit(ctx, cfg)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}
	var observers []gateway.Observer
	if recorder != nil {
		observers = append(observers, recorder)
	}

	gw, err := NewGateway(NewGatewayParams{Config: cfg, Observers: observers})
	if err != nil {
		return err
	}
	srv, err := mcpserver.NewServer(mcpserver.ServerParams{Handler: gw.Tools, Catalog: gw.Catalog})
	if err != nil {
		return err
	}
	return srv.ServeStdio()
}

// gatewaySubject picks GATEWAY_SUBJECT, then the catalog subject, then the default.
func gatewaySubject(cfg *config.Config, cat *catalog.ResolvedCatalog) string {
	if cfg.GatewaySubject != "" {
		return cfg.GatewaySubject
	}
	if cat != nil && cat.Catalog().GatewaySubject != "" {
		return cat.Catalog().GatewaySubject
	}
	return commsutil.SubjectGateway
}

// changeEventOpts derives publisher subjects from config and catalog.
func changeEventOpts(cfg *config.Config, cat *catalog.ResolvedCatalog) *events.CommsPublisherOpts {
	opts := &events.CommsPublisherOpts{}
	if cat != nil {
		subjects := cat.Catalog().ChangeEvents
		opts.GlobalChangeSubject = subjects.Global
		if subjects.Pattern != "" {
			opts.Subject = func(family, resource string) string {
				return subjects.Subject(family, commsutil.Token(resource))
			}
		}
	}
	if cfg.ChangeEventSubject != "" {
		opts.GlobalChangeSubject = cfg.ChangeEventSubject
	}
	return opts
}

// handleRequest decodes a gateway request and dispatches it on workers, so a slow
// upstream call does not hold up the subscription. The per-request timeout starts
// when the message arrives; when every worker slot is busy the callback waits.
func (s *Server) handleRequest(ctx context.Context, disp *dispatcher.Dispatcher, workers *errgroup.Group) comms.MsgHandler {
	timeout := s.cfg.RequestTimeout
	return func(msg *comms.Msg) {
		var req dispatcher.GatewayRequest
		if err := commsutil.DecodePayload(msg.Data, &req); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to decode request: %v", logPrefix, err))
			resp := &dispatcher.GatewayResponse{
				Ok: false,
				Error: &dispatcher.ErrorDetail{
					Code:    dispatcher.CodeInvalidRequest,
					Message: "Failed to decode request",
				},
			}
			if err := commsutil.Respond(msg, resp); err != nil {
				slog.Error(fmt.Sprintf("%s - failed to respond: %v", logPrefix, err))
			}
			return
		}

		reqCtx, cancel := dispatcher.RequestContext(ctx, &req, timeout)
		workers.Go(func() error {
			defer cancel()
			resp := disp.Dispatch(reqCtx, &req)
			if err := commsutil.Respond(msg, resp); err != nil {
				slog.Error(fmt.Sprintf("%s - failed to respond to %s: %v", logPrefix, req.Method, err))
			}
			return nil
		})
	}
}
