package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teemow/taskpulse/internal/analytics"
	"github.com/teemow/taskpulse/internal/auth"
	"github.com/teemow/taskpulse/internal/instrumentation"
	"github.com/teemow/taskpulse/internal/logging"
	"github.com/teemow/taskpulse/internal/session"
	"github.com/teemow/taskpulse/internal/tasks"
)

// Dependencies are the services a ServerContext hands to tool handlers.
type Dependencies struct {
	Tasks    *tasks.Client
	Auth     *auth.Client
	Sessions *session.Manager
	Engine   *analytics.Engine
	Metrics  *instrumentation.Metrics
	Logger   *slog.Logger
}

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	tasks    *tasks.Client
	auth     *auth.Client
	sessions *session.Manager
	engine   *analytics.Engine
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context. Tasks and Sessions are
// required; a missing Engine defaults to the local clock and zone.
func NewServerContext(ctx context.Context, deps Dependencies) (*ServerContext, error) {
	if deps.Tasks == nil {
		return nil, fmt.Errorf("task client is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if deps.Engine == nil {
		deps.Engine = analytics.NewEngine()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		tasks:    deps.Tasks,
		auth:     deps.Auth,
		sessions: deps.Sessions,
		engine:   deps.Engine,
		metrics:  deps.Metrics,
		logger:   logging.WithComponent(deps.Logger, "server"),
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Tasks returns the task API client
func (sc *ServerContext) Tasks() *tasks.Client {
	return sc.tasks
}

// Auth returns the auth client. May be nil.
func (sc *ServerContext) Auth() *auth.Client {
	return sc.auth
}

// Sessions returns the session manager
func (sc *ServerContext) Sessions() *session.Manager {
	return sc.sessions
}

// Engine returns the analytics engine
func (sc *ServerContext) Engine() *analytics.Engine {
	return sc.engine
}

// Metrics returns the metrics recorder. May be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// Logger returns the server logger
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
