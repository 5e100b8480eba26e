package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/taskpulse/internal/analytics"
	"github.com/teemow/taskpulse/internal/api"
	"github.com/teemow/taskpulse/internal/auth"
	"github.com/teemow/taskpulse/internal/config"
	"github.com/teemow/taskpulse/internal/instrumentation"
	"github.com/teemow/taskpulse/internal/logging"
	"github.com/teemow/taskpulse/internal/session"
	"github.com/teemow/taskpulse/internal/tasks"
)

// errNotLoggedIn is returned by commands that need a session when none is stored.
var errNotLoggedIn = errors.New("not logged in, run `taskpulse login` first")

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	apiURL       string
	sessionStore string
	sessionDir   string
	valkeyURL    string
	logLevel     string
	logFormat    string
	debug        bool
}

var globals globalOptions

func addGlobalFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&globals.apiURL, "api-url", config.DefaultAPIURL, "Base URL of the task API. Can also use TASKPULSE_API_URL env var.")
	f.StringVar(&globals.sessionStore, "session-store", config.StoreFile, "Where to keep the session: file, memory or valkey. Can also use TASKPULSE_SESSION_STORE env var.")
	f.StringVar(&globals.sessionDir, "session-dir", "", "Directory of the session file (default: user cache dir). Can also use TASKPULSE_SESSION_DIR env var.")
	f.StringVar(&globals.valkeyURL, "valkey-url", "", "Valkey server address for the valkey session store (e.g., localhost:6379). Can also use TASKPULSE_VALKEY_URL env var.")
	f.StringVar(&globals.logLevel, "log-level", "info", "Log level: debug, info, warn or error. Can also use TASKPULSE_LOG_LEVEL env var.")
	f.StringVar(&globals.logFormat, "log-format", "text", "Log format: text or json. Can also use TASKPULSE_LOG_FORMAT env var.")
	f.BoolVar(&globals.debug, "debug", false, "Enable debug logging")
}

// loadConfig layers flags the user set explicitly over .env and the environment.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIURL = globals.apiURL
	}
	if flags.Changed("session-store") {
		cfg.SessionStore = globals.sessionStore
	}
	if flags.Changed("session-dir") {
		cfg.SessionDir = globals.sessionDir
	}
	if flags.Changed("valkey-url") {
		cfg.Valkey.URL = globals.valkeyURL
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = globals.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = globals.logFormat
	}
	if globals.debug {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// quietLogLevel keeps interactive commands from printing info logs unless
// a level was asked for.
func quietLogLevel(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("log-level") || globals.debug || os.Getenv("TASKPULSE_LOG_LEVEL") != "" {
		return
	}
	cfg.LogLevel = "warn"
}

// app wires configuration, session storage and API clients for one command run.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	provider *instrumentation.Provider
	sessions *session.Manager
	auth     *auth.Client
	tasks    *tasks.Client
	engine   *analytics.Engine
	closers  []func()
}

// appOptions controls what newApp sets up.
type appOptions struct {
	// telemetry enables the instrumentation provider from its environment
	telemetry bool
	// quiet lowers the default log level to warn
	quiet bool
}

func newApp(ctx context.Context, cmd *cobra.Command, opts appOptions) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if opts.quiet {
		quietLogLevel(cmd, &cfg)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}

	instrConfig := instrumentation.Config{Enabled: false}
	if opts.telemetry {
		instrConfig = instrumentation.DefaultConfig()
		instrConfig.ServiceVersion = version
	}
	a.provider, err = instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := a.provider.Shutdown(context.Background()); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	})
	metrics := a.provider.Metrics()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	apiOpts := []api.Option{
		api.WithMetrics(metrics),
		api.WithLogger(logger),
		api.WithUserAgent("taskpulse/" + version),
	}

	// Login and refresh go out without the session transport so a
	// rejected refresh never triggers another refresh.
	plain := api.NewClient(cfg.APIURL, &http.Client{Timeout: cfg.HTTPTimeout}, apiOpts...)

	a.sessions = session.NewManager(store, session.NewHTTPRefresher(plain),
		session.WithLogger(logger),
		session.WithMetrics(metrics),
		session.WithRefreshTimeout(cfg.RefreshTimeout),
		session.WithCoalescedRefresh(cfg.CoalesceRefresh),
		session.WithOnSessionExpired(func(err error) {
			logger.Warn("session expired, login required", logging.Err(err))
		}),
	)

	authed := api.NewClient(cfg.APIURL, &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: &session.Transport{Sessions: a.sessions},
	}, apiOpts...)

	a.auth = auth.NewClient(plain, a.sessions, auth.WithMetrics(metrics), auth.WithLogger(logger))
	a.tasks = tasks.NewClient(authed, tasks.WithLogger(logger), tasks.WithBulkConcurrency(cfg.BulkConcurrency))
	a.engine = analytics.NewEngine()

	return a, nil
}

// openStore builds the configured session store and its close function.
func openStore(cfg config.Config) (session.Store, func(), error) {
	switch cfg.SessionStore {
	case config.StoreMemory:
		return session.NewMemoryStore(), func() {}, nil
	case config.StoreValkey:
		store, err := session.NewValkeyStore(session.ValkeyConfig{
			Addr:       cfg.Valkey.URL,
			Password:   cfg.Valkey.Password,
			DB:         cfg.Valkey.DB,
			TLSEnabled: cfg.Valkey.TLSEnabled,
			KeyPrefix:  cfg.Valkey.KeyPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return session.NewFileStore(cfg.SessionDir), func() {}, nil
	}
}

// requireSession fails fast when there is nothing to authorize requests with.
func (a *app) requireSession(ctx context.Context) error {
	state, err := a.sessions.State(ctx)
	if err != nil {
		return err
	}
	if state == session.StateNoSession {
		return errNotLoggedIn
	}
	return nil
}

// Close releases everything newApp opened, in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// withApp runs fn with a quiet app that needs no telemetry.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cmd, appOptions{quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
