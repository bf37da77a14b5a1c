// ABOUTME: Gateway orchestrator that wires storage, sessions and services behind the HTTP server
// ABOUTME: Manages the server lifecycle, health and metrics endpoints, and founder bootstrap

package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/2389/socialcore/internal/auth"
	"github.com/2389/socialcore/internal/config"
	"github.com/2389/socialcore/internal/identity"
	"github.com/2389/socialcore/internal/mail"
	"github.com/2389/socialcore/internal/metrics"
	"github.com/2389/socialcore/internal/moderation"
	"github.com/2389/socialcore/internal/passcode"
	"github.com/2389/socialcore/internal/service"
	"github.com/2389/socialcore/internal/session"
	"github.com/2389/socialcore/internal/store"
	"github.com/2389/socialcore/internal/token"
)

// Gateway owns every long-lived component of a socialcore server.
type Gateway struct {
	config     *config.Config
	store      store.Store
	records    passcode.Store
	resolver   *identity.Resolver
	service    *service.Service
	metrics    *metrics.Metrics
	httpServer *http.Server
	logger     *slog.Logger
}

// initStore opens the graph store named by config, honouring SOCIALCORE_DB_PATH.
func initStore(cfg *config.Config) (*store.SQLiteStore, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("SOCIALCORE_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.Open(cfg.Database.Driver, dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// initPasscodeStore creates the configured reset record backend.
func initPasscodeStore(ctx context.Context, cfg config.PasscodeConfig) (passcode.Store, error) {
	retention := cfg.Retention
	if retention <= 0 {
		retention = passcode.DefaultRetention
	}

	switch cfg.Backend {
	case "file":
		fs, err := passcode.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case "redis":
		rs, err := passcode.NewRedisStore(ctx, cfg.RedisURL, retention)
		if err != nil {
			return nil, err
		}
		return rs, nil
	default:
		return passcode.NewMemoryStore(retention, cfg.MaxEntries), nil
	}
}

// initSessions builds the session provider for the configured mode.
func initSessions(cfg *config.Config) (session.Provider, error) {
	keys := make([][]byte, 0, len(cfg.Session.Keys))
	for _, k := range cfg.Session.Keys {
		keys = append(keys, []byte(k))
	}
	cookies := session.NewCookieProvider(session.CookieOptions{
		Keys:   keys,
		MaxAge: cfg.Session.MaxAge,
		Secure: cfg.Session.Secure,
	})
	if cfg.Session.Mode == "cookie" {
		return cookies, nil
	}

	signer, err := session.NewJWTSigner([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating session signer: %w", err)
	}
	tokens := session.NewTokenProvider(signer)
	if cfg.Session.Mode == "token" {
		return tokens, nil
	}
	return session.Chain{Token: tokens, Cookie: cookies}, nil
}

// initResolver creates the identity resolver, enabling SSO when a key is configured.
func initResolver(cfg *config.Config, s store.IdentityStore, logger *slog.Logger) (*identity.Resolver, error) {
	opts := identity.Options{Logger: logger.With("component", "identity")}
	if cfg.SSO.TokenKey != "" {
		key, err := token.LoadKey(cfg.SSO.TokenKey)
		if err != nil {
			return nil, fmt.Errorf("loading sso key: %w", err)
		}
		codec, err := token.NewCodec(key)
		if err != nil {
			return nil, fmt.Errorf("creating sso codec: %w", err)
		}
		opts.Codec = codec
	} else {
		logger.Warn("sso.token_key not set - token signup and login are disabled")
	}
	return identity.NewResolver(s, opts), nil
}

// New creates a new Gateway instance with the given configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	sqlStore, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	gw := &Gateway{
		config: cfg,
		store:  sqlStore,
		logger: logger,
	}
	if cfg.Metrics.Enabled {
		gw.metrics = metrics.New()
	}

	if err := gw.wire(ctx); err != nil {
		_ = gw.Close()
		return nil, err
	}
	return gw, nil
}

func (g *Gateway) wire(ctx context.Context) error {
	cfg := g.config

	resolver, err := initResolver(cfg, g.store, g.logger)
	if err != nil {
		return err
	}
	g.resolver = resolver

	g.records, err = initPasscodeStore(ctx, cfg.Passcode)
	if err != nil {
		return fmt.Errorf("initializing passcode store: %w", err)
	}

	mailer, err := mail.New(mail.Config{
		Host:        cfg.Mail.Host,
		User:        cfg.Mail.User,
		Password:    cfg.Mail.Password,
		FromAddress: cfg.Mail.FromAddress,
		SkipVerify:  cfg.Mail.SkipVerify,
	}, g.logger.With("component", "mail"))
	if err != nil {
		return fmt.Errorf("initializing mailer: %w", err)
	}

	flow := passcode.NewFlow(g.records, g.store, mailer, passcode.Options{
		Validity:  cfg.Passcode.Validity,
		SingleUse: cfg.Passcode.SingleUse,
		Logger:    g.logger.With("component", "passcode"),
	})

	gate, err := auth.New(auth.Mode(cfg.Admin.Mode), cfg.Founder.Email, cfg.Founder.Password, g.store)
	if err != nil {
		return fmt.Errorf("creating admin gate: %w", err)
	}

	sessions, err := initSessions(cfg)
	if err != nil {
		return err
	}

	g.service = service.New(service.Deps{
		Identity:   resolver,
		Passcode:   flow,
		Moderation: moderation.NewEngine(g.store, g.logger.With("component", "moderation")),
		Gate:       gate,
		Metrics:    g.metrics,
		Logger:     g.logger.With("component", "service"),
	})

	api := NewAPI(g.service, sessions, g.metrics, g.logger.With("component", "api"))
	g.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           NewRouter(api, g.metrics, cfg.Metrics.Path),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// NewRouter mounts the API plus health and, when m is non-nil, metrics.
func NewRouter(api *API, m *metrics.Metrics, metricsPath string) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", handleHealth).Methods(http.MethodGet)
	if m != nil {
		r.Handle(metricsPath, m.Handler()).Methods(http.MethodGet)
	}
	api.Routes(r)
	r.Use(instrument(m))
	return r
}

// Service returns the operations facade.
func (g *Gateway) Service() *service.Service {
	return g.service
}

// EnsureFounder creates and records the founder from config when the graph has none.
func (g *Gateway) EnsureFounder(ctx context.Context) (*store.Identity, bool, error) {
	f := g.config.Founder
	if f.Email == "" {
		return nil, false, errors.New("founder.email is not configured")
	}
	return g.resolver.EnsureFounder(ctx, g.store, f.Username, f.Email, f.Password)
}

// startServer starts the HTTP server in a goroutine, returning its error channel.
func (g *Gateway) startServer(ln net.Listener) chan error {
	errCh := make(chan error, 1)

	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		return err
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	g.logger.Info("starting gateway", "http_addr", g.config.Server.HTTPAddr)

	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := g.startServer(ln)
	serverErr := g.waitForShutdownSignal(ctx, errCh)

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	if g.httpServer != nil {
		errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))
	}
	errs = appendCloseError(errs, "close", g.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// Close releases the passcode backend and the store without touching the server.
func (g *Gateway) Close() error {
	var errs []error
	if c, ok := g.records.(io.Closer); ok {
		errs = appendCloseError(errs, "passcode store close", c.Close())
	}
	errs = appendCloseError(errs, "store close", g.store.Close())
	return errors.Join(errs...)
}

// handleHealth returns 200 OK if the server is alive.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument records request counts and latency per route template.
func instrument(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tmpl, err := cur.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			m.HTTP(r.Method, route, rec.status, time.Since(start))
		})
	}
}
