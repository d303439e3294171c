// Package demo is a small protected web application exercising the library
// end to end: OAuth2 login sessions for browser traffic, bearer-token user
// resolution for API traffic, and cache metrics.
package demo

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/simpleviewinc/sv-auth-client/pkg/authclient"
	"github.com/simpleviewinc/sv-auth-client/pkg/graph"
	"github.com/simpleviewinc/sv-auth-client/pkg/httpx"
	"github.com/simpleviewinc/sv-auth-client/pkg/oauthx"
	"github.com/simpleviewinc/sv-auth-client/pkg/sessionx"
	sessionsqlite "github.com/simpleviewinc/sv-auth-client/pkg/sessionx/sqlite"
	"github.com/simpleviewinc/sv-auth-client/pkg/slogx"
)

const BuildVersion = "v0.1.0"

// Application wires the auth client library into a runnable web app.
type Application struct {
	cfg    Config
	logger *slog.Logger

	sessions   sessionx.Store
	sessionDB  *sessionsqlite.Store // set only when sessions live server side
	graph      *graph.Client
	authClient *authclient.AuthClient
	auth       *oauthx.Handler

	server *http.Server
}

// New builds the application from cfg. Construction fails on an invalid
// provider URL, a missing client id, or a missing session secret.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "authdemo",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initSessions(); err != nil {
		return nil, err
	}

	app.graph = graph.NewClient(cfg.GraphURL)

	authClient, err := authclient.New(authclient.Config{
		Directory: app.graph,
		Metrics:   authclient.NewMetrics(prometheus.DefaultRegisterer),
		Logger:    app.logger,
	})
	if err != nil {
		return nil, err
	}
	app.authClient = authClient

	auth, err := oauthx.NewHandler(oauthx.Config{
		AuthURL:  cfg.AuthURL,
		ClientID: cfg.ClientID,
		Sessions: app.sessions,
		Logger:   app.logger,
	})
	if err != nil {
		return nil, err
	}
	app.auth = auth

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	if app.sessionDB != nil {
		app.sessionDB.StartCleanup(app.cfg.SessionCleanup)
	}

	app.logger.Info("authdemo starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains the server and stops the background workers.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down authdemo...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.authClient.Close()

	if app.sessionDB != nil {
		app.sessionDB.StopCleanup()
		if err := app.sessionDB.Close(); err != nil {
			app.logger.Error("error closing session database", "error", err)
			return err
		}
	}

	app.logger.Info("authdemo stopped")
	return nil
}

// initSessions picks the session backend: server-side SQLite sessions when a
// database file is configured, encrypted cookie sessions otherwise.
func (app *Application) initSessions() error {
	if app.cfg.SessionDBFile != "" {
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.SessionDBFile)
		store, err := sessionsqlite.NewStore(dsn, app.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize session database: %w", err)
		}
		store.Secure = app.cfg.Env != "dev"

		app.sessionDB = store
		app.sessions = store
		return nil
	}

	store, err := sessionx.NewCookieStore([]byte(app.cfg.SessionSecret))
	if err != nil {
		return err
	}
	store.Secure = app.cfg.Env != "dev"

	app.sessions = store
	return nil
}

func (app *Application) initHTTP() {
	mux := http.NewServeMux()

	// login round-trip endpoints get the strict profile
	mux.Handle("GET "+oauthx.DefaultCallbackPath, httpx.Chain(
		http.HandlerFunc(app.auth.Callback),
		httpx.RateLimitByIP(httpx.StrictLimit),
	))
	mux.Handle("GET "+oauthx.DefaultLogoutPath, http.HandlerFunc(app.auth.Logout))

	// API traffic authenticates with a bearer token, not the browser session
	mux.Handle("GET /api/me", httpx.Chain(
		http.HandlerFunc(app.handleMe),
		httpx.RateLimitByIP(httpx.ModerateLimit),
		httpx.ResolveUser(app.authClient, app.acctID),
	))

	mux.Handle("GET /metrics", promhttp.Handler())

	// everything else is a browser route behind the OAuth2 session
	mux.Handle("/", app.auth.Middleware(http.HandlerFunc(app.handleHome)))

	app.server = &http.Server{
		Addr: fmt.Sprintf(":%d", app.cfg.Port),
		Handler: httpx.Chain(mux,
			slogx.HTTPMiddleware(app.logger),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
		ReadHeaderTimeout: 3 * time.Second,
	}
}

func (app *Application) acctID(*http.Request) string {
	return app.cfg.AcctID
}

func (app *Application) handleHome(w http.ResponseWriter, r *http.Request) {
	state := oauthx.StateFromContext(r.Context())

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"email":     state.Email,
		"logged_in": time.UnixMilli(state.Created).UTC(),
	})
}

func (app *Application) handleMe(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, httpx.UserFromContext(r.Context()))
}
