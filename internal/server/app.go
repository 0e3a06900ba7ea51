// Package server wires storage, the auth strategy and both transports into
// a runnable application.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
	"github.com/dmitrijs2005/gatekeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/gatekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/dmitrijs2005/gatekeeper/internal/server/sessions"

	gs "github.com/dmitrijs2005/gatekeeper/internal/server/grpc"
)

const metricsNamespace = "gatekeeper"

type purger interface {
	Purge(ctx context.Context) (int, error)
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	stores  *Stores
	metrics *metrics.Metrics
	auth    auth.Authenticator
	users   *services.UserService
}

// NewLogger builds the JSON server logger at the configured level.
func NewLogger(c *config.Config) logging.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return logging.NewJSON(os.Stdout, level)
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	stores, err := OpenStores(ctx, c.Storage, logger)
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if c.MetricsEnabled {
		m = metrics.New(metricsNamespace)
		m.TrackTable(metricsNamespace, models.KindUser, stores.Users.Count)
		m.TrackTable(metricsNamespace, models.KindUserSession, stores.Sessions.Count)
	}

	opts := []sessions.Option{sessions.WithLogger(logger)}
	if c.AuthType == auth.TypeSessionDB {
		opts = append(opts, sessions.WithBackend(sessions.NewStored(stores.Sessions)))
	}
	registry := sessions.NewRegistry(opts...)

	a, err := auth.New(auth.Settings{
		Type:            c.AuthType,
		SessionName:     c.SessionName,
		SessionDuration: c.SessionDuration,
		TokenSecret:     c.TokenSecret,
		TokenValidity:   c.TokenValidity,
	}, auth.Deps{Users: stores.Users, Sessions: registry})
	if err != nil {
		_ = stores.Close()
		return nil, err
	}

	return &App{
		config:  c,
		logger:  logger,
		stores:  stores,
		metrics: m,
		auth:    a,
		users:   services.NewUserService(stores.Users, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	api := httpapi.New(httpapi.Deps{
		Auth:          app.auth,
		Users:         app.users,
		Metrics:       app.metrics,
		Logger:        app.logger.With("module", "http_server"),
		ExcludedPaths: app.config.ExcludedPaths,
		SecureCookies: app.config.SecureCookies,
	})
	srv := &http.Server{Addr: app.config.HTTPAddr, Handler: api.Handler(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		app.logger.Info(ctx, "Stopping HTTP server...")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr, "auth_type", app.auth.Name())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, gs.Deps{
		Auth:    app.auth,
		Users:   app.users,
		Metrics: app.metrics,
		Logger:  app.logger,
	})

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// purgeSessions removes expired sessions every interval while the strategy
// supports it.
func (app *App) purgeSessions(ctx context.Context, p purger) {
	interval := app.config.PurgeInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.Purge(ctx)
			if err != nil {
				app.logger.Error(ctx, "session purge failed", "error", err)
				continue
			}
			if n > 0 {
				app.metrics.ObserveSession("purged")
				app.logger.Info(ctx, "expired sessions purged", "count", n)
			}
		}
	}
}

// Run serves until ctx is cancelled or a signal arrives, then saves every
// table and closes storage.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if p, ok := app.auth.(purger); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.purgeSessions(ctx, p)
		}()
	}

	wg.Wait()

	app.logger.Info(context.Background(), "Saving tables...")
	saveErr := app.stores.SaveAll(context.Background())
	if saveErr != nil {
		app.logger.Error(context.Background(), "save failed", "error", saveErr)
	}
	return errors.Join(saveErr, app.stores.Close())
}
