package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/monorkin/stone-hub/aps/api"
	"github.com/monorkin/stone-hub/internal/config"
	"github.com/monorkin/stone-hub/internal/selection"
	"github.com/monorkin/stone-hub/internal/server"
	"github.com/monorkin/stone-hub/internal/version"
)

const (
	APP_IDENTIFIER   = "io.stanko.stone-hub"
	SHUTDOWN_TIMEOUT = 10 * time.Second
)

type App struct {
	env         *config.Env
	settings    *config.Settings
	apiClient   *api.Client
	server      *server.WebServer
	dbusService *DBusService
	logger      *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewApp(env *config.Env, settings *config.Settings, db *gorm.DB, logger *slog.Logger) *App {
	app := &App{
		env:      env,
		settings: settings,
		logger:   logger,
	}

	app.apiClient = api.NewClientWithLogger(api.Config{
		ClientID:     env.ClientID,
		ClientSecret: env.ClientSecret,
		CallbackURL:  env.CallbackURL,
	}, logger)

	app.server = server.NewWebServer(app.apiClient, db, server.Options{
		Addr:               env.Addr(),
		SessionSecret:      env.SessionSecret,
		WWWRoot:            settings.WWWRoot,
		Shading:            settings.Heatmap,
		OnSelectionChanged: app.onSelectionChanged,
	}, logger)

	return app
}

// Run serves until ctx is done, Quit is called or the server fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	app.mu.Lock()
	app.cancel = cancel
	app.mu.Unlock()
	defer cancel()

	if app.settings.DBus {
		service, err := NewDBusService(app)
		if err != nil {
			app.logger.Warn("Failed to initialize DBUS service", "error", err)
		} else {
			app.logger.Info("DBUS service started", "name", dbusName)
			app.dbusService = service
			defer service.Close()
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(app.server.Start)

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
		defer cancel()

		return app.server.Shutdown(shutdownCtx)
	})

	if app.settings.Advertise {
		group.Go(func() error {
			err := api.Advertise(groupCtx, instanceName(), app.env.Port, []string{"version=" + version.GetVersion()}, app.logger)
			if err != nil {
				app.logger.Warn("Failed to advertise service", "error", err)
			}
			return nil
		})
	}

	err := group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	app.logger.Info("Stopped")
	return nil
}

func (app *App) Quit() {
	app.mu.Lock()
	defer app.mu.Unlock()

	if app.cancel != nil {
		app.cancel()
	}
}

func (app *App) onSelectionChanged(models []selection.Model) {
	if app.dbusService == nil {
		return
	}

	if err := app.dbusService.EmitSelectionChanged(models); err != nil {
		app.logger.Warn("Failed to emit selection update", "error", err)
	}
}

func instanceName() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "stone-hub"
	}

	return fmt.Sprintf("stone-hub on %s", hostname)
}
