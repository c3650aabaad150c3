// Package app wires configuration, the document store, domain services and
// the interactive console into a runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudchat-app/cloudchat/internal/accounts"
	"github.com/cloudchat-app/cloudchat/internal/avatars"
	"github.com/cloudchat-app/cloudchat/internal/cli"
	"github.com/cloudchat-app/cloudchat/internal/config"
	"github.com/cloudchat-app/cloudchat/internal/docstore"
	"github.com/cloudchat-app/cloudchat/internal/docstore/memstore"
	"github.com/cloudchat-app/cloudchat/internal/docstore/postgres"
	"github.com/cloudchat-app/cloudchat/internal/logging"
	"github.com/cloudchat-app/cloudchat/internal/messaging"
	"github.com/cloudchat-app/cloudchat/internal/session"
	"github.com/cloudchat-app/cloudchat/internal/social"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	console *cli.App
	closeFn func() error
}

// NewApp builds the full service graph: store backend per configuration,
// migrations and root-account bootstrap, then the domain services and the
// console on top.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	store, closeFn, err := openStore(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	accountService := accounts.NewService(store, accounts.RootConfig{
		ID:       c.RootAccountID,
		Username: c.RootUsername,
		Secret:   c.RootSecret,
	}, logger)

	if err := accountService.Bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap error: %w", err)
	}

	console := cli.NewApp(c, cli.Services{
		Accounts: accountService,
		Social:   social.NewService(store, accountService, logger),
		Channel:  messaging.NewChannel(store, logger),
		Sessions: session.NewManager(accountService, []byte(c.SecretKey), c.SessionTTL),
		Monitor:  session.NewMonitor(accountService, c.EnforceInterval, logger),
		Avatars: avatars.NewService(avatars.Config{
			RootUser:     c.S3RootUser,
			RootPassword: c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		}),
	}, logger)

	return &App{config: c, logger: logger, console: console, closeFn: closeFn}, nil
}

// openStore selects the document-store backend. The postgres backend runs
// its migrations before use; the memory backend needs none.
func openStore(ctx context.Context, c *config.Config, logger logging.Logger) (docstore.Store, func() error, error) {
	switch c.StoreBackend {
	case "postgres":
		store, err := postgres.New(c.DatabaseDSN, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := store.RunMigrations(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil
	case "memory":
		return memstore.New(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend: %q", c.StoreBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the console and blocks until it exits or a termination signal
// arrives. The store is closed on the way out.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "backend", app.config.StoreBackend)

	app.initSignalHandler(cancelFunc)

	app.console.Run(ctx)

	if err := app.closeFn(); err != nil {
		app.logger.Error(ctx, "store close error", "error", err)
	}
}
