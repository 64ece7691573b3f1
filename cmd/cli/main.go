package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/eventdesk/internal/buildinfo"
	"github.com/dmitrijs2005/eventdesk/internal/client/admin"
	"github.com/dmitrijs2005/eventdesk/internal/client/api"
	"github.com/dmitrijs2005/eventdesk/internal/client/cli"
	"github.com/dmitrijs2005/eventdesk/internal/client/config"
	"github.com/dmitrijs2005/eventdesk/internal/client/permissions"
	"github.com/dmitrijs2005/eventdesk/internal/client/session"
	"github.com/dmitrijs2005/eventdesk/internal/client/storage"
	"github.com/dmitrijs2005/eventdesk/internal/client/tickets"
	"github.com/dmitrijs2005/eventdesk/internal/filex"
	"github.com/dmitrijs2005/eventdesk/internal/logging"
	"github.com/dmitrijs2005/eventdesk/internal/metrics"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(os.Stderr, cfg.LogLevel)

	if _, err := filex.EnsureParentDir(cfg.DatabasePath); err != nil {
		return fmt.Errorf("prepare database directory: %w", err)
	}
	db, err := storage.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	repo := storage.NewSQLiteRepository(db)

	client := api.New(cfg.ServerURL, cfg.RequestTimeout, api.WithLogger(logger.With("component", "api")))

	watcher, err := session.NewStorageWatcher(ctx, repo, cfg.SyncInterval, logger.With("component", "watcher"))
	if err != nil {
		return fmt.Errorf("watch storage: %w", err)
	}
	go watcher.Run(ctx)

	store, err := session.New(ctx, repo, client,
		session.WithBus(watcher),
		session.WithLogger(logger.With("component", "session")))
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	defer store.Close()
	client.SetTokenStore(store)

	perms := permissions.New(repo, store, client,
		permissions.WithTTL(cfg.PermissionTTL),
		permissions.WithLogger(logger.With("component", "permissions")))

	status := tickets.New(repo, client,
		tickets.WithConfirmDelay(cfg.TicketConfirmDelay),
		tickets.WithLogger(logger.With("component", "tickets")))
	defer status.Close()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "metrics server stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	app := cli.NewApp(cli.Services{
		Client:      client,
		Session:     store,
		Permissions: perms,
		Tickets:     status,
		Checkout:    tickets.NewCheckout(repo, client, status, logger.With("component", "checkout")),
		Admin: admin.New(client,
			admin.WithInvalidator(perms),
			admin.WithLogger(logger.With("component", "admin"))),
		Logger: logger,
	}, os.Stdin, os.Stdout)

	app.Run(ctx)
	store.Wait()
	return nil
}
