package main

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

	"github.com/soochol/appcfg/internal/api"
	"github.com/soochol/appcfg/internal/config"
	"github.com/soochol/appcfg/internal/db"
	"github.com/soochol/appcfg/internal/events"
	"github.com/soochol/appcfg/internal/logging"
	"github.com/soochol/appcfg/internal/repository"
	"github.com/soochol/appcfg/internal/services"
	"github.com/soochol/appcfg/internal/store"
	cli "github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const feedBuffer = 64

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Serve the document editing API",
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.WithModule("serve")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	revisions, closeDB := newRevisionRepository(ctx, cfg, logger)
	defer closeDB()

	st := store.New(nil)
	docs := services.NewDocumentService(st, revisions, cfg.Document.Path, cfg.Document.SchemaCheck)
	if err := docs.Open(); err != nil {
		return err
	}

	feed := events.NewFeed(logging.WithModule("events"), feedBuffer)
	defer func() {
		if err := feed.Close(); err != nil {
			logger.Error("close event feed", "err", err)
		}
	}()
	detach := feed.Attach(st)
	defer detach()

	srv := api.NewServer(docs, feed)
	srv.SetCORSOrigins(cfg.Server.CORSOrigins)
	if cfg.Auth.JWTSecret != "" {
		srv.SetAuthenticator(api.NewAuthenticator(cfg.Auth.JWTSecret))
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting appcfg server", "addr", httpSrv.Addr, "document", cfg.Document.Path)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if cfg.Autosave.Schedule != "" {
		auto := services.NewAutosaveService(docs)
		if err := auto.Start(gctx, cfg.Autosave.Schedule); err != nil {
			stop()
			g.Wait()
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			auto.Stop()
			return nil
		})
	}

	return g.Wait()
}

// newRevisionRepository keeps revisions in memory, backed by PostgreSQL when
// a database URL is configured and reachable.
func newRevisionRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.RevisionRepository, func()) {
	mem := repository.NewMemoryRevisionRepository()
	if cfg.Database.URL == "" {
		return mem, func() {}
	}
	database, err := db.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Warn("database unavailable, keeping revisions in memory", "err", err)
		return mem, func() {}
	}
	if err := database.Migrate(ctx); err != nil {
		logger.Warn("database migration failed, keeping revisions in memory", "err", err)
		database.Close()
		return mem, func() {}
	}
	logger.Info("revisions stored in database")
	return repository.NewPersistentRevisionRepository(mem, database), func() {
		if err := database.Close(); err != nil {
			logger.Error("close database", "err", err)
		}
	}
}
