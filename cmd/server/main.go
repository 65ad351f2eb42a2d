package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-page-builder/internal/config"
	"go-page-builder/internal/generator"
	"go-page-builder/internal/logging"
	"go-page-builder/internal/server"
	"go-page-builder/internal/session"
	"go-page-builder/internal/storage"
	"go-page-builder/internal/templating"

	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("config", "", "Path to a config file (default: ./pagebuilder.*)")
	addr := flag.String("addr", "", "Listen address, overrides server.addr")
	pageID := flag.String("page", "", "Stored page to open on start")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, *pageID, logger); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, pageID string, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, storage.Options{
		Backend:       cfg.Storage.Backend,
		Path:          cfg.Storage.Path,
		MongoURI:      cfg.Storage.MongoURI,
		MongoDatabase: cfg.Storage.MongoDatabase,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing page store failed", zap.Error(err))
		}
	}()

	engine := templating.NewEngine()
	if cfg.Templates.Dir != "" {
		if engine, err = templating.NewEngineFromDir(cfg.Templates.Dir); err != nil {
			return fmt.Errorf("failed to load templates: %w", err)
		}
	}

	sess := session.New(store,
		session.WithLogger(logger),
		session.WithGenerator(generator.New(engine, logger)),
	)
	defer sess.Close()
	if pageID != "" {
		if err := sess.Open(ctx, pageID, false); err != nil {
			return err
		}
	}

	srv := server.New(sess, server.Config{
		Addr:           cfg.Server.Addr,
		CSRF:           cfg.Server.CSRF,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ExportDir:      cfg.Export.Dir,
		AssetsDir:      cfg.Export.AssetsDir,
	}, logger)
	defer srv.Close()

	httpServer := srv.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("storage", cfg.Storage.Backend),
			zap.String("pageId", sess.Page().PageID()),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Close()
	if sess.Dirty() {
		logger.Warn("unsaved changes discarded", zap.String("pageId", sess.Page().PageID()))
	}
	return httpServer.Shutdown(shutdownCtx)
}
