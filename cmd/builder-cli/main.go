package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go-page-builder/internal/cli"
	"go-page-builder/internal/config"
	"go-page-builder/internal/generator"
	"go-page-builder/internal/logging"
	"go-page-builder/internal/session"
	"go-page-builder/internal/storage"
	"go-page-builder/internal/templating"
)

func main() {
	configFile := flag.String("config", "", "Path to a config file (default: ./pagebuilder.*)")
	noBrowser := flag.Bool("no-browser", false, "Never open a browser for preview")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: builder-cli [-config file] [-no-browser] <command> [options]")
		fmt.Fprintln(os.Stderr, "Run 'builder-cli help' for the list of commands.")
	}
	flag.Parse()

	if err := run(*configFile, !*noBrowser, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string, openBrowser bool, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	// Command output goes to stdout; the logger only reports problems
	// unless the config asks for more.
	level := cfg.Log.Level
	if level == "info" {
		level = "warn"
	}
	logger, err := logging.New(level, cfg.Log.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

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
	defer store.Close()

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

	historyFile := ""
	if cfg.Storage.Backend != storage.BackendMongo {
		historyFile = filepath.Join(cfg.Storage.Path, ".shell_history")
	}
	c := cli.New(sess, cli.Config{
		ExportDir:   cfg.Export.Dir,
		AssetsDir:   cfg.Export.AssetsDir,
		PreviewAddr: cfg.Server.Addr,
		OpenBrowser: openBrowser,
		HistoryFile: historyFile,
	}, logger, os.Stdin, os.Stdout)
	return c.Run(ctx, args)
}
