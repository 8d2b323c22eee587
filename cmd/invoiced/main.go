// Command invoiced runs the invoice backend: collaborator login, logo and
// stamp uploads, and the raster PDF export pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/manal-catering/invoicer"
	"github.com/manal-catering/invoicer/internal/auth"
	"github.com/manal-catering/invoicer/internal/config"
	"github.com/manal-catering/invoicer/internal/logging"
	"github.com/manal-catering/invoicer/internal/server"
	"github.com/manal-catering/invoicer/internal/store"
)

// Version is set at build time via ldflags.
var Version = "dev"

// defaultConfigName resolves to invoiced.yaml in the usual locations.
const defaultConfigName = "invoiced"

func main() {
	flags, err := parseFlags(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if flags.version {
		fmt.Println("invoiced", Version)
		return
	}

	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))

	if err := run(flags); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(flags serverFlags) error {
	name := flags.config
	if name == "" {
		name = defaultConfigName
	}
	cfg, err := config.Load(name)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if flags.host != "" {
		cfg.Server.Host = flags.host
	}
	if flags.port != 0 {
		cfg.Server.Port = flags.port
	}
	if flags.verbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting invoiced",
		zap.String("version", Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port))

	assets, err := store.Open(cfg.Uploads.Dir, cfg.Uploads.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("opening asset store: %w", err)
	}
	defer assets.Close()

	sessions := auth.NewManager(cfg.Auth)

	exporter, err := invoicer.New(invoicer.WithTimeout(cfg.Export.Timeout))
	if err != nil {
		return fmt.Errorf("initializing export service: %w", err)
	}
	defer func() { _ = exporter.Close() }()

	srv := server.New(cfg.Server, assets, sessions, exporter, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
