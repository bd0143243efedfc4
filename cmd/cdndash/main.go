package main

//	@title			cdndash API
//	@version		0.1.0
//	@description	Operational endpoints of the CDN configuration dashboard.
//	@BasePath		/

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/HerbHall/cdndash/api/swagger"
	"github.com/HerbHall/cdndash/internal/backend"
	"github.com/HerbHall/cdndash/internal/config"
	"github.com/HerbHall/cdndash/internal/dashboard"
	"github.com/HerbHall/cdndash/internal/manage"
	"github.com/HerbHall/cdndash/internal/server"
	"github.com/HerbHall/cdndash/internal/version"
	"go.uber.org/zap"
)

func main() {
	// Subcommand dispatch (before flag.Parse).
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Println(version.Info())
			return
		case "ls":
			os.Exit(runList(os.Args[2:], os.Stdout, os.Stderr))
		case "invalidate":
			os.Exit(runInvalidate(os.Args[2:], os.Stdout, os.Stderr))
		case "status":
			os.Exit(runStatus(os.Args[2:], os.Stdout, os.Stderr))
		}
	}

	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
	cfg, viperCfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("cdndash starting", zap.String("version", version.Short()))

	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	client, err := newClient(cfg, backend.WithRequestID(server.RequestID))
	if err != nil {
		logger.Fatal("invalid backend configuration", zap.Error(err))
	}
	logger.Info("configuration server client created",
		zap.String("component", "backend"),
		zap.String("url", client.URL("")),
		zap.Duration("timeout", cfg.Backend.Timeout),
	)

	dash := dashboard.New(client, logger.Named("dashboard"),
		dashboard.WithInvalidateLimit(cfg.Dashboard.InvalidateRPS, cfg.Dashboard.InvalidateBurst),
	)
	dashHandler, err := dashboard.NewHandler(dash, client, logger.Named("dashboard"))
	if err != nil {
		logger.Fatal("failed to initialize dashboard", zap.Error(err))
	}
	manageHandler, err := manage.NewHandler(client, logger.Named("manage"))
	if err != nil {
		logger.Fatal("failed to initialize management pages", zap.Error(err))
	}

	readyCheck := server.ReadinessChecker(func(ctx context.Context) error {
		if d := cfg.Backend.ReadyTimeout; d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return client.Ping(ctx)
	})

	addr := cfg.Addr()
	srv := server.New(addr, logger, readyCheck, cfg.ServerOptions(), dashHandler, manageHandler)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("cdndash ready", zap.String("addr", addr))
	fmt.Fprintf(os.Stderr, "\n  cdndash %s is ready!\n  Open http://localhost:%d in your browser.\n\n", version.Short(), cfg.Server.Port)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("cdndash stopped")
}

// newClient builds the configuration server client from cfg.
func newClient(cfg *config.Config, opts ...backend.Option) (*backend.Client, error) {
	base, err := cfg.BackendURL()
	if err != nil {
		return nil, err
	}
	if cfg.Backend.Token != "" {
		opts = append(opts, backend.WithToken(cfg.Backend.Token))
	}
	return backend.NewClient(base, cfg.Backend.Timeout, opts...), nil
}
