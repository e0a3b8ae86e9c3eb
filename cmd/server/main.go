package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iconidentify/mediagrab/internal/api"
	"github.com/iconidentify/mediagrab/internal/api/handler"
	"github.com/iconidentify/mediagrab/internal/config"
	"github.com/iconidentify/mediagrab/internal/downloader"
	"github.com/iconidentify/mediagrab/internal/gallery"
	"github.com/iconidentify/mediagrab/internal/repository"
	"github.com/iconidentify/mediagrab/internal/resolver"
	"github.com/iconidentify/mediagrab/internal/service"
	"github.com/iconidentify/mediagrab/internal/telegram"
	"github.com/iconidentify/mediagrab/internal/worker"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mediagrab %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting mediagrab",
		"version", Version,
		"build_time", BuildTime,
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	users, err := repository.NewSQLiteUserRepository(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("open user registry: %w", err)
	}
	defer users.Close()

	// Resolver chains
	available, err := resolver.BuildStrategies(cfg, logger)
	if err != nil {
		return fmt.Errorf("build strategies: %w", err)
	}
	chains, err := resolver.BuildChains(cfg.Strategies, available, logger)
	if err != nil {
		return fmt.Errorf("build strategy chains: %w", err)
	}
	orchestrator := resolver.NewOrchestrator(chains, logger)

	// Fetch pipeline
	dl := downloader.NewHTTPDownloader(cfg.Fetch)
	dl.SetLogger(logger)
	fetcher := downloader.NewFetcher(dl, logger)
	assembler := gallery.NewAssembler(fetcher, logger)

	mediaSvc := service.NewMediaService(
		orchestrator,
		assembler,
		fetcher,
		cfg.Fetch.CeilingBytes,
		cfg.Telegram.CaptionLimit,
		logger,
	)

	pool := worker.NewPool(worker.Config{
		Workers:   cfg.Worker.Count,
		QueueSize: cfg.Worker.QueueSize,
	}, logger)

	var bot *telegram.Bot
	if cfg.Telegram.BotToken != "" {
		bot, err = telegram.NewBot(cfg.Telegram, mediaSvc, users, pool, logger)
		if err != nil {
			return err
		}
	} else {
		logger.Info("BOT_TOKEN not set, telegram bot disabled")
	}

	pool.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Server.Enabled {
		router := api.NewRouter(
			handler.NewMediaHandler(mediaSvc, logger),
			handler.NewHealthHandler(users, pool),
			cfg.Server.APIKey,
		)
		srv := &http.Server{
			Addr:         cfg.Server.Address(),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		g.Go(func() error {
			logger.Info("starting HTTP server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown error", "error", err)
			}
			return nil
		})
	}

	if bot != nil {
		g.Go(func() error {
			return bot.Run(gctx)
		})
	}

	err = g.Wait()
	logger.Info("shutting down")

	// In-flight deliveries are canceled; queued ones are dropped.
	if stopErr := pool.Stop(25 * time.Second); stopErr != nil {
		logger.Error("worker pool shutdown error", "error", stopErr)
	}
	return err
}
