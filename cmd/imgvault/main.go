// Command imgvault runs the image hosting HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/imgvault/imgvault/adapters/log"
	"github.com/imgvault/imgvault/adapters/redis"
	"github.com/imgvault/imgvault/adapters/telegram"
	"github.com/imgvault/imgvault/api"
	"github.com/imgvault/imgvault/config"
	"github.com/imgvault/imgvault/metrics"
	"github.com/imgvault/imgvault/service"
	"github.com/imgvault/imgvault/upload"
)

func main() {
	configName := flag.String("config", "imgvault", "config file name without extension")
	configPath := flag.String("config-path", ".", "directory holding the config file")
	flag.Parse()

	cfg, err := config.Load(*configName, *configPath)
	if err != nil {
		basic := log.NewBasicLogger(false)
		basic.Fatal("failed to load configuration", log.Err(err))
	}

	logOpts := []log.LoggerOption{
		log.WithServiceName("imgvault"),
		log.WithEnvironment(cfg.Environment),
	}
	if cfg.Log.RotateFile != "" {
		logOpts = append(logOpts, log.WithRotation(cfg.Log.RotateFile))
	}
	logger, err := log.NewLogger(log.NewLoggerConfig(cfg.IsProd(), logOpts...))
	if err != nil {
		basic := log.NewBasicLogger(false)
		basic.Fatal("failed to build logger", log.Err(err))
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("service exited", log.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Log) error {
	index, err := redis.NewIndex(redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer func() { _ = index.Close() }()

	storage := telegram.New(telegram.Config{
		Token:         cfg.Telegram.Token,
		ChatID:        cfg.Telegram.ChatID,
		BaseURL:       cfg.Telegram.BaseURL,
		Timeout:       cfg.Telegram.Timeout,
		RatePerSecond: float64(cfg.Telegram.RatePerSecond),
	}, telegram.WithLogger(logger))

	rule := upload.ImageRule()
	rule.MaxSizeBytes = int64(cfg.Upload.MaxSizeMB) * upload.MB
	batcher := upload.NewBatcher(storage,
		upload.WithConcurrency(cfg.Upload.Concurrency),
		upload.WithRetries(cfg.Upload.Retries),
		upload.WithBaseDelay(cfg.Upload.BaseDelay),
		upload.WithThrottleInterval(cfg.Upload.ThrottleInterval),
		upload.WithRule(rule),
		upload.WithLogger(logger),
	)

	collector := metrics.NewCollector()
	images := service.NewImages(batcher, index, logger)
	favorites := service.NewFavorites(index)
	handler := api.NewHandler(images, favorites, collector, logger, cfg.Auth.Secret, cfg.Auth.TokenTTL)

	router := api.NewRouter(api.RouterOptions{
		Handler:   handler,
		Logger:    logger,
		Collector: collector,
		Secret:    cfg.Auth.Secret,
		IsProd:    cfg.IsProd(),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", log.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", log.String("signal", sig.String()))
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
