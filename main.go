package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"deliveryeta/config"
	"deliveryeta/db"
	etahttp "deliveryeta/http"
	"deliveryeta/logging"
	"deliveryeta/ml"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		os.Stderr.WriteString("failed to create logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	// 2. Load the model; nothing is served without it
	model, artifact, err := ml.LoadModel(cfg.Model.Path)
	if err != nil {
		logger.Fatal("failed to load model", zap.String("path", cfg.Model.Path), zap.Error(err))
	}
	if artifact.BoundsDefaulted {
		logger.Warn("model artifact has no normalization bounds; using slider ranges, predictions may be miscalibrated",
			zap.Any("bounds", artifact.Bounds))
	}
	predictor, err := ml.NewPredictor(model, artifact, ml.WithCache(cfg.Model.CacheSize))
	if err != nil {
		logger.Fatal("failed to create predictor", zap.Error(err))
	}
	logger.Info("model loaded",
		zap.String("name", artifact.Name),
		zap.String("version", artifact.Version),
		zap.String("type", artifact.ModelType),
	)

	// 3. Optional prediction log
	var history etahttp.PredictionStore
	if cfg.Database.Path != "" {
		store, err := db.InitDB(cfg.Database.Path)
		if err != nil {
			logger.Fatal("failed to initialize database", zap.String("path", cfg.Database.Path), zap.Error(err))
		}
		defer store.Close()
		history = store
		logger.Info("prediction log enabled", zap.String("path", cfg.Database.Path))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Model.Watch {
		err := ml.WatchArtifact(ctx, cfg.Model.Path, func(op fsnotify.Op) {
			logger.Warn("model artifact changed on disk; restart to load it",
				zap.String("path", cfg.Model.Path), zap.String("op", op.String()))
		}, func(err error) {
			logger.Warn("artifact watcher", zap.Error(err))
		})
		if err != nil {
			logger.Warn("artifact watcher disabled", zap.Error(err))
		}
	}

	// 4. Start HTTP server
	server, err := etahttp.NewServer(etahttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
		MaxBodyBytes:   cfg.Http.MaxBodyBytes,
		RateLimitRPS:   cfg.Http.RateLimit.RPS,
		RateLimitBurst: cfg.Http.RateLimit.Burst,
		Title:          cfg.UI.Title,
		Locale:         cfg.UI.Locale,
	}, predictor, history, logger)
	if err != nil {
		logger.Fatal("failed to create HTTP server", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 5. Handle graceful shutdown
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
}
