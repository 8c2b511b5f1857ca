package main

import (
	"LocalVault/config"
	"LocalVault/internal/blob"
	"LocalVault/internal/handler"
	"LocalVault/internal/mq"
	"LocalVault/internal/notify"
	"LocalVault/internal/repo"
	"LocalVault/internal/service"
	"LocalVault/internal/storage"
	"LocalVault/router"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// main initializes services and starts the HTTP server.
func main() {
	config.InitConfig()
	logger := config.SetupLogger()
	cfg := config.StorageConfigInstance

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := storage.NewSQLiteGateway(cfg.DataDir, logger)
	if err != nil {
		logger.Error("init storage failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	toaster := notify.NewToaster(config.AppConfig.ToastBuffer, logger)
	sinks := notify.Multi{toaster}
	// 可选的广播通道不可用时只在页面上提示一次
	sinkDown := func(name string, err error) {
		logger.Warn(name+" notifications disabled", slog.String("error", err.Error()))
		_ = toaster.Notify(ctx, notify.Info(notify.OpStartup, name+" notifications are unavailable"))
	}

	if config.AppConfig.RedisEnabled {
		client, err := repo.InitRedis(ctx)
		if err != nil {
			sinkDown("redis", err)
		} else {
			defer repo.CloseRedis()
			sinks = append(sinks, notify.NewRedisPublisher(client, config.AppConfig.RedisNotifyChannel))
		}
	}
	if config.AppConfig.RabbitMQEnabled {
		client, err := mq.DialPublisher(config.AppConfig.RabbitMQURL, mq.NotifyTopology())
		if err != nil {
			sinkDown("rabbitmq", err)
		} else {
			defer client.Close()
			sinks = append(sinks, notify.NewAMQPPublisher(client))
		}
	}

	registry := service.NewRegistry(gw, service.Options{
		DBName:         cfg.DBName,
		DBVersion:      cfg.DBVersion,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Estimator:      storage.NewDirEstimator(cfg.DataDir, cfg.QuotaBytes),
		Blobs:          blob.New(config.AppConfig.PreviewCacheSize, config.AppConfig.PreviewTTL),
		Notifier:       sinks,
		Logger:         logger,
	})
	// 初始化失败不退出 页面仍然可以展示错误提示并通过 reload 重试
	if err := registry.Initialize(ctx); err != nil {
		logger.Error("open file storage failed", slog.String("error", err.Error()))
	}

	srv := &http.Server{
		Addr:    config.AppConfig.HTTPAddr,
		Handler: router.InitRouter(handler.NewFileHandler(registry, toaster)),
	}
	go func() {
		logger.Info("http server started", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", slog.String("error", err.Error()))
	}
	if err := registry.Close(); err != nil {
		logger.Warn("close file storage failed", slog.String("error", err.Error()))
	}
}
