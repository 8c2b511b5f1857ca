package main

import (
	"LocalVault/config"
	"LocalVault/internal/notify"
	"LocalVault/internal/repo"
	"LocalVault/internal/worker"
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	config.InitConfig()
	logger := config.SetupLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.AppConfig.RedisEnabled {
		client, err := repo.InitRedis(ctx)
		if err != nil {
			logger.Warn("redis relay disabled", slog.String("error", err.Error()))
		} else {
			defer repo.CloseRedis()
			pub := notify.NewRedisPublisher(client, config.AppConfig.RedisNotifyChannel)
			go func() {
				if err := worker.RunRedisRelay(ctx, pub, logger); err != nil {
					logger.Warn("redis relay stopped", slog.String("error", err.Error()))
				}
			}()
		}
	}

	logger.Info("notify worker started", slog.String("queue", config.AppConfig.NotifyQueue))
	if err := worker.RunNotifyWorker(ctx, logger); err != nil {
		logger.Error("notify worker stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
