package repo

import (
	"LocalVault/config"
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

var Redis *redis.Client

// RedisOptions builds client options from AppConfig.
func RedisOptions() *redis.Options {
	return &redis.Options{
		Addr:     fmt.Sprintf("%s:%s", config.AppConfig.RedisHost, config.AppConfig.RedisPort),
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	}
}

// InitRedis initializes the Redis client used for notification fan-out.
// Redis 只用于把提示消息广播给其他本地进程 连接失败时调用方可以继续运行
func InitRedis(ctx context.Context) (*redis.Client, error) {
	client := redis.NewClient(RedisOptions())
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}
	slog.Info("init redis success", slog.String("addr", client.Options().Addr))
	Redis = client
	return client, nil
}

// CloseRedis closes the shared client if it was initialized.
func CloseRedis() {
	if Redis == nil {
		return
	}
	_ = Redis.Close()
	Redis = nil
}
