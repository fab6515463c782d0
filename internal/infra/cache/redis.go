package cache

import (
	"context"

	"app/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient はRedisに接続する。
// 繋がらない場合はnilを返してDB直引きにフォールバックする（起動は止めない）。
func NewRedisClient(ctx context.Context, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, domain lookups go straight to DB", zap.Error(err))
		_ = client.Close()
		return nil
	}

	log.Info("redis connected", zap.String("addr", cfg.RedisURL))
	return client
}
