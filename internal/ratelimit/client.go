package ratelimit

import (
	"context"
	"errors"
	"strings"

	redis "github.com/redis/go-redis/v9"
	assessmentdomain "github.com/smallbiznis/detailflow/internal/assessment/domain"
	"github.com/smallbiznis/detailflow/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewRedisClient returns nil when no redis address is configured. The
// presign limiter cannot run without one.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*redis.Client, error) {
	limitCfg := cfg.RateLimit
	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		if limitCfg.Enabled {
			return nil, errors.New("rate limit redis addr is required")
		}
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis unreachable at startup", zap.String("addr", addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

// NewAssessmentLocker returns a nil Locker when locking is off, which
// lets concurrent assessments of one job race with last write wins.
func NewAssessmentLocker(cfg config.Config, client *redis.Client) assessmentdomain.Locker {
	if client == nil || !cfg.RateLimit.AssessmentLockOn {
		return nil
	}
	return NewLocker(client)
}
