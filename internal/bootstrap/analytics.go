package bootstrap

import (
	"context"
	"log/slog"

	"github.com/eleven-am/formpulse/internal/analytics"
	"github.com/eleven-am/formpulse/internal/form"
	"github.com/eleven-am/formpulse/internal/live"
	"github.com/eleven-am/formpulse/internal/response"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

func ProvideHub(redisClient *redis.Client, logger *slog.Logger) *live.Hub {
	return live.NewHub(redisClient, logger)
}

func ProvideAnalyticsService(
	formStore *form.Store,
	responseStore *response.Store,
	aggregateStore *analytics.Store,
	hub *live.Hub,
	cfg *Config,
	logger *slog.Logger,
) *analytics.Service {
	return analytics.NewService(formStore, responseStore, aggregateStore, hub, cfg.AnalyticsQueueSize, logger)
}

func StartAnalytics(lc fx.Lifecycle, svc *analytics.Service, hub *live.Hub) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			svc.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := svc.Close(); err != nil {
				return err
			}
			return hub.Close()
		},
	})
}

var AnalyticsModule = fx.Options(
	fx.Provide(
		ProvideHub,
		ProvideAnalyticsService,
	),
	fx.Invoke(StartAnalytics),
)
