package bootstrap

import (
	"log/slog"
	"os"

	"github.com/eleven-am/formpulse/internal/analytics"
	"github.com/eleven-am/formpulse/internal/form"
	"github.com/eleven-am/formpulse/internal/live"
	"github.com/eleven-am/formpulse/internal/response"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func ProvideFormHandler(store *form.Store, svc *analytics.Service, logger *slog.Logger) *form.Handler {
	return form.NewHandler(store, svc, logger.With("handler", "form"))
}

func ProvideResponseHandler(store *response.Store, formStore *form.Store, svc *analytics.Service, logger *slog.Logger) *response.Handler {
	return response.NewHandler(store, formStore, svc, logger.With("handler", "response"))
}

func ProvideAnalyticsHandler(svc *analytics.Service, logger *slog.Logger) *analytics.Handler {
	return analytics.NewHandler(svc, logger.With("handler", "analytics"))
}

func ProvideLiveHandler(hub *live.Hub, formStore *form.Store, logger *slog.Logger) *live.Handler {
	return live.NewHandler(hub, formStore, logger.With("handler", "live"))
}

type HandlerParams struct {
	fx.In

	FormHandler      *form.Handler
	ResponseHandler  *response.Handler
	AnalyticsHandler *analytics.Handler
	LiveHandler      *live.Handler
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	forms := e.Group("/v1/forms")
	params.FormHandler.RegisterRoutes(forms)
	params.ResponseHandler.RegisterRoutes(forms)
	params.AnalyticsHandler.RegisterRoutes(forms)
	params.LiveHandler.RegisterRoutes(forms)
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideFormHandler,
		ProvideResponseHandler,
		ProvideAnalyticsHandler,
		ProvideLiveHandler,
	),
	fx.Invoke(RegisterRoutes),
)
