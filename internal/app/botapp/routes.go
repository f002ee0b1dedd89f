package botapp

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streamtap/subscription-keeper/internal/http/handlers/health"
	"github.com/streamtap/subscription-keeper/internal/http/handlers/stats"
)

// RegisterRoutes регистрирует сервисные маршруты Telegram-приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, statsService stats.Service) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", stats.New(logger, statsService).ServeHTTP)
	})

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
}
