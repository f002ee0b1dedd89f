package reconciler

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streamtap/subscription-keeper/internal/http/handlers/health"
)

// RegisterRoutes регистрирует сервисные маршруты приложения сверки.
func RegisterRoutes(r chi.Router, logger *slog.Logger) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
}
