// Package stats реализует HTTP-обработчик сводки по активным подпискам.
//
// Handler вызывает бизнес-логику подсчёта активных пользователей и ожидаемого
// дохода и возвращает результат в JSON-формате.
package stats

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/streamtap/subscription-keeper/internal/http/response"
	"github.com/streamtap/subscription-keeper/internal/lib/sl"
)

// Handler управляет HTTP-запросами сводки по подпискам.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики подсчёта сводки.
type Service interface {
	Stats(ctx context.Context) (int, int, error)
}

// New создаёт новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP обрабатывает запрос сводки: число активных подписок и
// ожидаемый доход за период.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.stats"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	count, revenue, err := h.service.Stats(r.Context())
	if err != nil {
		log.Error("failed to collect stats", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to collect stats"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"active_users":     count,
		"expected_revenue": revenue,
	}))
}
