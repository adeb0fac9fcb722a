// Package health реализует HTTP-обработчик проверки готовности сервиса.
//
// Handler опрашивает зависимости (хранилище, кеш) и возвращает 200, если все
// отвечают, и 503 со списком недоступных зависимостей в противном случае.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/userbase/internal/http/response"
	"github.com/magabrotheeeer/userbase/internal/lib/sl"
)

// Pinger зависимость, доступность которой проверяется.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler проверяет доступность зависимостей.
type Handler struct {
	log     *slog.Logger
	checks  map[string]Pinger
	timeout time.Duration
}

// New создает Handler. checks сопоставляет имя зависимости с её проверкой.
func New(log *slog.Logger, checks map[string]Pinger) *Handler {
	return &Handler{
		log:     log,
		checks:  checks,
		timeout: 2 * time.Second,
	}
}

// ServeHTTP godoc
// @Summary Проверка готовности
// @Tags Health
// @Produce  json
// @Success 200 {object} map[string]any "Все зависимости доступны"
// @Failure 503 {object} response.ErrorResponse "Часть зависимостей недоступна"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var failed []string
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.log.Error("dependency unavailable", slog.String("op", op), slog.String("dependency", name), sl.Err(err))
			failed = append(failed, name)
		}
	}

	if len(failed) > 0 {
		sort.Strings(failed)
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Response{
			Status: response.StatusError,
			Code:   response.CodeUnavailable,
			Error:  "dependencies unavailable",
			Data:   map[string]any{"failed": failed},
		})
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"status": "ok",
	}))
}
