// Package remove реализует HTTP-обработчик удаления аккаунта.
package remove

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/userbase/internal/http/response"
	"github.com/magabrotheeeer/userbase/internal/lib/sl"
	"github.com/magabrotheeeer/userbase/internal/services/account"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики удаления аккаунта.
type Service interface {
	Delete(ctx context.Context, userID string) error
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Удалить аккаунт
// @Description Доступно только администраторам.
// @Tags Users
// @Produce  json
// @Security BearerAuth
// @Param id path string true "userID"
// @Success 200 {object} map[string]any "Аккаунт удалён"
// @Failure 403 {object} response.ErrorResponse "Требуется роль admin"
// @Failure 404 {object} response.ErrorResponse "Аккаунт не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /users/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.remove"

	userID := chi.URLParam(r, "id")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_id", userID),
	)

	err := h.service.Delete(r.Context(), userID)
	switch {
	case errors.Is(err, account.ErrNotFound):
		log.Info("account not found")
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.ErrorWithCode(response.CodeNotFound, "account not found"))
		return
	case err != nil:
		log.Error("failed to delete account", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorWithCode(response.CodeInternal, "could not delete account"))
		return
	}

	log.Info("account deleted")
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"deleted_user_id": userID,
	}))
}
