// Package read реализует HTTP-обработчик получения аккаунта по userID.
package read

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/userbase/internal/http/middlewarectx"
	"github.com/magabrotheeeer/userbase/internal/http/response"
	"github.com/magabrotheeeer/userbase/internal/lib/sl"
	"github.com/magabrotheeeer/userbase/internal/models"
	"github.com/magabrotheeeer/userbase/internal/services/account"
)

// Handler обрабатывает запросы на получение аккаунта.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения аккаунта.
type Service interface {
	Get(ctx context.Context, userID string) (*models.Account, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить аккаунт
// @Tags Users
// @Produce  json
// @Security BearerAuth
// @Param id path string true "userID"
// @Success 200 {object} response.AccountResponse "Аккаунт"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Нет доступа к аккаунту"
// @Failure 404 {object} response.ErrorResponse "Аккаунт не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /users/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.read"

	userID := chi.URLParam(r, "id")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_id", userID),
	)

	if !middlewarectx.CanAccess(r.Context(), userID) {
		log.Warn("reading foreign account denied")
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, response.ErrorWithCode(response.CodeForbidden, "access denied"))
		return
	}

	acc, err := h.service.Get(r.Context(), userID)
	switch {
	case errors.Is(err, account.ErrNotFound):
		log.Info("account not found")
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.ErrorWithCode(response.CodeNotFound, "account not found"))
		return
	case err != nil:
		log.Error("failed to read account", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorWithCode(response.CodeInternal, "could not read account"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(acc))
}
