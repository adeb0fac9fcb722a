// Package update реализует HTTP-обработчик административного изменения аккаунта.
package update

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/userbase/internal/http/response"
	"github.com/magabrotheeeer/userbase/internal/lib/sl"
	"github.com/magabrotheeeer/userbase/internal/models"
	"github.com/magabrotheeeer/userbase/internal/services/account"
)

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики изменения аккаунта.
type Service interface {
	Update(ctx context.Context, userID string, patch models.AccountPatch) (*models.Account, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Изменить аккаунт
// @Description Частичное изменение displayName, email, plan, status и quizIDs. Доступно только администраторам. При выходе из статуса trialing дата окончания пробного периода сбрасывается.
// @Tags Users
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "userID"
// @Param request body models.AccountPatch true "Изменяемые поля"
// @Success 200 {object} response.AccountResponse "Аккаунт после изменения"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Требуется роль admin"
// @Failure 404 {object} response.ErrorResponse "Аккаунт не найден"
// @Failure 409 {object} response.ErrorResponse "Email занят или аккаунт изменён параллельно"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /users/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.update"

	userID := chi.URLParam(r, "id")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_id", userID),
	)

	var patch models.AccountPatch
	if err := render.DecodeJSON(r.Body, &patch); err != nil {
		log.Warn("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ErrorWithCode(response.CodeInvalidRequest, "failed to decode request"))
		return
	}

	if err := h.validate.Struct(patch); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	acc, err := h.service.Update(r.Context(), userID, patch)
	switch {
	case errors.Is(err, account.ErrNotFound):
		log.Info("account not found")
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.ErrorWithCode(response.CodeNotFound, "account not found"))
		return
	case errors.Is(err, account.ErrAlreadyExists):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.ErrorWithCode(response.CodeAlreadyExists, "email is already used by another account"))
		return
	case errors.Is(err, account.ErrConflict):
		log.Warn("account modified concurrently", sl.Err(err))
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.ErrorWithCode(response.CodeConflict, account.ErrConflict.Error()))
		return
	case err != nil:
		log.Error("failed to update account", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorWithCode(response.CodeInternal, "could not update account"))
		return
	}

	log.Info("account updated", slog.Int64("version", acc.Version))
	render.JSON(w, r, response.StatusOKWithData(acc))
}
