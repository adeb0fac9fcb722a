// Package create реализует HTTP-обработчик создания аккаунта пользователя.
//
// Handler принимает JSON с данными аккаунта, валидирует их и создаёт аккаунт
// в статусе pending_approval с планом по умолчанию.
package create

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/userbase/internal/http/middlewarectx"
	"github.com/magabrotheeeer/userbase/internal/http/response"
	"github.com/magabrotheeeer/userbase/internal/lib/sl"
	"github.com/magabrotheeeer/userbase/internal/models"
	"github.com/magabrotheeeer/userbase/internal/services/account"
)

// Handler управляет HTTP-запросами на создание аккаунтов.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики аккаунтов
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики создания аккаунта.
type Service interface {
	Create(ctx context.Context, req models.DummyAccount) (*models.Account, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать аккаунт
// @Description Создает аккаунт в статусе pending_approval без подписки.
// @Tags Users
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummyAccount true "Данные нового аккаунта"
// @Success 201 {object} response.AccountResponse "Созданный аккаунт"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Нет доступа к аккаунту"
// @Failure 409 {object} response.ErrorResponse "Аккаунт с таким userID или email уже есть"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /users [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyAccount
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ErrorWithCode(response.CodeInvalidRequest, "invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if !middlewarectx.CanAccess(r.Context(), req.UserID) {
		log.Warn("creating foreign account denied", slog.String("user_id", req.UserID))
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, response.ErrorWithCode(response.CodeForbidden, "access denied"))
		return
	}

	acc, err := h.service.Create(r.Context(), req)
	switch {
	case errors.Is(err, account.ErrAlreadyExists):
		log.Info("account already exists", slog.String("user_id", req.UserID))
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.ErrorWithCode(response.CodeAlreadyExists, account.ErrAlreadyExists.Error()))
		return
	case err != nil:
		log.Error("failed to create account", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorWithCode(response.CodeInternal, "could not create account"))
		return
	}

	log.Info("account created", slog.String("user_id", acc.UserID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(acc))
}
