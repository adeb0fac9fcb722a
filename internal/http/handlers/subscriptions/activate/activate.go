// Package activate реализует HTTP-обработчик активации подписки PayPal на аккаунте.
//
// Handler принимает JSON {userID, subscriptionID}, проверяет, что автор запроса
// владеет аккаунтом или является администратором, вызывает сервис активации
// и возвращает итоговое состояние аккаунта. Ошибки сервиса отображаются
// в HTTP-статус и стабильный код в поле code.
package activate

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/userbase/internal/http/middlewarectx"
	"github.com/magabrotheeeer/userbase/internal/http/response"
	"github.com/magabrotheeeer/userbase/internal/lib/sl"
	"github.com/magabrotheeeer/userbase/internal/models"
	"github.com/magabrotheeeer/userbase/internal/services/activation"
)

// Handler обрабатывает запросы на активацию подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики активации.
type Service interface {
	Activate(ctx context.Context, userID, subscriptionID string) (*models.Account, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Активировать подписку
// @Description Проверяет подписку в PayPal и привязывает её к аккаунту. Статус аккаунта становится trialing или active. Повторный вызов для уже активированной подписки ничего не меняет.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.ActivationRequest true "Пользователь и подписка"
// @Success 200 {object} response.AccountResponse "Аккаунт после активации"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Нет доступа к аккаунту"
// @Failure 404 {object} response.ErrorResponse "Аккаунт не найден"
// @Failure 409 {object} response.ErrorResponse "Подписка привязана к другому аккаунту"
// @Failure 502 {object} response.ErrorResponse "PayPal не подтвердил подписку"
// @Failure 500 {object} response.ErrorResponse "Ошибка сохранения"
// @Router /subscriptions/activate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscriptions.activate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.ActivationRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ErrorWithCode(activation.CodeInvalidRequest, "invalid request body"))
		return
	}

	if userID := strings.TrimSpace(req.UserID); userID != "" && !middlewarectx.CanAccess(r.Context(), userID) {
		log.Warn("activation for foreign account denied", slog.String("user_id", userID))
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, response.ErrorWithCode(response.CodeForbidden, "access denied"))
		return
	}

	acc, err := h.service.Activate(r.Context(), req.UserID, req.SubscriptionID)
	if err != nil {
		code := activation.Code(err)
		log.Info("activation failed", slog.String("code", code), sl.Err(err))
		render.Status(r, StatusFor(code))
		render.JSON(w, r, response.ErrorWithCode(code, errorMessage(code)))
		return
	}

	log.Info("activation succeeded", slog.String("user_id", acc.UserID), slog.String("status", string(acc.Status)))
	render.JSON(w, r, response.StatusOKWithData(acc))
}

// StatusFor возвращает HTTP-статус для кода ошибки активации.
func StatusFor(code string) int {
	switch code {
	case activation.CodeInvalidRequest:
		return http.StatusBadRequest
	case activation.CodeAccountNotFound:
		return http.StatusNotFound
	case activation.CodeSubscriptionConflict:
		return http.StatusConflict
	case activation.CodeUpstreamVerificationFailed, activation.CodeUnsupportedUpstreamStatus:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(code string) string {
	switch code {
	case activation.CodeInvalidRequest:
		return "userID and subscriptionID are required"
	case activation.CodeAccountNotFound:
		return "account not found"
	case activation.CodeSubscriptionConflict:
		return "subscription is already bound to another account"
	case activation.CodeUpstreamVerificationFailed:
		return "could not verify subscription with PayPal"
	case activation.CodeUnsupportedUpstreamStatus:
		return "subscription status does not allow activation"
	default:
		return "could not save account"
	}
}
