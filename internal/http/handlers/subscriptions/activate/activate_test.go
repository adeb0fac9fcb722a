package activate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/userbase/internal/http/middlewarectx"
	"github.com/magabrotheeeer/userbase/internal/lib/jwt"
	"github.com/magabrotheeeer/userbase/internal/models"
	"github.com/magabrotheeeer/userbase/internal/services/activation"
)

// MockService реализует интерфейс activate.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Activate(ctx context.Context, userID, subscriptionID string) (*models.Account, error) {
	args := m.Called(ctx, userID, subscriptionID)
	if res := args.Get(0); res != nil {
		return res.(*models.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func wrapped(err error) error {
	return fmt.Errorf("services.activation.Activate: %w", err)
}

func TestActivateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	subID := "I-1"

	tests := []struct {
		name           string
		body           string
		subject        string
		role           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "успешная активация",
			body:    `{"userID":"u1","subscriptionID":"I-1"}`,
			subject: "u1",
			setupMock: func(m *MockService) {
				m.On("Activate", mock.Anything, "u1", "I-1").Return(&models.Account{
					UserID: "u1", Status: models.StatusActive, PayPalSubscriptionID: &subID, Version: 2,
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"active"`,
		},
		{
			name:    "администратор активирует чужой аккаунт",
			body:    `{"userID":"u1","subscriptionID":"I-1"}`,
			subject: "root",
			role:    jwt.RoleAdmin,
			setupMock: func(m *MockService) {
				m.On("Activate", mock.Anything, "u1", "I-1").Return(&models.Account{UserID: "u1", Status: models.StatusTrialing}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"trialing"`,
		},
		{
			name:           "некорректный JSON",
			body:           `not a json`,
			subject:        "u1",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"code":"invalid_request"`,
		},
		{
			name:           "чужой аккаунт",
			body:           `{"userID":"u2","subscriptionID":"I-1"}`,
			subject:        "u1",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `"code":"forbidden"`,
		},
		{
			name:    "пустые поля",
			body:    `{"userID":"","subscriptionID":""}`,
			subject: "u1",
			setupMock: func(m *MockService) {
				m.On("Activate", mock.Anything, "", "").Return(nil, wrapped(activation.ErrInvalidRequest)).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"code":"invalid_request"`,
		},
		{
			name:    "аккаунт не найден",
			body:    `{"userID":"u1","subscriptionID":"I-1"}`,
			subject: "u1",
			setupMock: func(m *MockService) {
				m.On("Activate", mock.Anything, "u1", "I-1").Return(nil, wrapped(activation.ErrAccountNotFound)).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"code":"account_not_found"`,
		},
		{
			name:    "подписка занята",
			body:    `{"userID":"u1","subscriptionID":"I-1"}`,
			subject: "u1",
			setupMock: func(m *MockService) {
				m.On("Activate", mock.Anything, "u1", "I-1").Return(nil, wrapped(activation.ErrSubscriptionConflict)).Once()
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"code":"subscription_conflict"`,
		},
		{
			name:    "PayPal недоступен",
			body:    `{"userID":"u1","subscriptionID":"I-1"}`,
			subject: "u1",
			setupMock: func(m *MockService) {
				m.On("Activate", mock.Anything, "u1", "I-1").Return(nil, wrapped(activation.ErrUpstreamVerificationFailed)).Once()
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `"code":"upstream_verification_failed"`,
		},
		{
			name:    "подписка отменена",
			body:    `{"userID":"u1","subscriptionID":"I-1"}`,
			subject: "u1",
			setupMock: func(m *MockService) {
				m.On("Activate", mock.Anything, "u1", "I-1").Return(nil, wrapped(activation.ErrUnsupportedUpstreamStatus)).Once()
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `"code":"unsupported_upstream_status"`,
		},
		{
			name:    "ошибка хранилища",
			body:    `{"userID":"u1","subscriptionID":"I-1"}`,
			subject: "u1",
			setupMock: func(m *MockService) {
				m.On("Activate", mock.Anything, "u1", "I-1").Return(nil, wrapped(activation.ErrStorage)).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","code":"storage_error","error":"could not save account"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/activate", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			ctx := context.WithValue(req.Context(), middlewarectx.UserID, tt.subject)
			ctx = context.WithValue(ctx, middlewarectx.Role, tt.role)
			ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-id")
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			mockService.AssertExpectations(t)
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusFor("something_else"))
	assert.Equal(t, http.StatusBadGateway, StatusFor(activation.CodeUnsupportedUpstreamStatus))
}
