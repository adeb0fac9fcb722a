// Package userbase собирает HTTP-приложение сервиса аккаунтов.
package userbase

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/magabrotheeeer/userbase/docs" // swagger spec
	"github.com/magabrotheeeer/userbase/internal/config"
	"github.com/magabrotheeeer/userbase/internal/http/handlers/health"
	"github.com/magabrotheeeer/userbase/internal/http/handlers/subscriptions/activate"
	"github.com/magabrotheeeer/userbase/internal/http/handlers/users/create"
	"github.com/magabrotheeeer/userbase/internal/http/handlers/users/list"
	"github.com/magabrotheeeer/userbase/internal/http/handlers/users/read"
	"github.com/magabrotheeeer/userbase/internal/http/handlers/users/remove"
	"github.com/magabrotheeeer/userbase/internal/http/handlers/users/update"
	"github.com/magabrotheeeer/userbase/internal/http/middlewarectx"
	"github.com/magabrotheeeer/userbase/internal/lib/jwt"
)

// AccountService объединяет операции над аккаунтами, нужные обработчикам.
type AccountService interface {
	create.Service
	read.Service
	list.Service
	update.Service
	remove.Service
}

// Routes зависимости обработчиков.
type Routes struct {
	Accounts   AccountService
	Activation activate.Service
	Tokens     middlewarectx.TokenParser
	Health     map[string]health.Pinger
	Gatherer   prometheus.Gatherer
	RateLimit  config.RateLimit
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Routes) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger, deps.RateLimit.RPS, deps.RateLimit.Burst))
		r.Use(middlewarectx.JWTMiddleware(deps.Tokens, logger))

		r.Post("/subscriptions/activate", activate.New(logger, deps.Activation).ServeHTTP)
		r.Post("/users", create.New(logger, deps.Accounts).ServeHTTP)
		r.Get("/users/{id}", read.New(logger, deps.Accounts).ServeHTTP)

		// Административные операции
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RequireRole(jwt.RoleAdmin, logger))
			r.Get("/users", list.New(logger, deps.Accounts).ServeHTTP)
			r.Put("/users/{id}", update.New(logger, deps.Accounts).ServeHTTP)
			r.Delete("/users/{id}", remove.New(logger, deps.Accounts).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, deps.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))
}
