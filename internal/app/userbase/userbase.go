package userbase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/userbase/internal/cache"
	"github.com/magabrotheeeer/userbase/internal/config"
	"github.com/magabrotheeeer/userbase/internal/events"
	"github.com/magabrotheeeer/userbase/internal/http/handlers/health"
	"github.com/magabrotheeeer/userbase/internal/lib/jwt"
	"github.com/magabrotheeeer/userbase/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/userbase/internal/lib/sl"
	"github.com/magabrotheeeer/userbase/internal/metrics"
	"github.com/magabrotheeeer/userbase/internal/migrations"
	"github.com/magabrotheeeer/userbase/internal/models"
	"github.com/magabrotheeeer/userbase/internal/paymentprovider"
	"github.com/magabrotheeeer/userbase/internal/services/account"
	"github.com/magabrotheeeer/userbase/internal/services/activation"
	"github.com/magabrotheeeer/userbase/internal/storage/mongodb"
	"github.com/magabrotheeeer/userbase/internal/storage/postgresql"
)

// Store хранилище аккаунтов, общее для MongoDB и PostgreSQL.
type Store interface {
	Create(ctx context.Context, acc models.Account) (*models.Account, error)
	GetByUserID(ctx context.Context, userID string) (*models.Account, error)
	FindBySubscriptionID(ctx context.Context, subscriptionID, excludingUserID string) (*models.Account, error)
	List(ctx context.Context, limit, offset int) ([]*models.Account, error)
	Save(ctx context.Context, acc *models.Account) (*models.Account, error)
	Delete(ctx context.Context, userID string) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// App HTTP-приложение со всеми зависимостями.
type App struct {
	server *http.Server
	logger *slog.Logger
	store  Store
	cache  *cache.Cache
	amqp   *amqp.Connection
}

// New подключает хранилище, кеш и брокер и собирает HTTP-сервер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.userbase.New"

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("storage connected", slog.String("driver", cfg.Storage.Driver))

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{
		logger: logger,
		store:  store,
		cache:  cacheRedis,
	}

	publisher, err := app.openPublisher(ctx, cfg.RabbitMQ)
	if err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	recorder := metrics.New(prometheus.DefaultRegisterer)
	paypal := paymentprovider.NewClient(ctx, cfg.PayPal)

	accountService := account.New(store, cacheRedis, cfg.RedisConnection.CacheTTL, logger)
	activationService := activation.New(store, paypal, cacheRedis, publisher, recorder, activation.Config{
		TrialPeriod:   cfg.PayPal.TrialPeriod,
		VerifyTimeout: cfg.PayPal.Timeout,
	}, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Routes{
		Accounts:   accountService,
		Activation: activationService,
		Tokens:     jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL),
		Health: map[string]health.Pinger{
			"storage": store,
			"cache":   cacheRedis,
		},
		Gatherer:  prometheus.DefaultGatherer,
		RateLimit: cfg.RateLimit,
	})

	app.server = &http.Server{
		Addr:         cfg.HTTPServer.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.TimeoutHTTP,
		WriteTimeout: cfg.HTTPServer.TimeoutHTTP,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}
	return app, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close(context.Background())
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close(timeoutCtx)
		return err
	}
}

func (a *App) close(ctx context.Context) {
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			a.logger.Warn("failed to close RabbitMQ connection", sl.Err(err))
		}
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("failed to close redis", sl.Err(err))
	}
	if err := a.store.Close(ctx); err != nil {
		a.logger.Warn("failed to close storage", sl.Err(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		db, err := postgresql.New(ctx, cfg.Storage.Postgres.StorageConnectionString)
		if err != nil {
			return nil, err
		}
		if err := migrations.Run(db.DB(), cfg.Storage.Postgres.MigrationsPath); err != nil {
			_ = db.Close(ctx)
			return nil, err
		}
		return db, nil
	case config.StorageMongoDB:
		db, err := mongodb.New(ctx, cfg.Storage.MongoDB)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// openPublisher подключается к RabbitMQ, если публикация событий включена.
func (a *App) openPublisher(ctx context.Context, cfg config.RabbitMQ) (activation.EventPublisher, error) {
	if !cfg.Enabled {
		a.logger.Info("event publishing disabled")
		return events.Noop{}, nil
	}

	conn, err := rabbitmq.Connect(ctx, cfg.URL, cfg.Retries, cfg.Delay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, nil)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	a.amqp = conn
	a.logger.Info("success to setup RabbitMQ channel", slog.String("exchange", cfg.Exchange))
	return events.NewPublisher(ch, cfg.Exchange, cfg.RoutingKey), nil
}
