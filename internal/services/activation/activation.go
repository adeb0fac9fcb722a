// Package activation содержит бизнес-логику активации подписки PayPal на аккаунте.
//
// Активация привязывает идентификатор подписки к аккаунту и вычисляет его статус:
// trialing, если первый платёжный цикл пробный, иначе active. Повторная активация
// уже активированной подписки ничего не меняет. Подписка не может быть привязана
// к двум аккаунтам: это проверяется чтением перед записью и уникальным индексом
// хранилища при записи.
package activation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/userbase/internal/cache"
	"github.com/magabrotheeeer/userbase/internal/lib/sl"
	"github.com/magabrotheeeer/userbase/internal/models"
	"github.com/magabrotheeeer/userbase/internal/paymentprovider"
	"github.com/magabrotheeeer/userbase/internal/storage"
)

var (
	ErrInvalidRequest             = errors.New("userID and subscriptionID are required")
	ErrAccountNotFound            = errors.New("account not found")
	ErrSubscriptionConflict       = errors.New("subscription is already bound to another account")
	ErrUpstreamVerificationFailed = errors.New("could not verify subscription with billing provider")
	ErrUnsupportedUpstreamStatus  = errors.New("subscription status does not allow activation")
	ErrStorage                    = errors.New("could not save account")
)

// Коды ошибок, возвращаемые клиенту в поле code.
const (
	CodeInvalidRequest             = "invalid_request"
	CodeAccountNotFound            = "account_not_found"
	CodeSubscriptionConflict       = "subscription_conflict"
	CodeUpstreamVerificationFailed = "upstream_verification_failed"
	CodeUnsupportedUpstreamStatus  = "unsupported_upstream_status"
	CodeStorageError               = "storage_error"
)

// Code возвращает стабильный код ошибки активации.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	case errors.Is(err, ErrAccountNotFound):
		return CodeAccountNotFound
	case errors.Is(err, ErrSubscriptionConflict):
		return CodeSubscriptionConflict
	case errors.Is(err, ErrUpstreamVerificationFailed):
		return CodeUpstreamVerificationFailed
	case errors.Is(err, ErrUnsupportedUpstreamStatus):
		return CodeUnsupportedUpstreamStatus
	default:
		return CodeStorageError
	}
}

// AccountRepository операции хранилища, нужные для активации.
type AccountRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Account, error)
	FindBySubscriptionID(ctx context.Context, subscriptionID, excludingUserID string) (*models.Account, error)
	Save(ctx context.Context, acc *models.Account) (*models.Account, error)
}

// Verifier запрашивает подписку у платёжного провайдера.
type Verifier interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*paymentprovider.Subscription, error)
}

// Cache инвалидирует закешированные аккаунты.
type Cache interface {
	Invalidate(ctx context.Context, key string) error
}

// EventPublisher публикует событие об активации.
type EventPublisher interface {
	PublishAccountActivated(ctx context.Context, acc *models.Account) error
}

// Metrics учитывает результаты активаций и запросов к провайдеру.
type Metrics interface {
	ObserveActivation(result string)
	ObserveUpstream(start time.Time, err error)
}

// Config параметры активации.
type Config struct {
	// TrialPeriod длительность пробного периода, если PayPal не вернул дату следующего платежа.
	TrialPeriod time.Duration
	// VerifyTimeout ограничение на запрос к PayPal.
	VerifyTimeout time.Duration
}

// Service выполняет активацию подписок.
type Service struct {
	repo      AccountRepository
	verifier  Verifier
	cache     Cache
	publisher EventPublisher
	metrics   Metrics
	cfg       Config
	log       *slog.Logger
	now       func() time.Time
}

// New создаёт новый экземпляр Service.
func New(repo AccountRepository, verifier Verifier, cache Cache, publisher EventPublisher,
	metrics Metrics, cfg Config, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		verifier:  verifier,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Activate привязывает подписку subscriptionID к аккаунту userID и возвращает
// итоговое состояние аккаунта. При любой ошибке аккаунт не изменяется.
func (s *Service) Activate(ctx context.Context, userID, subscriptionID string) (*models.Account, error) {
	const op = "services.activation.Activate"

	userID = strings.TrimSpace(userID)
	subscriptionID = strings.TrimSpace(subscriptionID)
	log := s.log.With(
		slog.String("op", op),
		sl.UserID(userID),
		slog.String("subscription_id", subscriptionID),
	)

	acc, noop, err := s.activate(ctx, log, userID, subscriptionID)
	switch {
	case err != nil:
		s.metrics.ObserveActivation(Code(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	case noop:
		s.metrics.ObserveActivation("noop")
		log.Info("subscription already activated")
		return acc, nil
	}
	s.metrics.ObserveActivation("activated")

	if err := s.cache.Invalidate(ctx, cache.AccountKey(userID)); err != nil {
		log.Warn("failed to invalidate account cache", sl.Err(err))
	}
	if err := s.publisher.PublishAccountActivated(ctx, acc); err != nil {
		log.Warn("failed to publish activation event", sl.Err(err))
	}

	log.Info("subscription activated", slog.String("status", string(acc.Status)))
	return acc, nil
}

func (s *Service) activate(ctx context.Context, log *slog.Logger, userID, subscriptionID string) (*models.Account, bool, error) {
	if userID == "" || subscriptionID == "" {
		return nil, false, ErrInvalidRequest
	}

	acc, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, storage.ErrAccountNotFound) {
		log.Info("account not found")
		return nil, false, ErrAccountNotFound
	}
	if err != nil {
		log.Error("failed to load account", sl.Err(err))
		return nil, false, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if acc.SubscriptionID() == subscriptionID && acc.Status != models.StatusPendingApproval {
		return acc, true, nil
	}

	owner, err := s.repo.FindBySubscriptionID(ctx, subscriptionID, userID)
	switch {
	case err == nil:
		log.Warn("subscription already bound to another account", slog.String("owner_user_id", owner.UserID))
		return nil, false, ErrSubscriptionConflict
	case !errors.Is(err, storage.ErrAccountNotFound):
		log.Error("failed to check subscription owner", sl.Err(err))
		return nil, false, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	sub, err := s.verify(ctx, subscriptionID)
	if err != nil {
		attrs := []any{sl.Err(err)}
		var statusErr *paymentprovider.StatusError
		if errors.As(err, &statusErr) {
			attrs = append(attrs,
				slog.Int("upstream_status", statusErr.StatusCode),
				slog.String("paypal_debug_id", statusErr.DebugID))
		}
		log.Error("failed to verify subscription", attrs...)
		return nil, false, ErrUpstreamVerificationFailed
	}

	switch strings.ToUpper(sub.Status) {
	case paymentprovider.StatusActive, paymentprovider.StatusApprovalPending:
	default:
		log.Warn("unsupported upstream subscription status", slog.String("upstream_status", sub.Status))
		return nil, false, fmt.Errorf("%w: %s", ErrUnsupportedUpstreamStatus, sub.Status)
	}

	next := *acc
	s.apply(log, &next, subscriptionID, sub)

	saved, err := s.repo.Save(ctx, &next)
	if errors.Is(err, storage.ErrSubscriptionTaken) {
		log.Warn("subscription claimed concurrently by another account", sl.Err(err))
		return nil, false, ErrSubscriptionConflict
	}
	if err != nil {
		log.Error("failed to save account", sl.Err(err))
		return nil, false, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return saved, false, nil
}

func (s *Service) verify(ctx context.Context, subscriptionID string) (*paymentprovider.Subscription, error) {
	if s.cfg.VerifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.VerifyTimeout)
		defer cancel()
	}

	start := time.Now()
	sub, err := s.verifier.GetSubscription(ctx, subscriptionID)
	s.metrics.ObserveUpstream(start, err)
	return sub, err
}

// apply выставляет привязку подписки, статус и дату окончания пробного периода.
func (s *Service) apply(log *slog.Logger, acc *models.Account, subscriptionID string, sub *paymentprovider.Subscription) {
	acc.PayPalSubscriptionID = &subscriptionID

	if !sub.InTrial() {
		acc.Status = models.StatusActive
		acc.TrialEndDate = nil
		return
	}

	now := s.now().UTC()
	acc.Status = models.StatusTrialing
	if sub.NextBillingTime != nil && sub.NextBillingTime.After(now) {
		end := sub.NextBillingTime.UTC()
		acc.TrialEndDate = &end
		return
	}

	// PayPal не вернул начало платного периода.
	end := now.Add(s.cfg.TrialPeriod)
	acc.TrialEndDate = &end
	log.Warn("trial end date approximated from configured trial period",
		slog.Duration("trial_period", s.cfg.TrialPeriod),
		slog.Time("trial_end_date", end))
}
