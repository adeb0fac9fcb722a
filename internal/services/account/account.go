// Package account содержит бизнес-логику управления аккаунтами пользователей
// и их кешированием.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/userbase/internal/cache"
	"github.com/magabrotheeeer/userbase/internal/lib/sl"
	"github.com/magabrotheeeer/userbase/internal/models"
	"github.com/magabrotheeeer/userbase/internal/storage"
)

// Ограничения пагинации списка аккаунтов.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

var (
	ErrNotFound      = errors.New("account not found")
	ErrAlreadyExists = errors.New("account with this userID or email already exists")
	ErrConflict      = errors.New("account was modified concurrently, retry the request")
)

// Repository определяет методы для работы с аккаунтами в хранилище.
type Repository interface {
	// Create добавляет новый аккаунт.
	Create(ctx context.Context, acc models.Account) (*models.Account, error)
	// GetByUserID возвращает аккаунт по userID.
	GetByUserID(ctx context.Context, userID string) (*models.Account, error)
	// List возвращает аккаунты с пагинацией.
	List(ctx context.Context, limit, offset int) ([]*models.Account, error)
	// Save сохраняет аккаунт с проверкой версии.
	Save(ctx context.Context, acc *models.Account) (*models.Account, error)
	// Delete удаляет аккаунт по userID.
	Delete(ctx context.Context, userID string) error
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Service реализует операции над аккаунтами с кешированием чтения.
type Service struct {
	repo     Repository
	cache    Cache
	cacheTTL time.Duration
	log      *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, cacheTTL time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// Create создаёт аккаунт в статусе pending_approval.
func (s *Service) Create(ctx context.Context, req models.DummyAccount) (*models.Account, error) {
	const op = "services.account.Create"

	acc, err := s.repo.Create(ctx, models.NewAccount(req))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	s.log.Info("created new account", sl.UserID(acc.UserID))

	s.cacheAccount(ctx, acc)
	return acc, nil
}

// Get возвращает аккаунт по userID, используя кеш или репозиторий.
func (s *Service) Get(ctx context.Context, userID string) (*models.Account, error) {
	const op = "services.account.Get"

	var cached models.Account
	found, err := s.cache.Get(ctx, cache.AccountKey(userID), &cached)
	if err != nil {
		s.log.Warn("failed to read account from cache", sl.UserID(userID), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	acc, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}

	s.cacheAccount(ctx, acc)
	return acc, nil
}

// List возвращает страницу аккаунтов. limit приводится к диапазону [1, MaxLimit],
// отрицательный offset считается нулевым.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	const op = "services.account.List"

	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	offset = max(offset, 0)

	accounts, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return accounts, nil
}

// Update применяет изменения к аккаунту и инвалидирует кеш.
func (s *Service) Update(ctx context.Context, userID string, patch models.AccountPatch) (*models.Account, error) {
	const op = "services.account.Update"

	acc, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}

	next := *acc
	patch.Apply(&next)

	saved, err := s.repo.Save(ctx, &next)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	s.log.Info("updated account", sl.UserID(userID), slog.Int64("version", saved.Version))

	s.invalidate(ctx, userID)
	return saved, nil
}

// Delete удаляет аккаунт и инвалидирует кеш.
func (s *Service) Delete(ctx context.Context, userID string) error {
	const op = "services.account.Delete"

	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	s.log.Info("deleted account", sl.UserID(userID))

	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) cacheAccount(ctx context.Context, acc *models.Account) {
	key := cache.AccountKey(acc.UserID)
	if err := s.cache.Set(ctx, key, acc, s.cacheTTL); err != nil {
		s.log.Warn("failed to cache account", slog.String("key", key), sl.Err(err))
	}
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	key := cache.AccountKey(userID)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", key), sl.Err(err))
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, storage.ErrAccountNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrAccountExists):
		return ErrAlreadyExists
	case errors.Is(err, storage.ErrVersionConflict), errors.Is(err, storage.ErrSubscriptionTaken):
		return ErrConflict
	}
	return err
}
