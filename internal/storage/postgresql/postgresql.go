// Package postgresql реализует хранилище аккаунтов на основе PostgreSQL.
// Схема создаётся миграциями из каталога migrations.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/userbase/internal/models"
	"github.com/magabrotheeeer/userbase/internal/storage"
)

const subscriptionConstraint = "users_paypal_subscription_id_key"

const accountColumns = `user_id, display_name, email, plan_type, responses_left, status,
	paypal_subscription_id, trial_end_date, quiz_ids, version, created_at, updated_at`

// Storage хранит аккаунты в таблице users.
type Storage struct {
	pool *pgxpool.Pool
}

// New создаёт пул подключений к PostgreSQL и проверяет соединение.
func New(ctx context.Context, storageConnectionString string) (*Storage, error) {
	const op = "storage.postgresql.New"

	pool, err := pgxpool.New(ctx, storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Storage{pool: pool}, nil
}

// DB возвращает *sql.DB поверх пула, нужен для запуска миграций.
func (s *Storage) DB() *sql.DB {
	return stdlib.OpenDBFromPool(s.pool)
}

// Ping проверяет доступность базы данных.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close закрывает пул подключений.
func (s *Storage) Close(_ context.Context) error {
	s.pool.Close()
	return nil
}

// Create сохраняет новый аккаунт.
func (s *Storage) Create(ctx context.Context, acc models.Account) (*models.Account, error) {
	const op = "storage.postgresql.Create"

	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (user_id, display_name, email, plan_type, responses_left, status,
			paypal_subscription_id, trial_end_date, quiz_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+accountColumns,
		acc.UserID, acc.DisplayName, acc.Email, string(acc.Plan.Type), acc.Plan.ResponsesLeft,
		string(acc.Status), acc.PayPalSubscriptionID, acc.TrialEndDate, quizIDs(acc.QuizIDs))

	res, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapWriteError(err))
	}
	return res, nil
}

// GetByUserID возвращает аккаунт по userID.
func (s *Storage) GetByUserID(ctx context.Context, userID string) (*models.Account, error) {
	const op = "storage.postgresql.GetByUserID"

	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE user_id = $1`, userID)
	res, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapReadError(err))
	}
	return res, nil
}

// FindBySubscriptionID ищет аккаунт, отличный от excludingUserID, к которому
// привязан subscriptionID.
func (s *Storage) FindBySubscriptionID(ctx context.Context, subscriptionID, excludingUserID string) (*models.Account, error) {
	const op = "storage.postgresql.FindBySubscriptionID"

	row := s.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM users
		WHERE paypal_subscription_id = $1 AND user_id <> $2`,
		subscriptionID, excludingUserID)
	res, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapReadError(err))
	}
	return res, nil
}

// List возвращает аккаунты в порядке создания.
func (s *Storage) List(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	const op = "storage.postgresql.List"

	rows, err := s.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM users
		ORDER BY created_at, user_id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := make([]*models.Account, 0, limit)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// Save записывает аккаунт, только если его версия в базе совпадает с acc.Version.
func (s *Storage) Save(ctx context.Context, acc *models.Account) (*models.Account, error) {
	const op = "storage.postgresql.Save"

	row := s.pool.QueryRow(ctx, `
		UPDATE users
		SET display_name = $3,
			email = $4,
			plan_type = $5,
			responses_left = $6,
			status = $7,
			paypal_subscription_id = $8,
			trial_end_date = $9,
			quiz_ids = $10,
			version = version + 1,
			updated_at = now()
		WHERE user_id = $1 AND version = $2
		RETURNING `+accountColumns,
		acc.UserID, acc.Version, acc.DisplayName, acc.Email, string(acc.Plan.Type),
		acc.Plan.ResponsesLeft, string(acc.Status), acc.PayPalSubscriptionID,
		acc.TrialEndDate, quizIDs(acc.QuizIDs))

	res, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE user_id = $1)`, acc.UserID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !exists {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, storage.ErrVersionConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapWriteError(err))
	}
	return res, nil
}

// Delete удаляет аккаунт по userID.
func (s *Storage) Delete(ctx context.Context, userID string) error {
	const op = "storage.postgresql.Delete"

	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrAccountNotFound)
	}
	return nil
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var (
		acc              models.Account
		planType, status string
		trialEndDate     *time.Time
	)
	if err := row.Scan(&acc.UserID, &acc.DisplayName, &acc.Email, &planType,
		&acc.Plan.ResponsesLeft, &status, &acc.PayPalSubscriptionID, &trialEndDate,
		&acc.QuizIDs, &acc.Version, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		return nil, err
	}
	acc.Plan.Type = models.PlanType(planType)
	acc.Status = models.Status(status)
	if trialEndDate != nil {
		t := trialEndDate.UTC()
		acc.TrialEndDate = &t
	}
	return &acc, nil
}

func quizIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func mapReadError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrAccountNotFound
	}
	return err
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return err
	}
	if pgErr.ConstraintName == subscriptionConstraint {
		return fmt.Errorf("%w: %s", storage.ErrSubscriptionTaken, pgErr.Message)
	}
	return fmt.Errorf("%w: %s", storage.ErrAccountExists, pgErr.Message)
}
