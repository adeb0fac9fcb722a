// Package mongodb реализует хранилище аккаунтов на основе MongoDB.
//
// Уникальность userID, email и идентификатора подписки PayPal обеспечивается
// индексами коллекции. Индекс по подписке частичный: документы без поля
// paypal_subscription_id в нём не участвуют и не конфликтуют между собой.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/magabrotheeeer/userbase/internal/config"
	"github.com/magabrotheeeer/userbase/internal/models"
	"github.com/magabrotheeeer/userbase/internal/storage"
)

const (
	collectionName    = "users"
	userIDIndex       = "uniq_user_id"
	emailIndex        = "uniq_email"
	subscriptionIndex = "uniq_paypal_subscription_id"
)

var (
	ErrFailedToConnect   = errors.New("failed to connect to mongo")
	ErrHealthcheckFailed = errors.New("mongo healthcheck failed")
)

// Storage хранит аккаунты в коллекции users.
type Storage struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// Connect создаёт клиента MongoDB, повторяя попытки подключения
// cfg.RetryAttempts раз с интервалом cfg.RetryInterval.
func Connect(ctx context.Context, cfg config.MongoDB) (*mongo.Client, error) {
	const op = "storage.mongodb.Connect"

	attempts := max(cfg.RetryAttempts, 1)
	for i := range attempts {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.MongoURL).
				SetConnectTimeout(cfg.ConnectTimeout).
				SetMaxPoolSize(cfg.MaxPoolSize).
				SetMinPoolSize(cfg.MinPoolSize).
				SetMaxConnIdleTime(cfg.MaxConnIdleTime),
		)
		if err == nil {
			if err = client.Ping(ctx, nil); err == nil {
				return client, nil
			}
			_ = client.Disconnect(ctx)
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%s: %w", op, ctx.Err())
			case <-time.After(cfg.RetryInterval):
			}
		}
	}

	return nil, fmt.Errorf("%s: %w", op, ErrFailedToConnect)
}

// New подключается к MongoDB и создаёт индексы коллекции.
func New(ctx context.Context, cfg config.MongoDB) (*Storage, error) {
	const op = "storage.mongodb.New"

	client, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := NewWithDatabase(client, client.Database(cfg.Database))
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

// NewWithDatabase оборачивает уже открытое подключение. Индексы не создаются.
func NewWithDatabase(client *mongo.Client, db *mongo.Database) *Storage {
	return &Storage{
		client: client,
		coll:   db.Collection(collectionName),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// EnsureIndexes создаёт уникальные индексы коллекции, если их ещё нет.
func (s *Storage) EnsureIndexes(ctx context.Context) error {
	const op = "storage.mongodb.EnsureIndexes"

	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName(userIDIndex).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(emailIndex).SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "paypal_subscription_id", Value: 1}},
			Options: options.Index().
				SetName(subscriptionIndex).
				SetUnique(true).
				SetPartialFilterExpression(bson.D{
					{Key: "paypal_subscription_id", Value: bson.D{{Key: "$type", Value: "string"}}},
				}),
		},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Ping проверяет доступность MongoDB.
func (s *Storage) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	return nil
}

// Close закрывает подключение.
func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Create сохраняет новый аккаунт с версией 1.
func (s *Storage) Create(ctx context.Context, acc models.Account) (*models.Account, error) {
	const op = "storage.mongodb.Create"

	now := s.now()
	acc.Version = 1
	acc.CreatedAt = now
	acc.UpdatedAt = now

	if _, err := s.coll.InsertOne(ctx, acc); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapWriteError(err))
	}
	return &acc, nil
}

// GetByUserID возвращает аккаунт по userID.
func (s *Storage) GetByUserID(ctx context.Context, userID string) (*models.Account, error) {
	const op = "storage.mongodb.GetByUserID"

	acc, err := s.findOne(ctx, bson.D{{Key: "user_id", Value: userID}})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

// FindBySubscriptionID ищет аккаунт, отличный от excludingUserID, к которому
// привязан subscriptionID.
func (s *Storage) FindBySubscriptionID(ctx context.Context, subscriptionID, excludingUserID string) (*models.Account, error) {
	const op = "storage.mongodb.FindBySubscriptionID"

	acc, err := s.findOne(ctx, bson.D{
		{Key: "paypal_subscription_id", Value: subscriptionID},
		{Key: "user_id", Value: bson.D{{Key: "$ne", Value: excludingUserID}}},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

// List возвращает аккаунты в порядке создания.
func (s *Storage) List(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	const op = "storage.mongodb.List"

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "user_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result := make([]*models.Account, 0, limit)
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// Save записывает аккаунт, только если его версия в хранилище совпадает
// с acc.Version. Возвращает сохранённый аккаунт с увеличенной версией.
func (s *Storage) Save(ctx context.Context, acc *models.Account) (*models.Account, error) {
	const op = "storage.mongodb.Save"

	next := *acc
	next.Version = acc.Version + 1
	next.UpdatedAt = s.now()

	res, err := s.coll.ReplaceOne(ctx, bson.D{
		{Key: "user_id", Value: acc.UserID},
		{Key: "version", Value: acc.Version},
	}, next)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapWriteError(err))
	}
	if res.MatchedCount == 0 {
		n, err := s.coll.CountDocuments(ctx, bson.D{{Key: "user_id", Value: acc.UserID}})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if n == 0 {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, storage.ErrVersionConflict)
	}
	return &next, nil
}

// Delete удаляет аккаунт по userID.
func (s *Storage) Delete(ctx context.Context, userID string) error {
	const op = "storage.mongodb.Delete"

	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "user_id", Value: userID}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrAccountNotFound)
	}
	return nil
}

func (s *Storage) findOne(ctx context.Context, filter bson.D) (*models.Account, error) {
	var acc models.Account
	err := s.coll.FindOne(ctx, filter).Decode(&acc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func mapWriteError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	if strings.Contains(err.Error(), subscriptionIndex) {
		return fmt.Errorf("%w: %s", storage.ErrSubscriptionTaken, err.Error())
	}
	return fmt.Errorf("%w: %s", storage.ErrAccountExists, err.Error())
}
