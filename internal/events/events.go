// Package events публикует доменные события аккаунтов в RabbitMQ.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/userbase/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/userbase/internal/models"
)

// TypeAccountActivated тип события об активации подписки.
const TypeAccountActivated = "account.activated"

// AccountActivated событие, публикуемое после сохранения активированного аккаунта.
type AccountActivated struct {
	EventID        string        `json:"eventID"`
	Type           string        `json:"type"`
	UserID         string        `json:"userID"`
	SubscriptionID string        `json:"subscriptionID"`
	Status         models.Status `json:"status"`
	TrialEndDate   *time.Time    `json:"trialEndDate,omitempty"`
	OccurredAt     time.Time     `json:"occurredAt"`
}

// Publisher публикует события в exchange с фиксированным ключом маршрутизации.
type Publisher struct {
	ch         rabbitmq.Channel
	exchange   string
	routingKey string
	now        func() time.Time
}

// NewPublisher создаёт Publisher поверх открытого канала.
func NewPublisher(ch rabbitmq.Channel, exchange, routingKey string) *Publisher {
	return &Publisher{
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
		now:        time.Now,
	}
}

// PublishAccountActivated публикует событие об активации аккаунта.
func (p *Publisher) PublishAccountActivated(ctx context.Context, acc *models.Account) error {
	const op = "events.PublishAccountActivated"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	event := AccountActivated{
		EventID:        uuid.NewString(),
		Type:           TypeAccountActivated,
		UserID:         acc.UserID,
		SubscriptionID: acc.SubscriptionID(),
		Status:         acc.Status,
		TrialEndDate:   acc.TrialEndDate,
		OccurredAt:     p.now().UTC(),
	}
	if err := rabbitmq.PublishMessage(p.ch, p.exchange, p.routingKey, event.EventID, event); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Noop используется, когда публикация событий выключена.
type Noop struct{}

// PublishAccountActivated ничего не делает.
func (Noop) PublishAccountActivated(context.Context, *models.Account) error { return nil }
