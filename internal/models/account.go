// Package models содержит доменную модель аккаунта пользователя,
// его тарифный план и статус подписки, а также структуры для приёма
// данных из JSON-запросов.
package models

import "time"

// Status описывает состояние подписки аккаунта.
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusTrialing        Status = "trialing"
	StatusActive          Status = "active"
	StatusCancelled       Status = "cancelled"
	StatusExpired         Status = "expired"
	StatusIncomplete      Status = "incomplete"
)

// Valid сообщает, входит ли статус в допустимый набор значений.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingApproval, StatusTrialing, StatusActive,
		StatusCancelled, StatusExpired, StatusIncomplete:
		return true
	}
	return false
}

// PlanType тип тарифного плана.
type PlanType string

const (
	PlanTrial      PlanType = "Trial"
	PlanPro        PlanType = "Pro"
	PlanEnterprise PlanType = "Enterprise"
)

// DefaultResponsesLeft количество ответов, доступных на новом аккаунте.
const DefaultResponsesLeft = 10

// Plan тарифный план аккаунта.
type Plan struct {
	Type          PlanType `json:"type" bson:"type"`
	ResponsesLeft int      `json:"responsesLeft" bson:"responses_left"`
}

// DefaultPlan возвращает план, который получает каждый новый аккаунт.
func DefaultPlan() Plan {
	return Plan{Type: PlanTrial, ResponsesLeft: DefaultResponsesLeft}
}

// Account представляет аккаунт пользователя и состояние его подписки.
//
// PayPalSubscriptionID уникален среди всех аккаунтов, если задан.
// TrialEndDate заполнен только пока Status == StatusTrialing.
// Version увеличивается хранилищем при каждой успешной записи.
type Account struct {
	UserID               string     `json:"userID" bson:"user_id"`
	DisplayName          string     `json:"displayName,omitempty" bson:"display_name,omitempty"`
	Email                string     `json:"email" bson:"email"`
	Plan                 Plan       `json:"plan" bson:"plan"`
	Status               Status     `json:"status" bson:"status"`
	PayPalSubscriptionID *string    `json:"paypalSubscriptionID,omitempty" bson:"paypal_subscription_id,omitempty"`
	TrialEndDate         *time.Time `json:"trialEndDate,omitempty" bson:"trial_end_date,omitempty"`
	QuizIDs              []string   `json:"quizIDs" bson:"quiz_ids"`
	Version              int64      `json:"version" bson:"version"`
	CreatedAt            time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt            time.Time  `json:"updatedAt" bson:"updated_at"`
}

// SubscriptionID возвращает привязанный идентификатор подписки или пустую строку.
func (a *Account) SubscriptionID() string {
	if a.PayPalSubscriptionID == nil {
		return ""
	}
	return *a.PayPalSubscriptionID
}

// NewAccount собирает аккаунт из запроса на создание с дефолтными значениями:
// статус pending_approval, без подписки и пробного периода.
func NewAccount(req DummyAccount) Account {
	plan := DefaultPlan()
	if req.Plan != nil {
		if req.Plan.Type != "" {
			plan.Type = req.Plan.Type
		}
		if req.Plan.ResponsesLeft != nil {
			plan.ResponsesLeft = *req.Plan.ResponsesLeft
		}
	}
	quizIDs := req.QuizIDs
	if quizIDs == nil {
		quizIDs = []string{}
	}
	return Account{
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Plan:        plan,
		Status:      StatusPendingApproval,
		QuizIDs:     quizIDs,
	}
}

// DummyPlan используется для приёма плана из JSON-запроса.
type DummyPlan struct {
	Type          PlanType `json:"type" validate:"omitempty,oneof=Trial Pro Enterprise"`
	ResponsesLeft *int     `json:"responsesLeft" validate:"omitempty,gte=0"`
}

// DummyAccount используется для приёма данных нового аккаунта из JSON-запроса.
type DummyAccount struct {
	UserID      string     `json:"userID" validate:"required"`
	DisplayName string     `json:"displayName"`
	Email       string     `json:"email" validate:"required,email"`
	Plan        *DummyPlan `json:"plan"`
	QuizIDs     []string   `json:"quizIDs"`
}

// AccountPatch административное частичное изменение аккаунта.
// Поля со значением nil не изменяются.
type AccountPatch struct {
	DisplayName *string    `json:"displayName"`
	Email       *string    `json:"email" validate:"omitempty,email"`
	Plan        *DummyPlan `json:"plan"`
	Status      *Status    `json:"status" validate:"omitempty,oneof=pending_approval trialing active cancelled expired incomplete"`
	QuizIDs     []string   `json:"quizIDs"`
}

// Apply применяет изменения к аккаунту. При выходе из статуса trialing
// дата окончания пробного периода сбрасывается.
func (p AccountPatch) Apply(a *Account) {
	if p.DisplayName != nil {
		a.DisplayName = *p.DisplayName
	}
	if p.Email != nil {
		a.Email = *p.Email
	}
	if p.Plan != nil {
		if p.Plan.Type != "" {
			a.Plan.Type = p.Plan.Type
		}
		if p.Plan.ResponsesLeft != nil {
			a.Plan.ResponsesLeft = *p.Plan.ResponsesLeft
		}
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.QuizIDs != nil {
		a.QuizIDs = p.QuizIDs
	}
	if a.Status != StatusTrialing {
		a.TrialEndDate = nil
	}
}

// ActivationRequest запрос на активацию подписки.
type ActivationRequest struct {
	UserID         string `json:"userID"`
	SubscriptionID string `json:"subscriptionID"`
}
