package paymentprovider

import "time"

// Статусы подписки PayPal.
const (
	StatusApprovalPending = "APPROVAL_PENDING"
	StatusApproved        = "APPROVED"
	StatusActive          = "ACTIVE"
	StatusSuspended       = "SUSPENDED"
	StatusCancelled       = "CANCELLED"
	StatusExpired         = "EXPIRED"
)

// TenureTrial тип пробного платёжного цикла.
const TenureTrial = "TRIAL"

// Subscription сведения о подписке, полученные от PayPal.
type Subscription struct {
	ID              string
	Status          string
	PlanID          string
	BillingCycles   []BillingCycle
	NextBillingTime *time.Time // начало следующего платного цикла, если PayPal его вернул
}

// BillingCycle выполнение платёжного цикла подписки.
type BillingCycle struct {
	TenureType      string // TRIAL или REGULAR
	Sequence        int
	CyclesCompleted int
	CyclesRemaining int
	TotalCycles     int
}

// InTrial сообщает, отмечен ли первый платёжный цикл как пробный.
func (s *Subscription) InTrial() bool {
	return len(s.BillingCycles) > 0 && s.BillingCycles[0].TenureType == TenureTrial
}

// subscriptionResponse ответ GET /v1/billing/subscriptions/{id}
type subscriptionResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	PlanID      string `json:"plan_id"`
	BillingInfo *struct {
		NextBillingTime *time.Time `json:"next_billing_time"`
		CycleExecutions []struct {
			TenureType      string `json:"tenure_type"`
			Sequence        int    `json:"sequence"`
			CyclesCompleted int    `json:"cycles_completed"`
			CyclesRemaining int    `json:"cycles_remaining"`
			TotalCycles     int    `json:"total_cycles"`
		} `json:"cycle_executions"`
	} `json:"billing_info"`
}

// errorResponse тело ошибки PayPal API
type errorResponse struct {
	Name    string `json:"name"`
	DebugID string `json:"debug_id"`
}

func (r *subscriptionResponse) toSubscription() *Subscription {
	sub := &Subscription{
		ID:     r.ID,
		Status: r.Status,
		PlanID: r.PlanID,
	}
	if r.BillingInfo == nil {
		return sub
	}
	sub.NextBillingTime = r.BillingInfo.NextBillingTime
	for _, c := range r.BillingInfo.CycleExecutions {
		sub.BillingCycles = append(sub.BillingCycles, BillingCycle{
			TenureType:      c.TenureType,
			Sequence:        c.Sequence,
			CyclesCompleted: c.CyclesCompleted,
			CyclesRemaining: c.CyclesRemaining,
			TotalCycles:     c.TotalCycles,
		})
	}
	return sub
}
