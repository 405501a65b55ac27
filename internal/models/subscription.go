// Package models содержит доменные структуры: пользователей, подписки,
// заявки на аудит и уведомления. Все сущности передаются по значению: изменение
// порождает новую копию, которая целиком заменяет сохранённую запись.
package models

import "time"

// UnlimitedEntries: значение AllowedEntries для безлимитной подписки.
const UnlimitedEntries = -1

// SubscriptionStatus: состояние подписки.
type SubscriptionStatus string

const (
	StatusInactive SubscriptionStatus = "inactive"
	StatusPending  SubscriptionStatus = "pending"
	StatusActive   SubscriptionStatus = "active"
)

// Plan: тарифный план. Пустое значение соответствует бесплатному тарифу.
type Plan string

const (
	PlanFree     Plan = ""
	PlanMonthly  Plan = "monthly"
	PlanSixMonth Plan = "six_month"
	PlanYearly   Plan = "yearly"
)

// ParsePlan разбирает платный тарифный план.
func ParsePlan(s string) (Plan, error) {
	switch p := Plan(s); p {
	case PlanMonthly, PlanSixMonth, PlanYearly:
		return p, nil
	}
	return PlanFree, ErrValidation
}

// Months возвращает длительность плана в календарных месяцах.
func (p Plan) Months() int {
	switch p {
	case PlanMonthly:
		return 1
	case PlanSixMonth:
		return 6
	case PlanYearly:
		return 12
	}
	return 0
}

// Subscription: подписка, принадлежащая ровно одному пользователю.
type Subscription struct {
	Status         SubscriptionStatus `json:"status"`
	Plan           Plan               `json:"plan"`
	EntriesUsed    int                `json:"entries_used"`
	AllowedEntries int                `json:"allowed_entries"` // UnlimitedEntries для безлимита
	StartDate      *time.Time         `json:"start_date,omitempty"`
	ExpiryDate     *time.Time         `json:"expiry_date,omitempty"`
	PendingPlan    Plan               `json:"pending_plan,omitempty"`
	PendingProof   string             `json:"pending_proof,omitempty"` // ключ изображения в хранилище
}

// Unlimited сообщает, снят ли лимит записей.
func (s Subscription) Unlimited() bool {
	return s.AllowedEntries == UnlimitedEntries
}

// Remaining возвращает число оставшихся записей; -1 для безлимита.
func (s Subscription) Remaining() int {
	if s.Unlimited() {
		return UnlimitedEntries
	}
	if left := s.AllowedEntries - s.EntriesUsed; left > 0 {
		return left
	}
	return 0
}

// NewSubscription возвращает начальную подписку для роли.
func NewSubscription(role Role, freeEntries int) Subscription {
	allowed := 0
	if role.HasQuota() {
		allowed = freeEntries
	}
	return Subscription{
		Status:         StatusInactive,
		Plan:           PlanFree,
		AllowedEntries: allowed,
	}
}
