package domain

import (
	"context"
	"time"
)

// UserRepository stores accounts and their entitlement timestamps.
type UserRepository interface {
	GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName string) (*User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*User, error)
	// SaveEntitlement persists Tier, TrialUsed, TrialStart, TrialEnd and PaidUntil.
	SaveEntitlement(ctx context.Context, user *User) error
}

// PlanRepository is the persistence boundary for plans. Content writes replace
// the whole document; concurrent writers race and the last write wins.
type PlanRepository interface {
	GetPlan(ctx context.Context, id uint) (*Plan, error)
	CreatePlan(ctx context.Context, plan *Plan) (uint, error)
	UpdatePlanContent(ctx context.Context, id uint, content PlanContent) error
	AttachShoppingList(ctx context.Context, id uint, list *ShoppingList) error
	DeletePlan(ctx context.Context, id uint) error
	ListRecentPlans(ctx context.Context, userID uint, limit int) ([]Plan, error)
	CountPlans(ctx context.Context, userID uint) (int64, error)
}

// PaymentRepository records successful payments.
type PaymentRepository interface {
	// RecordPayment stores payment and the entitlement of user in one
	// transaction: either both are written or neither.
	RecordPayment(ctx context.Context, payment *Payment, user *User) error
}

// Clock returns the current time.
type Clock func() time.Time
