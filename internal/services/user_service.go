package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	"github.com/vladimiradmaev/menupro-bot/internal/entitlement"
	"github.com/vladimiradmaev/menupro-bot/internal/logger"
)

// Profile is what the profile screen shows.
type Profile struct {
	User      *domain.User
	Tier      domain.Tier
	Limits    domain.EntitlementLimits
	PlanCount int64
}

// UserService owns accounts and the subscription workflow. The tier is
// resolved from timestamps on every call and never cached.
type UserService struct {
	users    domain.UserRepository
	plans    domain.PlanRepository
	payments domain.PaymentRepository
	policy   entitlement.Policy
	now      domain.Clock
}

func NewUserService(users domain.UserRepository, plans domain.PlanRepository, payments domain.PaymentRepository, policy entitlement.Policy, now domain.Clock) *UserService {
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, plans: plans, payments: payments, policy: policy, now: now}
}

func (s *UserService) RegisterUser(ctx context.Context, telegramID int64, username, firstName string) (*domain.User, error) {
	user, err := s.users.GetOrCreateUser(ctx, telegramID, username, firstName)
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return user, nil
}

func (s *UserService) GetUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	user, err := s.users.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Tier resolves the effective tier of the account right now.
func (s *UserService) Tier(ctx context.Context, telegramID int64) (domain.Tier, error) {
	user, err := s.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return "", err
	}
	return entitlement.Resolve(user, s.now()), nil
}

// Limits resolves the entitlement limits of the account right now.
func (s *UserService) Limits(ctx context.Context, telegramID int64) (domain.EntitlementLimits, error) {
	tier, err := s.Tier(ctx, telegramID)
	if err != nil {
		return domain.EntitlementLimits{}, err
	}
	return entitlement.LimitsFor(tier), nil
}

func (s *UserService) Profile(ctx context.Context, telegramID int64) (*Profile, error) {
	user, err := s.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	count, err := s.plans.CountPlans(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count plans: %w", err)
	}
	tier := entitlement.Resolve(user, s.now())
	return &Profile{User: user, Tier: tier, Limits: entitlement.LimitsFor(tier), PlanCount: count}, nil
}

// ActivateTrial starts the one-time trial. It returns ErrAlreadyEntitled
// without writing anything when the account is not eligible.
func (s *UserService) ActivateTrial(ctx context.Context, telegramID int64) (*domain.User, error) {
	user, err := s.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.ActivateTrial(user, s.now()); err != nil {
		return nil, err
	}
	if err := s.users.SaveEntitlement(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save trial: %w", err)
	}
	logger.WithContext(ctx).Info("Trial activated", "user_id", user.ID, "trial_end", user.TrialEnd)
	return user, nil
}

// InvoicePayload returns a unique payload for a new subscription invoice.
func (s *UserService) InvoicePayload(telegramID int64) string {
	return fmt.Sprintf("sub:%d:%s", telegramID, uuid.NewString())
}

// PaymentEvent is a successful payment reported by the chat platform.
type PaymentEvent struct {
	TelegramID       int64
	Amount           int
	Currency         string
	ProviderChargeID string
	Payload          string
}

// RecordPayment stores the payment and extends the paid period. Both are
// written together, so a failed attempt can be redelivered.
func (s *UserService) RecordPayment(ctx context.Context, ev PaymentEvent) (*domain.User, error) {
	user, err := s.GetUserByTelegramID(ctx, ev.TelegramID)
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		UserID:           user.ID,
		Amount:           ev.Amount,
		Currency:         ev.Currency,
		Status:           "paid",
		ProviderChargeID: ev.ProviderChargeID,
		Payload:          ev.Payload,
	}
	updated := *user
	s.policy.ApplyPayment(&updated, s.now())
	if err := s.payments.RecordPayment(ctx, payment, &updated); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}
	logger.WithContext(ctx).Info("Subscription extended",
		"user_id", updated.ID, "payment_id", payment.ID, "paid_until", updated.PaidUntil)
	return &updated, nil
}
