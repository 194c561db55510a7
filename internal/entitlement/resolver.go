// Package entitlement derives plan tiers and feature limits from account
// timestamps.
package entitlement

import (
	"time"

	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
)

const (
	FreeMaxDays = 3
	FullMaxDays = 31
)

// Resolve returns the effective tier of u at now. Stored tier fields are
// ignored; only the timestamps count.
func Resolve(u *domain.User, now time.Time) domain.Tier {
	if u == nil {
		return domain.TierFree
	}
	if u.PaidUntil != nil && u.PaidUntil.After(now) {
		return domain.TierPaid
	}
	if u.TrialEnd != nil && u.TrialEnd.After(now) {
		return domain.TierTrial
	}
	return domain.TierFree
}

// LimitsFor is the feature table for a tier.
func LimitsFor(tier domain.Tier) domain.EntitlementLimits {
	switch tier {
	case domain.TierTrial, domain.TierPaid:
		return domain.EntitlementLimits{
			MaxDays:             FullMaxDays,
			DinnerMacrosVisible: true,
			ExportEnabled:       true,
			RecipesFull:         true,
		}
	default:
		return domain.EntitlementLimits{MaxDays: FreeMaxDays}
	}
}

// ClampDays bounds a requested day count by the tier limit.
func ClampDays(days int, limits domain.EntitlementLimits) int {
	if days > limits.MaxDays {
		return limits.MaxDays
	}
	return days
}

// Policy carries the configurable trial and renewal lengths.
type Policy struct {
	TrialLength time.Duration
	PaidPeriod  time.Duration
}

func NewPolicy(trialDays, paidPeriodDays int) Policy {
	return Policy{
		TrialLength: time.Duration(trialDays) * 24 * time.Hour,
		PaidPeriod:  time.Duration(paidPeriodDays) * 24 * time.Hour,
	}
}

// ActivateTrial starts the one-time trial. It fails with ErrAlreadyEntitled
// when the account is in trial or paid, and when the trial was used before.
func (p Policy) ActivateTrial(u *domain.User, now time.Time) error {
	tier := Resolve(u, now)
	if tier != domain.TierFree {
		return apperrors.ErrAlreadyEntitled
	}
	if u.TrialUsed {
		return apperrors.New(apperrors.ErrorTypeConflict, "ALREADY_ENTITLED", "Trial was already used").
			WithContext("telegram_id", u.TelegramID)
	}

	start := now
	end := now.Add(p.TrialLength)
	u.TrialStart = &start
	u.TrialEnd = &end
	u.TrialUsed = true
	u.Tier = domain.TierTrial
	return nil
}

// ApplyPayment extends paid-until by one period, stacking onto a period that
// has not expired yet.
func (p Policy) ApplyPayment(u *domain.User, now time.Time) {
	base := now
	if u.PaidUntil != nil && u.PaidUntil.After(now) {
		base = *u.PaidUntil
	}
	until := base.Add(p.PaidPeriod)
	u.PaidUntil = &until
	u.Tier = domain.TierPaid
}
