package entitlement

import (
	"errors"
	"testing"
	"time"

	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		user *domain.User
		want domain.Tier
	}{
		{"nil user", nil, domain.TierFree},
		{"fresh account", &domain.User{}, domain.TierFree},
		{"stale stored tier", &domain.User{Tier: domain.TierPaid, PaidUntil: at(-time.Hour)}, domain.TierFree},
		{"active trial", &domain.User{TrialEnd: at(time.Hour)}, domain.TierTrial},
		{"trial ends exactly now", &domain.User{TrialEnd: at(0)}, domain.TierFree},
		{"paid wins over trial", &domain.User{TrialEnd: at(time.Hour), PaidUntil: at(2 * time.Hour)}, domain.TierPaid},
		{"expired paid falls back to trial", &domain.User{TrialEnd: at(time.Hour), PaidUntil: at(-time.Hour)}, domain.TierTrial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := Resolve(tt.user, now)
			second := Resolve(tt.user, now)
			if first != tt.want || second != tt.want {
				t.Errorf("Resolve() = %s then %s, want %s", first, second, tt.want)
			}
		})
	}
}

func TestLimitsFor(t *testing.T) {
	free := LimitsFor(domain.TierFree)
	if free.MaxDays != 3 || free.ExportEnabled || free.DinnerMacrosVisible || free.RecipesFull {
		t.Errorf("free limits = %+v", free)
	}
	for _, tier := range []domain.Tier{domain.TierTrial, domain.TierPaid} {
		l := LimitsFor(tier)
		if l.MaxDays != 31 || !l.ExportEnabled || !l.DinnerMacrosVisible || !l.RecipesFull {
			t.Errorf("%s limits = %+v", tier, l)
		}
	}
}

func TestClampDays(t *testing.T) {
	free := LimitsFor(domain.TierFree)
	if got := ClampDays(10, free); got != 3 {
		t.Errorf("ClampDays(10) = %d", got)
	}
	if got := ClampDays(2, free); got != 2 {
		t.Errorf("ClampDays(2) = %d", got)
	}
}

func TestActivateTrialExactlyOnce(t *testing.T) {
	policy := NewPolicy(10, 30)
	u := &domain.User{TelegramID: 1}

	if err := policy.ActivateTrial(u, now); err != nil {
		t.Fatalf("ActivateTrial() error = %v", err)
	}
	if Resolve(u, now) != domain.TierTrial {
		t.Fatal("expected trial tier")
	}
	if !u.TrialEnd.Equal(now.Add(10 * 24 * time.Hour)) {
		t.Errorf("TrialEnd = %v", u.TrialEnd)
	}

	start, end := *u.TrialStart, *u.TrialEnd
	err := policy.ActivateTrial(u, now.Add(time.Hour))
	if !errors.Is(err, apperrors.ErrAlreadyEntitled) {
		t.Fatalf("second activation error = %v", err)
	}
	if !u.TrialStart.Equal(start) || !u.TrialEnd.Equal(end) {
		t.Error("timestamps changed on rejected activation")
	}

	// After the trial expired the account is free again, but the trial is spent.
	err = policy.ActivateTrial(u, now.Add(30*24*time.Hour))
	if !errors.Is(err, apperrors.ErrAlreadyEntitled) {
		t.Fatalf("activation after expiry error = %v", err)
	}
}

func TestActivateTrialWhilePaid(t *testing.T) {
	policy := NewPolicy(10, 30)
	paidUntil := now.Add(5 * 24 * time.Hour)
	u := &domain.User{PaidUntil: &paidUntil}

	if err := policy.ActivateTrial(u, now); !errors.Is(err, apperrors.ErrAlreadyEntitled) {
		t.Fatalf("error = %v", err)
	}
	if u.TrialEnd != nil || !u.PaidUntil.Equal(paidUntil) {
		t.Error("paid account was mutated")
	}
}

func TestApplyPayment(t *testing.T) {
	policy := NewPolicy(10, 30)
	period := 30 * 24 * time.Hour

	fresh := &domain.User{}
	policy.ApplyPayment(fresh, now)
	if !fresh.PaidUntil.Equal(now.Add(period)) || fresh.Tier != domain.TierPaid {
		t.Errorf("fresh payment = %v %s", fresh.PaidUntil, fresh.Tier)
	}

	active := &domain.User{PaidUntil: at(10 * 24 * time.Hour)}
	policy.ApplyPayment(active, now)
	if !active.PaidUntil.Equal(now.Add(10*24*time.Hour + period)) {
		t.Errorf("stacked PaidUntil = %v", active.PaidUntil)
	}

	lapsed := &domain.User{PaidUntil: at(-10 * 24 * time.Hour)}
	policy.ApplyPayment(lapsed, now)
	if !lapsed.PaidUntil.Equal(now.Add(period)) {
		t.Errorf("lapsed PaidUntil = %v", lapsed.PaidUntil)
	}
}
