package domain

import (
	"time"
)

// Tier is the entitlement level of an account.
type Tier string

const (
	TierFree  Tier = "free"
	TierTrial Tier = "trial"
	TierPaid  Tier = "paid"
)

// User represents a telegram user in the system
type User struct {
	ID         uint
	CreatedAt  time.Time
	UpdatedAt  time.Time
	TelegramID int64
	Username   string
	FirstName  string
	// Tier is the last tier written by the subscription workflow. Decisions
	// use entitlement.Resolve instead.
	Tier       Tier
	TrialUsed  bool
	TrialStart *time.Time
	TrialEnd   *time.Time
	PaidUntil  *time.Time
}

// DisplayName returns the best human-readable name for the user.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return "@" + u.Username
	default:
		return "пользователь"
	}
}

// EntitlementLimits are the feature limits bound to a tier.
type EntitlementLimits struct {
	MaxDays             int
	DinnerMacrosVisible bool
	ExportEnabled       bool
	RecipesFull         bool
}

// MacrosVisible reports whether calorie and macro figures of a meal in slot
// may be shown.
func (l EntitlementLimits) MacrosVisible(slot Slot) bool {
	return slot != SlotDinner || l.DinnerMacrosVisible
}

// Eater is a per-person profile collected by the wizard.
type Eater struct {
	Name  string `json:"name"`
	Age   *int   `json:"age,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// GenerationRequest is the frozen wizard output handed to plan generation.
type GenerationRequest struct {
	Diet      Diet            `json:"diet"`
	PartySize int             `json:"party_size"`
	DayCount  int             `json:"day_count"`
	Slots     []Slot          `json:"slots"`
	Times     map[Slot]string `json:"times"`
	Eaters    []Eater         `json:"eaters"`
}

// PlanStatus is the lifecycle status of a stored plan.
type PlanStatus string

const (
	PlanStatusDraft     PlanStatus = "draft"
	PlanStatusConfirmed PlanStatus = "confirmed"
)

// Plan is a persisted multi-day meal plan.
type Plan struct {
	ID           uint
	UserID       uint
	Diet         Diet
	PartySize    int
	DayCount     int
	MealTimes    map[Slot]string
	Eaters       []Eater
	Content      PlanContent
	ShoppingList *ShoppingList
	Status       PlanStatus
	CreatedAt    time.Time
}

// Slots returns the meal slots of the plan in canonical order.
func (p *Plan) Slots() []Slot {
	var slots []Slot
	for _, slot := range AllSlots() {
		if _, ok := p.MealTimes[slot]; ok {
			slots = append(slots, slot)
		}
	}
	return slots
}

// Payment is a recorded successful payment.
type Payment struct {
	ID               uint
	UserID           uint
	Amount           int
	Currency         string
	Status           string
	ProviderChargeID string
	Payload          string
	CreatedAt        time.Time
}

// Substitution is a suggested replacement set for one ingredient.
type Substitution struct {
	Ingredient  string   `json:"-"`
	Substitutes []string `json:"substitutes"`
	Notes       string   `json:"notes"`
}
