// Package wizard holds the conversation engines: the menu-creation wizard,
// the generation step that ends it, and the single-dish editor.
package wizard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
)

type Step string

const (
	StepDiet       Step = "collect_diet"
	StepPartySize  Step = "collect_party_size"
	StepEaters     Step = "collect_eater_profiles"
	StepDayCount   Step = "collect_day_count"
	StepMealSlots  Step = "collect_meal_slots"
	StepMealTimes  Step = "collect_meal_times"
	StepConfirm    Step = "confirm"
	StepGenerating Step = "generating"
)

const MaxPartySize = 50

// Action is the kind of user input fed to a step.
type Action string

const (
	ActionText    Action = "text"
	ActionChoose  Action = "choose"
	ActionCustom  Action = "custom"
	ActionSkip    Action = "skip"
	ActionToggle  Action = "toggle"
	ActionDone    Action = "done"
	ActionConfirm Action = "confirm"
	ActionCancel  Action = "cancel"
)

type Input struct {
	Action Action
	Value  string
}

func Text(v string) Input { return Input{Action: ActionText, Value: v} }
func Choose(v string) Input { return Input{Action: ActionChoose, Value: v} }
func Toggle(v string) Input { return Input{Action: ActionToggle, Value: v} }
func Do(action Action) Input { return Input{Action: action} }

// Outcome tells the caller what happened after an input was applied.
type Outcome int

const (
	// OutcomeContinue: the session moved or stayed; prompt for s.Step.
	OutcomeContinue Outcome = iota
	// OutcomeCancelled: the session must be discarded.
	OutcomeCancelled
	// OutcomeReady: confirm was pressed; generation may start.
	OutcomeReady
)

// Session is the per-conversation accumulator of the wizard.
type Session struct {
	ConversationID int64                  `json:"conversation_id"`
	TelegramID     int64                  `json:"telegram_id"`
	Step           Step                   `json:"step"`
	Diet           domain.Diet            `json:"diet,omitempty"`
	PartySize      int                    `json:"party_size,omitempty"`
	Eaters         []domain.Eater         `json:"eaters,omitempty"`
	DayCount       int                    `json:"day_count,omitempty"`
	MaxDays        int                    `json:"max_days,omitempty"`
	Slots          []domain.Slot          `json:"slots,omitempty"`
	Times          map[domain.Slot]string `json:"times,omitempty"`
	AwaitingCustom bool                   `json:"awaiting_custom,omitempty"`
	GenerationID   string                 `json:"generation_id,omitempty"`
	StartedAt      time.Time              `json:"started_at"`
}

// EaterIndex is the 0-based index of the next profile to collect.
func (s *Session) EaterIndex() int {
	return len(s.Eaters)
}

// HasSlot reports whether slot is selected.
func (s *Session) HasSlot(slot domain.Slot) bool {
	for _, sel := range s.Slots {
		if sel == slot {
			return true
		}
	}
	return false
}

// Request freezes the collected data into a GenerationRequest.
func (s *Session) Request() (domain.GenerationRequest, error) {
	switch {
	case s.Diet == "":
		return domain.GenerationRequest{}, fmt.Errorf("diet not collected")
	case s.PartySize < 1 || s.PartySize > MaxPartySize:
		return domain.GenerationRequest{}, fmt.Errorf("party size %d out of range", s.PartySize)
	case len(s.Eaters) != s.PartySize:
		return domain.GenerationRequest{}, fmt.Errorf("collected %d of %d profiles", len(s.Eaters), s.PartySize)
	case s.DayCount < 1:
		return domain.GenerationRequest{}, fmt.Errorf("day count not collected")
	case len(s.Slots) == 0:
		return domain.GenerationRequest{}, fmt.Errorf("no meal slots selected")
	}

	times := make(map[domain.Slot]string, len(s.Slots))
	for _, slot := range s.Slots {
		t, ok := s.Times[slot]
		if !ok {
			return domain.GenerationRequest{}, fmt.Errorf("no time for slot %s", slot)
		}
		times[slot] = t
	}
	return domain.GenerationRequest{
		Diet:      s.Diet,
		PartySize: s.PartySize,
		DayCount:  s.DayCount,
		Slots:     append([]domain.Slot(nil), s.Slots...),
		Times:     times,
		Eaters:    append([]domain.Eater(nil), s.Eaters...),
	}, nil
}

// LimitsResolver resolves the current entitlement limits of an account.
type LimitsResolver interface {
	Limits(ctx context.Context, telegramID int64) (domain.EntitlementLimits, error)
}

// Machine applies user input to wizard sessions. It holds no session state.
type Machine struct {
	catalog *domain.Catalog
	limits  LimitsResolver
	now     domain.Clock
}

func NewMachine(catalog *domain.Catalog, limits LimitsResolver, now domain.Clock) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{catalog: catalog, limits: limits, now: now}
}

func (m *Machine) Catalog() *domain.Catalog {
	return m.catalog
}

// Start opens a new session at the diet step.
func (m *Machine) Start(conversationID, telegramID int64) *Session {
	return &Session{
		ConversationID: conversationID,
		TelegramID:     telegramID,
		Step:           StepDiet,
		StartedAt:      m.now(),
	}
}

// Apply feeds one input to s. A validation error leaves the collected data
// untouched so the caller can re-prompt the same step.
func (m *Machine) Apply(ctx context.Context, s *Session, in Input) (Outcome, error) {
	if in.Action == ActionCancel {
		return OutcomeCancelled, nil
	}

	switch s.Step {
	case StepDiet:
		return OutcomeContinue, m.applyDiet(s, in)
	case StepPartySize:
		return OutcomeContinue, m.applyPartySize(s, in)
	case StepEaters:
		return OutcomeContinue, m.applyEater(ctx, s, in)
	case StepDayCount:
		return OutcomeContinue, m.applyDayCount(ctx, s, in)
	case StepMealSlots:
		return OutcomeContinue, m.applyMealSlots(s, in)
	case StepMealTimes:
		return OutcomeContinue, m.applyMealTimes(s, in)
	case StepConfirm:
		if in.Action == ActionConfirm {
			return OutcomeReady, nil
		}
		return OutcomeContinue, unexpected(s.Step, in)
	case StepGenerating:
		return OutcomeContinue, apperrors.ErrGenerationInProgress
	default:
		return OutcomeContinue, apperrors.NewInternalError(fmt.Errorf("unknown wizard step %q", s.Step))
	}
}

func (m *Machine) applyDiet(s *Session, in Input) error {
	if in.Action != ActionChoose && in.Action != ActionText {
		return unexpected(s.Step, in)
	}
	diet, ok := m.matchDiet(in.Value)
	if !ok {
		return apperrors.NewValidationError("INVALID_DIET", "unknown diet category").
			WithContext("value", in.Value)
	}
	s.Diet = diet
	s.Step = StepPartySize
	return nil
}

func (m *Machine) matchDiet(value string) (domain.Diet, bool) {
	value = strings.TrimSpace(value)
	if d, ok := m.catalog.Diet(domain.Diet(strings.ToLower(value))); ok {
		return d.Key, true
	}
	for _, d := range m.catalog.Diets {
		if strings.EqualFold(d.Label, value) {
			return d.Key, true
		}
	}
	return "", false
}

func (m *Machine) applyPartySize(s *Session, in Input) error {
	switch in.Action {
	case ActionCustom:
		s.AwaitingCustom = true
		return nil
	case ActionChoose, ActionText:
	default:
		return unexpected(s.Step, in)
	}

	n, err := strconv.Atoi(strings.TrimSpace(in.Value))
	if err != nil || n < 1 || n > MaxPartySize {
		return apperrors.NewValidationError("INVALID_PARTY_SIZE",
			fmt.Sprintf("party size must be between 1 and %d", MaxPartySize)).
			WithContext("value", in.Value)
	}
	s.PartySize = n
	s.Eaters = nil
	s.AwaitingCustom = false
	s.Step = StepEaters
	return nil
}

func (m *Machine) applyEater(ctx context.Context, s *Session, in Input) error {
	index := s.EaterIndex()
	var eater domain.Eater
	switch in.Action {
	case ActionSkip:
		eater = domain.Eater{Name: PlaceholderName(index)}
	case ActionText:
		eater = ParseEater(in.Value, index)
	default:
		return unexpected(s.Step, in)
	}

	if index+1 < s.PartySize {
		s.Eaters = append(s.Eaters, eater)
		return nil
	}

	limits, err := m.limits.Limits(ctx, s.TelegramID)
	if err != nil {
		return err
	}
	s.Eaters = append(s.Eaters, eater)
	s.MaxDays = limits.MaxDays
	s.Step = StepDayCount
	return nil
}

func (m *Machine) applyDayCount(ctx context.Context, s *Session, in Input) error {
	switch in.Action {
	case ActionCustom:
		s.AwaitingCustom = true
		return nil
	case ActionChoose, ActionText:
	default:
		return unexpected(s.Step, in)
	}

	limits, err := m.limits.Limits(ctx, s.TelegramID)
	if err != nil {
		return err
	}
	s.MaxDays = limits.MaxDays

	n, err := strconv.Atoi(strings.TrimSpace(in.Value))
	if err != nil || n < 1 || n > limits.MaxDays {
		return apperrors.NewValidationError("INVALID_DAY_COUNT",
			fmt.Sprintf("day count must be between 1 and %d", limits.MaxDays)).
			WithContext("max_days", limits.MaxDays).
			WithContext("value", in.Value)
	}
	s.DayCount = n
	s.AwaitingCustom = false
	s.Slots = nil
	s.Step = StepMealSlots
	return nil
}

func (m *Machine) applyMealSlots(s *Session, in Input) error {
	switch in.Action {
	case ActionToggle:
		slot := domain.Slot(in.Value)
		if _, ok := m.catalog.Slot(slot); !ok {
			return apperrors.NewValidationError("INVALID_SLOT", "unknown meal slot").
				WithContext("value", in.Value)
		}
		s.Slots = toggleSlot(s.Slots, slot)
		return nil
	case ActionDone:
		if len(s.Slots) == 0 {
			return apperrors.NewValidationError("NO_SLOTS_SELECTED", "select at least one meal")
		}
		s.Times = m.defaultTimes(s.Slots)
		s.Step = StepMealTimes
		return nil
	default:
		return unexpected(s.Step, in)
	}
}

// toggleSlot flips membership of slot and keeps canonical slot order.
func toggleSlot(selected []domain.Slot, slot domain.Slot) []domain.Slot {
	set := make(map[domain.Slot]bool, len(selected)+1)
	for _, s := range selected {
		set[s] = true
	}
	set[slot] = !set[slot]

	var out []domain.Slot
	for _, s := range domain.AllSlots() {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}

func (m *Machine) defaultTimes(slots []domain.Slot) map[domain.Slot]string {
	times := make(map[domain.Slot]string, len(slots))
	for _, slot := range slots {
		times[slot] = m.catalog.DefaultTime(slot)
	}
	return times
}

func (m *Machine) applyMealTimes(s *Session, in Input) error {
	times := m.defaultTimes(s.Slots)
	switch in.Action {
	case ActionSkip, ActionDone:
	case ActionText:
		for slot, t := range ParseMealTimes(m.catalog, in.Value) {
			if s.HasSlot(slot) {
				times[slot] = t
			}
		}
	default:
		return unexpected(s.Step, in)
	}
	s.Times = times
	s.Step = StepConfirm
	return nil
}

func unexpected(step Step, in Input) error {
	return apperrors.NewValidationError("UNEXPECTED_INPUT", "input does not fit the current step").
		WithContext("step", string(step)).
		WithContext("action", string(in.Action))
}
