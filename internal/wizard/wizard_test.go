package wizard

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	"github.com/vladimiradmaev/menupro-bot/internal/entitlement"
	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
)

type fakeLimits struct {
	tier  domain.Tier
	err   error
	calls int
}

func (f *fakeLimits) Limits(ctx context.Context, telegramID int64) (domain.EntitlementLimits, error) {
	f.calls++
	if f.err != nil {
		return domain.EntitlementLimits{}, f.err
	}
	return entitlement.LimitsFor(f.tier), nil
}

func newMachine(tier domain.Tier) (*Machine, *fakeLimits) {
	limits := &fakeLimits{tier: tier}
	return NewMachine(domain.DefaultCatalog(), limits, nil), limits
}

func mustApply(t *testing.T, m *Machine, s *Session, in Input) Outcome {
	t.Helper()
	out, err := m.Apply(context.Background(), s, in)
	if err != nil {
		t.Fatalf("Apply(%s, %+v) error = %v", s.Step, in, err)
	}
	return out
}

func validationCode(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeValidation {
		return appErr.Code
	}
	return ""
}

func TestWizardVegetarianFamily(t *testing.T) {
	m, _ := newMachine(domain.TierFree)
	s := m.Start(100, 42)

	mustApply(t, m, s, Choose("vegetarian"))
	mustApply(t, m, s, Choose("2"))
	mustApply(t, m, s, Text("Anna, 30, no nuts"))
	if s.Step != StepEaters || s.EaterIndex() != 1 {
		t.Fatalf("after first profile step = %s index = %d", s.Step, s.EaterIndex())
	}
	mustApply(t, m, s, Text("Leo, 8, dislikes spicy"))
	if s.Step != StepDayCount || s.MaxDays != 3 {
		t.Fatalf("step = %s max days = %d", s.Step, s.MaxDays)
	}
	mustApply(t, m, s, Choose("3"))
	for _, slot := range []string{"dinner", "breakfast", "lunch"} {
		mustApply(t, m, s, Toggle(slot))
	}
	mustApply(t, m, s, Do(ActionDone))
	mustApply(t, m, s, Do(ActionSkip))
	if s.Step != StepConfirm {
		t.Fatalf("step = %s, want confirm", s.Step)
	}
	if out := mustApply(t, m, s, Do(ActionConfirm)); out != OutcomeReady {
		t.Fatalf("outcome = %v, want ready", out)
	}

	req, err := s.Request()
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	wantSlots := []domain.Slot{domain.SlotBreakfast, domain.SlotLunch, domain.SlotDinner}
	if !reflect.DeepEqual(req.Slots, wantSlots) {
		t.Errorf("slots = %v, want %v", req.Slots, wantSlots)
	}
	wantTimes := map[domain.Slot]string{
		domain.SlotBreakfast: "08:00",
		domain.SlotLunch:     "13:00",
		domain.SlotDinner:    "19:00",
	}
	if !reflect.DeepEqual(req.Times, wantTimes) {
		t.Errorf("times = %v, want %v", req.Times, wantTimes)
	}
	if req.Diet != "vegetarian" || req.PartySize != 2 || req.DayCount != 3 {
		t.Errorf("request = %+v", req)
	}
	if len(req.Eaters) != 2 || req.Eaters[1].Name != "Leo" || *req.Eaters[1].Age != 8 || req.Eaters[1].Notes != "dislikes spicy" {
		t.Errorf("eaters = %+v", req.Eaters)
	}
}

func TestWizardFreeTierRejectsLongPlans(t *testing.T) {
	m, _ := newMachine(domain.TierFree)
	s := &Session{TelegramID: 1, Step: StepDayCount, Diet: "healthy", PartySize: 1,
		Eaters: []domain.Eater{{Name: "A"}}}

	_, err := m.Apply(context.Background(), s, Choose("10"))
	if validationCode(err) != "INVALID_DAY_COUNT" {
		t.Fatalf("error = %v, want INVALID_DAY_COUNT", err)
	}
	var appErr *apperrors.AppError
	errors.As(err, &appErr)
	if appErr.Context["max_days"] != 3 {
		t.Errorf("max_days context = %v", appErr.Context["max_days"])
	}
	if s.Step != StepDayCount || s.DayCount != 0 {
		t.Errorf("session changed: step = %s day count = %d", s.Step, s.DayCount)
	}

	mustApply(t, m, s, Text(" 3 "))
	if s.DayCount != 3 || s.Step != StepMealSlots {
		t.Errorf("day count = %d step = %s", s.DayCount, s.Step)
	}
}

func TestWizardPaidTierAllowsMonth(t *testing.T) {
	m, _ := newMachine(domain.TierPaid)
	s := &Session{Step: StepDayCount}

	mustApply(t, m, s, Do(ActionCustom))
	if !s.AwaitingCustom {
		t.Fatal("custom should await free text")
	}
	mustApply(t, m, s, Text("31"))
	if s.DayCount != 31 || s.AwaitingCustom {
		t.Errorf("session = %+v", s)
	}

	s = &Session{Step: StepDayCount}
	if _, err := m.Apply(context.Background(), s, Text("32")); validationCode(err) != "INVALID_DAY_COUNT" {
		t.Errorf("32 days error = %v", err)
	}
}

func TestWizardValidation(t *testing.T) {
	tests := []struct {
		name string
		s    Session
		in   Input
		code string
	}{
		{"unknown diet", Session{Step: StepDiet}, Choose("pizza"), "INVALID_DIET"},
		{"zero people", Session{Step: StepPartySize}, Text("0"), "INVALID_PARTY_SIZE"},
		{"too many people", Session{Step: StepPartySize}, Text("51"), "INVALID_PARTY_SIZE"},
		{"non-numeric people", Session{Step: StepPartySize}, Text("two"), "INVALID_PARTY_SIZE"},
		{"zero days", Session{Step: StepDayCount, MaxDays: 3}, Text("0"), "INVALID_DAY_COUNT"},
		{"unknown slot", Session{Step: StepMealSlots}, Toggle("supper"), "INVALID_SLOT"},
		{"no slots", Session{Step: StepMealSlots}, Do(ActionDone), "NO_SLOTS_SELECTED"},
		{"text on slots", Session{Step: StepMealSlots}, Text("breakfast"), "UNEXPECTED_INPUT"},
		{"text on confirm", Session{Step: StepConfirm}, Text("yes"), "UNEXPECTED_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newMachine(domain.TierFree)
			s := tt.s
			before := s
			out, err := m.Apply(context.Background(), &s, tt.in)
			if got := validationCode(err); got != tt.code {
				t.Fatalf("code = %q (err %v), want %q", got, err, tt.code)
			}
			if out != OutcomeContinue {
				t.Errorf("outcome = %v", out)
			}
			if !reflect.DeepEqual(s, before) {
				t.Errorf("session changed: %+v", s)
			}
		})
	}
}

func TestWizardDietByLabel(t *testing.T) {
	m, _ := newMachine(domain.TierFree)
	s := m.Start(1, 1)
	label := m.Catalog().DietLabel("keto")
	mustApply(t, m, s, Text(label))
	if s.Diet != "keto" {
		t.Errorf("diet = %q", s.Diet)
	}
}

func TestWizardCancelFromAnyStep(t *testing.T) {
	steps := []Step{StepDiet, StepPartySize, StepEaters, StepDayCount, StepMealSlots, StepMealTimes, StepConfirm, StepGenerating}
	m, _ := newMachine(domain.TierFree)
	for _, step := range steps {
		s := &Session{Step: step}
		out, err := m.Apply(context.Background(), s, Do(ActionCancel))
		if err != nil || out != OutcomeCancelled {
			t.Errorf("%s: outcome = %v, err = %v", step, out, err)
		}
	}
}

func TestWizardGeneratingRejectsInput(t *testing.T) {
	m, _ := newMachine(domain.TierFree)
	s := &Session{Step: StepGenerating}
	if _, err := m.Apply(context.Background(), s, Do(ActionConfirm)); !errors.Is(err, apperrors.ErrGenerationInProgress) {
		t.Errorf("error = %v", err)
	}
}

func TestWizardSkipProfiles(t *testing.T) {
	m, limits := newMachine(domain.TierTrial)
	s := &Session{Step: StepEaters, PartySize: 3}
	for i := 0; i < 3; i++ {
		mustApply(t, m, s, Do(ActionSkip))
	}
	want := []string{"Человек 1", "Человек 2", "Человек 3"}
	for i, e := range s.Eaters {
		if e.Name != want[i] || e.Age != nil || e.Notes != "" {
			t.Errorf("eater %d = %+v", i, e)
		}
	}
	if s.Step != StepDayCount || s.MaxDays != 31 {
		t.Errorf("step = %s max = %d", s.Step, s.MaxDays)
	}
	if limits.calls != 1 {
		t.Errorf("limits resolved %d times, want once after the last profile", limits.calls)
	}
}

func TestWizardLimitsFailureKeepsProfile(t *testing.T) {
	m, limits := newMachine(domain.TierFree)
	limits.err = errors.New("db down")
	s := &Session{Step: StepEaters, PartySize: 1}
	if _, err := m.Apply(context.Background(), s, Text("Anna")); err == nil {
		t.Fatal("expected error")
	}
	if len(s.Eaters) != 0 || s.Step != StepEaters {
		t.Errorf("session = %+v", s)
	}
}

func TestToggleSlotKeepsCanonicalOrder(t *testing.T) {
	m, _ := newMachine(domain.TierFree)
	s := &Session{Step: StepMealSlots}
	for _, slot := range []string{"dinner", "snack", "breakfast", "snack"} {
		mustApply(t, m, s, Toggle(slot))
	}
	want := []domain.Slot{domain.SlotBreakfast, domain.SlotDinner}
	if !reflect.DeepEqual(s.Slots, want) {
		t.Errorf("slots = %v, want %v", s.Slots, want)
	}
}

func TestWizardMealTimesOverride(t *testing.T) {
	m, _ := newMachine(domain.TierFree)
	s := &Session{Step: StepMealTimes, Slots: []domain.Slot{domain.SlotBreakfast, domain.SlotDinner}}

	mustApply(t, m, s, Text("Завтрак 07:30, обед 14:00; второй завтрак 10:30\nужин 20.15, полдник 10:00"))
	want := map[domain.Slot]string{domain.SlotBreakfast: "07:30", domain.SlotDinner: "20:15"}
	if !reflect.DeepEqual(s.Times, want) {
		t.Errorf("times = %v, want %v", s.Times, want)
	}
	if s.Step != StepConfirm {
		t.Errorf("step = %s", s.Step)
	}
}

func TestParseEater(t *testing.T) {
	age := func(n int) *int { return &n }
	tests := []struct {
		in   string
		want domain.Eater
	}{
		{"Anna, 30, no nuts", domain.Eater{Name: "Anna", Age: age(30), Notes: "no nuts"}},
		// A second field that is not an integer starts the notes.
		{"Anna, no nuts", domain.Eater{Name: "Anna", Notes: "no nuts"}},
		{"Anna, 30 years, no nuts", domain.Eater{Name: "Anna", Notes: "30 years, no nuts"}},
		{"Leo, -5, dislikes spicy", domain.Eater{Name: "Leo", Notes: "dislikes spicy"}},
		{"Leo, 0", domain.Eater{Name: "Leo"}},
		{"Bob, likes fish, no milk", domain.Eater{Name: "Bob", Notes: "likes fish, no milk"}},
		{"Kate", domain.Eater{Name: "Kate"}},
		{" , 40", domain.Eater{Name: "Человек 2", Age: age(40)}},
		{"Ivan,35,,vegan", domain.Eater{Name: "Ivan", Age: age(35), Notes: "vegan"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseEater(tt.in, 1)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseEater(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseMealTimes(t *testing.T) {
	c := domain.DefaultCatalog()
	tests := []struct {
		in   string
		want map[domain.Slot]string
	}{
		{"breakfast 7:05", map[domain.Slot]string{domain.SlotBreakfast: "07:05"}},
		{"Второй завтрак - 10:30", map[domain.Slot]string{domain.SlotBrunch: "10:30"}},
		{"ужин: 19:45; LUNCH 12:00", map[domain.Slot]string{domain.SlotDinner: "19:45", domain.SlotLunch: "12:00"}},
		{"завтрак 25:00, чай 10:00, просто текст", map[domain.Slot]string{}},
		{"", map[domain.Slot]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseMealTimes(c, tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseMealTimes(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
