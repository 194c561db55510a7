package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(t *time.Time) domain.Clock {
	return func() time.Time { return *t }
}

type fakeUsers struct {
	byTelegram map[int64]*domain.User
	saves      int
	saveErr    error
}

func newFakeUsers(users ...*domain.User) *fakeUsers {
	f := &fakeUsers{byTelegram: make(map[int64]*domain.User)}
	for _, u := range users {
		f.byTelegram[u.TelegramID] = u
	}
	return f
}

func (f *fakeUsers) GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName string) (*domain.User, error) {
	if u, ok := f.byTelegram[telegramID]; ok {
		c := *u
		return &c, nil
	}
	u := &domain.User{ID: uint(len(f.byTelegram) + 1), TelegramID: telegramID, Username: username, FirstName: firstName, Tier: domain.TierFree}
	f.byTelegram[telegramID] = u
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	u, ok := f.byTelegram[telegramID]
	if !ok {
		return nil, apperrors.NewNotFoundError("user", telegramID)
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) SaveEntitlement(ctx context.Context, u *domain.User) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	c := *u
	f.byTelegram[u.TelegramID] = &c
	return nil
}

type fakePlans struct {
	plans    map[uint]*domain.Plan
	nextID   uint
	attached int
}

func newFakePlans(plans ...*domain.Plan) *fakePlans {
	f := &fakePlans{plans: make(map[uint]*domain.Plan), nextID: 100}
	for _, p := range plans {
		f.plans[p.ID] = p
	}
	return f
}

func (f *fakePlans) GetPlan(ctx context.Context, id uint) (*domain.Plan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("plan", id)
	}
	c := *p
	return &c, nil
}

func (f *fakePlans) CreatePlan(ctx context.Context, p *domain.Plan) (uint, error) {
	f.nextID++
	c := *p
	c.ID = f.nextID
	c.CreatedAt = testNow
	f.plans[c.ID] = &c
	return c.ID, nil
}

func (f *fakePlans) UpdatePlanContent(ctx context.Context, id uint, content domain.PlanContent) error {
	p, ok := f.plans[id]
	if !ok {
		return apperrors.NewNotFoundError("plan", id)
	}
	p.Content = content
	return nil
}

func (f *fakePlans) AttachShoppingList(ctx context.Context, id uint, list *domain.ShoppingList) error {
	p, ok := f.plans[id]
	if !ok {
		return apperrors.NewNotFoundError("plan", id)
	}
	f.attached++
	p.ShoppingList = list
	return nil
}

func (f *fakePlans) DeletePlan(ctx context.Context, id uint) error {
	if _, ok := f.plans[id]; !ok {
		return apperrors.NewNotFoundError("plan", id)
	}
	delete(f.plans, id)
	return nil
}

func (f *fakePlans) ListRecentPlans(ctx context.Context, userID uint, limit int) ([]domain.Plan, error) {
	var out []domain.Plan
	for _, p := range f.plans {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePlans) CountPlans(ctx context.Context, userID uint) (int64, error) {
	plans, _ := f.ListRecentPlans(ctx, userID, len(f.plans)+1)
	return int64(len(plans)), nil
}

// fakePayments writes the payment and the entitlement of users together and
// drops the payment again when the entitlement write fails.
type fakePayments struct {
	users    *fakeUsers
	recorded []domain.Payment
}

func (f *fakePayments) RecordPayment(ctx context.Context, p *domain.Payment, u *domain.User) error {
	for _, r := range f.recorded {
		if r.ProviderChargeID == p.ProviderChargeID {
			return apperrors.New(apperrors.ErrorTypeConflict, "DUPLICATE_CHARGE", "payment already recorded")
		}
	}
	f.recorded = append(f.recorded, *p)
	if f.users != nil {
		if err := f.users.SaveEntitlement(ctx, u); err != nil {
			f.recorded = f.recorded[:len(f.recorded)-1]
			return err
		}
	}
	p.ID = uint(len(f.recorded))
	return nil
}

type fakeGateway struct {
	content     *domain.PlanContent
	err         error
	gotReq      domain.GenerationRequest
	gotLimits   domain.EntitlementLimits
	lists       int
	queriesErr  error
	queryCalls  int
	gotDiet     domain.Diet
	substitutes *domain.Substitution
}

func (g *fakeGateway) GeneratePlan(ctx context.Context, req domain.GenerationRequest, limits domain.EntitlementLimits) (*domain.PlanContent, error) {
	g.gotReq, g.gotLimits = req, limits
	if g.err != nil {
		return nil, g.err
	}
	return g.content, nil
}

func (g *fakeGateway) GenerateShoppingList(ctx context.Context, content domain.PlanContent, partySize int) (*domain.ShoppingList, error) {
	g.lists++
	return &domain.ShoppingList{
		Categories: []domain.ShoppingCategory{{Name: "Крупы и злаки", Items: []domain.ShoppingItem{
			{Name: "Гречка", TotalAmount: domain.NewAmount(float64(100 * partySize)), Unit: "г"},
		}}},
		TotalItems: g.lists,
	}, nil
}

func (g *fakeGateway) SuggestSearchQueries(ctx context.Context, dish string) ([]string, error) {
	g.queryCalls++
	if g.queriesErr != nil {
		return nil, g.queriesErr
	}
	return []string{dish + " рецепт пошагово", dish + " быстро"}, nil
}

func (g *fakeGateway) GenerateTip(ctx context.Context) (string, error) {
	return "Пейте воду.", nil
}

func (g *fakeGateway) SuggestSubstitutes(ctx context.Context, ingredient string, diet domain.Diet) (*domain.Substitution, error) {
	g.gotDiet = diet
	if g.substitutes == nil {
		return nil, errors.New("not configured")
	}
	return g.substitutes, nil
}

// planContent builds days × slots with two dishes per meal.
func planContent(days int, slots ...domain.Slot) domain.PlanContent {
	var c domain.PlanContent
	for d := 1; d <= days; d++ {
		day := domain.Day{Day: d, DayTotalCalories: domain.NewAmount(1800)}
		for _, s := range slots {
			meal := domain.Meal{MealType: s, MealName: string(s), Time: "08:00"}
			for i := 1; i <= 2; i++ {
				meal.Dishes = append(meal.Dishes, domain.Dish{
					Name:     string(s) + " блюдо " + string(rune('0'+d)) + string(rune('0'+i)),
					Calories: domain.NewAmount(400),
					Proteins: domain.NewAmount(20),
				})
			}
			day.Meals = append(day.Meals, meal)
		}
		c.Days = append(c.Days, day)
	}
	return c
}
