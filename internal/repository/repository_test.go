package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/vladimiradmaev/menupro-bot/internal/database"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
)

func samplePlan(userID uint) *domain.Plan {
	age := 30
	return &domain.Plan{
		UserID:    userID,
		Diet:      "vegetarian",
		PartySize: 1,
		DayCount:  1,
		MealTimes: map[domain.Slot]string{domain.SlotBreakfast: "08:00"},
		Eaters:    []domain.Eater{{Name: "Anna", Age: &age}},
		Content: domain.PlanContent{Days: []domain.Day{{
			Day: 1, DateLabel: "День 1",
			Meals: []domain.Meal{{
				MealType: domain.SlotBreakfast, MealName: "Завтрак", Time: "08:00",
				Dishes: []domain.Dish{{Name: "Омлет", Ingredients: []domain.Ingredient{}, Calories: domain.NewAmount(320)}},
			}},
		}}},
	}
}

func TestPlanRowMapping(t *testing.T) {
	p := samplePlan(4)
	row, err := toPlanRow(p)
	if err != nil {
		t.Fatalf("toPlanRow() error = %v", err)
	}
	if row.Status != string(domain.PlanStatusDraft) {
		t.Errorf("status = %q, want draft by default", row.Status)
	}
	if row.ShoppingList != nil {
		t.Errorf("shopping list column = %s, want NULL", row.ShoppingList)
	}

	back, err := toDomainPlan(row)
	if err != nil {
		t.Fatalf("toDomainPlan() error = %v", err)
	}
	if back.ShoppingList != nil {
		t.Error("shopping list should stay nil")
	}
	if back.MealTimes[domain.SlotBreakfast] != "08:00" || *back.Eaters[0].Age != 30 {
		t.Errorf("plan = %+v", back)
	}
	if d := back.Content.Days[0].Meals[0].Dishes[0]; d.Name != "Омлет" || d.Calories.Value != 320 || d.Fats.Valid {
		t.Errorf("dish = %+v", d)
	}

	row.Content = []byte(`{"days":"broken"}`)
	if _, err := toDomainPlan(row); !apperrors.IsType(err, apperrors.ErrorTypeDatabase) {
		t.Errorf("broken content error = %v", err)
	}
}

func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skipf("TEST_DATABASE_DSN not set")
	}
	db, err := database.Open(dsn)
	if err != nil {
		t.Skipf("database unavailable: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	store := NewStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPostgresPlanLifecycle(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	telegramID := time.Now().UnixNano()

	user, err := store.Users.GetOrCreateUser(ctx, telegramID, "anna", "Anna")
	if err != nil {
		t.Fatalf("GetOrCreateUser() error = %v", err)
	}
	again, err := store.Users.GetOrCreateUser(ctx, telegramID, "", "Anya")
	if err != nil || again.ID != user.ID || again.FirstName != "Anya" || again.Username != "anna" {
		t.Fatalf("second GetOrCreateUser() = %+v, %v", again, err)
	}

	id, err := store.Plans.CreatePlan(ctx, samplePlan(user.ID))
	if err != nil {
		t.Fatalf("CreatePlan() error = %v", err)
	}

	content := samplePlan(user.ID).Content
	if err := content.ReplaceDish(1, 1, 1, "Сырники"); err != nil {
		t.Fatal(err)
	}
	if err := store.Plans.UpdatePlanContent(ctx, id, content); err != nil {
		t.Fatalf("UpdatePlanContent() error = %v", err)
	}
	list := &domain.ShoppingList{Categories: []domain.ShoppingCategory{{Name: "Прочее",
		Items: []domain.ShoppingItem{{Name: "Творог", TotalAmount: domain.NewAmount(400), Unit: "г"}}}}, TotalItems: 1}
	if err := store.Plans.AttachShoppingList(ctx, id, list); err != nil {
		t.Fatalf("AttachShoppingList() error = %v", err)
	}

	got, err := store.Plans.GetPlan(ctx, id)
	if err != nil {
		t.Fatalf("GetPlan() error = %v", err)
	}
	if got.Content.Days[0].Meals[0].Dishes[0].Name != "Сырники" || got.ShoppingList == nil || got.ShoppingList.TotalItems != 1 {
		t.Errorf("plan = %+v", got)
	}

	recent, err := store.Plans.ListRecentPlans(ctx, user.ID, 5)
	if err != nil || len(recent) != 1 {
		t.Fatalf("ListRecentPlans() = %d, %v", len(recent), err)
	}
	if n, err := store.Plans.CountPlans(ctx, user.ID); err != nil || n != 1 {
		t.Errorf("CountPlans() = %d, %v", n, err)
	}

	if err := store.Plans.DeletePlan(ctx, id); err != nil {
		t.Fatalf("DeletePlan() error = %v", err)
	}
	if _, err := store.Plans.GetPlan(ctx, id); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetPlan after delete error = %v", err)
	}
}

func TestPostgresEntitlementAndPayments(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	user, err := store.Users.GetOrCreateUser(ctx, time.Now().UnixNano(), "", "Leo")
	if err != nil {
		t.Fatal(err)
	}
	end := time.Now().Add(240 * time.Hour).Truncate(time.Second)
	user.Tier, user.TrialUsed, user.TrialEnd = domain.TierTrial, true, &end
	if err := store.Users.SaveEntitlement(ctx, user); err != nil {
		t.Fatalf("SaveEntitlement() error = %v", err)
	}
	got, err := store.Users.GetUserByTelegramID(ctx, user.TelegramID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.TrialUsed || got.TrialEnd == nil || !got.TrialEnd.Equal(end) {
		t.Errorf("user = %+v", got)
	}

	paidUntil := time.Now().Add(720 * time.Hour).Truncate(time.Second)
	paid := *got
	paid.Tier, paid.PaidUntil = domain.TierPaid, &paidUntil
	p := &domain.Payment{UserID: user.ID, Amount: 299, Currency: "RUB", Status: "paid", ProviderChargeID: "ch_" + time.Now().Format(time.RFC3339Nano)}
	if err := store.Payments.RecordPayment(ctx, p, &paid); err != nil || p.ID == 0 {
		t.Fatalf("RecordPayment() = %d, %v", p.ID, err)
	}
	got, err = store.Users.GetUserByTelegramID(ctx, user.TelegramID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tier != domain.TierPaid || got.PaidUntil == nil || !got.PaidUntil.Equal(paidUntil) {
		t.Errorf("user after payment = %+v", got)
	}
}

func TestPostgresPaymentRollsBackWithEntitlement(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	user, err := store.Users.GetOrCreateUser(ctx, time.Now().UnixNano(), "", "Mia")
	if err != nil {
		t.Fatal(err)
	}
	paidUntil := time.Now().Add(720 * time.Hour)
	missing := *user
	missing.ID = 0
	missing.Tier, missing.PaidUntil = domain.TierPaid, &paidUntil

	charge := "ch_rollback_" + time.Now().Format(time.RFC3339Nano)
	p := &domain.Payment{UserID: user.ID, Amount: 299, Currency: "RUB", Status: "paid", ProviderChargeID: charge}
	if err := store.Payments.RecordPayment(ctx, p, &missing); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("RecordPayment() error = %v, want not found", err)
	}

	var rows int64
	if err := store.db.Model(&database.Payment{}).Where("provider_charge_id = ?", charge).Count(&rows).Error; err != nil {
		t.Fatal(err)
	}
	if rows != 0 {
		t.Errorf("payment rows = %d after failed entitlement write, want 0", rows)
	}
	got, err := store.Users.GetUserByTelegramID(ctx, user.TelegramID)
	if err != nil {
		t.Fatal(err)
	}
	if got.PaidUntil != nil || got.Tier != domain.TierFree {
		t.Errorf("user = %+v, want unchanged", got)
	}

	// The redelivered charge goes through once the entitlement write succeeds.
	missing.ID = user.ID
	if err := store.Payments.RecordPayment(ctx, p, &missing); err != nil {
		t.Errorf("retry RecordPayment() error = %v", err)
	}
}
