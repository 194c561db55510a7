package handlers

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/keyboards"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/state"
	"github.com/vladimiradmaev/menupro-bot/internal/config"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
	"github.com/vladimiradmaev/menupro-bot/internal/services"
	"github.com/vladimiradmaev/menupro-bot/internal/wizard"
)

const testChatID int64 = 100

type recordingSender struct {
	mu    sync.Mutex
	texts []string
}

func (s *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		s.texts = append(s.texts, m.Text)
	case tgbotapi.EditMessageTextConfig:
		s.texts = append(s.texts, m.Text)
	}
	return tgbotapi.Message{MessageID: len(s.texts)}, nil
}

func (s *recordingSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (s *recordingSender) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.texts) == 0 {
		return ""
	}
	return s.texts[len(s.texts)-1]
}

type fakeUsers struct {
	limits   domain.EntitlementLimits
	payments []services.PaymentEvent
}

func (f *fakeUsers) RegisterUser(ctx context.Context, telegramID int64, username, firstName string) (*domain.User, error) {
	return &domain.User{ID: 1, TelegramID: telegramID, Username: username, FirstName: firstName}, nil
}

func (f *fakeUsers) GetUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	return &domain.User{ID: 1, TelegramID: telegramID}, nil
}

func (f *fakeUsers) Limits(ctx context.Context, telegramID int64) (domain.EntitlementLimits, error) {
	return f.limits, nil
}

func (f *fakeUsers) Profile(ctx context.Context, telegramID int64) (*services.Profile, error) {
	return &services.Profile{User: &domain.User{TelegramID: telegramID}, Tier: domain.TierFree, Limits: f.limits}, nil
}

func (f *fakeUsers) ActivateTrial(ctx context.Context, telegramID int64) (*domain.User, error) {
	return nil, apperrors.ErrAlreadyEntitled
}

func (f *fakeUsers) InvoicePayload(telegramID int64) string {
	return "sub:1:test"
}

func (f *fakeUsers) RecordPayment(ctx context.Context, ev services.PaymentEvent) (*domain.User, error) {
	f.payments = append(f.payments, ev)
	return &domain.User{TelegramID: ev.TelegramID, Tier: domain.TierPaid}, nil
}

type fakePlans struct{}

func (fakePlans) View(ctx context.Context, telegramID int64, planID uint) (*services.PlanView, error) {
	return nil, apperrors.NewNotFoundError("plan", planID)
}

func (fakePlans) RecentPlans(ctx context.Context, telegramID int64) ([]domain.Plan, error) {
	return nil, nil
}

func (fakePlans) DeletePlan(ctx context.Context, telegramID int64, planID uint) error {
	return nil
}

func (fakePlans) ShoppingList(ctx context.Context, telegramID int64, planID uint, regenerate bool) (*domain.ShoppingList, *domain.Plan, error) {
	return nil, nil, apperrors.NewFeatureLockedError("export")
}

func (fakePlans) Recipes(ctx context.Context, telegramID int64, planID uint) ([]services.DishRecipes, error) {
	return nil, nil
}

func (fakePlans) Substitutes(ctx context.Context, telegramID int64, ingredient string) (*domain.Substitution, error) {
	return &domain.Substitution{Ingredient: ingredient, Substitutes: []string{"тофу"}}, nil
}

func (fakePlans) Tip(ctx context.Context) (string, error) {
	return "Пейте воду.", nil
}

type fakeExport struct{}

func (fakeExport) Enabled() bool { return false }

func (fakeExport) MenuPDF(ctx context.Context, telegramID int64, planID uint) (*services.Document, error) {
	return nil, apperrors.NewFeatureLockedError("pdf")
}

func (fakeExport) ShoppingListPDF(ctx context.Context, telegramID int64, planID uint) (*services.Document, error) {
	return nil, apperrors.NewFeatureLockedError("pdf")
}

type fakeSupport struct{}

func (fakeSupport) Enabled() bool { return false }

func (fakeSupport) Send(ctx context.Context, user *domain.User, subject, message string) error {
	return apperrors.NewFeatureLockedError("support")
}

func newTestHandler(t *testing.T) (*UpdateHandler, *recordingSender, state.Store) {
	t.Helper()
	h, sender, store, _ := newTestHandlerWithUsers(t)
	return h, sender, store
}

func newTestHandlerWithUsers(t *testing.T) (*UpdateHandler, *recordingSender, state.Store, *fakeUsers) {
	t.Helper()
	catalog := domain.DefaultCatalog()
	users := &fakeUsers{limits: domain.EntitlementLimits{MaxDays: 3}}
	store := state.NewManager(time.Hour)
	sender := &recordingSender{}
	h := NewUpdateHandler(sender, Dependencies{
		UserService:    users,
		PlanService:    fakePlans{},
		ExportService:  fakeExport{},
		SupportService: fakeSupport{},
		Machine:        wizard.NewMachine(catalog, users, nil),
		Locks:          wizard.NewLocks(),
		Conversations:  store,
		Catalog:        catalog,
		Subscription:   config.SubscriptionConfig{PriceRUB: 299, TrialDays: 10, PaidPeriodDays: 30},
	})
	return h, sender, store, users
}

func textUpdate(text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: testChatID},
		From: &tgbotapi.User{ID: 42, FirstName: "Анна"},
		Text: text,
	}
	if strings.HasPrefix(text, "/") {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	}
	return tgbotapi.Update{Message: msg}
}

func callbackUpdate(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: 42},
		Message: &tgbotapi.Message{
			MessageID: 9,
			Chat:      &tgbotapi.Chat{ID: testChatID},
		},
		Data: data,
	}}
}

func mustHandle(t *testing.T, h *UpdateHandler, u tgbotapi.Update) {
	t.Helper()
	if err := h.Handle(context.Background(), u); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
}

func conversation(t *testing.T, store state.Store) *state.Conversation {
	t.Helper()
	conv, err := store.Get(context.Background(), testChatID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	return conv
}

func TestStartSendsMainMenu(t *testing.T) {
	h, sender, _ := newTestHandler(t)
	mustHandle(t, h, textUpdate("/start"))
	if !strings.Contains(sender.last(), "Анна") {
		t.Errorf("main menu does not greet the user: %q", sender.last())
	}
}

func TestTextWithoutFlow(t *testing.T) {
	h, sender, _ := newTestHandler(t)
	mustHandle(t, h, textUpdate("привет"))
	if sender.last() != "Выберите действие в меню ниже." {
		t.Errorf("reply = %q", sender.last())
	}
}

func TestWizardAdvancesOnDietButton(t *testing.T) {
	h, _, store := newTestHandler(t)
	mustHandle(t, h, textUpdate("/new"))

	conv := conversation(t, store)
	if conv == nil || conv.Flow != state.FlowMenu || conv.Menu.Step != wizard.StepDiet {
		t.Fatalf("conversation after /new = %+v", conv)
	}

	diet := domain.DefaultCatalog().Diets[0].Key
	mustHandle(t, h, callbackUpdate(keyboards.DietPrefix+string(diet)))

	conv = conversation(t, store)
	if conv.Menu.Step != wizard.StepPartySize || conv.Menu.Diet != diet {
		t.Errorf("session = %+v, want party size step with diet %s", conv.Menu, diet)
	}
}

func TestWizardRejectsUnknownDiet(t *testing.T) {
	h, sender, store := newTestHandler(t)
	mustHandle(t, h, textUpdate("/new"))
	before := len(sender.texts)

	mustHandle(t, h, textUpdate("сыроедение по лунному календарю"))

	conv := conversation(t, store)
	if conv.Menu.Step != wizard.StepDiet {
		t.Errorf("step = %s, want %s", conv.Menu.Step, wizard.StepDiet)
	}
	if got := len(sender.texts) - before; got != 2 {
		t.Errorf("sent %d messages, want error and prompt", got)
	}
}

func TestCancelClearsFlow(t *testing.T) {
	h, sender, store := newTestHandler(t)
	mustHandle(t, h, textUpdate("/new"))
	mustHandle(t, h, textUpdate("/cancel"))

	if conv := conversation(t, store); conv != nil {
		t.Errorf("conversation after cancel = %+v", conv)
	}
	if sender.last() != cancelledText {
		t.Errorf("reply = %q", sender.last())
	}
}

func TestStaleButtons(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"wizard button without wizard", keyboards.DietPrefix + "vegan"},
		{"edit button without editor", keyboards.EditDayPrefix + "1"},
		{"malformed plan id", keyboards.PlanPrefix + "abc"},
		{"unknown data", "nonsense"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, sender, _ := newTestHandler(t)
			mustHandle(t, h, callbackUpdate(tt.data))
			if sender.last() != staleText {
				t.Errorf("reply = %q, want stale notice", sender.last())
			}
		})
	}
}

func TestSubstituteFlow(t *testing.T) {
	h, sender, store := newTestHandler(t)
	mustHandle(t, h, callbackUpdate(keyboards.SubstituteData))
	if conv := conversation(t, store); conv == nil || conv.Flow != state.FlowSubstitute {
		t.Fatalf("conversation = %+v", conv)
	}

	mustHandle(t, h, textUpdate("курица"))
	if conv := conversation(t, store); conv != nil {
		t.Errorf("substitute flow not cleared: %+v", conv)
	}
	if !strings.Contains(sender.last(), "тофу") {
		t.Errorf("reply = %q", sender.last())
	}
}

func TestSupportUnavailable(t *testing.T) {
	h, sender, store := newTestHandler(t)
	mustHandle(t, h, callbackUpdate(keyboards.SupportData))
	if sender.last() != "Поддержка временно недоступна." {
		t.Errorf("reply = %q", sender.last())
	}
	if conv := conversation(t, store); conv != nil {
		t.Errorf("conversation = %+v", conv)
	}
}

func TestServiceErrorIsReported(t *testing.T) {
	h, sender, _ := newTestHandler(t)
	err := h.Handle(context.Background(), callbackUpdate(keyboards.PlanPrefix+"5"))
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Fatalf("Handle() error = %v, want not found", err)
	}
	if sender.last() == "" {
		t.Error("no error message sent")
	}
}

func paymentUpdate(currency string, amount int, payload string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: testChatID},
		From: &tgbotapi.User{ID: 42},
		SuccessfulPayment: &tgbotapi.SuccessfulPayment{
			Currency:                currency,
			TotalAmount:             amount,
			InvoicePayload:          payload,
			ProviderPaymentChargeID: "ch-1",
		},
	}}
}

func TestSuccessfulPaymentMustMatchOffer(t *testing.T) {
	tests := []struct {
		name     string
		currency string
		amount   int
		payload  string
	}{
		{"wrong currency", "USD", 29900, "sub:42:a"},
		{"wrong amount", "RUB", 100, "sub:42:a"},
		{"foreign payload", "RUB", 29900, "donation:42"},
		{"invoice of another user", "RUB", 29900, "sub:43:a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _, users := newTestHandlerWithUsers(t)
			err := h.Handle(context.Background(), paymentUpdate(tt.currency, tt.amount, tt.payload))
			if err == nil {
				t.Fatal("mismatched payment accepted")
			}
			if len(users.payments) != 0 {
				t.Errorf("payment recorded: %+v", users.payments)
			}
		})
	}
}

func TestSuccessfulPaymentRecorded(t *testing.T) {
	h, _, _, users := newTestHandlerWithUsers(t)
	mustHandle(t, h, paymentUpdate("RUB", 29900, "sub:42:a"))

	if len(users.payments) != 1 {
		t.Fatalf("payments = %+v", users.payments)
	}
	if got := users.payments[0]; got.Amount != 299 || got.TelegramID != 42 || got.ProviderChargeID != "ch-1" {
		t.Errorf("payment = %+v", got)
	}
}
