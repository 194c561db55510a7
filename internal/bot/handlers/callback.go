package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/keyboards"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/menus"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/state"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	"github.com/vladimiradmaev/menupro-bot/internal/services"
	"github.com/vladimiradmaev/menupro-bot/internal/wizard"
)

// CallbackHandler handles button presses
type CallbackHandler struct {
	*base
	payments *PaymentHandler
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(b *base, payments *PaymentHandler) *CallbackHandler {
	return &CallbackHandler{base: b, payments: payments}
}

// menuInputs maps wizard buttons without an argument to wizard input.
var menuInputs = map[string]wizard.Input{
	keyboards.PeopleCustomData: wizard.Do(wizard.ActionCustom),
	keyboards.DaysCustomData:   wizard.Do(wizard.ActionCustom),
	keyboards.EaterSkipData:    wizard.Do(wizard.ActionSkip),
	keyboards.SlotsDoneData:    wizard.Do(wizard.ActionDone),
	keyboards.TimesSkipData:    wizard.Do(wizard.ActionSkip),
	keyboards.ConfirmData:      wizard.Do(wizard.ActionConfirm),
}

// Handle processes a callback query
func (h *CallbackHandler) Handle(ctx context.Context, callback *tgbotapi.CallbackQuery, user *domain.User) error {
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID
	data := callback.Data

	switch data {
	case keyboards.MainMenuData:
		return h.sendMainMenu(chatID, user)
	case keyboards.HelpData:
		return menus.SendHelp(h.api, chatID)
	case keyboards.NewMenuData:
		return h.startMenu(ctx, chatID, user)
	case keyboards.CancelData:
		return h.cancel(ctx, chatID)
	case keyboards.MyPlansData:
		return h.showRecentPlans(ctx, chatID, user.TelegramID)
	case keyboards.ProfileData:
		return h.showProfile(ctx, chatID, user.TelegramID)
	case keyboards.SubscriptionData:
		return h.showSubscription(ctx, chatID, user.TelegramID)
	case keyboards.TrialData:
		return h.activateTrial(ctx, chatID, user.TelegramID)
	case keyboards.BuyData:
		return h.payments.SendInvoice(ctx, chatID, user.TelegramID)
	case keyboards.TipData:
		return h.sendTip(ctx, chatID)
	case keyboards.SubstituteData:
		return h.startSubstitute(ctx, chatID)
	case keyboards.SupportData:
		return h.startSupport(ctx, chatID, "")
	}

	if in, ok := menuInputs[data]; ok {
		return h.handleMenu(ctx, chatID, messageID, data, in)
	}

	prefixes := []struct {
		prefix string
		handle func(rest string) error
	}{
		{keyboards.DietPrefix, func(v string) error { return h.handleMenu(ctx, chatID, messageID, data, wizard.Choose(v)) }},
		{keyboards.PeoplePrefix, func(v string) error { return h.handleMenu(ctx, chatID, messageID, data, wizard.Choose(v)) }},
		{keyboards.DaysPrefix, func(v string) error { return h.handleMenu(ctx, chatID, messageID, data, wizard.Choose(v)) }},
		{keyboards.SlotPrefix, func(v string) error { return h.handleMenu(ctx, chatID, messageID, data, wizard.Toggle(v)) }},
		{keyboards.EditDayPrefix, func(v string) error { return h.handleEdit(ctx, chatID, data, wizard.Choose(v)) }},
		{keyboards.EditMealPrefix, func(v string) error { return h.handleEdit(ctx, chatID, data, wizard.Choose(v)) }},
		{keyboards.EditDishPrefix, func(v string) error { return h.handleEdit(ctx, chatID, data, wizard.Choose(v)) }},
		{keyboards.SupportPrefix, func(v string) error { return h.startSupport(ctx, chatID, v) }},
	}
	for _, p := range prefixes {
		if strings.HasPrefix(data, p.prefix) {
			return p.handle(strings.TrimPrefix(data, p.prefix))
		}
	}

	return h.handlePlanAction(ctx, chatID, user, data)
}

func (h *CallbackHandler) handleMenu(ctx context.Context, chatID int64, messageID int, data string, in wizard.Input) error {
	conv, err := h.conversation(ctx, chatID)
	if err != nil {
		return err
	}
	if flowOf(conv) != state.FlowMenu {
		return h.stale(ctx, chatID, flowOf(conv), data)
	}
	return h.applyMenu(ctx, chatID, messageID, conv, in)
}

func (h *CallbackHandler) handleEdit(ctx context.Context, chatID int64, data string, in wizard.Input) error {
	conv, err := h.conversation(ctx, chatID)
	if err != nil {
		return err
	}
	if flowOf(conv) != state.FlowEdit {
		return h.stale(ctx, chatID, flowOf(conv), data)
	}
	return h.applyEdit(ctx, chatID, conv, in)
}

// handlePlanAction dispatches buttons that carry a plan id.
func (h *CallbackHandler) handlePlanAction(ctx context.Context, chatID int64, user *domain.User, data string) error {
	actions := []struct {
		prefix string
		handle func(id uint) error
	}{
		{keyboards.PlanPrefix, func(id uint) error { return h.showPlan(ctx, chatID, user.TelegramID, id) }},
		{keyboards.ShopPrefix, func(id uint) error { return h.showShoppingList(ctx, chatID, user.TelegramID, id, false) }},
		{keyboards.ShopRegenPrefix, func(id uint) error { return h.showShoppingList(ctx, chatID, user.TelegramID, id, true) }},
		{keyboards.ShopPDFPrefix, func(id uint) error {
			return h.sendExport(ctx, chatID, user.TelegramID, id, services.ExportShoppingList)
		}},
		{keyboards.MenuPDFPrefix, func(id uint) error { return h.sendExport(ctx, chatID, user.TelegramID, id, services.ExportMenu) }},
		{keyboards.RecipesPrefix, func(id uint) error { return h.showRecipes(ctx, chatID, user.TelegramID, id) }},
		{keyboards.EditPrefix, func(id uint) error { return h.startEdit(ctx, chatID, user, id) }},
		{keyboards.DeleteYesPrefix, func(id uint) error { return h.deletePlan(ctx, chatID, user.TelegramID, id) }},
		{keyboards.DeletePrefix, func(id uint) error {
			markup := keyboards.DeleteConfirm(id)
			return h.send(chatID, menus.DeletePrompt(id), &markup)
		}},
	}
	for _, a := range actions {
		if !strings.HasPrefix(data, a.prefix) {
			continue
		}
		id, err := planID(data, a.prefix)
		if err != nil {
			return h.stale(ctx, chatID, "", data)
		}
		return a.handle(id)
	}
	return h.stale(ctx, chatID, "", data)
}

func (h *CallbackHandler) showProfile(ctx context.Context, chatID, telegramID int64) error {
	profile, err := h.deps.UserService.Profile(ctx, telegramID)
	if err != nil {
		return err
	}
	markup := keyboards.Profile()
	return h.send(chatID, menus.ProfileText(profile), &markup)
}

func (h *CallbackHandler) showSubscription(ctx context.Context, chatID, telegramID int64) error {
	profile, err := h.deps.UserService.Profile(ctx, telegramID)
	if err != nil {
		return err
	}
	sub := h.deps.Subscription
	markup := keyboards.Subscription(profile.Tier, profile.User.TrialUsed)
	return h.send(chatID, menus.SubscriptionText(profile, sub.PriceRUB, sub.TrialDays, sub.PaidPeriodDays), &markup)
}

func (h *CallbackHandler) activateTrial(ctx context.Context, chatID, telegramID int64) error {
	user, err := h.deps.UserService.ActivateTrial(ctx, telegramID)
	if err != nil {
		return err
	}
	markup := keyboards.MainMenu()
	return h.send(chatID, menus.TrialActivatedText(user), &markup)
}

func (h *CallbackHandler) sendTip(ctx context.Context, chatID int64) error {
	tip, err := h.deps.PlanService.Tip(ctx)
	if err != nil {
		return err
	}
	markup := keyboards.MainMenu()
	return h.send(chatID, menus.TipText(tip), &markup)
}
