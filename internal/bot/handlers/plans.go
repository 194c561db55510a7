package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/keyboards"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/menus"
	"github.com/vladimiradmaev/menupro-bot/internal/services"
)

// showPlan sends the summary of a plan with the actions its owner may use.
func (b *base) showPlan(ctx context.Context, chatID, telegramID int64, planID uint) error {
	view, err := b.deps.PlanService.View(ctx, telegramID, planID)
	if err != nil {
		return err
	}
	markup := keyboards.PlanActions(planID, view.Limits, b.deps.ExportService.Enabled())
	return b.send(chatID, menus.PlanSummary(b.deps.Catalog, view.Plan, view.Limits), &markup)
}

func (b *base) showRecentPlans(ctx context.Context, chatID, telegramID int64) error {
	plans, err := b.deps.PlanService.RecentPlans(ctx, telegramID)
	if err != nil {
		return err
	}
	markup := keyboards.RecentPlans(b.deps.Catalog, plans)
	return b.send(chatID, menus.RecentPlansText(plans), &markup)
}

func (b *base) showShoppingList(ctx context.Context, chatID, telegramID int64, planID uint, regenerate bool) error {
	if err := b.send(chatID, "⏳ Собираю список покупок…", nil); err != nil {
		return err
	}
	list, _, err := b.deps.PlanService.ShoppingList(ctx, telegramID, planID, regenerate)
	if err != nil {
		return err
	}
	markup := keyboards.ShoppingList(planID, b.deps.ExportService.Enabled())
	return b.send(chatID, menus.ShoppingListText(list), &markup)
}

func (b *base) showRecipes(ctx context.Context, chatID, telegramID int64, planID uint) error {
	if err := b.send(chatID, "⏳ Подбираю рецепты…", nil); err != nil {
		return err
	}
	recipes, err := b.deps.PlanService.Recipes(ctx, telegramID, planID)
	if err != nil {
		return err
	}
	limits, err := b.deps.UserService.Limits(ctx, telegramID)
	if err != nil {
		return err
	}
	markup := keyboards.BackToPlan(planID)
	return b.send(chatID, menus.RecipesText(b.deps.Catalog, recipes, limits), &markup)
}

func (b *base) sendExport(ctx context.Context, chatID, telegramID int64, planID uint, kind services.ExportKind) error {
	var (
		doc *services.Document
		err error
	)
	switch kind {
	case services.ExportShoppingList:
		doc, err = b.deps.ExportService.ShoppingListPDF(ctx, telegramID, planID)
	default:
		doc, err = b.deps.ExportService.MenuPDF(ctx, telegramID, planID)
	}
	if err != nil {
		return err
	}
	_, err = b.api.Send(tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: doc.Name, Bytes: doc.Data}))
	return err
}

func (b *base) deletePlan(ctx context.Context, chatID, telegramID int64, planID uint) error {
	if err := b.deps.PlanService.DeletePlan(ctx, telegramID, planID); err != nil {
		return err
	}
	markup := keyboards.MainMenu()
	return b.send(chatID, "🗑️ Меню удалено.", &markup)
}
