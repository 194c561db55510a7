package menus

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/keyboards"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	"github.com/vladimiradmaev/menupro-bot/internal/services"
	"github.com/vladimiradmaev/menupro-bot/internal/wizard"
)

const proFooter = "🔒 Калорийность ужина, список покупок и PDF доступны в PRO"

var slotIcons = map[domain.Slot]string{
	domain.SlotBreakfast: "🌅",
	domain.SlotBrunch:    "🥤",
	domain.SlotLunch:     "🍱",
	domain.SlotSnack:     "🍎",
	domain.SlotDinner:    "🌙",
}

// PlanSummary renders a stored plan. Calories of a meal are shown only when
// limits allow it for the meal's slot.
func PlanSummary(catalog *domain.Catalog, plan *domain.Plan, limits domain.EntitlementLimits) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>Меню #%d</b>\n", plan.ID)
	fmt.Fprintf(&b, "Режим: %s\n", esc(catalog.DietLabel(plan.Diet)))
	fmt.Fprintf(&b, "Человек: %d, дней: %d\n", plan.PartySize, plan.DayCount)
	var times []string
	for _, slot := range plan.Slots() {
		times = append(times, fmt.Sprintf("%s %s", catalog.SlotName(slot), plan.MealTimes[slot]))
	}
	if len(times) > 0 {
		fmt.Fprintf(&b, "Приёмы пищи: %s\n", esc(strings.Join(times, ", ")))
	}

	for _, day := range plan.Content.SortedDays() {
		label := day.DateLabel
		if label == "" {
			label = fmt.Sprintf("День %d", day.Day)
		}
		fmt.Fprintf(&b, "\n<b>📅 %s</b>", esc(label))
		if limits.DinnerMacrosVisible && day.DayTotalCalories.Valid {
			fmt.Fprintf(&b, " (%s ккал)", day.DayTotalCalories)
		}
		b.WriteString("\n")

		for _, meal := range day.Meals {
			name := meal.MealName
			if name == "" {
				name = catalog.SlotName(meal.MealType)
			}
			fmt.Fprintf(&b, "%s <b>%s</b>", slotIcon(meal.MealType), esc(name))
			if meal.Time != "" {
				fmt.Fprintf(&b, " %s", esc(meal.Time))
			}
			b.WriteString("\n")

			visible := limits.MacrosVisible(meal.MealType)
			for _, dish := range meal.Dishes {
				b.WriteString("  • " + esc(dish.Name))
				if visible && dish.Calories.Valid {
					fmt.Fprintf(&b, " — %s ккал", dish.Calories)
				}
				b.WriteString("\n")
			}
		}
	}

	if !limits.DinnerMacrosVisible {
		b.WriteString("\n" + proFooter)
	}
	return strings.TrimRight(b.String(), "\n")
}

func slotIcon(slot domain.Slot) string {
	if icon, ok := slotIcons[slot]; ok {
		return icon
	}
	return "🍽️"
}

// ShoppingListText renders the non-empty categories of a list.
func ShoppingListText(list *domain.ShoppingList) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛒 <b>Список покупок</b> (%d поз.)\n", list.TotalItems)
	for _, c := range list.NonEmptyCategories() {
		fmt.Fprintf(&b, "\n<b>%s</b>\n", esc(c.Name))
		for _, item := range c.Items {
			line := item.Name
			if item.TotalAmount.Valid {
				line = strings.TrimSpace(fmt.Sprintf("%s — %s %s", item.Name, item.TotalAmount, item.Unit))
			}
			b.WriteString("☐ " + esc(line) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// RecipesText lists search links per dish.
func RecipesText(catalog *domain.Catalog, recipes []services.DishRecipes, limits domain.EntitlementLimits) string {
	if len(recipes) == 0 {
		return "В этом меню нет блюд для поиска рецептов."
	}
	var b strings.Builder
	b.WriteString("📖 <b>Рецепты</b>\n")
	for _, r := range recipes {
		fmt.Fprintf(&b, "\n<b>%s</b> <i>(день %d, %s)</i>\n", esc(r.Dish.Name), r.Day, esc(strings.ToLower(catalog.SlotName(r.Slot))))
		for _, l := range r.Links {
			fmt.Fprintf(&b, "🔎 <a href=\"%s\">%s</a>\n", esc(l.URL), esc(l.Query))
		}
	}
	if !limits.RecipesFull {
		b.WriteString("\n🔒 Рецепты ужинов доступны в PRO")
	}
	return strings.TrimRight(b.String(), "\n")
}

func RecentPlansText(plans []domain.Plan) string {
	if len(plans) == 0 {
		return "У вас пока нет сохранённых меню. Нажмите «Создать меню» в главном меню."
	}
	return fmt.Sprintf("📋 <b>Ваши последние меню</b> (%d)\n\nВыберите меню:", len(plans))
}

func DeletePrompt(planID uint) string {
	return fmt.Sprintf("Удалить меню #%d? Это действие нельзя отменить.", planID)
}

func SubstitutionText(sub *domain.Substitution) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔄 <b>Чем заменить «%s»</b>\n\n", esc(sub.Ingredient))
	for i, s := range sub.Substitutes {
		fmt.Fprintf(&b, "%d. %s\n", i+1, esc(s))
	}
	if sub.Notes != "" {
		b.WriteString("\n💬 " + esc(sub.Notes))
	}
	return strings.TrimRight(b.String(), "\n")
}

func TipText(tip string) string {
	return "💡 <b>Совет дня</b>\n\n" + esc(tip)
}

const (
	SubstitutePrompt = "🔄 Напишите продукт, который хотите заменить, например: <i>курица</i>"
	SupportPrompt    = "✉️ Выберите тему обращения:"
)

func SupportMessagePrompt(subject string) string {
	return fmt.Sprintf("Тема: %s\n\nОпишите ваш вопрос одним сообщением.", esc(services.SupportSubjects[subject]))
}

// EditPrompt renders the question for the current step of an edit.
func EditPrompt(catalog *domain.Catalog, s *wizard.EditSession, plan *domain.Plan) (string, tgbotapi.InlineKeyboardMarkup) {
	switch s.Step {
	case wizard.EditChooseDay:
		return fmt.Sprintf("✏️ <b>Замена блюда в меню #%d</b>\n\nВыберите день:", plan.ID),
			keyboards.EditDays(plan.Content.DayIndices())

	case wizard.EditChooseMeal:
		day, _ := plan.Content.DayByIndex(s.Day)
		var meals []domain.Meal
		if day != nil {
			meals = day.Meals
		}
		return fmt.Sprintf("День %d. Выберите приём пищи:", s.Day), keyboards.EditMeals(catalog, meals)

	case wizard.EditChooseDish:
		var dishes []domain.Dish
		if meal, err := plan.Content.Meal(s.Day, s.Meal); err == nil {
			dishes = meal.Dishes
		}
		return "Выберите блюдо, которое хотите заменить:", keyboards.EditDishes(dishes)

	default:
		current := ""
		if meal, err := plan.Content.Meal(s.Day, s.Meal); err == nil && s.Dish >= 1 && s.Dish <= len(meal.Dishes) {
			current = meal.Dishes[s.Dish-1].Name
		}
		return fmt.Sprintf("Сейчас: <b>%s</b>\n\nНапишите название нового блюда:", esc(current)),
			keyboards.CancelOnly()
	}
}
