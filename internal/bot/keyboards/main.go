package keyboards

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	"github.com/vladimiradmaev/menupro-bot/internal/services"
)

// Callback data sent by buttons without an argument.
const (
	MainMenuData     = "main_menu"
	NewMenuData      = "new_menu"
	MyPlansData      = "my_plans"
	ProfileData      = "profile"
	SubscriptionData = "subscription"
	TrialData        = "trial"
	BuyData          = "buy"
	TipData          = "tip"
	SubstituteData   = "substitute"
	SupportData      = "support"
	HelpData         = "help"
	CancelData       = "cancel"
	ConfirmData      = "confirm"
	PeopleCustomData = "people_custom"
	DaysCustomData   = "days_custom"
	EaterSkipData    = "eater_skip"
	SlotsDoneData    = "slots_done"
	TimesSkipData    = "times_skip"
)

// Callback data prefixes; the argument follows the colon.
const (
	DietPrefix      = "diet:"
	PeoplePrefix    = "people:"
	DaysPrefix      = "days:"
	SlotPrefix      = "slot:"
	PlanPrefix      = "plan:"
	ShopPrefix      = "shop:"
	ShopRegenPrefix = "shop_regen:"
	ShopPDFPrefix   = "shop_pdf:"
	MenuPDFPrefix   = "pdf:"
	RecipesPrefix   = "recipes:"
	EditPrefix      = "edit:"
	DeletePrefix    = "del:"
	DeleteYesPrefix = "del_yes:"
	EditDayPrefix   = "edit_day:"
	EditMealPrefix  = "edit_meal:"
	EditDishPrefix  = "edit_dish:"
	SupportPrefix   = "support:"
)

var (
	partySizePresets = []int{1, 2, 3, 4, 5, 6}
	dayCountPresets  = []int{1, 3, 5, 7, 14, 30}

	// SupportOrder is the button order of support subjects.
	SupportOrder = []string{"bug", "idea", "question", "payment"}
)

func data(prefix string, v interface{}) string {
	return prefix + fmt.Sprint(v)
}

func cancelRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", CancelData),
	)
}

func mainMenuRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ Главное меню", MainMenuData),
	)
}

// MainMenu creates the main menu keyboard
func MainMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🍽️ Создать меню", NewMenuData),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Мои меню", MyPlansData),
			tgbotapi.NewInlineKeyboardButtonData("👤 Профиль", ProfileData),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💡 Совет дня", TipData),
			tgbotapi.NewInlineKeyboardButtonData("🔄 Замена продукта", SubstituteData),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⭐ Подписка PRO", SubscriptionData),
			tgbotapi.NewInlineKeyboardButtonData("✉️ Поддержка", SupportData),
		),
	)
}

// Diets lists the diet categories two per row
func Diets(catalog *domain.Catalog) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, d := range catalog.Diets {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(d.Label, data(DietPrefix, d.Key)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, cancelRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// PartySize offers preset head counts and a custom entry
func PartySize() tgbotapi.InlineKeyboardMarkup {
	var presets []tgbotapi.InlineKeyboardButton
	for _, n := range partySizePresets {
		presets = append(presets, tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(n), data(PeoplePrefix, n)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		presets[:3],
		presets[3:],
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Другое число", PeopleCustomData),
		),
		cancelRow(),
	)
}

func EaterProfile() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏭️ Пропустить", EaterSkipData),
		),
		cancelRow(),
	)
}

// DayCount offers the presets that fit maxDays
func DayCount(maxDays int) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, n := range dayCountPresets {
		if n > maxDays {
			break
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(n), data(DaysPrefix, n)))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Другое число", DaysCustomData),
		),
		cancelRow(),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// MealSlots shows every slot with its selection mark
func MealSlots(catalog *domain.Catalog, selected func(domain.Slot) bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, s := range catalog.Slots {
		mark := "⬜"
		if selected(s.Key) {
			mark = "✅"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(mark+" "+s.Label, data(SlotPrefix, s.Key)),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➡️ Готово", SlotsDoneData),
		),
		cancelRow(),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func MealTimes() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👌 Оставить как есть", TimesSkipData),
		),
		cancelRow(),
	)
}

func Confirm() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Создать меню", ConfirmData),
		),
		cancelRow(),
	)
}

// CancelOnly is attached to free-text prompts
func CancelOnly() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(cancelRow())
}

// PlanActions lists what can be done with a plan. Export actions appear
// only when the tier allows them; pdf reports whether PDF rendering is
// configured.
func PlanActions(planID uint, limits domain.EntitlementLimits, pdf bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📖 Рецепты", data(RecipesPrefix, planID)),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Заменить блюдо", data(EditPrefix, planID)),
		),
	}
	if limits.ExportEnabled {
		shop := tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛒 Список покупок", data(ShopPrefix, planID)),
		)
		if pdf {
			shop = append(shop, tgbotapi.NewInlineKeyboardButtonData("📄 PDF", data(MenuPDFPrefix, planID)))
		}
		rows = append(rows, shop)
	} else {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔓 Список покупок и PDF в PRO", SubscriptionData),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑️ Удалить", data(DeletePrefix, planID)),
		),
		mainMenuRow(),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func ShoppingList(planID uint, pdf bool) tgbotapi.InlineKeyboardMarkup {
	row := tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 Пересобрать", data(ShopRegenPrefix, planID)),
	)
	if pdf {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("📄 PDF", data(ShopPDFPrefix, planID)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		row,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ К меню", data(PlanPrefix, planID)),
		),
	)
}

// BackToPlan returns to the plan summary
func BackToPlan(planID uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ К меню", data(PlanPrefix, planID)),
		),
	)
}

// RecentPlans creates one button per stored plan
func RecentPlans(catalog *domain.Catalog, plans []domain.Plan) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range plans {
		label := fmt.Sprintf("%s · %d дн. · %s", catalog.DietLabel(p.Diet), p.DayCount, p.CreatedAt.Format("02.01"))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, data(PlanPrefix, p.ID)),
		))
	}
	rows = append(rows, mainMenuRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func DeleteConfirm(planID uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑️ Да, удалить", data(DeleteYesPrefix, planID)),
			tgbotapi.NewInlineKeyboardButtonData("◀️ Нет", data(PlanPrefix, planID)),
		),
	)
}

func Profile() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⭐ Подписка PRO", SubscriptionData),
			tgbotapi.NewInlineKeyboardButtonData("📋 Мои меню", MyPlansData),
		),
		mainMenuRow(),
	)
}

// Subscription offers the trial while it is unused and the purchase
func Subscription(tier domain.Tier, trialUsed bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if tier == domain.TierFree && !trialUsed {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎁 Попробовать бесплатно", TrialData),
		))
	}
	buy := "💳 Оформить PRO"
	if tier == domain.TierPaid {
		buy = "💳 Продлить PRO"
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(buy, BuyData)),
		mainMenuRow(),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func SupportSubjects() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, key := range SupportOrder {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(services.SupportSubjects[key], data(SupportPrefix, key)),
		))
	}
	rows = append(rows, mainMenuRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// EditDays offers the days of a plan in ascending order
func EditDays(days []int) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, d := range days {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("День %d", d), data(EditDayPrefix, d)))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, cancelRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// EditMeals offers the meals of a day by their 1-based position
func EditMeals(catalog *domain.Catalog, meals []domain.Meal) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, m := range meals {
		label := m.MealName
		if label == "" {
			label = catalog.SlotName(m.MealType)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, data(EditMealPrefix, i+1)),
		))
	}
	rows = append(rows, cancelRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// EditDishes offers the dishes of a meal by their 1-based position
func EditDishes(dishes []domain.Dish) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, d := range dishes {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(buttonText(d.Name), data(EditDishPrefix, i+1)),
		))
	}
	rows = append(rows, cancelRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func buttonText(s string) string {
	r := []rune(s)
	if len(r) > 40 {
		return string(r[:39]) + "…"
	}
	return s
}
