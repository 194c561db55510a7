package menus

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/keyboards"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	"github.com/vladimiradmaev/menupro-bot/internal/wizard"
)

// WizardPrompt renders the question for the current step of s.
func WizardPrompt(catalog *domain.Catalog, s *wizard.Session) (string, tgbotapi.InlineKeyboardMarkup) {
	switch s.Step {
	case wizard.StepDiet:
		return "🍽️ <b>Новое меню</b>\n\nВыберите режим питания:", keyboards.Diets(catalog)

	case wizard.StepPartySize:
		if s.AwaitingCustom {
			return fmt.Sprintf("Введите количество человек числом от 1 до %d:", wizard.MaxPartySize), keyboards.CancelOnly()
		}
		return fmt.Sprintf("Режим: %s\n\n👥 Сколько человек будет питаться по меню?", esc(catalog.DietLabel(s.Diet))),
			keyboards.PartySize()

	case wizard.StepEaters:
		return fmt.Sprintf(`👤 <b>Человек %d из %d</b>

Напишите через запятую: имя, возраст, предпочтения.
Например: <i>Анна, 30, не ест орехи</i>

Можно пропустить, тогда будет «%s».`,
			s.EaterIndex()+1, s.PartySize, wizard.PlaceholderName(s.EaterIndex())), keyboards.EaterProfile()

	case wizard.StepDayCount:
		if s.AwaitingCustom {
			return fmt.Sprintf("Введите количество дней числом от 1 до %d:", s.MaxDays), keyboards.CancelOnly()
		}
		return fmt.Sprintf("📅 На сколько дней составить меню? Доступно до %d.", s.MaxDays),
			keyboards.DayCount(s.MaxDays)

	case wizard.StepMealSlots:
		text := "🕐 Выберите приёмы пищи и нажмите «Готово»."
		if len(s.Slots) > 0 {
			text += "\n\nВыбрано: " + esc(slotNames(catalog, s.Slots))
		}
		return text, keyboards.MealSlots(catalog, s.HasSlot)

	case wizard.StepMealTimes:
		var lines []string
		for _, slot := range s.Slots {
			lines = append(lines, fmt.Sprintf("• %s: %s", esc(catalog.SlotName(slot)), s.Times[slot]))
		}
		return fmt.Sprintf(`⏰ Время приёмов пищи:

%s

Чтобы изменить, напишите, например: <i>завтрак 07:30, ужин 20:00</i>`, strings.Join(lines, "\n")),
			keyboards.MealTimes()

	case wizard.StepConfirm:
		return ConfirmSummary(catalog, s), keyboards.Confirm()

	default:
		return GeneratingText, keyboards.CancelOnly()
	}
}

const GeneratingText = "⏳ Составляю меню, это может занять до минуты…\n\nЧтобы отменить, нажмите /cancel."

// ConfirmSummary lists everything collected before generation.
func ConfirmSummary(catalog *domain.Catalog, s *wizard.Session) string {
	var b strings.Builder
	b.WriteString("📝 <b>Проверьте параметры</b>\n\n")
	fmt.Fprintf(&b, "Режим: %s\n", esc(catalog.DietLabel(s.Diet)))
	fmt.Fprintf(&b, "Дней: %d\n", s.DayCount)
	fmt.Fprintf(&b, "Человек: %d\n", s.PartySize)
	for _, e := range s.Eaters {
		b.WriteString("  • " + esc(EaterText(e)) + "\n")
	}
	b.WriteString("Приёмы пищи:\n")
	for _, slot := range s.Slots {
		fmt.Fprintf(&b, "  • %s: %s\n", esc(catalog.SlotName(slot)), s.Times[slot])
	}
	return strings.TrimRight(b.String(), "\n")
}

func EaterText(e domain.Eater) string {
	text := e.Name
	if e.Age != nil {
		text += fmt.Sprintf(", %d", *e.Age)
	}
	if e.Notes != "" {
		text += ", " + e.Notes
	}
	return text
}

func slotNames(catalog *domain.Catalog, slots []domain.Slot) string {
	names := make([]string, 0, len(slots))
	for _, s := range slots {
		names = append(names, catalog.SlotName(s))
	}
	return strings.Join(names, ", ")
}
