package menus

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
	"github.com/vladimiradmaev/menupro-bot/internal/services"
	"github.com/vladimiradmaev/menupro-bot/internal/wizard"
)

var tierNames = map[domain.Tier]string{
	domain.TierFree:  "Бесплатный",
	domain.TierTrial: "Пробный PRO",
	domain.TierPaid:  "PRO",
}

func TierName(tier domain.Tier) string {
	if name, ok := tierNames[tier]; ok {
		return name
	}
	return string(tier)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "—"
	}
	return t.Format("02.01.2006")
}

func ProfileText(p *services.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 <b>%s</b>\n\n", esc(p.User.DisplayName()))
	fmt.Fprintf(&b, "Тариф: %s\n", TierName(p.Tier))
	switch p.Tier {
	case domain.TierTrial:
		fmt.Fprintf(&b, "Пробный период до: %s\n", formatDate(p.User.TrialEnd))
	case domain.TierPaid:
		fmt.Fprintf(&b, "Оплачено до: %s\n", formatDate(p.User.PaidUntil))
	}
	fmt.Fprintf(&b, "Меню до %d дней\n", p.Limits.MaxDays)
	fmt.Fprintf(&b, "Создано меню: %d", p.PlanCount)
	return b.String()
}

// SubscriptionText describes the current tier and what PRO adds.
func SubscriptionText(p *services.Profile, priceRUB, trialDays, periodDays int) string {
	var b strings.Builder
	b.WriteString("⭐ <b>МенюПро PRO</b>\n\n")
	b.WriteString("• меню до 31 дня\n• калорийность и БЖУ всех приёмов пищи\n• список покупок и PDF\n• рецепты для всех блюд\n\n")
	switch p.Tier {
	case domain.TierPaid:
		fmt.Fprintf(&b, "Подписка активна до %s.\n", formatDate(p.User.PaidUntil))
	case domain.TierTrial:
		fmt.Fprintf(&b, "Пробный период активен до %s.\n", formatDate(p.User.TrialEnd))
	default:
		if !p.User.TrialUsed {
			fmt.Fprintf(&b, "Попробуйте бесплатно %d дней.\n", trialDays)
		}
	}
	fmt.Fprintf(&b, "Стоимость: %d ₽ за %d дней.", priceRUB, periodDays)
	return b.String()
}

func TrialActivatedText(u *domain.User) string {
	return fmt.Sprintf("🎁 Пробный период PRO активирован до %s. Приятного аппетита!", formatDate(u.TrialEnd))
}

func PaymentReceivedText(u *domain.User) string {
	return fmt.Sprintf("✅ Оплата получена. PRO активен до %s.", formatDate(u.PaidUntil))
}

func InvoiceDescription(periodDays int) string {
	return fmt.Sprintf("Подписка МенюПро PRO на %d дней", periodDays)
}

// ErrorText turns a failure into a chat message. Internal details are shown
// only for generation failures, and only as a truncated hint.
func ErrorText(err error) string {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return "😔 Что-то пошло не так. Попробуйте ещё раз."
	}

	switch {
	case errors.Is(err, apperrors.ErrGenerationInProgress):
		return "⏳ Меню уже составляется. Дождитесь результата или нажмите /cancel."
	case errors.Is(err, apperrors.ErrGenerationSuperseded):
		return "Генерация была отменена."
	case errors.Is(err, apperrors.ErrAlreadyEntitled):
		return "У вас уже есть активный или использованный пробный период."
	case errors.Is(err, apperrors.ErrGenerationFormat), errors.Is(err, apperrors.ErrGenerationService):
		return fmt.Sprintf("😔 Не удалось составить ответ. Попробуйте ещё раз.\n\n<i>%s</i>", esc(apperrors.UserDetail(err)))
	}

	switch appErr.Type {
	case apperrors.ErrorTypeValidation:
		return validationText(appErr)
	case apperrors.ErrorTypeNotFound:
		return "Меню не найдено. Возможно, оно было удалено."
	case apperrors.ErrorTypePermission:
		return "🔒 Эта функция доступна в PRO."
	default:
		return "😔 Что-то пошло не так. Попробуйте ещё раз."
	}
}

func validationText(err *apperrors.AppError) string {
	switch err.Code {
	case "INVALID_DIET":
		return "Выберите режим питания кнопкой ниже."
	case "INVALID_PARTY_SIZE":
		return fmt.Sprintf("Количество человек должно быть числом от 1 до %d.", wizard.MaxPartySize)
	case "INVALID_DAY_COUNT":
		return fmt.Sprintf("Количество дней должно быть числом от 1 до %v.", err.Context["max_days"])
	case "NO_SLOTS_SELECTED":
		return "Выберите хотя бы один приём пищи."
	case "INVALID_DAY", "INVALID_MEAL", "INVALID_DISH":
		return "Выберите вариант кнопкой ниже."
	case "EMPTY_DISH_NAME":
		return "Название блюда не может быть пустым."
	case "EMPTY_MESSAGE":
		return "Сообщение не может быть пустым."
	default:
		return "Не понял ответ. Воспользуйтесь кнопками ниже."
	}
}
