package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/keyboards"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/menus"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
	"github.com/vladimiradmaev/menupro-bot/internal/logger"
	"github.com/vladimiradmaev/menupro-bot/internal/services"
)

const (
	currencyRUB    = "RUB"
	invoicePrefix  = "sub:"
	kopecksPerRUB  = 100
	invoiceTitle   = "МенюПро PRO"
	invoicePayment = "PRO"
)

// PaymentHandler runs the purchase of a subscription through Telegram
// payments.
type PaymentHandler struct {
	*base
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(b *base) *PaymentHandler {
	return &PaymentHandler{base: b}
}

func (h *PaymentHandler) price() int {
	return h.deps.Subscription.PriceRUB * kopecksPerRUB
}

// SendInvoice asks Telegram to show the payment form.
func (h *PaymentHandler) SendInvoice(ctx context.Context, chatID, telegramID int64) error {
	sub := h.deps.Subscription
	if sub.PaymentToken == "" {
		return h.send(chatID, "Оплата временно недоступна. Попробуйте позже.", nil)
	}

	invoice := tgbotapi.NewInvoice(chatID, invoiceTitle, menus.InvoiceDescription(sub.PaidPeriodDays),
		h.deps.UserService.InvoicePayload(telegramID), sub.PaymentToken, "", currencyRUB,
		[]tgbotapi.LabeledPrice{{Label: invoicePayment, Amount: h.price()}})
	invoice.SuggestedTipAmounts = []int{}
	_, err := h.api.Send(invoice)
	return err
}

// matchesOffer reports whether a payment of telegramID is for the current
// subscription offer issued to that user.
func (h *PaymentHandler) matchesOffer(telegramID int64, currency string, amount int, payload string) bool {
	return currency == currencyRUB &&
		amount == h.price() &&
		strings.HasPrefix(payload, fmt.Sprintf("%s%d:", invoicePrefix, telegramID))
}

// HandlePreCheckout approves the payment when it matches the current offer.
func (h *PaymentHandler) HandlePreCheckout(ctx context.Context, query *tgbotapi.PreCheckoutQuery) error {
	answer := tgbotapi.PreCheckoutConfig{PreCheckoutQueryID: query.ID, OK: true}
	if !h.matchesOffer(query.From.ID, query.Currency, query.TotalAmount, query.InvoicePayload) {
		logger.WithContext(ctx).Warn("Pre-checkout rejected",
			"currency", query.Currency, "amount", query.TotalAmount, "payload", query.InvoicePayload)
		answer.OK = false
		answer.ErrorMessage = "Счёт устарел, откройте подписку заново."
	}
	_, err := h.api.Request(answer)
	return err
}

// HandleSuccessfulPayment records the payment and extends the paid period.
// A payment that does not match the offer is refused without touching the
// account.
func (h *PaymentHandler) HandleSuccessfulPayment(ctx context.Context, message *tgbotapi.Message, user *domain.User) error {
	payment := message.SuccessfulPayment
	if !h.matchesOffer(user.TelegramID, payment.Currency, payment.TotalAmount, payment.InvoicePayload) {
		logger.WithContext(ctx).Error("Successful payment does not match the offer",
			"currency", payment.Currency, "amount", payment.TotalAmount,
			"payload", payment.InvoicePayload, "charge_id", payment.ProviderPaymentChargeID)
		return apperrors.New(apperrors.ErrorTypeConflict, "PAYMENT_MISMATCH", "payment does not match the subscription offer").
			WithContext("charge_id", payment.ProviderPaymentChargeID)
	}
	updated, err := h.deps.UserService.RecordPayment(ctx, services.PaymentEvent{
		TelegramID:       user.TelegramID,
		Amount:           payment.TotalAmount / kopecksPerRUB,
		Currency:         payment.Currency,
		ProviderChargeID: payment.ProviderPaymentChargeID,
		Payload:          payment.InvoicePayload,
	})
	if err != nil {
		return err
	}
	markup := keyboards.MainMenu()
	return h.send(message.Chat.ID, menus.PaymentReceivedText(updated), &markup)
}
