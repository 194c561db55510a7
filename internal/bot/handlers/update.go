package handlers

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/menus"
	"github.com/vladimiradmaev/menupro-bot/internal/logger"
)

// UpdateHandler handles telegram updates and coordinates other handlers.
// Updates of one chat are handled one at a time; different chats proceed
// concurrently.
type UpdateHandler struct {
	*base
	callbackHandler *CallbackHandler
	commandHandler  *CommandHandler
	textHandler     *TextHandler
	paymentHandler  *PaymentHandler
}

// NewUpdateHandler creates a new update handler
func NewUpdateHandler(api menus.Sender, deps Dependencies) *UpdateHandler {
	b := &base{api: api, deps: deps, background: &sync.WaitGroup{}}
	payments := NewPaymentHandler(b)
	return &UpdateHandler{
		base:            b,
		callbackHandler: NewCallbackHandler(b, payments),
		commandHandler:  NewCommandHandler(b),
		textHandler:     NewTextHandler(b),
		paymentHandler:  payments,
	}
}

// Handle processes a telegram update. Failures are logged and reported to the
// chat here; the returned error is for the caller's bookkeeping only.
func (h *UpdateHandler) Handle(ctx context.Context, update tgbotapi.Update) error {
	if update.PreCheckoutQuery != nil {
		ctx = logger.ContextWith(ctx, "user_id", update.PreCheckoutQuery.From.ID)
		return h.paymentHandler.HandlePreCheckout(ctx, update.PreCheckoutQuery)
	}

	var (
		from   *tgbotapi.User
		chatID int64
	)
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		from = update.CallbackQuery.From
		chatID = update.CallbackQuery.Message.Chat.ID
	case update.Message != nil && update.Message.From != nil:
		from = update.Message.From
		chatID = update.Message.Chat.ID
	default:
		return nil
	}

	ctx = logger.ContextWith(ctx, "chat_id", chatID, "user_id", from.ID)
	unlock := h.deps.Locks.Lock(chatID)
	defer unlock()

	err := h.dispatch(ctx, update, from)
	if err != nil {
		h.report(ctx, chatID, err)
	}
	return err
}

func (h *UpdateHandler) dispatch(ctx context.Context, update tgbotapi.Update, from *tgbotapi.User) error {
	user, err := h.deps.UserService.RegisterUser(ctx, from.ID, from.UserName, from.FirstName)
	if err != nil {
		return err
	}

	if update.CallbackQuery != nil {
		// Answer callback query to remove loading state
		if _, err := h.api.Request(tgbotapi.NewCallback(update.CallbackQuery.ID, "")); err != nil {
			logger.WithContext(ctx).Warn("Failed to answer callback query", "error", err)
		}
		return h.callbackHandler.Handle(ctx, update.CallbackQuery, user)
	}

	message := update.Message
	switch {
	case message.SuccessfulPayment != nil:
		return h.paymentHandler.HandleSuccessfulPayment(ctx, message, user)
	case message.IsCommand():
		return h.commandHandler.Handle(ctx, message, user)
	case message.Text != "":
		return h.textHandler.Handle(ctx, message, user)
	default:
		return h.send(message.Chat.ID, "Я понимаю только текст и кнопки. Нажмите /start, чтобы открыть меню.", nil)
	}
}

// Wait blocks until background generations have finished.
func (h *UpdateHandler) Wait() {
	h.background.Wait()
}
