package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/keyboards"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/state"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	"github.com/vladimiradmaev/menupro-bot/internal/wizard"
)

// TextHandler handles plain text messages. Text only means something inside
// an active flow.
type TextHandler struct {
	*base
}

// NewTextHandler creates a new text handler
func NewTextHandler(b *base) *TextHandler {
	return &TextHandler{base: b}
}

// Handle processes a text message
func (h *TextHandler) Handle(ctx context.Context, message *tgbotapi.Message, user *domain.User) error {
	chatID := message.Chat.ID
	text := strings.TrimSpace(message.Text)

	conv, err := h.conversation(ctx, chatID)
	if err != nil {
		return err
	}

	switch flowOf(conv) {
	case "":
		markup := keyboards.MainMenu()
		return h.send(chatID, "Выберите действие в меню ниже.", &markup)
	case state.FlowMenu:
		return h.applyMenu(ctx, chatID, 0, conv, wizard.Text(text))
	case state.FlowEdit:
		return h.applyEdit(ctx, chatID, conv, wizard.Text(text))
	case state.FlowSupport:
		return h.sendSupport(ctx, chatID, user, conv, text)
	case state.FlowSubstitute:
		return h.substitute(ctx, chatID, user, text)
	default:
		if err := h.clear(ctx, chatID); err != nil {
			return err
		}
		return unknownFlow(conv.Flow)
	}
}
