package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/menus"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
)

// CommandHandler handles bot commands
type CommandHandler struct {
	*base
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(b *base) *CommandHandler {
	return &CommandHandler{base: b}
}

// Handle processes a command message
func (h *CommandHandler) Handle(ctx context.Context, message *tgbotapi.Message, user *domain.User) error {
	chatID := message.Chat.ID

	switch message.Command() {
	case "start":
		return h.sendMainMenu(chatID, user)
	case "help":
		return menus.SendHelp(h.api, chatID)
	case "menu", "new":
		return h.startMenu(ctx, chatID, user)
	case "plans":
		return h.showRecentPlans(ctx, chatID, user.TelegramID)
	case "cancel":
		return h.cancel(ctx, chatID)
	default:
		return h.send(chatID, "Неизвестная команда. Нажмите /help, чтобы увидеть список команд.", nil)
	}
}
