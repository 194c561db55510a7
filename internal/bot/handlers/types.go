package handlers

import (
	"context"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/keyboards"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/menus"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/state"
	"github.com/vladimiradmaev/menupro-bot/internal/config"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
	"github.com/vladimiradmaev/menupro-bot/internal/interfaces"
	"github.com/vladimiradmaev/menupro-bot/internal/logger"
	"github.com/vladimiradmaev/menupro-bot/internal/wizard"
)

// Dependencies holds all service dependencies for handlers
type Dependencies struct {
	UserService    interfaces.UserServiceInterface
	PlanService    interfaces.PlanServiceInterface
	ExportService  interfaces.ExportServiceInterface
	SupportService interfaces.SupportServiceInterface

	Machine       *wizard.Machine
	Coordinator   *wizard.Coordinator
	Editor        *wizard.Editor
	Locks         *wizard.Locks
	Conversations state.Store
	Catalog       *domain.Catalog
	Subscription  config.SubscriptionConfig
}

// base carries what every handler needs: the chat API, the services and
// the tracking of background generations.
type base struct {
	api        menus.Sender
	deps       Dependencies
	background *sync.WaitGroup
}

func (b *base) send(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	return menus.SendText(b.api, chatID, text, markup)
}

// prompt sends text with markup, editing messageID in place when it is set.
func (b *base) prompt(ctx context.Context, chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	if messageID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
		edit.ParseMode = tgbotapi.ModeHTML
		_, err := b.api.Send(edit)
		if err == nil {
			return nil
		}
		logger.WithContext(ctx).Debug("Failed to edit prompt, sending a new one", "error", err)
	}
	return b.send(chatID, text, &markup)
}

func (b *base) sendMainMenu(chatID int64, user *domain.User) error {
	return menus.SendMainMenu(b.api, chatID, user)
}

// report logs err once and tells the user what went wrong.
func (b *base) report(ctx context.Context, chatID int64, err error) {
	apperrors.NewHandler(logger.WithContext(ctx)).Handle(ctx, err)
	markup := keyboards.MainMenu()
	if sendErr := b.send(chatID, menus.ErrorText(err), &markup); sendErr != nil {
		logger.WithContext(ctx).Error("Failed to send error message", "error", sendErr)
	}
}

// conversation loads the active flow of a chat; nil when there is none.
func (b *base) conversation(ctx context.Context, chatID int64) (*state.Conversation, error) {
	conv, err := b.deps.Conversations.Get(ctx, chatID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return conv, nil
}

func (b *base) save(ctx context.Context, conv *state.Conversation) error {
	if err := b.deps.Conversations.Set(ctx, conv); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

func (b *base) clear(ctx context.Context, chatID int64) error {
	if err := b.deps.Conversations.Clear(ctx, chatID); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// planID reads the plan id argument of callback data.
func planID(data, prefix string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewValidationError("INVALID_PLAN_ID", "malformed plan id").
			WithContext("data", data)
	}
	return uint(id), nil
}
