package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/vladimiradmaev/menupro-bot/internal/bot/keyboards"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/menus"
	"github.com/vladimiradmaev/menupro-bot/internal/bot/state"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
	"github.com/vladimiradmaev/menupro-bot/internal/logger"
	"github.com/vladimiradmaev/menupro-bot/internal/wizard"
)

const (
	cancelledText = "❌ Действие отменено."
	staleText     = "Эта кнопка больше не действует. Начните заново из главного меню."
)

// startMenu replaces whatever flow the chat had with a new wizard.
func (b *base) startMenu(ctx context.Context, chatID int64, user *domain.User) error {
	s := b.deps.Machine.Start(chatID, user.TelegramID)
	if err := b.save(ctx, &state.Conversation{ChatID: chatID, Flow: state.FlowMenu, Menu: s}); err != nil {
		return err
	}
	text, markup := menus.WizardPrompt(b.deps.Catalog, s)
	return b.send(chatID, text, &markup)
}

// applyMenu feeds one input to the wizard of the chat. Validation errors are
// answered here and the same step is asked again.
func (b *base) applyMenu(ctx context.Context, chatID int64, messageID int, conv *state.Conversation, in wizard.Input) error {
	s := conv.Menu
	outcome, err := b.deps.Machine.Apply(ctx, s, in)
	if err != nil {
		switch {
		case apperrors.IsType(err, apperrors.ErrorTypeValidation):
			logger.WithContext(ctx).Info("Wizard input rejected", "step", s.Step, "error", err)
			if err := b.save(ctx, conv); err != nil {
				return err
			}
			if err := b.send(chatID, menus.ErrorText(err), nil); err != nil {
				return err
			}
			text, markup := menus.WizardPrompt(b.deps.Catalog, s)
			return b.send(chatID, text, &markup)
		case errors.Is(err, apperrors.ErrGenerationInProgress):
			return b.send(chatID, menus.ErrorText(err), nil)
		default:
			return err
		}
	}

	switch outcome {
	case wizard.OutcomeCancelled:
		return b.cancel(ctx, chatID)
	case wizard.OutcomeReady:
		if err := b.send(chatID, menus.GeneratingText, nil); err != nil {
			return err
		}
		b.generate(ctx, chatID, s.TelegramID)
		return nil
	}

	if err := b.save(ctx, conv); err != nil {
		return err
	}
	text, markup := menus.WizardPrompt(b.deps.Catalog, s)
	// Toggles redraw the keyboard in place; other steps ask a new question.
	if in.Action != wizard.ActionToggle {
		messageID = 0
	}
	return b.prompt(ctx, chatID, messageID, text, markup)
}

// generate runs the confirmed wizard of the chat in the background. The
// caller holds the chat lock, so the generation starts once the current
// update is handled.
func (b *base) generate(ctx context.Context, chatID, telegramID int64) {
	ctx = context.WithoutCancel(ctx)
	b.background.Add(1)
	go func() {
		defer b.background.Done()
		log := logger.WithContext(ctx)

		plan, err := b.deps.Coordinator.Generate(ctx, chatID)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrGenerationSuperseded),
			apperrors.IsType(err, apperrors.ErrorTypeNotFound),
			apperrors.IsType(err, apperrors.ErrorTypeValidation):
			// The wizard was cancelled or restarted before the result came.
			log.Info("Generation result dropped", "error", err)
			return
		default:
			b.report(ctx, chatID, err)
			return
		}

		if err := b.showPlan(ctx, chatID, telegramID, plan.ID); err != nil {
			b.report(ctx, chatID, err)
		}
	}()
}

// cancel drops any flow of the chat.
func (b *base) cancel(ctx context.Context, chatID int64) error {
	if err := b.clear(ctx, chatID); err != nil {
		return err
	}
	markup := keyboards.MainMenu()
	return b.send(chatID, cancelledText, &markup)
}

func (b *base) startEdit(ctx context.Context, chatID int64, user *domain.User, planID uint) error {
	s, plan, err := b.deps.Editor.Start(ctx, chatID, user.TelegramID, user.ID, planID)
	if err != nil {
		return err
	}
	if err := b.save(ctx, &state.Conversation{ChatID: chatID, Flow: state.FlowEdit, Edit: s}); err != nil {
		return err
	}
	text, markup := menus.EditPrompt(b.deps.Catalog, s, plan)
	return b.send(chatID, text, &markup)
}

// applyEdit feeds one input to the dish editor of the chat.
func (b *base) applyEdit(ctx context.Context, chatID int64, conv *state.Conversation, in wizard.Input) error {
	s := conv.Edit
	outcome, err := b.deps.Editor.Apply(ctx, s, in)

	switch outcome {
	case wizard.EditCancelled:
		if err := b.clear(ctx, chatID); err != nil {
			return err
		}
		markup := keyboards.BackToPlan(s.PlanID)
		return b.send(chatID, cancelledText, &markup)

	case wizard.EditAborted:
		if clearErr := b.clear(ctx, chatID); clearErr != nil {
			logger.WithContext(ctx).Error("Failed to clear edit session", "error", clearErr)
		}
		if err == nil {
			err = apperrors.NewNotFoundError("plan", s.PlanID)
		}
		return err

	case wizard.EditApplied:
		if err := b.clear(ctx, chatID); err != nil {
			return err
		}
		if err := b.send(chatID, "✅ Блюдо заменено.", nil); err != nil {
			return err
		}
		return b.showPlan(ctx, chatID, s.TelegramID, s.PlanID)
	}

	if err != nil {
		if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			return err
		}
		if err := b.send(chatID, menus.ErrorText(err), nil); err != nil {
			return err
		}
	} else if err := b.save(ctx, conv); err != nil {
		return err
	}

	plan, err := b.deps.Editor.Plan(ctx, s)
	if err != nil {
		return err
	}
	text, markup := menus.EditPrompt(b.deps.Catalog, s, plan)
	return b.send(chatID, text, &markup)
}

func (b *base) startSupport(ctx context.Context, chatID int64, subject string) error {
	if !b.deps.SupportService.Enabled() {
		return b.send(chatID, "Поддержка временно недоступна.", nil)
	}
	if subject == "" {
		markup := keyboards.SupportSubjects()
		return b.send(chatID, menus.SupportPrompt, &markup)
	}
	if err := b.save(ctx, &state.Conversation{ChatID: chatID, Flow: state.FlowSupport, SupportSubject: subject}); err != nil {
		return err
	}
	markup := keyboards.CancelOnly()
	return b.send(chatID, menus.SupportMessagePrompt(subject), &markup)
}

func (b *base) sendSupport(ctx context.Context, chatID int64, user *domain.User, conv *state.Conversation, text string) error {
	err := b.deps.SupportService.Send(ctx, user, conv.SupportSubject, text)
	if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		return b.send(chatID, menus.ErrorText(err), nil)
	}
	if clearErr := b.clear(ctx, chatID); clearErr != nil {
		return clearErr
	}
	if err != nil {
		return err
	}
	markup := keyboards.MainMenu()
	return b.send(chatID, "✅ Спасибо! Сообщение отправлено, мы ответим в ближайшее время.", &markup)
}

func (b *base) startSubstitute(ctx context.Context, chatID int64) error {
	if err := b.save(ctx, &state.Conversation{ChatID: chatID, Flow: state.FlowSubstitute}); err != nil {
		return err
	}
	markup := keyboards.CancelOnly()
	return b.send(chatID, menus.SubstitutePrompt, &markup)
}

func (b *base) substitute(ctx context.Context, chatID int64, user *domain.User, ingredient string) error {
	if err := b.clear(ctx, chatID); err != nil {
		return err
	}
	sub, err := b.deps.PlanService.Substitutes(ctx, user.TelegramID, ingredient)
	if err != nil {
		return err
	}
	markup := keyboards.MainMenu()
	return b.send(chatID, menus.SubstitutionText(sub), &markup)
}

// stale answers a button that does not belong to the active flow.
func (b *base) stale(ctx context.Context, chatID int64, flow state.Flow, data string) error {
	logger.WithContext(ctx).Info("Stale button pressed", "flow", flow, "data", data)
	markup := keyboards.MainMenu()
	return b.send(chatID, staleText, &markup)
}

func flowOf(conv *state.Conversation) state.Flow {
	if conv == nil {
		return ""
	}
	return conv.Flow
}

func unknownFlow(flow state.Flow) error {
	return apperrors.NewInternalError(fmt.Errorf("unknown conversation flow %q", flow))
}
