package wizard

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
	"github.com/vladimiradmaev/menupro-bot/internal/logger"
)

type EditStep string

const (
	EditChooseDay        EditStep = "choose_day"
	EditChooseMeal       EditStep = "choose_meal"
	EditChooseDish       EditStep = "choose_dish"
	EditEnterReplacement EditStep = "enter_replacement"
)

type EditOutcome int

const (
	EditContinue EditOutcome = iota
	EditCancelled
	EditApplied
	// EditAborted: the plan or the addressed dish is gone; drop the session.
	EditAborted
)

// EditSession addresses one dish of a stored plan. Positions are 1-based.
type EditSession struct {
	ConversationID int64    `json:"conversation_id"`
	TelegramID     int64    `json:"telegram_id"`
	OwnerID        uint     `json:"owner_id"`
	PlanID         uint     `json:"plan_id"`
	Step           EditStep `json:"step"`
	Day            int      `json:"day,omitempty"`
	Meal           int      `json:"meal,omitempty"`
	Dish           int      `json:"dish,omitempty"`
}

// PlanStore is the part of the plan repository the editor needs.
type PlanStore interface {
	GetPlan(ctx context.Context, id uint) (*domain.Plan, error)
	UpdatePlanContent(ctx context.Context, id uint, content domain.PlanContent) error
}

// Editor replaces single dishes in stored plans. The plan is re-read on every
// step; the final write replaces the whole content, so concurrent edits of
// one plan are last-write-wins.
type Editor struct {
	plans PlanStore
}

func NewEditor(plans PlanStore) *Editor {
	return &Editor{plans: plans}
}

// Start opens an edit of planID on behalf of ownerID.
func (e *Editor) Start(ctx context.Context, conversationID, telegramID int64, ownerID, planID uint) (*EditSession, *domain.Plan, error) {
	s := &EditSession{
		ConversationID: conversationID,
		TelegramID:     telegramID,
		OwnerID:        ownerID,
		PlanID:         planID,
		Step:           EditChooseDay,
	}
	plan, err := e.load(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	return s, plan, nil
}

// Plan reloads the plan under edit.
func (e *Editor) Plan(ctx context.Context, s *EditSession) (*domain.Plan, error) {
	return e.load(ctx, s)
}

// Apply feeds one input to s. Validation errors keep s at its step; a
// not-found error comes with EditAborted.
func (e *Editor) Apply(ctx context.Context, s *EditSession, in Input) (EditOutcome, error) {
	if in.Action == ActionCancel {
		return EditCancelled, nil
	}
	if in.Action != ActionChoose && in.Action != ActionText {
		return EditContinue, unexpected(Step(s.Step), in)
	}

	plan, err := e.load(ctx, s)
	if err != nil {
		return abortOn(err)
	}
	content := &plan.Content

	switch s.Step {
	case EditChooseDay:
		day, err := position(in.Value, "INVALID_DAY")
		if err != nil {
			return EditContinue, err
		}
		if _, ok := content.DayByIndex(day); !ok {
			return EditContinue, apperrors.NewValidationError("INVALID_DAY", "no such day in the plan").
				WithContext("value", in.Value)
		}
		s.Day = day
		s.Step = EditChooseMeal

	case EditChooseMeal:
		d, ok := content.DayByIndex(s.Day)
		if !ok {
			return EditAborted, apperrors.NewNotFoundError("day", s.Day)
		}
		meal, err := position(in.Value, "INVALID_MEAL")
		if err != nil {
			return EditContinue, err
		}
		if meal > len(d.Meals) {
			return EditContinue, apperrors.NewValidationError("INVALID_MEAL", "no such meal in the day").
				WithContext("value", in.Value)
		}
		s.Meal = meal
		s.Step = EditChooseDish

	case EditChooseDish:
		m, err := content.Meal(s.Day, s.Meal)
		if err != nil {
			return abortOn(err)
		}
		dish, err := position(in.Value, "INVALID_DISH")
		if err != nil {
			return EditContinue, err
		}
		if dish > len(m.Dishes) {
			return EditContinue, apperrors.NewValidationError("INVALID_DISH", "no such dish in the meal").
				WithContext("value", in.Value)
		}
		s.Dish = dish
		s.Step = EditEnterReplacement

	case EditEnterReplacement:
		if err := content.ReplaceDish(s.Day, s.Meal, s.Dish, in.Value); err != nil {
			return abortOn(err)
		}
		if err := e.plans.UpdatePlanContent(ctx, s.PlanID, *content); err != nil {
			return EditContinue, err
		}
		logger.WithContext(ctx).Info("Dish replaced",
			"plan_id", s.PlanID, "day", s.Day, "meal", s.Meal, "dish", s.Dish)
		return EditApplied, nil

	default:
		return EditAborted, apperrors.NewInternalError(fmt.Errorf("unknown edit step %q", s.Step))
	}
	return EditContinue, nil
}

func (e *Editor) load(ctx context.Context, s *EditSession) (*domain.Plan, error) {
	plan, err := e.plans.GetPlan(ctx, s.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil || plan.UserID != s.OwnerID {
		return nil, apperrors.NewNotFoundError("plan", s.PlanID)
	}
	return plan, nil
}

// abortOn maps not-found errors to EditAborted and keeps the session for
// everything else.
func abortOn(err error) (EditOutcome, error) {
	if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return EditAborted, err
	}
	return EditContinue, err
}

func position(value, code string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return 0, apperrors.NewValidationError(code, "expected a positive number").
			WithContext("value", value)
	}
	return n, nil
}
