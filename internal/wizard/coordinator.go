package wizard

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
	"github.com/vladimiradmaev/menupro-bot/internal/logger"
)

// SessionStore keeps one wizard session per conversation.
type SessionStore interface {
	// LoadSession returns nil, nil when the conversation has no wizard session.
	LoadSession(ctx context.Context, conversationID int64) (*Session, error)
	SaveSession(ctx context.Context, s *Session) error
	ClearSession(ctx context.Context, conversationID int64) error
}

// PlanGenerator turns a frozen request into a draft plan and stores it.
type PlanGenerator interface {
	// GeneratePlan re-resolves the tier, clamps the day count and calls the
	// gateway. The returned plan is not stored yet.
	GeneratePlan(ctx context.Context, telegramID int64, req domain.GenerationRequest) (*domain.Plan, error)
	SavePlan(ctx context.Context, plan *domain.Plan) (uint, error)
}

// Coordinator runs the generation step that ends the wizard. At most one
// generation per conversation is in flight; a cancel while it runs makes its
// result be discarded.
type Coordinator struct {
	store SessionStore
	plans PlanGenerator
	locks *Locks
}

func NewCoordinator(store SessionStore, plans PlanGenerator, locks *Locks) *Coordinator {
	return &Coordinator{store: store, plans: plans, locks: locks}
}

// Generate freezes the confirmed session, generates and stores the plan, and
// clears the session. It must not be called while holding the conversation
// lock.
func (c *Coordinator) Generate(ctx context.Context, conversationID int64) (*domain.Plan, error) {
	ticket, req, err := c.begin(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	log := logger.WithContext(ctx).With("chat_id", conversationID, "generation_id", ticket.GenerationID)
	log.Info("Plan generation started", "diet", req.Diet, "days", req.DayCount, "people", req.PartySize)

	plan, genErr := c.plans.GeneratePlan(ctx, ticket.TelegramID, req)

	unlock := c.locks.Lock(conversationID)
	defer unlock()

	current, err := c.store.LoadSession(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload session: %w", err)
	}
	if current == nil || current.Step != StepGenerating || current.GenerationID != ticket.GenerationID {
		log.Info("Plan generation superseded, result discarded")
		return nil, apperrors.ErrGenerationSuperseded
	}

	if genErr != nil {
		c.clear(ctx, conversationID)
		return nil, genErr
	}

	id, err := c.plans.SavePlan(ctx, plan)
	c.clear(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	plan.ID = id
	log.Info("Plan generation completed", "plan_id", id)
	return plan, nil
}

func (c *Coordinator) begin(ctx context.Context, conversationID int64) (*Session, domain.GenerationRequest, error) {
	unlock := c.locks.Lock(conversationID)
	defer unlock()

	s, err := c.store.LoadSession(ctx, conversationID)
	if err != nil {
		return nil, domain.GenerationRequest{}, fmt.Errorf("failed to load session: %w", err)
	}
	if s == nil {
		return nil, domain.GenerationRequest{}, apperrors.NewNotFoundError("wizard session", conversationID)
	}
	switch s.Step {
	case StepGenerating:
		return nil, domain.GenerationRequest{}, apperrors.ErrGenerationInProgress
	case StepConfirm:
	default:
		return nil, domain.GenerationRequest{}, unexpected(s.Step, Do(ActionConfirm))
	}

	req, err := s.Request()
	if err != nil {
		return nil, domain.GenerationRequest{}, apperrors.NewInternalError(err)
	}
	s.Step = StepGenerating
	s.GenerationID = uuid.NewString()
	if err := c.store.SaveSession(ctx, s); err != nil {
		return nil, domain.GenerationRequest{}, fmt.Errorf("failed to save session: %w", err)
	}
	return s, req, nil
}

func (c *Coordinator) clear(ctx context.Context, conversationID int64) {
	if err := c.store.ClearSession(ctx, conversationID); err != nil {
		logger.WithContext(ctx).Error("Failed to clear wizard session", "chat_id", conversationID, "error", err)
	}
}
