package services

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	"github.com/vladimiradmaev/menupro-bot/internal/entitlement"
	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
	"github.com/vladimiradmaev/menupro-bot/internal/logger"
)

const (
	RecentPlansLimit = 5
	MaxRecipeDishes  = 10
	DefaultDiet      = domain.Diet("healthy")
)

// PlanGateway is the generation surface the plan service uses.
type PlanGateway interface {
	GeneratePlan(ctx context.Context, req domain.GenerationRequest, limits domain.EntitlementLimits) (*domain.PlanContent, error)
	GenerateShoppingList(ctx context.Context, content domain.PlanContent, partySize int) (*domain.ShoppingList, error)
	SuggestSearchQueries(ctx context.Context, dish string) ([]string, error)
	GenerateTip(ctx context.Context) (string, error)
	SuggestSubstitutes(ctx context.Context, ingredient string, diet domain.Diet) (*domain.Substitution, error)
}

// RecipeLink is one search link for a dish.
type RecipeLink struct {
	Query string
	URL   string
}

// DishRecipes groups the search links of one dish.
type DishRecipes struct {
	domain.DishRef
	Links []RecipeLink
}

type PlanService struct {
	gateway PlanGateway
	plans   domain.PlanRepository
	users   *UserService
	now     domain.Clock
}

func NewPlanService(gateway PlanGateway, plans domain.PlanRepository, users *UserService, now domain.Clock) *PlanService {
	if now == nil {
		now = time.Now
	}
	return &PlanService{gateway: gateway, plans: plans, users: users, now: now}
}

// GeneratePlan re-resolves the tier, clamps the day count to it and asks the
// gateway for a plan. The returned draft is not stored.
func (s *PlanService) GeneratePlan(ctx context.Context, telegramID int64, req domain.GenerationRequest) (*domain.Plan, error) {
	user, err := s.users.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	limits := entitlement.LimitsFor(entitlement.Resolve(user, s.now()))

	if clamped := entitlement.ClampDays(req.DayCount, limits); clamped != req.DayCount {
		logger.WithContext(ctx).Warn("Day count clamped at generation",
			"user_id", user.ID, "requested", req.DayCount, "max_days", limits.MaxDays)
		req.DayCount = clamped
	}

	content, err := s.gateway.GeneratePlan(ctx, req, limits)
	if err != nil {
		return nil, err
	}

	return &domain.Plan{
		UserID:    user.ID,
		Diet:      req.Diet,
		PartySize: req.PartySize,
		DayCount:  req.DayCount,
		MealTimes: req.Times,
		Eaters:    req.Eaters,
		Content:   *content,
		Status:    domain.PlanStatusDraft,
	}, nil
}

func (s *PlanService) SavePlan(ctx context.Context, plan *domain.Plan) (uint, error) {
	id, err := s.plans.CreatePlan(ctx, plan)
	if err != nil {
		return 0, fmt.Errorf("failed to save plan: %w", err)
	}
	return id, nil
}

// GetPlan loads a plan owned by the account. Plans of other accounts are
// reported as not found.
func (s *PlanService) GetPlan(ctx context.Context, telegramID int64, planID uint) (*domain.Plan, *domain.User, error) {
	user, err := s.users.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, nil, err
	}
	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, nil, err
	}
	if plan.UserID != user.ID {
		return nil, nil, apperrors.NewNotFoundError("plan", planID)
	}
	return plan, user, nil
}

// PlanView bundles a plan with the limits it must be rendered under.
type PlanView struct {
	Plan   *domain.Plan
	Limits domain.EntitlementLimits
}

// View loads a plan together with the current limits of its owner.
func (s *PlanService) View(ctx context.Context, telegramID int64, planID uint) (*PlanView, error) {
	plan, user, err := s.GetPlan(ctx, telegramID, planID)
	if err != nil {
		return nil, err
	}
	return &PlanView{Plan: plan, Limits: entitlement.LimitsFor(entitlement.Resolve(user, s.now()))}, nil
}

// RecentPlans returns the latest plans of the account, newest first.
func (s *PlanService) RecentPlans(ctx context.Context, telegramID int64) ([]domain.Plan, error) {
	user, err := s.users.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	plans, err := s.plans.ListRecentPlans(ctx, user.ID, RecentPlansLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get user plans: %w", err)
	}
	return plans, nil
}

func (s *PlanService) DeletePlan(ctx context.Context, telegramID int64, planID uint) error {
	if _, _, err := s.GetPlan(ctx, telegramID, planID); err != nil {
		return err
	}
	if err := s.plans.DeletePlan(ctx, planID); err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	logger.WithContext(ctx).Info("Plan deleted", "plan_id", planID)
	return nil
}

// ShoppingList returns the cached list of a plan, generating and caching it
// on first use or when regenerate is set.
func (s *PlanService) ShoppingList(ctx context.Context, telegramID int64, planID uint, regenerate bool) (*domain.ShoppingList, *domain.Plan, error) {
	view, err := s.View(ctx, telegramID, planID)
	if err != nil {
		return nil, nil, err
	}
	if !view.Limits.ExportEnabled {
		return nil, nil, apperrors.NewFeatureLockedError("shopping_list")
	}
	plan := view.Plan
	if plan.ShoppingList != nil && !regenerate {
		return plan.ShoppingList, plan, nil
	}

	list, err := s.gateway.GenerateShoppingList(ctx, plan.Content, plan.PartySize)
	if err != nil {
		return nil, nil, err
	}
	if err := s.plans.AttachShoppingList(ctx, planID, list); err != nil {
		return nil, nil, fmt.Errorf("failed to cache shopping list: %w", err)
	}
	plan.ShoppingList = list
	return list, plan, nil
}

// Recipes builds search links for up to MaxRecipeDishes dishes in day and
// meal order. Dinner dishes are left out unless the tier has full recipes.
// A failed query suggestion falls back to fixed queries for that dish.
func (s *PlanService) Recipes(ctx context.Context, telegramID int64, planID uint) ([]DishRecipes, error) {
	view, err := s.View(ctx, telegramID, planID)
	if err != nil {
		return nil, err
	}

	var out []DishRecipes
	for _, ref := range view.Plan.Content.Dishes() {
		if len(out) == MaxRecipeDishes {
			break
		}
		if ref.Slot == domain.SlotDinner && !view.Limits.RecipesFull {
			continue
		}
		queries, err := s.gateway.SuggestSearchQueries(ctx, ref.Dish.Name)
		if err != nil {
			logger.WithContext(ctx).Warn("Recipe queries fell back", "dish", ref.Dish.Name, "error", err)
			queries = FallbackQueries(ref.Dish.Name)
		}
		out = append(out, DishRecipes{DishRef: ref, Links: SearchLinks(queries)})
	}
	return out, nil
}

// FallbackQueries are used when no suggestions could be generated.
func FallbackQueries(dish string) []string {
	return []string{dish + " рецепт", dish + " как приготовить"}
}

// SearchLinks turns queries into web search URLs.
func SearchLinks(queries []string) []RecipeLink {
	links := make([]RecipeLink, 0, len(queries))
	for _, q := range queries {
		links = append(links, RecipeLink{
			Query: q,
			URL:   "https://www.google.com/search?q=" + url.QueryEscape(q),
		})
	}
	return links
}

// Substitutes suggests replacements for an ingredient in the diet of the
// latest plan of the account.
func (s *PlanService) Substitutes(ctx context.Context, telegramID int64, ingredient string) (*domain.Substitution, error) {
	diet := DefaultDiet
	plans, err := s.RecentPlans(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if len(plans) > 0 && plans[0].Diet != "" {
		diet = plans[0].Diet
	}
	return s.gateway.SuggestSubstitutes(ctx, ingredient, diet)
}

func (s *PlanService) Tip(ctx context.Context) (string, error) {
	return s.gateway.GenerateTip(ctx)
}
