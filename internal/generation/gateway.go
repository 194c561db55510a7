// Package generation wraps the external text-completion service. Every
// response is untrusted: fences are stripped and the payload is decoded and
// validated before it is returned. No call is retried here.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
	"github.com/vladimiradmaev/menupro-bot/internal/logger"
)

// Budgets per operation.
var (
	planBudget         = Completion{Temperature: 0.7, MaxTokens: 8000}
	shoppingListBudget = Completion{Temperature: 0.3, MaxTokens: 4000}
	searchBudget       = Completion{Temperature: 0.5, MaxTokens: 200}
	tipBudget          = Completion{Temperature: 0.9, MaxTokens: 200}
	substitutesBudget  = Completion{Temperature: 0.7, MaxTokens: 300}
)

const (
	OpPlan         = "plan"
	OpShoppingList = "shopping_list"
	OpSearch       = "recipe_queries"
	OpTip          = "tip"
	OpSubstitutes  = "substitutes"
)

type Gateway struct {
	gen     TextGenerator
	catalog *domain.Catalog
	timeout time.Duration
}

func NewGateway(gen TextGenerator, catalog *domain.Catalog, timeout time.Duration) *Gateway {
	return &Gateway{gen: gen, catalog: catalog, timeout: timeout}
}

// GeneratePlan asks for a full plan and validates it against req.
func (g *Gateway) GeneratePlan(ctx context.Context, req domain.GenerationRequest, limits domain.EntitlementLimits) (*domain.PlanContent, error) {
	text, err := g.complete(ctx, OpPlan, planBudget, planPrompt(g.catalog, req, limits))
	if err != nil {
		return nil, err
	}
	content, err := domain.DecodePlanContent([]byte(extractJSON(text, '{', '}')), domain.ContentExpectation{
		DayCount: req.DayCount,
		Slots:    req.Slots,
	})
	if err != nil {
		logger.WithContext(ctx).Warn("Generated plan rejected",
			"error", err, "response_head", apperrors.Truncate(text, 500))
		return nil, err
	}
	return content, nil
}

// GenerateShoppingList aggregates ingredients of a validated plan. Each call
// is a fresh aggregation; callers cache the result.
func (g *Gateway) GenerateShoppingList(ctx context.Context, content domain.PlanContent, partySize int) (*domain.ShoppingList, error) {
	prompt, err := shoppingListPrompt(content, partySize)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	text, err := g.complete(ctx, OpShoppingList, shoppingListBudget, prompt)
	if err != nil {
		return nil, err
	}
	return domain.DecodeShoppingList([]byte(extractJSON(text, '{', '}')))
}

// SuggestSearchQueries returns up to three search phrases for a dish recipe.
func (g *Gateway) SuggestSearchQueries(ctx context.Context, dish string) ([]string, error) {
	text, err := g.complete(ctx, OpSearch, searchBudget, searchQueriesPrompt(dish))
	if err != nil {
		return nil, err
	}

	var raw []string
	if err := json.Unmarshal([]byte(extractJSON(text, '[', ']')), &raw); err != nil {
		return nil, apperrors.NewGenerationFormatError(err, OpSearch)
	}
	var queries []string
	for _, q := range raw {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
		if len(queries) == 3 {
			break
		}
	}
	if len(queries) == 0 {
		return nil, apperrors.NewGenerationFormatError(fmt.Errorf("no queries"), OpSearch)
	}
	return queries, nil
}

// GenerateTip returns a short nutrition tip as plain text.
func (g *Gateway) GenerateTip(ctx context.Context) (string, error) {
	text, err := g.complete(ctx, OpTip, tipBudget, tipPrompt)
	if err != nil {
		return "", err
	}
	return text, nil
}

// SuggestSubstitutes proposes replacements for an ingredient within a diet.
func (g *Gateway) SuggestSubstitutes(ctx context.Context, ingredient string, diet domain.Diet) (*domain.Substitution, error) {
	text, err := g.complete(ctx, OpSubstitutes, substitutesBudget,
		substitutesPrompt(ingredient, g.catalog.DietDescription(diet)))
	if err != nil {
		return nil, err
	}

	var sub domain.Substitution
	if err := json.Unmarshal([]byte(extractJSON(text, '{', '}')), &sub); err != nil {
		return nil, apperrors.NewGenerationFormatError(err, OpSubstitutes)
	}
	if len(sub.Substitutes) == 0 {
		return nil, apperrors.NewGenerationFormatError(fmt.Errorf("no substitutes"), OpSubstitutes)
	}
	sub.Ingredient = ingredient
	return &sub, nil
}

func (g *Gateway) complete(ctx context.Context, op string, budget Completion, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	budget.Prompt = prompt
	started := time.Now()
	text, err := g.gen.Complete(ctx, budget)
	log := logger.WithContext(ctx).With("operation", op, "provider", g.gen.Name(),
		"duration_ms", time.Since(started).Milliseconds())
	if err != nil {
		log.Error("Text generation failed", "error", err)
		return "", apperrors.NewGenerationServiceError(err, op)
	}

	text = stripCodeFence(text)
	if text == "" {
		log.Warn("Text generation returned empty response")
		return "", apperrors.NewGenerationFormatError(fmt.Errorf("empty response"), op)
	}
	log.Debug("Text generation completed", "response_chars", len(text))
	return text, nil
}

// stripCodeFence removes a ```lang ... ``` wrapper if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the language tag line.
		if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractJSON cuts s down to the outermost first...last span, leaving s as is
// when none is found.
func extractJSON(s string, first, last byte) string {
	start := strings.IndexByte(s, first)
	end := strings.LastIndexByte(s, last)
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
