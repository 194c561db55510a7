package interfaces

import (
	"context"

	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	"github.com/vladimiradmaev/menupro-bot/internal/services"
)

// UserServiceInterface defines the contract for account and subscription operations
type UserServiceInterface interface {
	RegisterUser(ctx context.Context, telegramID int64, username, firstName string) (*domain.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	Limits(ctx context.Context, telegramID int64) (domain.EntitlementLimits, error)
	Profile(ctx context.Context, telegramID int64) (*services.Profile, error)
	ActivateTrial(ctx context.Context, telegramID int64) (*domain.User, error)
	InvoicePayload(telegramID int64) string
	RecordPayment(ctx context.Context, ev services.PaymentEvent) (*domain.User, error)
}

// PlanServiceInterface defines the contract for operations on stored plans
type PlanServiceInterface interface {
	View(ctx context.Context, telegramID int64, planID uint) (*services.PlanView, error)
	RecentPlans(ctx context.Context, telegramID int64) ([]domain.Plan, error)
	DeletePlan(ctx context.Context, telegramID int64, planID uint) error
	ShoppingList(ctx context.Context, telegramID int64, planID uint, regenerate bool) (*domain.ShoppingList, *domain.Plan, error)
	Recipes(ctx context.Context, telegramID int64, planID uint) ([]services.DishRecipes, error)
	Substitutes(ctx context.Context, telegramID int64, ingredient string) (*domain.Substitution, error)
	Tip(ctx context.Context) (string, error)
}

// ExportServiceInterface defines the contract for PDF export
type ExportServiceInterface interface {
	Enabled() bool
	MenuPDF(ctx context.Context, telegramID int64, planID uint) (*services.Document, error)
	ShoppingListPDF(ctx context.Context, telegramID int64, planID uint) (*services.Document, error)
}

// SupportServiceInterface defines the contract for support requests
type SupportServiceInterface interface {
	Enabled() bool
	Send(ctx context.Context, user *domain.User, subject, message string) error
}
