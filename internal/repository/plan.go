package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vladimiradmaev/menupro-bot/internal/database"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PlanRepository stores plans with their tree, meal times, eaters and
// shopping list as jsonb documents. Writes replace whole documents.
type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) GetPlan(ctx context.Context, id uint) (*domain.Plan, error) {
	var row database.Plan
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, dbError(err, "plan", id)
	}
	return toDomainPlan(&row)
}

// CreatePlan inserts plan and returns its ID.
func (r *PlanRepository) CreatePlan(ctx context.Context, plan *domain.Plan) (uint, error) {
	row, err := toPlanRow(plan)
	if err != nil {
		return 0, apperrors.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return 0, dbError(err, "plan", plan.UserID)
	}
	plan.ID = row.ID
	plan.CreatedAt = row.CreatedAt
	return row.ID, nil
}

// UpdatePlanContent overwrites the content document of plan id.
func (r *PlanRepository) UpdatePlanContent(ctx context.Context, id uint, content domain.PlanContent) error {
	data, err := json.Marshal(content)
	if err != nil {
		return apperrors.NewInternalError(fmt.Errorf("failed to encode plan content: %w", err))
	}
	return r.updateColumn(ctx, id, "content", datatypes.JSON(data))
}

// AttachShoppingList caches list on plan id.
func (r *PlanRepository) AttachShoppingList(ctx context.Context, id uint, list *domain.ShoppingList) error {
	data, err := json.Marshal(list)
	if err != nil {
		return apperrors.NewInternalError(fmt.Errorf("failed to encode shopping list: %w", err))
	}
	return r.updateColumn(ctx, id, "shopping_list", datatypes.JSON(data))
}

func (r *PlanRepository) updateColumn(ctx context.Context, id uint, column string, value interface{}) error {
	result := r.db.WithContext(ctx).Model(&database.Plan{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return dbError(result.Error, "plan", id)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("plan", id)
	}
	return nil
}

// DeletePlan removes the plan row for good.
func (r *PlanRepository) DeletePlan(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Unscoped().Delete(&database.Plan{}, id)
	if result.Error != nil {
		return dbError(result.Error, "plan", id)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("plan", id)
	}
	return nil
}

// ListRecentPlans returns up to limit plans of userID, newest first.
func (r *PlanRepository) ListRecentPlans(ctx context.Context, userID uint, limit int) ([]domain.Plan, error) {
	var rows []database.Plan
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, dbError(err, "plans", userID)
	}

	plans := make([]domain.Plan, 0, len(rows))
	for i := range rows {
		p, err := toDomainPlan(&rows[i])
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	return plans, nil
}

func (r *PlanRepository) CountPlans(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&database.Plan{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, dbError(err, "plans", userID)
	}
	return n, nil
}

func toPlanRow(p *domain.Plan) (*database.Plan, error) {
	mealTimes, err := json.Marshal(p.MealTimes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode meal times: %w", err)
	}
	eaters, err := json.Marshal(p.Eaters)
	if err != nil {
		return nil, fmt.Errorf("failed to encode eaters: %w", err)
	}
	content, err := json.Marshal(p.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan content: %w", err)
	}

	row := &database.Plan{
		UserID:    p.UserID,
		Diet:      string(p.Diet),
		PartySize: p.PartySize,
		DayCount:  p.DayCount,
		MealTimes: datatypes.JSON(mealTimes),
		Eaters:    datatypes.JSON(eaters),
		Content:   datatypes.JSON(content),
		Status:    string(p.Status),
	}
	if p.ShoppingList != nil {
		list, err := json.Marshal(p.ShoppingList)
		if err != nil {
			return nil, fmt.Errorf("failed to encode shopping list: %w", err)
		}
		row.ShoppingList = datatypes.JSON(list)
	}
	if row.Status == "" {
		row.Status = string(domain.PlanStatusDraft)
	}
	return row, nil
}

// toDomainPlan decodes stored documents. Stored content was validated when
// generated, so it is decoded without re-validation.
func toDomainPlan(row *database.Plan) (*domain.Plan, error) {
	p := &domain.Plan{
		ID:        row.ID,
		UserID:    row.UserID,
		Diet:      domain.Diet(row.Diet),
		PartySize: row.PartySize,
		DayCount:  row.DayCount,
		Status:    domain.PlanStatus(row.Status),
		CreatedAt: row.CreatedAt,
	}
	if err := decodeColumn(row.MealTimes, &p.MealTimes); err != nil {
		return nil, planDecodeError(row.ID, "meal_times", err)
	}
	if err := decodeColumn(row.Eaters, &p.Eaters); err != nil {
		return nil, planDecodeError(row.ID, "eaters", err)
	}
	if err := decodeColumn(row.Content, &p.Content); err != nil {
		return nil, planDecodeError(row.ID, "content", err)
	}
	if len(row.ShoppingList) > 0 && string(row.ShoppingList) != "null" {
		var list domain.ShoppingList
		if err := json.Unmarshal(row.ShoppingList, &list); err != nil {
			return nil, planDecodeError(row.ID, "shopping_list", err)
		}
		p.ShoppingList = &list
	}
	return p, nil
}

func decodeColumn(data datatypes.JSON, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func planDecodeError(id uint, column string, err error) error {
	return apperrors.NewDatabaseError(fmt.Errorf("plan %d: decode %s: %w", id, column, err)).
		WithContext("plan_id", id)
}
