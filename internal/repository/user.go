package repository

import (
	"context"
	"errors"

	"github.com/vladimiradmaev/menupro-bot/internal/database"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	"gorm.io/gorm"
)

// UserRepository handles user data operations
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreateUser gets an existing user or creates a new free-tier one.
// Username and first name are refreshed when they changed.
func (r *UserRepository) GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName string) (*domain.User, error) {
	var user database.User
	err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		changes := make(map[string]interface{})
		if username != "" && username != user.Username {
			changes["username"] = username
			user.Username = username
		}
		if firstName != "" && firstName != user.FirstName {
			changes["first_name"] = firstName
			user.FirstName = firstName
		}
		if len(changes) > 0 {
			if err := r.db.WithContext(ctx).Model(&user).Updates(changes).Error; err != nil {
				return nil, dbError(err, "user", telegramID)
			}
		}
		return toDomainUser(&user), nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, dbError(err, "user", telegramID)
	}

	user = database.User{
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
		Tier:       string(domain.TierFree),
	}
	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, dbError(err, "user", telegramID)
	}
	return toDomainUser(&user), nil
}

// GetUserByTelegramID gets a user by their Telegram ID
func (r *UserRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	var user database.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, dbError(err, "user", telegramID)
	}
	return toDomainUser(&user), nil
}

// SaveEntitlement writes the tier and the trial and paid timestamps.
func (r *UserRepository) SaveEntitlement(ctx context.Context, u *domain.User) error {
	return saveEntitlement(r.db.WithContext(ctx), u)
}

func saveEntitlement(db *gorm.DB, u *domain.User) error {
	res := db.Model(&database.User{}).Where("id = ?", u.ID).
		Updates(map[string]interface{}{
			"tier":        string(u.Tier),
			"trial_used":  u.TrialUsed,
			"trial_start": u.TrialStart,
			"trial_end":   u.TrialEnd,
			"paid_until":  u.PaidUntil,
		})
	if res.Error != nil {
		return dbError(res.Error, "user", u.ID)
	}
	if res.RowsAffected == 0 {
		return dbError(gorm.ErrRecordNotFound, "user", u.ID)
	}
	return nil
}

func toDomainUser(u *database.User) *domain.User {
	return &domain.User{
		ID:         u.ID,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
		TelegramID: u.TelegramID,
		Username:   u.Username,
		FirstName:  u.FirstName,
		Tier:       domain.Tier(u.Tier),
		TrialUsed:  u.TrialUsed,
		TrialStart: u.TrialStart,
		TrialEnd:   u.TrialEnd,
		PaidUntil:  u.PaidUntil,
	}
}
