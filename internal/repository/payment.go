package repository

import (
	"context"

	"github.com/vladimiradmaev/menupro-bot/internal/database"
	"github.com/vladimiradmaev/menupro-bot/internal/domain"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// RecordPayment inserts a payments row and saves the entitlement of u in one
// transaction. It sets p.ID and p.CreatedAt.
func (r *PaymentRepository) RecordPayment(ctx context.Context, p *domain.Payment, u *domain.User) error {
	row := database.Payment{
		UserID:           p.UserID,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Status:           p.Status,
		ProviderChargeID: p.ProviderChargeID,
		Payload:          p.Payload,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return dbError(err, "payment", p.ProviderChargeID)
		}
		return saveEntitlement(tx, u)
	})
	if err != nil {
		return err
	}
	p.ID = row.ID
	p.CreatedAt = row.CreatedAt
	return nil
}
