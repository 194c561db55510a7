package repository

import (
	"errors"

	apperrors "github.com/vladimiradmaev/menupro-bot/internal/errors"
	"gorm.io/gorm"
)

// Store bundles the repositories that share one connection.
type Store struct {
	db       *gorm.DB
	Users    *UserRepository
	Plans    *PlanRepository
	Payments *PaymentRepository
}

// NewStore wires every repository to db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Users:    NewUserRepository(db),
		Plans:    NewPlanRepository(db),
		Payments: NewPaymentRepository(db),
	}
}

// GetDB returns the underlying GORM database instance
func (s *Store) GetDB() *gorm.DB {
	return s.db
}

// Ping checks the connection, for the health endpoint.
func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}
	if err := sqlDB.Ping(); err != nil {
		return apperrors.NewDatabaseError(err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dbError(err error, what string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NewNotFoundError(what, id)
	}
	return apperrors.NewDatabaseError(err).WithContext("resource", what)
}
