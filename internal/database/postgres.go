package database

import (
	"fmt"
	"time"

	"github.com/vladimiradmaev/menupro-bot/internal/config"
	"github.com/vladimiradmaev/menupro-bot/internal/database/migrations"
	"github.com/vladimiradmaev/menupro-bot/internal/logger"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type User struct {
	gorm.Model
	TelegramID int64 `gorm:"uniqueIndex"`
	Username   string
	FirstName  string
	Tier       string `gorm:"default:free"`
	TrialUsed  bool   `gorm:"default:false"`
	TrialStart *time.Time
	TrialEnd   *time.Time
	PaidUntil  *time.Time
}

type Plan struct {
	gorm.Model
	UserID       uint `gorm:"index"`
	User         User
	Diet         string
	PartySize    int
	DayCount     int
	MealTimes    datatypes.JSON `gorm:"type:jsonb"`
	Eaters       datatypes.JSON `gorm:"type:jsonb"`
	Content      datatypes.JSON `gorm:"type:jsonb"`
	ShoppingList datatypes.JSON `gorm:"type:jsonb"` // null until first requested
	Status       string         `gorm:"default:draft"`
}

type Payment struct {
	gorm.Model
	UserID           uint `gorm:"index"`
	User             User
	Amount           int // whole roubles
	Currency         string
	Status           string
	ProviderChargeID string `gorm:"uniqueIndex"`
	Payload          string
}

// DSN builds the Postgres connection string for cfg.
func DSN(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)
}

func NewPostgresDB(cfg config.DBConfig) (*gorm.DB, error) {
	db, err := Open(DSN(cfg))
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logger.Info("Database connection established and migrations completed",
		"host", cfg.Host, "database", cfg.DBName)
	return db, nil
}

// Open connects without migrating.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate creates the tables from the models, then applies the embedded SQL
// migrations that build on them.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}, &Plan{}, &Payment{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	if err := migrations.LoadSQLMigrations(migrations.SQLFiles, "sql"); err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
