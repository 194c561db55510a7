package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/vladimiradmaev/menupro-bot/internal/logger"
	"gorm.io/gorm"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

// Migration represents a database migration
type Migration struct {
	ID   string
	Up   func(*gorm.DB) error
	Down func(*gorm.DB) error
}

var (
	mu         sync.Mutex
	migrations = make(map[string]Migration)
)

// Register adds a new migration to the registry. Registering an ID again
// replaces the earlier entry.
func Register(id string, up, down func(*gorm.DB) error) {
	mu.Lock()
	defer mu.Unlock()
	migrations[id] = Migration{
		ID:   id,
		Up:   up,
		Down: down,
	}
}

// Pending returns the registered IDs not present in executed, in order.
func Pending(executed []string) []string {
	mu.Lock()
	defer mu.Unlock()

	done := make(map[string]bool, len(executed))
	for _, id := range executed {
		done[id] = true
	}

	var ids []string
	for id := range migrations {
		if !done[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func lookup(id string) Migration {
	mu.Lock()
	defer mu.Unlock()
	return migrations[id]
}

// RunMigrations executes all pending migrations
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&MigrationRecord{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var executed []MigrationRecord
	if err := db.Find(&executed).Error; err != nil {
		return fmt.Errorf("failed to get executed migrations: %w", err)
	}
	ids := make([]string, 0, len(executed))
	for _, m := range executed {
		ids = append(ids, m.ID)
	}

	for _, id := range Pending(ids) {
		migration := lookup(id)
		logger.Info("Running migration", "id", id)
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return err
			}
			return tx.Create(&MigrationRecord{ID: id}).Error
		})
		if err != nil {
			return fmt.Errorf("failed to run migration %s: %w", id, err)
		}
		logger.Info("Completed migration", "id", id)
	}

	return nil
}

// MigrationRecord represents a record of executed migrations
type MigrationRecord struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt int64  `gorm:"autoCreateTime"`
}

// LoadSQLMigrations registers every .sql file of dir in fsys, keyed by file
// name without extension.
func LoadSQLMigrations(fsys fs.FS, dir string) error {
	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}
		content, err := fs.ReadFile(fsys, path.Join(dir, file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file.Name(), err)
		}

		sql := string(content)
		Register(strings.TrimSuffix(file.Name(), ".sql"), func(db *gorm.DB) error {
			return db.Exec(sql).Error
		}, nil)
	}

	return nil
}
