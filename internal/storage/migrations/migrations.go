package migrations

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/gravadigital/community-portal/internal/logger"
)

var ErrNothingToRollback = errors.New("no migrations to rollback")

// Migration represents a database migration
type Migration struct {
	ID   string
	Name string
	Up   func(*gorm.DB) error
	Down func(*gorm.DB) error
}

// AppliedMigration is a row of schema_migrations
type AppliedMigration struct {
	ID        string
	Name      string
	AppliedAt time.Time
}

// GetMigrations returns all available migrations ordered by ID
func GetMigrations() []Migration {
	return []Migration{
		{ID: "001", Name: "create_extensions", Up: migration001Up, Down: migration001Down},
		{ID: "002", Name: "create_core_tables", Up: migration002Up, Down: migration002Down},
		{ID: "003", Name: "create_indexes", Up: migration003Up, Down: migration003Down},
		{ID: "004", Name: "create_constraints_and_triggers", Up: migration004Up, Down: migration004Down},
		{ID: "005", Name: "create_change_notifications", Up: migration005Up, Down: migration005Down},
		{ID: "006", Name: "add_profile_references", Up: migration006Up, Down: migration006Down},
	}
}

// Pending returns the migrations missing from applied, in order
func Pending(all []Migration, applied []AppliedMigration) []Migration {
	done := make(map[string]bool, len(applied))
	for _, a := range applied {
		done[a.ID] = true
	}

	pending := []Migration{}
	for _, m := range all {
		if !done[m.ID] {
			pending = append(pending, m)
		}
	}
	return pending
}

// RunMigrations applies every pending migration, each in its own transaction
func RunMigrations(db *gorm.DB) error {
	log := logger.Migration()

	applied, err := Applied(db)
	if err != nil {
		return err
	}
	pending := Pending(GetMigrations(), applied)
	if len(pending) == 0 {
		log.Info("Schema is up to date", "applied", len(applied))
		return nil
	}

	for _, m := range pending {
		log.Info("Running migration", "id", m.ID, "name", m.Name)

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return fmt.Errorf("failed to run migration %s: %w", m.ID, err)
			}
			return tx.Exec("INSERT INTO schema_migrations (id, name) VALUES (?, ?)", m.ID, m.Name).Error
		})
		if err != nil {
			return err
		}

		log.Info("Successfully applied migration", "id", m.ID)
	}

	log.Info("All migrations completed successfully", "applied", len(pending))
	return nil
}

// RollbackMigration reverts the most recently applied migration
func RollbackMigration(db *gorm.DB) error {
	log := logger.Migration()

	applied, err := Applied(db)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return ErrNothingToRollback
	}
	last := applied[len(applied)-1]

	var target *Migration
	for _, m := range GetMigrations() {
		if m.ID == last.ID {
			target = &m
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration %s is recorded but unknown to this build", last.ID)
	}

	log.Info("Rolling back migration", "id", target.ID, "name", target.Name)

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := target.Down(tx); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", target.ID, err)
		}
		return tx.Exec("DELETE FROM schema_migrations WHERE id = ?", target.ID).Error
	})
	if err != nil {
		return err
	}

	log.Info("Successfully rolled back migration", "id", target.ID)
	return nil
}

// Applied returns the applied migrations ordered by ID, creating the tracking
// table on first use
func Applied(db *gorm.DB) ([]AppliedMigration, error) {
	err := db.Exec(`
        CREATE TABLE IF NOT EXISTS schema_migrations (
            id VARCHAR(10) PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )
    `).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied := []AppliedMigration{}
	if err := db.Raw("SELECT id, name, applied_at FROM schema_migrations ORDER BY id").Scan(&applied).Error; err != nil {
		return nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}
	return applied, nil
}
