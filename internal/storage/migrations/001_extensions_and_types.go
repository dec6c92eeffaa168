package migrations

import "gorm.io/gorm"

// migration001Up creates the extensions used by ids and directory search
func migration001Up(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`).Error; err != nil {
		return err
	}

	return nil
}

// migration001Down leaves the extensions in place; other databases objects may depend on them
func migration001Down(db *gorm.DB) error {
	return nil
}
