package db

import (
	"fmt"

	"github.com/mwhitfield/redloop/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Cycle{},
		&models.Test{},
		&models.Artifact{},
		&models.Query{},
		&models.QueryComment{},
	}
}

// AutoMigrate creates or updates all Redloop tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
