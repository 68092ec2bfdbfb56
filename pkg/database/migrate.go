package database

import (
	"fmt"
	"log"

	"survey-assistant-be/internal/model"

	"gorm.io/gorm"
)

// Models lists every table owned by the memory store.
func Models() []interface{} {
	return []interface{}{
		&model.ReasoningSession{},
		&model.ReasoningPhase{},
		&model.ReasoningCacheEntry{},
		&model.UserReasoningPreference{},
	}
}

// Migrate installs the extensions the schema needs and auto-migrates the models.
func Migrate(db *gorm.DB) error {
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}
