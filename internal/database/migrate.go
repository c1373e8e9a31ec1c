package database

import (
	"fmt"

	"seniority/internal/models"

	"gorm.io/gorm"
)

// Models lists every persisted model in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Friendship{},
		&models.GameSession{},
		&models.GameMove{},
		&models.GameStats{},
		&models.Group{},
		&models.GroupMembership{},
		&models.Notification{},
	}
}

// Migrate creates or updates the schema for all models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
