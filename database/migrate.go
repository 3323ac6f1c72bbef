package database

import (
	"fmt"

	"gorm.io/gorm"

	"civicdesk-backend/models"
)

// MigrateAll applies (idempotent) schema migrations for every model. It is
// shared by the startup path and the in-memory test databases.
func MigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.RequestType{},
		&models.Topic{},
		&models.SocialGroup{},
		&models.IntakeForm{},
		&models.Request{},
		&models.Attachment{},
		&models.NotificationEntry{},
		&models.AuditEntry{},
		&models.ProceedingEntry{},
		&models.IdempotencyKey{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// AutoMigrate migrates the shared connection.
func AutoMigrate() {
	if err := MigrateAll(DB); err != nil {
		panic(err)
	}
}
