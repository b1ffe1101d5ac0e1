package database

import (
	"schoolhub/internal/models"
	"schoolhub/pkg/logger"

	"gorm.io/gorm"
)

// Migrate 执行控制面数据库迁移
func Migrate(db *gorm.DB) error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting database migration...")

	err := db.AutoMigrate(
		&models.Admin{},
		&models.School{},
		&models.ProvisionLog{},
	)
	if err != nil {
		appLogger.Errorf("Database migration failed: %v", err)
		return err
	}

	appLogger.Info("Database migration completed successfully")
	return nil
}
