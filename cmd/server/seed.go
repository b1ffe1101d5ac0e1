package main

import (
	"context"
	"fmt"
	"time"

	"schoolhub/internal/services"
	"schoolhub/pkg/config"
	"schoolhub/pkg/logger"
)

// seedData 初始化种子数据
func seedData(admins *services.AdminService, cfg *config.Config) error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting seed data initialization...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, created, err := admins.EnsureSuperAdmin(ctx, cfg.SuperAdmin.Email, cfg.SuperAdmin.Password, cfg.SuperAdmin.Name)
	if err != nil {
		return fmt.Errorf("create super admin: %w", err)
	}
	if !created {
		appLogger.Infof("Super admin %s already exists, skipping", admin.Email)
	}

	appLogger.Info("Seed data initialization completed successfully")
	return nil
}
