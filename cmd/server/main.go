package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"schoolhub/internal/database"
	"schoolhub/internal/router"
	"schoolhub/internal/services"
	"schoolhub/pkg/config"
	"schoolhub/pkg/jwt"
	"schoolhub/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger := logger.GetLogger()
	appLogger.Info("Starting school management control plane...")

	// 初始化数据库
	db, err := database.Open(cfg)
	if err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			appLogger.Error("Failed to close database:", err)
		}
		appLogger.Info("Database connection closed")
	}()

	if err := database.Migrate(db); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	adminService := services.NewAdminService(db)
	if err := seedData(adminService, cfg); err != nil {
		appLogger.Fatalf("Failed to initialize seed data: %v", err)
	}

	// 登出令牌记录，Redis 不可用时只在客户端登出
	var revoker services.TokenRevoker = services.NoopRevoker{}
	if cfg.Redis.Enabled {
		redisClient, err := database.OpenRedis(cfg)
		if err != nil {
			appLogger.Warnf("Redis unavailable, logout will not revoke tokens: %v", err)
		} else {
			defer redisClient.Close()
			revoker = services.NewRedisTokenRevoker(redisClient, cfg.Redis.Prefix)
		}
	}

	cipher := services.NewSecretCipher(cfg.Secret.EncryptionKey)
	schoolService := services.NewSchoolService(db, cipher, cfg.TenantDB.DefaultPort)
	provisioner := services.NewTenantProvisioner(cfg.TenantDB.DBName, cfg.TenantDB.SSLMode, cfg.Provision.Timeout, services.OpenTenantDB)
	onboarding := services.NewOnboardingService(db, schoolService, provisioner)

	// 启动开通补偿任务
	reconciler := services.NewProvisionReconciler(onboarding, cfg.Provision.ReconcileCron, cfg.Provision.MaxAttempts, cfg.Provision.ReconcileBatch)
	if err := reconciler.Start(); err != nil {
		appLogger.Errorf("Failed to start provision reconciler: %v", err)
		// 不影响主服务启动
	}
	defer reconciler.Stop()

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	r := router.SetupRouter(router.Dependencies{
		Config:     cfg,
		Admins:     adminService,
		Schools:    schoolService,
		Onboarding: onboarding,
		Dashboard:  services.NewDashboardService(db),
		JWT:        jwt.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Duration()),
		Revoker:    revoker,
	})

	// 开通在请求内同步执行，写超时要覆盖开通超时
	writeTimeout := 30 * time.Second
	if cfg.Provision.Timeout > 0 {
		writeTimeout += cfg.Provision.Timeout
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	appLogger.Infof("Server started on port %s (%s)", cfg.Server.Port, cfg.App.Env)

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown:", err)
	}
	appLogger.Info("Server exited")
}
