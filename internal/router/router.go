package router

import (
	"schoolhub/internal/handlers"
	"schoolhub/internal/middleware"
	"schoolhub/internal/services"
	"schoolhub/pkg/config"
	"schoolhub/pkg/jwt"
	"schoolhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// Dependencies 路由依赖的服务
type Dependencies struct {
	Config     *config.Config
	Admins     *services.AdminService
	Schools    *services.SchoolService
	Onboarding *services.OnboardingService
	Dashboard  *services.DashboardService
	JWT        *jwt.JWTManager
	Revoker    services.TokenRevoker
}

// SetupRouter 设置路由
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS(deps.Config.CORS))

	registerRoutes(router, deps)

	router.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Route not found")
	})
	return router
}

// 注册所有路由
func registerRoutes(router *gin.Engine, deps Dependencies) {
	auth := middleware.NewAuthMiddleware(deps.Admins, deps.JWT, deps.Revoker)

	systemHandler := handlers.NewSystemHandler(deps.Config.App.Env)
	router.GET("/", systemHandler.Index)
	router.GET("/health", systemHandler.Health)

	api := router.Group("/api/admin")

	authHandler := handlers.NewAuthHandler(deps.Admins, deps.JWT, deps.Revoker)
	api.POST("/login", authHandler.Login)

	// 以下接口都需要登录
	protected := api.Group("", auth.RequireLogin())
	{
		protected.POST("/logout", authHandler.Logout)
		protected.GET("/me", authHandler.Me)
		protected.PUT("/me/password", authHandler.ChangePassword)

		schoolHandler := handlers.NewSchoolHandler(deps.Schools, deps.Onboarding, deps.Config.App.Domain, deps.Config.TenantDB.DBName)
		schools := protected.Group("/schools")
		{
			schools.POST("", schoolHandler.Create)
			schools.GET("", schoolHandler.List)
			schools.GET("/export", schoolHandler.Export)
			schools.GET("/code/:code", schoolHandler.GetByCode)
			schools.GET("/subdomain/:subdomain", schoolHandler.GetBySubdomain)
			schools.GET("/:id", schoolHandler.GetByID)
			schools.PUT("/:id", schoolHandler.Update)
			schools.PATCH("/:id", schoolHandler.Patch)
			schools.DELETE("/:id", schoolHandler.Delete)

			schools.PATCH("/:id/toggle-status", schoolHandler.ToggleStatus)
			schools.PATCH("/:id/activate", schoolHandler.Activate)
			schools.PATCH("/:id/deactivate", schoolHandler.Deactivate)

			schools.POST("/:id/provision", schoolHandler.Provision)
			schools.GET("/:id/provision-logs", schoolHandler.ProvisionLogs)
		}

		dashboardHandler := handlers.NewDashboardHandler(deps.Dashboard)
		dashboard := protected.Group("/dashboard")
		{
			dashboard.GET("/stats", dashboardHandler.Stats)
			dashboard.GET("/recent-schools", dashboardHandler.RecentSchools)
		}
	}
}
