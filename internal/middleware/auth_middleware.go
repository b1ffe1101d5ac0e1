package middleware

import (
	"errors"
	"strings"

	"schoolhub/internal/models"
	"schoolhub/internal/services"
	"schoolhub/pkg/jwt"
	"schoolhub/pkg/logger"
	"schoolhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// 上下文中保存的键
const (
	ContextAdmin   = "admin"
	ContextAdminID = "admin_id"
	ContextClaims  = "claims"
)

// AuthMiddleware 登录校验中间件
type AuthMiddleware struct {
	adminService *services.AdminService
	jwtManager   *jwt.JWTManager
	revoker      services.TokenRevoker
}

func NewAuthMiddleware(adminService *services.AdminService, jwtManager *jwt.JWTManager, revoker services.TokenRevoker) *AuthMiddleware {
	if revoker == nil {
		revoker = services.NoopRevoker{}
	}
	return &AuthMiddleware{
		adminService: adminService,
		jwtManager:   jwtManager,
		revoker:      revoker,
	}
}

// RequireLogin 校验 Bearer 令牌并加载管理员
func (m *AuthMiddleware) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(c, "No token provided. Please login first.")
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(authHeader[7:]) // 去掉 "Bearer "
		if tokenString == "" {
			response.Unauthorized(c, "Invalid token format")
			c.Abort()
			return
		}

		claims, err := m.jwtManager.VerifyToken(tokenString)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.Unauthorized(c, "Token expired. Please login again.")
			} else {
				response.Unauthorized(c, "Invalid token")
			}
			c.Abort()
			return
		}

		revoked, err := m.revoker.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			logger.GetLogger().Errorf("Check token revocation failed: %v", err)
			response.ServerError(c, "Failed to verify session")
			c.Abort()
			return
		}
		if revoked {
			response.Unauthorized(c, "Token has been revoked. Please login again.")
			c.Abort()
			return
		}

		admin, err := m.adminService.GetByID(c.Request.Context(), claims.AdminID)
		if err != nil || !m.adminService.IsActive(admin) {
			response.Unauthorized(c, "Admin account not found or inactive")
			c.Abort()
			return
		}

		c.Set(ContextAdmin, admin)
		c.Set(ContextAdminID, admin.ID)
		c.Set(ContextClaims, claims)

		c.Next()
	}
}

// CurrentAdmin 取出当前登录的管理员
func CurrentAdmin(c *gin.Context) (*models.Admin, bool) {
	v, ok := c.Get(ContextAdmin)
	if !ok {
		return nil, false
	}
	admin, ok := v.(*models.Admin)
	return admin, ok
}

// CurrentClaims 取出当前请求的令牌声明
func CurrentClaims(c *gin.Context) (*jwt.JWTClaims, bool) {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*jwt.JWTClaims)
	return claims, ok
}
