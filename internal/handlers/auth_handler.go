package handlers

import (
	"schoolhub/internal/middleware"
	"schoolhub/internal/services"
	"schoolhub/pkg/jwt"
	"schoolhub/pkg/logger"
	"schoolhub/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	adminService *services.AdminService
	jwtManager   *jwt.JWTManager
	revoker      services.TokenRevoker
}

func NewAuthHandler(adminService *services.AdminService, jwtManager *jwt.JWTManager, revoker services.TokenRevoker) *AuthHandler {
	if revoker == nil {
		revoker = services.NoopRevoker{}
	}
	return &AuthHandler{
		adminService: adminService,
		jwtManager:   jwtManager,
		revoker:      revoker,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type AdminInfo struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Login 管理员登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Email and password are required")
		return
	}

	admin, err := h.adminService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Fail(c, err, "Server error. Please try again.")
		return
	}

	token, claims, err := h.jwtManager.GenerateToken(admin.ID, admin.Email, admin.Role)
	if err != nil {
		response.Fail(c, err, "Server error. Please try again.")
		return
	}

	response.SuccessWithMessage(c, "Login successful", gin.H{
		"token":      token,
		"expires_at": claims.ExpiresAt.Unix(),
		"admin": AdminInfo{
			ID:    admin.ID,
			Email: admin.Email,
			Name:  admin.Name,
			Role:  admin.Role,
		},
	})
}

// Logout 登出，当前令牌在过期前不能再使用
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Unauthorized(c, "No token provided. Please login first.")
		return
	}

	if err := h.revoker.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		response.Fail(c, err, "Failed to logout")
		return
	}

	logger.GetLogger().Infof("Admin %s logged out", claims.Email)
	response.SuccessWithMessage(c, "Logout successful", nil)
}

// Me 当前管理员信息
func (h *AuthHandler) Me(c *gin.Context) {
	admin, ok := middleware.CurrentAdmin(c)
	if !ok {
		response.Unauthorized(c, "No token provided. Please login first.")
		return
	}

	response.Success(c, gin.H{
		"admin": AdminInfo{
			ID:    admin.ID,
			Email: admin.Email,
			Name:  admin.Name,
			Role:  admin.Role,
		},
	})
}

// ChangePassword 修改当前管理员密码
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	admin, ok := middleware.CurrentAdmin(c)
	if !ok {
		response.Unauthorized(c, "No token provided. Please login first.")
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Current password and new password are required")
		return
	}

	if err := h.adminService.ChangePassword(c.Request.Context(), admin.ID, req.CurrentPassword, req.NewPassword); err != nil {
		response.Fail(c, err, "Failed to change password")
		return
	}

	response.SuccessWithMessage(c, "Password updated successfully", nil)
}
