package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SystemHandler 健康检查和接口索引
type SystemHandler struct {
	environment string
}

func NewSystemHandler(environment string) *SystemHandler {
	return &SystemHandler{environment: environment}
}

// Health 存活检查
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "OK",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": h.environment,
	})
}

// Index 接口索引
func (h *SystemHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "School management control plane API",
		"endpoints": gin.H{
			"health":    "/health",
			"login":     "/api/admin/login",
			"schools":   "/api/admin/schools",
			"dashboard": "/api/admin/dashboard/stats",
		},
	})
}
