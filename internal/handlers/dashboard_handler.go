package handlers

import (
	"strconv"

	"schoolhub/internal/services"
	"schoolhub/pkg/response"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	service *services.DashboardService
}

func NewDashboardHandler(service *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Stats 仪表盘统计
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Fail(c, err, "Failed to fetch dashboard stats")
		return
	}
	response.Success(c, gin.H{"stats": stats})
}

// RecentSchools 最近创建的学校，limit 超出范围时按默认值和上限处理
func (h *DashboardHandler) RecentSchools(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	schools, err := h.service.RecentSchools(c.Request.Context(), limit)
	if err != nil {
		response.Fail(c, err, "Failed to fetch recent schools")
		return
	}
	response.Success(c, gin.H{"schools": schools})
}
