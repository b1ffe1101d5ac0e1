package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"schoolhub/internal/models"
	"schoolhub/internal/services"
	"schoolhub/pkg/pagination"
	"schoolhub/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultProvisionLogLimit = 20
	maxProvisionLogLimit     = 100
)

// CreateSchoolRequest 创建学校请求
type CreateSchoolRequest struct {
	Code            string       `json:"code"`
	Name            string       `json:"name"`
	Subdomain       string       `json:"subdomain"`
	Address         string       `json:"address"`
	Phone           string       `json:"phone"`
	Email           string       `json:"email"`
	LogoPath        string       `json:"logoPath"`
	BannerPath      string       `json:"bannerPath"`
	PrincipalName   string       `json:"principalName"`
	EstablishedYear *json.Number `json:"establishedYear"`
	DBHost          string       `json:"db_host"`
	SchemaName      string       `json:"schema_name"`
	DBUsername      string       `json:"db_username"`
	DBPassword      string       `json:"db_password"`
	DBPort          *json.Number `json:"db_port"`
}

// UpdateSchoolRequest 更新学校请求，只包含允许修改的字段
type UpdateSchoolRequest struct {
	Name            *string      `json:"name"`
	Address         *string      `json:"address"`
	Phone           *string      `json:"phone"`
	Email           *string      `json:"email"`
	LogoPath        *string      `json:"logoPath"`
	BannerPath      *string      `json:"bannerPath"`
	PrincipalName   *string      `json:"principalName"`
	EstablishedYear *json.Number `json:"establishedYear"`
}

type SchoolHandler struct {
	schools    *services.SchoolService
	onboarding *services.OnboardingService
	appDomain  string
	// 租户schema实际所在的数据库
	tenantDB string
}

func NewSchoolHandler(schools *services.SchoolService, onboarding *services.OnboardingService, appDomain, tenantDB string) *SchoolHandler {
	return &SchoolHandler{
		schools:    schools,
		onboarding: onboarding,
		appDomain:  appDomain,
		tenantDB:   tenantDB,
	}
}

// numberValue 解析数字或数字字符串，空值返回 nil
func numberValue(n *json.Number) (*int, error) {
	if n == nil || n.String() == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(n.String())
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// parseID 解析路径中的学校ID
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "Invalid school ID")
		return 0, false
	}
	return uint(id), true
}

// parseTriState 解析 true/false 筛选参数，未提供时返回 nil
func parseTriState(c *gin.Context, key string) (*bool, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		response.BadRequest(c, fmt.Sprintf("Invalid %s value: must be true or false", key))
		return nil, false
	}
	return &v, true
}

// parseFilter 解析列表和导出的筛选条件
func parseFilter(c *gin.Context) (services.ListFilter, bool) {
	isActive, ok := parseTriState(c, "is_active")
	if !ok {
		return services.ListFilter{}, false
	}
	setupCompleted, ok := parseTriState(c, "setup_completed")
	if !ok {
		return services.ListFilter{}, false
	}

	pageParams := pagination.ParsePageParams(c)
	return services.ListFilter{
		Search:         c.Query("search"),
		IsActive:       isActive,
		SetupCompleted: setupCompleted,
		Page:           pageParams.Page,
		PageSize:       pageParams.PageSize,
	}, true
}

// Create 创建学校并开通数据库
func (h *SchoolHandler) Create(c *gin.Context) {
	var req CreateSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	year, err := numberValue(req.EstablishedYear)
	if err != nil {
		response.BadRequest(c, "Established year must be a number")
		return
	}
	port, err := numberValue(req.DBPort)
	if err != nil {
		response.BadRequest(c, "Database port must be a number")
		return
	}

	in := services.CreateSchoolInput{
		Code:            req.Code,
		Name:            req.Name,
		Subdomain:       req.Subdomain,
		Address:         req.Address,
		Phone:           req.Phone,
		Email:           req.Email,
		LogoPath:        req.LogoPath,
		BannerPath:      req.BannerPath,
		PrincipalName:   req.PrincipalName,
		EstablishedYear: year,
		DBHost:          req.DBHost,
		DBUsername:      req.DBUsername,
		DBPassword:      req.DBPassword,
		SchemaName:      req.SchemaName,
	}
	if port != nil {
		in.DBPort = *port
	}

	school, err := h.onboarding.CreateSchool(c.Request.Context(), in)
	if err != nil {
		response.Fail(c, err, "Failed to create school")
		return
	}

	response.Created(c, "School created successfully", gin.H{
		"school": gin.H{
			"id":              school.ID,
			"code":            school.Code,
			"name":            school.Name,
			"subdomain":       school.Subdomain,
			"schema":          school.SchemaName,
			"database":        h.tenantDB,
			"db_name":         school.DBName,
			"app_url":         h.appURL(school.Subdomain),
			"setup_completed": school.SetupCompleted,
		},
	})
}

func (h *SchoolHandler) appURL(subdomain string) string {
	return fmt.Sprintf("https://%s.%s", subdomain, h.appDomain)
}

// List 分页查询学校
func (h *SchoolHandler) List(c *gin.Context) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	schools, total, err := h.schools.List(c.Request.Context(), filter)
	if err != nil {
		response.Fail(c, err, "Failed to fetch schools")
		return
	}

	pageInfo := pagination.NewPageInfo(filter.Page, filter.PageSize, total, len(schools))
	response.SuccessWithPage(c, "schools", models.SchoolViews(schools), pageInfo)
}

// Export 导出学校列表
func (h *SchoolHandler) Export(c *gin.Context) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	data, err := h.schools.Export(c.Request.Context(), filter)
	if err != nil {
		response.Fail(c, err, "Failed to export schools")
		return
	}

	filename := fmt.Sprintf("schools-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// GetByID 根据ID获取学校
func (h *SchoolHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	school, err := h.schools.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err, "Failed to fetch school details")
		return
	}
	response.Success(c, gin.H{"school": school.View()})
}

// GetByCode 根据代码获取学校
func (h *SchoolHandler) GetByCode(c *gin.Context) {
	school, err := h.schools.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Fail(c, err, "Failed to fetch school details")
		return
	}
	response.Success(c, gin.H{"school": school.View()})
}

// GetBySubdomain 根据子域名获取学校
func (h *SchoolHandler) GetBySubdomain(c *gin.Context) {
	school, err := h.schools.GetBySubdomain(c.Request.Context(), c.Param("subdomain"))
	if err != nil {
		response.Fail(c, err, "Failed to fetch school details")
		return
	}
	response.Success(c, gin.H{"school": school.View()})
}

// Update 全量更新（PUT）
func (h *SchoolHandler) Update(c *gin.Context) {
	h.update(c, false)
}

// Patch 部分更新（PATCH），没有可更新字段时返回400
func (h *SchoolHandler) Patch(c *gin.Context) {
	h.update(c, true)
}

func (h *SchoolHandler) update(c *gin.Context, partial bool) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	year, err := numberValue(req.EstablishedYear)
	if err != nil {
		response.BadRequest(c, "Established year must be a number")
		return
	}

	update := services.SchoolUpdate{
		Name:            req.Name,
		Address:         req.Address,
		Phone:           req.Phone,
		Email:           req.Email,
		LogoPath:        req.LogoPath,
		BannerPath:      req.BannerPath,
		PrincipalName:   req.PrincipalName,
		EstablishedYear: year,
	}

	school, err := h.schools.Update(c.Request.Context(), id, update, partial)
	if err != nil {
		response.Fail(c, err, "Failed to update school")
		return
	}
	response.SuccessWithMessage(c, "School updated successfully", gin.H{"school": school.View()})
}

// ToggleStatus 切换激活状态
func (h *SchoolHandler) ToggleStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	school, err := h.schools.ToggleActive(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err, "Failed to update school status")
		return
	}

	action := "deactivated"
	if school.IsActive {
		action = "activated"
	}
	response.SuccessWithMessage(c, fmt.Sprintf("School %s successfully", action), gin.H{
		"school": gin.H{
			"id":        school.ID,
			"name":      school.Name,
			"code":      school.Code,
			"is_active": school.IsActive,
			"isActive":  school.IsActive,
		},
	})
}

// Activate 激活学校
func (h *SchoolHandler) Activate(c *gin.Context) {
	h.setActive(c, true, "School activated successfully", "Failed to activate school")
}

// Deactivate 停用学校
func (h *SchoolHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false, "School deactivated successfully", "Failed to deactivate school")
}

func (h *SchoolHandler) setActive(c *gin.Context, active bool, message, fallback string) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	school, err := h.schools.SetActive(c.Request.Context(), id, active)
	if err != nil {
		response.Fail(c, err, fallback)
		return
	}
	response.SuccessWithMessage(c, message, gin.H{"school": school.View()})
}

// Delete 删除学校，permanent=true 时物理删除，否则只停用
func (h *SchoolHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	permanent := c.Query("permanent") == "true"
	if err := h.schools.Delete(c.Request.Context(), id, permanent); err != nil {
		response.Fail(c, err, "Failed to delete school")
		return
	}

	if permanent {
		response.SuccessWithMessage(c, "School permanently deleted", nil)
		return
	}
	response.SuccessWithMessage(c, "School deactivated successfully", nil)
}

// Provision 手动重新开通
func (h *SchoolHandler) Provision(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	school, err := h.onboarding.Reprovision(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err, "Failed to provision school")
		return
	}
	response.SuccessWithMessage(c, "School database provisioned successfully", gin.H{
		"school": school.View(),
	})
}

// ProvisionLogs 开通记录
func (h *SchoolHandler) ProvisionLogs(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultProvisionLogLimit)))
	if err != nil || limit < 1 {
		limit = defaultProvisionLogLimit
	}
	if limit > maxProvisionLogLimit {
		limit = maxProvisionLogLimit
	}

	logs, err := h.onboarding.ProvisionHistory(c.Request.Context(), id, limit)
	if err != nil {
		response.Fail(c, err, "Failed to fetch provision logs")
		return
	}
	response.Success(c, gin.H{"logs": logs})
}
