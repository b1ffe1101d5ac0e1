package pagination

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
)

// PageParams 分页参数
type PageParams struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"limit" form:"limit"`
}

// PageInfo 分页信息，字段名与前端保持一致
type PageInfo struct {
	Total      int64 `json:"total"`       // 总记录数
	Page       int   `json:"page"`        // 当前页
	PageSize   int   `json:"limit"`       // 每页大小
	TotalPages int   `json:"totalPages"`  // 总页数
	HasNext    bool  `json:"hasNextPage"` // 是否有下一页
	HasPrev    bool  `json:"hasPrevPage"` // 是否有上一页
}

// 分页配置
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage 保证 (page-1)*pageSize 不溢出
	MaxPage = math.MaxInt / MaxPageSize
)

// ParsePageParams 从请求中解析分页参数，limit 优先，兼容 page_size
func ParsePageParams(c *gin.Context) *PageParams {
	pageSizeStr := c.Query("limit")
	if pageSizeStr == "" {
		pageSizeStr = c.Query("page_size")
	}
	return NewPageParams(c.Query("page"), pageSizeStr)
}

// NewPageParams 按默认值和上下限规整分页参数
func NewPageParams(pageStr, pageSizeStr string) *PageParams {
	page, err := strconv.Atoi(pageStr)
	if err != nil {
		page = DefaultPage
	}
	pageSize, err := strconv.Atoi(pageSizeStr)
	if err != nil {
		pageSize = DefaultPageSize
	}
	return Bounded(page, pageSize)
}

// Bounded 把页码和每页大小限制在合法范围内
func Bounded(page, pageSize int) *PageParams {
	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	return &PageParams{
		Page:     page,
		PageSize: pageSize,
	}
}

// NewPageInfo 计算分页信息，returned 为本页实际返回的行数
func NewPageInfo(page, pageSize int, total int64, returned int) *PageInfo {
	params := Bounded(page, pageSize)
	totalPages := int(math.Ceil(float64(total) / float64(params.PageSize)))

	return &PageInfo{
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
		HasNext:    int64(params.GetOffset())+int64(returned) < total,
		HasPrev:    params.Page > 1,
	}
}

// GetOffset 计算offset
func (p *PageParams) GetOffset() int {
	return (p.Page - 1) * p.PageSize
}
