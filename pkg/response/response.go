package response

import (
	"net/http"

	"schoolhub/pkg/errors"
	"schoolhub/pkg/logger"
	"schoolhub/pkg/pagination"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 统一错误返回格式
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ========== 基础返回方法 ==========

// Success 成功返回，fields 平铺到响应体中
func Success(c *gin.Context, fields gin.H) {
	write(c, http.StatusOK, "", fields)
}

// SuccessWithMessage 成功返回（自定义消息）
func SuccessWithMessage(c *gin.Context, message string, fields gin.H) {
	write(c, http.StatusOK, message, fields)
}

// Created 创建成功返回
func Created(c *gin.Context, message string, fields gin.H) {
	write(c, http.StatusCreated, message, fields)
}

// SuccessWithPage 分页成功返回
func SuccessWithPage(c *gin.Context, key string, rows interface{}, pageInfo *pagination.PageInfo) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			key:          rows,
			"pagination": pageInfo,
		},
	})
}

func write(c *gin.Context, status int, message string, fields gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}

// Error 通用错误返回
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, ErrorResponse{
		Success: false,
		Error:   message,
	})
}

// Fail 按错误类型返回，未知错误记录日志并使用 fallback 信息
func Fail(c *gin.Context, err error, fallback string) {
	if appErr, ok := errors.As(err); ok {
		if appErr.Kind == errors.KindInternal || appErr.Kind == errors.KindProvisioning {
			logger.GetLogger().WithField("path", c.FullPath()).Errorf("%s: %v", fallback, err)
		}
		message := appErr.PublicMessage()
		if appErr.Kind == errors.KindInternal {
			message = fallback
		}
		Error(c, appErr.Status(), message)
		return
	}

	logger.GetLogger().WithField("path", c.FullPath()).Errorf("%s: %v", fallback, err)
	ServerError(c, fallback)
}

// ========== HTTP错误快捷方法 ==========

func BadRequest(c *gin.Context, message string) {
	Error(c, errors.CodeInvalidParam, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, errors.CodeUnauthorized, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, errors.CodeNotFound, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, errors.CodeServerError, message)
}
