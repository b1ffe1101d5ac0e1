package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ========== 错误码常量定义 ==========

// HTTP层错误码 (400-599)
const (
	CodeInvalidParam = 400
	CodeUnauthorized = 401
	CodeNotFound     = 404
	CodeServerError  = 500
)

// Kind 业务错误分类
type Kind string

const (
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindAuth         Kind = "auth"
	KindNotFound     Kind = "not_found"
	KindProvisioning Kind = "provisioning"
	KindInternal     Kind = "internal"
)

// InternalMessage 未预期错误对外统一返回的信息
const InternalMessage = "Internal server error"

// AppError 业务错误，携带对外信息和底层原因
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Kind != KindProvisioning {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Status 映射为HTTP状态码
func (e *AppError) Status() int {
	switch e.Kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage 返回可以给调用方看到的信息
func (e *AppError) PublicMessage() string {
	if e.Kind == KindInternal {
		return InternalMessage
	}
	return e.Message
}

func Validation(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

func Conflict(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

func Auth(message string) *AppError {
	return &AppError{Kind: KindAuth, Message: message}
}

func NotFound(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

// Provisioning 开通失败，对外暴露底层原因
func Provisioning(cause error) *AppError {
	return &AppError{
		Kind:    KindProvisioning,
		Message: "Database setup failed: " + cause.Error(),
		Err:     cause,
	}
}

func Internal(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: InternalMessage, Err: err}
}

// As 从错误链中取出AppError
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind 判断错误链中是否有指定分类的AppError
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
