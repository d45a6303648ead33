package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误类别
type Kind string

const (
	// KindValidation 输入不合法，可由调用方修正
	KindValidation Kind = "validation"
	// KindAuthentication 身份无法确认（凭证或令牌无效）
	KindAuthentication Kind = "authentication"
	// KindAuthorization 身份已确认但无权执行
	KindAuthorization Kind = "authorization"
	// KindInfrastructure 存储或下游不可用
	KindInfrastructure Kind = "infrastructure"
)

// 预定义错误
var (
	ErrInvalidCredential = Authentication("用户名或密码错误")
	ErrTokenInvalid      = Authentication("令牌无效")
	ErrUnauthorized      = Authentication("未授权")
	ErrAccountDisabled   = Authorization("账号已停用")
	ErrAccountLocked     = Authorization("账号已锁定")
	ErrForbidden         = Authorization("禁止访问")
	ErrPasswordMismatch  = Validation("两次输入的新密码不一致")
	ErrBadRequest        = Validation("请求参数错误")
	ErrInternalServer    = Infrastructure("服务器内部错误", nil)
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 解包错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按类别与消息比较，使预定义错误在包装后仍可识别
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code && e.Message == t.Message
}

// HTTPStatus 对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		if e.Code == http.StatusUnprocessableEntity || e.Code == http.StatusNotFound {
			return e.Code
		}
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage 返回可以暴露给客户端的消息
// 基础设施错误不泄露底层原因
func (e *AppError) PublicMessage() string {
	if e.Kind == KindInfrastructure {
		return ErrInternalServer.Message
	}
	return e.Message
}

// New 创建新错误
func New(kind Kind, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(err error, kind Kind, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Is 检查是否为指定错误
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As 类型转换错误
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// From 提取AppError，非AppError视为基础设施错误
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Infrastructure("服务器内部错误", err)
}

// KindOf 获取错误类别
func KindOf(err error) Kind {
	return From(err).Kind
}

// GetCode 获取错误码
func GetCode(err error) int {
	return From(err).Code
}

// GetMessage 获取错误消息
func GetMessage(err error) string {
	return From(err).PublicMessage()
}

// Validation 创建验证错误
func Validation(message string) *AppError {
	return New(KindValidation, http.StatusBadRequest, message)
}

// Unprocessable 创建语义校验错误（如弱密码）
func Unprocessable(message string) *AppError {
	return New(KindValidation, http.StatusUnprocessableEntity, message)
}

// Authentication 创建认证错误
func Authentication(message string) *AppError {
	if message == "" {
		message = "未授权"
	}
	return New(KindAuthentication, http.StatusUnauthorized, message)
}

// Authorization 创建授权错误
func Authorization(message string) *AppError {
	if message == "" {
		message = "禁止访问"
	}
	return New(KindAuthorization, http.StatusForbidden, message)
}

// Infrastructure 创建基础设施错误
func Infrastructure(message string, err error) *AppError {
	if message == "" {
		message = "服务器内部错误"
	}
	return Wrap(err, KindInfrastructure, http.StatusInternalServerError, message)
}

// NotFound 创建未找到错误
func NotFound(resource string) *AppError {
	return New(KindValidation, http.StatusNotFound, fmt.Sprintf("%s不存在", resource))
}
