package middleware

import (
	"errors"
	"strings"
	"time"

	apperrors "github.com/asistros/pkg/errors"
	"github.com/asistros/pkg/logger"
	"github.com/asistros/pkg/response"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	localRequestID = "requestId"
	localLogger    = "logger"
)

// Recovery 恢复中间件
func Recovery() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				GetLogger(c).Error("panic recovered",
					zap.Any("error", r),
					zap.String("path", c.Path()),
					zap.String("method", c.Method()),
				)
				err = response.Fail(c, apperrors.ErrInternalServer)
			}
		}()
		return c.Next()
	}
}

// Cors 跨域中间件
func Cors() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if origin := c.Get("Origin"); origin != "" {
			c.Set("Access-Control-Allow-Origin", origin)
			c.Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			c.Set("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization")
			c.Set("Access-Control-Allow-Credentials", "true")
		}
		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

// RequestID 请求ID中间件
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
			c.Request().Header.Set(fiber.HeaderXRequestID, requestID)
		}
		c.Locals(localRequestID, requestID)
		c.Locals(localLogger, logger.WithFields(zap.String("request_id", requestID)))
		c.Set(fiber.HeaderXRequestID, requestID)
		return c.Next()
	}
}

// AccessLog 访问日志
func AccessLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		GetLogger(c).Info("http request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", ClientIP(c)),
		)
		return err
	}
}

// ErrorHandler 统一错误处理中间件
// 业务错误按类别映射状态码，其余错误一律返回通用内部错误
func ErrorHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return response.Abort(c, fiberErr.Code, fiberErr.Code, fiberErr.Message)
		}

		appErr := apperrors.From(err)
		if appErr.Kind == apperrors.KindInfrastructure {
			GetLogger(c).Error("request failed", zap.Error(err), zap.String("path", c.Path()))
		}
		return response.Fail(c, appErr)
	}
}

// GetRequestID 获取请求ID
func GetRequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(localRequestID).(string); ok {
		return id
	}
	return ""
}

// ClientIP 客户端地址，经网关转发时取 X-Forwarded-For 的第一跳
// 只用于网关之后的服务，网关自身以对端地址为准
func ClientIP(c *fiber.Ctx) string {
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return c.IP()
}

// GetLogger 获取带请求字段的日志
func GetLogger(c *fiber.Ctx) *zap.Logger {
	if l, ok := c.Locals(localLogger).(*zap.Logger); ok {
		return l
	}
	return logger.Get().Logger
}
