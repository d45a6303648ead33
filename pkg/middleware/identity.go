package middleware

import (
	"strings"

	"github.com/asistros/pkg/auth"
	apperrors "github.com/asistros/pkg/errors"
	"github.com/asistros/pkg/response"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	bearerPrefix   = "Bearer "
	localPrincipal = "principal"
)

// EdgeIdentity 网关身份过滤器
//
// 校验 Bearer 令牌后把身份信息以可信请求头的形式追加到转发请求上。
// 头部只追加不清除，客户端伪造的同名头会一并转发；下游服务必须只能经由网关访问。
// 过滤器本身不做任何授权判断。
func EdgeIdentity(verifier auth.TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			GetLogger(c).Debug("缺少或格式错误的认证头", zap.String("path", c.Path()))
			return response.Unauthorized(c)
		}

		claims, err := verifier.Verify(token)
		if err != nil || verifier.IsExpired(token) {
			GetLogger(c).Debug("令牌校验失败", zap.String("path", c.Path()))
			return response.Unauthorized(c)
		}

		principal := auth.PrincipalFromClaims(claims)
		for _, h := range principal.Headers() {
			c.Request().Header.Add(h.Name, h.Value)
		}
		c.Locals(localPrincipal, principal)

		return c.Next()
	}
}

// bearerToken 提取 Bearer 令牌
func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

// BearerToken 从请求中提取 Bearer 令牌
func BearerToken(c *fiber.Ctx) (string, bool) {
	return bearerToken(c.Get(fiber.HeaderAuthorization))
}

// TrustedIdentity 下游服务使用，信任网关注入的身份头，不再校验令牌
func TrustedIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := auth.PrincipalFromHeaders(func(name string) string { return c.Get(name) })
		if err != nil {
			GetLogger(c).Warn("缺少网关身份头", zap.String("path", c.Path()), zap.Error(err))
			return response.Unauthorized(c)
		}

		c.Locals(localPrincipal, principal)
		c.Locals(localLogger, GetLogger(c).With(
			zap.Int64("user_id", principal.UserID),
			zap.String("user", principal.LoginName),
			zap.Int64("employee_id", principal.EmployeeID),
			zap.Strings("roles", principal.Roles),
		))
		GetLogger(c).Debug("用户访问", zap.String("method", c.Method()), zap.String("path", c.Path()))

		return c.Next()
	}
}

// RequireRole 基于 Casbin 策略的管理接口鉴权，需在 TrustedIdentity 之后使用
func RequireRole(authorizer *auth.Authorizer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := GetPrincipal(c)
		if !ok {
			return response.Unauthorized(c)
		}

		allowed, err := authorizer.Allow(principal.Roles, c.Path(), c.Method())
		if err != nil {
			return apperrors.Infrastructure("", err)
		}
		if !allowed {
			GetLogger(c).Warn("权限不足", zap.String("path", c.Path()))
			return response.Fail(c, apperrors.ErrForbidden)
		}
		return c.Next()
	}
}

// GetPrincipal 获取当前调用方
func GetPrincipal(c *fiber.Ctx) (auth.Principal, bool) {
	p, ok := c.Locals(localPrincipal).(auth.Principal)
	return p, ok
}
