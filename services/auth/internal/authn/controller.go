package authn

import (
	"github.com/asistros/pkg/auth"
	apperrors "github.com/asistros/pkg/errors"
	"github.com/asistros/pkg/middleware"
	"github.com/asistros/pkg/response"
	"github.com/asistros/pkg/router"
	"github.com/gofiber/fiber/v2"
)

// Controller 认证控制器
type Controller struct {
	service *Service
}

// NewController 创建控制器
func NewController(service *Service) *Controller {
	return &Controller{service: service}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string {
	return "/"
}

// Routes 路由，受保护接口依赖 identity 中间件
func (c *Controller) Routes(middlewares map[string]fiber.Handler) []router.Route {
	identity := middlewares["identity"]
	return []router.Route{
		{Method: fiber.MethodPost, Path: "/login", Handler: c.Login, Public: true},
		{Method: fiber.MethodGet, Path: "/validate", Handler: c.Validate, Public: true},
		{Method: fiber.MethodPost, Path: "/validate", Handler: c.Validate, Public: true},
		{Method: fiber.MethodPost, Path: "/refresh", Handler: c.Refresh, Public: true},
		{Method: fiber.MethodPost, Path: "/change-password", Handler: c.ChangePassword, Middlewares: []fiber.Handler{identity}},
		{Method: fiber.MethodGet, Path: "/profile", Handler: c.Profile, Middlewares: []fiber.Handler{identity}},
		{Method: fiber.MethodPost, Path: "/logout", Handler: c.Logout, Middlewares: []fiber.Handler{identity}},
	}
}

// Login 登录
func (c *Controller) Login(ctx *fiber.Ctx) error {
	var req LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.Fail(ctx, apperrors.ErrBadRequest)
	}

	tokens, err := c.service.Login(ctx.UserContext(), LoginInput{
		LoginName: req.LoginName,
		Password:  req.Password,
		IP:        middleware.ClientIP(ctx),
	})
	if err != nil {
		return response.Fail(ctx, err)
	}
	return response.Success(ctx, tokens)
}

// Validate 令牌自检，结果总是 200
func (c *Controller) Validate(ctx *fiber.Ctx) error {
	token, ok := middleware.BearerToken(ctx)
	if !ok {
		return response.Success(ctx, ValidationResult{InvalidReason: auth.ReasonMalformed})
	}
	return response.Success(ctx, c.service.Validate(token))
}

// Refresh 刷新会话令牌
func (c *Controller) Refresh(ctx *fiber.Ctx) error {
	var req RefreshRequest
	if err := ctx.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return response.Fail(ctx, apperrors.ErrBadRequest)
	}

	tokens, err := c.service.Refresh(ctx.UserContext(), req.RefreshToken, middleware.ClientIP(ctx))
	if err != nil {
		return response.Fail(ctx, err)
	}
	return response.Success(ctx, tokens)
}

// ChangePassword 修改密码
func (c *Controller) ChangePassword(ctx *fiber.Ctx) error {
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		return response.Unauthorized(ctx)
	}

	var req ChangePasswordRequest
	if err := ctx.BodyParser(&req); err != nil {
		return response.Fail(ctx, apperrors.ErrBadRequest)
	}

	err := c.service.ChangePassword(ctx.UserContext(), ChangePasswordInput{
		UserID:  principal.UserID,
		Current: req.CurrentPassword,
		New:     req.NewPassword,
		Confirm: req.ConfirmPassword,
		IP:      middleware.ClientIP(ctx),
	})
	if err != nil {
		return response.Fail(ctx, err)
	}
	return response.NoContent(ctx)
}

// Profile 个人资料
func (c *Controller) Profile(ctx *fiber.Ctx) error {
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		return response.Unauthorized(ctx)
	}

	profile, err := c.service.Profile(ctx.UserContext(), principal.UserID)
	if err != nil {
		return response.Fail(ctx, err)
	}
	return response.Success(ctx, profile)
}

// Logout 登出
func (c *Controller) Logout(ctx *fiber.Ctx) error {
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		return response.Unauthorized(ctx)
	}

	c.service.Logout(ctx.UserContext(), principal.UserID, middleware.ClientIP(ctx))
	return response.SuccessWithMessage(ctx, "已登出", nil)
}
