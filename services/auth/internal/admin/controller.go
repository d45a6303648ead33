// Package admin 管理员专用接口。
package admin

import (
	"context"

	"github.com/asistros/pkg/dal"
	"github.com/asistros/pkg/middleware"
	"github.com/asistros/pkg/response"
	"github.com/asistros/pkg/router"
	"github.com/gofiber/fiber/v2"
)

// AccountManager 账号管理
type AccountManager interface {
	UnlockAccount(ctx context.Context, actorID, targetID int64, ip string) error
	SetAccountActive(ctx context.Context, actorID, targetID int64, active bool, ip string) error
}

// Controller 管理控制器
type Controller struct {
	accounts AccountManager
}

// NewController 创建控制器
func NewController(accounts AccountManager) *Controller {
	return &Controller{accounts: accounts}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string {
	return "/admin"
}

// Routes 路由，依赖 identity 与 admin 中间件
func (c *Controller) Routes(middlewares map[string]fiber.Handler) []router.Route {
	guard := []fiber.Handler{middlewares["identity"], middlewares["admin"]}
	return []router.Route{
		{Method: fiber.MethodPost, Path: "/users/:id/unlock", Handler: c.Unlock, Middlewares: guard},
		{Method: fiber.MethodPost, Path: "/users/:id/activate", Handler: c.Activate, Middlewares: guard},
		{Method: fiber.MethodPost, Path: "/users/:id/deactivate", Handler: c.Deactivate, Middlewares: guard},
	}
}

// Unlock 解锁账号
func (c *Controller) Unlock(ctx *fiber.Ctx) error {
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		return response.Unauthorized(ctx)
	}
	id, err := dal.GetIDParam(ctx, "id")
	if err != nil {
		return response.Fail(ctx, err)
	}

	if err := c.accounts.UnlockAccount(ctx.UserContext(), principal.UserID, id, middleware.ClientIP(ctx)); err != nil {
		return response.Fail(ctx, err)
	}
	return response.SuccessWithMessage(ctx, "账号已解锁", nil)
}

// Activate 启用账号
func (c *Controller) Activate(ctx *fiber.Ctx) error {
	return c.setActive(ctx, true, "账号已启用")
}

// Deactivate 停用账号
func (c *Controller) Deactivate(ctx *fiber.Ctx) error {
	return c.setActive(ctx, false, "账号已停用")
}

func (c *Controller) setActive(ctx *fiber.Ctx, active bool, message string) error {
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		return response.Unauthorized(ctx)
	}
	id, err := dal.GetIDParam(ctx, "id")
	if err != nil {
		return response.Fail(ctx, err)
	}

	if err := c.accounts.SetAccountActive(ctx.UserContext(), principal.UserID, id, active, middleware.ClientIP(ctx)); err != nil {
		return response.Fail(ctx, err)
	}
	return response.SuccessWithMessage(ctx, message, nil)
}
