// Package client 客户查询，演示下游服务如何使用网关注入的身份。
package client

import (
	"github.com/asistros/pkg/auth"
	"github.com/asistros/pkg/dal"
	"github.com/asistros/pkg/middleware"
	"github.com/asistros/pkg/response"
	"github.com/asistros/pkg/router"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Controller 客户控制器
type Controller struct {
	repo *Repository
}

// NewController 创建控制器
func NewController(repo *Repository) *Controller {
	return &Controller{repo: repo}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string {
	return "/"
}

// Routes 路由，全部依赖网关身份头
func (c *Controller) Routes(middlewares map[string]fiber.Handler) []router.Route {
	identity := middlewares["identity"]
	return []router.Route{
		{Method: fiber.MethodGet, Path: "/context", Handler: c.Context, Middlewares: []fiber.Handler{identity}},
		{Method: fiber.MethodGet, Path: "/clients", Handler: c.List, Middlewares: []fiber.Handler{identity}},
	}
}

// ContextView 当前调用方
type ContextView struct {
	Principal auth.Principal      `json:"principal"`
	DataScope *auth.DataScopeInfo `json:"dataScope"`
}

// Context 回显网关注入的身份
func (c *Controller) Context(ctx *fiber.Ctx) error {
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		return response.Unauthorized(ctx)
	}
	return response.Success(ctx, ContextView{Principal: principal, DataScope: principal.DataScope()})
}

// List 客户列表
func (c *Controller) List(ctx *fiber.Ctx) error {
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		return response.Unauthorized(ctx)
	}
	page, err := dal.BindPagination(ctx)
	if err != nil {
		return response.Fail(ctx, err)
	}

	result, err := c.repo.ListVisible(ctx.UserContext(), principal.DataScope(), page)
	if err != nil {
		middleware.GetLogger(ctx).Error("查询客户失败", zap.Error(err))
		return response.Fail(ctx, err)
	}
	return response.Success(ctx, result)
}
