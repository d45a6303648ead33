package router

import (
	"time"

	"github.com/asistros/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// HealthController 健康检查，所有服务共用
type HealthController struct {
	Service string
}

// Prefix 路由前缀
func (h *HealthController) Prefix() string {
	return "/health"
}

// Routes 路由
func (h *HealthController) Routes(map[string]fiber.Handler) []Route {
	return []Route{
		{Method: fiber.MethodGet, Path: "", Handler: h.Health, Public: true},
	}
}

// Health 健康检查
func (h *HealthController) Health(c *fiber.Ctx) error {
	return response.Success(c, fiber.Map{
		"status":  "healthy",
		"service": h.Service,
		"time":    time.Now().Format(time.RFC3339),
	})
}
