package router

import (
	"path"
	"strings"

	"github.com/asistros/pkg/registry"
	"github.com/gofiber/fiber/v2"
)

// Route 路由配置
type Route struct {
	Method      string          // HTTP方法
	Path        string          // 相对控制器前缀的路径
	Handler     fiber.Handler   // 处理函数
	Middlewares []fiber.Handler // 路由级中间件
	Public      bool            // 网关不做身份过滤
}

// Registrar 路由注册器接口
type Registrar interface {
	// Prefix 返回路由前缀
	Prefix() string
	// Routes 返回路由配置列表,接收中间件作为参数
	Routes(middlewares map[string]fiber.Handler) []Route
}

// Register 注册所有控制器的路由，返回需要写入注册中心的公开路由
func Register(app fiber.Router, middlewares map[string]fiber.Handler, controllers ...Registrar) []registry.RouteConfig {
	var public []registry.RouteConfig
	for _, ctrl := range controllers {
		prefix := ctrl.Prefix()
		g := app.Group(prefix)

		for _, route := range ctrl.Routes(middlewares) {
			g.Add(route.Method, route.Path, buildHandlers(route)...)
			if route.Public {
				public = append(public, registry.PublicRoute(joinPath(prefix, route.Path), route.Method))
			}
		}
	}
	return public
}

// joinPath 拼接前缀与路由路径，fiber 参数段替换为通配
func joinPath(prefix, p string) string {
	full := path.Join("/", prefix, p)
	if i := strings.IndexAny(full, ":*"); i >= 0 {
		return strings.TrimSuffix(full[:i], "/") + "/*"
	}
	return full
}

// buildHandlers 构建处理器链(中间件 + 处理函数)
func buildHandlers(route Route) []fiber.Handler {
	handlers := make([]fiber.Handler, 0, len(route.Middlewares)+1)
	handlers = append(handlers, route.Middlewares...)
	return append(handlers, route.Handler)
}
