package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asistros/pkg/auth"
	"github.com/asistros/pkg/logger"
	"github.com/asistros/pkg/middleware"
	pkgRegistry "github.com/asistros/pkg/registry"
	"github.com/asistros/pkg/response"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go-micro.dev/v5/registry"
	"go.uber.org/zap"
)

const (
	// APIVersion API版本前缀
	APIVersion = "/api/v1"

	localRoute = "gatewayRoute"

	breakerThreshold = 5
	breakerTimeout   = 30 * time.Second
)

// Gateway API网关
type Gateway struct {
	registry registry.Registry
	edge     fiber.Handler
	routes   map[string]*ServiceRoute // key: 网关路径前缀
	mu       sync.RWMutex             // 保护routes的并发访问
	breakers *breakerSet
	next     atomic.Uint64
	proxy    http.RoundTripper
	watcher  registry.Watcher
	stopChan chan struct{}
	stopOnce sync.Once
	log      *zap.Logger
}

// ServiceRoute 服务路由
type ServiceRoute struct {
	ServiceName string                  // 微服务名称
	PathPrefix  string                  // 网关路径前缀，如 /api/v1/auth
	Meta        pkgRegistry.ServiceMeta // 节点与公开路由
}

// Option 网关选项
type Option func(*Gateway)

// WithTransport 指定转发使用的 RoundTripper
func WithTransport(rt http.RoundTripper) Option {
	return func(g *Gateway) {
		g.proxy = rt
	}
}

// NewGateway 创建网关，verifier 用于非公开路由的身份过滤
func NewGateway(reg registry.Registry, verifier auth.TokenVerifier, opts ...Option) *Gateway {
	g := &Gateway{
		registry: reg,
		edge:     middleware.EdgeIdentity(verifier),
		routes:   make(map[string]*ServiceRoute),
		breakers: newBreakerSet(breakerThreshold, breakerTimeout),
		proxy:    http.DefaultTransport,
		stopChan: make(chan struct{}),
		log:      logger.WithFields(zap.String("component", "gateway")),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RegisterRoute 注册服务路由
func (g *Gateway) RegisterRoute(route *ServiceRoute) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.routes[route.PathPrefix] = route
	g.log.Info("注册路由",
		zap.String("service", route.ServiceName),
		zap.String("gateway_path", route.PathPrefix),
		zap.Int("nodes", len(route.Meta.Nodes)),
		zap.Int("public_routes", len(route.Meta.Routes)),
	)
}

// SyncRoutes 从注册中心同步所有服务路由
func (g *Gateway) SyncRoutes() error {
	services, err := g.registry.ListServices()
	if err != nil {
		return err
	}

	for _, svc := range services {
		details, err := g.registry.GetService(svc.Name)
		if err != nil {
			g.log.Warn("获取服务详情失败", zap.String("service", svc.Name), zap.Error(err))
			continue
		}
		for _, s := range details {
			g.registerServiceRoutes(s)
		}
	}
	return nil
}

// registerServiceRoutes 网关 /api/v1/{basePath}/* -> 服务 /*
func (g *Gateway) registerServiceRoutes(svc *registry.Service) {
	meta := pkgRegistry.ParseServiceMeta(svc)
	if meta.BasePath == "" || len(meta.Nodes) == 0 {
		return
	}
	g.RegisterRoute(&ServiceRoute{
		ServiceName: svc.Name,
		PathPrefix:  APIVersion + "/" + meta.BasePath,
		Meta:        meta,
	})
}

// unregisterServiceRoutes 注销服务的所有路由
func (g *Gateway) unregisterServiceRoutes(serviceName string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for prefix, route := range g.routes {
		if route.ServiceName == serviceName {
			delete(g.routes, prefix)
			g.log.Info("注销路由", zap.String("service", serviceName), zap.String("path", prefix))
		}
	}
}

// WatchServices 监听服务变化并定期全量同步
func (g *Gateway) WatchServices(syncInterval time.Duration) error {
	watcher, err := g.registry.Watch()
	if err != nil {
		return err
	}
	g.watcher = watcher

	go func() {
		for {
			select {
			case <-g.stopChan:
				return
			default:
			}
			result, err := watcher.Next()
			if err != nil {
				select {
				case <-g.stopChan:
					return
				case <-time.After(time.Second):
				}
				continue
			}
			g.handleServiceEvent(result)
		}
	}()

	if syncInterval > 0 {
		go func() {
			ticker := time.NewTicker(syncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-g.stopChan:
					return
				case <-ticker.C:
					if err := g.SyncRoutes(); err != nil {
						g.log.Warn("同步服务路由失败", zap.Error(err))
					}
				}
			}
		}()
	}

	g.log.Info("开始监听服务变化", zap.Duration("sync_interval", syncInterval))
	return nil
}

// handleServiceEvent 处理服务事件
func (g *Gateway) handleServiceEvent(result *registry.Result) {
	if result == nil || result.Service == nil {
		return
	}

	switch result.Action {
	case "create", "update":
		g.registerServiceRoutes(result.Service)
	case "delete":
		g.unregisterServiceRoutes(result.Service.Name)
		// 同名服务可能还有其他节点
		if details, err := g.registry.GetService(result.Service.Name); err == nil {
			for _, s := range details {
				g.registerServiceRoutes(s)
			}
		}
	}
}

// StopWatch 停止监听
func (g *Gateway) StopWatch() {
	g.stopOnce.Do(func() {
		close(g.stopChan)
		if g.watcher != nil {
			g.watcher.Stop()
		}
	})
}

// match 最长前缀匹配
func (g *Gateway) match(path string) (*ServiceRoute, string) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var matched *ServiceRoute
	for prefix, route := range g.routes {
		if path != prefix && !strings.HasPrefix(path, prefix+"/") {
			continue
		}
		if matched == nil || len(prefix) > len(matched.PathPrefix) {
			matched = route
		}
	}
	if matched == nil {
		return nil, ""
	}
	downstream := strings.TrimPrefix(path, matched.PathPrefix)
	if downstream == "" {
		downstream = "/"
	}
	return matched, downstream
}

// Handlers 代理处理链：路由解析 → 身份过滤 → 转发
func (g *Gateway) Handlers() []fiber.Handler {
	return []fiber.Handler{g.resolve, g.authenticate, g.forward}
}

type resolvedRoute struct {
	route      *ServiceRoute
	downstream string
}

func (g *Gateway) resolve(c *fiber.Ctx) error {
	route, downstream := g.match(c.Path())
	if route == nil {
		return response.Abort(c, http.StatusNotFound, http.StatusNotFound, "服务未找到")
	}
	c.Locals(localRoute, resolvedRoute{route: route, downstream: downstream})
	return c.Next()
}

// authenticate 未声明为公开的路由一律经过身份过滤器
func (g *Gateway) authenticate(c *fiber.Ctx) error {
	r := c.Locals(localRoute).(resolvedRoute)
	if r.route.Meta.IsPublic(r.downstream, c.Method()) {
		return c.Next()
	}
	return g.edge(c)
}

func (g *Gateway) forward(c *fiber.Ctx) error {
	r := c.Locals(localRoute).(resolvedRoute)
	name := r.route.ServiceName

	nodes := g.nodes(r.route)
	if len(nodes) == 0 {
		g.log.Error("服务发现失败", zap.String("service", name))
		return response.Abort(c, http.StatusServiceUnavailable, http.StatusServiceUnavailable, "服务不可用")
	}
	if !g.breakers.allow(name) {
		return response.Abort(c, http.StatusServiceUnavailable, http.StatusServiceUnavailable, "服务暂时不可用")
	}

	node := nodes[g.next.Add(1)%uint64(len(nodes))]
	return g.proxyRequest(c, node, r)
}

// nodes 优先取注册中心的最新节点
func (g *Gateway) nodes(route *ServiceRoute) []string {
	services, err := g.registry.GetService(route.ServiceName)
	if err != nil || len(services) == 0 {
		return route.Meta.Nodes
	}
	var nodes []string
	for _, s := range services {
		for _, n := range s.Nodes {
			if n != nil && n.Address != "" {
				nodes = append(nodes, n.Address)
			}
		}
	}
	return nodes
}

// proxyRequest 代理请求到后端服务
func (g *Gateway) proxyRequest(c *fiber.Ctx, targetAddr string, r resolvedRoute) error {
	target := targetAddr
	if !strings.Contains(target, "://") {
		target = "http://" + target
	}
	targetURL, err := url.Parse(target)
	if err != nil {
		g.log.Error("解析目标URL失败", zap.String("target", targetAddr), zap.Error(err))
		return response.Fail(c, err)
	}

	name := r.route.ServiceName
	// 边缘只认对端地址，客户端自带的 X-Forwarded-For 不可信
	clientIP := c.IP()
	identity := identityHeaders(c)
	reqHost := c.Hostname()
	scheme := c.Protocol()
	requestID := middleware.GetRequestID(c)
	failed := false

	proxy := httputil.NewSingleHostReverseProxy(targetURL)
	proxy.Transport = g.proxy
	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.URL.Path = strings.TrimSuffix(targetURL.Path, "/") + r.downstream
		req.URL.RawPath = ""

		// 传递原始请求信息
		req.Header.Set("X-Forwarded-For", clientIP)
		req.Header.Set("X-Real-IP", clientIP)
		req.Header.Set("X-Forwarded-Proto", scheme)
		req.Header.Set("X-Forwarded-Host", reqHost)
		if requestID != "" {
			req.Header.Set(fiber.HeaderXRequestID, requestID)
		}
		// 适配器转换时同名头只保留最后一个值，这里按原顺序逐个补回
		for key, values := range identity {
			req.Header.Del(key)
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}
	}
	proxy.ModifyResponse = func(resp *http.Response) error {
		if resp.StatusCode >= http.StatusInternalServerError {
			failed = true
		}
		return nil
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, req *http.Request, err error) {
		failed = true
		g.log.Error("代理请求失败",
			zap.String("service", name),
			zap.String("target", targetAddr),
			zap.Error(err),
		)
		w.Header().Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(response.Response{Code: http.StatusBadGateway, Message: "上游服务异常"})
	}

	// 将 net/http handler 转为 fasthttp handler 并直接调用
	fasthttpadaptor.NewFastHTTPHandler(proxy)(c.Context())

	if failed {
		g.breakers.failure(name)
	} else {
		g.breakers.success(name)
	}
	return nil
}

// identityHeaders 复制身份头的全部取值，包括客户端自带的同名头
func identityHeaders(c *fiber.Ctx) map[string][]string {
	headers := make(map[string][]string, len(auth.IdentityHeaders))
	for _, key := range auth.IdentityHeaders {
		for _, v := range c.Request().Header.PeekAll(key) {
			headers[key] = append(headers[key], string(v))
		}
	}
	return headers
}

// ServiceStatus 服务状态
type ServiceStatus struct {
	Name      string   `json:"name"`
	BasePath  string   `json:"basePath,omitempty"`
	Status    string   `json:"status"`
	Breaker   string   `json:"breaker"`
	Nodes     int      `json:"nodes"`
	Addresses []string `json:"addresses,omitempty"`
}

// GetServicesStatus 获取所有服务状态
func (g *Gateway) GetServicesStatus(c *fiber.Ctx) error {
	services, err := g.registry.ListServices()
	if err != nil {
		g.log.Error("获取服务列表失败", zap.Error(err))
		return response.Abort(c, http.StatusInternalServerError, http.StatusInternalServerError, "获取服务列表失败")
	}

	statuses := make([]ServiceStatus, 0, len(services))
	for _, svc := range services {
		details, err := g.registry.GetService(svc.Name)
		if err != nil {
			statuses = append(statuses, ServiceStatus{Name: svc.Name, Status: "unknown", Breaker: g.breakers.state(svc.Name)})
			continue
		}

		status := ServiceStatus{Name: svc.Name, Status: "unhealthy", Breaker: g.breakers.state(svc.Name)}
		for _, s := range details {
			meta := pkgRegistry.ParseServiceMeta(s)
			status.BasePath = meta.BasePath
			status.Addresses = append(status.Addresses, meta.Nodes...)
		}
		status.Nodes = len(status.Addresses)
		if status.Nodes > 0 {
			status.Status = "healthy"
		}
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })

	return response.Success(c, statuses)
}

// Shutdown 关闭网关
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.log.Info("正在关闭网关...")
	g.StopWatch()
	return ctx.Err()
}

// GetRoutes 获取所有已注册的路由（用于调试）
func (g *Gateway) GetRoutes() map[string]*ServiceRoute {
	g.mu.RLock()
	defer g.mu.RUnlock()

	routes := make(map[string]*ServiceRoute, len(g.routes))
	for k, v := range g.routes {
		routes[k] = v
	}
	return routes
}
