// Package registry 服务注册与发现。
//
// 服务把网关前缀和公开路由写进节点元数据，网关据此决定哪些请求需要经过身份过滤器。
package registry

import (
	"encoding/json"
	"fmt"
	"strings"

	"go-micro.dev/v5/registry"
)

// 节点元数据 key
const (
	metaBasePath = "base_path"
	metaRoutes   = "routes"
)

// RouteConfig 服务内的路由声明（路径不含网关前缀）
type RouteConfig struct {
	Path    string   `json:"path"`              // 精确路径，或以 /* 结尾的前缀
	Methods []string `json:"methods,omitempty"` // 为空表示所有方法
	Public  bool     `json:"public"`            // 是否跳过身份过滤器
}

// ServiceConfig 服务注册配置
type ServiceConfig struct {
	Name     string
	Version  string
	NodeID   string
	Address  string
	BasePath string // 网关将 /api/v1/{BasePath}/* 代理到服务的 /*
	Routes   []RouteConfig
}

// ServiceMeta 网关从注册信息中解析出的服务元数据
type ServiceMeta struct {
	Name     string
	BasePath string
	Nodes    []string
	Routes   []RouteConfig
}

// BuildService 构建服务注册信息
func BuildService(cfg *ServiceConfig) (*registry.Service, error) {
	if cfg.Name == "" || cfg.Address == "" {
		return nil, fmt.Errorf("service name and address are required")
	}
	routesJSON, err := json.Marshal(cfg.Routes)
	if err != nil {
		return nil, fmt.Errorf("marshal routes: %w", err)
	}

	nodeID := cfg.NodeID
	if nodeID == "" {
		nodeID = cfg.Name + "-1"
	}

	return &registry.Service{
		Name:    cfg.Name,
		Version: cfg.Version,
		Nodes: []*registry.Node{
			{
				Id:      nodeID,
				Address: cfg.Address,
				Metadata: map[string]string{
					metaRoutes:   string(routesJSON),
					metaBasePath: cfg.BasePath,
				},
			},
		},
	}, nil
}

// ParseServiceMeta 从注册信息中解析服务元数据
// 元数据损坏的节点仍参与转发，但只认它声明的 base_path，路由全部按受保护处理
func ParseServiceMeta(svc *registry.Service) ServiceMeta {
	meta := ServiceMeta{Name: svc.Name}
	seen := make(map[string]bool)
	for _, node := range svc.Nodes {
		if node == nil {
			continue
		}
		meta.Nodes = append(meta.Nodes, node.Address)
		if bp := node.Metadata[metaBasePath]; bp != "" {
			meta.BasePath = strings.Trim(bp, "/")
		}
		raw, ok := node.Metadata[metaRoutes]
		if !ok {
			continue
		}
		var routes []RouteConfig
		if err := json.Unmarshal([]byte(raw), &routes); err != nil {
			continue
		}
		for _, r := range routes {
			key := r.Path + "|" + strings.Join(r.Methods, ",")
			if !seen[key] {
				seen[key] = true
				meta.Routes = append(meta.Routes, r)
			}
		}
	}
	if meta.BasePath == "" {
		meta.BasePath = svc.Name
	}
	return meta
}

// PublicRoute 公开路由
func PublicRoute(path string, methods ...string) RouteConfig {
	return RouteConfig{Path: path, Methods: methods, Public: true}
}

// ServiceBuilder 服务构建器
type ServiceBuilder struct {
	config ServiceConfig
}

// NewServiceBuilder 创建服务构建器
func NewServiceBuilder(name, version string) *ServiceBuilder {
	return &ServiceBuilder{config: ServiceConfig{Name: name, Version: version}}
}

// WithNodeID 设置节点ID
func (b *ServiceBuilder) WithNodeID(nodeID string) *ServiceBuilder {
	b.config.NodeID = nodeID
	return b
}

// WithAddress 设置服务地址
func (b *ServiceBuilder) WithAddress(addr string) *ServiceBuilder {
	b.config.Address = addr
	return b
}

// WithBasePath 设置服务基础路径
func (b *ServiceBuilder) WithBasePath(basePath string) *ServiceBuilder {
	b.config.BasePath = basePath
	return b
}

// AddPublicRoute 添加公开路由，未声明的路由一律受保护
func (b *ServiceBuilder) AddPublicRoute(path string, methods ...string) *ServiceBuilder {
	b.config.Routes = append(b.config.Routes, PublicRoute(path, methods...))
	return b
}

// Build 构建服务
func (b *ServiceBuilder) Build() (*registry.Service, error) {
	return BuildService(&b.config)
}

// Match 路由是否匹配
func (r RouteConfig) Match(path, method string) bool {
	if prefix, ok := strings.CutSuffix(r.Path, "/*"); ok {
		if path != prefix && !strings.HasPrefix(path, prefix+"/") {
			return false
		}
	} else if strings.TrimSuffix(path, "/") != strings.TrimSuffix(r.Path, "/") {
		return false
	}
	if len(r.Methods) == 0 {
		return true
	}
	for _, m := range r.Methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// IsPublic 服务内路径是否为公开路由
func (m ServiceMeta) IsPublic(path, method string) bool {
	for _, r := range m.Routes {
		if r.Public && r.Match(path, method) {
			return true
		}
	}
	return false
}
