package gateway

import (
	"fmt"

	"github.com/asistros/pkg/config"
	pkgRegistry "github.com/asistros/pkg/registry"
	"go-micro.dev/v5/registry"
)

// RegisterStatic 把配置中的静态服务写入注册中心，内存注册模式下网关只能依赖它们
func RegisterStatic(reg registry.Registry, services []config.StaticServiceConfig) error {
	for _, s := range services {
		builder := pkgRegistry.NewServiceBuilder(s.Name, "static").
			WithNodeID(s.Name + "-static").
			WithAddress(s.Address).
			WithBasePath(s.BasePath)
		for _, r := range s.Public {
			builder.AddPublicRoute(r.Path, r.Methods...)
		}
		svc, err := builder.Build()
		if err != nil {
			return fmt.Errorf("static service %q: %w", s.Name, err)
		}
		if err := reg.Register(svc); err != nil {
			return fmt.Errorf("register static service %q: %w", s.Name, err)
		}
	}
	return nil
}
