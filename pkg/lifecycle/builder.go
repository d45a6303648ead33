package lifecycle

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go-micro.dev/v5/registry"
)

// Builder 服务构建器 - 链式调用创建服务
type Builder struct {
	opts    ServiceOptions
	app     *fiber.App
	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// New 创建服务构建器
func New(name string) *Builder {
	return &Builder{opts: ServiceOptions{Name: name}}
}

// Addr 设置监听地址
func (b *Builder) Addr(addr string) *Builder {
	b.opts.Address = addr
	return b
}

// Registry 设置注册中心及注册信息，二者缺一则不注册
func (b *Builder) Registry(reg registry.Registry, svc *registry.Service) *Builder {
	b.opts.Registry = reg
	b.opts.Service = svc
	return b
}

// ShutdownTimeout 设置优雅关闭超时
func (b *Builder) ShutdownTimeout(d time.Duration) *Builder {
	b.opts.ShutdownTimeout = d
	return b
}

// App 设置Fiber应用
func (b *Builder) App(app *fiber.App) *Builder {
	b.app = app
	return b
}

// OnStart 添加启动钩子，在监听之前执行
func (b *Builder) OnStart(fn Hook) *Builder {
	b.onStart = append(b.onStart, fn)
	return b
}

// OnReady 添加就绪钩子，在注册之后执行
func (b *Builder) OnReady(fn Hook) *Builder {
	b.onReady = append(b.onReady, fn)
	return b
}

// OnStop 添加停止钩子，在HTTP服务关闭之后执行
func (b *Builder) OnStop(fn Hook) *Builder {
	b.onStop = append(b.onStop, fn)
	return b
}

// Build 构建服务
func (b *Builder) Build() *Service {
	app := b.app
	if app == nil {
		app = fiber.New()
	}
	opts := b.opts
	svc := NewService(&opts, app)
	svc.onStart = append(svc.onStart, b.onStart...)
	svc.onReady = append(svc.onReady, b.onReady...)
	svc.onStop = append(svc.onStop, b.onStop...)
	return svc
}

// Run 构建并运行服务
func (b *Builder) Run() error {
	return b.Build().Run()
}
