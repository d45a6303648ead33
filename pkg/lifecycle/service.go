// Package lifecycle 微服务运行外壳：启动钩子、服务注册、HTTP 监听与优雅关闭。
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/asistros/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"go-micro.dev/v5/registry"
	"go.uber.org/zap"
)

// Hook 生命周期钩子
type Hook func(s *Service) error

// ServiceOptions 服务配置选项
type ServiceOptions struct {
	Name            string
	Address         string
	Registry        registry.Registry
	Service         *registry.Service
	ShutdownTimeout time.Duration
}

// Service 微服务包装器
type Service struct {
	opts *ServiceOptions
	app  *fiber.App
	log  *zap.Logger

	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// NewService 创建微服务
func NewService(opts *ServiceOptions, app *fiber.App) *Service {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &Service{
		opts: opts,
		app:  app,
		log:  logger.WithFields(zap.String("service", opts.Name)),
	}
}

// Name 服务名称
func (s *Service) Name() string {
	return s.opts.Name
}

// App Fiber 应用
func (s *Service) App() *fiber.App {
	return s.app
}

// Run 监听配置地址，直到收到 SIGINT/SIGTERM
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve 在指定监听器上运行，ctx 结束后优雅关闭
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	for _, fn := range s.onStart {
		if err := fn(s); err != nil {
			_ = ln.Close()
			return fmt.Errorf("start hook: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("服务启动", zap.String("address", ln.Addr().String()))
		if err := s.app.Listener(ln); err != nil {
			errCh <- err
		}
	}()

	if s.opts.Registry != nil && s.opts.Service != nil {
		if err := s.opts.Registry.Register(s.opts.Service); err != nil {
			_ = s.app.Shutdown()
			return fmt.Errorf("register service: %w", err)
		}
	}

	for _, fn := range s.onReady {
		if err := fn(s); err != nil {
			_ = s.shutdown()
			return fmt.Errorf("ready hook: %w", err)
		}
	}

	select {
	case <-ctx.Done():
		s.log.Info("收到退出信号，正在关闭服务...")
	case err := <-errCh:
		_ = s.shutdown()
		return fmt.Errorf("server error: %w", err)
	}

	return s.shutdown()
}

// shutdown 先注销再停止接收请求，最后执行停止钩子
func (s *Service) shutdown() error {
	var errs []error

	if s.opts.Registry != nil && s.opts.Service != nil {
		if err := s.opts.Registry.Deregister(s.opts.Service); err != nil {
			s.log.Error("注销服务失败", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if err := s.app.ShutdownWithTimeout(s.opts.ShutdownTimeout); err != nil {
		s.log.Error("关闭HTTP服务失败", zap.Error(err))
		errs = append(errs, err)
	}

	for _, fn := range s.onStop {
		if err := fn(s); err != nil {
			s.log.Error("停止钩子执行失败", zap.Error(err))
			errs = append(errs, err)
		}
	}

	s.log.Info("服务已关闭")
	return errors.Join(errs...)
}
