package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/asistros/pkg/auth"
	"github.com/asistros/pkg/config"
	"github.com/asistros/pkg/database"
	"github.com/asistros/pkg/lifecycle"
	"github.com/asistros/pkg/logger"
	"github.com/asistros/pkg/middleware"
	pkgRegistry "github.com/asistros/pkg/registry"
	"github.com/asistros/pkg/router"
	"github.com/asistros/services/gateway/internal/gateway"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const serviceName = "gateway-service"

func main() {
	_ = godotenv.Load()

	// 加载配置
	if err := config.Init(os.Getenv("CONFIG_PATH")); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	// 初始化日志
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// 注册中心
	var cache *database.Cache
	if cfg.Registry.Mode == "redis" {
		if err := database.InitRedis(&cfg.Redis); err != nil {
			logger.Fatal("初始化Redis失败", zap.Error(err))
		}
		defer database.CloseRedis()
		cache = pkgRegistry.NewCache()
	}
	reg, err := pkgRegistry.New(cfg.Registry.Mode, cache)
	if err != nil {
		logger.Fatal("初始化注册中心失败", zap.Error(err))
	}
	if err := gateway.RegisterStatic(reg, cfg.Gateway.Services); err != nil {
		logger.Fatal("注册静态服务失败", zap.Error(err))
	}

	tokens, err := auth.NewTokenCodec(&cfg.JWT)
	if err != nil {
		logger.Fatal("初始化令牌编解码失败", zap.Error(err))
	}
	gw := gateway.NewGateway(reg, tokens)

	// 创建应用
	app := fiber.New(fiber.Config{AppName: serviceName})
	app.Use(middleware.Recovery())
	app.Use(middleware.Cors())
	app.Use(middleware.RequestID())
	app.Use(middleware.AccessLog())

	router.Register(app, nil, &router.HealthController{Service: serviceName})
	app.Get("/services", gw.GetServicesStatus)
	app.All(gateway.APIVersion+"/*", gw.Handlers()...)

	addr := cfg.Server.HTTP.Addr()
	err = lifecycle.New(serviceName).
		Addr(addr).
		App(app).
		OnStart(func(s *lifecycle.Service) error {
			if err := gw.SyncRoutes(); err != nil {
				logger.Warn("同步服务路由失败", zap.Error(err))
			}
			if err := gw.WatchServices(cfg.Gateway.SyncInterval); err != nil {
				return fmt.Errorf("启动服务监听失败: %w", err)
			}
			return nil
		}).
		OnReady(func(s *lifecycle.Service) error {
			logger.Info("网关服务就绪", zap.String("addr", addr), zap.Int("routes", len(gw.GetRoutes())))
			return nil
		}).
		OnStop(func(s *lifecycle.Service) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return gw.Shutdown(ctx)
		}).
		Run()

	if err != nil {
		logger.Fatal("服务运行失败", zap.Error(err))
	}
}
