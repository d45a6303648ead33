package main

import (
	"context"
	"fmt"
	"os"

	"github.com/asistros/pkg/config"
	"github.com/asistros/pkg/database"
	"github.com/asistros/pkg/lifecycle"
	"github.com/asistros/pkg/logger"
	"github.com/asistros/pkg/middleware"
	pkgRegistry "github.com/asistros/pkg/registry"
	"github.com/asistros/pkg/router"
	"github.com/asistros/services/accounting/internal/client"
	"github.com/asistros/services/accounting/internal/model"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	serviceName = "accounting-service"
	servicePort = 8082
	basePath    = "accounting"
)

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

	// 初始化数据库
	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	db := database.Get()

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

	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, servicePort)
	svcInfo, err := pkgRegistry.NewServiceBuilder(serviceName, cfg.App.Version).
		WithAddress(addr).
		WithBasePath(basePath).
		Build()
	if err != nil {
		logger.Fatal("构建注册信息失败", zap.Error(err))
	}

	app := fiber.New(fiber.Config{AppName: serviceName})
	app.Use(middleware.Recovery())
	app.Use(middleware.RequestID())
	app.Use(middleware.AccessLog())
	app.Use(middleware.ErrorHandler())

	err = lifecycle.New(serviceName).
		Addr(addr).
		Registry(reg, svcInfo).
		App(app).
		OnStart(func(s *lifecycle.Service) error {
			if err := db.AutoMigrate(&model.Client{}); err != nil {
				return fmt.Errorf("数据库迁移失败: %w", err)
			}
			if cfg.Auth.SeedDemo {
				if err := client.SeedDemo(context.Background(), db); err != nil {
					return fmt.Errorf("初始化演示客户失败: %w", err)
				}
			}

			middlewares := map[string]fiber.Handler{
				"identity": middleware.TrustedIdentity(),
			}
			router.Register(app, middlewares,
				&router.HealthController{Service: serviceName},
				client.NewController(client.NewRepository(db)),
			)
			return nil
		}).
		OnReady(func(s *lifecycle.Service) error {
			logger.Info("账务服务就绪", zap.String("addr", addr))
			return nil
		}).
		Run()

	if err != nil {
		logger.Fatal("服务运行失败", zap.Error(err))
	}
}
