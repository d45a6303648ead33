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
	"github.com/asistros/services/auth/internal/admin"
	"github.com/asistros/services/auth/internal/audit"
	"github.com/asistros/services/auth/internal/authn"
	"github.com/asistros/services/auth/internal/identity"
	"github.com/asistros/services/auth/internal/model"
	"github.com/asistros/services/auth/internal/seed"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	serviceName = "auth-service"
	servicePort = 8081
	basePath    = "auth"
)

func main() {
	// .env 可选
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
	if err := db.AutoMigrate(model.All()...); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	passwords, err := auth.NewPasswordVerifier(&cfg.Password)
	if err != nil {
		logger.Fatal("初始化密码校验失败", zap.Error(err))
	}
	tokens, err := auth.NewTokenCodec(&cfg.JWT)
	if err != nil {
		logger.Fatal("初始化令牌编解码失败", zap.Error(err))
	}
	authorizer, err := auth.NewAuthorizer(db, &cfg.Casbin)
	if err != nil {
		logger.Fatal("初始化Casbin失败", zap.Error(err))
	}

	if cfg.Auth.SeedDemo {
		opts := seed.Options{Passwords: passwords, Authorizer: authorizer}
		if cfg.Password.LegacyKey != "" {
			if opts.Legacy, err = auth.NewLegacyScheme(cfg.Password.LegacyKey); err != nil {
				logger.Fatal("历史密码方案配置错误", zap.Error(err))
			}
		}
		if err := seed.Run(context.Background(), db, opts); err != nil {
			logger.Fatal("初始化演示数据失败", zap.Error(err))
		}
	}

	// 审计
	dispatcher := audit.NewDispatcher(audit.NewGormSink(db), &cfg.Audit)

	service := authn.NewService(identity.NewRepository(db), passwords, tokens, dispatcher,
		authn.WithStoreTimeout(cfg.Auth.StoreTimeout),
	)

	// 创建Fiber应用
	app := fiber.New(fiber.Config{
		AppName:      serviceName,
		ReadTimeout:  time.Duration(cfg.Server.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.HTTP.WriteTimeout) * time.Second,
	})
	app.Use(middleware.Recovery())
	app.Use(middleware.Cors())
	app.Use(middleware.RequestID())
	app.Use(middleware.AccessLog())
	app.Use(middleware.ErrorHandler())

	middlewares := map[string]fiber.Handler{
		"identity": middleware.TrustedIdentity(),
		"admin":    middleware.RequireRole(authorizer),
	}
	public := router.Register(app, middlewares,
		&router.HealthController{Service: serviceName},
		authn.NewController(service),
		admin.NewController(service),
	)

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
	advertise := cfg.Registry.Address
	if advertise == "" {
		advertise = addr
	}
	builder := pkgRegistry.NewServiceBuilder(serviceName, cfg.App.Version).
		WithAddress(advertise).
		WithBasePath(basePath)
	for _, r := range public {
		builder.AddPublicRoute(r.Path, r.Methods...)
	}
	svcInfo, err := builder.Build()
	if err != nil {
		logger.Fatal("构建注册信息失败", zap.Error(err))
	}

	err = lifecycle.New(serviceName).
		Addr(addr).
		Registry(reg, svcInfo).
		App(app).
		OnReady(func(s *lifecycle.Service) error {
			logger.Info("认证服务就绪",
				zap.String("addr", addr),
				zap.Int("publicRoutes", len(public)),
			)
			return nil
		}).
		OnStop(func(s *lifecycle.Service) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := dispatcher.Shutdown(ctx); err != nil {
				logger.Warn("审计队列未写完", zap.Int64("dropped", dispatcher.Dropped()), zap.Error(err))
			}
			return nil
		}).
		Run()

	if err != nil {
		logger.Fatal("服务运行失败", zap.Error(err))
	}
}
