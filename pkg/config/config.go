package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	once   sync.Once
	config *Config
)

// Config 全局配置结构
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Registry RegistryConfig `mapstructure:"registry"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Password PasswordConfig `mapstructure:"password"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Casbin   CasbinConfig   `mapstructure:"casbin"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Log      LogConfig      `mapstructure:"log"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
}

// HTTPConfig HTTP服务配置
type HTTPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"readTimeout"`
	WriteTimeout int    `mapstructure:"writeTimeout"`
}

// Addr 监听地址
func (c *HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Database     string `mapstructure:"database"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Charset      string `mapstructure:"charset"`
	MaxIdleConns int    `mapstructure:"maxIdleConns"`
	MaxOpenConns int    `mapstructure:"maxOpenConns"`
	LogLevel     string `mapstructure:"logLevel"`
}

// DSN 生成数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	switch c.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
			c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.Username, c.Password, c.Database)
	case "sqlite":
		if c.Database == "" {
			return ":memory:"
		}
		return c.Database
	default:
		return ""
	}
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"poolSize"`
	Mode     string `mapstructure:"mode"` // "standalone" 外部 Redis, "memory" 内存模式
}

// Addr 获取Redis地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RegistryConfig 服务注册配置
type RegistryConfig struct {
	Mode    string `mapstructure:"mode"`    // "memory" 或 "redis"
	Address string `mapstructure:"address"` // 本服务对网关暴露的地址
}

// JWTConfig 令牌配置
type JWTConfig struct {
	Secret        string `mapstructure:"secret"`
	Issuer        string `mapstructure:"issuer"`
	Algorithm     string `mapstructure:"algorithm"`     // HS256 / HS384 / HS512
	Expire        int64  `mapstructure:"expire"`        // 会话令牌有效期（秒）
	RefreshExpire int64  `mapstructure:"refreshExpire"` // 刷新令牌有效期（秒）
}

// SessionTTL 会话令牌有效期
func (c *JWTConfig) SessionTTL() time.Duration {
	return time.Duration(c.Expire) * time.Second
}

// RefreshTTL 刷新令牌有效期
func (c *JWTConfig) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshExpire) * time.Second
}

// PasswordConfig 密码配置
type PasswordConfig struct {
	BcryptCost int    `mapstructure:"bcryptCost"`
	LegacyKey  string `mapstructure:"legacyKey"`
}

// AuthConfig 认证服务配置
type AuthConfig struct {
	StoreTimeout time.Duration `mapstructure:"storeTimeout"`
	SeedDemo     bool          `mapstructure:"seedDemo"`
}

// AuditConfig 审计配置
type AuditConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queueSize"`
}

// CasbinConfig Casbin配置
type CasbinConfig struct {
	ModelPath string `mapstructure:"modelPath"`
}

// GatewayConfig 网关配置
type GatewayConfig struct {
	SyncInterval time.Duration         `mapstructure:"syncInterval"` // 定期从注册中心同步路由
	Services     []StaticServiceConfig `mapstructure:"services"`     // 内存注册模式下的静态服务
}

// StaticServiceConfig 静态服务
type StaticServiceConfig struct {
	Name     string              `mapstructure:"name"`
	BasePath string              `mapstructure:"basePath"`
	Address  string              `mapstructure:"address"`
	Public   []StaticRouteConfig `mapstructure:"public"`
}

// StaticRouteConfig 静态服务的公开路由
type StaticRouteConfig struct {
	Path    string   `mapstructure:"path"`
	Methods []string `mapstructure:"methods"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAge     int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// Init 初始化配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		config, err = Load(configPath)
	})
	return err
}

// Load 加载配置文件，不影响全局实例
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	// 读取环境变量
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 加载环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = v.GetString("app.env")
	}

	if env != "" && env != "default" {
		v.SetConfigName(fmt.Sprintf("config.%s", env))
		if err := v.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to merge env config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	resolveEnvVars(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults 默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("redis.mode", "memory")
	v.SetDefault("registry.mode", "memory")
	v.SetDefault("jwt.issuer", "asistros-auth")
	v.SetDefault("jwt.algorithm", "HS512")
	v.SetDefault("jwt.expire", 86400)
	v.SetDefault("jwt.refreshExpire", 604800)
	v.SetDefault("password.bcryptCost", 12)
	v.SetDefault("auth.storeTimeout", "5s")
	v.SetDefault("audit.workers", 2)
	v.SetDefault("audit.queueSize", 100)
	v.SetDefault("gateway.syncInterval", "15s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "console")
}

// Validate 校验关键配置
func (c *Config) Validate() error {
	if c.JWT.Secret == "" || isPlaceholder(c.JWT.Secret) {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.JWT.Expire <= 0 || c.JWT.RefreshExpire <= 0 {
		return fmt.Errorf("jwt.expire and jwt.refreshExpire must be positive")
	}
	if c.Audit.Workers <= 0 || c.Audit.QueueSize <= 0 {
		return fmt.Errorf("audit.workers and audit.queueSize must be positive")
	}
	return nil
}

// resolveEnvVars 解析环境变量占位符
func resolveEnvVars(cfg *Config) {
	cfg.Database.Host = resolveEnvVar(cfg.Database.Host)
	cfg.Database.Username = resolveEnvVar(cfg.Database.Username)
	cfg.Database.Password = resolveEnvVar(cfg.Database.Password)
	cfg.Database.Database = resolveEnvVar(cfg.Database.Database)
	cfg.Redis.Host = resolveEnvVar(cfg.Redis.Host)
	cfg.Redis.Password = resolveEnvVar(cfg.Redis.Password)
	cfg.JWT.Secret = resolveEnvVar(cfg.JWT.Secret)
	cfg.Password.LegacyKey = resolveEnvVar(cfg.Password.LegacyKey)
	if isPlaceholder(cfg.Password.LegacyKey) {
		// 未配置历史密钥时只支持 bcrypt
		cfg.Password.LegacyKey = ""
	}
	cfg.Registry.Address = resolveEnvVar(cfg.Registry.Address)
}

func isPlaceholder(value string) bool {
	return strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}")
}

// resolveEnvVar 解析单个环境变量
func resolveEnvVar(value string) string {
	if isPlaceholder(value) {
		envKey := strings.TrimSuffix(strings.TrimPrefix(value, "${"), "}")
		if envValue := os.Getenv(envKey); envValue != "" {
			return envValue
		}
	}
	return value
}

// Set 替换全局配置（测试与嵌入场景使用）
func Set(cfg *Config) {
	config = cfg
}

// Get 获取配置实例
func Get() *Config {
	if config == nil {
		panic("config not initialized, call Init first")
	}
	return config
}

// GetJWT 获取令牌配置
func GetJWT() *JWTConfig {
	return &Get().JWT
}

// GetLog 获取日志配置
func GetLog() *LogConfig {
	return &Get().Log
}

// IsDev 是否为开发环境
func IsDev() bool {
	return Get().App.Env == "dev" || Get().App.Env == "development"
}
