package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/asistros/pkg/database"
	"github.com/asistros/pkg/logger"
	"go-micro.dev/v5/registry"
	"go.uber.org/zap"
)

const (
	keyPrefix      = "registry"
	ttlDuration    = 30 * time.Second
	redisOpTimeout = 3 * time.Second
)

var errEmptyService = errors.New("service or nodes cannot be empty")

// RedisRegistry 基于 Redis 的注册中心
// 每个节点一个 key（service:{name}:{node}），靠心跳续期，进程退出后自然过期
type RedisRegistry struct {
	cache     *database.Cache
	ttl       time.Duration
	mu        sync.Mutex
	heartbeat map[string]chan struct{}
}

// NewRedisRegistry 创建基于 Redis 的注册中心
func NewRedisRegistry(cache *database.Cache) *RedisRegistry {
	return &RedisRegistry{
		cache:     cache,
		ttl:       ttlDuration,
		heartbeat: make(map[string]chan struct{}),
	}
}

// Init 初始化
func (r *RedisRegistry) Init(...registry.Option) error {
	return nil
}

// Options 获取选项
func (r *RedisRegistry) Options() registry.Options {
	return registry.Options{}
}

func nodeKey(service, node string) string {
	return fmt.Sprintf("service:%s:%s", service, node)
}

// Register 注册服务节点并启动心跳
func (r *RedisRegistry) Register(s *registry.Service, _ ...registry.RegisterOption) error {
	if s == nil || len(s.Nodes) == 0 {
		return errEmptyService
	}

	for _, node := range s.Nodes {
		single := &registry.Service{
			Name:     s.Name,
			Version:  s.Version,
			Metadata: s.Metadata,
			Nodes:    []*registry.Node{node},
		}
		data, err := json.Marshal(single)
		if err != nil {
			return fmt.Errorf("marshal service: %w", err)
		}
		key := nodeKey(s.Name, node.Id)
		if err := r.put(key, data); err != nil {
			return fmt.Errorf("register %s: %w", key, err)
		}
		r.startHeartbeat(key, data)

		logger.Debug("服务已注册",
			zap.String("service", s.Name),
			zap.String("node", node.Id),
			zap.String("address", node.Address),
		)
	}
	return nil
}

func (r *RedisRegistry) put(key string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return r.cache.Set(ctx, key, data, r.ttl)
}

// Deregister 注销服务节点
func (r *RedisRegistry) Deregister(s *registry.Service, _ ...registry.DeregisterOption) error {
	if s == nil {
		return errEmptyService
	}

	keys := make([]string, 0, len(s.Nodes))
	for _, node := range s.Nodes {
		key := nodeKey(s.Name, node.Id)
		r.stopHeartbeat(key)
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return r.cache.Del(ctx, keys...)
}

// GetService 获取服务，合并所有存活节点
func (r *RedisRegistry) GetService(name string, _ ...registry.GetOption) ([]*registry.Service, error) {
	services, err := r.load("service:" + name + ":*")
	if err != nil {
		return nil, err
	}
	for _, svc := range services {
		if svc.Name == name {
			return []*registry.Service{svc}, nil
		}
	}
	return nil, registry.ErrNotFound
}

// ListServices 列出所有服务
func (r *RedisRegistry) ListServices(...registry.ListOption) ([]*registry.Service, error) {
	return r.load("service:*")
}

func (r *RedisRegistry) load(pattern string) ([]*registry.Service, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	keys, err := r.cache.Keys(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("scan registry: %w", err)
	}

	byName := make(map[string]*registry.Service)
	for _, key := range keys {
		data, err := r.cache.GetBytes(ctx, key)
		if err != nil {
			// 扫描与读取之间过期
			if database.IsNil(err) {
				continue
			}
			return nil, fmt.Errorf("get %s: %w", key, err)
		}

		var svc registry.Service
		if err := json.Unmarshal(data, &svc); err != nil {
			logger.Warn("注册信息反序列化失败", zap.String("key", key), zap.Error(err))
			continue
		}
		if existing, ok := byName[svc.Name]; ok {
			existing.Nodes = append(existing.Nodes, svc.Nodes...)
			continue
		}
		byName[svc.Name] = &svc
	}

	services := make([]*registry.Service, 0, len(byName))
	for _, svc := range byName {
		sort.Slice(svc.Nodes, func(i, j int) bool { return svc.Nodes[i].Id < svc.Nodes[j].Id })
		services = append(services, svc)
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })
	return services, nil
}

// Watch 网关按需查询，不提供变更推送
func (r *RedisRegistry) Watch(...registry.WatchOption) (registry.Watcher, error) {
	return &redisWatcher{exit: make(chan struct{})}, nil
}

// String 返回注册中心名称
func (r *RedisRegistry) String() string {
	return "redis"
}

// Close 停止所有心跳
func (r *RedisRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, stop := range r.heartbeat {
		close(stop)
		delete(r.heartbeat, key)
	}
}

func (r *RedisRegistry) startHeartbeat(key string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stop, ok := r.heartbeat[key]; ok {
		close(stop)
	}
	stop := make(chan struct{})
	r.heartbeat[key] = stop

	go func() {
		ticker := time.NewTicker(r.ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := r.put(key, data); err != nil {
					logger.Warn("注册心跳失败", zap.String("key", key), zap.Error(err))
				}
			}
		}
	}()
}

func (r *RedisRegistry) stopHeartbeat(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stop, ok := r.heartbeat[key]; ok {
		close(stop)
		delete(r.heartbeat, key)
	}
}

type redisWatcher struct {
	exit chan struct{}
	once sync.Once
}

func (w *redisWatcher) Next() (*registry.Result, error) {
	<-w.exit
	return nil, registry.ErrWatcherStopped
}

func (w *redisWatcher) Stop() {
	w.once.Do(func() { close(w.exit) })
}

// New 按模式创建注册中心
func New(mode string, cache *database.Cache) (registry.Registry, error) {
	switch strings.ToLower(mode) {
	case "", "memory":
		return NewMemoryRegistry(), nil
	case "redis":
		if cache == nil {
			return nil, errors.New("redis registry requires a cache")
		}
		return NewRedisRegistry(cache), nil
	default:
		return nil, fmt.Errorf("unsupported registry mode: %s", mode)
	}
}

// NewCache 注册中心使用的缓存命名空间
func NewCache() *database.Cache {
	return database.NewCache(keyPrefix)
}
