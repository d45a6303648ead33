package registry

import (
	"sort"
	"sync"

	"go-micro.dev/v5/registry"
)

// MemoryRegistry 进程内注册中心，用于单机部署与测试
// 同名服务的多个节点按节点ID合并
type MemoryRegistry struct {
	mu       sync.RWMutex
	services map[string]map[string]*registry.Node
	versions map[string]string
	watchers map[*memoryWatcher]struct{}
}

// NewMemoryRegistry 创建内存注册中心
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		services: make(map[string]map[string]*registry.Node),
		versions: make(map[string]string),
		watchers: make(map[*memoryWatcher]struct{}),
	}
}

// Init 初始化
func (r *MemoryRegistry) Init(...registry.Option) error {
	return nil
}

// Options 获取选项
func (r *MemoryRegistry) Options() registry.Options {
	return registry.Options{}
}

// Register 注册服务节点
func (r *MemoryRegistry) Register(s *registry.Service, _ ...registry.RegisterOption) error {
	if s == nil || len(s.Nodes) == 0 {
		return errEmptyService
	}

	r.mu.Lock()
	nodes, ok := r.services[s.Name]
	if !ok {
		nodes = make(map[string]*registry.Node)
		r.services[s.Name] = nodes
	}
	for _, n := range s.Nodes {
		nodes[n.Id] = n
	}
	r.versions[s.Name] = s.Version
	svc := r.snapshot(s.Name)
	r.mu.Unlock()

	r.notify("update", svc)
	return nil
}

// Deregister 注销服务节点，节点清空后移除服务
func (r *MemoryRegistry) Deregister(s *registry.Service, _ ...registry.DeregisterOption) error {
	if s == nil {
		return errEmptyService
	}

	r.mu.Lock()
	nodes := r.services[s.Name]
	for _, n := range s.Nodes {
		delete(nodes, n.Id)
	}
	if len(nodes) == 0 || len(s.Nodes) == 0 {
		delete(r.services, s.Name)
		delete(r.versions, s.Name)
	}
	svc := &registry.Service{Name: s.Name, Version: s.Version, Nodes: s.Nodes}
	r.mu.Unlock()

	r.notify("delete", svc)
	return nil
}

// snapshot 需持有锁
func (r *MemoryRegistry) snapshot(name string) *registry.Service {
	nodes := r.services[name]
	svc := &registry.Service{
		Name:    name,
		Version: r.versions[name],
		Nodes:   make([]*registry.Node, 0, len(nodes)),
	}
	for _, n := range nodes {
		svc.Nodes = append(svc.Nodes, n)
	}
	sort.Slice(svc.Nodes, func(i, j int) bool { return svc.Nodes[i].Id < svc.Nodes[j].Id })
	return svc
}

// GetService 获取服务
func (r *MemoryRegistry) GetService(name string, _ ...registry.GetOption) ([]*registry.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.services[name]; !ok {
		return nil, registry.ErrNotFound
	}
	return []*registry.Service{r.snapshot(name)}, nil
}

// ListServices 列出所有服务，按名称排序
func (r *MemoryRegistry) ListServices(...registry.ListOption) ([]*registry.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	services := make([]*registry.Service, 0, len(r.services))
	for name := range r.services {
		services = append(services, r.snapshot(name))
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })
	return services, nil
}

// Watch 监听服务变化
func (r *MemoryRegistry) Watch(...registry.WatchOption) (registry.Watcher, error) {
	w := &memoryWatcher{
		registry: r,
		events:   make(chan *registry.Result, 16),
		exit:     make(chan struct{}),
	}
	r.mu.Lock()
	r.watchers[w] = struct{}{}
	r.mu.Unlock()
	return w, nil
}

// notify 慢消费者会丢失事件
func (r *MemoryRegistry) notify(action string, svc *registry.Service) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for w := range r.watchers {
		select {
		case w.events <- &registry.Result{Action: action, Service: svc}:
		default:
		}
	}
}

// String 返回注册中心名称
func (r *MemoryRegistry) String() string {
	return "memory"
}

type memoryWatcher struct {
	registry *MemoryRegistry
	events   chan *registry.Result
	exit     chan struct{}
	once     sync.Once
}

func (w *memoryWatcher) Next() (*registry.Result, error) {
	select {
	case res := <-w.events:
		return res, nil
	case <-w.exit:
		return nil, registry.ErrWatcherStopped
	}
}

func (w *memoryWatcher) Stop() {
	w.once.Do(func() {
		w.registry.mu.Lock()
		delete(w.registry.watchers, w)
		w.registry.mu.Unlock()
		close(w.exit)
	})
}
