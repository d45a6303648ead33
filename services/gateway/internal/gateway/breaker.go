package gateway

import (
	"sync"
	"time"
)

// 熔断器状态
const (
	stateClosed   = "closed"
	stateOpen     = "open"
	stateHalfOpen = "half-open"
)

// CircuitBreaker 熔断器
type CircuitBreaker struct {
	mu          sync.Mutex
	failures    int
	threshold   int
	timeout     time.Duration
	lastFailure time.Time
	state       string
	probing     bool
	now         func() time.Time
}

// NewCircuitBreaker 创建熔断器
func NewCircuitBreaker(threshold int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold: threshold,
		timeout:   timeout,
		state:     stateClosed,
		now:       time.Now,
	}
}

// Allow 是否允许请求
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case stateOpen:
		if cb.now().Sub(cb.lastFailure) > cb.timeout {
			cb.state = stateHalfOpen
			cb.probing = true
			return true
		}
		return false
	case stateHalfOpen:
		// 半开状态只放行一个探测请求
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	default:
		return true
	}
}

// Success 记录成功
func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.probing = false
	cb.state = stateClosed
}

// Failure 记录失败，半开状态下一次失败即重新打开
func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	cb.lastFailure = cb.now()
	cb.probing = false
	if cb.state == stateHalfOpen || cb.failures >= cb.threshold {
		cb.state = stateOpen
	}
}

// State 获取状态
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// breakerSet 按服务名维护熔断器
type breakerSet struct {
	mu        sync.Mutex
	threshold int
	timeout   time.Duration
	items     map[string]*CircuitBreaker
}

func newBreakerSet(threshold int, timeout time.Duration) *breakerSet {
	return &breakerSet{threshold: threshold, timeout: timeout, items: make(map[string]*CircuitBreaker)}
}

func (s *breakerSet) get(service string) *CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb, ok := s.items[service]
	if !ok {
		cb = NewCircuitBreaker(s.threshold, s.timeout)
		s.items[service] = cb
	}
	return cb
}

func (s *breakerSet) allow(service string) bool {
	return s.get(service).Allow()
}

func (s *breakerSet) success(service string) {
	s.get(service).Success()
}

func (s *breakerSet) failure(service string) {
	s.get(service).Failure()
}

func (s *breakerSet) state(service string) string {
	return s.get(service).State()
}
