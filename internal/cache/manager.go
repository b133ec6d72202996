// Package cache provides an in-process, LRU-backed cache manager.
// This package is internal and should not be imported by external projects.
package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager is an in-process LRU cache manager with per-entry TTLs, used in
// place of an external cache server so the orchestrator has no runtime
// dependency on anything beyond Postgres.
type Manager struct {
	config Config
	logger *zap.Logger

	mu      sync.Mutex
	items   map[string]*list.Element
	order   *list.List
	closed  bool
	hits    uint64
	misses  uint64
}

type entry struct {
	key       string
	value     string
	expiresAt time.Time
}

// Config configures the cache manager.
type Config struct {
	// MaxEntries bounds how many keys the cache holds before evicting the
	// least recently used entry.
	MaxEntries int `yaml:"max_entries" json:"max_entries"`

	// DefaultTTL is used when Set is called with ttl == 0.
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl"`

	// HealthCheckInterval controls how often the manager logs a liveness
	// heartbeat; 0 disables it.
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() Config {
	return Config{
		MaxEntries:          10_000,
		DefaultTTL:          5 * time.Minute,
		HealthCheckInterval: 30 * time.Second,
	}
}

// NewManager creates a cache manager.
func NewManager(config Config, logger *zap.Logger) (*Manager, error) {
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultConfig().MaxEntries
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = DefaultConfig().DefaultTTL
	}

	m := &Manager{
		config: config,
		logger: logger.With(zap.String("component", "cache")),
		items:  make(map[string]*list.Element),
		order:  list.New(),
	}

	if config.HealthCheckInterval > 0 {
		go m.healthCheckLoop()
	}

	logger.Info("cache manager initialized",
		zap.Int("max_entries", config.MaxEntries),
		zap.Duration("default_ttl", config.DefaultTTL),
	)

	return m, nil
}

// Get returns the cached value for key.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", fmt.Errorf("cache manager is closed")
	}

	el, ok := m.items[key]
	if !ok {
		m.misses++
		return "", ErrCacheMiss
	}
	e := el.Value.(*entry)
	if time.Now().After(e.expiresAt) {
		m.order.Remove(el)
		delete(m.items, key)
		m.misses++
		return "", ErrCacheMiss
	}

	m.order.MoveToFront(el)
	m.hits++
	return e.value, nil
}

// Set stores value under key with ttl (or DefaultTTL if ttl == 0).
func (m *Manager) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("cache manager is closed")
	}

	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}
	expiresAt := time.Now().Add(ttl)

	if el, ok := m.items[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = expiresAt
		m.order.MoveToFront(el)
		return nil
	}

	if m.order.Len() >= m.config.MaxEntries {
		m.evictOldest()
	}

	el := m.order.PushFront(&entry{key: key, value: value, expiresAt: expiresAt})
	m.items[key] = el
	return nil
}

// GetJSON unmarshals the cached value for key into dest.
func (m *Manager) GetJSON(ctx context.Context, key string, dest interface{}) error {
	val, err := m.Get(ctx, key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return nil
}

// SetJSON marshals value and stores it under key with ttl.
func (m *Manager) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return m.Set(ctx, key, string(data), ttl)
}

// Delete removes keys from the cache.
func (m *Manager) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("cache manager is closed")
	}

	for _, key := range keys {
		if el, ok := m.items[key]; ok {
			m.order.Remove(el)
			delete(m.items, key)
		}
	}

	return nil
}

// Exists reports how many of keys are currently present (and unexpired).
func (m *Manager) Exists(ctx context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, fmt.Errorf("cache manager is closed")
	}

	var count int64
	now := time.Now()
	for _, key := range keys {
		if el, ok := m.items[key]; ok {
			if e := el.Value.(*entry); now.Before(e.expiresAt) {
				count++
			}
		}
	}

	return count, nil
}

// Expire updates the TTL of an existing key.
func (m *Manager) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("cache manager is closed")
	}

	el, ok := m.items[key]
	if !ok {
		return nil
	}
	el.Value.(*entry).expiresAt = time.Now().Add(ttl)
	return nil
}

// Ping always succeeds; it exists for API parity with a networked cache.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("cache manager is closed")
	}
	return nil
}

// Close releases the cache's contents.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	m.items = nil
	m.order = nil
	m.logger.Info("closing cache manager")

	return nil
}

func (m *Manager) healthCheckLoop() {
	ticker := time.NewTicker(m.config.HealthCheckInterval)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.Lock()
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return
		}
		m.logger.Debug("cache health check passed")
	}
}

// evictOldest removes the least recently used entry. Caller must hold m.mu.
func (m *Manager) evictOldest() {
	el := m.order.Back()
	if el == nil {
		return
	}
	e := el.Value.(*entry)
	m.order.Remove(el)
	delete(m.items, e.key)
}

// Stats reports cache statistics.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
	MaxSize int    `json:"max_size"`
}

// GetStats returns current cache statistics.
func (m *Manager) GetStats(ctx context.Context) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("cache manager is closed")
	}

	return &Stats{
		Hits:    m.hits,
		Misses:  m.misses,
		Entries: m.order.Len(),
		MaxSize: m.config.MaxEntries,
	}, nil
}

// ErrCacheMiss is returned by Get/GetJSON when the key is absent or expired.
var ErrCacheMiss = fmt.Errorf("cache miss")

// IsCacheMiss reports whether err is ErrCacheMiss.
func IsCacheMiss(err error) bool {
	return err == ErrCacheMiss
}
