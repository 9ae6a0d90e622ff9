package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore — потокобезопасный кэш в памяти процесса с TTL.
// Используется в тестах и как локальная замена Redis.
type MemoryStore struct {
	mu    sync.RWMutex
	store map[string]memoryEntry
}

// NewMemoryStore создаёт пустой кэш в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{store: make(map[string]memoryEntry)}
}

// Get возвращает значение, если оно есть и не истёк срок жизни.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.store[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

// Set сохраняет значение с указанным временем жизни.
func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return true
}

// Close очищает кэш.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = make(map[string]memoryEntry)
	return nil
}
