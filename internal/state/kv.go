// Package state persists per-user application state (session, language,
// alerts, notifications) in a key-value store.
package state

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
)

// KV is the key-value backend of a Store
type KV interface {
	// GetAll returns the values of the keys that exist
	GetAll(ctx context.Context, keys ...string) (map[string]string, error)
	// SetAll writes every pair atomically
	SetAll(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
	AddMember(ctx context.Context, set, member string) error
	RemoveMember(ctx context.Context, set, member string) error
	Members(ctx context.Context, set string) ([]string, error)
	Close() error
}

// RedisKV stores keys in Redis
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV connects to Redis and verifies the connection
func NewRedisKV(ctx context.Context, addr, password string, db int) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisKV{client: client}, nil
}

// GetAll reads keys with a single MGET
func (r *RedisKV) GetAll(ctx context.Context, keys ...string) (map[string]string, error) {
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read keys: %w", err)
	}

	out := make(map[string]string, len(keys))
	for i, v := range values {
		if s, ok := v.(string); ok {
			out[keys[i]] = s
		}
	}
	return out, nil
}

// SetAll writes values in a MULTI/EXEC transaction
func (r *RedisKV) SetAll(ctx context.Context, values map[string]string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, k, v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write keys: %w", err)
	}
	return nil
}

// Delete removes keys
func (r *RedisKV) Delete(ctx context.Context, keys ...string) error {
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// AddMember adds member to a set
func (r *RedisKV) AddMember(ctx context.Context, set, member string) error {
	if err := r.client.SAdd(ctx, set, member).Err(); err != nil {
		return fmt.Errorf("failed to add %s to %s: %w", member, set, err)
	}
	return nil
}

// RemoveMember removes member from a set
func (r *RedisKV) RemoveMember(ctx context.Context, set, member string) error {
	if err := r.client.SRem(ctx, set, member).Err(); err != nil {
		return fmt.Errorf("failed to remove %s from %s: %w", member, set, err)
	}
	return nil
}

// Members lists a set, sorted
func (r *RedisKV) Members(ctx context.Context, set string) ([]string, error) {
	members, err := r.client.SMembers(ctx, set).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", set, err)
	}
	sort.Strings(members)
	return members, nil
}

// Close closes the Redis client
func (r *RedisKV) Close() error {
	return r.client.Close()
}

// MemoryKV is an in-process KV for tests and single-node development
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
	sets   map[string]map[string]struct{}
}

// NewMemoryKV creates an empty MemoryKV
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		values: make(map[string]string),
		sets:   make(map[string]map[string]struct{}),
	}
}

func (m *MemoryKV) GetAll(_ context.Context, keys ...string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *MemoryKV) SetAll(_ context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *MemoryKV) AddMember(_ context.Context, set, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sets[set] == nil {
		m.sets[set] = make(map[string]struct{})
	}
	m.sets[set][member] = struct{}{}
	return nil
}

func (m *MemoryKV) RemoveMember(_ context.Context, set, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sets[set], member)
	return nil
}

func (m *MemoryKV) Members(_ context.Context, set string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members := make([]string, 0, len(m.sets[set]))
	for member := range m.sets[set] {
		members = append(members, member)
	}
	sort.Strings(members)
	return members, nil
}

func (m *MemoryKV) Close() error {
	return nil
}
