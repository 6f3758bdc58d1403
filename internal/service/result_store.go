package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"
)

// ResultStore 结果缓存的键值存储。显式注入而不是进程级单例，
// 使缓存逻辑可以脱离 Redis 单测。并发读与批量写允许重叠，
// 载荷完全由持久化状态派生，last-write-wins 即可。
type ResultStore interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, bool, error)
	// MGet 按给定顺序返回值，缺失的键对应 nil
	MGet(ctx context.Context, keys []string) ([]*string, error)
	Delete(ctx context.Context, keys ...string) error
	// DeleteByPrefix 全量重建前清空既有条目
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// RedisResultStore 生产环境实现
type RedisResultStore struct {
	Client *redis.Client
}

func NewRedisResultStore(client *redis.Client) *RedisResultStore {
	return &RedisResultStore{Client: client}
}

func (s *RedisResultStore) Set(ctx context.Context, key, value string) error {
	// 缓存条目不设过期：生命周期由发布/撤回转换显式管理
	return s.Client.Set(ctx, key, value, 0).Err()
}

func (s *RedisResultStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisResultStore) MGet(ctx context.Context, keys []string) ([]*string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	raw, err := s.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	values := make([]*string, len(raw))
	for i, v := range raw {
		if str, ok := v.(string); ok {
			values[i] = &str
		}
	}
	return values, nil
}

func (s *RedisResultStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.Client.Del(ctx, keys...).Err()
}

func (s *RedisResultStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	iter := s.Client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return s.Delete(ctx, keys...)
}

// MemoryResultStore 内存实现，用于测试和单机部署
type MemoryResultStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{data: make(map[string]string)}
}

func (s *MemoryResultStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
	return nil
}

func (s *MemoryResultStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok, nil
}

func (s *MemoryResultStore) MGet(ctx context.Context, keys []string) ([]*string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	values := make([]*string, len(keys))
	for i, key := range keys {
		if val, ok := s.data[key]; ok {
			v := val
			values[i] = &v
		}
	}
	return values, nil
}

func (s *MemoryResultStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	for _, key := range keys {
		delete(s.data, key)
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryResultStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	s.mu.Lock()
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			delete(s.data, key)
		}
	}
	s.mu.Unlock()
	return nil
}

// Keys 测试辅助：返回排序后的全部键
func (s *MemoryResultStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
