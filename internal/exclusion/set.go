// Package exclusion tracks client identifiers that could not be retired
// normally and must never be reattempted, in this run or any future one.
package exclusion

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

const defaultKey = "renewal:excluded"

// Set is consulted before every client attempt and appended to when row
// retirement fails. Append-only from the coordinator's perspective.
type Set interface {
	Add(ctx context.Context, clientID string) error
	Contains(ctx context.Context, clientID string) (bool, error)
}

// RedisSet persists exclusions in a Redis set so they survive process
// restarts.
type RedisSet struct {
	client *redis.Client
	key    string
}

func NewRedisSet(client *redis.Client, key string) *RedisSet {
	if key == "" {
		key = defaultKey
	}
	return &RedisSet{client: client, key: key}
}

func (s *RedisSet) Add(ctx context.Context, clientID string) error {
	return s.client.SAdd(ctx, s.key, clientID).Err()
}

func (s *RedisSet) Contains(ctx context.Context, clientID string) (bool, error) {
	return s.client.SIsMember(ctx, s.key, clientID).Result()
}

// MemorySet is the fallback when Redis is not configured. Exclusions then
// only hold for the life of the process.
type MemorySet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewMemorySet() *MemorySet {
	return &MemorySet{ids: make(map[string]struct{})}
}

func (s *MemorySet) Add(_ context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[clientID] = struct{}{}
	return nil
}

func (s *MemorySet) Contains(_ context.Context, clientID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[clientID]
	return ok, nil
}
