package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"FeedbackScanner/internal/ports"
)

const eventKeyPrefix = "feedback:event:"

// Connect builds a client from either a redis:// URL or a host:port address.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisEventSet shares processed event ids between instances with SETNX and a TTL.
type RedisEventSet struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ ports.EventSet = (*RedisEventSet)(nil)

// NewRedisEventSet remembers ids for ttl; zero means 24 hours.
func NewRedisEventSet(client redis.Cmdable, ttl time.Duration) *RedisEventSet {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisEventSet{client: client, ttl: ttl}
}

// MarkSeen implements ports.EventSet.
func (s *RedisEventSet) MarkSeen(ctx context.Context, id string) (bool, error) {
	fresh, err := s.client.SetNX(ctx, eventKeyPrefix+id, "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return fresh, nil
}
