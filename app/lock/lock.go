package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "social-comb:lock:"

// Locker guards singleton jobs. TryLock reports false when the key is held
// by someone else.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

var releaseScript = redis.NewScript(`
if redis.call('get', KEYS[1]) == ARGV[1] then
  return redis.call('del', KEYS[1])
else
  return 0
end
`)

// RedisLock shares locks between processes. Each instance writes its own
// token so that it can only release what it acquired.
type RedisLock struct {
	client *redis.Client
	token  string
}

// NewRedisLock connects to addr and checks the connection.
func NewRedisLock(addr, password string) (*RedisLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", addr)
	return NewRedisLockWithClient(client), nil
}

func NewRedisLockWithClient(client *redis.Client) *RedisLock {
	return &RedisLock{client: client, token: uuid.NewString()}
}

func (l *RedisLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, keyPrefix+key, l.token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return ok, nil
}

func (l *RedisLock) Unlock(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, l.client, []string{keyPrefix + key}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}

func (l *RedisLock) Close() error {
	return l.client.Close()
}

// LocalLock is the in-process fallback when Redis is not configured.
type LocalLock struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

func NewLocalLock() *LocalLock {
	return &LocalLock{held: map[string]time.Time{}, now: time.Now}
}

func (l *LocalLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expires, ok := l.held[key]; ok && now.Before(expires) {
		return false, nil
	}
	l.held[key] = now.Add(ttl)
	return true, nil
}

func (l *LocalLock) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.held, key)
	return nil
}

// New returns a Redis lock when addr is set and reachable, and a local lock otherwise.
func New(addr, password string) Locker {
	if addr == "" {
		slog.Info("Redis not configured, using in-process job locks")
		return NewLocalLock()
	}

	l, err := NewRedisLock(addr, password)
	if err != nil {
		slog.Warn("Redis unavailable, using in-process job locks", "addr", addr, "error", err)
		return NewLocalLock()
	}
	return l
}
