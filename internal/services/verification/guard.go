package verification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrBusy means another evaluation for the same user holds the guard.
var ErrBusy = errors.New("verification already in progress")

// Guard allows at most one evaluation in flight per user.
type Guard interface {
	Acquire(ctx context.Context, userID uuid.UUID, ttl time.Duration) (release func(), err error)
}

// RedisGuard holds the lock in Redis so that every API instance sees it.
type RedisGuard struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisGuard(rdb *redis.Client) *RedisGuard {
	return &RedisGuard{rdb: rdb, prefix: "verification:lock:"}
}

// Delete the key only if we still own it; the TTL may have handed it to
// someone else.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (g *RedisGuard) Acquire(ctx context.Context, userID uuid.UUID, ttl time.Duration) (func(), error) {
	key := g.prefix + userID.String()
	token := uuid.NewString()

	ok, err := g.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBusy
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = unlockScript.Run(ctx, g.rdb, []string{key}, token).Err()
	}, nil
}

// LocalGuard is the single-instance fallback used when Redis is unavailable.
type LocalGuard struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{held: make(map[uuid.UUID]struct{})}
}

func (g *LocalGuard) Acquire(_ context.Context, userID uuid.UUID, _ time.Duration) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.held[userID]; busy {
		return nil, ErrBusy
	}
	g.held[userID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, userID)
			g.mu.Unlock()
		})
	}, nil
}
