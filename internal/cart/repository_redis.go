package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "cart:"

// RedisRepository keeps each cart as a JSON string whose key expires ttl
// after the cart was created. Saves never push the expiry out.
type RedisRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
	now    func() time.Time
}

type redisCart struct {
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewRedisRepository(client redis.UniversalClient, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

func redisKey(session string) string { return redisKeyPrefix + session }

func (r *RedisRepository) load(ctx context.Context, session string) (Cart, error) {
	raw, err := r.client.Get(ctx, redisKey(session)).Bytes()
	if err != nil {
		return Cart{}, err
	}
	var rc redisCart
	if err := json.Unmarshal(raw, &rc); err != nil {
		return Cart{}, err
	}
	if rc.Items == nil {
		rc.Items = []Item{}
	}
	return Cart{SessionID: session, Items: rc.Items, CreatedAt: rc.CreatedAt, UpdatedAt: rc.UpdatedAt}, nil
}

func (r *RedisRepository) GetOrCreate(ctx context.Context, session string) (Cart, error) {
	c, err := r.load(ctx, session)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, redis.Nil) {
		return Cart{}, err
	}

	c = newCart(session, r.now())
	raw, err := json.Marshal(redisCart{Items: c.Items, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt})
	if err != nil {
		return Cart{}, err
	}
	created, err := r.client.SetNX(ctx, redisKey(session), raw, r.ttl).Result()
	if err != nil {
		return Cart{}, err
	}
	if !created {
		// another request created it first
		return r.load(ctx, session)
	}
	return c, nil
}

func (r *RedisRepository) Save(ctx context.Context, c Cart) error {
	remaining := c.CreatedAt.Add(r.ttl).Sub(r.now())
	if remaining <= 0 {
		return r.client.Del(ctx, redisKey(c.SessionID)).Err()
	}
	items := c.Items
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(redisCart{Items: items, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKey(c.SessionID), raw, remaining).Err()
}

// DeleteExpired is a no-op: keys expire on their own.
func (r *RedisRepository) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
