package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/market-checkout/internal/core/domain"
)

const (
	sessionKeyPrefix = "session:"
	defaultGuardTTL  = 10 * time.Minute
)

var releaseGuardScript = redis.NewScript(`
local key = KEYS[1]
local owner = ARGV[1]

if redis.call('GET', key) == owner then
	return redis.call('DEL', key)
end

return 0
`)

// RedisAdapter persists the device session as a hash and holds checkout
// guards as plain keys with a TTL.
type RedisAdapter struct {
	client     *redis.Client
	sessionKey string
	guardTTL   time.Duration
}

func NewRedisAdapter(client *redis.Client, deviceID string, guardTTL time.Duration) *RedisAdapter {
	if guardTTL <= 0 {
		guardTTL = defaultGuardTTL
	}
	return &RedisAdapter{
		client:     client,
		sessionKey: sessionKeyPrefix + deviceID,
		guardTTL:   guardTTL,
	}
}

func (r *RedisAdapter) LoadSession(ctx context.Context) (domain.Session, error) {
	fields, err := r.client.HGetAll(ctx, r.sessionKey).Result()
	if err != nil {
		return domain.Session{}, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		return domain.AnonymousSession(), nil
	}

	s := domain.Session{
		UserID:     fields["user_id"],
		Name:       fields["name"],
		Token:      fields["token"],
		IsLoggedIn: fields["logged_in"] == "1",
		Role:       domain.Role(fields["role"]),
		Promo:      domain.PromoState(fields["promo"]),
	}
	if s.Role == "" {
		s.Role = domain.RoleCustomer
	}
	if s.Promo == "" {
		s.Promo = domain.PromoUnclaimed
	}
	return s, nil
}

// SaveSession replaces the whole hash in one MULTI/EXEC so a reader never
// sees a mix of old and new fields.
func (r *RedisAdapter) SaveSession(ctx context.Context, s domain.Session) error {
	loggedIn := "0"
	if s.IsLoggedIn {
		loggedIn = "1"
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.sessionKey)
		pipe.HSet(ctx, r.sessionKey, map[string]interface{}{
			"user_id":   s.UserID,
			"name":      s.Name,
			"token":     s.Token,
			"logged_in": loggedIn,
			"role":      string(s.Role),
			"promo":     string(s.Promo),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (r *RedisAdapter) ClearSession(ctx context.Context) error {
	if err := r.client.Del(ctx, r.sessionKey).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func (r *RedisAdapter) Acquire(ctx context.Context, key, owner string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, owner, r.guardTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) Release(ctx context.Context, key, owner string) error {
	err := releaseGuardScript.Run(ctx, r.client, []string{key}, owner).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
