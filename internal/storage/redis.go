package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coreauth/idp/internal/models"
)

// RedisAuthCodes is an alternate AuthCodes backend: codes are stored
// with a Redis TTL equal to their own expiry, so a dead code simply
// vanishes instead of needing a cleanup sweep. The exclusive
// Fresh->Used transition is done with a Lua script so the
// check-then-set is atomic on the server, the same guarantee the
// postgres backend gets from a conditional UPDATE.
type RedisAuthCodes struct {
	client *redis.Client
}

func NewRedisAuthCodes(client *redis.Client) *RedisAuthCodes {
	return &RedisAuthCodes{client: client}
}

func codeKey(code string) string {
	return fmt.Sprintf("auth_code:%s", code)
}

func (r *RedisAuthCodes) InsertCode(ctx context.Context, c *models.AuthCode) error {
	key := codeKey(c.Code)

	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("redis: auth code already expired")
	}

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("redis: marshal auth code: %w", err)
	}

	ok, err := r.client.SetNX(ctx, key, data, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis: insert auth code: %w", err)
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

func (r *RedisAuthCodes) FindByCode(ctx context.Context, code string) (*models.AuthCode, error) {
	data, err := r.client.Get(ctx, codeKey(code)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get auth code: %w", err)
	}

	var c models.AuthCode
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("redis: unmarshal auth code: %w", err)
	}
	return &c, nil
}

// markUsedScript atomically re-reads the stored code, flips Used if and
// only if it was false, and rewrites it with its remaining TTL
// preserved. Returns 1 if it flipped the bit, 0 otherwise (missing key
// or already used).
var markUsedScript = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return 0
end
local code = cjson.decode(data)
if code.used then
  return 0
end
code.used = true
local ttl = redis.call('PTTL', KEYS[1])
if ttl <= 0 then
  return 0
end
redis.call('SET', KEYS[1], cjson.encode(code), 'PX', ttl)
return 1
`)

func (r *RedisAuthCodes) MarkUsed(ctx context.Context, code string) (bool, error) {
	flipped, err := markUsedScript.Run(ctx, r.client, []string{codeKey(code)}).Int()
	if err != nil {
		return false, fmt.Errorf("redis: mark auth code used: %w", err)
	}
	return flipped == 1, nil
}

// DeleteExpiredBefore is a no-op: Redis TTL already reclaims expired
// codes without a sweep.
func (r *RedisAuthCodes) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}
