package auth

import (
	"context"
	"time"

	"github.com/redis/rueidis"
)

const revokedKeyPrefix = "revoked_token:"

// RedisRevoker stores revoked token ids in Redis with a TTL matching the
// token's remaining lifetime, so entries expire on their own.
type RedisRevoker struct {
	client rueidis.Client
	now    func() time.Time
}

func NewRedisRevoker(client rueidis.Client) *RedisRevoker {
	return &RedisRevoker{
		client: client,
		now:    time.Now,
	}
}

func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	cmd := r.client.B().Set().
		Key(revokedKeyPrefix + tokenID).
		Value("1").
		PxMilliseconds(ttl.Milliseconds()).
		Build()
	return r.client.Do(ctx, cmd).Error()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	cmd := r.client.B().Exists().Key(revokedKeyPrefix + tokenID).Build()
	n, err := r.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
