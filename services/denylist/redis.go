package denysvc

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iamthanushgowdap/apsconnect/core"
)

const keyPrefix = "denylist:"

// redisDenylist stores denied account IDs in redis with a TTL covering the
// longest possible token lifetime.
type redisDenylist struct {
	client *redis.Client
}

var _ core.SessionDenylist = (*redisDenylist)(nil)

func NewRedisDenylist(client *redis.Client) *redisDenylist {
	return &redisDenylist{client: client}
}

// NewRedisClient connects to redis with short timeouts.
func NewRedisClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         conf.Redis.Addr,
		Password:     conf.Redis.Password,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
}

func (d *redisDenylist) Deny(ctx context.Context, accountID string, ttl time.Duration) error {
	return d.client.Set(ctx, keyPrefix+accountID, "1", ttl).Err()
}

func (d *redisDenylist) IsDenied(ctx context.Context, accountID string) (bool, error) {
	n, err := d.client.Exists(ctx, keyPrefix+accountID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
