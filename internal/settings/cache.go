package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const snapshotKey = "linepay:settings:%d"

// SnapshotCache caches the fully resolved settings per store so that one
// operation always sees one snapshot.
type SnapshotCache interface {
	Get(ctx context.Context, storeID int64) (s Settings, ok bool, err error)
	Set(ctx context.Context, storeID int64, s Settings) error
}

type redisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSnapshotCache(client *redis.Client, ttl time.Duration) SnapshotCache {
	return &redisSnapshotCache{client: client, ttl: ttl}
}

func (c *redisSnapshotCache) Get(ctx context.Context, storeID int64) (Settings, bool, error) {
	fields, err := c.client.HGetAll(ctx, fmt.Sprintf(snapshotKey, storeID)).Result()
	if err != nil {
		return Settings{}, false, fmt.Errorf("[cache] failed to get settings: %w", err)
	}
	if len(fields) == 0 {
		return Settings{}, false, nil
	}
	return Settings{
		ChannelID:     fields["channel_id"],
		ChannelSecret: fields["channel_secret_key"],
		PictureURL:    fields["picture_url"],
		Locale:        fields["locale"],
	}, true, nil
}

func (c *redisSnapshotCache) Set(ctx context.Context, storeID int64, s Settings) error {
	key := fmt.Sprintf(snapshotKey, storeID)

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"channel_id", s.ChannelID,
			"channel_secret_key", s.ChannelSecret,
			"picture_url", s.PictureURL,
			"locale", s.Locale,
		)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("[cache] failed to set settings: %w", err)
	}
	return nil
}
