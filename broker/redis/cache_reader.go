package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/ygyuri/MVPEVENT-i-sub006/broker"
	"github.com/ygyuri/MVPEVENT-i-sub006/model"
)

// RedisCacheReader is the stateless read path over the latest-status cache.
type RedisCacheReader struct {
	client *redis.Client
}

func NewCacheReader(client *redis.Client) *RedisCacheReader {
	return &RedisCacheReader{client: client}
}

// GetLatest returns the last event published for the order, or (nil, nil)
// when the entry is absent or its TTL has expired. It performs no
// subscription and returns immediately.
func (r *RedisCacheReader) GetLatest(ctx context.Context, orderID string) (*model.StatusEvent, error) {
	payload, err := r.client.Get(ctx, broker.LatestStatusKey(orderID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	return model.DecodeStatusEvent([]byte(payload))
}
