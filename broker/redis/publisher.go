package redis

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/ygyuri/MVPEVENT-i-sub006/broker"
	"github.com/ygyuri/MVPEVENT-i-sub006/model"
)

// Connection lifecycle states. Error is reachable from any state; there is
// no auto-reconnect — reconnection policy belongs to the medium, not here.
const (
	stateDisconnected int32 = iota
	stateConnecting
	stateReady
	stateError
)

// RedisPublisher owns one long-lived client used for publishing and cache
// writes only; it is never used for subscribing.
type RedisPublisher struct {
	client *redis.Client
	state  atomic.Int32
}

// NewPublisher verifies the connection and returns a ready publisher.
func NewPublisher(client *redis.Client) (*RedisPublisher, error) {
	p := &RedisPublisher{client: client}
	p.state.Store(stateConnecting)

	if err := client.Ping(context.Background()).Err(); err != nil {
		p.state.Store(stateError)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	p.state.Store(stateReady)
	return p, nil
}

// Notify builds a status event stamped now, publishes it on the order's
// channel, then overwrites the order's cache entry with the same payload
// under the fixed TTL. It returns false when the connection is not believed
// ready or the input is unusable; it never raises and never retries.
func (p *RedisPublisher) Notify(ctx context.Context, orderID string, fields model.StatusFields) bool {
	if orderID == "" || !p.Ready() {
		return false
	}

	event := model.NewStatusEvent(orderID, fields)
	payload, err := event.Encode()
	if err != nil {
		log.Printf("Dropping status event for order %s: %v", orderID, err)
		return false
	}

	// Two separate operations: subscribers may observe the publish before
	// the cache write lands, or the reverse, within a narrow window. Both
	// are attempted even if the first fails, so late readers still get the
	// cache entry when only the publish went wrong.
	if err := p.client.Publish(ctx, broker.StatusChannel(orderID), payload).Err(); err != nil {
		p.fail(err)
	}

	if err := p.client.Set(ctx, broker.LatestStatusKey(orderID), payload, broker.CacheTTL).Err(); err != nil {
		p.fail(err)
	}

	return true
}

// Ready reports whether the connection is currently believed usable.
func (p *RedisPublisher) Ready() bool {
	return p.state.Load() == stateReady
}

// Close releases the connection at process teardown.
func (p *RedisPublisher) Close() error {
	p.state.Store(stateDisconnected)
	return p.client.Close()
}

// fail marks the publisher not-ready. Subsequent Notify calls degrade to
// no-ops until the process restarts with a fresh publisher.
func (p *RedisPublisher) fail(err error) {
	if p.state.CompareAndSwap(stateReady, stateError) {
		log.Printf("Status publisher entering error state: %v", err)
	}
}
