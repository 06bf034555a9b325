package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/ygyuri/MVPEVENT-i-sub006/model"
)

// Fixed wire-level naming and limits. Every publisher and reader derives
// keys the same way, so the two sides rendezvous without sharing memory.
const (
	// CacheTTL bounds how long the last published event stays readable.
	CacheTTL = 60 * time.Second

	// DefaultWaitTimeout applies when a caller passes no timeout to WaitFor.
	DefaultWaitTimeout = 60 * time.Second

	channelPrefix   = "order-status:"
	latestKeyPrefix = "order-latest:"
)

// StatusChannel returns the pub/sub channel for an order's status events.
func StatusChannel(orderID string) string {
	return fmt.Sprintf("%s%s", channelPrefix, orderID)
}

// LatestStatusKey returns the cache key holding an order's last event.
func LatestStatusKey(orderID string) string {
	return fmt.Sprintf("%s%s", latestKeyPrefix, orderID)
}

// Publisher announces order status changes. It is constructed once at
// process startup, injected into callers, and closed at teardown.
type Publisher interface {
	// Notify broadcasts a status event on the order's channel and writes it
	// to the order's cache entry. It returns false without error when the
	// connection is not currently usable; publishes are fire-and-forget and
	// never retried or buffered.
	Notify(ctx context.Context, orderID string, fields model.StatusFields) bool

	// Ready reports whether the underlying connection is believed usable.
	Ready() bool

	// Close releases the long-lived connection.
	Close() error
}

// Waiter blocks one caller until the next status event for an order
// arrives, or the timeout passes, or the wait fails.
type Waiter interface {
	// WaitFor resolves with the first event received on the order's channel,
	// or (nil, nil) when no event arrives within the timeout. A timeout is
	// not an error; failing to establish or hold the subscription is. The
	// dedicated subscriber connection is released on every exit path.
	// Cancelling ctx runs the same teardown as a timeout.
	WaitFor(ctx context.Context, orderID string, timeout time.Duration) (*model.StatusEvent, error)
}

// CacheReader fetches the last cached event for an order without
// subscribing, for callers that tolerate staleness.
type CacheReader interface {
	// GetLatest returns (nil, nil) when no unexpired entry exists. It never
	// blocks on event delivery and has no side effects.
	GetLatest(ctx context.Context, orderID string) (*model.StatusEvent, error)
}
