package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ygyuri/MVPEVENT-i-sub006/broker"
	"github.com/ygyuri/MVPEVENT-i-sub006/model"
)

// RedisWaiter bridges pub/sub delivery to a single awaited result. Each
// WaitFor call subscribes on its own dedicated connection — a subscribed
// connection cannot run other commands — and releases it before returning,
// on every exit path.
type RedisWaiter struct {
	client *redis.Client
	reader broker.CacheReader
}

// NewWaiter returns a waiter that only observes events published after its
// subscription is active. The broker provides no replay: a wait started
// strictly after the notify completed will time out.
func NewWaiter(client *redis.Client) *RedisWaiter {
	return &RedisWaiter{client: client}
}

// NewWaiterWithCacheCheck additionally consults the latest-status cache once
// the subscription is confirmed, resolving immediately on a hit. This
// shrinks, but cannot eliminate, the window where a notify issued just
// before the subscribe is missed.
func NewWaiterWithCacheCheck(client *redis.Client, reader broker.CacheReader) *RedisWaiter {
	return &RedisWaiter{client: client, reader: reader}
}

type waitResult struct {
	event *model.StatusEvent
	err   error
}

// WaitFor resolves with the first event on the order's channel, with
// (nil, nil) at timeout, or with an error if the subscription cannot be
// established or breaks mid-wait. Exactly one of those happens per call:
// the single select below is the sole arbiter, so no two exit paths can
// both complete. Cancelling ctx tears down the same way a timeout does.
func (w *RedisWaiter) WaitFor(ctx context.Context, orderID string, timeout time.Duration) (*model.StatusEvent, error) {
	if timeout <= 0 {
		timeout = broker.DefaultWaitTimeout
	}

	channel := broker.StatusChannel(orderID)
	pubsub := w.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	// Confirm the subscription before waiting. A failure here means no wait
	// ever began, surfaced as an error rather than a timeout.
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	if w.reader != nil {
		// A miss just means we wait; a read or decode failure is surfaced the
		// same way a broken subscription would be.
		event, err := w.reader.GetLatest(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("checking cached status for %s: %w", orderID, err)
		}
		if event != nil {
			return event, nil
		}
	}

	recvCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan waitResult, 1)
	go func() {
		msg, err := pubsub.ReceiveMessage(recvCtx)
		if err != nil {
			results <- waitResult{err: err}
			return
		}
		event, err := model.DecodeStatusEvent([]byte(msg.Payload))
		results <- waitResult{event: event, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-results:
		if res.err != nil {
			return nil, fmt.Errorf("waiting on %s failed: %w", channel, res.err)
		}
		return res.event, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
