// Package presence tracks when each gateway last polled the backend. The
// dispatch design has no inbound path to a device, so "online" can only mean
// "polled recently"; a redis key with a TTL captures exactly that.
package presence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "flowgate:presence:"

// A device that has not polled within this window counts as offline. Agents
// poll every few seconds, so three missed ticks is a generous allowance.
const OnlineWindow = 30 * time.Second

type Tracker struct {
	rdb *redis.Client
}

// NewTracker returns a tracker over rdb; a nil client disables tracking and
// every device reads as offline.
func NewTracker(rdb *redis.Client) *Tracker {
	return &Tracker{rdb: rdb}
}

// Touch records a poll from deviceID. Errors are returned for logging but a
// failed touch never blocks a claim.
func (t *Tracker) Touch(ctx context.Context, deviceID string) error {
	if t.rdb == nil {
		return nil
	}
	return t.rdb.Set(ctx, keyPrefix+deviceID, time.Now().UTC().Format(time.RFC3339), OnlineWindow).Err()
}

// Online reports whether deviceID polled within the online window.
func (t *Tracker) Online(ctx context.Context, deviceID string) (bool, error) {
	if t.rdb == nil {
		return false, nil
	}
	n, err := t.rdb.Exists(ctx, keyPrefix+deviceID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
