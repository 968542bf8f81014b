// Package notifier fans notification events out across server instances through Redis pub/sub.
package notifier

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const userChannelPrefix = "notifications:user:"

// UserChannel is the channel carrying userID's events.
func UserChannel(userID uint) string {
	return fmt.Sprintf("%s%d", userChannelPrefix, userID)
}

// ParseUserChannel extracts the user id from a channel name.
func ParseUserChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// Notifier publishes to and subscribes from Redis.
type Notifier struct {
	rdb *redis.Client
	log *zap.Logger
}

func New(rdb *redis.Client, log *zap.Logger) *Notifier {
	return &Notifier{rdb: rdb, log: log}
}

// Enabled is false when no Redis client is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishUser sends a payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload []byte) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// StartSubscriber listens on every user channel until ctx is done and hands
// each message to onMessage. A panicking handler does not stop the loop.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage func(userID uint, payload []byte)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe to notifications: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				userID, ok := ParseUserChannel(msg.Channel)
				if !ok {
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							n.log.Error("panic in notification subscriber",
								zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
						}
					}()
					onMessage(userID, []byte(msg.Payload))
				}()
			}
		}
	}()

	return nil
}
