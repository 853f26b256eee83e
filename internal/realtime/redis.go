package realtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"estatehub/internal/models"
	"estatehub/internal/repositories/cache"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher fans notifications out through redis so that every server
// instance can deliver to the connections it holds.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	if client == nil {
		panic("redis client is required")
	}
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, n *models.Notification) error {
	payload, err := encode(n)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, cache.NotificationChannel(n.UserID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Subscribe relays published notifications to local connections until ctx
// is cancelled.
func (h *Hub) Subscribe(ctx context.Context, client *redis.Client) error {
	sub := client.PSubscribe(ctx, cache.NotificationPattern)
	defer sub.Close()

	// Receive blocks until the subscription is confirmed.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to notifications: %w", err)
	}
	h.logger.Info("subscribed to notification channel", zap.String("pattern", cache.NotificationPattern))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			userID, err := userFromChannel(msg.Channel)
			if err != nil {
				h.logger.Warn("unexpected notification channel", zap.String("channel", msg.Channel))
				continue
			}
			h.deliver(userID, []byte(msg.Payload))
		}
	}
}

func userFromChannel(channel string) (uint, error) {
	idx := strings.LastIndexByte(channel, ':')
	if idx < 0 {
		return 0, fmt.Errorf("no user id in %q", channel)
	}
	id, err := strconv.ParseUint(channel[idx+1:], 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("bad user id in %q", channel)
	}
	return uint(id), nil
}
