package redisclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hackgods/clinic-scheduling/internal/notification"
)

// Publisher pushes notifications onto a per-user pub/sub channel so live
// clients can pick them up. Nothing is retained for offline subscribers.
type Publisher struct {
	client *redis.Client
	prefix string
}

func NewPublisher(client *redis.Client, prefix string) *Publisher {
	return &Publisher{
		client: client,
		prefix: prefix,
	}
}

// Channel returns the channel name a user's notifications are published on.
func (p *Publisher) Channel(n notification.Notification) string {
	return fmt.Sprintf("%s:%s", p.prefix, n.UserID.String())
}

func (p *Publisher) Notify(ctx context.Context, n notification.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := p.client.Publish(ctx, p.Channel(n), data).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
