package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publish sends payload as JSON on channel and returns the number of
// subscribers that received it
func (s *Store) Publish(ctx context.Context, channel string, payload any) (int64, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal message: %w", err)
	}

	n, err := s.client.Publish(ctx, channel, data).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to publish on %s: %w", channel, err)
	}
	return n, nil
}

// Subscribe opens a pub/sub connection on channel and waits for the server
// to confirm the subscription. The caller owns the returned PubSub.
func (s *Store) Subscribe(ctx context.Context, channel string) (*redis.PubSub, error) {
	ps := s.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	return ps, nil
}
