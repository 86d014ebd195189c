package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edgepulse/edgepulse/internal/store"
)

// Publisher mirrors the latest classified state of each device into Redis.
type Publisher struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPublisher connects to Redis and verifies the connection.
func NewPublisher(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("state: connect to redis: %w", err)
	}
	return &Publisher{client: client, ttl: ttl}, nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}

// update is the pub/sub message body sent on every new record.
type update struct {
	DeviceKey string `json:"device_key"`
	Health    string `json:"health_status"`
	Reason    string `json:"reason"`
	Topic     string `json:"topic"`
	Seen      string `json:"seen"` // RFC3339
}

// PublishState writes the device's state hash with the configured TTL and
// notifies subscribers on the device channel. All three commands ride one
// pipeline round trip.
func (p *Publisher) PublishState(ctx context.Context, rec *store.Record) error {
	key := fmt.Sprintf("device:%s:state", rec.DeviceKey)
	seen := rec.EffectiveTime().UTC().Format(time.RFC3339)

	msg, err := json.Marshal(update{
		DeviceKey: rec.DeviceKey,
		Health:    rec.Health,
		Reason:    rec.Reason,
		Topic:     rec.Topic,
		Seen:      seen,
	})
	if err != nil {
		return fmt.Errorf("state: encode update: %w", err)
	}

	pipe := p.client.Pipeline()
	pipe.HSet(ctx, key, map[string]any{
		"health_status": rec.Health,
		"reason":        rec.Reason,
		"topic":         rec.Topic,
		"seen":          seen,
	})
	pipe.Expire(ctx, key, p.ttl)
	pipe.Publish(ctx, "telemetry."+rec.DeviceKey, msg)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("state: publish %q: %w", rec.DeviceKey, err)
	}
	return nil
}
