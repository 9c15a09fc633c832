package world

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"agentworld/internal/stream"
)

// RedisSource subscribes to a Redis pub/sub channel carrying one JSON
// event per message.
type RedisSource struct {
	client  *redis.Client
	channel string
}

func NewRedisSource(redisURL, channel string) (*RedisSource, error) {
	url := strings.TrimSpace(redisURL)
	if url == "" {
		return nil, errors.New("redis url is required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return nil, errors.New("redis channel is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisSource{client: client, channel: channel}, nil
}

func (s *RedisSource) Subscribe(ctx context.Context) (<-chan stream.Event, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("redis source is not connected")
	}
	sub := s.client.Subscribe(ctx, s.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan stream.Event, 64)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ev, err := decodeEvent("", []byte(msg.Payload))
				if err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Publish sends a user message on the input side of the channel pair
// (events channel plus the ":input" suffix), so our own subscription
// never echoes it back.
func (s *RedisSource) Publish(ctx context.Context, msg Message) error {
	if s == nil || s.client == nil {
		return errors.New("redis source is not connected")
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.channel+":input", data).Err()
}

func (s *RedisSource) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
