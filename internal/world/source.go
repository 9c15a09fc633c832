// Package world subscribes to an agent world's event bus and turns its
// wire frames into stream.Events. Agent output is only consumed here;
// the sole thing published back is the user's own messages.
package world

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"agentworld/internal/config"
	"agentworld/internal/stream"
)

// Source is one subscription to a world event bus. Subscribe starts the
// read loop and returns the event channel; the channel closes when the
// context is cancelled, the peer closes the stream, or Close is called.
type Source interface {
	Subscribe(ctx context.Context) (<-chan stream.Event, error)
	Close() error
}

// Message is a user utterance posted into the world.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Publisher carries user input back to the world. Every shipped Source
// implements it; callers still type-assert so a read-only Source stays
// a valid implementation.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Open builds the Source named by the config transport.
func Open(cfg config.WorldConfig) (Source, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("world url is required (set world.url or AGENTWORLD_URL)")
	}
	switch cfg.Transport {
	case config.TransportSSE:
		return NewSSESource(url), nil
	case config.TransportWebSocket:
		return NewWSSource(url), nil
	case config.TransportRedis:
		return NewRedisSource(url, cfg.Channel)
	default:
		return nil, fmt.Errorf("unknown world transport: %q", cfg.Transport)
	}
}

// decodeEvent turns a wire payload into a stream.Event. The frame name
// (SSE event field or empty) fills in the kind when the JSON body omits
// it, so both `event: chunk` framing and self-describing payloads work.
func decodeEvent(frameName string, data []byte) (stream.Event, error) {
	var ev stream.Event
	if len(data) > 0 {
		if err := json.Unmarshal(data, &ev); err != nil {
			return stream.Event{}, fmt.Errorf("decode world event: %w", err)
		}
	}
	if strings.TrimSpace(string(ev.Kind)) == "" {
		ev.Kind = stream.Kind(strings.TrimSpace(frameName))
	}
	if !ev.Valid() {
		return stream.Event{}, fmt.Errorf("invalid world event: kind=%q agent=%q", ev.Kind, ev.AgentID)
	}
	return ev, nil
}
