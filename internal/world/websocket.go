package world

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"agentworld/internal/stream"
)

const wsMaxMessageBytes = 1 << 20

// WSSource subscribes over a WebSocket; the world sends one JSON event per
// text message.
type WSSource struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWSSource(url string) *WSSource {
	return &WSSource{url: strings.TrimSpace(url)}
}

func (s *WSSource) Subscribe(ctx context.Context) (<-chan stream.Event, error) {
	if s == nil || s.url == "" {
		return nil, errors.New("websocket url is required")
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, s.url, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(wsMaxMessageBytes)

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	out := make(chan stream.Event, 64)
	go func() {
		defer close(out)
		defer conn.Close(websocket.StatusNormalClosure, "done")
		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			if typ != websocket.MessageText {
				continue
			}
			ev, err := decodeEvent("", data)
			if err != nil {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Publish writes a user message as one JSON text message on the open
// connection. Requires a prior Subscribe.
func (s *WSSource) Publish(ctx context.Context, msg Message) error {
	if s == nil {
		return errors.New("websocket source is nil")
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.New("websocket is not connected")
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func (s *WSSource) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		err := s.conn.Close(websocket.StatusNormalClosure, "closing")
		s.conn = nil
		return err
	}
	return nil
}
