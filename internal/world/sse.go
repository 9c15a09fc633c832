package world

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"agentworld/internal/stream"
)

// SSESource subscribes to a text/event-stream endpoint. Frames follow the
// usual `event:` / `data:` fields with a blank-line terminator; comment
// lines (leading colon) are keep-alives and are dropped.
type SSESource struct {
	url    string
	client *http.Client

	mu   sync.Mutex
	body io.Closer
}

func NewSSESource(url string) *SSESource {
	return &SSESource{
		url: strings.TrimSpace(url),
		// Streaming request: no overall timeout, only a dial-phase one.
		client: &http.Client{Transport: &http.Transport{
			ResponseHeaderTimeout: 10 * time.Second,
		}},
	}
}

func (s *SSESource) Subscribe(ctx context.Context) (<-chan stream.Event, error) {
	if s == nil || s.url == "" {
		return nil, errors.New("sse url is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("sse subscribe: unexpected status %s", resp.Status)
	}

	s.mu.Lock()
	s.body = resp.Body
	s.mu.Unlock()

	out := make(chan stream.Event, 64)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		readSSE(ctx, resp.Body, out)
	}()
	return out, nil
}

// Publish posts a user message to the same endpoint as JSON. SSE itself
// is one-way, so input travels over a plain POST.
func (s *SSESource) Publish(ctx context.Context, msg Message) error {
	if s == nil || s.url == "" {
		return errors.New("sse url is required")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sse publish: unexpected status %s", resp.Status)
	}
	return nil
}

func (s *SSESource) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.body != nil {
		err := s.body.Close()
		s.body = nil
		return err
	}
	return nil
}

func readSSE(ctx context.Context, r io.Reader, out chan<- stream.Event) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventName string
	var data strings.Builder
	flush := func() {
		defer func() {
			eventName = ""
			data.Reset()
		}()
		if data.Len() == 0 && eventName == "" {
			return
		}
		ev, err := decodeEvent(eventName, []byte(data.String()))
		if err != nil {
			return
		}
		select {
		case out <- ev:
		case <-ctx.Done():
		}
	}

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, ":"):
			// keep-alive comment
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	flush()
}
