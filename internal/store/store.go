package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const historyFileName = "history.jsonl"

// Message is one transcript entry: something a user typed, or a finished
// agent response flushed from a stream.
type Message struct {
	Role      string    `json:"role"`
	Agent     string    `json:"agent,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store keeps the conversation transcript in memory, mirrored to an
// append-only JSONL file. A failed file append rolls the in-memory append
// back so memory and disk never disagree about the message count.
type Store struct {
	mu   sync.Mutex
	path string
	msgs []Message
}

// Open loads the transcript from dir/history.jsonl, creating the directory
// lazily on first append. Pass an empty dir for a memory-only store.
func Open(dir string) (*Store, error) {
	s := &Store{}
	if strings.TrimSpace(dir) == "" {
		return s, nil
	}
	s.path = filepath.Join(dir, historyFileName)
	msgs, err := readJSONL[Message](s.path, 0)
	if err != nil {
		return nil, err
	}
	s.msgs = msgs
	return s, nil
}

func (s *Store) Append(msg Message) error {
	if s == nil {
		return errors.New("store is nil")
	}
	if strings.TrimSpace(msg.Content) == "" {
		return errors.New("message content is required")
	}
	if strings.TrimSpace(msg.Role) == "" {
		msg.Role = "user"
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	if err := appendJSONL(s.path, msg); err != nil {
		s.msgs = s.msgs[:len(s.msgs)-1]
		return err
	}
	return nil
}

// Messages returns a snapshot copy of the transcript.
func (s *Store) Messages() []Message {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

// Clear drops every message and truncates the backing file.
func (s *Store) Clear() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path != "" {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	s.msgs = nil
	return nil
}

func readJSONL[T any](path string, limit int) ([]T, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 1024*64)
	scanner.Buffer(buf, 1024*1024)

	out := make([]T, 0, 128)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var item T
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return out, err
	}
	return out, nil
}

func appendJSONL(path string, payload any) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(data, '\n'))
	return err
}
