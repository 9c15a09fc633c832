package stream

import "strings"

// Kind identifies one of the four event types emitted by an agent world
// while a response streams.
type Kind string

const (
	KindStart Kind = "start"
	KindChunk Kind = "chunk"
	KindEnd   Kind = "end"
	KindError Kind = "error"
)

// Event is one discrete item from the world event bus. Content is only
// meaningful for chunk events; Err only for error events.
type Event struct {
	Kind        Kind   `json:"kind"`
	AgentID     string `json:"agent_id"`
	DisplayName string `json:"display_name,omitempty"`
	Content     string `json:"content,omitempty"`
	Err         string `json:"error,omitempty"`
}

func (e Event) Valid() bool {
	if strings.TrimSpace(e.AgentID) == "" {
		return false
	}
	switch e.Kind {
	case KindStart, KindChunk, KindEnd, KindError:
		return true
	default:
		return false
	}
}

// Label returns the name to show for this event's agent, falling back to
// the agent ID when the world did not send a display name.
func (e Event) Label() string {
	if name := strings.TrimSpace(e.DisplayName); name != "" {
		return name
	}
	return strings.TrimSpace(e.AgentID)
}
