package stream

import "strings"

// NoResponsePlaceholder is shown when a finished stream produced no
// visible content.
const NoResponsePlaceholder = "[no response]"

// AgentStream is the client-side reducer state for one streaming response:
// the accumulated text plus the derived token estimate, updated chunk by
// chunk. The last chunk wins in the sense that content only ever appends;
// there is no out-of-order reconciliation.
type AgentStream struct {
	AgentID     string
	DisplayName string
	Content     strings.Builder
	TokenCount  int
	Done        bool
	Failed      bool
}

// FinalText is the trimmed accumulated content, or the placeholder when
// the stream produced nothing.
func (as *AgentStream) FinalText() string {
	text := strings.TrimSpace(as.Content.String())
	if text == "" {
		return NoResponsePlaceholder
	}
	return text
}

// Accumulator folds world events into the set of live streams and reports
// finished responses so the caller can flush them to a transcript. It is
// not safe for concurrent use; callers own the event loop.
type Accumulator struct {
	streams map[string]*AgentStream
	order   []string
}

func NewAccumulator() *Accumulator {
	return &Accumulator{streams: make(map[string]*AgentStream)}
}

// Apply folds one event in. It returns the stream that finished with this
// event (end or error), or nil. A start for a live agent and a chunk for
// an unknown or finished agent are ignored.
func (a *Accumulator) Apply(ev Event) *AgentStream {
	if a == nil || !ev.Valid() {
		return nil
	}
	switch ev.Kind {
	case KindStart:
		if _, ok := a.streams[ev.AgentID]; ok {
			return nil
		}
		a.streams[ev.AgentID] = &AgentStream{
			AgentID:     ev.AgentID,
			DisplayName: ev.Label(),
		}
		a.order = append(a.order, ev.AgentID)
		return nil
	case KindChunk:
		as, ok := a.streams[ev.AgentID]
		if !ok || as.Done {
			return nil
		}
		as.Content.WriteString(ev.Content)
		as.TokenCount = CountTokens(as.Content.String())
		return nil
	case KindEnd, KindError:
		as, ok := a.streams[ev.AgentID]
		if !ok || as.Done {
			return nil
		}
		as.Done = true
		as.Failed = ev.Kind == KindError
		return as
	default:
		return nil
	}
}

// Live returns the not-yet-finished streams in start order.
func (a *Accumulator) Live() []*AgentStream {
	if a == nil {
		return nil
	}
	out := make([]*AgentStream, 0, len(a.order))
	for _, id := range a.order {
		if as, ok := a.streams[id]; ok && !as.Done {
			out = append(out, as)
		}
	}
	return out
}

func (a *Accumulator) LiveCount() int {
	return len(a.Live())
}

// Drop removes a finished stream once its content has been flushed.
func (a *Accumulator) Drop(agentID string) {
	if a == nil {
		return
	}
	delete(a.streams, agentID)
	for i, id := range a.order {
		if id == agentID {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}
