package display

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"agentworld/internal/stream"
)

const defaultFlashInterval = 500 * time.Millisecond

const (
	ansiReset = "\x1b[0m"
	ansiCyan  = "\x1b[36m"
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
)

const (
	glyphSolid  = "●"
	glyphHollow = "○"
)

const noResponsePlaceholder = "[no response]"

func colorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	term := strings.TrimSpace(os.Getenv("TERM"))
	if term == "" || term == "dumb" {
		return false
	}
	return true
}

// entry tracks one actively streaming agent response: the accumulated
// content, the fixed row assigned at stream start and the flash timer
// handle that must be cancelled exactly once.
type entry struct {
	agentID     string
	displayName string
	buf         strings.Builder
	tokenCount  int
	lineOffset  int
	hasError    bool
	isStreaming bool
	flashPhase  bool
	stopFlash   func()
}

// Renderer draws N concurrently streaming agent responses as N fixed
// terminal lines, updating each in place as chunks arrive, then replaces
// the whole block with finalized lines once every stream has ended.
//
// Line offsets are assigned 0,1,2,... per streaming block and stay fixed
// for the lifetime of a stream; the counter resets when the active count
// drains to zero. All methods are safe for concurrent use: event handlers
// run on the subscriber goroutine while flash timers tick on their own.
type Renderer struct {
	mu sync.Mutex

	term          Terminal
	flashInterval time.Duration
	color         bool

	active     map[string]*entry
	completed  map[string]*entry
	nextOffset int
}

type Options struct {
	Terminal      Terminal
	FlashInterval time.Duration

	// Color forces colored glyphs on or off; nil means autodetect from the
	// environment the way the rest of the terminal output does.
	Color *bool
}

func NewRenderer(opts Options) *Renderer {
	term := opts.Terminal
	if term == nil {
		term = NewANSITerminal(os.Stdout)
	}
	interval := opts.FlashInterval
	if interval <= 0 {
		interval = defaultFlashInterval
	}
	color := colorEnabled()
	if opts.Color != nil {
		color = *opts.Color
	}
	return &Renderer{
		term:          term,
		flashInterval: interval,
		color:         color,
		active:        make(map[string]*entry),
		completed:     make(map[string]*entry),
	}
}

func (r *Renderer) wrap(code, text string) string {
	if !r.color || code == "" {
		return text
	}
	return code + text + ansiReset
}

// Start registers an agent stream and prints its initial preview line.
// The first stream of a block also emits one blank line to mark the top
// of the block. Calling Start twice for the same agent keeps the existing
// entry and only redraws its row.
func (r *Renderer) Start(agentID, displayName string) {
	if r == nil || strings.TrimSpace(agentID) == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.active[agentID]; ok {
		r.term.UpdateRow(r.nextOffset-e.lineOffset, r.previewLine(e))
		return
	}

	if len(r.active) == 0 {
		r.term.Print("")
		r.nextOffset = 0
	}

	e := &entry{
		agentID:     agentID,
		displayName: strings.TrimSpace(displayName),
		lineOffset:  r.nextOffset,
		isStreaming: true,
	}
	if e.displayName == "" {
		e.displayName = agentID
	}
	r.nextOffset++
	r.active[agentID] = e
	r.term.Print(r.previewLine(e))
	r.startFlash(e)
}

func (r *Renderer) startFlash(e *entry) {
	ticker := time.NewTicker(r.flashInterval)
	done := make(chan struct{})
	e.stopFlash = sync.OnceFunc(func() {
		ticker.Stop()
		close(done)
	})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				r.flashTick(e.agentID)
			}
		}
	}()
}

func (r *Renderer) flashTick(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.active[agentID]
	if !ok || !e.isStreaming {
		return
	}
	e.flashPhase = !e.flashPhase
	r.term.UpdateRow(r.nextOffset-e.lineOffset, r.previewLine(e))
}

// AddContent appends a chunk to the agent's buffer, recomputes the token
// estimate from the full buffer and redraws the agent's row immediately,
// independent of the flash tick. Unknown agents are ignored.
func (r *Renderer) AddContent(agentID, content string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.active[agentID]
	if !ok {
		return
	}
	e.buf.WriteString(content)
	e.tokenCount = stream.CountTokens(e.buf.String())
	r.term.UpdateRow(r.nextOffset-e.lineOffset, r.previewLine(e))
}

// End finishes an agent's stream normally. When the last active stream of
// the block ends, every preview line is erased and one finalized line per
// agent is printed in line-offset order, then all block state is cleared.
func (r *Renderer) End(agentID string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.active[agentID]
	if !ok {
		return
	}
	e.stopFlash()
	e.isStreaming = false
	delete(r.active, agentID)
	r.completed[agentID] = e
	if len(r.active) == 0 {
		r.finalizeBlock()
	}
}

// MarkError finishes an agent's stream with an error: the agent's row is
// rewritten in place with an error-styled line and the entry joins the
// completed set flagged as failed. A second call for the same agent is a
// silent no-op. Sibling streams in the block are unaffected.
func (r *Renderer) MarkError(agentID string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.active[agentID]
	if !ok {
		return
	}
	e.stopFlash()
	e.isStreaming = false
	e.hasError = true
	r.term.UpdateRow(r.nextOffset-e.lineOffset, r.errorLine(e))
	delete(r.active, agentID)
	r.completed[agentID] = e
	if len(r.active) == 0 {
		r.finalizeBlock()
	}
}

// Reset stops every outstanding flash timer and drops all state without
// touching the terminal. Call on teardown so no interval keeps redrawing
// a stale row.
func (r *Renderer) Reset() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.active {
		if e.stopFlash != nil {
			e.stopFlash()
		}
	}
	for _, e := range r.completed {
		if e.stopFlash != nil {
			e.stopFlash()
		}
	}
	r.active = make(map[string]*entry)
	r.completed = make(map[string]*entry)
	r.nextOffset = 0
}

// ActiveCount reports how many streams are currently live.
func (r *Renderer) ActiveCount() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// finalizeBlock erases all preview rows and prints the finalized lines in
// ascending line-offset order. Caller holds the lock.
func (r *Renderer) finalizeBlock() {
	total := r.nextOffset
	ordered := make([]*entry, total)
	for _, e := range r.completed {
		if e.lineOffset >= 0 && e.lineOffset < total {
			ordered[e.lineOffset] = e
		}
	}
	r.term.EraseBlock(total)
	for _, e := range ordered {
		if e == nil {
			continue
		}
		r.term.PrintRow(r.finalLine(e))
	}
	r.completed = make(map[string]*entry)
	r.nextOffset = 0
}

func (r *Renderer) previewLine(e *entry) string {
	glyph := glyphSolid
	if e.flashPhase {
		glyph = glyphHollow
	}
	preview := stream.PreviewText(e.buf.String())
	head := fmt.Sprintf("%s %s:", r.wrap(ansiCyan, glyph), e.displayName)
	if preview == "" {
		return fmt.Sprintf("%s ... (%d tokens)", head, e.tokenCount)
	}
	return fmt.Sprintf("%s %s ... (%d tokens)", head, preview, e.tokenCount)
}

func (r *Renderer) errorLine(e *entry) string {
	content := strings.TrimSpace(e.buf.String())
	if content == "" {
		content = noResponsePlaceholder
	}
	return fmt.Sprintf("%s %s: %s (error)", r.wrap(ansiRed, glyphSolid), e.displayName, stream.PreviewText(content))
}

func (r *Renderer) finalLine(e *entry) string {
	color := ansiGreen
	if e.hasError {
		color = ansiRed
	}
	content := strings.TrimSpace(e.buf.String())
	if content == "" {
		content = noResponsePlaceholder
	}
	return fmt.Sprintf("%s %s: %s", r.wrap(color, glyphSolid), e.displayName, content)
}
