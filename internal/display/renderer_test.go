package display

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeTerminal struct {
	mu  sync.Mutex
	ops []string
}

func (f *fakeTerminal) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
}

func (f *fakeTerminal) Print(text string) { f.record("print|" + text) }

func (f *fakeTerminal) UpdateRow(rowsAbove int, text string) {
	f.record(fmt.Sprintf("update|%d|%s", rowsAbove, text))
}

func (f *fakeTerminal) EraseBlock(rows int) { f.record(fmt.Sprintf("erase|%d", rows)) }

func (f *fakeTerminal) PrintRow(text string) { f.record("row|" + text) }

func (f *fakeTerminal) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ops))
	copy(out, f.ops)
	return out
}

func (f *fakeTerminal) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ops)
}

func newTestRenderer() (*Renderer, *fakeTerminal) {
	term := &fakeTerminal{}
	off := false
	r := NewRenderer(Options{
		Terminal:      term,
		FlashInterval: time.Hour,
		Color:         &off,
	})
	return r, term
}

func finalRows(ops []string) []string {
	var rows []string
	for _, op := range ops {
		if strings.HasPrefix(op, "row|") {
			rows = append(rows, strings.TrimPrefix(op, "row|"))
		}
	}
	return rows
}

func TestTwoAgentBlock(t *testing.T) {
	r, term := newTestRenderer()
	defer r.Reset()

	r.Start("alice", "Alice")
	r.Start("bob", "Bob")
	r.AddContent("alice", "Hello")
	r.AddContent("alice", " world")
	r.AddContent("bob", "Hi")
	r.End("alice")
	r.End("bob")

	rows := finalRows(term.snapshot())
	if len(rows) != 2 {
		t.Fatalf("expected 2 final rows, got %d: %v", len(rows), rows)
	}
	if rows[0] != "● Alice: Hello world" {
		t.Fatalf("alice final = %q", rows[0])
	}
	if rows[1] != "● Bob: Hi" {
		t.Fatalf("bob final = %q", rows[1])
	}
	if r.ActiveCount() != 0 {
		t.Fatalf("active map not drained")
	}
	if r.nextOffset != 0 {
		t.Fatalf("offset counter not reset, got %d", r.nextOffset)
	}
}

func TestBlockStartsWithBlankLineAndInitialPreview(t *testing.T) {
	r, term := newTestRenderer()
	defer r.Reset()

	r.Start("a1", "Researcher")
	ops := term.snapshot()
	if len(ops) != 2 {
		t.Fatalf("expected 2 ops, got %v", ops)
	}
	if ops[0] != "print|" {
		t.Fatalf("first op should be the blank block marker, got %q", ops[0])
	}
	if ops[1] != "print|● Researcher: ... (0 tokens)" {
		t.Fatalf("initial preview line = %q", ops[1])
	}
}

func TestEmptyChunkRendersNoResponse(t *testing.T) {
	r, term := newTestRenderer()
	defer r.Reset()

	r.Start("a1", "Writer")
	r.AddContent("a1", "")
	r.End("a1")

	rows := finalRows(term.snapshot())
	if len(rows) != 1 {
		t.Fatalf("expected 1 final row, got %v", rows)
	}
	if rows[0] != "● Writer: [no response]" {
		t.Fatalf("final = %q", rows[0])
	}
}

func TestWhitespaceOnlyContentRendersNoResponse(t *testing.T) {
	r, term := newTestRenderer()
	defer r.Reset()

	r.Start("a1", "Writer")
	r.AddContent("a1", "  \n\t ")
	r.End("a1")

	rows := finalRows(term.snapshot())
	if len(rows) != 1 || rows[0] != "● Writer: [no response]" {
		t.Fatalf("final rows = %v", rows)
	}
}

func TestPreviewTruncationAtFiftyRunes(t *testing.T) {
	r, term := newTestRenderer()
	defer r.Reset()

	buf := strings.Repeat("a", 200)
	r.Start("a1", "Agent")
	r.AddContent("a1", buf)

	ops := term.snapshot()
	last := ops[len(ops)-1]
	want := fmt.Sprintf("update|1|● Agent: %s ... (1 tokens)", strings.Repeat("a", 50))
	if last != want {
		t.Fatalf("preview update = %q, want %q", last, want)
	}
}

func TestLineOffsetsAreContiguousPerBlock(t *testing.T) {
	r, term := newTestRenderer()
	defer r.Reset()

	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		r.Start(id, id)
	}
	seen := map[int]bool{}
	for _, id := range ids {
		e := r.active[id]
		if e == nil {
			t.Fatalf("missing active entry %q", id)
		}
		if seen[e.lineOffset] {
			t.Fatalf("duplicate offset %d", e.lineOffset)
		}
		seen[e.lineOffset] = true
	}
	for i := range ids {
		if !seen[i] {
			t.Fatalf("offsets not a permutation of 0..%d: %v", len(ids)-1, seen)
		}
	}

	for _, id := range ids {
		r.End(id)
	}
	// The whole block is erased in one move and each final printed in
	// ascending offset order.
	var erased string
	for _, op := range term.snapshot() {
		if strings.HasPrefix(op, "erase|") {
			erased = op
		}
	}
	if erased != "erase|4" {
		t.Fatalf("erase op = %q", erased)
	}
}

func TestOffsetCounterResetsBetweenBlocks(t *testing.T) {
	r, term := newTestRenderer()
	defer r.Reset()

	r.Start("a", "A")
	r.Start("b", "B")
	r.End("a")
	r.End("b")

	r.Start("c", "C")
	if got := r.active["c"].lineOffset; got != 0 {
		t.Fatalf("next block should start at offset 0, got %d", got)
	}
	r.AddContent("c", "hi")
	ops := term.snapshot()
	if ops[len(ops)-1] != "update|1|● C: hi ... (1 tokens)" {
		t.Fatalf("second block update = %q", ops[len(ops)-1])
	}
	r.End("c")
}

func TestRowAddressingAfterEarlyEnd(t *testing.T) {
	r, term := newTestRenderer()
	defer r.Reset()

	r.Start("a", "A")
	r.Start("b", "B")
	r.Start("c", "C")
	r.End("a")

	// A's preview row stays on screen until the block drains, so B is
	// still 2 rows above the cursor and C still 1 — independent of how
	// many streams remain active.
	r.AddContent("b", "hi")
	r.AddContent("c", "yo")

	ops := term.snapshot()
	if ops[len(ops)-2] != "update|2|● B: hi ... (1 tokens)" {
		t.Fatalf("middle row update = %q", ops[len(ops)-2])
	}
	if ops[len(ops)-1] != "update|1|● C: yo ... (1 tokens)" {
		t.Fatalf("bottom row update = %q", ops[len(ops)-1])
	}

	r.End("b")
	r.End("c")
	rows := finalRows(term.snapshot())
	if len(rows) != 3 || rows[0] != "● A: [no response]" || rows[1] != "● B: hi" || rows[2] != "● C: yo" {
		t.Fatalf("final rows = %v", rows)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	r, term := newTestRenderer()
	defer r.Reset()

	r.Start("a", "A")
	r.AddContent("a", "partial")
	r.Start("a", "A")

	if r.ActiveCount() != 1 {
		t.Fatalf("second Start must not add an entry")
	}
	ops := term.snapshot()
	// Second Start only redraws the existing row, buffer intact.
	if ops[len(ops)-1] != "update|1|● A: partial ... (1 tokens)" {
		t.Fatalf("redraw after duplicate Start = %q", ops[len(ops)-1])
	}
	r.End("a")
	rows := finalRows(term.snapshot())
	if len(rows) != 1 || rows[0] != "● A: partial" {
		t.Fatalf("final rows = %v", rows)
	}
}

func TestMarkErrorRewritesRowAndFinalizesRed(t *testing.T) {
	on := true
	termColored := &fakeTerminal{}
	rc := NewRenderer(Options{Terminal: termColored, FlashInterval: time.Hour, Color: &on})
	defer rc.Reset()

	rc.Start("a", "A")
	rc.AddContent("a", "boom")
	rc.MarkError("a")

	var sawErrorRow bool
	for _, op := range termColored.snapshot() {
		if op == "update|1|\x1b[31m●\x1b[0m A: boom (error)" {
			sawErrorRow = true
		}
	}
	if !sawErrorRow {
		t.Fatalf("error row not drawn in place: %v", termColored.snapshot())
	}
	rows := finalRows(termColored.snapshot())
	if len(rows) != 1 || rows[0] != "\x1b[31m●\x1b[0m A: boom" {
		t.Fatalf("final rows = %v", rows)
	}
}

func TestMarkErrorTwiceIsNoOp(t *testing.T) {
	r, term := newTestRenderer()
	defer r.Reset()

	r.Start("a", "A")
	r.MarkError("a")
	before := term.count()
	r.MarkError("a")
	if term.count() != before {
		t.Fatalf("second MarkError wrote to the terminal")
	}
}

func TestErrorDoesNotAffectSiblingStreams(t *testing.T) {
	r, term := newTestRenderer()
	defer r.Reset()

	r.Start("a", "A")
	r.Start("b", "B")
	r.AddContent("b", "steady")
	r.MarkError("a")

	if r.ActiveCount() != 1 {
		t.Fatalf("sibling stream should still be active")
	}
	r.AddContent("b", " on")
	r.End("b")

	rows := finalRows(term.snapshot())
	if len(rows) != 2 {
		t.Fatalf("expected 2 final rows, got %v", rows)
	}
	if rows[0] != "● A: [no response]" {
		t.Fatalf("errored final = %q", rows[0])
	}
	if rows[1] != "● B: steady on" {
		t.Fatalf("sibling final = %q", rows[1])
	}
}

func TestFlashTickAlternatesGlyph(t *testing.T) {
	term := &fakeTerminal{}
	off := false
	r := NewRenderer(Options{Terminal: term, FlashInterval: time.Hour, Color: &off})
	defer r.Reset()

	r.Start("a", "A")
	r.flashTick("a")
	r.flashTick("a")

	ops := term.snapshot()
	if ops[len(ops)-2] != "update|1|○ A: ... (0 tokens)" {
		t.Fatalf("first tick = %q", ops[len(ops)-2])
	}
	if ops[len(ops)-1] != "update|1|● A: ... (0 tokens)" {
		t.Fatalf("second tick = %q", ops[len(ops)-1])
	}
}

func TestResetStopsTimers(t *testing.T) {
	term := &fakeTerminal{}
	off := false
	r := NewRenderer(Options{Terminal: term, FlashInterval: 5 * time.Millisecond, Color: &off})

	r.Start("a", "A")
	r.Reset()
	if r.ActiveCount() != 0 {
		t.Fatalf("reset did not clear active map")
	}
	before := term.count()
	time.Sleep(40 * time.Millisecond)
	if term.count() != before {
		t.Fatalf("flash timer still writing after Reset")
	}
}

func TestTokenCountMatchesFullBufferRecount(t *testing.T) {
	r, _ := newTestRenderer()
	defer r.Reset()

	r.Start("a", "A")
	chunks := []string{"Hel", "lo ", "world, how", " are you?"}
	for _, c := range chunks {
		r.AddContent("a", c)
	}
	e := r.active["a"]
	if e.tokenCount != 5 {
		t.Fatalf("token count = %d, want 5", e.tokenCount)
	}
	r.End("a")
}
