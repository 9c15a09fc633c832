package stream

import (
	"strings"
	"testing"
)

func TestCountTokens(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"hello", 1},
		{"hello world", 2},
		{"hello, world!", 2},
		{"a-b c;d (e) [f] {g}", 7},
		{"it's 'quoted' text", 4},
		{"one.two.three", 3},
	}
	for _, tc := range cases {
		if got := CountTokens(tc.in); got != tc.want {
			t.Fatalf("CountTokens(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestCountTokensRecomputesFromFullBuffer(t *testing.T) {
	chunks := []string{"Hel", "lo wor", "ld, how are", " you?"}
	var buf strings.Builder
	for _, c := range chunks {
		buf.WriteString(c)
	}
	// Counting the concatenation once must match counting after every
	// append; the estimate is a pure function of the buffer.
	want := CountTokens(buf.String())
	if want != 5 {
		t.Fatalf("unexpected token count %d for %q", want, buf.String())
	}
	partial := ""
	for _, c := range chunks {
		partial += c
		_ = CountTokens(partial)
	}
	if got := CountTokens(partial); got != want {
		t.Fatalf("incremental final count %d, want %d", got, want)
	}
}

func TestPreviewText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  hello  ", "hello"},
		{"line one\nline two", "line one line two"},
		{"a\n\n\tb   c", "a b c"},
	}
	for _, tc := range cases {
		if got := PreviewText(tc.in); got != tc.want {
			t.Fatalf("PreviewText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPreviewTextTruncatesAtFiftyRunes(t *testing.T) {
	long := strings.Repeat("x", 200)
	got := PreviewText(long)
	if len([]rune(got)) != 50 {
		t.Fatalf("expected 50 runes, got %d", len([]rune(got)))
	}
	if got != strings.Repeat("x", 50) {
		t.Fatalf("unexpected preview %q", got)
	}
}

func TestEventValidAndLabel(t *testing.T) {
	if (Event{Kind: KindChunk}).Valid() {
		t.Fatalf("event without agent id should be invalid")
	}
	if (Event{Kind: "bogus", AgentID: "a"}).Valid() {
		t.Fatalf("unknown kind should be invalid")
	}
	if !(Event{Kind: KindStart, AgentID: "a"}).Valid() {
		t.Fatalf("start event should be valid")
	}
	if got := (Event{AgentID: "alice"}).Label(); got != "alice" {
		t.Fatalf("label fallback = %q", got)
	}
	if got := (Event{AgentID: "alice", DisplayName: " Alice "}).Label(); got != "Alice" {
		t.Fatalf("label = %q", got)
	}
}
