package display

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Terminal is the output surface the renderer draws on. The concrete ANSI
// implementation writes escape sequences to a real TTY; tests substitute a
// recording fake so redraw logic can be checked without a terminal.
type Terminal interface {
	// Print writes a full line at the cursor and advances to the next line.
	Print(text string)
	// UpdateRow rewrites the line rowsAbove rows above the cursor in place,
	// leaving the cursor where it was.
	UpdateRow(rowsAbove int, text string)
	// EraseBlock clears the given number of rows directly above the cursor
	// and leaves the cursor at the top of the cleared region, column 0.
	EraseBlock(rows int)
	// PrintRow clears the current line, writes text and advances one line.
	PrintRow(text string)
}

const (
	escSaveCursor    = "\x1b[s"
	escRestoreCursor = "\x1b[u"
	escClearLine     = "\x1b[2K"
	escColumnZero    = "\x1b[G"
)

func escCursorUp(n int) string {
	return fmt.Sprintf("\x1b[%dA", n)
}

func escCursorDown(n int) string {
	return fmt.Sprintf("\x1b[%dB", n)
}

// ANSITerminal implements Terminal with raw escape sequences on a writer,
// normally os.Stdout. Write errors are ignored: the renderer assumes a live
// terminal for its whole lifetime.
type ANSITerminal struct {
	out io.Writer
}

func NewANSITerminal(out io.Writer) *ANSITerminal {
	if out == nil {
		out = os.Stdout
	}
	return &ANSITerminal{out: out}
}

func (t *ANSITerminal) Print(text string) {
	if t == nil || t.out == nil {
		return
	}
	_, _ = io.WriteString(t.out, text+"\n")
}

func (t *ANSITerminal) UpdateRow(rowsAbove int, text string) {
	if t == nil || t.out == nil || rowsAbove <= 0 {
		return
	}
	var b strings.Builder
	b.WriteString(escSaveCursor)
	b.WriteString(escCursorUp(rowsAbove))
	b.WriteString(escColumnZero)
	b.WriteString(escClearLine)
	b.WriteString(text)
	b.WriteString(escRestoreCursor)
	_, _ = io.WriteString(t.out, b.String())
}

func (t *ANSITerminal) EraseBlock(rows int) {
	if t == nil || t.out == nil || rows <= 0 {
		return
	}
	var b strings.Builder
	b.WriteString(escCursorUp(rows))
	b.WriteString(escColumnZero)
	for i := 0; i < rows; i++ {
		b.WriteString(escClearLine)
		b.WriteString(escCursorDown(1))
	}
	b.WriteString(escCursorUp(rows))
	_, _ = io.WriteString(t.out, b.String())
}

func (t *ANSITerminal) PrintRow(text string) {
	if t == nil || t.out == nil {
		return
	}
	_, _ = io.WriteString(t.out, escClearLine+text+"\n")
}
