// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress renders extraction progress from the running counters the
// engine reports after each entry.
package progress

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/pdiddy/asset-extract/internal/logging"
	"github.com/pdiddy/asset-extract/pkg/types"
)

// DefaultEvery is how often a line is printed when the output is not a terminal.
const DefaultEvery = 500

// Printer is an extraction observer. On a terminal it redraws a single
// status line; otherwise it appends a line every Every entries and on the
// last one.
type Printer struct {
	w     io.Writer
	tty   bool
	every int

	bytes int64
	width int // length of the status line currently drawn, 0 if none
}

// New returns a Printer writing to w. On a terminal it redraws one line;
// otherwise it appends a line every n entries (DefaultEvery when n <= 0).
func New(w io.Writer, n int) *Printer {
	if n <= 0 {
		n = DefaultEvery
	}
	return &Printer{w: w, tty: logging.IsTerminal(w), every: n}
}

// EntryDone records r and prints the counters.
func (p *Printer) EntryDone(r types.Result, c types.Counts) {
	if !r.Outcome.Failed() {
		p.bytes += r.Entry.Size
	}
	line := Line(c, p.bytes)

	if p.tty {
		pad := ""
		if n := p.width - len(line); n > 0 {
			pad = strings.Repeat(" ", n)
		}
		fmt.Fprintf(p.w, "\r%s%s", line, pad)
		p.width = len(line)
		return
	}
	if c.Done()%p.every == 0 || c.Done() == c.Total {
		fmt.Fprintln(p.w, line)
	}
}

// Finish ends the status line so later output starts on a fresh line.
func (p *Printer) Finish() {
	if p.tty && p.width > 0 {
		fmt.Fprintln(p.w)
		p.width = 0
	}
}

// Writer wraps w so that anything written through it first erases the status
// line. The next entry redraws it. Use it as the log destination while a
// Printer is active on the same terminal.
func (p *Printer) Writer(w io.Writer) io.Writer {
	return clearingWriter{p: p, w: w}
}

type clearingWriter struct {
	p *Printer
	w io.Writer
}

func (c clearingWriter) Write(b []byte) (int, error) {
	if c.p.tty && c.p.width > 0 {
		fmt.Fprintf(c.p.w, "\r%s\r", strings.Repeat(" ", c.p.width))
		c.p.width = 0
	}
	return c.w.Write(b)
}

// Line formats the counters, e.g. "extracting 120/4000 success=119 fail=1 (1.2 MB)".
func Line(c types.Counts, bytes int64) string {
	return fmt.Sprintf("extracting %d/%d success=%d fail=%d (%s)",
		c.Done(), c.Total, c.Success, c.Failed, humanize.Bytes(uint64(bytes)))
}
