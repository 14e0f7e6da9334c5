package progress

import (
	"fmt"
	"io"
	"strings"

	"github.com/Sternrassler/aiod-client/pkg/fetch"
	"github.com/fatih/color"
)

// DefaultBarWidth is the number of cells of a Bar.
const DefaultBarWidth = 30

// Bar draws a single-line terminal progress bar.
type Bar struct {
	Counter

	w     io.Writer
	width int
	label string

	ok   *color.Color
	fail *color.Color
	dim  *color.Color
}

// NewBar creates a bar writing to w. label prefixes the line (e.g. the resource type).
func NewBar(w io.Writer, label string) *Bar {
	return &Bar{
		w:     w,
		width: DefaultBarWidth,
		label: label,
		ok:    color.New(color.FgGreen),
		fail:  color.New(color.FgRed),
		dim:   color.New(color.Faint),
	}
}

// WithoutColor disables ANSI colors.
func (b *Bar) WithoutColor() *Bar {
	b.ok.DisableColor()
	b.fail.DisableColor()
	b.dim.DisableColor()
	return b
}

// OnStart implements Reporter.
func (b *Bar) OnStart(total int) {
	b.Counter = Counter{Total: total}
	b.draw()
}

// OnItemComplete implements Reporter.
func (b *Bar) OnItemComplete(_ int, status fetch.Status) {
	b.record(status)
	b.draw()
}

// OnFinish implements Reporter.
func (b *Bar) OnFinish() {
	b.draw()
	fmt.Fprintln(b.w)
}

func (b *Bar) draw() {
	var line strings.Builder
	line.WriteString("\r")
	if b.label != "" {
		line.WriteString(b.label)
		line.WriteString(" ")
	}

	if b.Total == TotalUnknown || b.Total == 0 {
		// Pages keep coming until the listing ends; show a counter only.
		b.ok.Fprintf(&line, "%d", b.Done())
		fmt.Fprintf(&line, " requests")
	} else {
		filled := b.Done() * b.width / b.Total
		if filled > b.width {
			filled = b.width
		}
		line.WriteString("[")
		b.ok.Fprint(&line, strings.Repeat("=", filled))
		b.dim.Fprint(&line, strings.Repeat("-", b.width-filled))
		fmt.Fprintf(&line, "] %d/%d", b.Done(), b.Total)
	}

	if b.Failed > 0 {
		line.WriteString(" ")
		b.fail.Fprintf(&line, "(%d failed)", b.Failed)
	}
	io.WriteString(b.w, line.String())
}
