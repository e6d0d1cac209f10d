// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resultview

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/areasearch/lib/areasearch"
)

// DefaultPrintWidth is used when the output width is unknown.
const DefaultPrintWidth = 120

// Printer renders a result table once.
type Printer struct {
	out      io.Writer
	renderer *lipgloss.Renderer
	theme    Theme
	width    int
}

// NewPrinter returns a printer writing to out at width cells in the
// given color profile. Callers usually pass
// termenv.NewOutput(out).EnvColorProfile().
func NewPrinter(out io.Writer, width int, profile termenv.Profile) *Printer {
	if width <= 0 {
		width = DefaultPrintWidth
	}
	renderer := lipgloss.NewRenderer(out, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	return &Printer{
		out:      out,
		renderer: renderer,
		theme:    DefaultTheme,
		width:    width,
	}
}

// Print writes the column header, one line per entry, and the status
// line.
func (p *Printer) Print(entries []Entry, status areasearch.Status) error {
	l := newLayout(p.width)
	headerStyle := p.renderer.NewStyle().Bold(true).Foreground(p.theme.HeaderForeground)
	blockedStyle := p.renderer.NewStyle().Foreground(p.theme.Blocked).Strikethrough(true)
	faintStyle := p.renderer.NewStyle().Foreground(p.theme.FaintText)

	var b strings.Builder
	b.WriteString(headerStyle.Render(strings.TrimRight(join(l.header()), " ")))
	b.WriteByte('\n')
	for _, entry := range entries {
		cells := l.cells(entry)
		line := strings.TrimRight(join(cells), " ")
		if entry.Blocked {
			line = blockedStyle.Render(line)
		} else {
			iconStyle := p.renderer.NewStyle().Foreground(p.theme.IconColor(entry.Row.Icon))
			cells[1] = iconStyle.Render(cells[1])
			line = strings.TrimRight(join(cells), " ")
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(faintStyle.Render(status.String()))
	b.WriteByte('\n')

	if _, err := io.WriteString(p.out, b.String()); err != nil {
		return fmt.Errorf("resultview: writing table: %w", err)
	}
	return nil
}
