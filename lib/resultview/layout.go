// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resultview

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

const (
	iconWidth   = 10
	markerWidth = 2
	columnGap   = 1

	// minimumWidth keeps every column at least a few cells wide.
	minimumWidth = 40

	blockedMarker = "⊘"
	ellipsis      = "…"
)

// layout holds the cell widths for one render width.
type layout struct {
	icon, name, description, owner, group int
}

// newLayout splits width between the columns. The name and description
// share most of the space; owner and group split the rest.
func newLayout(width int) layout {
	if width < minimumWidth {
		width = minimumWidth
	}
	remaining := width - markerWidth - iconWidth - 4*columnGap
	l := layout{icon: iconWidth}
	l.name = remaining * 3 / 10
	l.description = remaining * 3 / 10
	l.owner = remaining * 2 / 10
	l.group = remaining - l.name - l.description - l.owner
	return l
}

// cell truncates text to width display cells and pads the remainder.
func cell(text string, width int) string {
	if width <= 0 {
		return ""
	}
	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		return r
	}, text)
	text = ansi.Truncate(text, width, ellipsis)
	if pad := width - ansi.StringWidth(text); pad > 0 {
		text += strings.Repeat(" ", pad)
	}
	return text
}

// cells returns the formatted columns of entry, marker first.
func (l layout) cells(entry Entry) []string {
	marker := " "
	if entry.Blocked {
		marker = blockedMarker
	}
	return []string{
		cell(marker, markerWidth),
		cell(entry.Row.Icon, l.icon),
		cell(entry.Row.Name, l.name),
		cell(entry.Row.Description, l.description),
		cell(entry.Row.Owner, l.owner),
		cell(entry.Row.Group, l.group),
	}
}

// header returns the column titles in the same shape as cells.
func (l layout) header() []string {
	return []string{
		cell("", markerWidth),
		cell("Type", l.icon),
		cell("Name", l.name),
		cell("Description", l.description),
		cell("Owner", l.owner),
		cell("Group", l.group),
	}
}

// join lays cells out on one line. The marker column carries no gap.
func join(cells []string) string {
	return cells[0] + strings.Join(cells[1:], strings.Repeat(" ", columnGap))
}
