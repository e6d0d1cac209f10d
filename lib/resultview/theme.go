// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resultview

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the result views. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// Accent marks the scrollbar thumb and the active filter field.
	Accent lipgloss.Color
	// Blocked colors rows whose object is on the block list.
	Blocked lipgloss.Color
	// ErrorText colors failed actions in the message line.
	ErrorText lipgloss.Color

	// Per-kind icon colors.
	IconPhysical   lipgloss.Color
	IconTemporary  lipgloss.Color
	IconAttachment lipgloss.Color
	IconObject     lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	Accent:    lipgloss.Color("220"), // amber
	Blocked:   lipgloss.Color("240"),
	ErrorText: lipgloss.Color("196"),

	IconPhysical:   lipgloss.Color("114"), // green
	IconTemporary:  lipgloss.Color("208"), // orange
	IconAttachment: lipgloss.Color("141"), // light purple
	IconObject:     lipgloss.Color("75"),  // blue
}

// IconColor returns the color for an icon name from the engine.
func (theme Theme) IconColor(icon string) lipgloss.Color {
	switch icon {
	case "physical":
		return theme.IconPhysical
	case "temporary":
		return theme.IconTemporary
	case "attachment":
		return theme.IconAttachment
	}
	return theme.IconObject
}
