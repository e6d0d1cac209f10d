// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resultview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/bureau-foundation/areasearch/lib/areasearch"
)

// Controller carries the view's actions to the search. Track,
// ToggleBlock and Export may block; the model calls them from
// commands, never from Update.
type Controller interface {
	Filters() areasearch.Filters
	SetFilters(areasearch.Filters)
	Refresh()
	Track(id uuid.UUID) (areasearch.Target, error)
	ToggleBlock(id uuid.UUID, name string) (bool, error)
	// Export writes the current results and returns the path written.
	Export() (string, error)
}

// filterField is one of the four text filters.
type filterField int

const (
	fieldName filterField = iota
	fieldDescription
	fieldOwner
	fieldGroup
	fieldCount
)

func (f filterField) label() string {
	switch f {
	case fieldName:
		return "name"
	case fieldDescription:
		return "desc"
	case fieldOwner:
		return "owner"
	case fieldGroup:
		return "group"
	}
	return "?"
}

func (f filterField) pointer(filters *areasearch.Filters) *string {
	switch f {
	case fieldDescription:
		return &filters.Description
	case fieldOwner:
		return &filters.Owner
	case fieldGroup:
		return &filters.Group
	}
	return &filters.Name
}

// tableChangedMsg is delivered when the table signals a change.
type tableChangedMsg struct{}

// actionResultMsg reports the outcome of a controller action.
type actionResultMsg struct {
	text string
	err  error
}

// messageFadeMsg clears the message line if no newer message replaced
// it.
type messageFadeMsg struct {
	sequence int
}

// messageFadeDelay is how long action results stay in the footer.
const messageFadeDelay = 5 * time.Second

// chromeLines is the number of lines around the row viewport: the
// filter line and column header above, the status and help lines
// below.
const chromeLines = 4

// Model is the bubbletea model for the interactive result list.
type Model struct {
	table      *Table
	controller Controller
	keys       KeyMap
	theme      Theme

	viewport viewport.Model
	entries  []Entry
	status   areasearch.Status
	cursor   int
	selected uuid.UUID

	filters areasearch.Filters
	editing bool
	field   filterField

	message         string
	messageIsError  bool
	messageSequence int

	width  int
	height int
}

// NewModel returns a model reading table and acting through
// controller.
func NewModel(table *Table, controller Controller) Model {
	model := Model{
		table:      table,
		controller: controller,
		keys:       DefaultKeyMap,
		theme:      DefaultTheme,
		viewport:   viewport.New(0, 0),
		filters:    controller.Filters(),
	}
	model.reload()
	return model
}

// Init implements tea.Model. Starts listening for table changes.
func (model Model) Init() tea.Cmd {
	return waitForChange(model.table.Changed())
}

// waitForChange returns a tea.Cmd that blocks until the table changes.
func waitForChange(changed <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-changed
		return tableChangedMsg{}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.viewport.Width = max(model.width-1, 0)
		model.viewport.Height = max(model.height-chromeLines, 0)
		model.render()
		return model, nil

	case tableChangedMsg:
		model.reload()
		return model, waitForChange(model.table.Changed())

	case actionResultMsg:
		// Block toggles change row markers without touching the table.
		model.reload()
		return model, model.setMessage(message.text, message.err)

	case messageFadeMsg:
		if message.sequence == model.messageSequence {
			model.message = ""
			model.messageIsError = false
		}
		return model, nil

	case tea.KeyMsg:
		if model.editing {
			return model.handleFilterKeys(message)
		}
		return model.handleKeys(message)
	}
	return model, nil
}

func (model Model) handleKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.Up):
		model.moveCursor(-1)
	case key.Matches(message, model.keys.Down):
		model.moveCursor(1)
	case key.Matches(message, model.keys.PageUp):
		model.moveCursor(-max(model.viewport.Height, 1))
	case key.Matches(message, model.keys.PageDown):
		model.moveCursor(max(model.viewport.Height, 1))
	case key.Matches(message, model.keys.Home):
		model.moveCursor(-len(model.entries))
	case key.Matches(message, model.keys.End):
		model.moveCursor(len(model.entries))

	case key.Matches(message, model.keys.FilterActivate):
		model.editing = true
		model.field = fieldName

	case key.Matches(message, model.keys.TogglePhysical):
		model.filters.Types.Physical = !model.filters.Types.Physical
		model.applyFilters()
	case key.Matches(message, model.keys.ToggleTemporary):
		model.filters.Types.Temporary = !model.filters.Types.Temporary
		model.applyFilters()
	case key.Matches(message, model.keys.ToggleAttachment):
		model.filters.Types.Attachment = !model.filters.Types.Attachment
		model.applyFilters()
	case key.Matches(message, model.keys.ToggleOther):
		model.filters.Types.Other = !model.filters.Types.Other
		model.applyFilters()

	case key.Matches(message, model.keys.Refresh):
		model.controller.Refresh()
		return model, model.setMessage("Refreshing", nil)

	case key.Matches(message, model.keys.Track):
		entry, ok := model.selectedEntry()
		if !ok {
			return model, nil
		}
		controller := model.controller
		return model, func() tea.Msg {
			target, err := controller.Track(entry.ID)
			if err != nil {
				return actionResultMsg{err: fmt.Errorf("tracking %s: %w", entry.Row.Name, err)}
			}
			return actionResultMsg{text: fmt.Sprintf("Tracking %s at %s in %s", target.Name, target.Position, target.Region)}
		}

	case key.Matches(message, model.keys.Block):
		entry, ok := model.selectedEntry()
		if !ok {
			return model, nil
		}
		controller := model.controller
		return model, func() tea.Msg {
			blocked, err := controller.ToggleBlock(entry.ID, entry.Row.Name)
			if err != nil {
				return actionResultMsg{err: fmt.Errorf("blocking %s: %w", entry.Row.Name, err)}
			}
			if blocked {
				return actionResultMsg{text: "Blocked " + entry.Row.Name}
			}
			return actionResultMsg{text: "Unblocked " + entry.Row.Name}
		}

	case key.Matches(message, model.keys.Export):
		controller := model.controller
		return model, func() tea.Msg {
			path, err := controller.Export()
			if err != nil {
				return actionResultMsg{err: err}
			}
			return actionResultMsg{text: "Exported to " + path}
		}
	}
	return model, nil
}

// handleFilterKeys processes keystrokes while a text filter has focus.
// Regular characters go to the field and apply immediately; Esc clears
// the field, or leaves edit mode when it is already empty.
func (model Model) handleFilterKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	text := model.field.pointer(&model.filters)

	switch {
	case message.Type == tea.KeyCtrlC:
		return model, tea.Quit

	case key.Matches(message, model.keys.FilterClear):
		if *text != "" {
			*text = ""
			model.applyFilters()
		} else {
			model.editing = false
		}

	case key.Matches(message, model.keys.FilterNext):
		model.field = (model.field + 1) % fieldCount

	case message.Type == tea.KeyEnter:
		model.editing = false

	case message.Type == tea.KeyBackspace:
		if runes := []rune(*text); len(runes) > 0 {
			*text = string(runes[:len(runes)-1])
			model.applyFilters()
		}

	case message.Type == tea.KeyRunes || message.Type == tea.KeySpace:
		if message.Type == tea.KeySpace {
			*text += " "
		} else {
			*text += string(message.Runes)
		}
		model.applyFilters()
	}
	return model, nil
}

func (model *Model) applyFilters() {
	model.controller.SetFilters(model.filters)
}

func (model *Model) setMessage(text string, err error) tea.Cmd {
	model.messageSequence++
	model.message = text
	model.messageIsError = err != nil
	if err != nil {
		model.message = err.Error()
	}
	sequence := model.messageSequence
	return tea.Tick(messageFadeDelay, func(time.Time) tea.Msg {
		return messageFadeMsg{sequence: sequence}
	})
}

// reload copies the table and keeps the cursor on the selected object
// when it is still listed.
func (model *Model) reload() {
	model.entries = model.table.Entries()
	model.status = model.table.Status()

	model.cursor = min(model.cursor, max(len(model.entries)-1, 0))
	for index, entry := range model.entries {
		if entry.ID == model.selected {
			model.cursor = index
			break
		}
	}
	if len(model.entries) > 0 {
		model.selected = model.entries[model.cursor].ID
	} else {
		model.selected = uuid.Nil
	}
	model.render()
}

func (model *Model) moveCursor(delta int) {
	if len(model.entries) == 0 {
		return
	}
	model.cursor = min(max(model.cursor+delta, 0), len(model.entries)-1)
	model.selected = model.entries[model.cursor].ID
	model.render()
}

func (model Model) selectedEntry() (Entry, bool) {
	if model.cursor < 0 || model.cursor >= len(model.entries) {
		return Entry{}, false
	}
	return model.entries[model.cursor], true
}

// render rebuilds the viewport content and scrolls the cursor into view.
func (model *Model) render() {
	if model.viewport.Width <= 0 {
		return
	}
	l := newLayout(model.viewport.Width)
	lines := make([]string, len(model.entries))
	for index, entry := range model.entries {
		lines[index] = model.renderRow(l, entry, index == model.cursor)
	}
	model.viewport.SetContent(strings.Join(lines, "\n"))

	switch {
	case model.cursor < model.viewport.YOffset:
		model.viewport.SetYOffset(model.cursor)
	case model.cursor >= model.viewport.YOffset+model.viewport.Height:
		model.viewport.SetYOffset(model.cursor - model.viewport.Height + 1)
	}
}

func (model Model) renderRow(l layout, entry Entry, selected bool) string {
	cells := l.cells(entry)
	switch {
	case selected:
		return lipgloss.NewStyle().
			Background(model.theme.SelectedBackground).
			Foreground(model.theme.SelectedForeground).
			Width(model.viewport.Width).
			MaxWidth(model.viewport.Width).
			Render(join(cells))
	case entry.Blocked:
		return lipgloss.NewStyle().
			Foreground(model.theme.Blocked).
			Strikethrough(true).
			Render(join(cells))
	}
	cells[1] = lipgloss.NewStyle().Foreground(model.theme.IconColor(entry.Row.Icon)).Render(cells[1])
	return lipgloss.NewStyle().Foreground(model.theme.NormalText).Render(join(cells))
}

// View implements tea.Model.
func (model Model) View() string {
	if model.width <= 0 || model.height <= 0 {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground)
	l := newLayout(model.viewport.Width)

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(model.viewport.Width).Height(model.viewport.Height).Render(model.viewport.View()),
		renderScrollbar(model.theme, model.viewport.Height, len(model.entries), model.viewport.YOffset),
	)

	sections := []string{
		model.renderFilterLine(),
		headerStyle.Render(join(l.header())),
	}
	if model.viewport.Height > 0 {
		sections = append(sections, body)
	}
	sections = append(sections, model.renderStatusLine(), model.renderFooter())
	return strings.Join(sections, "\n")
}

func (model Model) renderFilterLine() string {
	labelStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	activeStyle := lipgloss.NewStyle().Foreground(model.theme.Accent).Bold(true)
	cursorStyle := lipgloss.NewStyle().Reverse(true)

	parts := make([]string, 0, fieldCount)
	for field := fieldName; field < fieldCount; field++ {
		filters := model.filters
		value := *field.pointer(&filters)
		if model.editing && field == model.field {
			parts = append(parts, activeStyle.Render(field.label()+":")+value+cursorStyle.Render(" "))
			continue
		}
		parts = append(parts, labelStyle.Render(field.label()+":")+fmt.Sprintf("%q", value))
	}
	line := strings.Join(parts, "  ")
	return lipgloss.NewStyle().MaxWidth(model.width).Render(line)
}

func (model Model) renderStatusLine() string {
	types := model.filters.Types
	toggle := func(on bool, label string) string {
		if on {
			return "[x]" + label
		}
		return "[ ]" + label
	}
	line := model.status.String() + "   " + strings.Join([]string{
		toggle(types.Physical, "physical"),
		toggle(types.Temporary, "temporary"),
		toggle(types.Attachment, "attachment"),
		toggle(types.Other, "other"),
	}, " ")
	return lipgloss.NewStyle().Foreground(model.theme.NormalText).MaxWidth(model.width).Render(line)
}

func (model Model) renderFooter() string {
	if model.message != "" {
		color := model.theme.NormalText
		if model.messageIsError {
			color = model.theme.ErrorText
		}
		return lipgloss.NewStyle().Foreground(color).MaxWidth(model.width).Render(model.message)
	}

	bindings := model.keys.helpBindings()
	if model.editing {
		bindings = []key.Binding{model.keys.FilterNext, model.keys.FilterClear}
	}
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return lipgloss.NewStyle().Foreground(model.theme.HelpText).MaxWidth(model.width).Render(strings.Join(parts, "  "))
}
