// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package scopeui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/taskscope/taskscope/lib/state"
	"github.com/taskscope/taskscope/lib/stream"
)

// renderInterval is the period of the render tick. Each tick re-reads
// the latest snapshot and re-resolves the view; between ticks the
// last frame is simply redrawn.
const renderInterval = 100 * time.Millisecond

// SnapshotSource provides the latest aggregated snapshot.
// state.Aggregator implements it.
type SnapshotSource interface {
	Latest() *state.Snapshot
}

// Connection reports the telemetry stream's phase for the status bar.
// stream.Client implements it.
type Connection interface {
	Phase() string
	Target() string
}

// tickMsg drives the periodic re-render.
type tickMsg struct{}

// Model is the top-level bubbletea model. It owns the navigation
// [View] and re-resolves it against the newest snapshot on every
// tick; the render never blocks on the network, and keyboard events
// re-resolve immediately so navigation feels instant.
type Model struct {
	source     SnapshotSource
	connection Connection
	theme      Theme
	keys       KeyMap

	view     *View
	snapshot *state.Snapshot
	frame    *Frame

	width  int
	height int
	ready  bool

	// paused freezes the display on the current snapshot; the
	// aggregator keeps ingesting in the background.
	paused bool

	logNotice string
	logLevel  slog.Level
}

// NewModel creates the TUI model reading from source and reporting
// connection status from connection.
func NewModel(source SnapshotSource, connection Connection, theme Theme) Model {
	view := NewView()
	snapshot := source.Latest()
	keys := DefaultKeyMap
	if theme.ASCII {
		keys = ASCIIKeyMap()
	}
	return Model{
		source:     source,
		connection: connection,
		theme:      theme,
		keys:       keys,
		view:       view,
		snapshot:   snapshot,
		frame:      view.Resolve(snapshot),
	}
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return scheduleTick()
}

func scheduleTick() tea.Cmd {
	return tea.Tick(renderInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		return model.handleKey(message)

	case tickMsg:
		if !model.paused {
			model.snapshot = model.source.Latest()
		}
		model.frame = model.view.Resolve(model.snapshot)
		return model, scheduleTick()

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true

	case logRecordMsg:
		model.logNotice = message.Summary
		model.logLevel = message.Level
		return model, tea.Tick(logRecordFadeDelay, func(time.Time) tea.Msg {
			return logRecordFadeMsg{}
		})

	case logRecordFadeMsg:
		model.logNotice = ""
	}
	return model, nil
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.Up):
		model.view.MoveSelection(-1)
	case key.Matches(message, model.keys.Down):
		model.view.MoveSelection(1)
	case key.Matches(message, model.keys.PageUp):
		model.view.MoveSelection(-model.pageRows())
	case key.Matches(message, model.keys.PageDown):
		model.view.MoveSelection(model.pageRows())
	case key.Matches(message, model.keys.Home):
		model.view.SelectFirst()
	case key.Matches(message, model.keys.End):
		model.view.SelectLast()

	case key.Matches(message, model.keys.SortLeft):
		model.view.PreviousSortColumn()
	case key.Matches(message, model.keys.SortRight):
		model.view.NextSortColumn()
	case key.Matches(message, model.keys.SortFlip):
		model.view.InvertSort()

	case key.Matches(message, model.keys.ShowTasks):
		model.view.ShowTasks()
	case key.Matches(message, model.keys.ShowResources):
		model.view.ShowResources()
	case key.Matches(message, model.keys.Activate):
		model.view.Activate(model.snapshot)
	case key.Matches(message, model.keys.Back):
		model.view.Back()

	case key.Matches(message, model.keys.Pause):
		model.paused = !model.paused
	}

	// Re-resolve right away so the keystroke's effect is visible on
	// this frame, not the next tick.
	model.frame = model.view.Resolve(model.snapshot)
	return model, nil
}

// pageRows is the number of rows a page up/down skips.
func (model Model) pageRows() int {
	rows := model.bodyHeight() - 1
	if rows < 1 {
		return 1
	}
	return rows
}

// bodyHeight is the space available for the table or detail text:
// total height minus the title line and the status bar.
func (model Model) bodyHeight() int {
	return max(model.height-2, 1)
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "starting..."
	}

	frame := model.frame
	var body string
	switch frame.Screen {
	case ScreenTaskList:
		body = NewListRenderer(model.theme, model.width, model.bodyHeight()).RenderTasks(frame)
	case ScreenResourceList:
		body = NewListRenderer(model.theme, model.width, model.bodyHeight()).RenderResources(frame)
	case ScreenTaskDetail:
		body = NewDetailRenderer(model.theme, model.width).RenderTask(frame)
	case ScreenResourceDetail:
		body = NewDetailRenderer(model.theme, model.width).RenderResource(frame)
	}

	// Pad the body so the status bar sits on the bottom line.
	bodyLines := strings.Count(body, "\n") + 1
	if padding := model.bodyHeight() - bodyLines; padding > 0 {
		body += strings.Repeat("\n", padding)
	}

	return model.titleLine() + "\n" + body + "\n" + model.statusLine()
}

func (model Model) titleLine() string {
	name := "tasks"
	switch model.frame.Screen {
	case ScreenResourceList:
		name = "resources"
	case ScreenTaskDetail:
		name = "task"
	case ScreenResourceDetail:
		name = "resource"
	}
	title := model.theme.Header.Render("taskscope") + " " + model.theme.Faint.Render(name)
	if model.paused {
		title += " " + model.theme.Warning.Render("[paused]")
	}
	return title
}

// statusLine renders the bottom bar: connection phase, entity counts,
// then either the latest diagnostic notice or the key help.
func (model Model) statusLine() string {
	phase := model.connection.Phase()
	phaseStyle := model.theme.Warning
	if phase == stream.PhaseConnected {
		phaseStyle = model.theme.StateRunning
	}

	stats := model.snapshot.Stats
	left := fmt.Sprintf("%s %s  tasks %d  resources %d",
		phaseStyle.Render(phase),
		model.theme.Faint.Render(model.connection.Target()),
		stats.TasksLive+stats.TasksCompleted,
		stats.ResourcesLive+stats.ResourcesDropped,
	)

	right := model.helpLine()
	if model.logNotice != "" {
		noticeStyle := model.theme.StatusBar
		if model.logLevel >= slog.LevelError {
			noticeStyle = model.theme.Warning
		}
		right = noticeStyle.Render(model.logNotice)
	}
	return left + "  " + right
}

func (model Model) helpLine() string {
	bindings := []key.Binding{
		model.keys.Up, model.keys.Down, model.keys.Activate, model.keys.Back,
		model.keys.ShowTasks, model.keys.ShowResources,
		model.keys.SortLeft, model.keys.SortFlip, model.keys.Pause, model.keys.Quit,
	}
	separator := " · "
	if model.theme.ASCII {
		separator = "  "
	}
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return model.theme.HelpText.Render(strings.Join(parts, separator))
}
