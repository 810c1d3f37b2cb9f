// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package scopeui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/taskscope/taskscope/lib/duration"
	"github.com/taskscope/taskscope/lib/state"
)

// column describes one table column: its header label and fixed width.
// A width of 0 means the column absorbs the remaining line width.
type column struct {
	title string
	width int
}

var taskColumns = [taskColumnCount]column{
	TaskColumnID:     {"TID", 6},
	TaskColumnState:  {"STATE", 10},
	TaskColumnName:   {"NAME", 18},
	TaskColumnTotal:  {"TOTAL", 9},
	TaskColumnBusy:   {"BUSY", 9},
	TaskColumnIdle:   {"IDLE", 9},
	TaskColumnPolls:  {"POLLS", 7},
	TaskColumnTarget: {"TARGET", 0},
}

var resourceColumns = [resourceColumnCount]column{
	ResourceColumnID:     {"RID", 6},
	ResourceColumnKind:   {"KIND", 10},
	ResourceColumnType:   {"TYPE", 22},
	ResourceColumnAge:    {"AGE", 9},
	ResourceColumnTarget: {"TARGET", 0},
}

// ListRenderer draws the task and resource tables within a fixed
// width and height. The selected row is always kept inside the
// visible window.
type ListRenderer struct {
	theme  Theme
	width  int
	height int
}

// NewListRenderer creates a ListRenderer for the given viewport.
func NewListRenderer(theme Theme, width, height int) ListRenderer {
	return ListRenderer{theme: theme, width: width, height: height}
}

// RenderTasks draws the task table for a ScreenTaskList frame.
func (renderer ListRenderer) RenderTasks(frame *Frame) string {
	lines := []string{renderer.headerLine(taskColumns[:], frame)}
	first, last := renderer.window(len(frame.Tasks), frame.Selected)
	for index := first; index < last; index++ {
		lines = append(lines, renderer.taskRow(frame, frame.Tasks[index], index == frame.Selected))
	}
	if len(frame.Tasks) == 0 {
		lines = append(lines, renderer.theme.Faint.Render("  no tasks"))
	}
	return strings.Join(lines, "\n")
}

// RenderResources draws the resource table for a ScreenResourceList
// frame.
func (renderer ListRenderer) RenderResources(frame *Frame) string {
	lines := []string{renderer.headerLine(resourceColumns[:], frame)}
	first, last := renderer.window(len(frame.Resources), frame.Selected)
	for index := first; index < last; index++ {
		lines = append(lines, renderer.resourceRow(frame, frame.Resources[index], index == frame.Selected))
	}
	if len(frame.Resources) == 0 {
		lines = append(lines, renderer.theme.Faint.Render("  no resources"))
	}
	return strings.Join(lines, "\n")
}

// window returns the half-open row range to draw so that selected is
// visible within the available height (minus the header line).
func (renderer ListRenderer) window(rows, selected int) (int, int) {
	visible := renderer.height - 1
	if visible < 1 {
		visible = 1
	}
	if rows <= visible {
		return 0, rows
	}
	first := selected - visible + 1
	if first < 0 {
		first = 0
	}
	if selected < first {
		first = selected
	}
	return first, min(first+visible, rows)
}

// selectionWidth is the gutter reserved for the selection marker.
const selectionWidth = 2

func (renderer ListRenderer) headerLine(columns []column, frame *Frame) string {
	var builder strings.Builder
	builder.WriteString(strings.Repeat(" ", selectionWidth))
	for index, header := range columns {
		title := header.title
		style := renderer.theme.Header
		if index == frame.SortColumn {
			glyph := renderer.theme.Glyphs.SortAsc
			if frame.SortDescending {
				glyph = renderer.theme.Glyphs.SortDesc
			}
			title += glyph
			style = renderer.theme.SortedBy
		}
		builder.WriteString(style.Render(renderer.cell(title, header.width)))
		builder.WriteString(" ")
	}
	return builder.String()
}

func (renderer ListRenderer) taskRow(frame *Frame, task state.Task, selected bool) string {
	ascii := renderer.theme.ASCII
	cells := [taskColumnCount]string{
		TaskColumnID:     strconv.FormatUint(uint64(task.ID), 10),
		TaskColumnState:  task.State,
		TaskColumnName:   task.Name,
		TaskColumnTotal:  duration.Format(task.Total(frame.Now), ascii),
		TaskColumnBusy:   duration.Format(task.Busy, ascii),
		TaskColumnIdle:   duration.Format(task.Idle(frame.Now), ascii),
		TaskColumnPolls:  strconv.FormatUint(task.Polls, 10),
		TaskColumnTarget: task.Location.String(),
	}
	styles := [taskColumnCount]func(...string) string{
		TaskColumnState: renderer.theme.StateStyle(task.State).Render,
		TaskColumnTotal: renderer.theme.Duration.Render,
		TaskColumnBusy:  renderer.theme.Duration.Render,
		TaskColumnIdle:  renderer.theme.Duration.Render,
	}
	marker := ""
	if task.SelfWakeHeavy() {
		marker = renderer.theme.Warning.Render(renderer.theme.Glyphs.Warning)
	}
	return renderer.row(taskColumns[:], cells[:], styles[:], selected, marker)
}

func (renderer ListRenderer) resourceRow(frame *Frame, resource state.Resource, selected bool) string {
	cells := [resourceColumnCount]string{
		ResourceColumnID:     strconv.FormatUint(uint64(resource.ID), 10),
		ResourceColumnKind:   resource.Kind,
		ResourceColumnType:   resource.ConcreteType,
		ResourceColumnAge:    duration.Format(frame.Now.Sub(resource.FirstSeen), renderer.theme.ASCII),
		ResourceColumnTarget: resource.Location.String(),
	}
	styles := [resourceColumnCount]func(...string) string{
		ResourceColumnAge: renderer.theme.Duration.Render,
	}
	return renderer.row(resourceColumns[:], cells[:], styles[:], selected, "")
}

// row assembles one table line. The selected row gets the selection
// glyph and its style applied to the whole line; unselected rows
// apply the per-column styles.
func (renderer ListRenderer) row(columns []column, cells []string, styles []func(...string) string, selected bool, marker string) string {
	var builder strings.Builder
	if selected {
		builder.WriteString(renderer.theme.Glyphs.Selection)
	} else {
		builder.WriteString(strings.Repeat(" ", selectionWidth))
	}
	for index, header := range columns {
		text := renderer.cell(cells[index], header.width)
		if !selected && styles[index] != nil {
			text = styles[index](text)
		}
		builder.WriteString(text)
		builder.WriteString(" ")
	}
	line := builder.String()
	if marker != "" {
		line += marker
	}
	if selected {
		return renderer.theme.Selected.Render(line)
	}
	return line
}

// cell pads or truncates text to the column width. Zero-width columns
// (the trailing TARGET column) pass through and take the rest of the
// line.
func (renderer ListRenderer) cell(text string, width int) string {
	if width == 0 {
		return text
	}
	if ansi.StringWidth(text) > width {
		return ansi.Truncate(text, width-1, renderer.theme.Glyphs.Ellipsis)
	}
	return text + strings.Repeat(" ", width-ansi.StringWidth(text))
}
