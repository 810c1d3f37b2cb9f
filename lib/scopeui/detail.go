// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package scopeui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/taskscope/taskscope/lib/duration"
	"github.com/taskscope/taskscope/lib/wire"
)

// DetailRenderer draws the single-entity screens: one task with the
// operations it has pending, or one resource with the tasks waiting
// on it.
type DetailRenderer struct {
	theme Theme
	width int
}

// NewDetailRenderer creates a DetailRenderer for the given width.
func NewDetailRenderer(theme Theme, width int) DetailRenderer {
	return DetailRenderer{theme: theme, width: width}
}

// RenderTask draws a ScreenTaskDetail frame.
func (renderer DetailRenderer) RenderTask(frame *Frame) string {
	task := frame.Task
	ascii := renderer.theme.ASCII

	var lines []string
	title := fmt.Sprintf("Task %d", task.ID)
	if task.Name != "" {
		title += " " + task.Name
	}
	lines = append(lines, renderer.theme.Header.Render(title))
	lines = append(lines, renderer.field("kind", task.Kind))
	lines = append(lines, renderer.field("target", task.Location.String()))
	lines = append(lines,
		renderer.field("state", renderer.theme.StateStyle(task.State).Render(task.State)))
	lines = append(lines, "")

	lines = append(lines,
		renderer.field("total", duration.Format(task.Total(frame.Now), ascii)),
		renderer.field("busy", duration.Format(task.Busy, ascii)),
		renderer.field("scheduled", duration.Format(task.Scheduled, ascii)),
		renderer.field("idle", duration.Format(task.Idle(frame.Now), ascii)),
		renderer.field("polls", strconv.FormatUint(task.Polls, 10)),
		renderer.field("wakes", fmt.Sprintf("%d (%d self)", task.Wakes, task.SelfWakes)),
	)

	if task.SelfWakeHeavy() {
		lines = append(lines, "", renderer.theme.Warning.Render(
			renderer.theme.Glyphs.Warning+"this task has woken itself for more than half of its total wakeups"))
	}

	lines = append(lines, "", renderer.theme.Header.Render("Pending operations"))
	if len(frame.TaskOps) == 0 {
		lines = append(lines, renderer.theme.Faint.Render("  none"))
	}
	for _, row := range frame.TaskOps {
		target := "resource " + strconv.FormatUint(uint64(row.Op.Resource), 10)
		if row.Resource != nil {
			target = fmt.Sprintf("%s (%s)", row.Resource.ConcreteType, target)
		}
		lines = append(lines, fmt.Sprintf("  %s %s on %s",
			renderer.theme.StateStyle(row.Op.State).Render(renderer.cellState(row.Op.State)),
			row.Op.Source, target))
	}
	return strings.Join(lines, "\n")
}

// RenderResource draws a ScreenResourceDetail frame.
func (renderer DetailRenderer) RenderResource(frame *Frame) string {
	resource := frame.Resource
	ascii := renderer.theme.ASCII

	var lines []string
	lines = append(lines, renderer.theme.Header.Render(
		fmt.Sprintf("Resource %d %s", resource.ID, resource.ConcreteType)))
	lines = append(lines, renderer.field("kind", resource.Kind))
	lines = append(lines, renderer.field("target", resource.Location.String()))
	lines = append(lines,
		renderer.field("age", duration.Format(frame.Now.Sub(resource.FirstSeen), ascii)))

	if len(resource.Attributes) > 0 {
		lines = append(lines, "", renderer.theme.Header.Render("Attributes"))
		for _, attribute := range resource.Attributes {
			lines = append(lines, renderer.field(attribute.Name, renderAttributeValue(attribute)))
		}
	}

	lines = append(lines, "", renderer.theme.Header.Render("Waiting tasks"))
	if len(frame.Waiters) == 0 {
		lines = append(lines, renderer.theme.Faint.Render("  none"))
	}
	for _, row := range frame.Waiters {
		who := "task " + strconv.FormatUint(uint64(row.Op.Task), 10)
		if row.Task != nil && row.Task.Name != "" {
			who += " " + row.Task.Name
		}
		lines = append(lines, fmt.Sprintf("  %s %s via %s",
			renderer.theme.StateStyle(row.Op.State).Render(renderer.cellState(row.Op.State)),
			who, row.Op.Source))
	}
	return strings.Join(lines, "\n")
}

// field renders a "name  value" line with the label column aligned.
func (renderer DetailRenderer) field(name, value string) string {
	const labelWidth = 11
	padding := max(labelWidth-len(name), 1)
	return "  " + renderer.theme.Faint.Render(name) + strings.Repeat(" ", padding) + value
}

// cellState pads op states to a common width so rows line up.
func (renderer DetailRenderer) cellState(opState string) string {
	return fmt.Sprintf("%-7s", opState)
}

// renderAttributeValue formats a typed attribute with its unit.
func renderAttributeValue(attribute wire.Attribute) string {
	value := fmt.Sprintf("%v", attribute.Value)
	if attribute.Unit != "" {
		value += " " + attribute.Unit
	}
	return value
}
