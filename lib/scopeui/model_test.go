// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package scopeui

import (
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/taskscope/taskscope/lib/state"
)

type fakeSource struct {
	snapshot *state.Snapshot
}

func (source *fakeSource) Latest() *state.Snapshot { return source.snapshot }

type fakeConnection struct {
	phase string
}

func (connection *fakeConnection) Phase() string  { return connection.phase }
func (connection *fakeConnection) Target() string { return "127.0.0.1:6669" }

// plainTheme renders without colors so assertions can match raw text.
func plainTheme() Theme {
	return NewTheme(PaletteANSI256, true, []string{ColorsAll, ColorsSelection})
}

func testModel(t *testing.T, source *fakeSource) Model {
	t.Helper()
	model := NewModel(source, &fakeConnection{phase: "connected"}, plainTheme())
	resized, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return resized.(Model)
}

func pressRune(t *testing.T, model Model, r rune) Model {
	t.Helper()
	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	return updated.(Model)
}

func TestModelQuitKey(t *testing.T) {
	source := &fakeSource{snapshot: fiveTasks(t)}
	model := testModel(t, source)

	_, command := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if command == nil {
		t.Fatal("q produced no command")
	}
	if _, ok := command().(tea.QuitMsg); !ok {
		t.Fatal("q did not produce tea.Quit")
	}
}

func TestModelNavigationAndRender(t *testing.T) {
	source := &fakeSource{snapshot: fiveTasks(t)}
	model := testModel(t, source)

	model = pressRune(t, model, 'j')
	model = pressRune(t, model, 'j')
	if model.frame.Selected != 2 {
		t.Fatalf("selection after two downs = %d, want 2", model.frame.Selected)
	}

	rendered := model.View()
	if !strings.Contains(rendered, "TID") || !strings.Contains(rendered, "worker") {
		t.Fatalf("task table missing from render:\n%s", rendered)
	}
	if !strings.Contains(rendered, "connected") || !strings.Contains(rendered, "127.0.0.1:6669") {
		t.Fatalf("status line missing connection info:\n%s", rendered)
	}

	// Enter opens the detail screen for the selected row.
	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(Model)
	if model.frame.Screen != ScreenTaskDetail {
		t.Fatalf("screen after enter = %v, want task detail", model.frame.Screen)
	}
	if !strings.Contains(model.View(), "Pending operations") {
		t.Fatal("detail screen missing from render")
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEscape})
	model = updated.(Model)
	if model.frame.Screen != ScreenTaskList {
		t.Fatalf("screen after escape = %v, want task list", model.frame.Screen)
	}
	if model.frame.Selected != 2 {
		t.Fatalf("selection after back = %d, want 2", model.frame.Selected)
	}
}

func TestModelTickRefreshesSnapshot(t *testing.T) {
	source := &fakeSource{snapshot: buildSnapshot(t)}
	model := testModel(t, source)
	if model.frame.Rows() != 0 {
		t.Fatalf("rows before any update = %d, want 0", model.frame.Rows())
	}

	source.snapshot = fiveTasks(t)
	updated, command := model.Update(tickMsg{})
	model = updated.(Model)
	if model.frame.Rows() != 5 {
		t.Fatalf("rows after tick = %d, want 5", model.frame.Rows())
	}
	if command == nil {
		t.Fatal("tick did not schedule the next tick")
	}
}

func TestModelPauseFreezesDisplay(t *testing.T) {
	source := &fakeSource{snapshot: fiveTasks(t)}
	model := testModel(t, source)
	updated, _ := model.Update(tickMsg{})
	model = updated.(Model)

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeySpace})
	model = updated.(Model)
	if !model.paused {
		t.Fatal("space did not pause")
	}
	if !strings.Contains(model.View(), "[paused]") {
		t.Fatal("paused indicator missing from render")
	}

	// New aggregator output is ignored while paused.
	source.snapshot = buildSnapshot(t)
	updated, _ = model.Update(tickMsg{})
	model = updated.(Model)
	if model.frame.Rows() != 5 {
		t.Fatalf("rows while paused = %d, want frozen at 5", model.frame.Rows())
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeySpace})
	model = updated.(Model)
	updated, _ = model.Update(tickMsg{})
	model = updated.(Model)
	if model.frame.Rows() != 0 {
		t.Fatalf("rows after unpause = %d, want 0", model.frame.Rows())
	}
}

func TestModelASCIIRenderHasNoUnicode(t *testing.T) {
	source := &fakeSource{snapshot: fiveTasks(t)}
	model := testModel(t, source)

	// The help line's key names are the usual trap: the default
	// bindings describe themselves with arrow glyphs.
	for _, r := range model.View() {
		if r >= utf8.RuneSelf {
			t.Fatalf("ascii-only render contains %q", r)
		}
	}
	if !strings.Contains(model.View(), "k/up") {
		t.Fatal("help line missing the ASCII spelling of the up binding")
	}
}

func TestModelShowsLogNotices(t *testing.T) {
	source := &fakeSource{snapshot: fiveTasks(t)}
	model := testModel(t, source)

	updated, command := model.Update(logRecordMsg{Summary: "telemetry stream disconnected", Level: slog.LevelWarn})
	model = updated.(Model)
	if !strings.Contains(model.View(), "telemetry stream disconnected") {
		t.Fatal("log notice missing from status line")
	}
	if command == nil {
		t.Fatal("log notice did not schedule a fade")
	}

	updated, _ = model.Update(logRecordFadeMsg{})
	model = updated.(Model)
	if strings.Contains(model.View(), "telemetry stream disconnected") {
		t.Fatal("log notice survived the fade")
	}
}
