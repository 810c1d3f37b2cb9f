// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package scopeui

import (
	"log/slog"
	"testing"
	"time"

	"github.com/taskscope/taskscope/lib/state"
	"github.com/taskscope/taskscope/lib/wire"
)

var testEpoch = time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

// buildSnapshot runs updates through a real aggregator and returns
// the resulting snapshot.
func buildSnapshot(t *testing.T, updates ...*wire.Update) *state.Snapshot {
	t.Helper()
	aggregator := state.NewAggregator(state.RetainForever(), slog.New(slog.DiscardHandler))
	snapshot := aggregator.Latest()
	for _, update := range updates {
		snapshot = aggregator.Apply(update)
	}
	return snapshot
}

// fiveTasks creates tasks 1..5 where task N has Busy = N seconds, so
// the default total-descending sort shows id 5 first.
func fiveTasks(t *testing.T) *state.Snapshot {
	t.Helper()
	var records []wire.TaskRecord
	for id := wire.TaskID(1); id <= 5; id++ {
		records = append(records, wire.TaskRecord{
			ID:    id,
			Name:  "worker",
			State: wire.TaskRunning,
			Busy:  time.Duration(id) * time.Second,
		})
	}
	first := &wire.Update{NowNanos: testEpoch.UnixNano(), Tasks: records}
	// A second update advances stream time so tasks have a lifetime.
	second := &wire.Update{NowNanos: testEpoch.Add(time.Minute).UnixNano()}
	return buildSnapshot(t, first, second)
}

func TestInitialView(t *testing.T) {
	view := NewView()
	frame := view.Resolve(fiveTasks(t))

	if frame.Screen != ScreenTaskList {
		t.Fatalf("initial screen = %v, want task list", frame.Screen)
	}
	if frame.Selected != 0 {
		t.Fatalf("initial selection = %d, want 0", frame.Selected)
	}
	if frame.SortColumn != TaskColumnTotal || !frame.SortDescending {
		t.Fatalf("initial sort = column %d descending=%v, want total descending",
			frame.SortColumn, frame.SortDescending)
	}
	if len(frame.Tasks) != 5 {
		t.Fatalf("row count = %d, want 5", len(frame.Tasks))
	}
}

func TestActivateAndBackPreserveSelection(t *testing.T) {
	snapshot := fiveTasks(t)
	view := NewView()
	view.MoveSelection(2)
	frame := view.Resolve(snapshot)
	wantID := frame.Tasks[2].ID

	view.Activate(snapshot)
	frame = view.Resolve(snapshot)
	if frame.Screen != ScreenTaskDetail {
		t.Fatalf("screen after activate = %v, want task detail", frame.Screen)
	}
	if frame.Task.ID != wantID {
		t.Fatalf("detail task = %d, want the id at row 2 (%d)", frame.Task.ID, wantID)
	}

	view.Back()
	frame = view.Resolve(snapshot)
	if frame.Screen != ScreenTaskList {
		t.Fatalf("screen after back = %v, want task list", frame.Screen)
	}
	if frame.Selected != 2 {
		t.Fatalf("selection after back = %d, want 2", frame.Selected)
	}
}

func TestSelectionClampsWhenListShrinks(t *testing.T) {
	view := NewView()
	view.Resolve(fiveTasks(t))
	view.MoveSelection(4)

	// A fresh aggregator state with only two tasks (e.g. after a
	// reconnect resync) must clamp the stale selection.
	small := buildSnapshot(t, &wire.Update{
		NowNanos: testEpoch.UnixNano(),
		Tasks: []wire.TaskRecord{
			{ID: 1, State: wire.TaskRunning},
			{ID: 2, State: wire.TaskRunning},
		},
	})
	frame := view.Resolve(small)
	if frame.Selected != 1 {
		t.Fatalf("selection = %d, want clamp to 1", frame.Selected)
	}

	empty := buildSnapshot(t)
	frame = view.Resolve(empty)
	if frame.Selected != 0 {
		t.Fatalf("selection on empty list = %d, want 0", frame.Selected)
	}
}

func TestPrunedDetailFallsBackToList(t *testing.T) {
	snapshot := fiveTasks(t)
	view := NewView()
	view.Activate(snapshot)
	if view.Screen() != ScreenTaskDetail {
		t.Fatal("activate did not open the detail screen")
	}

	// The detail task does not exist in this snapshot.
	without := buildSnapshot(t, &wire.Update{
		NowNanos: testEpoch.UnixNano(),
		Tasks:    []wire.TaskRecord{{ID: 99, State: wire.TaskRunning}},
	})
	frame := view.Resolve(without)
	if frame.Screen != ScreenTaskList {
		t.Fatalf("screen = %v, want fallback to task list", frame.Screen)
	}
}

func TestViewSwitchUndefinedFromDetail(t *testing.T) {
	snapshot := fiveTasks(t)
	view := NewView()
	view.Activate(snapshot)

	view.ShowResources()
	if view.Screen() != ScreenTaskDetail {
		t.Fatal("view switch from a detail screen must be a no-op")
	}

	view.Back()
	view.ShowResources()
	if view.Screen() != ScreenResourceList {
		t.Fatal("view switch from a list screen must work")
	}
}

func TestSortColumnCycleAndInvert(t *testing.T) {
	snapshot := fiveTasks(t)
	view := NewView()

	// Total descending puts the busiest task (id 5) first.
	frame := view.Resolve(snapshot)
	if frame.Tasks[0].ID != 5 {
		t.Fatalf("first row id = %d, want 5 under total descending", frame.Tasks[0].ID)
	}

	view.InvertSort()
	frame = view.Resolve(snapshot)
	if frame.Tasks[0].ID != 1 {
		t.Fatalf("first row id = %d, want 1 under total ascending", frame.Tasks[0].ID)
	}

	// Walk the sort column left from TOTAL to NAME: equal names tie
	// break on id ascending.
	view.PreviousSortColumn()
	frame = view.Resolve(snapshot)
	if frame.SortColumn != TaskColumnName {
		t.Fatalf("sort column = %d, want name", frame.SortColumn)
	}
	if frame.Tasks[0].ID != 1 {
		t.Fatalf("first row id = %d, want 1 on the name/id tiebreak", frame.Tasks[0].ID)
	}

	// Cycling right from the last column wraps to the first.
	view.Resolve(snapshot)
	for range taskColumnCount - TaskColumnName {
		view.NextSortColumn()
	}
	frame = view.Resolve(snapshot)
	if frame.SortColumn != TaskColumnID {
		t.Fatalf("sort column = %d, want wrap to id", frame.SortColumn)
	}
}

func TestActivateOnEmptyListIsNoOp(t *testing.T) {
	empty := buildSnapshot(t)
	view := NewView()
	view.Activate(empty)
	if view.Screen() != ScreenTaskList {
		t.Fatal("activate on an empty list changed the screen")
	}
}

func TestDetailFramesResolveRelations(t *testing.T) {
	snapshot := buildSnapshot(t, &wire.Update{
		NowNanos: testEpoch.UnixNano(),
		Tasks: []wire.TaskRecord{
			{ID: 1, Name: "reader", State: wire.TaskIdle},
		},
		Resources: []wire.ResourceRecord{
			{ID: 10, ConcreteType: "Mutex", Kind: "sync"},
		},
		Ops: []wire.AsyncOpRecord{
			{ID: 100, Task: 1, Resource: 10, Source: "Mutex::lock", State: wire.OpPending},
		},
	})

	view := NewView()
	view.Activate(snapshot)
	frame := view.Resolve(snapshot)
	if len(frame.TaskOps) != 1 {
		t.Fatalf("task op rows = %d, want 1", len(frame.TaskOps))
	}
	if frame.TaskOps[0].Resource == nil || frame.TaskOps[0].Resource.ConcreteType != "Mutex" {
		t.Fatal("task op row did not resolve its resource")
	}

	view.Back()
	view.ShowResources()
	view.Activate(snapshot)
	frame = view.Resolve(snapshot)
	if frame.Screen != ScreenResourceDetail {
		t.Fatalf("screen = %v, want resource detail", frame.Screen)
	}
	if len(frame.Waiters) != 1 {
		t.Fatalf("waiter rows = %d, want 1", len(frame.Waiters))
	}
	if frame.Waiters[0].Task == nil || frame.Waiters[0].Task.Name != "reader" {
		t.Fatal("waiter row did not resolve its task")
	}
}

func TestMoveSelectionFloorsAtZero(t *testing.T) {
	view := NewView()
	view.MoveSelection(-3)
	frame := view.Resolve(fiveTasks(t))
	if frame.Selected != 0 {
		t.Fatalf("selection = %d, want 0", frame.Selected)
	}
}
