// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package scopeui

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/taskscope/taskscope/lib/state"
	"github.com/taskscope/taskscope/lib/wire"
)

// Screen identifies which view is active.
type Screen int

const (
	// ScreenTaskList shows the sortable table of all tasks.
	ScreenTaskList Screen = iota
	// ScreenTaskDetail shows one task with its pending operations.
	ScreenTaskDetail
	// ScreenResourceList shows the sortable table of all resources.
	ScreenResourceList
	// ScreenResourceDetail shows one resource with its waiting tasks.
	ScreenResourceDetail
)

// Task table columns, in display order.
const (
	TaskColumnID = iota
	TaskColumnState
	TaskColumnName
	TaskColumnTotal
	TaskColumnBusy
	TaskColumnIdle
	TaskColumnPolls
	TaskColumnTarget
	taskColumnCount
)

// Resource table columns, in display order.
const (
	ResourceColumnID = iota
	ResourceColumnKind
	ResourceColumnType
	ResourceColumnAge
	ResourceColumnTarget
	resourceColumnCount
)

// listState is the per-list cursor and sort configuration. Both lists
// keep their own so switching views and drilling into details never
// loses a position.
type listState struct {
	selected       int
	sortColumn     int
	sortDescending bool
}

// View is the navigation state machine. It holds which screen is
// active, the selection and sort key of each list, and the entity id a
// detail screen points at.
//
// View never holds entity data. Every read goes through [View.Resolve]
// against the latest snapshot, which re-clamps the selection and falls
// back from a detail screen whose entity has been pruned. State that
// looked valid a tick ago is never trusted.
type View struct {
	screen    Screen
	tasks     listState
	resources listState

	detailTask     wire.TaskID
	detailResource wire.ResourceID
}

// NewView returns the initial view: the task list, first row selected,
// sorted by total lifetime with the longest-lived tasks on top.
func NewView() *View {
	return &View{
		tasks:     listState{sortColumn: TaskColumnTotal, sortDescending: true},
		resources: listState{sortColumn: ResourceColumnID},
	}
}

// Screen returns the active screen.
func (view *View) Screen() Screen { return view.screen }

// activeList returns the list state the current screen reads from.
// Detail screens share their parent list's state so back restores the
// prior selection untouched.
func (view *View) activeList() *listState {
	switch view.screen {
	case ScreenTaskList, ScreenTaskDetail:
		return &view.tasks
	default:
		return &view.resources
	}
}

func (view *View) onList() bool {
	return view.screen == ScreenTaskList || view.screen == ScreenResourceList
}

// MoveSelection shifts the active list's selection by delta rows. The
// result may exceed the list length; Resolve clamps it against the
// snapshot it renders from.
func (view *View) MoveSelection(delta int) {
	if !view.onList() {
		return
	}
	list := view.activeList()
	list.selected = max(list.selected+delta, 0)
}

// SelectFirst moves the selection to the top of the active list.
func (view *View) SelectFirst() {
	if view.onList() {
		view.activeList().selected = 0
	}
}

// SelectLast moves the selection to the bottom of the active list. The
// sentinel is clamped to the real length on the next Resolve.
func (view *View) SelectLast() {
	if view.onList() {
		view.activeList().selected = math.MaxInt
	}
}

// NextSortColumn moves the active list's sort one column to the right,
// wrapping at the end.
func (view *View) NextSortColumn() { view.shiftSortColumn(1) }

// PreviousSortColumn moves the active list's sort one column to the
// left, wrapping at the start.
func (view *View) PreviousSortColumn() { view.shiftSortColumn(-1) }

func (view *View) shiftSortColumn(delta int) {
	if !view.onList() {
		return
	}
	columns := taskColumnCount
	if view.screen == ScreenResourceList {
		columns = resourceColumnCount
	}
	list := view.activeList()
	list.sortColumn = (list.sortColumn + delta + columns) % columns
}

// InvertSort flips the active list's sort direction.
func (view *View) InvertSort() {
	if view.onList() {
		list := view.activeList()
		list.sortDescending = !list.sortDescending
	}
}

// ShowTasks switches to the task list. Only defined on list screens;
// a detail screen must go back first.
func (view *View) ShowTasks() {
	if view.onList() {
		view.screen = ScreenTaskList
	}
}

// ShowResources switches to the resource list. Only defined on list
// screens.
func (view *View) ShowResources() {
	if view.onList() {
		view.screen = ScreenResourceList
	}
}

// Activate drills into the detail screen for the selected row. No-op
// on an empty list or a detail screen. The selected entity is taken
// from the same sorted order Resolve renders, so the row the user sees
// is the row that opens.
func (view *View) Activate(snapshot *state.Snapshot) {
	switch view.screen {
	case ScreenTaskList:
		rows := sortedTasks(snapshot, view.tasks)
		if len(rows) == 0 {
			return
		}
		view.tasks.selected = clampIndex(view.tasks.selected, len(rows))
		view.detailTask = rows[view.tasks.selected].ID
		view.screen = ScreenTaskDetail
	case ScreenResourceList:
		rows := sortedResources(snapshot, view.resources)
		if len(rows) == 0 {
			return
		}
		view.resources.selected = clampIndex(view.resources.selected, len(rows))
		view.detailResource = rows[view.resources.selected].ID
		view.screen = ScreenResourceDetail
	}
}

// Back returns from a detail screen to the list it came from. The
// list's selection is untouched. No-op on list screens.
func (view *View) Back() {
	switch view.screen {
	case ScreenTaskDetail:
		view.screen = ScreenTaskList
	case ScreenResourceDetail:
		view.screen = ScreenResourceList
	}
}

// OpRow pairs a pending operation with the resource it waits on, for
// the task detail screen. Resource is nil when the resource has been
// pruned ahead of the op.
type OpRow struct {
	Op       state.AsyncOp
	Resource *state.Resource
}

// WaiterRow pairs a pending operation with the task performing it, for
// the resource detail screen. Task is nil when the task has been
// pruned ahead of the op.
type WaiterRow struct {
	Op   state.AsyncOp
	Task *state.Task
}

// Frame is the render-ready result of resolving the view against a
// snapshot: the active screen, the sorted rows or detail entity, and a
// selection guaranteed to be in range. The render layer draws a Frame
// without touching the aggregator or the view again.
type Frame struct {
	Screen Screen
	Now    time.Time

	// List screens.
	Tasks          []state.Task
	Resources      []state.Resource
	Selected       int
	SortColumn     int
	SortDescending bool

	// ScreenTaskDetail.
	Task    *state.Task
	TaskOps []OpRow

	// ScreenResourceDetail.
	Resource *state.Resource
	Waiters  []WaiterRow
}

// Rows returns the number of rows on a list screen.
func (frame *Frame) Rows() int {
	if frame.Screen == ScreenResourceList {
		return len(frame.Resources)
	}
	return len(frame.Tasks)
}

// Resolve reconciles the view with the given snapshot and returns the
// frame to render. Selections are clamped to the current list length,
// and a detail screen whose entity has been pruned falls back to its
// list. Resolve mutates the view so the reconciled state is what the
// next event operates on.
func (view *View) Resolve(snapshot *state.Snapshot) *Frame {
	// Pruned detail entities send the view back to the list before
	// any rows are assembled.
	switch view.screen {
	case ScreenTaskDetail:
		if _, ok := snapshot.Task(view.detailTask); !ok {
			view.screen = ScreenTaskList
		}
	case ScreenResourceDetail:
		if _, ok := snapshot.Resource(view.detailResource); !ok {
			view.screen = ScreenResourceList
		}
	}

	frame := &Frame{Screen: view.screen, Now: snapshot.Now}
	switch view.screen {
	case ScreenTaskList:
		frame.Tasks = sortedTasks(snapshot, view.tasks)
		view.tasks.selected = clampIndex(view.tasks.selected, len(frame.Tasks))
		frame.Selected = view.tasks.selected
		frame.SortColumn = view.tasks.sortColumn
		frame.SortDescending = view.tasks.sortDescending

	case ScreenResourceList:
		frame.Resources = sortedResources(snapshot, view.resources)
		view.resources.selected = clampIndex(view.resources.selected, len(frame.Resources))
		frame.Selected = view.resources.selected
		frame.SortColumn = view.resources.sortColumn
		frame.SortDescending = view.resources.sortDescending

	case ScreenTaskDetail:
		task, _ := snapshot.Task(view.detailTask)
		frame.Task = &task
		for _, op := range snapshot.TaskOps(task.ID) {
			row := OpRow{Op: op}
			if resource, ok := snapshot.Resource(op.Resource); ok {
				row.Resource = &resource
			}
			frame.TaskOps = append(frame.TaskOps, row)
		}

	case ScreenResourceDetail:
		resource, _ := snapshot.Resource(view.detailResource)
		frame.Resource = &resource
		for _, op := range snapshot.ResourceOps(resource.ID) {
			row := WaiterRow{Op: op}
			if task, ok := snapshot.Task(op.Task); ok {
				row.Task = &task
			}
			frame.Waiters = append(frame.Waiters, row)
		}
	}
	return frame
}

// clampIndex forces index into [0, length). An empty list clamps to 0.
func clampIndex(index, length int) int {
	if length == 0 {
		return 0
	}
	if index < 0 {
		return 0
	}
	if index >= length {
		return length - 1
	}
	return index
}

// sortedTasks returns the snapshot's tasks ordered by the list's sort
// column. Ties break on id so the order is stable across ticks.
func sortedTasks(snapshot *state.Snapshot, list listState) []state.Task {
	now := snapshot.Now
	tasks := make([]state.Task, 0, len(snapshot.Tasks))
	for _, task := range snapshot.Tasks {
		tasks = append(tasks, task)
	}
	slices.SortFunc(tasks, func(a, b state.Task) int {
		var order int
		switch list.sortColumn {
		case TaskColumnState:
			order = cmp.Compare(a.State, b.State)
		case TaskColumnName:
			order = cmp.Compare(a.Name, b.Name)
		case TaskColumnTotal:
			order = cmp.Compare(a.Total(now), b.Total(now))
		case TaskColumnBusy:
			order = cmp.Compare(a.Busy, b.Busy)
		case TaskColumnIdle:
			order = cmp.Compare(a.Idle(now), b.Idle(now))
		case TaskColumnPolls:
			order = cmp.Compare(a.Polls, b.Polls)
		case TaskColumnTarget:
			order = cmp.Compare(a.Location.String(), b.Location.String())
		}
		if order == 0 {
			order = cmp.Compare(a.ID, b.ID)
		}
		if list.sortDescending {
			order = -order
		}
		return order
	})
	return tasks
}

// sortedResources returns the snapshot's resources ordered by the
// list's sort column, ties broken on id.
func sortedResources(snapshot *state.Snapshot, list listState) []state.Resource {
	now := snapshot.Now
	resources := make([]state.Resource, 0, len(snapshot.Resources))
	for _, resource := range snapshot.Resources {
		resources = append(resources, resource)
	}
	slices.SortFunc(resources, func(a, b state.Resource) int {
		var order int
		switch list.sortColumn {
		case ResourceColumnKind:
			order = cmp.Compare(a.Kind, b.Kind)
		case ResourceColumnType:
			order = cmp.Compare(a.ConcreteType, b.ConcreteType)
		case ResourceColumnAge:
			order = cmp.Compare(now.Sub(a.FirstSeen), now.Sub(b.FirstSeen))
		case ResourceColumnTarget:
			order = cmp.Compare(a.Location.String(), b.Location.String())
		}
		if order == 0 {
			order = cmp.Compare(a.ID, b.ID)
		}
		if list.sortDescending {
			order = -order
		}
		return order
	})
	return resources
}
