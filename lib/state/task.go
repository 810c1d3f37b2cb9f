// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"time"

	"github.com/taskscope/taskscope/lib/wire"
)

// Task is the aggregator's view of one instrumented task. Display
// metadata (Name, Kind, Location) is fixed at creation; state and
// counters are overwritten by each update that mentions the task,
// since the instrumentation sends cumulative totals.
//
// Owned exclusively by the Aggregator. Readers only ever see by-value
// copies inside a Snapshot.
type Task struct {
	ID       wire.TaskID
	Name     string
	Kind     string
	Location wire.Location

	// State is wire.TaskRunning, wire.TaskIdle, or wire.TaskCompleted.
	State string

	Polls     uint64
	Busy      time.Duration
	Scheduled time.Duration
	Wakes     uint64
	SelfWakes uint64

	// FirstSeen is the stream time of the update that created the
	// task. CompletedAt is zero until the instrumentation reports the
	// task dropped.
	FirstSeen   time.Time
	CompletedAt time.Time
}

// newTask creates a Task from its first wire record.
func newTask(record wire.TaskRecord, now time.Time) *Task {
	task := &Task{
		ID:        record.ID,
		Name:      record.Name,
		Kind:      record.Kind,
		Location:  record.Location,
		FirstSeen: now,
	}
	task.merge(record)
	return task
}

// merge overwrites the task's mutable fields with the record's values.
// Counters are cumulative on the wire, so merge is replacement, not
// accumulation; replaying the same record is a no-op.
func (task *Task) merge(record wire.TaskRecord) {
	task.State = record.State
	task.Polls = record.Polls
	task.Busy = record.Busy
	task.Scheduled = record.Scheduled
	task.Wakes = record.Wakes
	task.SelfWakes = record.SelfWakes
}

// Completed reports whether the task has been marked dropped by the
// instrumentation.
func (task *Task) Completed() bool { return !task.CompletedAt.IsZero() }

// Total returns the task's lifetime: creation to completion for
// completed tasks, creation to now for live ones.
func (task *Task) Total(now time.Time) time.Duration {
	end := now
	if task.Completed() {
		end = task.CompletedAt
	}
	if end.Before(task.FirstSeen) {
		return 0
	}
	return end.Sub(task.FirstSeen)
}

// Idle returns the portion of the task's lifetime spent neither
// executing nor waiting to be scheduled.
func (task *Task) Idle(now time.Time) time.Duration {
	idle := task.Total(now) - task.Busy - task.Scheduled
	if idle < 0 {
		return 0
	}
	return idle
}

// SelfWakeHeavy reports whether more than half of the task's wakes
// were self-wakes. Such tasks are usually spinning on their own waker
// instead of making progress; the detail view surfaces a warning.
func (task *Task) SelfWakeHeavy() bool {
	return task.Wakes > 0 && task.SelfWakes*2 > task.Wakes
}
