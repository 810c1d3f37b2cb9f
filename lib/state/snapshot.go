// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"time"

	"github.com/taskscope/taskscope/lib/wire"
)

// Stats summarizes the registries and the aggregator's diagnostic
// counters at the moment a snapshot was published. Displayed in the
// console's status bar.
type Stats struct {
	// UpdatesApplied counts updates since connection (or the last
	// reset).
	UpdatesApplied uint64

	TasksLive        int
	TasksCompleted   int
	ResourcesLive    int
	ResourcesDropped int
	OpsLive          int
	OpsCompleted     int

	// EntitiesPruned counts entities removed by retention since the
	// last reset.
	EntitiesPruned uint64

	// ProtocolErrors counts discarded malformed records (dangling
	// references, drops of unknown ids).
	ProtocolErrors uint64

	// ConsistencyErrors counts observations that should be impossible,
	// such as a completed entity reappearing live.
	ConsistencyErrors uint64
}

// Snapshot is an immutable, consistent view of all three registries at
// one stream instant. The aggregator publishes a new snapshot after
// every applied update; readers hold whichever snapshot they loaded
// and never observe a partially applied update.
//
// The entity maps hold by-value copies and must be treated as
// read-only by consumers.
type Snapshot struct {
	// Now is the stream time of the update that produced this
	// snapshot. Zero for the empty snapshot published before the
	// first update.
	Now time.Time

	Tasks     map[wire.TaskID]Task
	Resources map[wire.ResourceID]Resource
	Ops       map[wire.OpID]AsyncOp

	Stats Stats

	// Reverse indexes, built at publish time. Op id slices are sorted
	// ascending.
	opsByResource map[wire.ResourceID][]wire.OpID
	opsByTask     map[wire.TaskID][]wire.OpID
}

// emptySnapshot returns the snapshot published before any update has
// been applied.
func emptySnapshot() *Snapshot {
	return &Snapshot{
		Tasks:         map[wire.TaskID]Task{},
		Resources:     map[wire.ResourceID]Resource{},
		Ops:           map[wire.OpID]AsyncOp{},
		opsByResource: map[wire.ResourceID][]wire.OpID{},
		opsByTask:     map[wire.TaskID][]wire.OpID{},
	}
}

// Task looks up a task by id.
func (snapshot *Snapshot) Task(id wire.TaskID) (Task, bool) {
	task, ok := snapshot.Tasks[id]
	return task, ok
}

// Resource looks up a resource by id.
func (snapshot *Snapshot) Resource(id wire.ResourceID) (Resource, bool) {
	resource, ok := snapshot.Resources[id]
	return resource, ok
}

// Op looks up an async op by id.
func (snapshot *Snapshot) Op(id wire.OpID) (AsyncOp, bool) {
	op, ok := snapshot.Ops[id]
	return op, ok
}

// ResourceOps returns the ops targeting a resource, in op id order.
// This is the resource detail view's waiter list.
func (snapshot *Snapshot) ResourceOps(id wire.ResourceID) []AsyncOp {
	return snapshot.opsFor(snapshot.opsByResource[id])
}

// TaskOps returns the ops issued by a task, in op id order.
func (snapshot *Snapshot) TaskOps(id wire.TaskID) []AsyncOp {
	return snapshot.opsFor(snapshot.opsByTask[id])
}

func (snapshot *Snapshot) opsFor(ids []wire.OpID) []AsyncOp {
	if len(ids) == 0 {
		return nil
	}
	ops := make([]AsyncOp, 0, len(ids))
	for _, id := range ids {
		if op, ok := snapshot.Ops[id]; ok {
			ops = append(ops, op)
		}
	}
	return ops
}
