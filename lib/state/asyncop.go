// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"time"

	"github.com/taskscope/taskscope/lib/wire"
)

// AsyncOp records one poll interaction between a task and a resource.
// It is a weak link: it holds ids, never pointers, so pruning either
// endpoint can never leave a dangling reference. A lookup that
// misses simply renders as an absent entity.
type AsyncOp struct {
	ID       wire.OpID
	Task     wire.TaskID
	Resource wire.ResourceID
	Source   string

	// State is wire.OpPending or wire.OpReady.
	State string

	FirstSeen   time.Time
	CompletedAt time.Time
}

// newAsyncOp creates an AsyncOp from its first wire record.
func newAsyncOp(record wire.AsyncOpRecord, now time.Time) *AsyncOp {
	op := &AsyncOp{
		ID:        record.ID,
		Task:      record.Task,
		Resource:  record.Resource,
		Source:    record.Source,
		FirstSeen: now,
	}
	op.merge(record)
	return op
}

// merge replaces the op's mutable fields with the record's values.
func (op *AsyncOp) merge(record wire.AsyncOpRecord) {
	op.State = record.State
}

// Completed reports whether the instrumentation has dropped the op.
func (op *AsyncOp) Completed() bool { return !op.CompletedAt.IsZero() }
