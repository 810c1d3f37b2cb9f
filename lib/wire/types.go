// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"strconv"
	"time"
)

// TaskID identifies an instrumented task. IDs are assigned by the
// instrumentation and are unique per task for the lifetime of a
// connection; they are never reused within a session.
type TaskID uint64

// ResourceID identifies an instrumented resource (mutex, semaphore,
// channel, timer, I/O handle). Same uniqueness rules as TaskID.
type ResourceID uint64

// OpID identifies a single async operation: one poll-cycle interaction
// between a task and a resource.
type OpID uint64

// Task state tags as sent by the instrumentation.
const (
	TaskRunning   = "running"
	TaskIdle      = "idle"
	TaskCompleted = "completed"
)

// AsyncOp outcome tags.
const (
	OpPending = "pending"
	OpReady   = "ready"
)

// Location is a source position in the monitored program: where a task
// was spawned or a resource was created. Opaque to the console beyond
// display.
type Location struct {
	File string `cbor:"file,omitempty"`
	Line uint32 `cbor:"line,omitempty"`
}

// String renders the location as file:line, or an empty string for the
// zero value.
func (location Location) String() string {
	if location.File == "" {
		return ""
	}
	if location.Line == 0 {
		return location.File
	}
	return location.File + ":" + strconv.FormatUint(uint64(location.Line), 10)
}

// TaskRecord is one task's state in an Update. Records are complete:
// the instrumentation always sends every field, with counters carrying
// cumulative totals since the task was spawned (not deltas since the
// last update).
type TaskRecord struct {
	ID   TaskID `cbor:"id"`
	Name string `cbor:"name,omitempty"`
	// Kind is the spawn flavor reported by the runtime, e.g. "task",
	// "blocking", "local".
	Kind     string   `cbor:"kind,omitempty"`
	Location Location `cbor:"location,omitempty"`

	// State is one of TaskRunning, TaskIdle, TaskCompleted.
	State string `cbor:"state"`

	// Cumulative counters.
	Polls     uint64        `cbor:"polls"`
	Busy      time.Duration `cbor:"busy"`
	Scheduled time.Duration `cbor:"scheduled"`
	Wakes     uint64        `cbor:"wakes"`
	SelfWakes uint64        `cbor:"self_wakes"`
}

// Attribute is a typed key/value pair describing a resource, e.g.
// {Name: "capacity", Value: 128} for a bounded channel. Value is any
// CBOR scalar; Unit is an optional display suffix ("ms", "bytes").
type Attribute struct {
	Name  string `cbor:"name"`
	Value any    `cbor:"value"`
	Unit  string `cbor:"unit,omitempty"`
}

// ResourceRecord is one resource's state in an Update.
type ResourceRecord struct {
	ID ResourceID `cbor:"id"`
	// ConcreteType is the runtime type name, e.g. "Semaphore".
	ConcreteType string      `cbor:"concrete_type"`
	Kind         string      `cbor:"kind,omitempty"` // broad category: "sync", "timer", "io"
	Location     Location    `cbor:"location,omitempty"`
	Attributes   []Attribute `cbor:"attributes,omitempty"`
}

// AsyncOpRecord is one async operation in an Update: task Task polled
// resource Resource with the given outcome. Source names the operation
// in the monitored program, e.g. "Semaphore::acquire".
type AsyncOpRecord struct {
	ID       OpID       `cbor:"id"`
	Task     TaskID     `cbor:"task"`
	Resource ResourceID `cbor:"resource"`
	Source   string     `cbor:"source,omitempty"`
	// State is OpPending or OpReady.
	State string `cbor:"state"`
}

// Update is one message in the telemetry stream: new or changed
// entities, ids dropped since the last update, and the server's
// current time.
//
// The Dropped lists transition entities to their completed state; the
// entities remain visible until the console's retention horizon
// expires them. An id may appear in both a record list and a dropped
// list within one Update (created and dropped between two updates).
type Update struct {
	// NowNanos is the server's clock at the moment the update was
	// assembled, in nanoseconds since the Unix epoch. All retention
	// arithmetic uses this stream time, never the console's clock.
	NowNanos int64 `cbor:"now"`

	Tasks     []TaskRecord     `cbor:"tasks,omitempty"`
	Resources []ResourceRecord `cbor:"resources,omitempty"`
	Ops       []AsyncOpRecord  `cbor:"ops,omitempty"`

	DroppedTasks     []TaskID     `cbor:"dropped_tasks,omitempty"`
	DroppedResources []ResourceID `cbor:"dropped_resources,omitempty"`
	DroppedOps       []OpID       `cbor:"dropped_ops,omitempty"`
}

// Now returns the update's server timestamp as a time.Time.
func (update *Update) Now() time.Time {
	return time.Unix(0, update.NowNanos)
}
