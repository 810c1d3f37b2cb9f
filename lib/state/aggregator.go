// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/taskscope/taskscope/lib/wire"
)

// Aggregator is the canonical registry of tasks, resources, and async
// ops observed on the telemetry stream. It follows a single-writer
// discipline: exactly one goroutine (the stream loop) calls Apply and
// Reset, while any number of readers call Latest. Readers get
// immutable snapshots and never block the writer.
//
// All time arithmetic uses the stream's "now" carried in each update;
// the aggregator never reads a wall clock, so replaying a recorded
// stream produces identical snapshots.
type Aggregator struct {
	logger    *slog.Logger
	retention RetentionPolicy

	tasks     map[wire.TaskID]*Task
	resources map[wire.ResourceID]*Resource
	ops       map[wire.OpID]*AsyncOp

	stats Stats

	latest atomic.Pointer[Snapshot]
}

// NewAggregator creates an empty aggregator with the given retention
// policy. Diagnostics (protocol errors, consistency errors) go to
// logger, never to the snapshot consumers.
func NewAggregator(retention RetentionPolicy, logger *slog.Logger) *Aggregator {
	aggregator := &Aggregator{
		logger:    logger,
		retention: retention,
		tasks:     map[wire.TaskID]*Task{},
		resources: map[wire.ResourceID]*Resource{},
		ops:       map[wire.OpID]*AsyncOp{},
	}
	aggregator.latest.Store(emptySnapshot())
	return aggregator
}

// Latest returns the most recently published snapshot. Never nil;
// before the first update it is the empty snapshot. Safe to call from
// any goroutine.
func (aggregator *Aggregator) Latest() *Snapshot {
	return aggregator.latest.Load()
}

// Retention returns the aggregator's retention policy.
func (aggregator *Aggregator) Retention() RetentionPolicy {
	return aggregator.retention
}

// Reset discards all state and publishes an empty snapshot. Called on
// reconnection: delta application across a lost interval is unsound,
// so the next connection's full snapshot rebuilds the registries from
// scratch.
func (aggregator *Aggregator) Reset() {
	aggregator.tasks = map[wire.TaskID]*Task{}
	aggregator.resources = map[wire.ResourceID]*Resource{}
	aggregator.ops = map[wire.OpID]*AsyncOp{}
	aggregator.stats = Stats{}
	aggregator.latest.Store(emptySnapshot())
	aggregator.logger.Info("aggregator reset")
}

// Apply merges one update into the registries, prunes entities past
// the retention horizon, and publishes the resulting snapshot. Must be
// called from a single goroutine, in stream arrival order.
//
// Entity merges within one update are order-independent, except that
// op records are validated after task and resource records so an op
// may reference an entity introduced by the same update.
func (aggregator *Aggregator) Apply(update *wire.Update) *Snapshot {
	now := update.Now()
	aggregator.stats.UpdatesApplied++

	for _, record := range update.Tasks {
		aggregator.applyTask(record, now)
	}
	for _, record := range update.Resources {
		aggregator.applyResource(record, now)
	}
	for _, record := range update.Ops {
		aggregator.applyOp(record, now)
	}

	for _, id := range update.DroppedTasks {
		aggregator.dropTask(id, now)
	}
	for _, id := range update.DroppedResources {
		aggregator.dropResource(id, now)
	}
	for _, id := range update.DroppedOps {
		aggregator.dropOp(id, now)
	}

	aggregator.prune(now)

	snapshot := aggregator.publish(now)
	return snapshot
}

// applyTask inserts or merges one task record.
//
// A record for an already-completed task is ignored: completed
// entities are never mutated again. The one exception is a live-state
// record stamped after the completion time: the instrumentation must
// never send that, so it is surfaced as a consistency error and
// handled best-effort by treating the record as a new entity reusing
// the id. (A live-state record at or before the completion time is
// just a duplicate delivery of an update we already applied.)
func (aggregator *Aggregator) applyTask(record wire.TaskRecord, now time.Time) {
	existing, ok := aggregator.tasks[record.ID]
	if !ok {
		task := newTask(record, now)
		if record.State == wire.TaskCompleted {
			// First seen already completed: the task finished between
			// two updates. Stamp completion so retention can age it
			// out even if no drop for the id ever arrives.
			task.CompletedAt = now
		}
		aggregator.tasks[record.ID] = task
		return
	}
	if existing.Completed() {
		if record.State == wire.TaskCompleted || !now.After(existing.CompletedAt) {
			return
		}
		aggregator.stats.ConsistencyErrors++
		aggregator.logger.Error("completed task reappeared live, replacing entity",
			"task_id", record.ID,
			"completed_at", existing.CompletedAt,
			"update_now", now,
		)
		aggregator.tasks[record.ID] = newTask(record, now)
		return
	}
	existing.merge(record)
}

// applyResource inserts or merges one resource record, with the same
// completed-entity rules as applyTask.
func (aggregator *Aggregator) applyResource(record wire.ResourceRecord, now time.Time) {
	existing, ok := aggregator.resources[record.ID]
	if !ok {
		aggregator.resources[record.ID] = newResource(record, now)
		return
	}
	if existing.Dropped() {
		if !now.After(existing.CompletedAt) {
			return
		}
		aggregator.stats.ConsistencyErrors++
		aggregator.logger.Error("dropped resource reappeared, replacing entity",
			"resource_id", record.ID,
			"completed_at", existing.CompletedAt,
			"update_now", now,
		)
		aggregator.resources[record.ID] = newResource(record, now)
		return
	}
	existing.merge(record)
}

// applyOp inserts or merges one async op record. An op naming a task
// or resource the aggregator has never seen is a protocol error: the
// record is discarded and logged, and processing continues.
func (aggregator *Aggregator) applyOp(record wire.AsyncOpRecord, now time.Time) {
	if _, ok := aggregator.tasks[record.Task]; !ok {
		aggregator.protocolError("async op references unknown task",
			"op_id", record.ID, "task_id", record.Task)
		return
	}
	if _, ok := aggregator.resources[record.Resource]; !ok {
		aggregator.protocolError("async op references unknown resource",
			"op_id", record.ID, "resource_id", record.Resource)
		return
	}

	existing, ok := aggregator.ops[record.ID]
	if !ok {
		aggregator.ops[record.ID] = newAsyncOp(record, now)
		return
	}
	if existing.Completed() {
		if record.State == existing.State || !now.After(existing.CompletedAt) {
			return
		}
		aggregator.stats.ConsistencyErrors++
		aggregator.logger.Error("completed async op reappeared, replacing entity",
			"op_id", record.ID,
			"completed_at", existing.CompletedAt,
			"update_now", now,
		)
		aggregator.ops[record.ID] = newAsyncOp(record, now)
		return
	}
	existing.merge(record)
}

// dropTask marks a task completed at the update's now. Dropping an id
// that was never seen is a protocol error; dropping an already
// completed task is a duplicate delivery and ignored.
func (aggregator *Aggregator) dropTask(id wire.TaskID, now time.Time) {
	task, ok := aggregator.tasks[id]
	if !ok {
		aggregator.protocolError("drop of unknown task", "task_id", id)
		return
	}
	if task.Completed() {
		return
	}
	task.State = wire.TaskCompleted
	task.CompletedAt = now
}

// dropResource marks a resource dropped at the update's now.
func (aggregator *Aggregator) dropResource(id wire.ResourceID, now time.Time) {
	resource, ok := aggregator.resources[id]
	if !ok {
		aggregator.protocolError("drop of unknown resource", "resource_id", id)
		return
	}
	if resource.Dropped() {
		return
	}
	resource.CompletedAt = now
}

// dropOp marks an async op completed at the update's now.
func (aggregator *Aggregator) dropOp(id wire.OpID, now time.Time) {
	op, ok := aggregator.ops[id]
	if !ok {
		aggregator.protocolError("drop of unknown async op", "op_id", id)
		return
	}
	if op.Completed() {
		return
	}
	op.CompletedAt = now
}

// prune removes completed entities past the retention horizon, then
// removes any op whose task or resource is gone: ops are weak links
// and never outlive either endpoint.
func (aggregator *Aggregator) prune(now time.Time) {
	for id, task := range aggregator.tasks {
		if aggregator.retention.ShouldPrune(task.CompletedAt, now) {
			delete(aggregator.tasks, id)
			aggregator.stats.EntitiesPruned++
		}
	}
	for id, resource := range aggregator.resources {
		if aggregator.retention.ShouldPrune(resource.CompletedAt, now) {
			delete(aggregator.resources, id)
			aggregator.stats.EntitiesPruned++
		}
	}
	for id, op := range aggregator.ops {
		_, taskAlive := aggregator.tasks[op.Task]
		_, resourceAlive := aggregator.resources[op.Resource]
		if aggregator.retention.ShouldPrune(op.CompletedAt, now) || !taskAlive || !resourceAlive {
			delete(aggregator.ops, id)
			aggregator.stats.EntitiesPruned++
		}
	}
}

// publish copies the registries into a fresh immutable snapshot,
// recomputes the per-state counts, and stores it for readers.
func (aggregator *Aggregator) publish(now time.Time) *Snapshot {
	snapshot := &Snapshot{
		Now:           now,
		Tasks:         make(map[wire.TaskID]Task, len(aggregator.tasks)),
		Resources:     make(map[wire.ResourceID]Resource, len(aggregator.resources)),
		Ops:           make(map[wire.OpID]AsyncOp, len(aggregator.ops)),
		opsByResource: map[wire.ResourceID][]wire.OpID{},
		opsByTask:     map[wire.TaskID][]wire.OpID{},
	}

	stats := aggregator.stats
	for id, task := range aggregator.tasks {
		snapshot.Tasks[id] = *task
		if task.Completed() {
			stats.TasksCompleted++
		} else {
			stats.TasksLive++
		}
	}
	for id, resource := range aggregator.resources {
		snapshot.Resources[id] = *resource
		if resource.Dropped() {
			stats.ResourcesDropped++
		} else {
			stats.ResourcesLive++
		}
	}
	for id, op := range aggregator.ops {
		snapshot.Ops[id] = *op
		if op.Completed() {
			stats.OpsCompleted++
		} else {
			stats.OpsLive++
		}
		snapshot.opsByResource[op.Resource] = append(snapshot.opsByResource[op.Resource], id)
		snapshot.opsByTask[op.Task] = append(snapshot.opsByTask[op.Task], id)
	}
	for _, ids := range snapshot.opsByResource {
		slices.Sort(ids)
	}
	for _, ids := range snapshot.opsByTask {
		slices.Sort(ids)
	}

	snapshot.Stats = stats
	aggregator.latest.Store(snapshot)
	return snapshot
}

// protocolError logs a discarded record and bumps the counter.
func (aggregator *Aggregator) protocolError(message string, args ...any) {
	aggregator.stats.ProtocolErrors++
	aggregator.logger.Warn(message, args...)
}
