// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

// Package state maintains the console's in-memory model of the
// monitored process: registries of tasks, resources, and async ops,
// fed by the telemetry stream and bounded by a retention policy.
//
// [Aggregator] is the single writer. Its Apply method merges one
// [wire.Update] into the registries (idempotently; records carry
// cumulative counters, so merge is replacement), stamps completion
// times from the update's stream time, prunes entities whose
// completion has aged past the [RetentionPolicy] horizon, and
// publishes an immutable [Snapshot]. Readers load snapshots through
// Latest without locks and can never observe a partially applied
// update.
//
// Malformed input does not stop the stream: records with dangling
// references are discarded and counted as protocol errors, and
// impossible observations (a completed entity coming back to life)
// are counted as consistency errors and handled best-effort. Both
// counters ride along in [Stats] and are reported through the
// aggregator's logger, never through the UI data path.
package state
