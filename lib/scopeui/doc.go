// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

// Package scopeui is the terminal UI for taskscope: a sortable task
// table, a resource table, and per-entity detail screens, drawn with
// bubbletea and lipgloss.
//
// Navigation lives in [View], a plain state machine with no rendering
// or bubbletea dependencies. Every read resolves the view against the
// latest aggregator snapshot, which re-clamps selections and backs out
// of detail screens whose entity has been pruned; the machine never
// trusts state from a previous tick. [Model] wraps the View in a
// bubbletea program with a 100ms render tick, and [TUILogHandler]
// routes slog diagnostics into the status bar so they never corrupt
// the rendered tables.
package scopeui
