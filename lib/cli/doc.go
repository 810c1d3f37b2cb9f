// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli carries the shared plumbing for the taskscope binaries:
// exit-code signaling, configuration errors with hints, and the
// startup logger used before the TUI owns the terminal.
package cli
