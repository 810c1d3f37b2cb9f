// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

// Package duration implements the retention-horizon duration grammar
// and the compact duration formatting used by the console's tables.
//
// The grammar accepts whitespace-separated integer+unit tokens that
// are summed: "5days 2min 2s". Units range from nanoseconds to
// approximate months and years. The literal "none" (meaning "never
// prune") is not part of the grammar; the flag layer maps it to a
// disabled retention policy before calling [Parse].
package duration
