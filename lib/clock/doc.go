// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source so that code which
// sleeps, ticks, or backs off can be tested deterministically.
//
// Production code takes a [Clock] and is given [Real]. Tests construct
// a [FakeClock] with [Fake], hand it to the code under test, and drive
// time explicitly with [FakeClock.Advance]. [FakeClock.WaitForTimers]
// closes the race between a goroutine registering a timer and the test
// advancing past it.
package clock
