// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package duration

import (
	"fmt"
	"time"
)

// Format renders a duration compactly for table columns, picking the
// largest unit that keeps the value readable:
//
//	750ns  12.3µs  45.6ms  12.34s  5m32s  2h5m  3d4h
//
// With asciiOnly set, microseconds render as "us" instead of "µs" for
// terminals without Unicode support.
func Format(d time.Duration, asciiOnly bool) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		unit := "µs"
		if asciiOnly {
			unit = "us"
		}
		return fmt.Sprintf("%.1f%s", float64(d.Nanoseconds())/1e3, unit)
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1e6)
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	case d < Day:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dd%dh", int(d/Day), int(d.Hours())%24)
	}
}
