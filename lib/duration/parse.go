// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package duration

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Approximate calendar units. A month is the mean Gregorian month
// (30.44 days) and a year is the Julian year (365.25 days). These are
// protocol-independent display conveniences, not calendar arithmetic.
const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = time.Duration(30.44 * float64(Day))
	Year  = time.Duration(365.25 * float64(Day))
)

// unitSuffixes maps every accepted unit spelling to its duration.
// Spellings follow the common humantime forms: a short symbol, an
// abbreviated name, and singular/plural words.
var unitSuffixes = map[string]time.Duration{
	"ns": time.Nanosecond, "nsec": time.Nanosecond,
	"us": time.Microsecond, "µs": time.Microsecond, "usec": time.Microsecond,
	"ms": time.Millisecond, "msec": time.Millisecond,
	"s": time.Second, "sec": time.Second, "second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": Day, "day": Day, "days": Day,
	"w": Week, "week": Week, "weeks": Week,
	"month": Month, "months": Month,
	"y": Year, "year": Year, "years": Year,
}

// Parse parses a duration in the retention grammar: one or more
// whitespace-separated tokens, each an unsigned integer immediately
// followed by a unit suffix, summed into a single duration.
//
//	"5days 2min 2s" → 120*time.Hour + 2*time.Minute + 2*time.Second
//
// The error for a malformed input names the offending token so the
// CLI can report it verbatim.
func Parse(input string) (time.Duration, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty duration")
	}

	var total time.Duration
	for _, token := range fields {
		parsed, err := parseToken(token)
		if err != nil {
			return 0, err
		}
		total += parsed
	}
	return total, nil
}

// parseToken parses a single value+unit token like "5days" or "250ms".
func parseToken(token string) (time.Duration, error) {
	split := strings.IndexFunc(token, func(r rune) bool {
		return !unicode.IsDigit(r)
	})
	if split <= 0 {
		return 0, fmt.Errorf("duration token %q: expected an integer followed by a unit", token)
	}

	value, err := strconv.ParseUint(token[:split], 10, 63)
	if err != nil {
		return 0, fmt.Errorf("duration token %q: %w", token, err)
	}

	unit, ok := unitSuffixes[strings.ToLower(token[split:])]
	if !ok {
		return 0, fmt.Errorf("duration token %q: unknown unit %q", token, token[split:])
	}

	return time.Duration(value) * unit, nil
}
