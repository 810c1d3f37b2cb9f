// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"fmt"
	"time"
)

// RetentionPolicy decides how long completed and dropped entities stay
// in the registries. The zero value keeps everything forever; use
// [RetainFor] for a finite horizon.
//
// Pruning runs synchronously inside every Aggregator.Apply rather than
// on a timer, so the visible entity count is always consistent with
// the stream's latest "now" and there is never a second mutator racing
// the aggregator.
type RetentionPolicy struct {
	horizon time.Duration
	enabled bool
}

// RetainForever returns a policy that never prunes.
func RetainForever() RetentionPolicy {
	return RetentionPolicy{}
}

// RetainFor returns a policy that prunes a completed entity once the
// stream time has moved more than horizon past its completion.
// Returns an error for a negative horizon; a zero horizon is valid
// and prunes completed entities on the next update.
func RetainFor(horizon time.Duration) (RetentionPolicy, error) {
	if horizon < 0 {
		return RetentionPolicy{}, fmt.Errorf("retention horizon must not be negative, got %v", horizon)
	}
	return RetentionPolicy{horizon: horizon, enabled: true}, nil
}

// Enabled reports whether the policy ever prunes.
func (policy RetentionPolicy) Enabled() bool { return policy.enabled }

// Horizon returns the configured horizon. Zero when the policy is
// disabled.
func (policy RetentionPolicy) Horizon() time.Duration { return policy.horizon }

// ShouldPrune reports whether an entity completed at completedAt is
// eligible for removal at stream time now. Entities that are still
// live (zero completedAt) are never pruned. The comparison is strictly
// greater-than: an entity completed exactly horizon ago survives.
func (policy RetentionPolicy) ShouldPrune(completedAt, now time.Time) bool {
	if !policy.enabled || completedAt.IsZero() {
		return false
	}
	return now.Sub(completedAt) > policy.horizon
}

// String renders the policy for logs and the status bar.
func (policy RetentionPolicy) String() string {
	if !policy.enabled {
		return "forever"
	}
	return policy.horizon.String()
}
