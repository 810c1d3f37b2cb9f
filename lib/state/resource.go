// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"time"

	"github.com/taskscope/taskscope/lib/wire"
)

// Resource is the aggregator's view of one instrumented concurrency
// primitive or I/O handle. Type name and creation location are fixed
// at creation; attributes (e.g. a channel's queue depth) are replaced
// wholesale by each update that mentions the resource.
type Resource struct {
	ID           wire.ResourceID
	ConcreteType string
	Kind         string
	Location     wire.Location

	// Attributes is replaced, never mutated in place, so snapshots
	// that share the slice stay consistent.
	Attributes []wire.Attribute

	FirstSeen   time.Time
	CompletedAt time.Time
}

// newResource creates a Resource from its first wire record.
func newResource(record wire.ResourceRecord, now time.Time) *Resource {
	resource := &Resource{
		ID:           record.ID,
		ConcreteType: record.ConcreteType,
		Kind:         record.Kind,
		Location:     record.Location,
		FirstSeen:    now,
	}
	resource.merge(record)
	return resource
}

// merge replaces the resource's mutable fields with the record's
// values.
func (resource *Resource) merge(record wire.ResourceRecord) {
	if record.Attributes != nil {
		resource.Attributes = record.Attributes
	}
}

// Dropped reports whether the instrumentation has dropped the
// resource.
func (resource *Resource) Dropped() bool { return !resource.CompletedAt.IsZero() }
