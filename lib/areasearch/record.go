// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package areasearch

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/bureau-foundation/areasearch/lib/world"
)

// RequestState is the property request state of a Record.
type RequestState uint8

const (
	// StateNeed: properties must be requested.
	StateNeed RequestState = iota + 1
	// StateSent: included in a dispatched batch, awaiting a reply.
	StateSent
	// StateFinished: properties received. Terminal.
	StateFinished
	// StateFailed: the object vanished while pending. Revived to
	// StateNeed if the object is seen again.
	StateFailed
)

func (s RequestState) String() string {
	switch s {
	case StateNeed:
		return "need"
	case StateSent:
		return "sent"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// pending reports whether the state counts toward the pending total.
func (s RequestState) pending() bool {
	return s == StateNeed || s == StateSent
}

// legalTransition encodes the request state machine. NEED→FINISHED
// covers a reply that arrives after the watchdog requeued its request.
func legalTransition(from, to RequestState) bool {
	switch from {
	case StateNeed:
		return to == StateSent || to == StateFinished || to == StateFailed
	case StateSent:
		return to == StateNeed || to == StateFinished || to == StateFailed
	case StateFailed:
		return to == StateNeed
	default:
		return false
	}
}

// Record is the search's bookkeeping for one world object.
type Record struct {
	ID uuid.UUID
	// LocalID and Region address the object on the wire. They are
	// refreshed from the directory while the record is NEED.
	LocalID uint32
	Region  world.RegionHandle
	State   RequestState

	OwnerID     uuid.UUID
	GroupID     uuid.UUID
	Name        string
	Description string
	TouchName   string
	SitName     string

	// Listed is set while the record has a row in the result sink.
	Listed bool
	// NameRequested is set while an owner or group name the record
	// needs is being resolved.
	NameRequested bool
}
