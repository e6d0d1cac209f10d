// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"github.com/google/uuid"

	"github.com/bureau-foundation/areasearch/lib/world"
)

// Type names a message in an Envelope.
type Type string

const (
	TypeUseCircuitCode        Type = "UseCircuitCode"
	TypeRegionHandshake       Type = "RegionHandshake"
	TypeAgentMovementComplete Type = "AgentMovementComplete"
	TypeDisableSimulator      Type = "DisableSimulator"
	TypeTeleportRequest       Type = "TeleportRequest"
	TypeTeleportFailed        Type = "TeleportFailed"
	TypeObjectUpdate          Type = "ObjectUpdate"
	TypeKillObject            Type = "KillObject"
	TypeObjectSelect          Type = "ObjectSelect"
	TypeObjectDeselect        Type = "ObjectDeselect"
	TypeObjectProperties      Type = "ObjectProperties"
	TypeUUIDNameRequest       Type = "UUIDNameRequest"
	TypeUUIDNameReply         Type = "UUIDNameReply"
	TypeUUIDGroupNameRequest  Type = "UUIDGroupNameRequest"
	TypeUUIDGroupNameReply    Type = "UUIDGroupNameReply"
)

// UseCircuitCode opens a session. The simulator answers with a
// RegionHandshake per region in view and an AgentMovementComplete for
// the starting region.
type UseCircuitCode struct {
	AgentID uuid.UUID `cbor:"agent_id"`
	Name    string    `cbor:"name"`
}

// RegionHandshake announces a region the client is now connected to.
type RegionHandshake struct {
	Region   world.RegionHandle `cbor:"region"`
	Name     string             `cbor:"name"`
	Endpoint string             `cbor:"endpoint"`
}

// AgentMovementComplete tells the client which region the agent is in
// after login, a teleport, or a border crossing.
type AgentMovementComplete struct {
	Region world.RegionHandle `cbor:"region"`
}

// DisableSimulator drops a region from the client's view. Objects of
// that region are no longer valid.
type DisableSimulator struct {
	Region world.RegionHandle `cbor:"region"`
}

// TeleportRequest asks the simulator to move the agent to a region.
type TeleportRequest struct {
	Region world.RegionHandle `cbor:"region"`
}

// TeleportFailed reports a rejected TeleportRequest.
type TeleportFailed struct {
	Region world.RegionHandle `cbor:"region"`
	Reason string             `cbor:"reason"`
}

// ObjectData is one object in an ObjectUpdate.
type ObjectData struct {
	ID              uuid.UUID     `cbor:"id"`
	LocalID         uint32        `cbor:"local_id"`
	Kind            world.Kind    `cbor:"kind"`
	Flags           world.Flags   `cbor:"flags"`
	ParentID        uuid.UUID     `cbor:"parent_id"`
	ParentIsAvatar  bool          `cbor:"parent_is_avatar,omitempty"`
	AttachmentPoint uint8         `cbor:"attachment_point,omitempty"`
	Position        world.Vector3 `cbor:"position"`
	Scale           world.Vector3 `cbor:"scale"`
}

// ObjectUpdate announces new or changed objects of one region.
type ObjectUpdate struct {
	Region  world.RegionHandle `cbor:"region"`
	Objects []ObjectData       `cbor:"objects"`
}

// KillObject removes objects of one region by local id.
type KillObject struct {
	Region   world.RegionHandle `cbor:"region"`
	LocalIDs []uint32           `cbor:"local_ids"`
}

// ObjectSelect asks the region to select objects on the agent's
// behalf, which makes it reply with ObjectProperties for each.
type ObjectSelect struct {
	Region   world.RegionHandle `cbor:"region"`
	LocalIDs []uint32           `cbor:"local_ids"`
}

// ObjectDeselect releases a selection made by ObjectSelect.
type ObjectDeselect struct {
	Region   world.RegionHandle `cbor:"region"`
	LocalIDs []uint32           `cbor:"local_ids"`
}

// PropertiesData carries the extended properties of one object.
type PropertiesData struct {
	ID          uuid.UUID `cbor:"id"`
	OwnerID     uuid.UUID `cbor:"owner_id"`
	GroupID     uuid.UUID `cbor:"group_id"`
	Name        string    `cbor:"name"`
	Description string    `cbor:"description"`
	TouchName   string    `cbor:"touch_name,omitempty"`
	SitName     string    `cbor:"sit_name,omitempty"`
}

// ObjectProperties is a region's reply to ObjectSelect. One select may
// be answered by several ObjectProperties messages, in any order.
type ObjectProperties struct {
	Region  world.RegionHandle `cbor:"region"`
	Objects []PropertiesData   `cbor:"objects"`
}

// UUIDNameRequest asks for the display names of agents.
type UUIDNameRequest struct {
	IDs []uuid.UUID `cbor:"ids"`
}

// UUIDGroupNameRequest asks for the names of groups.
type UUIDGroupNameRequest struct {
	IDs []uuid.UUID `cbor:"ids"`
}

// NameEntry is one resolved name.
type NameEntry struct {
	ID   uuid.UUID `cbor:"id"`
	Name string    `cbor:"name"`
}

// UUIDNameReply answers UUIDNameRequest. Unknown ids are omitted.
type UUIDNameReply struct {
	Names []NameEntry `cbor:"names"`
}

// UUIDGroupNameReply answers UUIDGroupNameRequest.
type UUIDGroupNameReply struct {
	Names []NameEntry `cbor:"names"`
}

// ObjectDataFrom converts a world snapshot to its wire form.
func ObjectDataFrom(object world.Object) ObjectData {
	return ObjectData{
		ID:              object.ID,
		LocalID:         object.LocalID,
		Kind:            object.Kind,
		Flags:           object.Flags,
		ParentID:        object.ParentID,
		ParentIsAvatar:  object.ParentIsAvatar,
		AttachmentPoint: object.AttachmentPoint,
		Position:        object.Position,
		Scale:           object.Scale,
	}
}

// Object converts wire data to a world snapshot in region.
func (d ObjectData) Object(region world.RegionHandle) world.Object {
	return world.Object{
		ID:              d.ID,
		LocalID:         d.LocalID,
		Region:          region,
		Kind:            d.Kind,
		Flags:           d.Flags,
		ParentID:        d.ParentID,
		ParentIsAvatar:  d.ParentIsAvatar,
		AttachmentPoint: d.AttachmentPoint,
		Position:        d.Position,
		Scale:           d.Scale,
	}
}
