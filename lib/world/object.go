// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package world

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Kind is the object's primitive code.
type Kind uint8

const (
	KindPrim Kind = iota
	KindAvatar
	KindTree
	KindGrass
	KindTerrain
)

func (k Kind) String() string {
	switch k {
	case KindPrim:
		return "prim"
	case KindAvatar:
		return "avatar"
	case KindTree:
		return "tree"
	case KindGrass:
		return "grass"
	case KindTerrain:
		return "terrain"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Flags are the object update flags relevant to search.
type Flags uint32

const (
	FlagUsePhysics Flags = 1 << iota
	FlagTemporary
	FlagTemporaryOnRez
	// FlagSelectable is set when the agent may select the object.
	// Objects owned by others in no-build parcels and some
	// attachments are not selectable.
	FlagSelectable
)

// Vector3 is a position or scale in region-local meters.
type Vector3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

func (v Vector3) String() string {
	return fmt.Sprintf("<%.1f, %.1f, %.1f>", v.X, v.Y, v.Z)
}

// Object is a snapshot of one world object as last announced by its
// region.
type Object struct {
	ID      uuid.UUID
	LocalID uint32
	Region  RegionHandle
	Kind    Kind
	Flags   Flags

	// ParentID is uuid.Nil for root prims.
	ParentID uuid.UUID
	// ParentIsAvatar is set on the root prim of an attached linkset.
	ParentIsAvatar bool
	// AttachmentPoint is non-zero on every prim of an attachment.
	AttachmentPoint uint8

	Position Vector3
	Scale    Vector3
}

func (o *Object) IsAvatar() bool     { return o.Kind == KindAvatar }
func (o *Object) IsTerrain() bool    { return o.Kind == KindTerrain }
func (o *Object) IsRoot() bool       { return o.ParentID == uuid.Nil }
func (o *Object) IsAttachment() bool { return o.AttachmentPoint != 0 }
func (o *Object) IsSelectable() bool { return o.Flags&FlagSelectable != 0 }
func (o *Object) IsPhysical() bool   { return o.Flags&FlagUsePhysics != 0 }

// IsTemporary reports temporary objects, including those rezzed with
// the temporary-on-rez flag.
func (o *Object) IsTemporary() bool {
	return o.Flags&(FlagTemporary|FlagTemporaryOnRez) != 0
}

// IsRootEdit reports whether the object is the root of its linkset for
// editing purposes: a root prim, or a prim whose parent is an avatar.
func (o *Object) IsRootEdit() bool {
	return o.IsRoot() || o.ParentIsAvatar
}

type localKey struct {
	region  RegionHandle
	localID uint32
}

// ObjectList is the set of objects announced by connected regions.
// Iteration by index (Count, Object) mirrors how the viewer walks its
// object list; indexes shift when objects are removed, so a sweep
// concurrent with removals may skip or revisit an object.
type ObjectList struct {
	mu      sync.RWMutex
	objects []*Object
	index   map[uuid.UUID]int
	byLocal map[localKey]uuid.UUID
}

// NewObjectList returns an empty ObjectList.
func NewObjectList() *ObjectList {
	return &ObjectList{
		index:   make(map[uuid.UUID]int),
		byLocal: make(map[localKey]uuid.UUID),
	}
}

// Upsert stores a copy of object, replacing any previous snapshot with
// the same id.
func (l *ObjectList) Upsert(object Object) {
	stored := object
	l.mu.Lock()
	defer l.mu.Unlock()

	if position, ok := l.index[object.ID]; ok {
		previous := l.objects[position]
		delete(l.byLocal, localKey{previous.Region, previous.LocalID})
		l.objects[position] = &stored
	} else {
		l.index[object.ID] = len(l.objects)
		l.objects = append(l.objects, &stored)
	}
	l.byLocal[localKey{object.Region, object.LocalID}] = object.ID
}

// Remove deletes the object with id. Returns false if it was unknown.
func (l *ObjectList) Remove(id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.removeLocked(id)
}

// RemoveLocal deletes the object a region knows by localID.
func (l *ObjectList) RemoveLocal(region RegionHandle, localID uint32) (uuid.UUID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.byLocal[localKey{region, localID}]
	if !ok {
		return uuid.Nil, false
	}
	l.removeLocked(id)
	return id, true
}

// RemoveRegion deletes every object of region and returns how many
// were removed.
func (l *ObjectList) RemoveRegion(region RegionHandle) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var doomed []uuid.UUID
	for _, object := range l.objects {
		if object.Region == region {
			doomed = append(doomed, object.ID)
		}
	}
	for _, id := range doomed {
		l.removeLocked(id)
	}
	return len(doomed)
}

func (l *ObjectList) removeLocked(id uuid.UUID) bool {
	position, ok := l.index[id]
	if !ok {
		return false
	}
	object := l.objects[position]
	delete(l.byLocal, localKey{object.Region, object.LocalID})
	delete(l.index, id)

	last := len(l.objects) - 1
	if position != last {
		l.objects[position] = l.objects[last]
		l.index[l.objects[position].ID] = position
	}
	l.objects[last] = nil
	l.objects = l.objects[:last]
	return true
}

// Count returns the number of known objects.
func (l *ObjectList) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.objects)
}

// Object returns the object at index i, or nil when i is out of range.
func (l *ObjectList) Object(i int) *Object {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.objects) {
		return nil
	}
	return l.objects[i]
}

// FindObject returns the object with id, or nil.
func (l *ObjectList) FindObject(id uuid.UUID) *Object {
	l.mu.RLock()
	defer l.mu.RUnlock()
	position, ok := l.index[id]
	if !ok {
		return nil
	}
	return l.objects[position]
}

// FindLocal returns the object region knows by localID, or nil.
func (l *ObjectList) FindLocal(region RegionHandle, localID uint32) *Object {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.byLocal[localKey{region, localID}]
	if !ok {
		return nil
	}
	return l.objects[l.index[id]]
}
