// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package simulator

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/areasearch/lib/wire"
	"github.com/bureau-foundation/areasearch/lib/world"
)

var (
	adjectives = []string{
		"Rusty", "Glowing", "Tiny", "Ancient", "Velvet", "Floating", "Crooked",
		"Polished", "Mossy", "Silent", "Copper", "Painted", "Broken", "Lucky",
	}
	nouns = []string{
		"Chair", "Table", "Lantern", "Fountain", "Crate", "Bench", "Statue",
		"Sign", "Door", "Barrel", "Lamp", "Rug", "Shelf", "Clock", "Kiosk",
	}
	firstNames = []string{
		"Alice", "Bruno", "Chen", "Dagny", "Emeka", "Freya", "Goran", "Hana",
	}
	groupNames  = []string{"Builders Guild", "Night Market", "Harbour Watch", "Sandbox Regulars"}
	regionNames = []string{
		"Ahern", "Bonifacio", "Clementina", "Dore", "Eelgrass", "Fairweather",
		"Gibbous", "Hollow", "Isola", "Juniper", "Kestrel", "Lumen",
	}
)

const (
	agentCount    = 8
	avatarsPerSim = 3
)

// hasher derives deterministic digests from the grid seed.
type hasher struct {
	inner *blake3.Hasher
}

func newHasher(seed uint64) *hasher {
	var seedBytes [8]byte
	binary.BigEndian.PutUint64(seedBytes[:], seed)
	key := blake3.Sum256(append([]byte("areasearch simulator seed "), seedBytes[:]...))
	inner, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("simulator: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return &hasher{inner: inner}
}

// digest hashes (label, region, index).
func (h *hasher) digest(label string, region world.RegionHandle, index uint32) [32]byte {
	var buffer [12]byte
	binary.BigEndian.PutUint64(buffer[:8], uint64(region))
	binary.BigEndian.PutUint32(buffer[8:], index)
	h.inner.Reset()
	h.inner.Write([]byte(label))
	h.inner.Write(buffer[:])
	var result [32]byte
	copy(result[:], h.inner.Sum(nil))
	return result
}

// id folds the first half of a digest into a version 8 UUID.
func id(digest [32]byte) uuid.UUID {
	var result uuid.UUID
	copy(result[:], digest[:16])
	result[6] = (result[6] & 0x0f) | 0x80
	result[8] = (result[8] & 0x3f) | 0x80
	return result
}

func pick[T any](options []T, b byte) T {
	return options[int(b)%len(options)]
}

type entity struct {
	object     world.Object
	properties wire.PropertiesData
}

type population struct {
	agents  map[uuid.UUID]string
	groups  map[uuid.UUID]string
	regions []*region
}

func generate(seed uint64, gridSize, objectsPerRegion int) population {
	h := newHasher(seed)
	result := population{
		agents: make(map[uuid.UUID]string),
		groups: make(map[uuid.UUID]string),
	}

	agents := make([]uuid.UUID, agentCount)
	for i := range agents {
		digest := h.digest("agent", 0, uint32(i))
		agents[i] = id(digest)
		result.agents[agents[i]] = firstNames[i%len(firstNames)] + " Resident"
	}
	groups := make([]uuid.UUID, len(groupNames))
	for i := range groups {
		groups[i] = id(h.digest("group", 0, uint32(i)))
		result.groups[groups[i]] = groupNames[i]
	}

	origin := uint32(1000)
	for y := range gridSize {
		for x := range gridSize {
			handle := world.HandleFromGrid(origin+uint32(x), origin+uint32(y))
			index := y*gridSize + x
			name := regionNames[index%len(regionNames)]
			if index >= len(regionNames) {
				name = fmt.Sprintf("%s %d", name, index/len(regionNames)+1)
			}
			result.regions = append(result.regions,
				populate(h, world.Region{Handle: handle, Name: name}, objectsPerRegion, agents, groups))
		}
	}
	return result
}

// populate fills one region: terrain first, a few avatars with
// attachments, then prims, some of them linked children, physical,
// temporary, unselectable, or vegetation.
func populate(h *hasher, info world.Region, count int, agents, groups []uuid.UUID) *region {
	r := newRegion(info)
	add := func(digest [32]byte, object world.Object, properties wire.PropertiesData) {
		object.ID = id(digest)
		object.Region = info.Handle
		properties.ID = object.ID
		r.add(entity{object: object, properties: properties})
	}

	terrain := h.digest("terrain", info.Handle, 0)
	add(terrain, world.Object{Kind: world.KindTerrain}, wire.PropertiesData{Name: "Terrain"})

	var lastRoot uuid.UUID
	for i := 1; i < count; i++ {
		digest := h.digest("object", info.Handle, uint32(i))
		owner := agents[int(digest[16])%len(agents)]
		var group uuid.UUID
		if digest[17]%3 != 0 {
			group = groups[int(digest[18])%len(groups)]
		}
		name := pick(adjectives, digest[19]) + " " + pick(nouns, digest[20])
		description := ""
		if digest[21]%2 == 0 {
			description = "A " + name + " from the " + info.Name + " market"
		}
		properties := wire.PropertiesData{OwnerID: owner, GroupID: group, Name: name, Description: description}
		if digest[22]%4 == 0 {
			properties.TouchName = "Use"
		}
		if digest[22]%5 == 0 {
			properties.SitName = "Sit"
		}

		position := world.Vector3{
			X: float32(digest[23]) * world.RegionWidth / 256,
			Y: float32(digest[24]) * world.RegionWidth / 256,
			Z: 20 + float32(digest[25]%80),
		}
		object := world.Object{Kind: world.KindPrim, Flags: world.FlagSelectable, Position: position,
			Scale: world.Vector3{X: 1, Y: 1, Z: 1}}

		switch {
		case i <= avatarsPerSim:
			agent := agents[int(digest[26])%len(agents)]
			avatar := world.Object{Kind: world.KindAvatar, Position: position}
			add(h.digest("avatar", info.Handle, uint32(i)), avatar, wire.PropertiesData{OwnerID: agent})
			attachment := world.Object{
				Kind: world.KindPrim, Flags: world.FlagSelectable, ParentID: r.last().object.ID,
				ParentIsAvatar: true, AttachmentPoint: 1 + digest[27]%38, Position: position,
			}
			properties.OwnerID = agent
			properties.Name = pick(adjectives, digest[31]) + " Hat"
			add(h.digest("attachment", info.Handle, uint32(i)), attachment, properties)
			continue
		case digest[28]%50 == 0:
			object.Kind = world.KindTree
		case digest[28]%50 == 1:
			object.Kind = world.KindGrass
		case lastRoot != uuid.Nil && digest[29]%10 == 0:
			object.ParentID = lastRoot
		}
		switch flags := digest[30] % 20; {
		case flags < 3:
			object.Flags |= world.FlagUsePhysics
		case flags < 5:
			object.Flags |= world.FlagTemporary
		case flags == 5:
			object.Flags |= world.FlagTemporaryOnRez
		case flags == 6:
			object.Flags &^= world.FlagSelectable
		}

		add(digest, object, properties)
		if object.ParentID == uuid.Nil {
			lastRoot = id(digest)
		}
	}
	return r
}
