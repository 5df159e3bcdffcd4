package cache

import (
	"sync"

	"github.com/amongo/amongo/internal/packets"
)

// ComponentRef locates a network component inside the spawn that created it.
type ComponentRef struct {
	SpawnID uint32
	OwnerID uint32
	Index   int
	Tag     uint8
}

// EntityCache keeps the objects the server has spawned, the player roster and
// the last known movement of each network transform. Inbound packets are
// looked up here on the hot path, so nothing in it touches storage.
type EntityCache struct {
	m          sync.Mutex
	Spawns     map[uint32]packets.Spawn
	Components map[uint32]ComponentRef
	Players    map[uint8]packets.PlayerData
	Movements  map[uint32]packets.Data
}

func NewEntityCache() *EntityCache {
	c := &EntityCache{}
	c.Reset()
	return c
}

// Reset forgets everything. Called when a new session starts.
func (c *EntityCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Spawns = make(map[uint32]packets.Spawn)
	c.Components = make(map[uint32]ComponentRef)
	c.Players = make(map[uint8]packets.PlayerData)
	c.Movements = make(map[uint32]packets.Data)
}

// AddSpawn records s and indexes each of its components by net id.
func (c *EntityCache) AddSpawn(s packets.Spawn) {
	c.m.Lock()
	defer c.m.Unlock()
	c.Spawns[s.SpawnID] = s
	for i, comp := range s.Components {
		c.Components[comp.NetID] = ComponentRef{
			SpawnID: s.SpawnID,
			OwnerID: s.OwnerID,
			Index:   i,
			Tag:     comp.Tag,
		}
	}
}

func (c *EntityCache) GetSpawn(spawnID uint32) (packets.Spawn, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	s, ok := c.Spawns[spawnID]
	return s, ok
}

// SpawnsOwnedBy returns every spawn whose owner is clientID.
func (c *EntityCache) SpawnsOwnedBy(clientID uint32) []packets.Spawn {
	c.m.Lock()
	defer c.m.Unlock()
	var out []packets.Spawn
	for _, s := range c.Spawns {
		if s.OwnerID == clientID {
			out = append(out, s)
		}
	}
	return out
}

func (c *EntityCache) GetComponent(netID uint32) (ComponentRef, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	ref, ok := c.Components[netID]
	return ref, ok
}

// UpsertPlayers replaces the roster entries for the given players.
func (c *EntityCache) UpsertPlayers(players ...packets.PlayerData) {
	c.m.Lock()
	defer c.m.Unlock()
	for _, p := range players {
		c.Players[p.PlayerID] = p
	}
}

func (c *EntityCache) GetPlayer(id uint8) (packets.PlayerData, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	p, ok := c.Players[id]
	return p, ok
}

// PlayerCount returns the number of players on the roster.
func (c *EntityCache) PlayerCount() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.Players)
}

// Counts returns how many spawns and moving transforms are known.
func (c *EntityCache) Counts() (spawns, transforms int) {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.Spawns), len(c.Movements)
}

// RecordMovement stores d unless a newer sequence is already known for the
// same net id. Sequences wrap at 16 bits.
func (c *EntityCache) RecordMovement(d packets.Data) bool {
	c.m.Lock()
	defer c.m.Unlock()
	if last, ok := c.Movements[d.NetID]; ok && !sequenceNewer(d.Sequence, last.Sequence) {
		return false
	}
	c.Movements[d.NetID] = d
	return true
}

func (c *EntityCache) LastMovement(netID uint32) (packets.Data, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	d, ok := c.Movements[netID]
	return d, ok
}

func sequenceNewer(a, b uint16) bool {
	return a != b && a-b < 1<<15
}
