package core

import "time"

// Spawn is a network object the server created.
type Spawn struct {
	SessionID string    `json:"sessionId"`
	Time      time.Time `json:"time"`
	SpawnID   uint32    `json:"spawnId"`
	OwnerID   uint32    `json:"ownerId"`
	NetIDs    []uint32  `json:"netIds"`
}

// Movement is one position update of a network transform.
type Movement struct {
	SessionID string     `json:"sessionId"`
	Time      time.Time  `json:"time"`
	NetID     uint32     `json:"netId"`
	OwnerID   uint32     `json:"ownerId"`
	Sequence  uint16     `json:"sequence"`
	Position  Position2D `json:"position"`
	Velocity  Position2D `json:"velocity"`
}

// Player is a roster entry as of Time.
type Player struct {
	SessionID     string    `json:"sessionId"`
	Time          time.Time `json:"time"`
	PlayerID      uint8     `json:"playerId"`
	Name          string    `json:"name"`
	Color         string    `json:"color"`
	Hat           uint32    `json:"hat"`
	Pet           uint32    `json:"pet"`
	Skin          uint32    `json:"skin"`
	Disconnected  bool      `json:"disconnected"`
	Impostor      bool      `json:"impostor"`
	Dead          bool      `json:"dead"`
	Tasks         int       `json:"tasks"`
	TasksComplete int       `json:"tasksComplete"`
}

// Game event types.
const (
	GameStarted = "start_game"
	GameEnded   = "end_game"
)

// GameEvent marks a game starting or ending inside a session.
type GameEvent struct {
	SessionID string    `json:"sessionId"`
	Time      time.Time `json:"time"`
	Type      string    `json:"type"`
	Reason    string    `json:"reason,omitempty"`
}
