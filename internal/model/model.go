package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Session{},
	&Spawn{},
	&Movement{},
	&Player{},
	&GameEvent{},
	&Track{},
}

// Session is one join of the client into a game lobby.
// Sessions are keyed by the uuid the recorder assigns on JoinedGame.
type Session struct {
	ID             string     `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	Code           string     `json:"code" gorm:"size:6;index:idx_session_code"`
	Username       string     `json:"username" gorm:"size:64"`
	PlayerClientID uint32     `json:"playerClientId"`
	HostClientID   uint32     `json:"hostClientId"`
	StartTime      time.Time  `json:"startTime" gorm:"type:timestamptz;index:idx_session_start"`
	EndTime        *time.Time `json:"endTime" gorm:"type:timestamptz;default:NULL"`
}

func (*Session) TableName() string {
	return "sessions"
}

// Spawn is a network object created by the server
type Spawn struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID string         `json:"sessionId" gorm:"size:36;index:idx_spawn_session_id"`
	Session   Session        `gorm:"foreignkey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Time      time.Time      `json:"time" gorm:"type:timestamptz;"`
	SpawnID   uint32         `json:"spawnId"`
	OwnerID   uint32         `json:"ownerId" gorm:"index:idx_spawn_owner_id"`
	NetIDs    datatypes.JSON `json:"netIds" gorm:"type:jsonb;default:'[]'"` // component net ids in order
}

func (*Spawn) TableName() string {
	return "spawns"
}

// Movement is one network transform update
type Movement struct {
	ID        uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID string     `json:"sessionId" gorm:"size:36;index:idx_movement_session_id"`
	Session   Session    `gorm:"foreignkey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Time      time.Time  `json:"time" gorm:"type:timestamptz;"`
	NetID     uint32     `json:"netId" gorm:"index:idx_movement_net_id"`
	OwnerID   uint32     `json:"ownerId"`
	Sequence  uint16     `json:"sequence"`
	Position  geom.Point `json:"position"`
	VelocityX float64    `json:"velocityX"`
	VelocityY float64    `json:"velocityY"`
}

func (*Movement) TableName() string {
	return "movements"
}

// Player is a snapshot of a roster entry
type Player struct {
	ID            uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID     string         `json:"sessionId" gorm:"size:36;index:idx_player_session_id"`
	Session       Session        `gorm:"foreignkey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Time          time.Time      `json:"time" gorm:"type:timestamptz;"`
	PlayerID      uint8          `json:"playerId"`
	Name          string         `json:"name" gorm:"size:64"`
	Color         string         `json:"color" gorm:"size:16"`
	Cosmetics     datatypes.JSON `json:"cosmetics" gorm:"type:jsonb;default:'{}'"` // hat, pet and skin ids
	Disconnected  bool           `json:"disconnected" gorm:"default:false"`
	Impostor      bool           `json:"impostor" gorm:"default:false"`
	Dead          bool           `json:"dead" gorm:"default:false"`
	Tasks         int            `json:"tasks"`
	TasksComplete int            `json:"tasksComplete"`
}

func (*Player) TableName() string {
	return "players"
}

// GameEvent marks a game starting or ending
type GameEvent struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID string    `json:"sessionId" gorm:"size:36;index:idx_game_event_session_id"`
	Session   Session   `gorm:"foreignkey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;"`
	Type      string    `json:"type" gorm:"size:32"`
	Reason    string    `json:"reason" gorm:"size:64"`
}

func (*GameEvent) TableName() string {
	return "game_events"
}

// Track is the path one net object travelled during a session, written when
// the session ends.
type Track struct {
	gorm.Model
	SessionID string        `json:"sessionId" gorm:"size:36;index:idx_track_session_id"`
	Session   Session       `gorm:"foreignkey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	NetID     uint32        `json:"netId"`
	Points    int           `json:"points"`
	Length    float64       `json:"length"`
	Path      geom.Geometry `json:"path"`
}

func (*Track) TableName() string {
	return "tracks"
}
