// Package core holds the storage-agnostic records produced while a client
// is in a game. Storage backends translate them into their own models.
package core

import "time"

// Session is one successful join, from JoinedGame until disconnect.
type Session struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	Username       string    `json:"username"`
	PlayerClientID uint32    `json:"playerClientId"`
	HostClientID   uint32    `json:"hostClientId"`
	StartTime      time.Time `json:"startTime"`
	EndTime        time.Time `json:"endTime,omitzero"`
}

// Position2D is a map position in game units.
type Position2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// UploadMetadata describes an exported recording file.
type UploadMetadata struct {
	Code     string  `json:"code"`
	Username string  `json:"username"`
	Duration float64 `json:"duration"`
	Spawns   int     `json:"spawns"`
}
