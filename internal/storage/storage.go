package storage

import "github.com/amongo/amongo/pkg/core"

// Backend is the interface all storage implementations must satisfy.
// Calls for one session arrive in order: StartSession, any number of
// Record calls, then EndSession.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.Session) error
	EndSession(s *core.Session) error

	// Recording
	RecordSpawn(s *core.Spawn) error
	RecordMovement(m *core.Movement) error
	RecordPlayer(p *core.Player) error
	RecordGameEvent(e *core.GameEvent) error
}

// Uploadable is an optional interface for storage backends that produce
// an exported file per session.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
