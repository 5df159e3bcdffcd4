package memory

import (
	"errors"
	"sync"

	"github.com/amongo/amongo/internal/config"
	"github.com/amongo/amongo/pkg/core"
)

// ErrNoSession is returned when a record arrives outside a session.
var ErrNoSession = errors.New("no session started")

// TrackRecord groups every movement of one net object
type TrackRecord struct {
	NetID     uint32
	OwnerID   uint32
	Movements []core.Movement
}

// Backend keeps one session in memory and exports it to JSON when it ends
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session

	spawns  []core.Spawn
	tracks  map[uint32]*TrackRecord // keyed by NetID
	players map[uint8]core.Player   // latest snapshot per PlayerID
	events  []core.GameEvent

	lastExportPath     string
	lastExportMetadata core.UploadMetadata
	mu                 sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		tracks:  make(map[uint32]*TrackRecord),
		players: make(map[uint8]core.Player),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session, discarding anything held
// from the previous one.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = s
	b.spawns = nil
	b.tracks = make(map[uint32]*TrackRecord)
	b.players = make(map[uint8]core.Player)
	b.events = nil

	return nil
}

// EndSession exports the session and forgets it.
func (b *Backend) EndSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	if s != nil {
		b.session = s
	}

	err := b.exportJSON()
	b.session = nil
	return err
}

// RecordSpawn stores a spawned object
func (b *Backend) RecordSpawn(s *core.Spawn) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.spawns = append(b.spawns, *s)
	return nil
}

// RecordMovement appends to the track of the moving object
func (b *Backend) RecordMovement(m *core.Movement) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	track, ok := b.tracks[m.NetID]
	if !ok {
		track = &TrackRecord{NetID: m.NetID, OwnerID: m.OwnerID}
		b.tracks[m.NetID] = track
	}
	track.Movements = append(track.Movements, *m)
	return nil
}

// RecordPlayer replaces the stored snapshot of the player
func (b *Backend) RecordPlayer(p *core.Player) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.players[p.PlayerID] = *p
	return nil
}

// RecordGameEvent stores a game start or end
func (b *Backend) RecordGameEvent(e *core.GameEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.events = append(b.events, *e)
	return nil
}

// GetExportedFilePath returns the file written by the last EndSession
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the file written by the last EndSession
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMetadata
}
