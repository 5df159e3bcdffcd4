package gormstorage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amongo/amongo/internal/database"
	"github.com/amongo/amongo/internal/geo"
	"github.com/amongo/amongo/internal/model"
	"github.com/amongo/amongo/internal/queue"
	"github.com/amongo/amongo/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

const defaultBatchSize = 500

// ErrNoSession is returned when a record arrives outside a session.
var ErrNoSession = errors.New("no session started")

// Dependencies wires the backend to a database.
type Dependencies struct {
	// Connect opens the database on the manager, e.g. ConnectSQLite.
	Connect   func(*database.Manager) error
	Logger    zerolog.Logger
	BatchSize int
}

// Backend writes sessions to Postgres or SQLite through gorm. Movements
// are queued and written in batches; everything else is written at once.
type Backend struct {
	deps      Dependencies
	db        *database.Manager
	movements *queue.Queue[model.Movement]

	mu      sync.Mutex
	session *core.Session
	paths   map[uint32][]core.Position2D
}

// New creates a gorm backend. Nothing is opened until Init.
func New(deps Dependencies) *Backend {
	if deps.BatchSize <= 0 {
		deps.BatchSize = defaultBatchSize
	}
	return &Backend{
		deps:      deps,
		movements: queue.New[model.Movement](deps.BatchSize),
		paths:     make(map[uint32][]core.Position2D),
	}
}

// Init connects and migrates the schema.
func (b *Backend) Init() error {
	if b.deps.Connect == nil {
		return fmt.Errorf("no database configured")
	}
	b.db = database.NewManager(b.deps.Logger)
	if err := b.deps.Connect(b.db); err != nil {
		return err
	}
	return b.db.Setup()
}

// Close writes any queued movements and closes the database.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.flush()
	if cerr := b.db.Close(); err == nil {
		err = cerr
	}
	return err
}

func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	row := model.Session{
		ID:             s.ID,
		Code:           s.Code,
		Username:       s.Username,
		PlayerClientID: s.PlayerClientID,
		HostClientID:   s.HostClientID,
		StartTime:      s.StartTime,
	}
	if err := b.db.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	b.session = s
	b.paths = make(map[uint32][]core.Position2D)
	b.deps.Logger.Info().Str("session", s.ID).Str("code", s.Code).Msg("Session recording started")
	return nil
}

// EndSession flushes queued movements, stamps the end time and writes one
// track per object that moved at least twice.
func (b *Backend) EndSession(s *core.Session) error {
	if err := b.flush(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	if s == nil {
		s = b.session
	}
	end := s.EndTime
	if end.IsZero() {
		end = time.Now()
	}

	err := b.db.DB.Model(&model.Session{}).
		Where("id = ?", s.ID).
		Update("end_time", end).Error
	if err != nil {
		return fmt.Errorf("failed to update session end: %w", err)
	}

	tracks := make([]model.Track, 0, len(b.paths))
	for netID, positions := range b.paths {
		ls, err := geo.PathFrom(positions)
		if err != nil {
			continue
		}
		tracks = append(tracks, model.Track{
			SessionID: s.ID,
			NetID:     netID,
			Points:    len(positions),
			Length:    geo.PathLength(ls),
			Path:      ls.AsGeometry(),
		})
	}
	if len(tracks) > 0 {
		if err := b.db.DB.Omit(clause.Associations).Create(&tracks).Error; err != nil {
			return fmt.Errorf("failed to insert tracks: %w", err)
		}
	}

	b.deps.Logger.Info().Str("session", s.ID).Int("tracks", len(tracks)).Msg("Session recording ended")
	b.session = nil
	b.paths = make(map[uint32][]core.Position2D)
	return nil
}

func (b *Backend) RecordSpawn(s *core.Spawn) error {
	if err := b.requireSession(); err != nil {
		return err
	}
	netIDs, err := json.Marshal(s.NetIDs)
	if err != nil {
		return err
	}
	row := model.Spawn{
		SessionID: s.SessionID,
		Time:      s.Time,
		SpawnID:   s.SpawnID,
		OwnerID:   s.OwnerID,
		NetIDs:    datatypes.JSON(netIDs),
	}
	return b.db.DB.Omit(clause.Associations).Create(&row).Error
}

// RecordMovement queues the movement and writes the batch once it is full.
func (b *Backend) RecordMovement(m *core.Movement) error {
	pt, err := geo.PointFrom(m.Position)
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.session == nil {
		b.mu.Unlock()
		return ErrNoSession
	}
	b.paths[m.NetID] = append(b.paths[m.NetID], m.Position)
	b.mu.Unlock()

	full := b.movements.Push(model.Movement{
		SessionID: m.SessionID,
		Time:      m.Time,
		NetID:     m.NetID,
		OwnerID:   m.OwnerID,
		Sequence:  m.Sequence,
		Position:  pt,
		VelocityX: m.Velocity.X,
		VelocityY: m.Velocity.Y,
	})
	if full {
		return b.flush()
	}
	return nil
}

func (b *Backend) RecordPlayer(p *core.Player) error {
	if err := b.requireSession(); err != nil {
		return err
	}
	cosmetics, err := json.Marshal(map[string]uint32{"hat": p.Hat, "pet": p.Pet, "skin": p.Skin})
	if err != nil {
		return err
	}
	row := model.Player{
		SessionID:     p.SessionID,
		Time:          p.Time,
		PlayerID:      p.PlayerID,
		Name:          p.Name,
		Color:         p.Color,
		Cosmetics:     datatypes.JSON(cosmetics),
		Disconnected:  p.Disconnected,
		Impostor:      p.Impostor,
		Dead:          p.Dead,
		Tasks:         p.Tasks,
		TasksComplete: p.TasksComplete,
	}
	return b.db.DB.Omit(clause.Associations).Create(&row).Error
}

func (b *Backend) RecordGameEvent(e *core.GameEvent) error {
	if err := b.requireSession(); err != nil {
		return err
	}
	row := model.GameEvent{
		SessionID: e.SessionID,
		Time:      e.Time,
		Type:      e.Type,
		Reason:    e.Reason,
	}
	return b.db.DB.Omit(clause.Associations).Create(&row).Error
}

func (b *Backend) requireSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return ErrNoSession
	}
	return nil
}

// flush writes every queued movement. On failure the batch is requeued.
func (b *Backend) flush() error {
	batch := b.movements.Drain()
	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	if err := b.db.DB.Omit(clause.Associations).CreateInBatches(batch, b.deps.BatchSize).Error; err != nil {
		b.movements.Requeue(batch)
		return fmt.Errorf("failed to insert %d movements: %w", len(batch), err)
	}
	b.deps.Logger.Debug().Int("count", len(batch)).Dur("duration", time.Since(start)).Msg("Wrote movements")
	return nil
}
