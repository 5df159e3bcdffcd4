package worker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amongo/amongo/internal/cache"
	"github.com/amongo/amongo/internal/codes"
	"github.com/amongo/amongo/internal/packets"
	"github.com/amongo/amongo/internal/storage"
	"github.com/amongo/amongo/pkg/core"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrNoSession is returned when a record arrives before JoinedGame.
	ErrNoSession = errors.New("no session in progress")
	// ErrTooEarlyForMovement is returned when movement arrives for a net id
	// whose spawn has not been seen.
	ErrTooEarlyForMovement = errors.New("too early for movement association")
)

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Username    string
	EntityCache *cache.EntityCache
	Logger      zerolog.Logger
}

// Manager turns dispatched packets into storage records
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	mu      sync.Mutex
	session *core.Session
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.EntityCache == nil {
		deps.EntityCache = cache.NewEntityCache()
	}
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

// Session returns a copy of the session being recorded.
func (m *Manager) Session() (core.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return core.Session{}, false
	}
	return *m.session, true
}

// StartSession ends any open session and starts recording j.
func (m *Manager) StartSession(j packets.JoinedGame, at time.Time) (*core.Session, error) {
	if err := m.EndSession(at); err != nil && !errors.Is(err, ErrNoSession) {
		m.deps.Logger.Warn().Err(err).Msg("Failed to end previous session")
	}

	code, err := codes.NumberToCode(j.Code)
	if err != nil {
		code = fmt.Sprintf("%d", j.Code)
	}

	s := &core.Session{
		ID:             uuid.NewString(),
		Code:           code,
		Username:       m.deps.Username,
		PlayerClientID: j.PlayerClientID,
		HostClientID:   j.HostClientID,
		StartTime:      at,
	}
	if err := m.backend.StartSession(s); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	m.mu.Lock()
	m.session = s
	m.mu.Unlock()

	m.deps.Logger.Info().Str("session", s.ID).Str("code", s.Code).Msg("Recording session")
	return s, nil
}

// EndSession stamps the end time on the open session and hands it to the
// backend. Drain buffered handlers first so no record lands after it.
func (m *Manager) EndSession(at time.Time) error {
	m.mu.Lock()
	s := m.session
	m.session = nil
	m.mu.Unlock()

	if s == nil {
		return ErrNoSession
	}
	ended := *s
	ended.EndTime = at
	if err := m.backend.EndSession(&ended); err != nil {
		return fmt.Errorf("failed to end session %s: %w", s.ID, err)
	}

	m.deps.Logger.Info().Str("session", s.ID).Dur("duration", at.Sub(s.StartTime)).Msg("Session recorded")
	return nil
}

func (m *Manager) sessionID() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return "", ErrNoSession
	}
	return m.session.ID, nil
}
