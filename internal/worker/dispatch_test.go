package worker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amongo/amongo/internal/cache"
	"github.com/amongo/amongo/internal/codes"
	"github.com/amongo/amongo/internal/dispatcher"
	"github.com/amongo/amongo/internal/packets"
	"github.com/amongo/amongo/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) Debug(msg string, keysAndValues ...any) { l.add(msg) }
func (l *mockLogger) Info(msg string, keysAndValues ...any)  { l.add(msg) }
func (l *mockLogger) Error(msg string, keysAndValues ...any) { l.add(msg) }

func (l *mockLogger) add(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

// mockBackend implements storage.Backend for testing
type mockBackend struct {
	mu sync.Mutex

	started   []*core.Session
	ended     []*core.Session
	spawns    []*core.Spawn
	movements []*core.Movement
	players   []*core.Player
	events    []*core.GameEvent
	startErr  error
}

func (b *mockBackend) Init() error  { return nil }
func (b *mockBackend) Close() error { return nil }

func (b *mockBackend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.startErr != nil {
		return b.startErr
	}
	b.started = append(b.started, s)
	return nil
}

func (b *mockBackend) EndSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ended = append(b.ended, s)
	return nil
}

func (b *mockBackend) RecordSpawn(s *core.Spawn) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spawns = append(b.spawns, s)
	return nil
}

func (b *mockBackend) RecordMovement(m *core.Movement) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.movements = append(b.movements, m)
	return nil
}

func (b *mockBackend) RecordPlayer(p *core.Player) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.players = append(b.players, p)
	return nil
}

func (b *mockBackend) RecordGameEvent(e *core.GameEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

var testCode = codes.MustCodeToNumber("ABCDEF")

func newTestManager(t *testing.T) (*Manager, *mockBackend, *dispatcher.Dispatcher) {
	t.Helper()
	backend := &mockBackend{}
	ec := cache.NewEntityCache()
	m := NewManager(Dependencies{Username: "amongo", EntityCache: ec, Logger: zerolog.Nop()}, backend)

	d, err := dispatcher.New(&mockLogger{})
	require.NoError(t, err)
	m.RegisterHandlers(d)
	t.Cleanup(d.Close)
	return m, backend, d
}

func dispatch(t *testing.T, d *dispatcher.Dispatcher, kind string, packet any) error {
	t.Helper()
	return d.Dispatch(dispatcher.Event{Kind: kind, Code: testCode, Packet: packet})
}

func joined() packets.JoinedGame {
	return packets.JoinedGame{Code: testCode, PlayerClientID: 7, HostClientID: 1}
}

func TestRegisterHandlers(t *testing.T) {
	_, _, d := newTestManager(t)
	for _, kind := range []string{KindJoinedGame, KindStartGame, KindEndGame, KindSpawn, KindData, KindUpdateGameData} {
		assert.True(t, d.HasHandler(kind), kind)
	}
}

func TestJoinedGameStartsSession(t *testing.T) {
	m, backend, d := newTestManager(t)

	require.NoError(t, dispatch(t, d, KindJoinedGame, joined()))

	require.Len(t, backend.started, 1)
	s := backend.started[0]
	assert.Equal(t, "ABCDEF", s.Code)
	assert.Equal(t, "amongo", s.Username)
	assert.Equal(t, uint32(7), s.PlayerClientID)
	assert.Equal(t, uint32(1), s.HostClientID)
	assert.Len(t, s.ID, 36)
	assert.False(t, s.StartTime.IsZero())

	got, ok := m.Session()
	require.True(t, ok)
	assert.Equal(t, s.ID, got.ID)
}

func TestSecondJoinEndsPreviousSession(t *testing.T) {
	_, backend, d := newTestManager(t)

	require.NoError(t, dispatch(t, d, KindJoinedGame, joined()))
	require.NoError(t, dispatch(t, d, KindJoinedGame, joined()))

	require.Len(t, backend.started, 2)
	require.Len(t, backend.ended, 1)
	assert.Equal(t, backend.started[0].ID, backend.ended[0].ID)
	assert.NotEqual(t, backend.started[0].ID, backend.started[1].ID)
}

func TestStartSessionBackendError(t *testing.T) {
	m, backend, d := newTestManager(t)
	backend.startErr = errors.New("disk full")

	err := dispatch(t, d, KindJoinedGame, joined())
	assert.ErrorContains(t, err, "disk full")
	_, ok := m.Session()
	assert.False(t, ok)
}

func TestRecordsRequireSession(t *testing.T) {
	_, _, d := newTestManager(t)
	err := dispatch(t, d, KindSpawn, packets.Spawn{SpawnID: 4})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestWrongPacketType(t *testing.T) {
	_, _, d := newTestManager(t)
	err := dispatch(t, d, KindJoinedGame, packets.StartGame{})
	assert.ErrorContains(t, err, "unexpected packet packets.StartGame")
}

func TestSpawnAndMovement(t *testing.T) {
	m, backend, d := newTestManager(t)
	require.NoError(t, dispatch(t, d, KindJoinedGame, joined()))

	spawn := packets.Spawn{
		SpawnID: 4,
		OwnerID: 7,
		Components: []packets.Component{{NetID: 1}, {NetID: 2}, {NetID: 3}},
	}
	// The client caches spawns before dispatching them.
	m.deps.EntityCache.AddSpawn(spawn)
	require.NoError(t, dispatch(t, d, KindSpawn, spawn))

	require.Len(t, backend.spawns, 1)
	assert.Equal(t, []uint32{1, 2, 3}, backend.spawns[0].NetIDs)
	assert.Equal(t, uint32(7), backend.spawns[0].OwnerID)

	require.NoError(t, dispatch(t, d, KindData, packets.Data{
		NetID:    3,
		Sequence: 5,
		Position: packets.Vector2{X: 1.5, Y: -2},
		Velocity: packets.Vector2{X: 0.5},
	}))

	assert.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return len(backend.movements) == 1
	}, time.Second, 5*time.Millisecond)

	backend.mu.Lock()
	mv := backend.movements[0]
	backend.mu.Unlock()
	assert.Equal(t, uint32(7), mv.OwnerID)
	assert.Equal(t, uint16(5), mv.Sequence)
	assert.Equal(t, core.Position2D{X: 1.5, Y: -2}, mv.Position)
	assert.Equal(t, core.Position2D{X: 0.5}, mv.Velocity)
	assert.Equal(t, backend.started[0].ID, mv.SessionID)
}

func TestMovementForUnknownNetIDIsDropped(t *testing.T) {
	m, backend, d := newTestManager(t)
	require.NoError(t, dispatch(t, d, KindJoinedGame, joined()))

	require.NoError(t, dispatch(t, d, KindData, packets.Data{NetID: 99}))
	d.Close()

	assert.Empty(t, backend.movements)
	err := m.handleMovement(dispatcher.Event{Kind: KindData, Packet: packets.Data{NetID: 99}})
	assert.ErrorIs(t, err, ErrTooEarlyForMovement)
}

func TestPlayersAndGameEvents(t *testing.T) {
	m, backend, d := newTestManager(t)
	require.NoError(t, dispatch(t, d, KindJoinedGame, joined()))

	require.NoError(t, dispatch(t, d, KindUpdateGameData, packets.RPC{
		NetID: 1,
		Body: packets.UpdateGameData{Players: []packets.PlayerData{
			{PlayerID: 0, Name: "red", Color: packets.ColorRed, Tasks: []packets.Task{{ID: 1, Completed: true}, {ID: 2}}},
			{PlayerID: 1, Name: "blue", Color: packets.ColorBlue, Impostor: true, Dead: true},
		}},
	}))
	require.NoError(t, dispatch(t, d, KindStartGame, packets.StartGame{Code: testCode}))
	require.NoError(t, dispatch(t, d, KindEndGame, packets.EndGame{Code: testCode, Reason: packets.GameOverReason(0)}))

	// Close drains the buffered handlers.
	d.Close()
	require.NoError(t, m.EndSession(time.Now()))

	require.Len(t, backend.players, 2)
	assert.Equal(t, "red", backend.players[0].Color)
	assert.Equal(t, 2, backend.players[0].Tasks)
	assert.Equal(t, 1, backend.players[0].TasksComplete)
	assert.True(t, backend.players[1].Impostor)
	assert.True(t, backend.players[1].Dead)

	// start and end are separate buffers, so their order is not fixed.
	require.Len(t, backend.events, 2)
	reasons := map[string]string{}
	for _, ev := range backend.events {
		reasons[ev.Type] = ev.Reason
	}
	assert.Equal(t, map[string]string{
		core.GameStarted: "",
		core.GameEnded:   packets.GameOverReason(0).String(),
	}, reasons)

	require.Len(t, backend.ended, 1)
	assert.False(t, backend.ended[0].EndTime.IsZero())
}

func TestUpdateGameDataWrongBody(t *testing.T) {
	_, _, d := newTestManager(t)
	err := dispatch(t, d, KindUpdateGameData, packets.RPC{Body: packets.SyncSettings{}})
	// Buffered: the enqueue succeeds and the handler logs the failure.
	assert.NoError(t, err)
}

func TestEndSessionWithoutSession(t *testing.T) {
	m, _, _ := newTestManager(t)
	assert.ErrorIs(t, m.EndSession(time.Now()), ErrNoSession)
}
