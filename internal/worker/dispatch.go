package worker

import (
	"fmt"

	"github.com/amongo/amongo/internal/dispatcher"
	"github.com/amongo/amongo/internal/packets"
	"github.com/amongo/amongo/pkg/core"
)

// Event kinds the manager handles.
const (
	KindJoinedGame     = "payload/joined_game"
	KindStartGame      = "payload/start_game"
	KindEndGame        = "payload/end_game"
	KindSpawn          = "gamedata/spawn"
	KindData           = "gamedata/data"
	KindUpdateGameData = "rpc/update_game_data"
)

// RegisterHandlers registers all recording handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Session and spawns - sync (records below need them first)
	d.Register(KindJoinedGame, m.handleJoinedGame, dispatcher.Logged())
	d.Register(KindSpawn, m.handleSpawn, dispatcher.Logged())

	// High-volume movement - buffered
	d.Register(KindData, m.handleMovement, dispatcher.Buffered(10000), dispatcher.Logged())

	// Roster and game lifecycle - buffered
	d.Register(KindUpdateGameData, m.handlePlayers, dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(KindStartGame, m.handleStartGame, dispatcher.Buffered(100), dispatcher.Logged())
	d.Register(KindEndGame, m.handleEndGame, dispatcher.Buffered(100), dispatcher.Logged())
}

func (m *Manager) handleJoinedGame(e dispatcher.Event) error {
	j, ok := e.Packet.(packets.JoinedGame)
	if !ok {
		return fmt.Errorf("unexpected packet %T for %s", e.Packet, e.Kind)
	}
	_, err := m.StartSession(j, e.Timestamp)
	return err
}

func (m *Manager) handleSpawn(e dispatcher.Event) error {
	sp, ok := e.Packet.(packets.Spawn)
	if !ok {
		return fmt.Errorf("unexpected packet %T for %s", e.Packet, e.Kind)
	}
	sessionID, err := m.sessionID()
	if err != nil {
		return err
	}

	netIDs := make([]uint32, len(sp.Components))
	for i, c := range sp.Components {
		netIDs[i] = c.NetID
	}

	return m.backend.RecordSpawn(&core.Spawn{
		SessionID: sessionID,
		Time:      e.Timestamp,
		SpawnID:   sp.SpawnID,
		OwnerID:   sp.OwnerID,
		NetIDs:    netIDs,
	})
}

func (m *Manager) handleMovement(e dispatcher.Event) error {
	d, ok := e.Packet.(packets.Data)
	if !ok {
		return fmt.Errorf("unexpected packet %T for %s", e.Packet, e.Kind)
	}
	sessionID, err := m.sessionID()
	if err != nil {
		return err
	}

	ref, ok := m.deps.EntityCache.GetComponent(d.NetID)
	if !ok {
		return fmt.Errorf("net id %d: %w", d.NetID, ErrTooEarlyForMovement)
	}

	return m.backend.RecordMovement(&core.Movement{
		SessionID: sessionID,
		Time:      e.Timestamp,
		NetID:     d.NetID,
		OwnerID:   ref.OwnerID,
		Sequence:  d.Sequence,
		Position:  position(d.Position),
		Velocity:  position(d.Velocity),
	})
}

func (m *Manager) handlePlayers(e dispatcher.Event) error {
	rpc, ok := e.Packet.(packets.RPC)
	if !ok {
		return fmt.Errorf("unexpected packet %T for %s", e.Packet, e.Kind)
	}
	update, ok := rpc.Body.(packets.UpdateGameData)
	if !ok {
		return fmt.Errorf("unexpected rpc body %T for %s", rpc.Body, e.Kind)
	}
	sessionID, err := m.sessionID()
	if err != nil {
		return err
	}

	for _, p := range update.Players {
		done := 0
		for _, t := range p.Tasks {
			if t.Completed {
				done++
			}
		}
		err := m.backend.RecordPlayer(&core.Player{
			SessionID:     sessionID,
			Time:          e.Timestamp,
			PlayerID:      p.PlayerID,
			Name:          p.Name,
			Color:         p.Color.String(),
			Hat:           p.Hat,
			Pet:           p.Pet,
			Skin:          p.Skin,
			Disconnected:  p.Disconnected,
			Impostor:      p.Impostor,
			Dead:          p.Dead,
			Tasks:         len(p.Tasks),
			TasksComplete: done,
		})
		if err != nil {
			return fmt.Errorf("player %d: %w", p.PlayerID, err)
		}
	}
	return nil
}

func (m *Manager) handleStartGame(e dispatcher.Event) error {
	if _, ok := e.Packet.(packets.StartGame); !ok {
		return fmt.Errorf("unexpected packet %T for %s", e.Packet, e.Kind)
	}
	return m.recordGameEvent(e, core.GameStarted, "")
}

func (m *Manager) handleEndGame(e dispatcher.Event) error {
	end, ok := e.Packet.(packets.EndGame)
	if !ok {
		return fmt.Errorf("unexpected packet %T for %s", e.Packet, e.Kind)
	}
	return m.recordGameEvent(e, core.GameEnded, end.Reason.String())
}

func (m *Manager) recordGameEvent(e dispatcher.Event, typ, reason string) error {
	sessionID, err := m.sessionID()
	if err != nil {
		return err
	}
	return m.backend.RecordGameEvent(&core.GameEvent{
		SessionID: sessionID,
		Time:      e.Timestamp,
		Type:      typ,
		Reason:    reason,
	})
}

func position(v packets.Vector2) core.Position2D {
	return core.Position2D{X: float64(v.X), Y: float64(v.Y)}
}
