package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/amongo/amongo/pkg/core"
	"github.com/amongo/amongo/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
	Logger *slog.Logger
}

// Backend streams session records to an ingest server over WebSocket.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config) *Backend {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(cfg.Logger),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope queues the message without waiting for an ack.
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartSession sends the session and waits for the server ack. The message
// is kept for replay after a reconnect.
func (b *Backend) StartSession(s *core.Session) error {
	data, err := marshalEnvelope(streaming.TypeStartSession, streaming.StartSessionPayload{Session: s})
	if err != nil {
		return err
	}

	b.conn.mu.Lock()
	b.conn.startMsg = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeStartSession, ackTimeout)
}

// EndSession sends end_session and waits for the server ack.
func (b *Backend) EndSession(s *core.Session) error {
	data, err := marshalEnvelope(streaming.TypeEndSession, s)
	if err == nil {
		err = b.conn.sendAndWait(data, streaming.TypeEndSession, ackTimeout)
	}

	b.conn.mu.Lock()
	b.conn.startMsg = nil
	b.conn.mu.Unlock()

	return err
}

func (b *Backend) RecordSpawn(s *core.Spawn) error {
	return b.sendEnvelope(streaming.TypeSpawn, s)
}

func (b *Backend) RecordMovement(m *core.Movement) error {
	return b.sendEnvelope(streaming.TypeMovement, m)
}

func (b *Backend) RecordPlayer(p *core.Player) error {
	return b.sendEnvelope(streaming.TypePlayer, p)
}

func (b *Backend) RecordGameEvent(e *core.GameEvent) error {
	return b.sendEnvelope(streaming.TypeGameEvent, e)
}
