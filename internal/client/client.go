// Package client drives a player through the handshake, join and spawn
// sequence of a game server and exposes the resulting movement stream.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/amongo/amongo/internal/cache"
	"github.com/amongo/amongo/internal/channel"
	"github.com/amongo/amongo/internal/codes"
	"github.com/amongo/amongo/internal/dispatcher"
	"github.com/amongo/amongo/internal/hazel"
	"github.com/amongo/amongo/internal/packets"
)

// MoveEvent is a movement update observed for any network transform after
// Spawn has started.
type MoveEvent struct {
	NetID    uint32
	Sequence uint16
	Position packets.Vector2
	Velocity packets.Vector2
}

// Client is one player. Operations are meant to be called in sequence:
// Connect, JoinGame, Spawn, then Move as often as needed.
type Client struct {
	cfg        Config
	logger     *slog.Logger
	dial       Dialer
	dispatcher *dispatcher.Dispatcher
	cache      *cache.EntityCache
	tracer     hazel.Tracer
	events     channel.Channel[MoveEvent]

	// mu guards everything below. Never log while holding it: the log
	// context handler calls back into LogAttrs.
	mu         sync.Mutex
	conn       *hazel.Conn
	served     chan struct{}
	addr       string
	state      State
	session    Session
	components []packets.Component
	sequence   uint16
	moving     bool
	options    packets.GameOptions
	hasOptions bool
	fatal      error
	waiters    map[uint64]*waiter
	nextToken  uint64
	closed     bool
}

func New(cfg Config, opts ...Option) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		cfg:     cfg,
		logger:  slog.Default(),
		dial:    hazel.Dial,
		events:  channel.New[MoveEvent](cfg.EventBuffer),
		waiters: make(map[uint64]*waiter),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = cache.NewEntityCache()
	}
	return c
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the current session. It is the zero value before a join.
func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Events streams movement of every transform once Spawn has been called.
// It is closed by Close.
func (c *Client) Events() <-chan MoveEvent {
	return c.events.Receive()
}

// GameOptions returns the last settings synced by the host.
func (c *Client) GameOptions() (packets.GameOptions, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.options, c.hasOptions
}

// Cache returns the entity cache fed by this client.
func (c *Client) Cache() *cache.EntityCache {
	return c.cache
}

// LogAttrs describes the client for log records.
func (c *Client) LogAttrs() []slog.Attr {
	c.mu.Lock()
	defer c.mu.Unlock()
	attrs := []slog.Attr{slog.String("state", c.state.String())}
	if c.addr != "" {
		attrs = append(attrs, slog.String("server", c.addr))
	}
	if c.session.Code != "" {
		attrs = append(attrs,
			slog.String("code", c.session.Code),
			slog.Uint64("clientId", uint64(c.session.PlayerClientID)),
		)
	}
	return attrs
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) hazelOptions() hazel.Options {
	return hazel.Options{
		AckTimeout:        c.cfg.AckTimeout,
		Retries:           c.cfg.Retries,
		DisconnectTimeout: c.cfg.DisconnectTimeout,
		Logger:            c.logger,
		Tracer:            c.tracer,
		Verbose:           c.cfg.Verbose,
	}
}

// Connect opens a transport to addr and sends the Hello handshake.
func (c *Client) Connect(ctx context.Context, addr string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("connect: %w", hazel.ErrClosed)
	}
	if c.state != Disconnected {
		s := c.state
		c.mu.Unlock()
		return stateError("connect", ErrAlreadyConnected, s)
	}
	c.fatal = nil
	c.mu.Unlock()

	if err := c.connect(ctx, addr); err != nil {
		return err
	}
	c.setState(Connected)
	return nil
}

func (c *Client) connect(ctx context.Context, addr string) error {
	conn, err := c.dial(ctx, addr, c.hazelOptions())
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}

	served := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.served = served
	c.addr = addr
	c.mu.Unlock()
	go c.serve(conn, served)

	hello, err := c.hello()
	if err != nil {
		_ = conn.Close()
		return err
	}
	if err := conn.SendReliable(ctx, hazel.Hello, hello); err != nil {
		_ = conn.Close()
		return fmt.Errorf("hello to %s: %w", addr, err)
	}

	c.logger.Info("Connected", "server", addr, "username", c.cfg.Username)
	return nil
}

func (c *Client) hello() ([]byte, error) {
	w := packets.NewWriter()
	w.WriteUint8(0)
	w.WriteInt32(c.cfg.Version)
	w.WriteString(c.cfg.Username)
	if err := w.Err(); err != nil {
		return nil, fmt.Errorf("encoding hello: %w", err)
	}
	return w.Bytes(), nil
}

// current returns the live transport and the channel closed when its serve
// loop exits.
func (c *Client) current() (*hazel.Conn, <-chan struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, nil, ErrNotConnected
	}
	return c.conn, c.served, nil
}

// Done is closed when the current transport stops delivering payloads,
// whether the server dropped it or Disconnect was called. It is nil before
// Connect.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.served
}

// Err explains why Done was closed.
func (c *Client) Err() error {
	return c.connErr()
}

// connErr explains why the serve loop of the current transport ended.
func (c *Client) connErr() error {
	c.mu.Lock()
	fatal, conn := c.fatal, c.conn
	c.mu.Unlock()
	if fatal != nil {
		return fatal
	}
	if conn != nil {
		if err := conn.Err(); err != nil {
			return err
		}
	}
	return hazel.ErrClosed
}

// JoinGame asks the server for a seat in the room named by code. Redirects
// are followed up to Config.MaxRedirects times.
func (c *Client) JoinGame(ctx context.Context, code string) (Session, error) {
	number, err := codes.CodeToNumber(code)
	if err != nil {
		return Session{}, err
	}

	c.mu.Lock()
	if c.state != Connected {
		s := c.state
		c.mu.Unlock()
		return Session{}, stateError("join", ErrNotConnected, s)
	}
	c.state = Joining
	c.session = Session{}
	c.mu.Unlock()
	c.cache.Reset()

	session, err := c.join(ctx, strings.ToUpper(code), number)
	if err != nil {
		c.mu.Lock()
		if c.state == Joining {
			c.state = Connected
		}
		c.mu.Unlock()
		return Session{}, err
	}
	return session, nil
}

func (c *Client) join(ctx context.Context, code string, number int32) (Session, error) {
	request, err := packets.EncodePayloads(packets.JoinGameRequest{Code: number})
	if err != nil {
		return Session{}, err
	}

	for redirects := 0; ; redirects++ {
		conn, served, err := c.current()
		if err != nil {
			return Session{}, err
		}

		token, result := c.await(isJoinResponse)
		if err := conn.SendReliable(ctx, hazel.Reliable, request); err != nil {
			c.cancelWait(token)
			return Session{}, fmt.Errorf("sending join request: %w", err)
		}

		v, err := c.wait(ctx, token, result, served)
		if err != nil {
			return Session{}, fmt.Errorf("awaiting join response: %w", err)
		}

		switch resp := v.(type) {
		case packets.JoinedGame:
			session := Session{
				Code:           code,
				Number:         number,
				PlayerClientID: resp.PlayerClientID,
				HostClientID:   resp.HostClientID,
			}
			if name, err := codes.NumberToCode(resp.Code); err == nil {
				session.Code = name
			}
			c.mu.Lock()
			c.session = session
			c.state = Joined
			c.mu.Unlock()
			c.logger.Info("Joined game",
				"code", session.Code,
				"clientId", session.PlayerClientID,
				"hostId", session.HostClientID,
				"others", len(resp.OtherClientIDs))
			return session, nil

		case packets.JoinGameError:
			c.logger.Warn("Join refused", "code", code, "reason", resp.Reason)
			return Session{}, &JoinError{Reason: resp.Reason, Message: resp.Message}

		case packets.Redirect:
			if redirects >= c.cfg.MaxRedirects {
				// The server keeps bouncing us; leave rather than stay on a
				// host that never took the join.
				if err := c.Disconnect(ctx); err != nil {
					c.logger.Debug("Leaving after redirect limit", "error", err)
				}
				return Session{}, fmt.Errorf("joining %s after %d redirects: %w", code, redirects, ErrTooManyRedirects)
			}
			c.logger.Info("Redirected", "code", code, "to", resp.Addr.String(), "redirect", redirects+1)
			if err := c.redirect(ctx, resp.Addr.String()); err != nil {
				return Session{}, err
			}
		}
	}
}

func isJoinResponse(v any) bool {
	switch v.(type) {
	case packets.JoinedGame, packets.JoinGameError, packets.Redirect:
		return true
	}
	return false
}

// redirect tears down the current transport and repeats the handshake
// against addr. The new transport replaces the old one before anything is
// sent on it.
func (c *Client) redirect(ctx context.Context, addr string) error {
	c.mu.Lock()
	old, served := c.conn, c.served
	c.conn = nil
	c.mu.Unlock()

	if old != nil {
		if err := old.Disconnect(ctx); err != nil {
			c.logger.Debug("Disconnect before redirect", "error", err)
			_ = old.Close()
		}
		select {
		case <-served:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := c.connect(ctx, addr); err != nil {
		c.setState(Disconnected)
		return fmt.Errorf("following redirect: %w", err)
	}
	return nil
}

// Spawn asks the server to place the player in the game scene, then checks
// the name and color with the host. Movement of every transform is streamed
// on Events from the moment Spawn is called.
func (c *Client) Spawn(ctx context.Context, color packets.Color) error {
	c.mu.Lock()
	if c.state != Joined {
		s := c.state
		c.mu.Unlock()
		return stateError("spawn", ErrNotJoined, s)
	}
	c.state = Spawning
	c.moving = true
	session := c.session
	conn, served := c.conn, c.served
	c.mu.Unlock()

	err := c.spawn(ctx, conn, served, session, color)
	if err != nil {
		c.mu.Lock()
		if c.state == Spawning {
			c.state = Joined
		}
		c.mu.Unlock()
		return err
	}
	c.setState(Ready)
	return nil
}

func (c *Client) spawn(ctx context.Context, conn *hazel.Conn, served <-chan struct{}, session Session, color packets.Color) error {
	token, result := c.await(func(v any) bool {
		s, ok := v.(packets.Spawn)
		return ok && s.OwnerID == session.PlayerClientID && len(s.Components) > 0
	})

	scene, err := packets.EncodePayloads(packets.GameData{
		Code: session.Number,
		Parts: []packets.GameDataPart{
			packets.SceneChange{ClientID: session.PlayerClientID, Scene: packets.SceneOnlineGame},
		},
	})
	if err != nil {
		c.cancelWait(token)
		return err
	}
	if err := conn.SendReliable(ctx, hazel.Reliable, scene); err != nil {
		c.cancelWait(token)
		return fmt.Errorf("sending scene change: %w", err)
	}

	v, err := c.wait(ctx, token, result, served)
	if err != nil {
		return fmt.Errorf("awaiting spawn: %w", err)
	}
	spawned := v.(packets.Spawn)

	c.mu.Lock()
	c.components = spawned.Components
	c.sequence = 0
	c.mu.Unlock()

	control := spawned.Components[0].NetID
	check, err := packets.EncodePayloads(packets.GameDataTo{
		Code:      session.Number,
		Recipient: session.HostClientID,
		Parts: []packets.GameDataPart{
			packets.RPC{NetID: control, Body: packets.CheckName{Name: c.cfg.Username}},
			packets.RPC{NetID: control, Body: packets.CheckColor{Color: color}},
		},
	})
	if err != nil {
		return err
	}
	if err := conn.SendReliable(ctx, hazel.Reliable, check); err != nil {
		return fmt.Errorf("sending name and color check: %w", err)
	}

	c.logger.Info("Spawned",
		"spawnId", spawned.SpawnID,
		"control", control,
		"transform", movementComponent(spawned.Components),
		"color", color)
	return nil
}

// movementComponent picks the network transform of a player spawn: the
// third component, or the last one on shorter spawns.
func movementComponent(comps []packets.Component) uint32 {
	if len(comps) > 2 {
		return comps[2].NetID
	}
	return comps[len(comps)-1].NetID
}

// Move sends a best-effort position update for the spawned player.
func (c *Client) Move(ctx context.Context, position, velocity packets.Vector2) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state != Ready {
		s := c.state
		c.mu.Unlock()
		return stateError("move", ErrNotReady, s)
	}
	c.sequence++
	data := packets.Data{
		NetID:    movementComponent(c.components),
		Sequence: c.sequence,
		Position: position,
		Velocity: velocity,
	}
	code, conn := c.session.Number, c.conn
	c.mu.Unlock()

	body, err := packets.EncodePayloads(packets.GameData{
		Code:  code,
		Parts: []packets.GameDataPart{data},
	})
	if err != nil {
		return err
	}
	return conn.SendNormal(body)
}

// Disconnect leaves the server gracefully. The client can Connect again
// afterwards.
func (c *Client) Disconnect(ctx context.Context) error {
	conn, served := c.detach()
	if conn == nil {
		return nil
	}

	err := conn.Disconnect(ctx)
	select {
	case <-served:
	case <-ctx.Done():
		_ = conn.Close()
	}
	c.logger.Info("Disconnected")
	return err
}

// Close drops the transport without a handshake and closes Events. A
// closed client cannot Connect again.
func (c *Client) Close() error {
	conn, served := c.detach()
	if conn != nil {
		_ = conn.Close()
		<-served
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.events.Close()
	}
	return nil
}

func (c *Client) detach() (*hazel.Conn, <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conn, served := c.conn, c.served
	c.conn = nil
	c.state = Disconnected
	c.session = Session{}
	c.components = nil
	c.moving = false
	return conn, served
}

// fail records a fatal stream error and closes conn.
func (c *Client) fail(conn *hazel.Conn, err error) {
	c.mu.Lock()
	if c.conn == conn {
		c.fatal = err
		c.state = Disconnected
	}
	c.mu.Unlock()
	c.logger.Error("Closing desynchronized connection", "error", err)
	_ = conn.Close()
}
