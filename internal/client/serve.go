package client

import (
	"errors"

	"github.com/amongo/amongo/internal/dispatcher"
	"github.com/amongo/amongo/internal/hazel"
	"github.com/amongo/amongo/internal/packets"
)

// serve decodes the payloads of one transport until it closes. Malformed
// records are logged and skipped; a desynchronized stream ends the session.
func (c *Client) serve(conn *hazel.Conn, served chan struct{}) {
	defer close(served)

	for b := range conn.Payloads() {
		ps, err := packets.DecodePayloads(b, packets.WithWarnings(c.warn))
		for _, p := range ps {
			c.route(p)
		}
		if err == nil {
			continue
		}
		if errors.Is(err, packets.ErrDesync) {
			c.fail(conn, err)
			return
		}
		c.logger.Warn("Dropping malformed payload", "error", err, "size", len(b))
	}
}

func (c *Client) warn(w packets.Warning) {
	c.logger.Debug("Decode warning", "warning", w.String())
}

func (c *Client) route(p packets.Payload) {
	c.offer(p)

	switch p := p.(type) {
	case packets.GameData:
		c.routeParts(p.Code, p.Parts)
	case packets.GameDataTo:
		c.routeParts(p.Code, p.Parts)
	case packets.JoinedGame:
		c.dispatch(p.Tag().String(), "payload", p.Code, p)
	case packets.PlayerJoined:
		c.logger.Info("Player joined", "clientId", p.ClientID, "hostId", p.HostClientID)
		c.dispatch(p.Tag().String(), "payload", p.Code, p)
	case packets.StartGame:
		c.logger.Info("Game started")
		c.dispatch(p.Tag().String(), "payload", p.Code, p)
	case packets.EndGame:
		c.logger.Info("Game ended", "reason", p.Reason, "showAd", p.ShowAd)
		c.dispatch(p.Tag().String(), "payload", p.Code, p)
	case packets.Redirect, packets.JoinGameError:
		c.dispatch(p.Tag().String(), "payload", 0, p)
	case packets.JoinGameRequest:
		c.logger.Debug("Ignoring client-bound join request")
	case packets.UnknownPayload:
		c.logger.Debug("Unhandled payload", "tag", p.Type, "size", len(p.Data))
	}
}

func (c *Client) routeParts(code int32, parts []packets.GameDataPart) {
	for _, part := range parts {
		c.offer(part)

		switch part := part.(type) {
		case packets.Spawn:
			c.cache.AddSpawn(part)
		case packets.Data:
			c.cache.RecordMovement(part)
			c.publishMove(part)
		case packets.RPC:
			c.routeRPC(code, part)
			continue
		case packets.SceneChange, packets.Ready, packets.UnknownGameData:
		}
		c.dispatch(part.Tag().String(), "gamedata", code, part)
	}
}

func (c *Client) routeRPC(code int32, rpc packets.RPC) {
	switch body := rpc.Body.(type) {
	case packets.SyncSettings:
		c.mu.Lock()
		c.options = body.Options
		c.hasOptions = true
		c.mu.Unlock()
		c.logger.Debug("Game options synced",
			"map", body.Options.Map,
			"impostors", body.Options.Impostors,
			"players", body.Options.MaxPlayers)
	case packets.UpdateGameData:
		c.cache.UpsertPlayers(body.Players...)
	case packets.SetName, packets.CheckName, packets.SetColor, packets.CheckColor,
		packets.VotingComplete, packets.MurderPlayer, packets.SetInfected,
		packets.SetStartCounter, packets.OpaqueRPC:
	}
	c.dispatch(rpc.Body.Flag().String(), "rpc", code, rpc)
}

func (c *Client) publishMove(d packets.Data) {
	ev := MoveEvent{NetID: d.NetID, Sequence: d.Sequence, Position: d.Position, Velocity: d.Velocity}

	// Events is closed under mu, so the send must happen under it too.
	c.mu.Lock()
	if !c.moving || c.closed {
		c.mu.Unlock()
		return
	}
	sent := c.events.TrySend(ev)
	c.mu.Unlock()

	if !sent {
		c.logger.Debug("Movement stream full, dropping event", "netId", d.NetID)
	}
}

func (c *Client) dispatch(name, level string, code int32, packet any) {
	if c.dispatcher == nil {
		return
	}
	kind := level + "/" + name
	err := c.dispatcher.Dispatch(dispatcher.Event{Kind: kind, Code: code, Packet: packet})
	if err != nil && !errors.Is(err, dispatcher.ErrNoHandler) {
		c.logger.Warn("Event handler failed", "kind", kind, "error", err)
	}
}
