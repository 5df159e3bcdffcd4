// Package hazel implements the reliable datagram layer the game protocol runs
// on: packet-type framing, acknowledgements, pings and the disconnect
// handshake, all over a single connected UDP socket.
package hazel

import "fmt"

// PacketType is the first byte of every datagram.
type PacketType uint8

const (
	Normal     PacketType = 0
	Reliable   PacketType = 1
	Hello      PacketType = 8
	Disconnect PacketType = 9
	Ack        PacketType = 10
	Ping       PacketType = 12
)

func (t PacketType) String() string {
	switch t {
	case Normal:
		return "normal"
	case Reliable:
		return "reliable"
	case Hello:
		return "hello"
	case Disconnect:
		return "disconnect"
	case Ack:
		return "ack"
	case Ping:
		return "ping"
	}
	return fmt.Sprintf("packet(%d)", uint8(t))
}

// DisconnectReason is the code a server attaches to a disconnect or a failed
// join.
type DisconnectReason uint8

const (
	ReasonNone             DisconnectReason = 0
	ReasonGameFull         DisconnectReason = 1
	ReasonGameStarted      DisconnectReason = 2
	ReasonGameNotFound     DisconnectReason = 3
	ReasonCustomLegacy     DisconnectReason = 4
	ReasonOutdatedClient   DisconnectReason = 5
	ReasonBanned           DisconnectReason = 6
	ReasonKicked           DisconnectReason = 7
	ReasonCustom           DisconnectReason = 8
	ReasonInvalidUsername  DisconnectReason = 9
	ReasonHacking          DisconnectReason = 10
	ReasonForce            DisconnectReason = 16
	ReasonBadConnection    DisconnectReason = 17
	ReasonGameNotFound2    DisconnectReason = 18
	ReasonServerClosed     DisconnectReason = 19
	ReasonServerOverloaded DisconnectReason = 20
)

var reasonText = map[DisconnectReason]string{
	ReasonNone:             "no reason given",
	ReasonGameFull:         "the game is full",
	ReasonGameStarted:      "the game has already started",
	ReasonGameNotFound:     "could not find the game",
	ReasonCustomLegacy:     "custom reason",
	ReasonOutdatedClient:   "client version is out of date",
	ReasonBanned:           "banned from the game",
	ReasonKicked:           "kicked from the game",
	ReasonCustom:           "custom reason",
	ReasonInvalidUsername:  "username is not allowed",
	ReasonHacking:          "banned for hacking",
	ReasonForce:            "forcibly disconnected",
	ReasonBadConnection:    "connection is unstable",
	ReasonGameNotFound2:    "could not find the game",
	ReasonServerClosed:     "the server closed",
	ReasonServerOverloaded: "the server is overloaded",
}

func (r DisconnectReason) String() string {
	if s, ok := reasonText[r]; ok {
		return s
	}
	return fmt.Sprintf("reason %d", uint8(r))
}
