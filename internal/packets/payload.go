package packets

import (
	"fmt"
	"net/netip"

	"github.com/amongo/amongo/internal/hazel"
)

// Payload is a top-level record carried in a Normal or Reliable datagram.
// UnknownPayload covers tags without their own type.
type Payload interface {
	Tag() PayloadTag
	payload()
}

type GameData struct {
	Code  int32
	Parts []GameDataPart
}

// GameDataTo is GameData addressed to a single client.
type GameDataTo struct {
	Code      int32
	Recipient uint32
	Parts     []GameDataPart
}

// JoinedGame confirms a join. OtherClientIDs lists the players already in
// the room.
type JoinedGame struct {
	Code           int32
	PlayerClientID uint32
	HostClientID   uint32
	OtherClientIDs []uint32
}

// PlayerJoined is broadcast by the server when another client joins.
type PlayerJoined struct {
	Code         int32
	ClientID     uint32
	HostClientID uint32
}

// Redirect tells the client to repeat its request against another server.
type Redirect struct {
	Addr netip.AddrPort
}

type JoinGameRequest struct {
	Code int32
}

// JoinGameError is the server refusing a join. Message is only set for
// custom reasons.
type JoinGameError struct {
	Reason  hazel.DisconnectReason
	Message string
}

type StartGame struct {
	Code int32
}

type EndGame struct {
	Code   int32
	Reason GameOverReason
	ShowAd bool
}

type UnknownPayload struct {
	Type PayloadTag
	Data []byte
}

func (GameData) Tag() PayloadTag         { return TagGameData }
func (GameDataTo) Tag() PayloadTag       { return TagGameDataTo }
func (JoinedGame) Tag() PayloadTag       { return TagJoinedGame }
func (PlayerJoined) Tag() PayloadTag     { return TagJoinGame }
func (Redirect) Tag() PayloadTag         { return TagRedirect }
func (JoinGameRequest) Tag() PayloadTag  { return TagJoinGame }
func (JoinGameError) Tag() PayloadTag    { return TagJoinGame }
func (StartGame) Tag() PayloadTag        { return TagStartGame }
func (EndGame) Tag() PayloadTag          { return TagEndGame }
func (u UnknownPayload) Tag() PayloadTag { return u.Type }

func (GameData) payload()        {}
func (GameDataTo) payload()      {}
func (JoinedGame) payload()      {}
func (PlayerJoined) payload()    {}
func (Redirect) payload()        {}
func (JoinGameRequest) payload() {}
func (JoinGameError) payload()   {}
func (StartGame) payload()       {}
func (EndGame) payload()         {}
func (UnknownPayload) payload()  {}

// PlayerJoined shares its tag with JoinGameError. A room code always has
// its top bit set and a reason never does, so the first body byte tells
// them apart.
const joinedMarker = 0x80

// EncodePayloads encodes ps back to back.
func EncodePayloads(ps ...Payload) ([]byte, error) {
	w := NewWriter()
	for _, p := range ps {
		w.WritePayload(p)
	}
	if err := w.Err(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// WritePayload writes p as a length-prefixed record.
func (w *Writer) WritePayload(p Payload) {
	w.Record(uint8(p.Tag()), func(w *Writer) {
		switch p := p.(type) {
		case GameData:
			w.WriteInt32(p.Code)
			for _, part := range p.Parts {
				writeGameDataPart(w, part)
			}
		case GameDataTo:
			w.WriteInt32(p.Code)
			w.WritePacked(p.Recipient)
			for _, part := range p.Parts {
				writeGameDataPart(w, part)
			}
		case JoinedGame:
			w.WriteInt32(p.Code)
			w.WriteUint32(p.PlayerClientID)
			w.WriteUint32(p.HostClientID)
			w.WritePacked(uint32(len(p.OtherClientIDs)))
			for _, id := range p.OtherClientIDs {
				w.WritePacked(id)
			}
		case PlayerJoined:
			if uint32(p.Code)&0x80000000 == 0 {
				w.fail(fmt.Errorf("player joined with room code %d: top bit must be set", p.Code))
				return
			}
			w.WriteInt32(p.Code)
			w.WriteUint32(p.ClientID)
			w.WriteUint32(p.HostClientID)
		case Redirect:
			if !p.Addr.Addr().Is4() {
				w.fail(fmt.Errorf("redirect to %s: only IPv4 endpoints are representable", p.Addr))
				return
			}
			ip := p.Addr.Addr().As4()
			w.WriteBytes(ip[:])
			w.WriteUint16(p.Addr.Port())
		case JoinGameRequest:
			w.WriteInt32(p.Code)
		case JoinGameError:
			if uint8(p.Reason) >= joinedMarker {
				w.fail(fmt.Errorf("join error reason %d is not representable", uint8(p.Reason)))
				return
			}
			w.WriteUint8(uint8(p.Reason))
			if p.Reason == hazel.ReasonCustom {
				w.WriteString(p.Message)
			}
		case StartGame:
			w.WriteInt32(p.Code)
		case EndGame:
			w.WriteInt32(p.Code)
			w.WriteUint8(uint8(p.Reason))
			w.WriteBool(p.ShowAd)
		case UnknownPayload:
			w.WriteBytes(p.Data)
		default:
			w.fail(fmt.Errorf("unsupported payload %T", p))
		}
	})
}

// DecodePayloads decodes every record in b. On error the records decoded
// before the failure are returned alongside it.
func DecodePayloads(b []byte, opts ...DecodeOption) ([]Payload, error) {
	d := newDecoder(opts)
	r := NewReader(b)
	var out []Payload
	for r.Remaining() > 0 {
		err := d.record(r, LevelPayload, func(tag uint8, body *Reader) error {
			p, err := d.readPayload(PayloadTag(tag), body)
			if err != nil {
				return err
			}
			out = append(out, p)
			return nil
		})
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func (d *decoder) readPayload(tag PayloadTag, r *Reader) (Payload, error) {
	switch tag {
	case TagGameData:
		code, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		parts, err := d.readGameDataParts(r)
		if err != nil {
			return nil, err
		}
		return GameData{Code: code, Parts: parts}, nil

	case TagGameDataTo:
		code, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		recipient, err := r.ReadPacked()
		if err != nil {
			return nil, err
		}
		parts, err := d.readGameDataParts(r)
		if err != nil {
			return nil, err
		}
		return GameDataTo{Code: code, Recipient: recipient, Parts: parts}, nil

	case TagJoinedGame:
		return readJoinedGame(r)

	case TagRedirect:
		ip, err := r.ReadBytes(4)
		if err != nil {
			return nil, err
		}
		port, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		addr := netip.AddrFrom4([4]byte(ip))
		return Redirect{Addr: netip.AddrPortFrom(addr, port)}, nil

	case TagJoinGame:
		return d.readJoinGame(r)

	case TagStartGame:
		code, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		return StartGame{Code: code}, nil

	case TagEndGame:
		var e EndGame
		var err error
		if e.Code, err = r.ReadInt32(); err != nil {
			return nil, err
		}
		reason, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		e.Reason = GameOverReason(reason)
		if e.ShowAd, err = r.ReadBool(); err != nil {
			return nil, err
		}
		return e, nil
	}

	d.warning(Warning{Kind: WarnUnknownTag, Level: LevelPayload, Tag: uint8(tag), Declared: r.Remaining()})
	return UnknownPayload{Type: tag, Data: r.ReadRest()}, nil
}

func readJoinedGame(r *Reader) (JoinedGame, error) {
	var j JoinedGame
	var err error
	if j.Code, err = r.ReadInt32(); err != nil {
		return j, err
	}
	if j.PlayerClientID, err = r.ReadUint32(); err != nil {
		return j, err
	}
	if j.HostClientID, err = r.ReadUint32(); err != nil {
		return j, err
	}
	// Older servers stop here.
	if r.Remaining() == 0 {
		return j, nil
	}
	n, err := r.ReadPacked()
	if err != nil {
		return j, err
	}
	for i := uint32(0); i < n; i++ {
		id, err := r.ReadPacked()
		if err != nil {
			return j, err
		}
		j.OtherClientIDs = append(j.OtherClientIDs, id)
	}
	return j, nil
}

func (d *decoder) readJoinGame(r *Reader) (Payload, error) {
	if d.fromClient {
		code, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		return JoinGameRequest{Code: code}, nil
	}

	if first, ok := r.peek(); ok && first >= joinedMarker {
		var p PlayerJoined
		var err error
		if p.Code, err = r.ReadInt32(); err != nil {
			return nil, err
		}
		if p.ClientID, err = r.ReadUint32(); err != nil {
			return nil, err
		}
		if p.HostClientID, err = r.ReadUint32(); err != nil {
			return nil, err
		}
		return p, nil
	}

	reason, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	e := JoinGameError{Reason: hazel.DisconnectReason(reason)}
	if e.Reason == hazel.ReasonCustom && r.Remaining() > 0 {
		if e.Message, err = r.ReadString(); err != nil {
			return nil, err
		}
	}
	return e, nil
}
