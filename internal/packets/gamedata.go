package packets

import "fmt"

// GameDataPart is a record nested in GameData or GameDataTo.
// UnknownGameData covers tags without their own type.
type GameDataPart interface {
	Tag() GameDataTag
	gameDataPart()
}

// Component is one network object created by a Spawn.
type Component struct {
	NetID uint32
	Tag   uint8
	Data  []byte
}

type Spawn struct {
	SpawnID    uint32
	OwnerID    uint32
	Flags      uint8
	Components []Component
}

// Data is a movement update for a network transform.
type Data struct {
	NetID    uint32
	Sequence uint16
	Position Vector2
	Velocity Vector2
}

type SceneChange struct {
	ClientID uint32
	Scene    string
}

type Ready struct {
	ClientID uint32
}

type RPC struct {
	NetID uint32
	Body  RPCBody
}

type UnknownGameData struct {
	Type GameDataTag
	Data []byte
}

func (Spawn) Tag() GameDataTag             { return TagSpawn }
func (Data) Tag() GameDataTag              { return TagData }
func (SceneChange) Tag() GameDataTag       { return TagSceneChange }
func (Ready) Tag() GameDataTag             { return TagReady }
func (RPC) Tag() GameDataTag               { return TagRPC }
func (u UnknownGameData) Tag() GameDataTag { return u.Type }

func (Spawn) gameDataPart()           {}
func (Data) gameDataPart()            {}
func (SceneChange) gameDataPart()     {}
func (Ready) gameDataPart()           {}
func (RPC) gameDataPart()             {}
func (UnknownGameData) gameDataPart() {}

func writeGameDataPart(w *Writer, part GameDataPart) {
	w.Record(uint8(part.Tag()), func(w *Writer) {
		switch p := part.(type) {
		case Spawn:
			w.WritePacked(p.SpawnID)
			w.WritePacked(p.OwnerID)
			w.WriteUint8(p.Flags)
			w.WritePacked(uint32(len(p.Components)))
			for _, c := range p.Components {
				w.WritePacked(c.NetID)
				w.Record(c.Tag, func(w *Writer) {
					w.WriteBytes(c.Data)
				})
			}
		case Data:
			w.WritePacked(p.NetID)
			w.WriteUint16(p.Sequence)
			w.WriteVector2(p.Position)
			w.WriteVector2(p.Velocity)
		case SceneChange:
			w.WritePacked(p.ClientID)
			w.WriteString(p.Scene)
		case Ready:
			w.WritePacked(p.ClientID)
		case RPC:
			if p.Body == nil {
				w.fail(fmt.Errorf("rpc on net id %d has no body", p.NetID))
				return
			}
			w.WritePacked(p.NetID)
			w.WriteUint8(uint8(p.Body.Flag()))
			writeRPCBody(w, p.Body)
		case UnknownGameData:
			w.WriteBytes(p.Data)
		default:
			w.fail(fmt.Errorf("unsupported game data part %T", part))
		}
	})
}

func (d *decoder) readGameDataParts(r *Reader) ([]GameDataPart, error) {
	var parts []GameDataPart
	for r.Remaining() > 0 {
		err := d.record(r, LevelGameData, func(tag uint8, body *Reader) error {
			part, err := d.readGameDataPart(GameDataTag(tag), body)
			if err != nil {
				return err
			}
			parts = append(parts, part)
			return nil
		})
		if err != nil {
			return parts, err
		}
	}
	return parts, nil
}

func (d *decoder) readGameDataPart(tag GameDataTag, r *Reader) (GameDataPart, error) {
	switch tag {
	case TagSpawn:
		return readSpawn(r)

	case TagData:
		var p Data
		var err error
		if p.NetID, err = r.ReadPacked(); err != nil {
			return nil, err
		}
		if p.Sequence, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if p.Position, err = r.ReadVector2(); err != nil {
			return nil, err
		}
		if p.Velocity, err = r.ReadVector2(); err != nil {
			return nil, err
		}
		return p, nil

	case TagSceneChange:
		id, err := r.ReadPacked()
		if err != nil {
			return nil, err
		}
		scene, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return SceneChange{ClientID: id, Scene: scene}, nil

	case TagReady:
		id, err := r.ReadPacked()
		if err != nil {
			return nil, err
		}
		return Ready{ClientID: id}, nil

	case TagRPC:
		netID, err := r.ReadPacked()
		if err != nil {
			return nil, err
		}
		flag, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		body, err := d.readRPCBody(RPCFlag(flag), r)
		if err != nil {
			return nil, err
		}
		return RPC{NetID: netID, Body: body}, nil
	}

	d.warning(Warning{Kind: WarnUnknownTag, Level: LevelGameData, Tag: uint8(tag), Declared: r.Remaining()})
	return UnknownGameData{Type: tag, Data: r.ReadRest()}, nil
}

func readSpawn(r *Reader) (Spawn, error) {
	var s Spawn
	var err error
	if s.SpawnID, err = r.ReadPacked(); err != nil {
		return s, err
	}
	if s.OwnerID, err = r.ReadPacked(); err != nil {
		return s, err
	}
	if s.Flags, err = r.ReadUint8(); err != nil {
		return s, err
	}
	n, err := r.ReadPacked()
	if err != nil {
		return s, err
	}
	for i := uint32(0); i < n; i++ {
		var c Component
		if c.NetID, err = r.ReadPacked(); err != nil {
			return s, err
		}
		length, err := r.ReadUint16()
		if err != nil {
			return s, err
		}
		if c.Tag, err = r.ReadUint8(); err != nil {
			return s, err
		}
		if c.Data, err = r.ReadBytes(int(length)); err != nil {
			return s, err
		}
		s.Components = append(s.Components, c)
	}
	return s, nil
}
