package packets

import "fmt"

// RPCBody is the procedure-specific part of an RPC record. OpaqueRPC covers
// every flag without its own type.
type RPCBody interface {
	Flag() RPCFlag
	rpcBody()
}

type SyncSettings struct {
	Options GameOptions
}

type CheckName struct {
	Name string
}

type SetName struct {
	Name string
}

type CheckColor struct {
	Color Color
}

type SetColor struct {
	Color Color
}

// UpdateGameData carries one record per changed player.
type UpdateGameData struct {
	Players []PlayerData
}

// VoteState is one player's state on the meeting screen.
type VoteState uint8

const (
	voteDead     = 0x80
	voteDidVote  = 0x40
	voteReported = 0x20
	voteTarget   = 0x0f
)

func (v VoteState) Dead() bool     { return v&voteDead != 0 }
func (v VoteState) Voted() bool    { return v&voteDidVote != 0 }
func (v VoteState) Reported() bool { return v&voteReported != 0 }

// VotedFor returns the player id voted for, or -1 for a skip or no vote.
func (v VoteState) VotedFor() int { return int(v&voteTarget) - 1 }

// NoExile marks a meeting that ejected nobody.
const NoExile uint8 = 0xff

type VotingComplete struct {
	States []VoteState
	Exiled uint8
	Tie    bool
}

type MurderPlayer struct {
	Target uint32
}

type SetInfected struct {
	PlayerIDs []uint8
}

type SetStartCounter struct {
	Sequence uint32
	Seconds  int8
}

// OpaqueRPC keeps the raw body of an RPC this package does not model.
// Encoding it reproduces the original bytes.
type OpaqueRPC struct {
	Type RPCFlag
	Data []byte
}

func (SyncSettings) Flag() RPCFlag    { return RPCSyncSettings }
func (CheckName) Flag() RPCFlag       { return RPCCheckName }
func (SetName) Flag() RPCFlag         { return RPCSetName }
func (CheckColor) Flag() RPCFlag      { return RPCCheckColor }
func (SetColor) Flag() RPCFlag        { return RPCSetColor }
func (UpdateGameData) Flag() RPCFlag  { return RPCUpdateGameData }
func (VotingComplete) Flag() RPCFlag  { return RPCVotingComplete }
func (MurderPlayer) Flag() RPCFlag    { return RPCMurderPlayer }
func (SetInfected) Flag() RPCFlag     { return RPCSetInfected }
func (SetStartCounter) Flag() RPCFlag { return RPCSetStartCounter }
func (o OpaqueRPC) Flag() RPCFlag     { return o.Type }

func (SyncSettings) rpcBody()    {}
func (CheckName) rpcBody()       {}
func (SetName) rpcBody()         {}
func (CheckColor) rpcBody()      {}
func (SetColor) rpcBody()        {}
func (UpdateGameData) rpcBody()  {}
func (VotingComplete) rpcBody()  {}
func (MurderPlayer) rpcBody()    {}
func (SetInfected) rpcBody()     {}
func (SetStartCounter) rpcBody() {}
func (OpaqueRPC) rpcBody()       {}

func writeRPCBody(w *Writer, body RPCBody) {
	switch b := body.(type) {
	case SyncSettings:
		w.WriteGameOptions(b.Options)
	case CheckName:
		w.WriteString(b.Name)
	case SetName:
		w.WriteString(b.Name)
	case CheckColor:
		w.WriteUint8(uint8(b.Color))
	case SetColor:
		w.WriteUint8(uint8(b.Color))
	case UpdateGameData:
		for _, p := range b.Players {
			w.WritePlayerData(p)
		}
	case VotingComplete:
		w.WritePacked(uint32(len(b.States)))
		for _, s := range b.States {
			w.WriteUint8(uint8(s))
		}
		w.WriteUint8(b.Exiled)
		w.WriteBool(b.Tie)
	case MurderPlayer:
		w.WritePacked(b.Target)
	case SetInfected:
		w.WritePacked(uint32(len(b.PlayerIDs)))
		w.WriteBytes(b.PlayerIDs)
	case SetStartCounter:
		w.WritePacked(b.Sequence)
		w.WriteInt8(b.Seconds)
	case OpaqueRPC:
		w.WriteBytes(b.Data)
	default:
		w.fail(fmt.Errorf("unsupported rpc body %T", body))
	}
}

func (d *decoder) readRPCBody(flag RPCFlag, r *Reader) (RPCBody, error) {
	switch flag {
	case RPCSyncSettings:
		o, newer, err := r.ReadGameOptions()
		if err != nil {
			return nil, err
		}
		if newer {
			d.warning(Warning{Kind: WarnNewerVersion, Level: LevelRPC, Tag: uint8(flag)})
		}
		return SyncSettings{Options: o}, nil

	case RPCCheckName, RPCSetName:
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		if flag == RPCCheckName {
			return CheckName{Name: name}, nil
		}
		return SetName{Name: name}, nil

	case RPCCheckColor, RPCSetColor:
		c, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		if flag == RPCCheckColor {
			return CheckColor{Color: Color(c)}, nil
		}
		return SetColor{Color: Color(c)}, nil

	case RPCUpdateGameData:
		var u UpdateGameData
		for r.Remaining() > 0 {
			err := d.record(r, LevelPlayer, func(tag uint8, body *Reader) error {
				p, err := readPlayerBody(tag, body)
				if err != nil {
					return err
				}
				u.Players = append(u.Players, p)
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
		return u, nil

	case RPCVotingComplete:
		n, err := r.ReadPacked()
		if err != nil {
			return nil, err
		}
		raw, err := r.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		v := VotingComplete{States: make([]VoteState, len(raw))}
		for i, s := range raw {
			v.States[i] = VoteState(s)
		}
		if v.Exiled, err = r.ReadUint8(); err != nil {
			return nil, err
		}
		if v.Tie, err = r.ReadBool(); err != nil {
			return nil, err
		}
		return v, nil

	case RPCMurderPlayer:
		target, err := r.ReadPacked()
		if err != nil {
			return nil, err
		}
		return MurderPlayer{Target: target}, nil

	case RPCSetInfected:
		n, err := r.ReadPacked()
		if err != nil {
			return nil, err
		}
		ids, err := r.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		return SetInfected{PlayerIDs: ids}, nil

	case RPCSetStartCounter:
		seq, err := r.ReadPacked()
		if err != nil {
			return nil, err
		}
		secs, err := r.ReadInt8()
		if err != nil {
			return nil, err
		}
		return SetStartCounter{Sequence: seq, Seconds: secs}, nil
	}

	d.warning(Warning{
		Kind:     WarnUnknownRPC,
		Level:    LevelRPC,
		Tag:      uint8(flag),
		Declared: r.Remaining(),
	})
	return OpaqueRPC{Type: flag, Data: r.ReadRest()}, nil
}
