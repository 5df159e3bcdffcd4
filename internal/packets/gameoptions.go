package packets

import "fmt"

// GameOptionsVersion is the only layout this package writes.
const GameOptionsVersion = 4

// gameOptionsLength covers the version byte and every v4 field.
const gameOptionsLength = 46

// GameOptions are the lobby settings the host syncs to every player.
type GameOptions struct {
	MaxPlayers            uint8
	Language              Language
	Map                   Map
	PlayerSpeedModifier   float32
	CrewLightModifier     float32
	ImpostorLightModifier float32
	KillCooldown          float32
	CommonTasks           uint8
	LongTasks             uint8
	ShortTasks            uint8
	Emergencies           int32
	Impostors             uint8
	KillDistance          uint8
	DiscussionTime        int32
	VotingTime            int32
	IsDefault             bool
	EmergencyCooldown     uint8
	ConfirmEjects         bool
	VisualTasks           bool
	AnonymousVotes        bool
	TaskBarUpdates        TaskBarUpdates
}

// DefaultGameOptions mirrors a freshly created lobby.
func DefaultGameOptions() GameOptions {
	return GameOptions{
		MaxPlayers:            10,
		Language:              LanguageEnglish,
		Map:                   MapSkeld,
		PlayerSpeedModifier:   1,
		CrewLightModifier:     1,
		ImpostorLightModifier: 1.5,
		KillCooldown:          15,
		CommonTasks:           1,
		LongTasks:             1,
		ShortTasks:            2,
		Emergencies:           1,
		Impostors:             1,
		KillDistance:          1,
		DiscussionTime:        15,
		VotingTime:            120,
		IsDefault:             true,
		EmergencyCooldown:     15,
		ConfirmEjects:         true,
		VisualTasks:           true,
		TaskBarUpdates:        TaskBarAlways,
	}
}

// WriteGameOptions writes o as a version 4 block behind its packed length.
func (w *Writer) WriteGameOptions(o GameOptions) {
	w.WritePacked(gameOptionsLength)
	w.WriteUint8(GameOptionsVersion)
	w.WriteUint8(o.MaxPlayers)
	w.WriteUint32(uint32(o.Language))
	w.WriteUint8(uint8(o.Map))
	w.WriteFloat32(o.PlayerSpeedModifier)
	w.WriteFloat32(o.CrewLightModifier)
	w.WriteFloat32(o.ImpostorLightModifier)
	w.WriteFloat32(o.KillCooldown)
	w.WriteUint8(o.CommonTasks)
	w.WriteUint8(o.LongTasks)
	w.WriteUint8(o.ShortTasks)
	w.WriteInt32(o.Emergencies)
	w.WriteUint8(o.Impostors)
	w.WriteUint8(o.KillDistance)
	w.WriteInt32(o.DiscussionTime)
	w.WriteInt32(o.VotingTime)
	w.WriteBool(o.IsDefault)
	w.WriteUint8(o.EmergencyCooldown)
	w.WriteBool(o.ConfirmEjects)
	w.WriteBool(o.VisualTasks)
	w.WriteBool(o.AnonymousVotes)
	w.WriteUint8(uint8(o.TaskBarUpdates))
}

// ReadGameOptions reads a game options block. Versions older than 4 fail
// with ErrVersionMismatch. Newer versions are read as v4, their extra bytes
// skipped, and newer is set so the caller can warn. A block declaring fewer
// bytes than its fields take is a desync.
func (r *Reader) ReadGameOptions() (o GameOptions, newer bool, err error) {
	length, err := r.ReadPacked()
	if err != nil {
		return o, false, err
	}
	start := r.Offset()
	version, err := r.ReadUint8()
	if err != nil {
		return o, false, err
	}
	if version < GameOptionsVersion {
		return o, false, fmt.Errorf("version %d: %w", version, ErrVersionMismatch)
	}

	var (
		b   uint8
		u32 uint32
	)
	steps := []func() error{
		func() (err error) { o.MaxPlayers, err = r.ReadUint8(); return },
		func() (err error) { u32, err = r.ReadUint32(); o.Language = Language(u32); return },
		func() (err error) { b, err = r.ReadUint8(); o.Map = Map(b); return },
		func() (err error) { o.PlayerSpeedModifier, err = r.ReadFloat32(); return },
		func() (err error) { o.CrewLightModifier, err = r.ReadFloat32(); return },
		func() (err error) { o.ImpostorLightModifier, err = r.ReadFloat32(); return },
		func() (err error) { o.KillCooldown, err = r.ReadFloat32(); return },
		func() (err error) { o.CommonTasks, err = r.ReadUint8(); return },
		func() (err error) { o.LongTasks, err = r.ReadUint8(); return },
		func() (err error) { o.ShortTasks, err = r.ReadUint8(); return },
		func() (err error) { o.Emergencies, err = r.ReadInt32(); return },
		func() (err error) { o.Impostors, err = r.ReadUint8(); return },
		func() (err error) { o.KillDistance, err = r.ReadUint8(); return },
		func() (err error) { o.DiscussionTime, err = r.ReadInt32(); return },
		func() (err error) { o.VotingTime, err = r.ReadInt32(); return },
		func() (err error) { o.IsDefault, err = r.ReadBool(); return },
		func() (err error) { o.EmergencyCooldown, err = r.ReadUint8(); return },
		func() (err error) { o.ConfirmEjects, err = r.ReadBool(); return },
		func() (err error) { o.VisualTasks, err = r.ReadBool(); return },
		func() (err error) { o.AnonymousVotes, err = r.ReadBool(); return },
		func() (err error) { b, err = r.ReadUint8(); o.TaskBarUpdates = TaskBarUpdates(b); return },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return o, false, fmt.Errorf("reading game options: %w", err)
		}
	}

	newer = version > GameOptionsVersion
	extra := int(length) - (r.Offset() - start)
	if extra < 0 {
		return o, newer, fmt.Errorf("game options v%d declare %d bytes but need %d: %w",
			version, length, r.Offset()-start, ErrDesync)
	}
	if extra > 0 {
		if err := r.Skip(extra); err != nil {
			return o, newer, fmt.Errorf("skipping game options v%d fields: %w", version, err)
		}
	}
	return o, newer, nil
}
