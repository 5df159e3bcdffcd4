package packets

import (
	"fmt"
	"math"
)

const (
	playerDisconnected = 1 << 0
	playerImpostor     = 1 << 1
	playerDead         = 1 << 2
)

// Task is one entry of a player's task list.
type Task struct {
	ID        uint32
	Completed bool
}

// PlayerData is the per-player record carried by UpdateGameData.
type PlayerData struct {
	PlayerID     uint8
	Name         string
	Color        Color
	Hat          uint32
	Pet          uint32
	Skin         uint32
	Disconnected bool
	Impostor     bool
	Dead         bool
	Tasks        []Task
}

func (p PlayerData) flags() uint8 {
	var f uint8
	if p.Disconnected {
		f |= playerDisconnected
	}
	if p.Impostor {
		f |= playerImpostor
	}
	if p.Dead {
		f |= playerDead
	}
	return f
}

// WritePlayerData writes p as a record tagged with its player id.
func (w *Writer) WritePlayerData(p PlayerData) {
	w.Record(p.PlayerID, func(w *Writer) {
		w.WriteString(p.Name)
		w.WriteUint8(uint8(p.Color))
		w.WritePacked(p.Hat)
		w.WritePacked(p.Pet)
		w.WritePacked(p.Skin)
		w.WriteUint8(p.flags())
		if len(p.Tasks) > math.MaxUint8 {
			w.fail(fmt.Errorf("player %d has %d tasks, more than a one-byte count holds", p.PlayerID, len(p.Tasks)))
			return
		}
		w.WriteUint8(uint8(len(p.Tasks)))
		for _, t := range p.Tasks {
			w.WritePacked(t.ID)
			w.WriteBool(t.Completed)
		}
	})
}

func readPlayerBody(id uint8, r *Reader) (PlayerData, error) {
	p := PlayerData{PlayerID: id}
	var err error
	if p.Name, err = r.ReadString(); err != nil {
		return p, err
	}
	color, err := r.ReadUint8()
	if err != nil {
		return p, err
	}
	p.Color = Color(color)
	if p.Hat, err = r.ReadPacked(); err != nil {
		return p, err
	}
	if p.Pet, err = r.ReadPacked(); err != nil {
		return p, err
	}
	if p.Skin, err = r.ReadPacked(); err != nil {
		return p, err
	}
	flags, err := r.ReadUint8()
	if err != nil {
		return p, err
	}
	p.Disconnected = flags&playerDisconnected != 0
	p.Impostor = flags&playerImpostor != 0
	p.Dead = flags&playerDead != 0

	n, err := r.ReadUint8()
	if err != nil {
		return p, err
	}
	for i := 0; i < int(n); i++ {
		var t Task
		if t.ID, err = r.ReadPacked(); err != nil {
			return p, err
		}
		if t.Completed, err = r.ReadBool(); err != nil {
			return p, err
		}
		p.Tasks = append(p.Tasks, t)
	}
	return p, nil
}

// EncodePlayerData returns the standalone record form of p.
func EncodePlayerData(p PlayerData) ([]byte, error) {
	w := NewWriter()
	w.WritePlayerData(p)
	return w.Bytes(), w.Err()
}

// DecodePlayerData decodes a single player record.
func DecodePlayerData(b []byte, opts ...DecodeOption) (PlayerData, error) {
	d := newDecoder(opts)
	var p PlayerData
	err := d.record(NewReader(b), LevelPlayer, func(tag uint8, body *Reader) error {
		var err error
		p, err = readPlayerBody(tag, body)
		return err
	})
	return p, err
}
