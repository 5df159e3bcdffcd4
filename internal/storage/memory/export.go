package memory

import (
	"cmp"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/amongo/amongo/pkg/core"
)

// SessionExport is the root JSON structure
type SessionExport struct {
	Session  core.Session     `json:"session"`
	Duration float64          `json:"duration"` // seconds
	Spawns   []core.Spawn     `json:"spawns"`
	Players  []core.Player    `json:"players"`
	Events   []core.GameEvent `json:"events"`
	Tracks   []TrackJSON      `json:"tracks"`
}

// TrackJSON is the movement history of one net object.
// Each position is [offsetMs, sequence, x, y, vx, vy], offset from session start.
type TrackJSON struct {
	NetID     uint32  `json:"netId"`
	OwnerID   uint32  `json:"ownerId"`
	Positions [][]any `json:"positions"`
}

// exportJSON writes the session to OutputDir, gzipped when configured.
// Callers hold b.mu.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	timestamp := b.session.StartTime.UTC().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s.json", b.session.Code, timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	b.lastExportMetadata = core.UploadMetadata{
		Code:     b.session.Code,
		Username: b.session.Username,
		Duration: export.Duration,
		Spawns:   len(export.Spawns),
	}
	return nil
}

func (b *Backend) buildExport() SessionExport {
	s := *b.session
	end := s.EndTime
	if end.IsZero() {
		end = time.Now()
	}

	export := SessionExport{
		Session:  s,
		Duration: end.Sub(s.StartTime).Seconds(),
		Spawns:   make([]core.Spawn, 0, len(b.spawns)),
		Players:  make([]core.Player, 0, len(b.players)),
		Events:   make([]core.GameEvent, 0, len(b.events)),
		Tracks:   make([]TrackJSON, 0, len(b.tracks)),
	}
	export.Spawns = append(export.Spawns, b.spawns...)
	export.Events = append(export.Events, b.events...)

	for _, p := range b.players {
		export.Players = append(export.Players, p)
	}
	slices.SortFunc(export.Players, func(a, b core.Player) int {
		return cmp.Compare(a.PlayerID, b.PlayerID)
	})

	for _, record := range b.tracks {
		track := TrackJSON{
			NetID:     record.NetID,
			OwnerID:   record.OwnerID,
			Positions: make([][]any, 0, len(record.Movements)),
		}
		for _, m := range record.Movements {
			track.Positions = append(track.Positions, []any{
				m.Time.Sub(s.StartTime).Milliseconds(),
				m.Sequence,
				m.Position.X,
				m.Position.Y,
				m.Velocity.X,
				m.Velocity.Y,
			})
		}
		export.Tracks = append(export.Tracks, track)
	}
	slices.SortFunc(export.Tracks, func(a, b TrackJSON) int {
		return cmp.Compare(a.NetID, b.NetID)
	})

	return export
}

func writeJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		_ = gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}
