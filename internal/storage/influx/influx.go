package influx

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/amongo/amongo/internal/config"
	"github.com/amongo/amongo/pkg/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

// Measurement names written by the backend.
const (
	MeasurementMovement  = "movement"
	MeasurementSpawn     = "spawn"
	MeasurementPlayer    = "player"
	MeasurementGameEvent = "game_event"
	MeasurementSession   = "session"
)

const retentionSeconds = 60 * 60 * 24 * 90

// Backend writes session records as InfluxDB points. When the server is
// unreachable at Init it falls back to a gzipped line protocol file.
type Backend struct {
	cfg    config.InfluxConfig
	Logger zerolog.Logger

	client influxdb2.Client
	writer influxdb2_api.WriteAPI

	backupFile   *os.File
	backupWriter *gzip.Writer

	mu      sync.Mutex
	session *core.Session
	errs    sync.WaitGroup
}

// New creates an InfluxDB backend. Nothing is dialed until Init.
func New(cfg config.InfluxConfig, log zerolog.Logger) *Backend {
	return &Backend{cfg: cfg, Logger: log}
}

// Init connects and ensures the organisation and bucket exist.
func (b *Backend) Init() error {
	b.client = influxdb2.NewClientWithOptions(
		b.cfg.ServerURL(),
		b.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := b.client.Ping(context.Background())
	if err != nil || !running {
		b.Logger.Warn().Err(err).Str("backupPath", b.cfg.BackupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		b.client.Close()
		b.client = nil
		return b.openBackup()
	}

	if err := b.setupOrganizationAndBucket(); err != nil {
		return err
	}

	b.writer = b.client.WriteAPI(b.cfg.Org, b.cfg.Bucket)
	errorsCh := b.writer.Errors()
	b.errs.Add(1)
	go func() {
		defer b.errs.Done()
		for writeErr := range errorsCh {
			b.Logger.Error().Err(writeErr).Str("bucket", b.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}()

	b.Logger.Info().Str("url", b.cfg.ServerURL()).Str("bucket", b.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (b *Backend) openBackup() error {
	if b.cfg.BackupPath == "" {
		return fmt.Errorf("influxDB unreachable and no backup path configured")
	}
	if err := os.MkdirAll(filepath.Dir(b.cfg.BackupPath), 0755); err != nil {
		return fmt.Errorf("error creating backup directory: %w", err)
	}
	file, err := os.OpenFile(b.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	b.backupFile = file
	b.backupWriter = gzip.NewWriter(file)
	return nil
}

func (b *Backend) setupOrganizationAndBucket() error {
	ctx := context.Background()
	orgs := b.client.OrganizationsAPI()

	org, err := orgs.FindOrganizationByName(ctx, b.cfg.Org)
	if err != nil {
		b.Logger.Info().Str("org", b.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, b.cfg.Org)
		if err != nil {
			return fmt.Errorf("creating organization %q: %w", b.cfg.Org, err)
		}
	}

	if _, err := b.client.BucketsAPI().FindBucketByName(ctx, b.cfg.Bucket); err != nil {
		b.Logger.Info().Str("bucket", b.cfg.Bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = b.client.BucketsAPI().CreateBucketWithName(ctx, org, b.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: retentionSeconds,
		})
		if err != nil {
			return fmt.Errorf("creating bucket %q: %w", b.cfg.Bucket, err)
		}
	}

	return nil
}

// Close flushes pending points and releases the client or backup file.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		b.writer.Flush()
		b.client.Close()
		b.client = nil
		b.errs.Wait()
	}

	if b.backupWriter != nil {
		err := b.backupWriter.Close()
		if cerr := b.backupFile.Close(); err == nil {
			err = cerr
		}
		b.backupWriter = nil
		b.backupFile = nil
		return err
	}
	return nil
}

func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = s
	p := influxdb2.NewPoint(MeasurementSession,
		b.tags(nil),
		map[string]any{
			"event":            "start",
			"player_client_id": int64(s.PlayerClientID),
			"host_client_id":   int64(s.HostClientID),
			"username":         s.Username,
		},
		s.StartTime,
	)
	return b.write(p)
}

// EndSession writes the end marker and flushes.
func (b *Backend) EndSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return fmt.Errorf("no session started")
	}
	if s != nil {
		b.session = s
	}

	end := b.session.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	p := influxdb2.NewPoint(MeasurementSession,
		b.tags(nil),
		map[string]any{
			"event":    "end",
			"duration": end.Sub(b.session.StartTime).Seconds(),
		},
		end,
	)
	err := b.write(p)
	if b.writer != nil {
		b.writer.Flush()
	}
	b.session = nil
	return err
}

func (b *Backend) RecordSpawn(s *core.Spawn) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := influxdb2.NewPoint(MeasurementSpawn,
		b.tags(map[string]string{"owner_id": strconv.FormatUint(uint64(s.OwnerID), 10)}),
		map[string]any{
			"spawn_id":   int64(s.SpawnID),
			"components": len(s.NetIDs),
		},
		s.Time,
	)
	return b.write(p)
}

func (b *Backend) RecordMovement(m *core.Movement) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := influxdb2.NewPoint(MeasurementMovement,
		b.tags(map[string]string{
			"net_id":   strconv.FormatUint(uint64(m.NetID), 10),
			"owner_id": strconv.FormatUint(uint64(m.OwnerID), 10),
		}),
		map[string]any{
			"x":   m.Position.X,
			"y":   m.Position.Y,
			"vx":  m.Velocity.X,
			"vy":  m.Velocity.Y,
			"seq": int64(m.Sequence),
		},
		m.Time,
	)
	return b.write(p)
}

func (b *Backend) RecordPlayer(pl *core.Player) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := influxdb2.NewPoint(MeasurementPlayer,
		b.tags(map[string]string{
			"player_id": strconv.Itoa(int(pl.PlayerID)),
			"name":      pl.Name,
		}),
		map[string]any{
			"color":          pl.Color,
			"dead":           pl.Dead,
			"impostor":       pl.Impostor,
			"disconnected":   pl.Disconnected,
			"tasks":          pl.Tasks,
			"tasks_complete": pl.TasksComplete,
		},
		pl.Time,
	)
	return b.write(p)
}

func (b *Backend) RecordGameEvent(e *core.GameEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := influxdb2.NewPoint(MeasurementGameEvent,
		b.tags(map[string]string{"type": e.Type}),
		map[string]any{"reason": e.Reason},
		e.Time,
	)
	return b.write(p)
}

// tags adds the session tags to extra. Callers hold b.mu.
func (b *Backend) tags(extra map[string]string) map[string]string {
	t := make(map[string]string, len(extra)+2)
	for k, v := range extra {
		if v != "" {
			t[k] = v
		}
	}
	if b.session != nil {
		t["session_id"] = b.session.ID
		t["code"] = b.session.Code
	}
	return t
}

// write sends p to the server or the backup file. Callers hold b.mu.
func (b *Backend) write(p *influxdb2_write.Point) error {
	if b.writer != nil && b.client != nil {
		b.writer.WritePoint(p)
		return nil
	}
	if b.backupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	if _, err := b.backupWriter.Write([]byte(line)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}
