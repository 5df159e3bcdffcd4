package influx

import (
	"bufio"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amongo/amongo/internal/config"
	"github.com/amongo/amongo/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func testSession() *core.Session {
	return &core.Session{ID: "7f1c", Code: "ABCDEF", Username: "amongo", StartTime: testStart}
}

func configFor(t *testing.T, rawURL string) config.InfluxConfig {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return config.InfluxConfig{
		Protocol:   u.Scheme,
		Host:       u.Hostname(),
		Port:       u.Port(),
		Token:      "token",
		Org:        "amongo",
		Bucket:     "movements",
		BackupPath: filepath.Join(t.TempDir(), "backup", "influx.lp.gz"),
	}
}

func readBackup(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)

	var lines []string
	sc := bufio.NewScanner(zr)
	for sc.Scan() {
		if sc.Text() != "" {
			lines = append(lines, sc.Text())
		}
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestBackupWhenUnreachable(t *testing.T) {
	// Closed server: ping fails.
	srv := httptest.NewServer(http.NotFoundHandler())
	cfg := configFor(t, srv.URL)
	srv.Close()

	b := New(cfg, zerolog.Nop())
	require.NoError(t, b.Init())

	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordMovement(&core.Movement{
		Time:     testStart.Add(time.Second),
		NetID:    3,
		OwnerID:  7,
		Sequence: 12,
		Position: core.Position2D{X: 1.5, Y: -2},
	}))
	require.NoError(t, b.RecordPlayer(&core.Player{Time: testStart, PlayerID: 0, Name: "red", Tasks: 3}))
	require.NoError(t, b.RecordGameEvent(&core.GameEvent{Time: testStart, Type: core.GameStarted}))
	require.NoError(t, b.EndSession(nil))
	require.NoError(t, b.Close())

	lines := readBackup(t, cfg.BackupPath)
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "session,"), lines[0])
	assert.Contains(t, lines[1], "movement,")
	assert.Contains(t, lines[1], "net_id=3")
	assert.Contains(t, lines[1], "code=ABCDEF")
	assert.Contains(t, lines[1], "seq=12i")
	assert.Contains(t, lines[2], "player_id=0")
	assert.Contains(t, lines[3], "type=start_game")
	assert.Contains(t, lines[4], `event="end"`)
}

func TestBackupRequiresPath(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	cfg := configFor(t, srv.URL)
	cfg.BackupPath = ""
	srv.Close()

	b := New(cfg, zerolog.Nop())
	assert.ErrorContains(t, b.Init(), "no backup path")
}

func TestEndSessionWithoutStart(t *testing.T) {
	b := New(config.InfluxConfig{}, zerolog.Nop())
	assert.ErrorContains(t, b.EndSession(nil), "no session started")
}

func TestWritesToServer(t *testing.T) {
	var mu sync.Mutex
	var written []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/ping":
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/api/v2/orgs":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"orgs":[{"id":"0000000000000001","name":"amongo"}]}`)
		case r.URL.Path == "/api/v2/buckets":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"buckets":[{"id":"0000000000000002","orgID":"0000000000000001","name":"movements","retentionRules":[]}]}`)
		case r.URL.Path == "/api/v2/write":
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			written = append(written, string(body))
			mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	b := New(configFor(t, srv.URL), zerolog.Nop())
	require.NoError(t, b.Init())

	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordSpawn(&core.Spawn{Time: testStart, SpawnID: 4, OwnerID: 7, NetIDs: []uint32{1, 2, 3}}))
	require.NoError(t, b.EndSession(nil))
	require.NoError(t, b.Close())

	mu.Lock()
	defer mu.Unlock()
	all := strings.Join(written, "")
	assert.Contains(t, all, "spawn,")
	assert.Contains(t, all, "components=3i")
	assert.Contains(t, all, `event="end"`)
}
