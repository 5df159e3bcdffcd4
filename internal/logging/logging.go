// Package logging sets up slog and zerolog for a client run.
package logging

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// LogFilePath names the log of a run started at start, in UTC. Path
// separators in name are replaced so a player name cannot escape logsDir.
func LogFilePath(logsDir, name string, start time.Time) string {
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == filepath.Separator {
			return '_'
		}
		return r
	}, name)
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", name, start.UTC().Format("20060102_150405")))
}
