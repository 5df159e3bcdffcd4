package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/amongo/amongo/internal/config"
	"github.com/amongo/amongo/internal/logging"
	intOtel "github.com/amongo/amongo/internal/otel"
)

const logName = "amongo"

// logs owns every log sink of a run.
type logs struct {
	slog    *logging.SlogManager
	logger  *slog.Logger
	zlog    zerolog.Logger
	file    *os.File
	path    string
	otel    *intOtel.Provider
	closers []io.Closer
}

// setupLogs opens the log file under logsDir and wires slog (text, OTel and
// optionally GELF) and zerolog onto it. attrs describe the run to OTel.
func setupLogs(start time.Time, provider logging.ContextProvider, attrs map[string]string) (*logs, error) {
	l := &logs{slog: logging.NewSlogManager()}
	l.slog.SetContextProvider(provider)

	level := viper.GetString("logLevel")
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating logs dir: %w", err)
	}

	l.path = logging.LogFilePath(logsDir, logName, start)
	if _, err := os.Stat(l.path); err == nil {
		_ = os.Rename(l.path, l.path+".old")
	}
	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	l.file = f

	otelCfg := config.GetOTelConfig()
	var logProvider *sdklog.LoggerProvider
	if otelCfg.Enabled {
		p, err := intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			ServiceVersion: version,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      f,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
			Attributes:     attrs,
		})
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("initializing otel: %w", err)
		}
		l.otel = p
		logProvider = p.LoggerProvider()
	}

	var extra []slog.Handler
	if gl := config.GetGraylogConfig(); gl.Enabled {
		h, closer, err := logging.NewGELFHandler(gl.Address, level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "GELF disabled: %v\n", err)
		} else {
			extra = append(extra, h)
			l.closers = append(l.closers, closer)
		}
	}

	l.slog.Setup(io.MultiWriter(f, os.Stderr), level, logProvider, extra...)
	l.logger = l.slog.Logger()
	slog.SetDefault(l.logger)

	l.zlog = zerolog.New(f).Level(zerologLevel(level)).With().Timestamp().Logger()

	l.logger.Info("Logging to file", "path", l.path, "otel", l.otel != nil && l.otel.Enabled())
	return l, nil
}

func zerologLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *logs) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.slog.Flush(ctx); err != nil {
		l.logger.Warn("Failed to flush logs", "error", err)
	}
	if l.otel != nil {
		if err := l.otel.Shutdown(ctx); err != nil {
			l.logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	for _, c := range l.closers {
		_ = c.Close()
	}
	_ = l.file.Close()
}
