package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/amongo/amongo/internal/api"
	"github.com/amongo/amongo/internal/cache"
	"github.com/amongo/amongo/internal/client"
	"github.com/amongo/amongo/internal/config"
	"github.com/amongo/amongo/internal/dispatcher"
	"github.com/amongo/amongo/internal/logging"
	"github.com/amongo/amongo/internal/monitor"
	"github.com/amongo/amongo/internal/packets"
	"github.com/amongo/amongo/internal/storage"
	"github.com/amongo/amongo/internal/worker"
)

const (
	configFileName  = config.ConfigFile
	shutdownTimeout = 10 * time.Second
)

type joinFlags struct {
	server  string
	name    string
	color   string
	storage string
	verbose bool
}

func joinCmd(configDir *string) *cobra.Command {
	var f joinFlags

	cmd := &cobra.Command{
		Use:   "join CODE",
		Short: "Join a game by room code and record it until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(*configDir); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Using defaults: %v\n", err)
			}
			ccfg := config.GetClientConfig()
			scfg := config.GetStorageConfig()
			if f.server != "" {
				ccfg.Server = f.server
			}
			if f.name != "" {
				ccfg.Username = f.name
			}
			if f.color != "" {
				ccfg.Color = f.color
			}
			if f.storage != "" {
				scfg.Type = f.storage
			}
			if f.verbose {
				ccfg.Verbose = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runJoin(ctx, args[0], ccfg, scfg)
		},
	}

	cmd.Flags().StringVarP(&f.server, "server", "s", "", "server address (host:port)")
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "player name")
	cmd.Flags().StringVar(&f.color, "color", "", "player color, e.g. red or light_blue")
	cmd.Flags().StringVar(&f.storage, "storage", "", "storage backend: memory, sqlite, postgres, websocket or influx")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "trace every datagram")

	return cmd
}

func loadConfig(dir string) error {
	if err := config.Load(dir); err != nil {
		config.SetDefaults()
		return err
	}
	return nil
}

func runJoin(ctx context.Context, code string, ccfg config.ClientConfig, scfg config.StorageConfig) error {
	color, err := packets.ParseColor(ccfg.Color)
	if err != nil {
		return err
	}

	var cl *client.Client
	l, err := setupLogs(time.Now(), func() []slog.Attr {
		if cl == nil {
			return nil
		}
		return cl.LogAttrs()
	}, map[string]string{
		"amongo.username": ccfg.Username,
		"amongo.server":   ccfg.Server,
		"amongo.storage":  scfg.Type,
	})
	if err != nil {
		return err
	}
	defer l.Close()
	logger := l.logger

	backend, err := storage.NewBackend(scfg, l.zlog)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("initializing %s storage: %w", scfg.Type, err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	d, err := dispatcher.New(logging.NewDispatcherLogger(l.zlog.With().Str("component", "dispatcher").Logger()))
	if err != nil {
		return err
	}
	defer d.Close()

	entities := cache.NewEntityCache()
	manager := worker.NewManager(worker.Dependencies{
		Username:    ccfg.Username,
		EntityCache: entities,
		Logger:      l.zlog.With().Str("component", "worker").Logger(),
	}, backend)
	manager.RegisterHandlers(d)

	opts := []client.Option{
		client.WithLogger(logger),
		client.WithDispatcher(d),
		client.WithCache(entities),
	}
	if ccfg.Verbose {
		opts = append(opts, client.WithTracer(logging.NewWireTracer(l.zlog.With().Str("component", "wire").Logger())))
	}
	cl = client.New(client.Config{
		Username:          ccfg.Username,
		Version:           ccfg.Version,
		AckTimeout:        ccfg.AckTimeout,
		Retries:           ccfg.Retries,
		MaxRedirects:      ccfg.MaxRedirects,
		DisconnectTimeout: ccfg.DisconnectTimeout,
		Verbose:           ccfg.Verbose,
	}, opts...)
	defer cl.Close()

	if err := cl.Connect(ctx, ccfg.Server); err != nil {
		return fmt.Errorf("connecting to %s: %w", ccfg.Server, err)
	}

	session, err := cl.JoinGame(ctx, code)
	if err != nil {
		leave(cl, logger)
		return err
	}
	logger.Info("Joined game",
		"code", session.Code,
		"clientId", session.PlayerClientID,
		"hostId", session.HostClientID)

	if err := cl.Spawn(ctx, color); err != nil {
		leave(cl, logger)
		return err
	}

	status := monitor.NewService(monitor.Dependencies{
		State:      func() string { return cl.State().String() },
		Session:    manager.Session,
		Cache:      entities,
		StatusPath: filepath.Join(viper.GetString("logsDir"), "status.json"),
		Logger:     logger,
	})
	if err := status.Start(); err != nil {
		logger.Warn("Status monitor not started", "error", err)
	}

	watch(ctx, cl, logger)

	status.Stop()
	leave(cl, logger)

	// Buffered handlers drain before the session is closed so no record
	// arrives after it.
	d.Close()
	if err := manager.EndSession(time.Now()); err != nil && !errors.Is(err, worker.ErrNoSession) {
		logger.Error("Failed to end session", "error", err)
	}
	if l.otel != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := l.otel.Flush(flushCtx); err != nil {
			logger.Warn("Failed to flush OTel data", "error", err)
		}
		cancel()
	}

	if u, ok := backend.(storage.Uploadable); ok && u.GetExportedFilePath() != "" {
		meta := u.GetExportMetadata()
		logger.Info("Recording saved",
			"path", u.GetExportedFilePath(),
			"code", meta.Code,
			"duration", meta.Duration,
			"spawns", meta.Spawns)
		upload(u, config.GetAPIConfig(), logger)
	}
	return nil
}

// upload sends the exported recording to the frontend when configured to.
// Failures are logged; the file stays on disk either way.
func upload(u storage.Uploadable, cfg config.APIConfig, logger *slog.Logger) {
	if !cfg.Upload {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	c := api.New(cfg.ServerURL, cfg.APIKey)
	if err := c.Healthcheck(ctx); err != nil {
		logger.Warn("Frontend unreachable, skipping upload", "server", cfg.ServerURL, "error", err)
		return
	}
	if err := c.Upload(ctx, u.GetExportedFilePath(), u.GetExportMetadata()); err != nil {
		logger.Error("Upload failed", "path", u.GetExportedFilePath(), "error", err)
		return
	}
	logger.Info("Recording uploaded", "server", cfg.ServerURL)
}

// watch consumes movement until ctx is done or the server drops us.
func watch(ctx context.Context, cl *client.Client, logger *slog.Logger) {
	done := cl.Done()

	var moves int
	for {
		select {
		case <-ctx.Done():
			logger.Info("Interrupted, leaving game", "movements", moves)
			return
		case ev, ok := <-cl.Events():
			if !ok {
				return
			}
			moves++
			logger.Debug("Movement", "netId", ev.NetID, "seq", ev.Sequence, "x", ev.Position.X, "y", ev.Position.Y)
		case <-done:
			logger.Warn("Connection lost", "error", cl.Err(), "movements", moves)
			return
		}
	}
}

func leave(cl *client.Client, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := cl.Disconnect(ctx); err != nil {
		logger.Warn("Disconnect was not clean", "error", err)
	}
}
