// Package monitor periodically writes a status snapshot of a running client.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/amongo/amongo/internal/cache"
	"github.com/amongo/amongo/pkg/core"
)

const defaultInterval = time.Second

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	// State describes the connection, e.g. "ready".
	State func() string
	// Session returns the recording in progress, if any.
	Session    func() (core.Session, bool)
	Cache      *cache.EntityCache
	StatusPath string
	Interval   time.Duration
	Logger     *slog.Logger
}

// Status is one snapshot.
type Status struct {
	Time       time.Time `json:"time"`
	State      string    `json:"state"`
	SessionID  string    `json:"sessionId,omitempty"`
	Code       string    `json:"code,omitempty"`
	Uptime     string    `json:"uptime"`
	Spawns     int       `json:"spawns"`
	Transforms int       `json:"transforms"`
	Players    int       `json:"players"`
}

// Service manages status monitoring
type Service struct {
	deps    Dependencies
	started time.Time

	mu        sync.RWMutex
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
}

func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = defaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.State == nil {
		deps.State = func() string { return "unknown" }
	}
	return &Service{deps: deps, started: time.Now()}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus builds a snapshot of the current state.
func (s *Service) GetStatus() Status {
	now := time.Now()
	st := Status{
		Time:   now.UTC(),
		State:  s.deps.State(),
		Uptime: now.Sub(s.started).Truncate(time.Second).String(),
	}
	if s.deps.Session != nil {
		if sess, ok := s.deps.Session(); ok {
			st.SessionID = sess.ID
			st.Code = sess.Code
		}
	}
	if s.deps.Cache != nil {
		st.Spawns, st.Transforms = s.deps.Cache.Counts()
		st.Players = s.deps.Cache.PlayerCount()
	}
	return st
}

// Start writes a status snapshot every interval until Stop.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}

	var statusFile *os.File
	if s.deps.StatusPath != "" {
		f, err := os.Create(s.deps.StatusPath)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("creating status file: %w", err)
		}
		statusFile = f
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			if statusFile != nil {
				_ = statusFile.Close()
			}
		}()

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				st := s.GetStatus()
				s.deps.Logger.Debug("Status",
					"state", st.State,
					"code", st.Code,
					"spawns", st.Spawns,
					"players", st.Players)
				if statusFile != nil {
					if err := writeStatus(statusFile, st); err != nil {
						s.deps.Logger.Error("Error writing status file", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

func writeStatus(f *os.File, st Status) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	_, err = f.Write(append(b, '\n'))
	return err
}

// Stop stops the status monitor and waits for the last write to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
