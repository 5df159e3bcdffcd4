package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/amongo/amongo/internal/cache"
	"github.com/amongo/amongo/internal/dispatcher"
	"github.com/amongo/amongo/internal/hazel"
)

// Config holds the protocol settings of a client.
type Config struct {
	Username          string
	Version           int32
	AckTimeout        time.Duration
	Retries           int
	MaxRedirects      int
	DisconnectTimeout time.Duration
	Verbose           bool
	// EventBuffer sizes the movement event stream. Events are dropped while
	// it is full.
	EventBuffer int
}

const (
	defaultVersion      = 0x46D20203
	defaultMaxRedirects = 5
	defaultEventBuffer  = 256
)

func (c Config) withDefaults() Config {
	if c.Version == 0 {
		c.Version = defaultVersion
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = defaultMaxRedirects
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = defaultEventBuffer
	}
	return c
}

// Dialer opens a transport to addr.
type Dialer func(ctx context.Context, addr string, opts hazel.Options) (*hazel.Conn, error)

type Option func(*Client)

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

// WithDispatcher publishes every decoded packet to d by kind, e.g.
// "gamedata/spawn" or "rpc/sync_settings".
func WithDispatcher(d *dispatcher.Dispatcher) Option {
	return func(c *Client) { c.dispatcher = d }
}

func WithCache(ec *cache.EntityCache) Option {
	return func(c *Client) { c.cache = ec }
}

// WithTracer receives every datagram when Config.Verbose is set.
func WithTracer(t hazel.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}
