package hazel

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/amongo/amongo/internal/channel"
)

const (
	maxDatagram          = 64 * 1024
	defaultPayloadBuffer = 64
)

// Direction tells a Tracer which way a datagram went.
type Direction string

const (
	Inbound  Direction = "in"
	Outbound Direction = "out"
)

// Tracer receives every datagram when Options.Verbose is set.
type Tracer interface {
	Trace(dir Direction, datagram []byte)
}

// Options configure a Conn.
type Options struct {
	// AckTimeout bounds each wait for an acknowledgement. Zero waits until
	// the context is done.
	AckTimeout time.Duration
	// Retries is how many times a reliable datagram is resent after an
	// ack timeout before giving up.
	Retries int
	// DisconnectTimeout bounds the wait for the remote to echo a
	// disconnect. Zero waits until the context is done.
	DisconnectTimeout time.Duration
	PayloadBuffer     int
	Logger            *slog.Logger
	Tracer            Tracer
	Verbose           bool
}

type pendingSend struct {
	id       uint16
	datagram []byte
	acked    chan struct{}
}

// Conn is a Hazel connection to a single remote endpoint. One goroutine
// reads the socket; sends may come from any goroutine.
type Conn struct {
	conn     net.Conn
	opts     Options
	logger   *slog.Logger
	payloads channel.Channel[[]byte]
	metrics  *metrics

	mu       sync.Mutex
	nextID   uint16
	pending  map[uint16]*pendingSend
	detached bool
	echo     chan struct{}
	err      error

	once     sync.Once
	done     chan struct{}
	readDone chan struct{}
}

// Dial connects a UDP socket to addr and starts reading from it. No
// protocol bytes are sent.
func Dial(ctx context.Context, addr string, opts Options) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, &NetworkError{Op: "dial", Err: err}
	}
	c, err := newConn(nc, opts)
	if err != nil {
		_ = nc.Close()
		return nil, err
	}
	return c, nil
}

func newConn(nc net.Conn, opts Options) (*Conn, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PayloadBuffer <= 0 {
		opts.PayloadBuffer = defaultPayloadBuffer
	}

	c := &Conn{
		conn:     nc,
		opts:     opts,
		logger:   opts.Logger.With("remote", nc.RemoteAddr().String()),
		payloads: channel.New[[]byte](opts.PayloadBuffer),
		pending:  make(map[uint16]*pendingSend),
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
	}

	m, err := newMetrics(c)
	if err != nil {
		return nil, err
	}
	c.metrics = m

	go c.readLoop()
	return c, nil
}

// RemoteAddr returns the endpoint this connection talks to.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Payloads returns the stream of inbound application payloads. It is closed
// when the connection shuts down.
func (c *Conn) Payloads() <-chan []byte { return c.payloads.Receive() }

// Done is closed once the connection has shut down.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err returns why the connection shut down, or nil while it is open.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Send writes b as-is.
func (c *Conn) Send(b []byte) error {
	select {
	case <-c.done:
		return c.Err()
	default:
	}
	return c.write(b)
}

// SendNormal sends body as an unacknowledged Normal datagram.
func (c *Conn) SendNormal(body []byte) error {
	d := make([]byte, 0, 1+len(body))
	d = append(d, byte(Normal))
	d = append(d, body...)
	return c.Send(d)
}

// SendReliable frames body under kind with the next reliable id and waits
// for the matching acknowledgement. On each ack timeout the datagram is
// resent, up to Options.Retries times.
func (c *Conn) SendReliable(ctx context.Context, kind PacketType, body []byte) error {
	p, err := c.register(kind, body)
	if err != nil {
		return err
	}
	defer c.forget(p.id)

	attempts := c.opts.Retries + 1
	for attempt := 1; ; attempt++ {
		if err := c.Send(p.datagram); err != nil {
			return err
		}

		acked, err := c.awaitAck(ctx, p)
		if err != nil || acked {
			return err
		}

		c.metrics.timeouts.Add(context.Background(), 1, kindAttr(kind))
		if attempt >= attempts {
			return fmt.Errorf("reliable %s %d after %d attempts: %w", kind, p.id, attempts, ErrAckTimeout)
		}
		c.logger.Debug("Resending reliable packet", "kind", kind, "id", p.id, "attempt", attempt+1)
	}
}

// register allocates the next id and records the pending send before
// anything is written, so an ack can never beat its entry.
func (c *Conn) register(kind PacketType, body []byte) (*pendingSend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return nil, c.err
	}

	c.nextID++
	id := c.nextID
	if _, busy := c.pending[id]; busy {
		return nil, fmt.Errorf("reliable id %d is still awaiting its ack", id)
	}

	d := make([]byte, 3, 3+len(body))
	d[0] = byte(kind)
	binary.BigEndian.PutUint16(d[1:], id)
	d = append(d, body...)

	p := &pendingSend{id: id, datagram: d, acked: make(chan struct{})}
	c.pending[id] = p
	return p, nil
}

func (c *Conn) forget(id uint16) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// awaitAck reports false with a nil error when the ack timeout expired.
func (c *Conn) awaitAck(ctx context.Context, p *pendingSend) (bool, error) {
	var timeout <-chan time.Time
	if c.opts.AckTimeout > 0 {
		t := time.NewTimer(c.opts.AckTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-p.acked:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-c.done:
		select {
		case <-p.acked:
			return true, nil
		default:
		}
		return false, c.Err()
	case <-timeout:
		return false, nil
	}
}

// Disconnect sends a disconnect, stops payload delivery and waits for the
// remote to echo it before closing the socket. The socket is closed even
// when the wait is cut short.
func (c *Conn) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return nil
	}
	c.detached = true
	echo := make(chan struct{})
	c.echo = echo
	c.mu.Unlock()

	defer c.shutdown(ErrClosed)

	if err := c.write([]byte{byte(Disconnect)}); err != nil {
		return err
	}

	var timeout <-chan time.Time
	if c.opts.DisconnectTimeout > 0 {
		t := time.NewTimer(c.opts.DisconnectTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-echo:
		c.logger.Debug("Disconnect acknowledged by remote")
	case <-c.done:
	case <-timeout:
		c.logger.Debug("No disconnect echo, closing anyway", "timeout", c.opts.DisconnectTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Close tears the connection down immediately and waits for the read loop
// to exit.
func (c *Conn) Close() error {
	c.shutdown(ErrClosed)
	<-c.readDone
	return nil
}

func (c *Conn) shutdown(cause error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.err = cause
		c.mu.Unlock()

		close(c.done)
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("Closing socket", "error", err)
		}
		if err := c.metrics.reg.Unregister(); err != nil {
			c.logger.Debug("Unregistering metrics callback", "error", err)
		}
	})
}

func (c *Conn) write(d []byte) error {
	c.trace(Outbound, d)
	if _, err := c.conn.Write(d); err != nil {
		return &NetworkError{Op: "write", Err: err}
	}
	if len(d) > 0 {
		c.metrics.sent.Add(context.Background(), 1, kindAttr(PacketType(d[0])))
	}
	return nil
}

func (c *Conn) trace(dir Direction, d []byte) {
	if c.opts.Verbose && c.opts.Tracer != nil {
		c.opts.Tracer.Trace(dir, d)
	}
}

func (c *Conn) readLoop() {
	defer close(c.readDone)
	defer c.payloads.Close()

	buf := make([]byte, maxDatagram)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("Hazel read failed", "error", err)
			}
			c.shutdown(&NetworkError{Op: "read", Err: err})
			return
		}
		d := make([]byte, n)
		copy(d, buf[:n])
		c.handle(d)

		select {
		case <-c.done:
			return
		default:
		}
	}
}

func (c *Conn) handle(d []byte) {
	if len(d) == 0 {
		return
	}
	c.trace(Inbound, d)
	kind := PacketType(d[0])
	c.metrics.received.Add(context.Background(), 1, kindAttr(kind))

	switch kind {
	case Ack:
		if id, ok := frameID(d); ok {
			c.resolve(id)
		}

	case Ping:
		if id, ok := frameID(d); ok {
			c.ack(id)
		}

	case Disconnect:
		c.mu.Lock()
		echo := c.echo
		c.echo = nil
		c.mu.Unlock()
		if echo != nil {
			close(echo)
			return
		}
		reason := ReasonNone
		if len(d) > 1 {
			reason = DisconnectReason(d[1])
		}
		c.logger.Info("Disconnected by remote", "reason", reason)
		c.shutdown(&RemoteDisconnectError{Reason: reason})

	case Normal:
		c.deliver(d[1:])

	case Reliable:
		id, ok := frameID(d)
		if !ok {
			return
		}
		c.ack(id)
		c.deliver(d[3:])

	default:
		c.logger.Debug("Ignoring datagram of unknown kind", "kind", kind, "size", len(d))
	}
}

func frameID(d []byte) (uint16, bool) {
	if len(d) < 3 {
		return 0, false
	}
	return binary.BigEndian.Uint16(d[1:3]), true
}

func (c *Conn) resolve(id uint16) {
	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if ok {
		close(p.acked)
	}
}

func (c *Conn) ack(id uint16) {
	d := []byte{byte(Ack), 0, 0, 0xff}
	binary.BigEndian.PutUint16(d[1:], id)
	if err := c.write(d); err != nil && !errors.Is(err, net.ErrClosed) {
		c.logger.Warn("Failed to acknowledge", "id", id, "error", err)
	}
}

// deliver blocks while the payload buffer is full, which also holds back
// acknowledgements until the consumer catches up.
func (c *Conn) deliver(payload []byte) {
	c.mu.Lock()
	detached := c.detached
	c.mu.Unlock()
	if detached || len(payload) == 0 {
		return
	}
	c.payloads.SendUntil(payload, c.done)
}
