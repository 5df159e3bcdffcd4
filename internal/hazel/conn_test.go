package hazel

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRemote is the server end of a test connection.
type fakeRemote struct {
	t    *testing.T
	pc   *net.UDPConn
	peer *net.UDPAddr
}

func newFakeRemote(t *testing.T) *fakeRemote {
	t.Helper()
	pc, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pc.Close() })
	return &fakeRemote{t: t, pc: pc}
}

func (f *fakeRemote) addr() string { return f.pc.LocalAddr().String() }

func (f *fakeRemote) read() []byte {
	f.t.Helper()
	buf := make([]byte, 2048)
	require.NoError(f.t, f.pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, peer, err := f.pc.ReadFromUDP(buf)
	require.NoError(f.t, err)
	f.peer = peer
	return buf[:n]
}

func (f *fakeRemote) send(b []byte) {
	f.t.Helper()
	require.NotNil(f.t, f.peer, "remote has not heard from the client yet")
	_, err := f.pc.WriteToUDP(b, f.peer)
	require.NoError(f.t, err)
}

type recordingTracer struct {
	mu   sync.Mutex
	dirs []Direction
}

func (r *recordingTracer) Trace(dir Direction, _ []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirs = append(r.dirs, dir)
}

func dialTest(t *testing.T, remote *fakeRemote, opts Options) *Conn {
	t.Helper()
	c, err := Dial(context.Background(), remote.addr(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sendAsync(c *Conn, ctx context.Context, kind PacketType, body []byte) <-chan error {
	res := make(chan error, 1)
	go func() { res <- c.SendReliable(ctx, kind, body) }()
	return res
}

func TestSendReliable_ResolvesOnlyOnMatchingAck(t *testing.T) {
	remote := newFakeRemote(t)
	c := dialTest(t, remote, Options{})

	res := sendAsync(c, context.Background(), Reliable, []byte{0xaa, 0xbb})

	assert.Equal(t, []byte{byte(Reliable), 0x00, 0x01, 0xaa, 0xbb}, remote.read())

	remote.send([]byte{byte(Ack), 0x00, 0x05, 0xff})
	select {
	case err := <-res:
		t.Fatalf("send resolved by a non-matching ack: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	remote.send([]byte{byte(Ack), 0x00, 0x01, 0xff})
	select {
	case err := <-res:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("send did not resolve on matching ack")
	}
}

func TestSendReliable_OutOfOrderAcks(t *testing.T) {
	remote := newFakeRemote(t)
	c := dialTest(t, remote, Options{})

	first := sendAsync(c, context.Background(), Reliable, []byte{0x01})
	remote.read()
	second := sendAsync(c, context.Background(), Reliable, []byte{0x02})
	remote.read()

	remote.send([]byte{byte(Ack), 0x00, 0x02, 0xff})
	require.NoError(t, <-second)

	select {
	case <-first:
		t.Fatal("first send resolved by the second ack")
	default:
	}

	remote.send([]byte{byte(Ack), 0x00, 0x01, 0xff})
	require.NoError(t, <-first)
}

func TestSendReliable_IDWraps(t *testing.T) {
	remote := newFakeRemote(t)
	c := dialTest(t, remote, Options{})
	c.mu.Lock()
	c.nextID = 0xffff
	c.mu.Unlock()

	res := sendAsync(c, context.Background(), Hello, nil)
	d := remote.read()
	assert.Equal(t, []byte{byte(Hello), 0x00, 0x00}, d)

	remote.send([]byte{byte(Ack), 0x00, 0x00, 0xff})
	require.NoError(t, <-res)
}

func TestSendReliable_RetriesThenTimesOut(t *testing.T) {
	remote := newFakeRemote(t)
	c := dialTest(t, remote, Options{AckTimeout: 50 * time.Millisecond, Retries: 2})

	res := sendAsync(c, context.Background(), Reliable, []byte{0x07})

	for i := 0; i < 3; i++ {
		assert.Equal(t, []byte{byte(Reliable), 0x00, 0x01, 0x07}, remote.read(), "attempt %d", i+1)
	}

	err := <-res
	assert.ErrorIs(t, err, ErrAckTimeout)

	c.mu.Lock()
	assert.Empty(t, c.pending)
	c.mu.Unlock()
}

func TestSendReliable_ResendIsAcked(t *testing.T) {
	remote := newFakeRemote(t)
	c := dialTest(t, remote, Options{AckTimeout: 50 * time.Millisecond, Retries: 3})

	res := sendAsync(c, context.Background(), Reliable, []byte{0x07})
	remote.read()
	remote.read()
	remote.send([]byte{byte(Ack), 0x00, 0x01, 0xff})

	assert.NoError(t, <-res)
}

func TestSendReliable_ContextCancel(t *testing.T) {
	remote := newFakeRemote(t)
	c := dialTest(t, remote, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	res := sendAsync(c, ctx, Reliable, []byte{0x01})
	remote.read()
	cancel()

	assert.ErrorIs(t, <-res, context.Canceled)
}

func TestInboundReliableIsAckedAndDelivered(t *testing.T) {
	remote := newFakeRemote(t)
	tracer := &recordingTracer{}
	c := dialTest(t, remote, Options{Tracer: tracer, Verbose: true})

	require.NoError(t, c.SendNormal([]byte{0x42}))
	assert.Equal(t, []byte{byte(Normal), 0x42}, remote.read())

	remote.send([]byte{byte(Reliable), 0x00, 0x07, 0xde, 0xad})
	assert.Equal(t, []byte{byte(Ack), 0x00, 0x07, 0xff}, remote.read())

	select {
	case p := <-c.Payloads():
		assert.Equal(t, []byte{0xde, 0xad}, p)
	case <-time.After(2 * time.Second):
		t.Fatal("payload not delivered")
	}

	remote.send([]byte{byte(Normal), 0xbe, 0xef})
	assert.Equal(t, []byte{0xbe, 0xef}, <-c.Payloads())

	tracer.mu.Lock()
	assert.Contains(t, tracer.dirs, Inbound)
	assert.Contains(t, tracer.dirs, Outbound)
	tracer.mu.Unlock()
}

func TestPingIsAcked(t *testing.T) {
	remote := newFakeRemote(t)
	c := dialTest(t, remote, Options{})

	require.NoError(t, c.Send([]byte{byte(Normal)}))
	remote.read()

	remote.send([]byte{byte(Ping), 0x01, 0x02})
	assert.Equal(t, []byte{byte(Ack), 0x01, 0x02, 0xff}, remote.read())

	select {
	case p := <-c.Payloads():
		t.Fatalf("ping produced a payload: %x", p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnknownKindIsIgnored(t *testing.T) {
	remote := newFakeRemote(t)
	c := dialTest(t, remote, Options{})

	require.NoError(t, c.SendNormal(nil))
	remote.read()

	remote.send([]byte{0x63, 0x01})
	remote.send([]byte{byte(Normal), 0x01})
	assert.Equal(t, []byte{0x01}, <-c.Payloads())
	assert.NoError(t, c.Err())
}

func TestRemoteDisconnectFailsPendingSends(t *testing.T) {
	remote := newFakeRemote(t)
	c := dialTest(t, remote, Options{})

	res := sendAsync(c, context.Background(), Reliable, []byte{0x01})
	remote.read()
	remote.send([]byte{byte(Disconnect), byte(ReasonBanned)})

	err := <-res
	var rde *RemoteDisconnectError
	require.ErrorAs(t, err, &rde)
	assert.Equal(t, ReasonBanned, rde.Reason)

	<-c.Done()
	_, open := <-c.Payloads()
	assert.False(t, open, "payload stream must close")

	assert.ErrorAs(t, c.SendReliable(context.Background(), Reliable, nil), &rde)
}

func TestDisconnectHandshake(t *testing.T) {
	remote := newFakeRemote(t)
	c := dialTest(t, remote, Options{DisconnectTimeout: 2 * time.Second})

	require.NoError(t, c.SendNormal([]byte{0x01}))
	remote.read()

	res := make(chan error, 1)
	go func() { res <- c.Disconnect(context.Background()) }()

	assert.Equal(t, []byte{byte(Disconnect)}, remote.read())

	// Payloads arriving after the disconnect started are dropped.
	remote.send([]byte{byte(Normal), 0x09})
	remote.send([]byte{byte(Disconnect)})

	require.NoError(t, <-res)
	<-c.Done()
	assert.True(t, errors.Is(c.Err(), ErrClosed))

	for p := range c.Payloads() {
		t.Fatalf("payload delivered after disconnect: %x", p)
	}
}

func TestDisconnectWithoutEcho(t *testing.T) {
	remote := newFakeRemote(t)
	c := dialTest(t, remote, Options{DisconnectTimeout: 50 * time.Millisecond})

	require.NoError(t, c.Disconnect(context.Background()))
	assert.Equal(t, []byte{byte(Disconnect)}, remote.read())
	assert.ErrorIs(t, c.Err(), ErrClosed)
	assert.ErrorIs(t, c.Send([]byte{0x00}), ErrClosed)
}

func TestPacketTypeString(t *testing.T) {
	assert.Equal(t, "ack", Ack.String())
	assert.Equal(t, "packet(99)", PacketType(99).String())
	assert.Equal(t, "banned from the game", ReasonBanned.String())
	assert.Equal(t, "reason 42", DisconnectReason(42).String())
}
