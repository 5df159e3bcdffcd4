package logging

import (
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGELFHandler_ShipsRecords(t *testing.T) {
	pc, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer pc.Close()

	h, closer, err := NewGELFHandler(pc.LocalAddr().String(), "info")
	require.NoError(t, err)
	defer closer.Close()

	slog.New(h).Info("joined game", "code", "ABCDEF")

	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 8192)
	n, _, err := pc.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestGELFHandler_BadAddress(t *testing.T) {
	_, _, err := NewGELFHandler("not an address", "info")
	assert.Error(t, err)
}
