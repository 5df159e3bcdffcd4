package logging

import (
	"encoding/hex"

	"github.com/rs/zerolog"

	"github.com/amongo/amongo/internal/hazel"
)

// WireTracer dumps every datagram as hex. It runs on the socket read path,
// hence zerolog rather than slog.
type WireTracer struct {
	logger zerolog.Logger
}

func NewWireTracer(logger zerolog.Logger) *WireTracer {
	return &WireTracer{logger: logger}
}

func (t *WireTracer) Trace(dir hazel.Direction, datagram []byte) {
	ev := t.logger.Trace()
	if !ev.Enabled() {
		return
	}
	kind := "empty"
	if len(datagram) > 0 {
		kind = hazel.PacketType(datagram[0]).String()
	}
	ev.Str("dir", string(dir)).
		Str("kind", kind).
		Int("size", len(datagram)).
		Str("hex", hex.EncodeToString(datagram)).
		Msg("datagram")
}
