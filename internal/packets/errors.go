package packets

import (
	"errors"
	"fmt"
)

var (
	// ErrDesync means a decoder read past the end of its record. The rest of
	// the stream cannot be trusted.
	ErrDesync = errors.New("record over-consumed its declared length")

	// ErrVersionMismatch is returned for game options older than version 4.
	ErrVersionMismatch = errors.New("unsupported game options version")
)

// Level names the nesting level a record was read at.
type Level string

const (
	LevelPayload  Level = "payload"
	LevelGameData Level = "gamedata"
	LevelRPC      Level = "rpc"
	LevelPlayer   Level = "player"
)

// DecodeError reports a failure while decoding a record. Consumed is the
// number of body bytes read before the failure.
type DecodeError struct {
	Level    Level
	Tag      uint8
	Declared int
	Consumed int
	Err      error
}

func (e *DecodeError) Error() string {
	if errors.Is(e.Err, ErrDesync) {
		return fmt.Sprintf("decoding %s record %d: read past %d declared bytes: %v",
			e.Level, e.Tag, e.Declared, e.Err)
	}
	return fmt.Sprintf("decoding %s record %d: %v", e.Level, e.Tag, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// WarningKind classifies a non-fatal decode condition.
type WarningKind int

const (
	WarnUnknownTag WarningKind = iota
	WarnUnknownRPC
	WarnShortConsume
	WarnNewerVersion
)

func (k WarningKind) String() string {
	switch k {
	case WarnUnknownTag:
		return "unknown tag"
	case WarnUnknownRPC:
		return "unknown rpc"
	case WarnShortConsume:
		return "did not use entire length"
	case WarnNewerVersion:
		return "newer version"
	}
	return fmt.Sprintf("warning(%d)", int(k))
}

// Warning is a recoverable decode condition. The offending bytes were
// skipped and decoding continued.
type Warning struct {
	Kind     WarningKind
	Level    Level
	Tag      uint8
	Declared int
	Consumed int
}

func (w Warning) String() string {
	return fmt.Sprintf("%s record %d: %s (%d of %d bytes)", w.Level, w.Tag, w.Kind, w.Consumed, w.Declared)
}
