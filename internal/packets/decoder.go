package packets

import (
	"errors"
	"fmt"
)

// DecodeOption configures DecodePayloads.
type DecodeOption func(*decoder)

// WithWarnings routes recoverable decode conditions to fn.
func WithWarnings(fn func(Warning)) DecodeOption {
	return func(d *decoder) {
		d.warn = fn
	}
}

// FromClient decodes records as a server would see them. Tag 1 then means a
// JoinGame request instead of a join error.
func FromClient() DecodeOption {
	return func(d *decoder) {
		d.fromClient = true
	}
}

type decoder struct {
	warn       func(Warning)
	fromClient bool
}

func newDecoder(opts []DecodeOption) *decoder {
	d := &decoder{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *decoder) warning(w Warning) {
	if d.warn != nil {
		d.warn(w)
	}
}

// record reads one [length][tag][body] record and hands fn a reader bounded
// to the body. A read past the body is a desync; leftover bytes are skipped
// with a warning. A nested record that runs past its parent's body is a
// desync of the parent.
func (d *decoder) record(r *Reader, level Level, fn func(tag uint8, body *Reader) error) error {
	length, err := r.ReadUint16()
	if err != nil {
		return &DecodeError{Level: level, Err: d.overrun(level, err)}
	}
	tag, err := r.ReadUint8()
	if err != nil {
		return &DecodeError{Level: level, Err: d.overrun(level, err)}
	}
	declared := int(length)
	raw, err := r.take(declared)
	if err != nil {
		return &DecodeError{Level: level, Tag: tag, Declared: declared, Err: d.overrun(level, err)}
	}

	body := NewReader(raw)
	if err := fn(tag, body); err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			return err
		}
		if errors.Is(err, ErrShortBuffer) {
			err = fmt.Errorf("%w: %v", ErrDesync, err)
		}
		return &DecodeError{Level: level, Tag: tag, Declared: declared, Consumed: body.Offset(), Err: err}
	}

	if body.Remaining() > 0 {
		d.warning(Warning{
			Kind:     WarnShortConsume,
			Level:    level,
			Tag:      tag,
			Declared: declared,
			Consumed: body.Offset(),
		})
	}
	return nil
}

// overrun marks a short read as a desync below the payload level, where the
// bytes being read belong to an enclosing record.
func (d *decoder) overrun(level Level, err error) error {
	if level == LevelPayload {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDesync, err)
}
