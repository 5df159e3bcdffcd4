package packets

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer accumulates an encoded buffer. The first error is sticky; later
// writes are ignored and Err reports it.
type Writer struct {
	buf []byte
	err error
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// Bytes returns the encoded buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Err returns the first error hit while writing.
func (w *Writer) Err() error { return w.err }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteInt8(v int8) {
	w.buf = append(w.buf, byte(v))
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
		return
	}
	w.buf = append(w.buf, 0)
}

func (w *Writer) WriteUint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteUint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

func (w *Writer) WriteFloat32(v float32) {
	w.WriteUint32(math.Float32bits(v))
}

func (w *Writer) WritePacked(v uint32) {
	w.buf = AppendPacked(w.buf, v)
}

// WriteString writes s behind a one-byte length.
func (w *Writer) WriteString(s string) {
	if len(s) > math.MaxUint8 {
		w.fail(fmt.Errorf("string of %d bytes does not fit a one-byte length", len(s)))
		return
	}
	w.buf = append(w.buf, byte(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Record writes a [length:u16][tag:u8][body] record, where body is whatever
// fn writes and length counts the body only.
func (w *Writer) Record(tag uint8, fn func(*Writer)) {
	start := len(w.buf)
	w.buf = append(w.buf, 0, 0, tag)
	fn(w)
	n := len(w.buf) - start - 3
	if n > math.MaxUint16 {
		w.fail(fmt.Errorf("record tag %d: body of %d bytes overflows length prefix", tag, n))
		return
	}
	binary.BigEndian.PutUint16(w.buf[start:], uint16(n))
}
