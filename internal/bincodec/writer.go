// Package bincodec implements the fixed-layout binary encoding shared by the
// binary OCPP messages. All integers are big-endian.
package bincodec

import (
	"encoding/binary"
	"math"
)

// Writer appends fields to a growable buffer. The zero value is ready to use.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with room for sizeHint bytes.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteUint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteUint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteUint64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

// WriteBytes appends b without a length prefix.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteBytes16 appends b prefixed by its length as uint16.
func (w *Writer) WriteBytes16(b []byte) error {
	if len(b) > math.MaxUint16 {
		return ErrFieldTooLarge
	}
	w.WriteUint16(uint16(len(b)))
	w.WriteBytes(b)
	return nil
}

// WriteBytes32 appends b prefixed by its length as uint32.
func (w *Writer) WriteBytes32(b []byte) error {
	if uint64(len(b)) > math.MaxUint32 {
		return ErrFieldTooLarge
	}
	w.WriteUint32(uint32(len(b)))
	w.WriteBytes(b)
	return nil
}

// WriteBytes64 appends b prefixed by its length as uint64.
func (w *Writer) WriteBytes64(b []byte) {
	w.WriteUint64(uint64(len(b)))
	w.WriteBytes(b)
}

// WriteString16 appends the UTF-8 bytes of s with a uint16 length prefix.
func (w *Writer) WriteString16(s string) error {
	return w.WriteBytes16([]byte(s))
}

// WriteString32 appends the UTF-8 bytes of s with a uint32 length prefix.
func (w *Writer) WriteString32(s string) error {
	return w.WriteBytes32([]byte(s))
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the encoded buffer. The slice aliases the writer's storage.
func (w *Writer) Bytes() []byte {
	return w.buf
}
