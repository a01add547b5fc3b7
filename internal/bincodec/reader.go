package bincodec

import (
	"encoding/binary"
	"fmt"
)

// Reader consumes fields from a byte slice, advancing an internal cursor.
// A failed read leaves the cursor where it was.
type Reader struct {
	data []byte
	pos  int
}

// NewReader returns a Reader over data. The data is not copied.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Offset returns the cursor position.
func (r *Reader) Offset() int {
	return r.pos
}

func (r *Reader) next(n uint64, field string) ([]byte, error) {
	if n > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: %s needs %d bytes at offset %d, %d left",
			ErrTruncatedInput, field, n, r.pos, r.Remaining())
	}
	b := r.data[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.next(1, "uint8")
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.next(2, "uint16")
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.next(4, "uint32")
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.next(8, "uint64")
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// ReadBytes returns a copy of the next n bytes.
func (r *Reader) ReadBytes(n uint64) ([]byte, error) {
	b, err := r.next(n, "bytes")
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// ReadBytes16 reads a uint16 length prefix followed by that many bytes.
func (r *Reader) ReadBytes16() ([]byte, error) {
	start := r.pos
	n, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	b, err := r.ReadBytes(uint64(n))
	if err != nil {
		r.pos = start
		return nil, err
	}
	return b, nil
}

// ReadBytes32 reads a uint32 length prefix followed by that many bytes.
func (r *Reader) ReadBytes32() ([]byte, error) {
	start := r.pos
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	b, err := r.ReadBytes(uint64(n))
	if err != nil {
		r.pos = start
		return nil, err
	}
	return b, nil
}

// ReadBytes64 reads a uint64 length prefix followed by that many bytes.
// The length is checked against the remaining input before anything is allocated.
func (r *Reader) ReadBytes64() ([]byte, error) {
	start := r.pos
	n, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	b, err := r.ReadBytes(n)
	if err != nil {
		r.pos = start
		return nil, err
	}
	return b, nil
}

func (r *Reader) ReadString16() (string, error) {
	b, err := r.ReadBytes16()
	return string(b), err
}

func (r *Reader) ReadString32() (string, error) {
	b, err := r.ReadBytes32()
	return string(b), err
}
