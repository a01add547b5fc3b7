package bincodec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterLayout(t *testing.T) {
	w := NewWriter(0)
	w.WriteUint8(0x01)
	w.WriteUint16(0x0203)
	w.WriteUint32(0x04050607)
	w.WriteUint64(0x08090a0b0c0d0e0f)
	require.NoError(t, w.WriteBytes16([]byte{0xaa}))

	want := []byte{
		0x01,
		0x02, 0x03,
		0x04, 0x05, 0x06, 0x07,
		0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f,
		0x00, 0x01, 0xaa,
	}
	require.Equal(t, want, w.Bytes())
	require.Equal(t, len(want), w.Len())
}

func TestRoundtrip(t *testing.T) {
	w := NewWriter(64)
	w.WriteUint8(math.MaxUint8)
	w.WriteUint16(math.MaxUint16)
	w.WriteUint32(math.MaxUint32)
	w.WriteUint64(math.MaxUint64)
	w.WriteBytes64([]byte("ciphertext"))
	require.NoError(t, w.WriteString16("héllo"))
	require.NoError(t, w.WriteString32(""))

	r := NewReader(w.Bytes())
	u8, err := r.ReadUint8()
	require.NoError(t, err)
	require.Equal(t, uint8(math.MaxUint8), u8)
	u16, err := r.ReadUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(math.MaxUint16), u16)
	u32, err := r.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(math.MaxUint32), u32)
	u64, err := r.ReadUint64()
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64), u64)
	b, err := r.ReadBytes64()
	require.NoError(t, err)
	require.Equal(t, []byte("ciphertext"), b)
	s, err := r.ReadString16()
	require.NoError(t, err)
	require.Equal(t, "héllo", s)
	s, err = r.ReadString32()
	require.NoError(t, err)
	require.Equal(t, "", s)
	require.Zero(t, r.Remaining())
}

func TestReadPastEnd(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		read func(r *Reader) error
	}{
		{"uint8", nil, func(r *Reader) error { _, err := r.ReadUint8(); return err }},
		{"uint16", []byte{1}, func(r *Reader) error { _, err := r.ReadUint16(); return err }},
		{"uint32", []byte{1, 2, 3}, func(r *Reader) error { _, err := r.ReadUint32(); return err }},
		{"uint64", []byte{1, 2, 3, 4, 5, 6, 7}, func(r *Reader) error { _, err := r.ReadUint64(); return err }},
		{"bytes", []byte{1}, func(r *Reader) error { _, err := r.ReadBytes(2); return err }},
		{"bytes16 body", []byte{0, 3, 1, 2}, func(r *Reader) error { _, err := r.ReadBytes16(); return err }},
		{"bytes32 body", []byte{0, 0, 0, 1}, func(r *Reader) error { _, err := r.ReadBytes32(); return err }},
		{"bytes64 huge", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0}, func(r *Reader) error { _, err := r.ReadBytes64(); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.data)
			err := tt.read(r)
			require.ErrorIs(t, err, ErrTruncatedInput)
			require.Zero(t, r.Offset(), "failed read must not move the cursor")
		})
	}
}

func TestReadBytesCopies(t *testing.T) {
	data := []byte{0, 2, 'o', 'k'}
	b, err := NewReader(data).ReadBytes16()
	require.NoError(t, err)
	data[2] = 'x'
	require.Equal(t, []byte("ok"), b)
}

func TestWriteBytes16TooLarge(t *testing.T) {
	w := NewWriter(0)
	err := w.WriteBytes16(make([]byte, math.MaxUint16+1))
	require.ErrorIs(t, err, ErrFieldTooLarge)
	require.Zero(t, w.Len())
}
