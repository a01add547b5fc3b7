package securedata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus(1)
	require.True(t, ok)
	require.Equal(t, StatusAccepted, s)

	s, ok = ParseStatus(2)
	require.True(t, ok)
	require.Equal(t, StatusRejected, s)

	for _, code := range []uint16{3, 100, 0xffff} {
		s, ok := ParseStatus(code)
		require.False(t, ok)
		require.Equal(t, StatusUnknown, s)
	}
}

func TestParseStatusString(t *testing.T) {
	tests := []struct {
		text string
		want Status
		ok   bool
	}{
		{"Accepted", StatusAccepted, true},
		{"Rejected", StatusRejected, true},
		{"Unknown", StatusUnknown, true},
		{"77", Status(77), true},
		{"nope", StatusUnknown, false},
		{"70000", StatusUnknown, false},
	}
	for _, tt := range tests {
		got, ok := ParseStatusString(tt.text)
		require.Equal(t, tt.ok, ok, tt.text)
		require.Equal(t, tt.want, got, tt.text)
	}
}

func TestStatusText(t *testing.T) {
	require.Equal(t, "Accepted", StatusAccepted.String())
	require.Equal(t, "513", Status(513).String())

	b, err := StatusRejected.MarshalText()
	require.NoError(t, err)
	var s Status
	require.NoError(t, s.UnmarshalText(b))
	require.Equal(t, StatusRejected, s)
	require.Error(t, s.UnmarshalText([]byte("bogus")))
}
