package mp4_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tetsuo/mp4"
)

func TestDescriptorLengthRoundTrip(t *testing.T) {
	cases := []struct {
		value        uint32
		wantConsumed int
	}{
		{0, 1},
		{0x7F, 1},
		{0x80, 2},
		{0x3FFF, 2},
		{0x4000, 3},
		{0x1FFFFF, 3},
		{0x200000, 4},
		{0xFFFFFFF, 4},
	}

	for _, c := range cases {
		encoded := mp4.EncodeDescriptorLength(c.value)
		require.Len(t, encoded, c.wantConsumed)

		decoded, consumed, ok := mp4.DecodeDescriptorLength(encoded)
		require.True(t, ok)
		require.Equal(t, c.wantConsumed, consumed)
		require.Equal(t, c.value, decoded)
	}
}

func TestDecodeDescriptorLengthRejectsTruncatedInput(t *testing.T) {
	encoded := mp4.EncodeDescriptorLength(0x200000) // 4 bytes, all but the last with the continuation bit set
	_, _, ok := mp4.DecodeDescriptorLength(encoded[:2])
	require.False(t, ok)
}
