package mp4_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tetsuo/mp4"
)

// TestBoxHeaderRoundTripSmall covers content sizes that fit in the ordinary
// 4-byte-size box header form.
func TestBoxHeaderRoundTripSmall(t *testing.T) {
	cases := []struct {
		name        string
		contentSize int
	}{
		{"empty", 0},
		{"one byte", 1},
		{"seven bytes", 7},
		{"eight bytes", 8},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			buf := make([]byte, 8+c.contentSize)
			w := mp4.NewWriter(buf)
			w.StartBox(mp4.TypeFree)
			w.Write(make([]byte, c.contentSize))
			w.EndBox()

			r := mp4.NewReader(w.Bytes())
			require.True(t, r.Next())
			require.Equal(t, mp4.TypeFree, r.Type())
			require.Equal(t, uint64(8+c.contentSize), r.Size())
			require.Len(t, r.Data(), c.contentSize)
			require.False(t, r.Next())
			require.NoError(t, r.Err())
		})
	}
}

// TestBoxHeaderRoundTripLarge covers content sizes around the switch to the
// extended 64-bit size form (total size > uint32 max), writing every case in
// the 16-byte form; 2^32-9 would still fit an 8-byte header exactly, the
// others need the 16-byte one. A box this large can never be
// loaded whole into the in-memory Reader, so this drives it through the
// Scanner instead — exactly the path a real multi-gigabyte mdat takes: the
// header is read and decoded without materializing the body, and the
// scanner seeks past it (here on a sink that tracks position without
// allocating, mirroring what a real seekable file does).
func TestBoxHeaderRoundTripLarge(t *testing.T) {
	const uint32Max = 1<<32 - 1

	cases := []struct {
		name        string
		contentSize uint64
	}{
		{"2^32-9", uint32Max - 8},
		{"2^32-8", uint32Max - 7},
		{"2^32-7", uint32Max - 6},
		{"2^40", 1 << 40},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			totalSize := c.contentSize + 16
			hdr := make([]byte, 16)
			binary.BigEndian.PutUint32(hdr[0:4], 1) // extended-size marker
			copy(hdr[4:8], mp4.TypeMdat[:])
			binary.BigEndian.PutUint64(hdr[8:16], totalSize)

			sink := &memSink{}
			_, err := sink.Write(hdr)
			require.NoError(t, err)
			sink.pos = 0

			sc := mp4.NewScanner(sink)
			require.True(t, sc.Next())
			e := sc.Entry()
			require.Equal(t, mp4.TypeMdat, e.Type)
			require.Equal(t, int64(totalSize), e.Size)
			require.Equal(t, 16, e.HeaderSize)
			require.NoError(t, sc.Err())
		})
	}
}

func TestIsFullBoxAndIsContainerBoxAreDisjointForKnownLeaves(t *testing.T) {
	require.True(t, mp4.IsFullBox(mp4.TypeMvhd))
	require.False(t, mp4.IsContainerBox(mp4.TypeMvhd))

	require.True(t, mp4.IsContainerBox(mp4.TypeMoov))
	require.False(t, mp4.IsFullBox(mp4.TypeMoov))

	require.False(t, mp4.IsFullBox(mp4.TypeMdat))
	require.False(t, mp4.IsContainerBox(mp4.TypeMdat))
}
