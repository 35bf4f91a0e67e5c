package mp4_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tetsuo/mp4"
)

func TestUnexpectedEosErrorUnwrapsToSentinel(t *testing.T) {
	err := &mp4.UnexpectedEosError{Type: mp4.TypeMoov, Offset: 42}
	require.True(t, errors.Is(err, mp4.ErrUnexpectedEos))

	var target *mp4.UnexpectedEosError
	require.True(t, errors.As(err, &target))
	require.Equal(t, 42, target.Offset)
}

func TestMoovNotFoundPropagatesAsFatal(t *testing.T) {
	// A source with no moov box at all: ReadHeaders must surface
	// ErrMoovNotFound rather than returning a Demuxer with zero tracks.
	sink := &memSink{}
	buf := make([]byte, 16)
	w := mp4.NewWriter(buf)
	w.WriteFtyp([4]byte{'i', 's', 'o', 'm'}, 0, nil)
	_, err := sink.Write(w.Bytes())
	require.NoError(t, err)
	sink.pos = 0

	_, err = mp4.ReadHeaders(sink)
	require.ErrorIs(t, err, mp4.ErrMoovNotFound)
}
