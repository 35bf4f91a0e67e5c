package mp4_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tetsuo/mp4"
)

func TestReadFtyp(t *testing.T) {
	buf := make([]byte, 64)
	w := mp4.NewWriter(buf)
	w.WriteFtyp([4]byte{'i', 's', 'o', 'm'}, 512, [][4]byte{{'i', 's', 'o', '5'}, {'m', 'p', '4', '1'}})

	r := mp4.NewReader(w.Bytes())
	require.True(t, r.Next())
	require.Equal(t, mp4.TypeFtyp, r.Type())

	ft := mp4.ReadFtyp(r.Data())
	require.Equal(t, [4]byte{'i', 's', 'o', 'm'}, ft.MajorBrand)
	require.Equal(t, uint32(512), ft.MinorVersion)
	require.Equal(t, [][4]byte{{'i', 's', 'o', '5'}, {'m', 'p', '4', '1'}}, ft.Compatible)
}

func TestReadVisualSampleEntry(t *testing.T) {
	buf := make([]byte, 78)
	w := mp4.NewWriter(buf)
	w.WriteVisualSampleEntry(1, 1920, 1080, 1, 24, "")

	v := mp4.ReadVisualSampleEntry(w.Bytes())
	require.Equal(t, uint16(1), v.DataReferenceIndex)
	require.Equal(t, uint16(1920), v.Width)
	require.Equal(t, uint16(1080), v.Height)
	require.Equal(t, 78, v.ChildOffset)
}

func TestReadAudioSampleEntry(t *testing.T) {
	buf := make([]byte, 28)
	w := mp4.NewWriter(buf)
	w.WriteAudioSampleEntry(1, 2, 16, 48000<<16)

	a := mp4.ReadAudioSampleEntry(w.Bytes())
	require.Equal(t, uint16(1), a.DataReferenceIndex)
	require.Equal(t, uint16(2), a.ChannelCount)
	require.Equal(t, uint16(16), a.SampleSize)
	require.Equal(t, uint32(48000<<16), a.SampleRate)
	require.Equal(t, 28, a.ChildOffset)
}
