package mp4_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tetsuo/mp4"
)

// memSink is a minimal in-memory io.ReadWriteSeeker backing the mux/demux
// round-trip tests, growing on demand like a file opened O_RDWR|O_CREATE.
type memSink struct {
	buf []byte
	pos int64
}

func (m *memSink) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memSink) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memSink) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = m.pos + offset
	case io.SeekEnd:
		target = int64(len(m.buf)) + offset
	}
	m.pos = target
	return m.pos, nil
}

// TestMinimalVP9MuxDemuxRoundTrip covers the minimal VP9 scenario from §8: a
// single track, timescale 30000, three sync samples of sizes {1000,500,800}
// with durations {1001,1001,1001}, all landing in one chunk.
func TestMinimalVP9MuxDemuxRoundTrip(t *testing.T) {
	sink := &memSink{}
	m := mp4.NewMuxer(sink)
	m.SetGlobalInfo(mp4.GlobalInfo{Timescale: 30000})

	cfg := &mp4.VP9CodecConfig{Profile: 0, Level: 10, BitDepth: 8, ChromaSubsampling: 0}
	idx, err := m.AddTrack(mp4.SampleEntry{Kind: mp4.SampleEntryVP9, Width: 640, Height: 480, VP9: cfg}, 30000, [4]byte{'v', 'i', 'd', 'e'})
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	require.NoError(t, m.WriteHeader())

	sizes := []int{1000, 500, 800}
	ctx := context.Background()
	var dts int64
	var payloads [][]byte
	for _, size := range sizes {
		payload := make([]byte, size)
		for i := range payload {
			payload[i] = byte(i)
		}
		payloads = append(payloads, payload)
		require.NoError(t, m.WritePacket(ctx, idx, mp4.Packet{
			StreamIndex: idx,
			Payload:     payload,
			DTS:         dts,
			PTS:         dts,
			Duration:    1001,
			IsKey:       true,
		}))
		dts += 1001
	}
	require.NoError(t, m.WriteTrailer(ctx))

	sink.pos = 0
	d, err := mp4.ReadHeaders(sink)
	require.NoError(t, err)
	require.Empty(t, d.Warnings)
	require.Len(t, d.Tracks, 1)

	track := d.Tracks[0]
	require.Equal(t, uint32(30000), track.Timescale)

	desc, err := track.Descriptor(0)
	require.NoError(t, err)
	require.Equal(t, "vp9", desc.CodecID)
	require.Equal(t, "yuv420p", desc.PixelFormat)

	wantDTS := []int64{0, 1001, 2002}
	for i := 0; i < len(sizes); i++ {
		p, err := d.NextEvent(ctx)
		require.NoError(t, err)
		require.Equal(t, wantDTS[i], p.DTS)
		require.Equal(t, uint32(1001), p.Duration)
		require.True(t, p.IsKey)
		require.Equal(t, payloads[i], p.Payload)
	}
	_, err = d.NextEvent(ctx)
	require.True(t, errors.Is(err, io.EOF))
}

// TestMuxerSizesMoovForLargeAVCDecoderConfig covers an AVC track whose SPS
// exceeds what a flat, non-scaling moov buffer allowance would hold: the
// moov buffer must grow with the sample entry's actual encoded size
// (avcC's SPS/PPS are variable-length) rather than a fixed guess, or
// WriteTrailer would panic with an out-of-range slice write.
func TestMuxerSizesMoovForLargeAVCDecoderConfig(t *testing.T) {
	sink := &memSink{}
	m := mp4.NewMuxer(sink)
	m.SetGlobalInfo(mp4.GlobalInfo{Timescale: 90000})

	bigSPS := make([]byte, 4000)
	for i := range bigSPS {
		bigSPS[i] = byte(i)
	}
	cfg := &mp4.AVCDecoderConfig{
		ProfileIndication:    0x64,
		ProfileCompatibility: 0x00,
		LevelIndication:      0x33,
		SPS:                  [][]byte{bigSPS},
		PPS:                  [][]byte{{0x68, 0xeb, 0xec, 0xb2}},
	}
	idx, err := m.AddTrack(mp4.SampleEntry{Kind: mp4.SampleEntryAVC, Width: 1920, Height: 1080, AVC: cfg}, 90000, [4]byte{'v', 'i', 'd', 'e'})
	require.NoError(t, err)
	require.NoError(t, m.WriteHeader())

	ctx := context.Background()
	payload := make([]byte, 200)
	require.NoError(t, m.WritePacket(ctx, idx, mp4.Packet{Payload: payload, Duration: 3000, IsKey: true}))
	require.NoError(t, m.WriteTrailer(ctx))

	sink.pos = 0
	d, err := mp4.ReadHeaders(sink)
	require.NoError(t, err)
	require.Empty(t, d.Warnings)
	require.Len(t, d.Tracks, 1)

	desc, err := d.Tracks[0].Descriptor(0)
	require.NoError(t, err)
	require.Equal(t, "h264", desc.CodecID)
}

// TestMuxerAlwaysEmitsExtendedMdatHeader generalizes the "large box" scenario
// from §8: this core's Muxer always emits the 16-byte extended-size mdat
// header (see Muxer.WriteHeader) rather than switching forms based on the
// eventual size, so a multi-gigabyte mdat is handled by the same code path
// exercised here with a small payload, not a special case.
func TestMuxerAlwaysEmitsExtendedMdatHeader(t *testing.T) {
	sink := &memSink{}
	m := mp4.NewMuxer(sink)
	m.SetGlobalInfo(mp4.GlobalInfo{Timescale: 10000})

	cfg := &mp4.VP9CodecConfig{Profile: 0, Level: 10, BitDepth: 8, ChromaSubsampling: 0}
	idx, err := m.AddTrack(mp4.SampleEntry{Kind: mp4.SampleEntryVP9, Width: 2, Height: 2, VP9: cfg}, 10000, [4]byte{'v', 'i', 'd', 'e'})
	require.NoError(t, err)
	require.NoError(t, m.WriteHeader())

	ctx := context.Background()
	require.NoError(t, m.WritePacket(ctx, idx, mp4.Packet{Payload: []byte{1, 2, 3}, Duration: 1000, IsKey: true}))
	require.NoError(t, m.WriteTrailer(ctx))

	// ftyp is a 20-byte box here (8-byte header + 4-byte brand + 4-byte
	// version + one 4-byte compatible-brands entry): mdat starts right
	// after it, per Muxer.WriteHeader's fixed ftyp("isom",0,["iso5"]).
	mdatStart := 20
	require.Equal(t, mp4.TypeMdat[:], sink.buf[mdatStart+4:mdatStart+8])
	require.Equal(t, []byte{0, 0, 0, 1}, sink.buf[mdatStart:mdatStart+4], "extended-size marker")
}
