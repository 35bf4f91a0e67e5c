package mp4_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tetsuo/mp4"
)

func TestAVCDecoderConfigRoundTrip(t *testing.T) {
	cfg := &mp4.AVCDecoderConfig{
		ProfileIndication:    0x64,
		ProfileCompatibility: 0x00,
		LevelIndication:      0x1f,
		SPS:                  [][]byte{{0x67, 0x64, 0x00, 0x1f}},
		PPS:                  [][]byte{{0x68, 0xeb, 0xec, 0xb2}},
	}

	buf := make([]byte, 8+cfg.Size())
	w := mp4.NewWriter(buf)
	w.WriteAvcC(cfg)

	r := mp4.NewReader(w.Bytes())
	require.True(t, r.Next())
	require.Equal(t, mp4.TypeAvcC, r.Type())

	got, err := mp4.DecodeAVCDecoderConfig(r.Data())
	require.NoError(t, err)
	require.Equal(t, cfg, got)

	desc := mp4.AVCStreamDescriptor(1920, 1080, got)
	require.Equal(t, "h264", desc.CodecID)
	require.Equal(t, mp4.KindVideo, desc.Kind)
	require.Equal(t, 1920, desc.Width)
	require.Equal(t, 1080, desc.Height)
}

func TestVP9CodecConfigRoundTrip(t *testing.T) {
	cfg := &mp4.VP9CodecConfig{
		Profile:                 1,
		Level:                   10,
		BitDepth:                8,
		ChromaSubsampling:       0,
		ColourPrimaries:         1,
		TransferCharacteristics: 1,
		MatrixCoefficients:      1,
	}

	buf := make([]byte, 32)
	w := mp4.NewWriter(buf)
	w.WriteVpcC(cfg)

	r := mp4.NewReader(w.Bytes())
	require.True(t, r.Next())
	require.Equal(t, mp4.TypeVpcC, r.Type())
	require.Equal(t, uint8(1), r.Version())

	got, err := mp4.DecodeVP9CodecConfig(r.Data())
	require.NoError(t, err)
	require.Equal(t, cfg, got)

	desc, err := mp4.VP9StreamDescriptor(1280, 720, got)
	require.NoError(t, err)
	require.Equal(t, "yuv422p", desc.PixelFormat)
}

func TestVP9CodecConfigUnsupportedCombinationDoesNotPanic(t *testing.T) {
	cfg := &mp4.VP9CodecConfig{Profile: 2, BitDepth: 12, ChromaSubsampling: 3}
	_, err := mp4.VP9StreamDescriptor(64, 64, cfg)
	require.Error(t, err)
	var unsupported *mp4.UnsupportedCodecError
	require.ErrorAs(t, err, &unsupported)
}

// TestVP9ExtradataRoundTrip covers the inverse translation a host with only
// an extradata blob on hand (no live bitstream) needs: DecodeVP9Extradata
// must recover the same feature IDs VP9StreamDescriptor encoded.
func TestVP9ExtradataRoundTrip(t *testing.T) {
	cfg := &mp4.VP9CodecConfig{
		Profile:           1,
		Level:             10,
		BitDepth:          8,
		ChromaSubsampling: 0,
	}
	desc, err := mp4.VP9StreamDescriptor(640, 480, cfg)
	require.NoError(t, err)

	got, err := mp4.DecodeVP9Extradata(desc.Extradata)
	require.NoError(t, err)
	require.Equal(t, cfg.Profile, got.Profile)
	require.Equal(t, cfg.Level, got.Level)
	require.Equal(t, cfg.BitDepth, got.BitDepth)
	require.Equal(t, cfg.ChromaSubsampling, got.ChromaSubsampling)
}

// TestDecodeVP9ExtradataMissingFeatureFails checks that a blob missing one of
// the four mandatory feature IDs (here: bit_depth, ID 3) fails with
// MissingCodecFeatureError rather than silently defaulting.
func TestDecodeVP9ExtradataMissingFeatureFails(t *testing.T) {
	blob := []byte{
		1, 1, 1, // profile
		2, 1, 10, // level
		4, 1, 0, // chroma_subsampling
	}
	_, err := mp4.DecodeVP9Extradata(blob)
	require.Error(t, err)
	var missing *mp4.MissingCodecFeatureError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, byte(3), missing.FeatureID)
}
