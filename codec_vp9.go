package mp4

// VP9CodecConfig is the vpcC (VPCodecConfigurationRecord) payload.
type VP9CodecConfig struct {
	Profile                uint8
	Level                  uint8
	BitDepth               uint8
	ChromaSubsampling      uint8
	VideoFullRangeFlag     bool
	ColourPrimaries        uint8
	TransferCharacteristics uint8
	MatrixCoefficients     uint8
}

// DecodeVP9CodecConfig parses a vpcC box payload (full-box version/flags
// already consumed by the caller via Reader.Version/Reader.Flags; data
// starts at the profile byte).
func DecodeVP9CodecConfig(data []byte) (*VP9CodecConfig, error) {
	if len(data) < 8 {
		return nil, ErrUnexpectedEos
	}
	c := &VP9CodecConfig{
		Profile:                 data[0],
		Level:                   data[1],
		BitDepth:                (data[2] >> 4) & 0x0f,
		ChromaSubsampling:       (data[2] >> 1) & 0x07,
		VideoFullRangeFlag:      data[2]&0x01 != 0,
		ColourPrimaries:         data[3],
		TransferCharacteristics: data[4],
		MatrixCoefficients:      data[5],
	}
	initLen := be.Uint16(data[6:8])
	if initLen != 0 {
		return nil, &InvalidBoxSizeError{Type: TypeVpcC, Size: uint64(initLen)}
	}
	return c, nil
}

// WriteVpcC writes a complete vpcC box (a FullBox with version=1, flags=0).
func (w *Writer) WriteVpcC(c *VP9CodecConfig) {
	w.StartFullBox(TypeVpcC, 1, 0)
	w.putUint8(c.Profile)
	w.putUint8(c.Level)
	packed := (c.ChromaSubsampling&0x07)<<1 | boolBit(c.VideoFullRangeFlag)
	packed |= (c.BitDepth & 0x0f) << 4
	w.putUint8(packed)
	w.putUint8(c.ColourPrimaries)
	w.putUint8(c.TransferCharacteristics)
	w.putUint8(c.MatrixCoefficients)
	w.putUint16(0) // codecIntializationDataSize, always 0 for VP9
	w.EndBox()
}

func boolBit(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// vp9PixelFormat is the (profile, bit_depth, chroma_subsampling) -> pixel
// format lookup table from the reference demuxer's as_codec_params.
var vp9PixelFormat = map[[3]uint8]string{
	{0, 8, 0}:  "yuv420p",
	{2, 10, 0}: "yuv420p10",
	{1, 8, 0}:  "yuv422p",
	{3, 10, 0}: "yuv422p10",
	{1, 8, 2}:  "yuv444p",
	{3, 10, 2}: "yuv444p10",
}

// VP9StreamDescriptor builds the abstract Stream descriptor fields for a
// vp09+vpcC sample entry, or an error if the (profile, bit_depth,
// chroma_subsampling) triple is not one of the recognized pixel formats.
func VP9StreamDescriptor(width, height uint16, c *VP9CodecConfig) (StreamDescriptor, error) {
	key := [3]uint8{c.Profile, c.BitDepth, c.ChromaSubsampling}
	format, ok := vp9PixelFormat[key]
	if !ok {
		return StreamDescriptor{}, &UnsupportedCodecError{CodecID: "vp9"}
	}
	return StreamDescriptor{
		CodecID:     "vp9",
		Extradata:   encodeVP9Extradata(c),
		Kind:        KindVideo,
		Width:       int(width),
		Height:      int(height),
		PixelFormat: format,
	}, nil
}

// encodeVP9Extradata emits the triplet-encoded feature blob: repeating
// (id, len=1, value) for (1,profile),(2,level),(3,bit_depth),(4,chroma_subsampling).
func encodeVP9Extradata(c *VP9CodecConfig) []byte {
	return []byte{
		1, 1, c.Profile,
		2, 1, c.Level,
		3, 1, c.BitDepth,
		4, 1, c.ChromaSubsampling,
	}
}

// DecodeVP9Extradata parses the triplet-encoded feature blob produced by
// [VP9StreamDescriptor] back into a VP9CodecConfig. It is the inverse used
// when a host only has an extradata blob on hand (no live VP9 bitstream to
// read the uncompressed frame header from) and needs to reconstruct a vpcC
// for muxing. Missing feature IDs 1-4 are fatal: MissingCodecFeatureError.
func DecodeVP9Extradata(data []byte) (*VP9CodecConfig, error) {
	var profile, level, bitDepth, chroma *uint8
	ptr := 0
	for ptr+3 <= len(data) {
		id, length, value := data[ptr], data[ptr+1], data[ptr+2]
		ptr += 2 + int(length)
		switch id {
		case 1:
			v := value
			profile = &v
		case 2:
			v := value
			level = &v
		case 3:
			v := value
			bitDepth = &v
		case 4:
			v := value
			chroma = &v
		}
	}
	required := []struct {
		id byte
		v  *uint8
	}{
		{1, profile}, {2, level}, {3, bitDepth}, {4, chroma},
	}
	for _, r := range required {
		if r.v == nil {
			return nil, &MissingCodecFeatureError{FeatureID: r.id}
		}
	}
	return &VP9CodecConfig{
		Profile:   *profile,
		Level:     *level,
		BitDepth:  *bitDepth,
		ChromaSubsampling: *chroma,
	}, nil
}
