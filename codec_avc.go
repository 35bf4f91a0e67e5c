package mp4

// AVCDecoderConfig is the avcC (AVCDecoderConfigurationRecord) payload:
// the structured profile/level/SPS/PPS fields, not an opaque blob, because
// the codec bridge needs to read the individual fields to build extradata.
type AVCDecoderConfig struct {
	ProfileIndication    uint8
	ProfileCompatibility uint8
	LevelIndication      uint8
	SPS                  [][]byte
	PPS                  [][]byte
}

// DecodeAVCDecoderConfig parses an avcC box payload (box header already
// consumed).
func DecodeAVCDecoderConfig(data []byte) (*AVCDecoderConfig, error) {
	if len(data) < 7 {
		return nil, ErrUnexpectedEos
	}
	// data[0] = configurationVersion, must be 1; ignored beyond that.
	c := &AVCDecoderConfig{
		ProfileIndication:    data[1],
		ProfileCompatibility: data[2],
		LevelIndication:      data[3],
	}
	// data[4]: reserved(6 bits, all 1) | lengthSizeMinusOne(2 bits) — this
	// core always writes lengthSizeMinusOne=3 and does not surface it,
	// matching the fixed 4-byte NAL length prefix convention.
	ptr := 5
	spsCount := int(data[ptr] & 0x1f)
	ptr++
	for i := 0; i < spsCount; i++ {
		if ptr+2 > len(data) {
			return nil, ErrUnexpectedEos
		}
		n := int(be.Uint16(data[ptr:]))
		ptr += 2
		if ptr+n > len(data) {
			return nil, ErrUnexpectedEos
		}
		c.SPS = append(c.SPS, data[ptr:ptr+n])
		ptr += n
	}
	if ptr >= len(data) {
		return nil, ErrUnexpectedEos
	}
	ppsCount := int(data[ptr])
	ptr++
	for i := 0; i < ppsCount; i++ {
		if ptr+2 > len(data) {
			return nil, ErrUnexpectedEos
		}
		n := int(be.Uint16(data[ptr:]))
		ptr += 2
		if ptr+n > len(data) {
			return nil, ErrUnexpectedEos
		}
		c.PPS = append(c.PPS, data[ptr:ptr+n])
		ptr += n
	}
	return c, nil
}

// Size returns the encoded size of the avcC payload (excluding box header).
func (c *AVCDecoderConfig) Size() int {
	n := 7 // version+profile+compat+level+lengthSize+spsCount+ppsCount
	for _, s := range c.SPS {
		n += 2 + len(s)
	}
	for _, p := range c.PPS {
		n += 2 + len(p)
	}
	return n
}

// WriteAvcC writes a complete avcC box (not a FullBox: it carries no
// version/flags extension of its own).
func (w *Writer) WriteAvcC(c *AVCDecoderConfig) {
	w.StartBox(TypeAvcC)
	w.putUint8(1) // configurationVersion
	w.putUint8(c.ProfileIndication)
	w.putUint8(c.ProfileCompatibility)
	w.putUint8(c.LevelIndication)
	w.putUint8(0xfc | 3) // reserved(111111) + lengthSizeMinusOne=3
	w.putUint8(0xe0 | byte(len(c.SPS)&0x1f))
	for _, s := range c.SPS {
		w.putUint16(uint16(len(s)))
		w.putBytes(s)
	}
	w.putUint8(byte(len(c.PPS)))
	for _, p := range c.PPS {
		w.putUint16(uint16(len(p)))
		w.putBytes(p)
	}
	w.EndBox()
}

// avcExtradata builds the Annex-B-prefixed extradata the codec bridge
// exposes for AVC: the first SPS, start-code prefixed, optionally followed
// by the first PPS, also start-code prefixed.
func avcExtradata(c *AVCDecoderConfig) []byte {
	var out []byte
	if len(c.SPS) > 0 {
		out = append(out, 0, 0, 1)
		out = append(out, c.SPS[0]...)
	}
	if len(c.PPS) > 0 {
		out = append(out, 0, 0, 1)
		out = append(out, c.PPS[0]...)
	}
	return out
}

// AVCStreamDescriptor builds the abstract Stream descriptor fields for an
// avc1+avcC sample entry: codec_id "h264" and Annex-B extradata.
func AVCStreamDescriptor(width, height uint16, c *AVCDecoderConfig) StreamDescriptor {
	return StreamDescriptor{
		CodecID:   "h264",
		Extradata: avcExtradata(c),
		Kind:      KindVideo,
		Width:     int(width),
		Height:    int(height),
	}
}
