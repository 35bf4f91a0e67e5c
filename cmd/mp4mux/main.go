// Command mp4mux muxes raw elementary streams (Annex-B .h264, VP9 .ivf) into
// a single progressive MP4, driven entirely through the public Muxer API.
package main

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tetsuo/mp4"
)

// muxedTrack pairs a registered track index with the packets to feed it, in
// per-track arrival order.
type muxedTrack struct {
	index   int
	packets []mp4.Packet
}

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <out.mp4> <track-spec>...\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  track-spec: path.h264[:WxH][:timescale] or path.ivf[:x=<hex extradata>]\n")
		os.Exit(1)
	}

	out, err := os.Create(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	m := mp4.NewMuxer(out)
	m.SetGlobalInfo(mp4.GlobalInfo{Timescale: 10_000})

	var tracks []muxedTrack
	for _, spec := range os.Args[2:] {
		var tr muxedTrack
		var err error
		switch strings.ToLower(filepath.Ext(specPath(spec))) {
		case ".h264":
			tr, err = loadAVCTrack(m, spec)
		case ".ivf":
			tr, err = loadVP9Track(m, spec)
		default:
			err = fmt.Errorf("unsupported track file: %s", spec)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		tracks = append(tracks, tr)
	}

	if err := m.WriteHeader(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	for {
		best := -1
		var bestDTS int64
		for i, t := range tracks {
			if len(t.packets) == 0 {
				continue
			}
			if best == -1 || t.packets[0].DTS < bestDTS {
				best = i
				bestDTS = t.packets[0].DTS
			}
		}
		if best == -1 {
			break
		}
		p := tracks[best].packets[0]
		tracks[best].packets = tracks[best].packets[1:]
		if err := m.WritePacket(ctx, tracks[best].index, p); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	if err := m.WriteTrailer(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// specPath strips any ":WxH"/":timescale" suffixes from a track-spec,
// leaving the bare file path, so the extension switch in main sees ".h264"
// or ".ivf" regardless of how many suffixes follow.
func specPath(spec string) string {
	path, _, _ := strings.Cut(spec, ":")
	return path
}

// loadAVCTrack reads an Annex-B stream, builds its avcC from the first SPS
// and PPS encountered, and packetizes every slice NAL unit as one sample.
func loadAVCTrack(m *mp4.Muxer, spec string) (muxedTrack, error) {
	parts := strings.Split(spec, ":")
	path := parts[0]
	width, height := uint16(1280), uint16(720)
	timescale := uint32(90_000)
	duration := uint32(3_000) // 30fps at a 90kHz timescale
	for _, opt := range parts[1:] {
		if w, h, ok := strings.Cut(opt, "x"); ok {
			if wv, err := strconv.Atoi(w); err == nil {
				width = uint16(wv)
			}
			if hv, err := strconv.Atoi(h); err == nil {
				height = uint16(hv)
			}
			continue
		}
		if ts, err := strconv.Atoi(opt); err == nil {
			timescale = uint32(ts)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return muxedTrack{}, err
	}
	nalus := splitAnnexB(data)

	var sps, pps []byte
	var packets []mp4.Packet
	var dts int64
	for _, nal := range nalus {
		if len(nal) == 0 {
			continue
		}
		nalType := nal[0] & 0x1f
		switch nalType {
		case 7: // SPS
			if sps == nil {
				sps = nal
			}
		case 8: // PPS
			if pps == nil {
				pps = nal
			}
		case 1, 5: // non-IDR / IDR slice
			var lengthPrefixed [4]byte
			binary.BigEndian.PutUint32(lengthPrefixed[:], uint32(len(nal)))
			payload := append(append([]byte(nil), lengthPrefixed[:]...), nal...)
			packets = append(packets, mp4.Packet{
				Payload:  payload,
				DTS:      dts,
				PTS:      dts,
				Duration: duration,
				IsKey:    nalType == 5,
			})
			dts += int64(duration)
		}
	}
	if sps == nil || pps == nil {
		return muxedTrack{}, fmt.Errorf("%s: no SPS/PPS found", path)
	}

	cfg := &mp4.AVCDecoderConfig{
		ProfileIndication:    sps[1],
		ProfileCompatibility: sps[2],
		LevelIndication:      sps[3],
		SPS:                  [][]byte{sps},
		PPS:                  [][]byte{pps},
	}
	entry := mp4.SampleEntry{Kind: mp4.SampleEntryAVC, Width: width, Height: height, AVC: cfg}
	idx, err := m.AddTrack(entry, timescale, [4]byte{'v', 'i', 'd', 'e'})
	if err != nil {
		return muxedTrack{}, err
	}
	for i := range packets {
		packets[i].StreamIndex = idx
	}
	return muxedTrack{index: idx, packets: packets}, nil
}

// splitAnnexB splits an Annex-B byte stream into NAL units (start codes
// stripped, emulation prevention bytes left as-is: none of the fields this
// command reads from SPS/PPS require unescaping).
func splitAnnexB(data []byte) [][]byte {
	var starts []int
	for i := 0; i+3 <= len(data); i++ {
		if data[i] == 0 && data[i+1] == 0 && data[i+2] == 1 {
			starts = append(starts, i+3)
		}
	}
	var nalus [][]byte
	for i, s := range starts {
		end := len(data)
		if i+1 < len(starts) {
			end = starts[i+1] - 3
			if end > 0 && data[end-1] == 0 {
				end-- // absorb the 4-byte start-code form's extra zero
			}
		}
		if end > s {
			nalus = append(nalus, data[s:end])
		}
	}
	return nalus
}

// ivfHeaderSize is the fixed DKIF file header length.
const ivfHeaderSize = 32

// loadVP9Track reads an IVF-wrapped VP9 stream. Width, height, and the
// per-frame timestamps come directly from the IVF headers. The vpcC fields
// the IVF container doesn't carry (profile, bit depth, chroma subsampling)
// normally come from each frame's uncompressed header, which is cheap since
// VP9 places them in the first bits of the frame — but a spec suffix of
// "x=<hex>" supplies a pre-built extradata blob instead (the shape a host
// that only has side-channel codec metadata, not a live bitstream, would be
// in), decoded through DecodeVP9Extradata rather than re-derived per frame.
func loadVP9Track(m *mp4.Muxer, spec string) (muxedTrack, error) {
	path := specPath(spec)
	extradata, err := vp9ExtradataOverride(spec)
	if err != nil {
		return muxedTrack{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return muxedTrack{}, err
	}
	if len(data) < ivfHeaderSize || string(data[0:4]) != "DKIF" {
		return muxedTrack{}, fmt.Errorf("%s: not an IVF file", path)
	}
	width := binary.LittleEndian.Uint16(data[12:14])
	height := binary.LittleEndian.Uint16(data[14:16])
	timescaleDen := binary.LittleEndian.Uint32(data[20:24])
	if timescaleDen == 0 {
		timescaleDen = 1000
	}

	var packets []mp4.Packet
	cfg := extradata
	ptr := ivfHeaderSize
	for ptr+12 <= len(data) {
		frameSize := int(binary.LittleEndian.Uint32(data[ptr : ptr+4]))
		ts := int64(binary.LittleEndian.Uint64(data[ptr+4 : ptr+12]))
		ptr += 12
		if ptr+frameSize > len(data) {
			break
		}
		frame := data[ptr : ptr+frameSize]
		ptr += frameSize

		profile, bitDepth, chroma, isKey := parseVP9UncompressedHeader(frame)
		if cfg == nil {
			cfg = &mp4.VP9CodecConfig{
				Profile:                 profile,
				Level:                   10, // level 1.0; not carried by the bitstream header this command reads
				BitDepth:                bitDepth,
				ChromaSubsampling:       chroma,
				ColourPrimaries:         1,
				TransferCharacteristics: 1,
				MatrixCoefficients:      1,
			}
		}

		packets = append(packets, mp4.Packet{
			Payload: append([]byte(nil), frame...),
			DTS:     ts,
			PTS:     ts,
			IsKey:   isKey,
		})
	}
	// Backfill durations: each packet's duration is the delta to the next.
	for i := 0; i+1 < len(packets); i++ {
		packets[i].Duration = uint32(packets[i+1].DTS - packets[i].DTS)
	}
	if len(packets) > 1 {
		packets[len(packets)-1].Duration = packets[len(packets)-2].Duration
	} else if len(packets) == 1 {
		packets[0].Duration = uint32(timescaleDen)
	}
	if cfg == nil {
		return muxedTrack{}, fmt.Errorf("%s: no frames found", path)
	}

	entry := mp4.SampleEntry{Kind: mp4.SampleEntryVP9, Width: width, Height: height, VP9: cfg}
	idx, err := m.AddTrack(entry, timescaleDen, [4]byte{'v', 'i', 'd', 'e'})
	if err != nil {
		return muxedTrack{}, err
	}
	for i := range packets {
		packets[i].StreamIndex = idx
	}
	return muxedTrack{index: idx, packets: packets}, nil
}

// vp9ExtradataOverride looks for an "x=<hex>" option in a track-spec and, if
// present, decodes it into a VP9CodecConfig via DecodeVP9Extradata. Returns
// nil, nil when no such option is present.
func vp9ExtradataOverride(spec string) (*mp4.VP9CodecConfig, error) {
	for _, opt := range strings.Split(spec, ":")[1:] {
		hexBlob, ok := strings.CutPrefix(opt, "x=")
		if !ok {
			continue
		}
		raw, err := hex.DecodeString(hexBlob)
		if err != nil {
			return nil, fmt.Errorf("invalid vp9 extradata %q: %w", hexBlob, err)
		}
		cfg, err := mp4.DecodeVP9Extradata(raw)
		if err != nil {
			return nil, fmt.Errorf("vp9 extradata: %w", err)
		}
		cfg.Level = 10 // not carried by the extradata blob; same default as the bitstream path
		cfg.ColourPrimaries = 1
		cfg.TransferCharacteristics = 1
		cfg.MatrixCoefficients = 1
		return cfg, nil
	}
	return nil, nil
}

// parseVP9UncompressedHeader reads just enough of a VP9 frame's uncompressed
// header (frame_marker, profile, show_existing_frame, frame_type, and for
// key frames the color_config) to recover profile, bit_depth,
// chroma_subsampling, and whether the frame is a key frame.
func parseVP9UncompressedHeader(frame []byte) (profile, bitDepth, chroma uint8, isKey bool) {
	bitDepth, chroma = 8, 0 // sane VP9 defaults (8-bit 4:2:0) if parsing bottoms out early
	if len(frame) == 0 {
		return
	}
	br := bitReader{data: frame}
	br.bits(2) // frame_marker
	profileLow := br.bits(1)
	profileHigh := br.bits(1)
	profile = uint8(profileHigh<<1 | profileLow)
	if profile == 3 {
		br.bits(1) // reserved_zero
	}
	if br.bits(1) == 1 { // show_existing_frame
		return
	}
	isKey = br.bits(1) == 0 // frame_type: 0 = KEY_FRAME
	br.bits(1)              // show_frame
	br.bits(1)              // error_resilient_mode
	if !isKey {
		return // inter frames don't repeat color_config; keep defaults
	}
	br.bits(24) // frame_sync_code
	if profile >= 2 {
		bitDepth = 10
		if br.bits(1) == 1 {
			bitDepth = 12
		}
	}
	colorSpace := br.bits(3)
	const csRGB = 7
	if colorSpace != csRGB {
		br.bits(1) // color_range
		if profile == 1 || profile == 3 {
			chroma = uint8(br.bits(1)<<1 | br.bits(1))
		} else {
			chroma = 1 // 4:2:0, the only subsampling profiles 0/2 carry
		}
	} else {
		chroma = 2 // 4:4:4 implied by RGB color space
	}
	return
}

// bitReader reads individual bits MSB-first from a byte slice, saturating at
// the end of data rather than panicking (malformed input just stops
// contributing real header fields beyond that point).
type bitReader struct {
	data []byte
	pos  int // bit position
}

func (r *bitReader) bits(n int) uint32 {
	var v uint32
	for range n {
		byteIdx := r.pos / 8
		var bit uint32
		if byteIdx < len(r.data) {
			shift := 7 - uint(r.pos%8)
			bit = uint32(r.data[byteIdx]>>shift) & 1
		}
		v = v<<1 | bit
		r.pos++
	}
	return v
}
