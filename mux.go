package mp4

import (
	"context"
	"encoding/binary"
	"io"
)

// muxTrack is one track's static metadata plus its accumulating chunk
// builder, as registered with AddTrack before WriteHeader.
type muxTrack struct {
	id          uint32
	entry       SampleEntry
	timescale   uint32
	handlerType [4]byte
	builder     TrackChunkBuilder
}

// Muxer assembles a progressive MP4 from packets supplied in arrival
// order: ftyp and an open-ended mdat are emitted first, packet payloads
// are forwarded to the sink as they arrive, and the sample tables built up
// along the way are emitted as moov at WriteTrailer time, with the mdat
// size patched via seek-back. The sink must be seekable.
type Muxer struct {
	sink io.WriteSeeker

	info    GlobalInfo
	hasInfo bool

	tracks []*muxTrack

	mdatStart   int64
	writeOffset int64

	hasPrevStream   bool
	prevStreamIndex int
}

// NewMuxer creates a Muxer writing to sink.
func NewMuxer(sink io.WriteSeeker) *Muxer {
	return &Muxer{sink: sink}
}

// SetGlobalInfo records the movie-level defaults. It must be called before
// WriteHeader.
func (m *Muxer) SetGlobalInfo(info GlobalInfo) {
	m.info = info
	m.hasInfo = true
}

// AddTrack registers a track and returns its stream index, used in
// subsequent WritePacket calls. Only AVC and VP9 sample entries can be
// written; MPEG-4 video (esds) is read-only in this core, matching the
// codec bridge's §4.6 scope.
func (m *Muxer) AddTrack(entry SampleEntry, timescale uint32, handlerType [4]byte) (int, error) {
	if entry.Kind != SampleEntryAVC && entry.Kind != SampleEntryVP9 {
		return 0, ErrMissingCodec
	}
	t := &muxTrack{
		id:          uint32(len(m.tracks) + 1),
		entry:       entry,
		timescale:   timescale,
		handlerType: handlerType,
	}
	m.tracks = append(m.tracks, t)
	return len(m.tracks) - 1, nil
}

// WriteHeader emits ftyp and an mdat header whose size is a placeholder to
// be patched by WriteTrailer.
func (m *Muxer) WriteHeader() error {
	if !m.hasInfo {
		return ErrMissingInfo
	}
	var buf [32]byte
	w := NewWriter(buf[:])
	w.WriteFtyp([4]byte{'i', 's', 'o', 'm'}, 0, [][4]byte{{'i', 's', 'o', '5'}})
	if _, err := m.sink.Write(w.Bytes()); err != nil {
		return err
	}

	mdatStart, err := m.sink.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	m.mdatStart = mdatStart

	var hdr [16]byte
	binary.BigEndian.PutUint32(hdr[0:4], 1) // size==1 marks the extended-size form
	copy(hdr[4:8], TypeMdat[:])
	binary.BigEndian.PutUint64(hdr[8:16], ^uint64(0)) // u64 max placeholder, patched in WriteTrailer
	if _, err := m.sink.Write(hdr[:]); err != nil {
		return err
	}
	m.writeOffset = mdatStart + 16
	return nil
}

// WritePacket appends packet's payload to the sink and folds it into its
// track's chunk builder. ctx is polled before the write, not during it.
func (m *Muxer) WritePacket(ctx context.Context, trackIndex int, packet Packet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := m.tracks[trackIndex]

	newChunk := m.hasPrevStream && m.prevStreamIndex != trackIndex
	offset := m.writeOffset

	if _, err := m.sink.Write(packet.Payload); err != nil {
		return err
	}
	m.writeOffset += int64(len(packet.Payload))

	if err := t.builder.AddPacket(uint64(offset), packet, newChunk); err != nil {
		return err
	}
	m.hasPrevStream = true
	m.prevStreamIndex = trackIndex
	return nil
}

// WriteTrailer flushes every track's chunk builder, emits moov, and
// patches the mdat size reserved at WriteHeader.
func (m *Muxer) WriteTrailer(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	moovSize := 512
	tables := make([]*SampleTables, len(m.tracks))
	for i, t := range m.tracks {
		tables[i] = t.builder.Flush(false)
		seSize, err := sampleEntrySize(t.entry)
		if err != nil {
			return err
		}
		// 512 bounds every fixed-size box in a trak (tkhd, mdhd, hdlr, vmhd/
		// smhd, dinf/dref, and the stts/stsc/stsz/stco/stss headers); seSize
		// accounts for the sample entry on top of that, since avcC's SPS/PPS
		// are variable-length and can otherwise overflow a flat allowance.
		moovSize += 512 + seSize + len(tables[i].Stsc)*12 + len(tables[i].Stts)*8 +
			len(tables[i].SampleSizes)*4 + len(tables[i].ChunkOffsets.Values)*8 +
			len(tables[i].SyncSamples)*4
	}

	w := NewWriter(make([]byte, moovSize))
	if err := m.writeMoov(&w, tables); err != nil {
		return err
	}

	posBeforeMoov, err := m.sink.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := m.sink.Write(w.Bytes()); err != nil {
		return err
	}

	mdatTotalSize := uint64(posBeforeMoov - m.mdatStart)
	if _, err := m.sink.Seek(m.mdatStart+8, io.SeekStart); err != nil {
		return err
	}
	var sizeBuf [8]byte
	binary.BigEndian.PutUint64(sizeBuf[:], mdatTotalSize)
	if _, err := m.sink.Write(sizeBuf[:]); err != nil {
		return err
	}
	_, err = m.sink.Seek(posBeforeMoov+int64(len(w.Bytes())), io.SeekStart)
	return err
}

func (m *Muxer) writeMoov(w *Writer, tables []*SampleTables) error {
	movieTimescale := m.info.Timescale
	if movieTimescale == 0 {
		movieTimescale = 10_000
	}

	w.StartBox(TypeMoov)
	w.WriteMvhd(movieTimescale, m.info.Duration, uint32(len(m.tracks)+1))

	for i, t := range m.tracks {
		trackDuration := scaleDuration(trackTotalDuration(tables[i]), t.timescale, movieTimescale)

		w.StartBox(TypeTrak)
		w.WriteTkhd(0x7, t.id, trackDuration, uint32(t.entry.Width)<<16, uint32(t.entry.Height)<<16)

		w.StartBox(TypeMdia)
		w.WriteMdhd(t.timescale, trackTotalDuration(tables[i]), 0x55c4) // "und"
		w.WriteHdlr(t.handlerType, handlerName(t.handlerType))

		w.StartBox(TypeMinf)
		if t.handlerType == handlerVideo {
			w.WriteVmhd()
		} else {
			w.WriteSmhd()
		}
		w.StartBox(TypeDinf)
		w.WriteDref()
		w.EndBox() // dinf

		w.StartBox(TypeStbl)
		w.StartFullBox(TypeStsd, 0, 0)
		w.putUint32(1) // entry_count
		if err := writeSampleEntry(w, t.entry); err != nil {
			return err
		}
		w.EndBox() // stsd

		w.WriteStts(tables[i].Stts)
		w.WriteStsc(tables[i].Stsc)
		w.WriteStsz(tables[i].SampleSize, tables[i].SampleCount, tables[i].SampleSizes)
		if tables[i].ChunkOffsets.Wide {
			w.WriteCo64(tables[i].ChunkOffsets.Values)
		} else {
			offsets32 := make([]uint32, len(tables[i].ChunkOffsets.Values))
			for j, v := range tables[i].ChunkOffsets.Values {
				offsets32[j] = uint32(v)
			}
			w.WriteStco(offsets32)
		}
		if tables[i].SyncSamples != nil {
			w.WriteStss(tables[i].SyncSamples)
		}
		w.EndBox() // stbl
		w.EndBox() // minf
		w.EndBox() // mdia
		w.EndBox() // trak
	}

	w.EndBox() // moov
	return nil
}

var handlerVideo = [4]byte{'v', 'i', 'd', 'e'}
var handlerSound = [4]byte{'s', 'o', 'u', 'n'}

func handlerName(h [4]byte) string {
	if h == handlerVideo {
		return "Video Handler"
	}
	return "Sound Handler"
}

// visualSampleEntryFixedSize is the byte length WriteVisualSampleEntry
// always emits (the 78-byte fixed-field header, before any child box).
const visualSampleEntryFixedSize = 78

// sampleEntrySize returns the exact byte size of entry's encoded sample
// entry box (its own box header, fixed fields, and codec config child box),
// so WriteTrailer can size the moov buffer precisely instead of guessing.
func sampleEntrySize(entry SampleEntry) (int, error) {
	switch entry.Kind {
	case SampleEntryAVC:
		return 8 + visualSampleEntryFixedSize + 8 + entry.AVC.Size(), nil
	case SampleEntryVP9:
		// vpcC is fixed-size: 8-byte box header + 4-byte version/flags +
		// 8-byte content (profile, level, packed byte, 3 colour fields,
		// 2-byte codecInitializationDataSize).
		return 8 + visualSampleEntryFixedSize + 20, nil
	default:
		return 0, ErrMissingCodec
	}
}

func writeSampleEntry(w *Writer, entry SampleEntry) error {
	switch entry.Kind {
	case SampleEntryAVC:
		w.StartBox(TypeAvc1)
		w.WriteVisualSampleEntry(1, entry.Width, entry.Height, 1, 0x0018, "")
		w.WriteAvcC(entry.AVC)
		w.EndBox()
		return nil
	case SampleEntryVP9:
		w.StartBox(TypeVp09)
		w.WriteVisualSampleEntry(1, entry.Width, entry.Height, 1, 0x0018, "")
		w.WriteVpcC(entry.VP9)
		w.EndBox()
		return nil
	default:
		return ErrMissingCodec
	}
}

func trackTotalDuration(t *SampleTables) uint64 {
	var d uint64
	for _, e := range t.Stts {
		d += uint64(e.Count) * uint64(e.Duration)
	}
	return d
}

func scaleDuration(d uint64, from, to uint32) uint64 {
	if from == 0 {
		return 0
	}
	return d * uint64(to) / uint64(from)
}
