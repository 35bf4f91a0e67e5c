package mp4

import (
	"context"
	"io"
)

// Track is a demuxed track's static metadata plus its compiled sample
// tables and playback cursor.
type Track struct {
	ID          uint32
	Timescale   uint32
	Duration    uint64
	HandlerType [4]byte
	Width       uint32 // 16.16 fixed-point
	Height      uint32 // 16.16 fixed-point
	Entry       SampleEntry
	Tables      *SampleTables

	cursor *Cursor
}

// Descriptor builds the abstract Stream descriptor for this track via the
// codec bridge. It returns ErrMissingCodec if Entry.Kind was never
// recognized during moov parsing, and the VP9 bridge's UnsupportedCodecError
// for a profile/bit-depth/chroma combination it does not know.
func (t *Track) Descriptor(index int) (StreamDescriptor, error) {
	var sd StreamDescriptor
	switch t.Entry.Kind {
	case SampleEntryAVC:
		sd = AVCStreamDescriptor(t.Entry.Width, t.Entry.Height, t.Entry.AVC)
	case SampleEntryVP9:
		var err error
		sd, err = VP9StreamDescriptor(t.Entry.Width, t.Entry.Height, t.Entry.VP9)
		if err != nil {
			return StreamDescriptor{}, err
		}
	case SampleEntryMPEG4Video:
		sd = MPEG4VideoStreamDescriptor(t.Entry.Width, t.Entry.Height, t.Entry.ESDS)
	default:
		return StreamDescriptor{}, ErrMissingCodec
	}
	sd.Index = index
	sd.Timebase = Rational{Num: 1, Den: t.Timescale}
	sd.Duration = t.Duration
	return sd, nil
}

// Demuxer scans an MP4 source for its moov box, compiles every track's
// sample index, and serves packets in globally time-ordered sequence via
// NextEvent. It is single-threaded and synchronous: callers must serialize
// access to the same instance.
type Demuxer struct {
	src    io.ReadSeeker
	Movie  GlobalInfo
	Tracks []*Track

	// Warnings collects non-fatal errors from traks skipped during moov
	// parsing (UnsupportedSampleEntryError and similar), per the
	// propagation policy: a malformed trak does not abort the whole file.
	Warnings []error
}

// ReadHeaders scans src from its current position until a moov box is
// found, parses it, and returns a Demuxer ready to serve NextEvent. It
// returns ErrMoovNotFound if the scan reaches the end of src without
// encountering one.
func ReadHeaders(src io.ReadSeeker) (*Demuxer, error) {
	sc := NewScanner(src)
	var moovData []byte
	for sc.Next() {
		e := sc.Entry()
		if e.Type == TypeMoov {
			moovData = make([]byte, e.DataSize())
			if err := sc.ReadBody(moovData); err != nil {
				return nil, err
			}
			break
		}
	}
	if moovData == nil {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, ErrMoovNotFound
	}

	d := &Demuxer{src: src}
	r := NewReader(moovData)
	sawMvhd := false
	for r.Next() {
		switch r.Type() {
		case TypeMvhd:
			timescale, duration, _ := r.ReadMvhd()
			d.Movie = GlobalInfo{Timescale: timescale, Duration: duration}
			sawMvhd = true
		case TypeTrak:
			track, err := parseTrak(&r)
			if err != nil {
				d.Warnings = append(d.Warnings, err)
				continue
			}
			track.cursor = NewCursor(track.Tables)
			d.Tracks = append(d.Tracks, track)
		}
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if !sawMvhd {
		return nil, &RequiredBoxNotFoundError{Parent: TypeMoov, Required: TypeMvhd}
	}
	if len(d.Tracks) == 0 {
		return nil, &NotEnoughBoxesError{Type: TypeTrak, Required: 1, Found: 0}
	}
	return d, nil
}

func parseTrak(r *Reader) (*Track, error) {
	t := &Track{}
	r.Enter()
	defer r.Exit()
	for r.Next() {
		switch r.Type() {
		case TypeTkhd:
			id, duration, width, height := r.ReadTkhd()
			t.ID = id
			t.Width = width
			t.Height = height
			_ = duration // track-level duration; Track.Duration holds the media-level (mdhd) duration
		case TypeMdia:
			if err := parseMdia(r, t); err != nil {
				return nil, err
			}
		}
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if t.ID == 0 {
		return nil, &RequiredBoxNotFoundError{Parent: TypeTrak, Required: TypeTkhd}
	}
	if t.Tables == nil {
		return nil, &RequiredBoxNotFoundError{Parent: TypeTrak, Required: TypeStbl}
	}
	if t.Tables.SampleCount == 0 {
		return nil, ErrNoSamples
	}
	return t, nil
}

func parseMdia(r *Reader, t *Track) error {
	r.Enter()
	defer r.Exit()
	for r.Next() {
		switch r.Type() {
		case TypeMdhd:
			timescale, duration, _ := r.ReadMdhd()
			t.Timescale = timescale
			t.Duration = duration
		case TypeHdlr:
			t.HandlerType = r.ReadHdlr()
		case TypeMinf:
			if err := parseMinf(r, t); err != nil {
				return err
			}
		}
	}
	return r.Err()
}

func parseMinf(r *Reader, t *Track) error {
	r.Enter()
	defer r.Exit()
	for r.Next() {
		if r.Type() == TypeStbl {
			if err := parseStbl(r, t); err != nil {
				return err
			}
		}
	}
	return r.Err()
}

func parseStbl(r *Reader, t *Track) error {
	r.Enter()
	defer r.Exit()
	tables := &SampleTables{}
	for r.Next() {
		switch r.Type() {
		case TypeStsd:
			entry, err := parseStsd(r)
			if err != nil {
				return err
			}
			t.Entry = entry
		case TypeStts:
			tables.Stts = DecodeStts(r.Data())
		case TypeStsc:
			tables.Stsc = DecodeStsc(r.Data())
		case TypeStsz:
			tables.SampleSize, tables.SampleCount, tables.SampleSizes = DecodeStsz(r.Data())
		case TypeStco:
			tables.ChunkOffsets = DecodeStco(r.Data())
		case TypeCo64:
			tables.ChunkOffsets = DecodeCo64(r.Data())
		case TypeStss:
			tables.SyncSamples = DecodeStss(r.Data())
		}
	}
	if err := r.Err(); err != nil {
		return err
	}
	if tables.Stts == nil {
		return &RequiredBoxNotFoundError{Parent: TypeStbl, Required: TypeStts}
	}
	if tables.Stsc == nil {
		return &RequiredBoxNotFoundError{Parent: TypeStbl, Required: TypeStsc}
	}
	if tables.ChunkOffsets.Values == nil {
		return &RequiredEitherBoxesNotFoundError{Parent: TypeStbl, A: TypeStco, B: TypeCo64}
	}
	t.Tables = tables
	return nil
}

// parseStsd reads the first entry of an stsd box whose type is recognized
// (avc1, vp09, mp4v), skipping unsupported entries before it, and translates
// it into a SampleEntry via the codec bridge.
func parseStsd(r *Reader) (SampleEntry, error) {
	r.Enter()
	defer r.Exit()
	r.Skip(4) // entry_count
	if !r.Next() {
		return SampleEntry{}, &RequiredBoxNotFoundError{Parent: TypeStsd, Required: TypeAvc1}
	}
	for r.Type() != TypeAvc1 && r.Type() != TypeVp09 && r.Type() != TypeMp4v {
		skipped := r.Type()
		if !r.Next() {
			return SampleEntry{}, &UnsupportedSampleEntryError{Type: skipped}
		}
	}
	typ := r.Type()
	data := r.Data()

	switch typ {
	case TypeAvc1:
		ve := ReadVisualSampleEntry(data)
		child := NewReader(data[ve.ChildOffset:])
		for child.Next() {
			if child.Type() == TypeAvcC {
				cfg, err := DecodeAVCDecoderConfig(child.Data())
				if err != nil {
					return SampleEntry{}, err
				}
				return SampleEntry{Kind: SampleEntryAVC, Width: ve.Width, Height: ve.Height, AVC: cfg}, nil
			}
		}
		return SampleEntry{}, &RequiredBoxNotFoundError{Parent: TypeAvc1, Required: TypeAvcC}
	case TypeVp09:
		ve := ReadVisualSampleEntry(data)
		child := NewReader(data[ve.ChildOffset:])
		for child.Next() {
			if child.Type() == TypeVpcC {
				cfg, err := DecodeVP9CodecConfig(child.Data())
				if err != nil {
					return SampleEntry{}, err
				}
				return SampleEntry{Kind: SampleEntryVP9, Width: ve.Width, Height: ve.Height, VP9: cfg}, nil
			}
		}
		return SampleEntry{}, &RequiredBoxNotFoundError{Parent: TypeVp09, Required: TypeVpcC}
	case TypeMp4v:
		ve := ReadVisualSampleEntry(data)
		child := NewReader(data[ve.ChildOffset:])
		for child.Next() {
			if child.Type() == TypeEsds {
				cfg, err := DecodeESDescriptor(child.Data())
				if err != nil {
					return SampleEntry{}, err
				}
				return SampleEntry{Kind: SampleEntryMPEG4Video, Width: ve.Width, Height: ve.Height, ESDS: cfg}, nil
			}
		}
		return SampleEntry{}, &RequiredBoxNotFoundError{Parent: TypeMp4v, Required: TypeEsds}
	default:
		return SampleEntry{}, &UnsupportedSampleEntryError{Type: typ}
	}
}

// NextEvent returns the next packet in globally time-ordered sequence
// across every track, or io.EOF once every track's cursor is exhausted.
// ctx is polled between samples for cooperative cancellation; it is never
// consulted mid-read.
func (d *Demuxer) NextEvent(ctx context.Context) (Packet, error) {
	if err := ctx.Err(); err != nil {
		return Packet{}, err
	}

	cursors := make([]*Cursor, len(d.Tracks))
	for i, t := range d.Tracks {
		cursors[i] = t.cursor
	}
	trackIndex, sample, ok := selectNextTrack(cursors)
	if !ok {
		return Packet{}, io.EOF
	}

	if _, err := d.src.Seek(int64(sample.Offset), io.SeekStart); err != nil {
		return Packet{}, err
	}
	payload := make([]byte, sample.Length)
	if _, err := io.ReadFull(d.src, payload); err != nil {
		return Packet{}, err
	}
	d.Tracks[trackIndex].cursor.Advance()

	return Packet{
		StreamIndex: trackIndex,
		Payload:     payload,
		PTS:         int64(sample.DecodeTime),
		DTS:         int64(sample.DecodeTime),
		Duration:    sample.Duration,
		IsKey:       sample.IsSync,
	}, nil
}
