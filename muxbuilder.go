package mp4

// TrackChunkBuilder accumulates one track's sample-table state as packets
// arrive in write order, per the mux table builder algorithm (§4.5): a
// running stsc/stts/stss/stsz/stco construction with two "currently open"
// run-length records that get flushed to the fixed lists on a boundary, and
// finally at Flush.
type TrackChunkBuilder struct {
	stscEntries []StscEntry
	sttsEntries []SttsEntry
	syncSamples []uint32 // 0-based while building; Flush biases to 1-based
	sampleSizes []uint32
	chunkOffsets []uint64

	started             bool
	chunkNumber         uint32
	openFirstChunk      uint32
	openSamplesPerChunk uint32

	openDelta uint32
	openCount uint32

	sampleIndex uint32
	prevDTS     int64
	prevPTS     int64
	hasPrev     bool
}

// AddPacket folds one packet into the builder. mdatOffset is the absolute
// file offset this packet's payload will land at. newChunk signals that the
// previous packet written to the mdat stream (across all tracks) belonged
// to a different track than this one, which forces a chunk boundary here
// even though this track's own sample stream is uninterrupted.
func (b *TrackChunkBuilder) AddPacket(mdatOffset uint64, p Packet, newChunk bool) error {
	delta, err := b.computeDelta(p)
	if err != nil {
		return err
	}

	switch {
	case !b.started:
		b.started = true
		b.chunkNumber = 1
		b.chunkOffsets = append(b.chunkOffsets, mdatOffset)
		b.openFirstChunk = 1
		b.openSamplesPerChunk = 0
	case newChunk:
		b.stscEntries = append(b.stscEntries, StscEntry{
			FirstChunk:          b.openFirstChunk,
			SamplesPerChunk:     b.openSamplesPerChunk,
			SampleDescriptionId: 1,
		})
		b.chunkNumber++
		b.chunkOffsets = append(b.chunkOffsets, mdatOffset)
		b.openFirstChunk = b.chunkNumber
		b.openSamplesPerChunk = 0
	}
	b.openSamplesPerChunk++

	switch {
	case b.openCount == 0:
		b.openDelta = delta
		b.openCount = 1
	case delta == b.openDelta:
		b.openCount++
	default:
		b.sttsEntries = append(b.sttsEntries, SttsEntry{Count: b.openCount, Duration: b.openDelta})
		b.openDelta = delta
		b.openCount = 1
	}

	if p.IsKey {
		b.syncSamples = append(b.syncSamples, b.sampleIndex)
	}
	b.sampleSizes = append(b.sampleSizes, uint32(len(p.Payload)))

	b.sampleIndex++
	b.prevDTS = p.DTS
	b.prevPTS = p.PTS
	b.hasPrev = true
	return nil
}

func (b *TrackChunkBuilder) computeDelta(p Packet) (uint32, error) {
	if p.Duration != 0 {
		return p.Duration, nil
	}
	if b.hasPrev && p.DTS != b.prevDTS {
		return uint32(p.DTS - b.prevDTS), nil
	}
	if b.hasPrev && p.PTS != b.prevPTS {
		return uint32(p.PTS - b.prevPTS), nil
	}
	return 0, ErrInvalidTiming
}

// Flush closes the open stsc/stts runs and returns the compiled
// SampleTables. When useConstantStsz is true and every sample turned out to
// be the same size, the table is emitted in the cheaper constant stsz form.
func (b *TrackChunkBuilder) Flush(useConstantStsz bool) *SampleTables {
	stsc := append(append([]StscEntry(nil), b.stscEntries...), StscEntry{
		FirstChunk:          b.openFirstChunk,
		SamplesPerChunk:     b.openSamplesPerChunk,
		SampleDescriptionId: 1,
	})

	stts := append([]SttsEntry(nil), b.sttsEntries...)
	if b.openCount > 0 {
		stts = append(stts, SttsEntry{Count: b.openCount, Duration: b.openDelta})
	}

	var sync []uint32
	if b.syncSamples != nil {
		sync = make([]uint32, len(b.syncSamples))
		for i, v := range b.syncSamples {
			sync[i] = v + 1
		}
	}

	wide := false
	for _, off := range b.chunkOffsets {
		if off > uint32Max {
			wide = true
			break
		}
	}

	tables := &SampleTables{
		Stts:         stts,
		Stsc:         stsc,
		SampleCount:  uint32(len(b.sampleSizes)),
		SampleSizes:  append([]uint32(nil), b.sampleSizes...),
		ChunkOffsets: ChunkOffsets{Values: append([]uint64(nil), b.chunkOffsets...), Wide: wide},
		SyncSamples:  sync,
	}

	if useConstantStsz && len(b.sampleSizes) > 0 {
		uniform := b.sampleSizes[0]
		constant := true
		for _, s := range b.sampleSizes {
			if s != uniform {
				constant = false
				break
			}
		}
		if constant {
			tables.SampleSize = uniform
			tables.SampleSizes = nil
		}
	}

	return tables
}
