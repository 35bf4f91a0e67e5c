package mp4

// ChunkOffsets is the stco/co64 sum type: the table preserves whichever
// width the source file used (on write, the builder picks co64 only when an
// offset exceeds 32 bits) rather than force-promoting every offset list to
// 64-bit.
type ChunkOffsets struct {
	Values []uint64
	Wide   bool // true: co64 (64-bit entries); false: stco (32-bit entries)
}

// SampleTables is one track's compiled stbl sub-tables: the five/six
// compressed lists a Cursor walks to enumerate samples in playback order.
type SampleTables struct {
	Stts         []SttsEntry
	Stsc         []StscEntry
	SampleSize   uint32 // constant stsz sample size; 0 means the variable form
	SampleCount  uint32 // stsz sample_count field, valid in both forms
	SampleSizes  []uint32 // populated only when SampleSize == 0
	ChunkOffsets ChunkOffsets
	SyncSamples  []uint32 // stss, 1-based sample numbers; nil means every sample is sync
}

// DecodeStts decodes an stts box payload into a flat entry list.
func DecodeStts(data []byte) []SttsEntry {
	it := NewSttsIter(data)
	entries := make([]SttsEntry, 0, it.Count())
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		entries = append(entries, e)
	}
	return entries
}

// DecodeStsc decodes an stsc box payload into a flat entry list.
func DecodeStsc(data []byte) []StscEntry {
	it := NewStscIter(data)
	entries := make([]StscEntry, 0, it.Count())
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		entries = append(entries, e)
	}
	return entries
}

// DecodeStsz decodes an stsz box payload. sizes is nil when sampleSize != 0
// (the constant form).
func DecodeStsz(data []byte) (sampleSize uint32, sampleCount uint32, sizes []uint32) {
	it := NewStszIter(data)
	if it.sampleSize != 0 {
		return it.sampleSize, it.count, nil
	}
	sizes = make([]uint32, 0, it.count)
	for {
		s, ok := it.Next()
		if !ok {
			break
		}
		sizes = append(sizes, s)
	}
	return 0, it.count, sizes
}

// DecodeStco decodes an stco (32-bit chunk offset) box payload.
func DecodeStco(data []byte) ChunkOffsets {
	it := NewUint32Iter(data)
	values := make([]uint64, 0, it.Count())
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		values = append(values, uint64(v))
	}
	return ChunkOffsets{Values: values, Wide: false}
}

// DecodeCo64 decodes a co64 (64-bit chunk offset) box payload.
func DecodeCo64(data []byte) ChunkOffsets {
	it := NewCo64Iter(data)
	values := make([]uint64, 0, it.Count())
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		values = append(values, v)
	}
	return ChunkOffsets{Values: values, Wide: true}
}

// DecodeStss decodes an stss box payload into its 1-based sync sample list.
func DecodeStss(data []byte) []uint32 {
	it := NewUint32Iter(data)
	values := make([]uint32, 0, it.Count())
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		values = append(values, v)
	}
	return values
}

// Cursor walks a track's compiled SampleTables one sample at a time. It is
// a flat record of integer counters with no back-pointers; Current reports
// the sample at the cursor's position without mutating it, Advance steps
// exactly one sample forward.
type Cursor struct {
	tables *SampleTables

	stscIndex         int
	stscSampleInChunk uint32
	stscChunkInEntry  uint32
	chunkIndex        int
	inChunkOffset     uint64

	timeEntryIndex int
	timeInEntry    uint32
	timeBase       uint64

	sampleIndex     int
	currentSyncIndex int
}

// NewCursor creates a cursor positioned at the first sample of tables.
func NewCursor(tables *SampleTables) *Cursor {
	return &Cursor{tables: tables}
}

// Current returns the sample at the cursor's position, or ok=false when any
// of the compiled tables is exhausted.
func (c *Cursor) Current() (Sample, bool) {
	t := c.tables
	if c.chunkIndex >= len(t.ChunkOffsets.Values) {
		return Sample{}, false
	}
	if c.timeEntryIndex >= len(t.Stts) {
		return Sample{}, false
	}
	if c.stscIndex >= len(t.Stsc) {
		return Sample{}, false
	}
	var length uint32
	if t.SampleSize != 0 {
		if uint32(c.sampleIndex) >= t.SampleCount {
			return Sample{}, false
		}
		length = t.SampleSize
	} else {
		if c.sampleIndex >= len(t.SampleSizes) {
			return Sample{}, false
		}
		length = t.SampleSizes[c.sampleIndex]
	}

	timeEntry := t.Stts[c.timeEntryIndex]
	isSync := true
	if t.SyncSamples != nil {
		isSync = c.currentSyncIndex < len(t.SyncSamples) &&
			t.SyncSamples[c.currentSyncIndex] == uint32(c.sampleIndex+1)
	}

	return Sample{
		DecodeTime: c.timeBase + uint64(c.timeInEntry)*uint64(timeEntry.Duration),
		Duration:   timeEntry.Duration,
		Offset:     t.ChunkOffsets.Values[c.chunkIndex] + c.inChunkOffset,
		Length:     length,
		IsSync:     isSync,
	}, true
}

// stscEntryChunkCount returns the number of chunks the stsc entry at index i
// covers, or -1 when i is the last entry (open-ended: applies until
// chunk_offsets is exhausted).
func (c *Cursor) stscEntryChunkCount(i int) int {
	t := c.tables
	if i == len(t.Stsc)-1 {
		return -1
	}
	return int(t.Stsc[i+1].FirstChunk - t.Stsc[i].FirstChunk)
}

// Advance steps the cursor forward by exactly one sample. Calling Advance
// when Current would report ok=false is a no-op.
func (c *Cursor) Advance() {
	cur, ok := c.Current()
	if !ok {
		return
	}
	t := c.tables

	// 1. Chunk write cursor.
	c.inChunkOffset += uint64(cur.Length)

	// 2. Time run-length position.
	entry := t.Stts[c.timeEntryIndex]
	c.timeInEntry++
	if c.timeInEntry >= entry.Count {
		c.timeBase += uint64(entry.Count) * uint64(entry.Duration)
		c.timeInEntry = 0
		c.timeEntryIndex++
	}

	// 3. Sample-to-chunk position.
	stsc := t.Stsc[c.stscIndex]
	c.stscSampleInChunk++
	if c.stscSampleInChunk >= stsc.SamplesPerChunk {
		c.stscSampleInChunk = 0
		c.stscChunkInEntry++
		c.chunkIndex++
		c.inChunkOffset = 0
	}

	// 4. Sample-to-chunk entry boundary.
	chunkCount := c.stscEntryChunkCount(c.stscIndex)
	if chunkCount >= 0 && uint32(chunkCount) <= c.stscChunkInEntry {
		c.stscIndex++
		c.stscChunkInEntry = 0
		c.inChunkOffset = 0
	}

	// 5. Sample position.
	c.sampleIndex++

	// 6. Sync-sample position.
	if t.SyncSamples != nil &&
		c.currentSyncIndex < len(t.SyncSamples)-1 &&
		uint32(c.sampleIndex+1) > t.SyncSamples[c.currentSyncIndex] {
		c.currentSyncIndex++
	}
}
