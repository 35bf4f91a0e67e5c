package mp4_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tetsuo/mp4"
)

// TestMultiChunkStscExpansion exercises the cursor's stsc-to-sample-count
// expansion: stsc=[(1,2,1),(3,5,1)] over five chunk offsets means chunks 1-2
// hold 2 samples each and chunks 3-5 hold 5 samples each.
func TestMultiChunkStscExpansion(t *testing.T) {
	tables := &mp4.SampleTables{
		Stts:        []mp4.SttsEntry{{Count: 19, Duration: 1000}},
		Stsc:        []mp4.StscEntry{{FirstChunk: 1, SamplesPerChunk: 2, SampleDescriptionId: 1}, {FirstChunk: 3, SamplesPerChunk: 5, SampleDescriptionId: 1}},
		SampleSize:  100,
		SampleCount: 19,
		ChunkOffsets: mp4.ChunkOffsets{
			Values: []uint64{0x1000, 0x2000, 0x3000, 0x4000, 0x5000},
		},
	}

	samples := mp4.CompileSamples(tables)
	require.Len(t, samples, 19)

	// Chunk 1: samples 0-1, chunk 2: samples 2-3, chunk 3: samples 4-8, ...
	require.Equal(t, uint64(0x1000), samples[0].Offset)
	require.Equal(t, uint64(0x1000+100), samples[1].Offset)
	require.Equal(t, uint64(0x2000), samples[2].Offset)
	require.Equal(t, uint64(0x2000+100), samples[3].Offset)
	require.Equal(t, uint64(0x3000), samples[4].Offset) // first sample of chunk 3
	require.Equal(t, uint64(0x5000+4*100), samples[18].Offset)
}

// TestCursorOpenEndedFinalStscEntry checks the last stsc entry applies until
// chunk_offsets is exhausted rather than a fixed chunk count (resolves the
// "cursor's final stsc entry is open-ended" design decision in DESIGN.md).
func TestCursorOpenEndedFinalStscEntry(t *testing.T) {
	tables := &mp4.SampleTables{
		Stts:        []mp4.SttsEntry{{Count: 10, Duration: 100}},
		Stsc:        []mp4.StscEntry{{FirstChunk: 1, SamplesPerChunk: 1, SampleDescriptionId: 1}},
		SampleSize:  10,
		SampleCount: 10,
		ChunkOffsets: mp4.ChunkOffsets{
			Values: []uint64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90},
		},
	}

	samples := mp4.CompileSamples(tables)
	require.Len(t, samples, 10)
	for i, s := range samples {
		require.Equal(t, uint64(i*10), s.Offset)
	}
}

// TestAVCStssRoundTrip covers the stss-present scenario: sync samples at
// 1-based indices {1, 31, 61} report is_sync true at 0-based positions
// {0, 30, 60} and false everywhere else.
func TestAVCStssRoundTrip(t *testing.T) {
	const sampleCount = 90
	sizes := make([]uint32, sampleCount)
	for i := range sizes {
		sizes[i] = 1000
	}
	tables := &mp4.SampleTables{
		Stts:        []mp4.SttsEntry{{Count: sampleCount, Duration: 3000}},
		Stsc:        []mp4.StscEntry{{FirstChunk: 1, SamplesPerChunk: sampleCount, SampleDescriptionId: 1}},
		SampleSizes: sizes,
		SampleCount: sampleCount,
		ChunkOffsets: mp4.ChunkOffsets{
			Values: []uint64{0},
		},
		SyncSamples: []uint32{1, 31, 61},
	}

	samples := mp4.CompileSamples(tables)
	require.Len(t, samples, sampleCount)

	wantSync := map[int]bool{0: true, 30: true, 60: true}
	for i, s := range samples {
		require.Equal(t, wantSync[i], s.IsSync, "sample %d", i)
	}
}

// TestCursorDecodeTimeInvariant checks the universal invariant from §8: the
// decode time sequence equals the cumulative sum of stts deltas.
func TestCursorDecodeTimeInvariant(t *testing.T) {
	tables := &mp4.SampleTables{
		Stts: []mp4.SttsEntry{
			{Count: 3, Duration: 33},
			{Count: 2, Duration: 34},
			{Count: 1, Duration: 33},
		},
		Stsc:        []mp4.StscEntry{{FirstChunk: 1, SamplesPerChunk: 6, SampleDescriptionId: 1}},
		SampleSize:  10,
		SampleCount: 6,
		ChunkOffsets: mp4.ChunkOffsets{
			Values: []uint64{0},
		},
	}

	samples := mp4.CompileSamples(tables)
	require.Len(t, samples, 6)

	deltas := []uint64{33, 33, 33, 34, 34, 33}
	var want uint64
	for i, s := range samples {
		require.Equal(t, want, s.DecodeTime, "sample %d", i)
		want += deltas[i]
	}
}
