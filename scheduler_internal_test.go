package mp4

import "testing"

// Internal (white-box) test: selectNextTrack is unexported, so this test
// lives in package mp4 rather than the external mp4_test package used
// elsewhere in this module.

func TestSelectNextTrackPicksSmallestDecodeTime(t *testing.T) {
	trackA := &SampleTables{
		Stts:        []SttsEntry{{Count: 2, Duration: 1000}},
		Stsc:        []StscEntry{{FirstChunk: 1, SamplesPerChunk: 2, SampleDescriptionId: 1}},
		SampleSize:  10,
		SampleCount: 2,
		ChunkOffsets: ChunkOffsets{Values: []uint64{0}},
	}
	trackB := &SampleTables{
		Stts:        []SttsEntry{{Count: 2, Duration: 500}},
		Stsc:        []StscEntry{{FirstChunk: 1, SamplesPerChunk: 2, SampleDescriptionId: 1}},
		SampleSize:  10,
		SampleCount: 2,
		ChunkOffsets: ChunkOffsets{Values: []uint64{1000}},
	}

	cursors := []*Cursor{NewCursor(trackA), NewCursor(trackB)}

	// Round 1: both at decode time 0 -> tie broken by ascending index (A).
	idx, _, ok := selectNextTrack(cursors)
	if !ok || idx != 0 {
		t.Fatalf("round 1: got (idx=%d, ok=%v), want (0, true)", idx, ok)
	}
	cursors[0].Advance()

	// Round 2: A is now at 1000, B is still at 0 -> B.
	idx, _, ok = selectNextTrack(cursors)
	if !ok || idx != 1 {
		t.Fatalf("round 2: got (idx=%d, ok=%v), want (1, true)", idx, ok)
	}
	cursors[1].Advance()

	// Round 3: A at 1000, B at 500 -> B.
	idx, _, ok = selectNextTrack(cursors)
	if !ok || idx != 1 {
		t.Fatalf("round 3: got (idx=%d, ok=%v), want (1, true)", idx, ok)
	}
	cursors[1].Advance()

	// Round 4: A at 1000, B exhausted -> A.
	idx, _, ok = selectNextTrack(cursors)
	if !ok || idx != 0 {
		t.Fatalf("round 4: got (idx=%d, ok=%v), want (0, true)", idx, ok)
	}
	cursors[0].Advance()

	// Round 5: both exhausted -> global EOF.
	_, _, ok = selectNextTrack(cursors)
	if ok {
		t.Fatalf("round 5: got ok=true, want ok=false (global EOF)")
	}
}
