package mp4

import "sort"

// CompileSamples walks a fresh Cursor over tables to completion and returns
// the flat, playback-ordered sample list. Hosts that only need sequential
// access should drive a Cursor directly instead; this is for random access.
func CompileSamples(tables *SampleTables) []Sample {
	c := NewCursor(tables)
	var samples []Sample
	for {
		s, ok := c.Current()
		if !ok {
			break
		}
		samples = append(samples, s)
		c.Advance()
	}
	return samples
}

// FindSampleAfter returns the index of the first sync sample whose decode
// time is at or after timeSeconds (given the track's media timescale), or
// the last sample's index if timeSeconds is past the end.
func FindSampleAfter(samples []Sample, timescale uint32, timeSeconds float64) int {
	if len(samples) == 0 {
		return -1
	}
	scaled := uint64(timeSeconds * float64(timescale))
	idx := sort.Search(len(samples), func(i int) bool {
		return samples[i].DecodeTime >= scaled
	})
	if idx >= len(samples) {
		return len(samples) - 1
	}
	for idx < len(samples) && !samples[idx].IsSync {
		idx++
	}
	if idx >= len(samples) {
		return len(samples) - 1
	}
	return idx
}

// FindSampleBefore returns the index of the sync sample at or before
// timeSeconds, walking backward from the nearest sample whose decode time
// does not exceed it.
func FindSampleBefore(samples []Sample, timescale uint32, timeSeconds float64) int {
	if len(samples) == 0 {
		return -1
	}
	scaled := uint64(timeSeconds * float64(timescale))
	idx := sort.Search(len(samples), func(i int) bool {
		return samples[i].DecodeTime > scaled
	}) - 1
	if idx < 0 {
		idx = 0
	}
	for idx > 0 && !samples[idx].IsSync {
		idx--
	}
	return idx
}
