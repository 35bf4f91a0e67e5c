package mp4

// selectNextTrack inspects the current sample of every cursor and picks the
// one with the smallest decode time, ties broken by ascending track index.
// It returns ok=false when every cursor is exhausted (global EOF).
func selectNextTrack(cursors []*Cursor) (trackIndex int, sample Sample, ok bool) {
	found := false
	var best Sample
	bestIndex := -1
	for i, c := range cursors {
		s, has := c.Current()
		if !has {
			continue
		}
		if !found || s.DecodeTime < best.DecodeTime {
			found = true
			best = s
			bestIndex = i
		}
	}
	return bestIndex, best, found
}
