package midi

import (
	"cmp"
	"slices"
)

// Merge combines complete per-track streams into one stream ordered by
// tick, then kind (tempo, note-off, controllers, note-on), then track.
func Merge(tracks [][]Event) []Event {
	n := 0
	for _, t := range tracks {
		n += len(t)
	}
	out := make([]Event, 0, n)
	for _, t := range tracks {
		out = append(out, t...)
	}
	slices.SortStableFunc(out, compareEvents)
	return out
}

func compareEvents(a, b Event) int {
	return cmp.Or(
		cmp.Compare(a.Tick, b.Tick),
		cmp.Compare(a.Kind.order(), b.Kind.order()),
		cmp.Compare(a.Track, b.Track),
	)
}
