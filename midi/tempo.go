package midi

import (
	"sort"
	"time"
)

// DefaultBPM applies until the first tempo event.
const DefaultBPM = 120.0

type tempoChange struct {
	tick    int64
	bpm     float64
	seconds float64 // elapsed time at tick
}

// TempoMap converts ticks to wall-clock time.
type TempoMap struct {
	resolution int
	changes    []tempoChange
}

// NewTempoMap builds a map from the tempo events of a merged stream. When
// several tempo events share a tick the last one wins.
func NewTempoMap(resolution int, events []Event) *TempoMap {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	tm := &TempoMap{
		resolution: resolution,
		changes:    []tempoChange{{tick: 0, bpm: DefaultBPM}},
	}
	for _, e := range events {
		if e.Kind != KindTempo || e.BPM <= 0 {
			continue
		}
		last := &tm.changes[len(tm.changes)-1]
		if e.Tick == last.tick {
			last.bpm = e.BPM
			continue
		}
		tm.changes = append(tm.changes, tempoChange{
			tick:    e.Tick,
			bpm:     e.BPM,
			seconds: last.seconds + tm.span(e.Tick-last.tick, last.bpm),
		})
	}
	return tm
}

func (tm *TempoMap) span(ticks int64, bpm float64) float64 {
	return float64(ticks) / float64(tm.resolution) * 60 / bpm
}

func (tm *TempoMap) at(tick int64) tempoChange {
	i := sort.Search(len(tm.changes), func(i int) bool { return tm.changes[i].tick > tick })
	return tm.changes[max(i-1, 0)]
}

// BPM is the tempo in effect at tick.
func (tm *TempoMap) BPM(tick int64) float64 {
	return tm.at(tick).bpm
}

// Seconds is the time from the start to tick.
func (tm *TempoMap) Seconds(tick int64) float64 {
	if tick <= 0 {
		return 0
	}
	c := tm.at(tick)
	return c.seconds + tm.span(tick-c.tick, c.bpm)
}

func (tm *TempoMap) Duration(tick int64) time.Duration {
	return time.Duration(tm.Seconds(tick) * float64(time.Second))
}

// Changes is the number of tempo segments, including the default one.
func (tm *TempoMap) Changes() int { return len(tm.changes) }
