package midi

import (
	"cmp"
	"math"
	"slices"

	"mdx2midi/mdx"
)

const (
	// BendRangeUnits is the pitch-bend value for a full bend range. Every
	// track sets its range to one semitone, so 100 cents map to this value.
	BendRangeUnits = 8191

	DefaultResolution = 480

	sweepSteps = 8
)

// BendValue converts cents to a pitch-bend value, clamped to the 14-bit range.
func BendValue(cents int) int16 {
	v := math.Round(float64(cents) / 100 * BendRangeUnits)
	return int16(max(-8192, min(8191, v)))
}

// Emitter turns decoded MDX timelines into MIDI events.
type Emitter struct {
	resolution int
}

// NewEmitter returns an emitter for the given ticks per quarter note.
// Resolution <= 0 uses DefaultResolution.
func NewEmitter(resolution int) *Emitter {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	return &Emitter{resolution: resolution}
}

func (em *Emitter) Resolution() int { return em.resolution }

// Ticks converts MDX clocks to MIDI ticks.
func (em *Emitter) Ticks(clock int) int64 {
	return int64(clock) * int64(em.resolution) / mdx.ClocksPerQuarter
}

// Track emits the events of one track, sorted by tick.
func (em *Emitter) Track(index int, events []mdx.Event) []Event {
	ch := uint8(index % 16)
	out := make([]Event, 0, len(events)*2+5)
	add := func(tick int64, kind Kind, d1, d2 uint8) {
		out = append(out, Event{Tick: tick, Track: index, Channel: ch, Kind: kind, Data1: d1, Data2: d2})
	}
	bend := func(tick int64, cents int) {
		out = append(out, Event{Tick: tick, Track: index, Channel: ch, Kind: KindPitchBend, Bend: BendValue(cents)})
	}

	// Program 0 and a pitch-bend range of one semitone.
	add(0, KindProgram, 0, 0)
	add(0, KindControl, CCRPNMSB, 0)
	add(0, KindControl, CCRPNLSB, 0)
	add(0, KindControl, CCDataEntry, 1)
	add(0, KindControl, CCDataEntryLSB, 0)

	for _, e := range events {
		t := em.Ticks(e.Tick)
		switch e.Kind {
		case mdx.EventNote:
			add(t, KindNoteOn, e.Note&0x7F, max(e.Velocity, 1))
			add(em.Ticks(e.Tick+e.Length), KindNoteOff, e.Note&0x7F, 0)
		case mdx.EventTempo:
			out = append(out, Event{Tick: t, Track: index, Channel: ch, Kind: KindTempo, BPM: e.BPM})
		case mdx.EventVolume:
			add(t, KindControl, CCVolume, clamp7(e.Value))
		case mdx.EventTone:
			add(t, KindProgram, uint8(e.Value%128), 0)
		case mdx.EventDetune:
			bend(t, e.Value)
		case mdx.EventPan:
			add(t, KindControl, CCPan, clamp7(e.Value))
		case mdx.EventModulation:
			add(t, KindControl, CCModulation, clamp7(e.Value))
		case mdx.EventTimbre:
			add(t, KindControl, CCTimbre, clamp7(e.Value))
		case mdx.EventPitchSweep:
			for i := 0; i <= sweepSteps; i++ {
				at := e.Tick + e.Length*i/sweepSteps
				bend(em.Ticks(at), e.From+(e.Value-e.From)*i/sweepSteps)
			}
		}
	}

	slices.SortStableFunc(out, func(a, b Event) int {
		return cmp.Or(cmp.Compare(a.Tick, b.Tick), cmp.Compare(a.Kind.order(), b.Kind.order()))
	})
	return out
}

func clamp7(v int) uint8 {
	return uint8(max(0, min(127, v)))
}

// Sequence is a converted song.
type Sequence struct {
	Title      string
	Resolution int

	// Tracks holds one stream per MDX track.
	Tracks [][]Event

	// Master is every track merged into one stream.
	Master []Event

	Tempo *TempoMap
}

// Song emits every track of s and merges them.
func (em *Emitter) Song(s *mdx.Song) *Sequence {
	seq := &Sequence{
		Title:      s.Header.Title,
		Resolution: em.resolution,
		Tracks:     make([][]Event, len(s.Tracks)),
	}
	for i, t := range s.Tracks {
		seq.Tracks[i] = em.Track(i, t.Events)
	}
	seq.Master = Merge(seq.Tracks)
	seq.Tempo = NewTempoMap(em.resolution, seq.Master)
	return seq
}

// End is the tick of the last event.
func (s *Sequence) End() int64 {
	if len(s.Master) == 0 {
		return 0
	}
	return s.Master[len(s.Master)-1].Tick
}

// Seconds is the playing time of the sequence.
func (s *Sequence) Seconds() float64 {
	return s.Tempo.Seconds(s.End())
}
