package midi

import (
	"testing"

	"mdx2midi/mdx"
)

func TestBendValue(t *testing.T) {
	tests := []struct {
		cents int
		want  int16
	}{
		{0, 0},
		{50, 4096}, // round(0.5 * 8191)
		{-50, -4096},
		{100, 8191},
		{-100, -8191},
		{250, 8191},
		{-250, -8192},
	}
	for _, tt := range tests {
		if got := BendValue(tt.cents); got != tt.want {
			t.Errorf("BendValue(%d) = %d, want %d", tt.cents, got, tt.want)
		}
	}
}

func TestTrackSetup(t *testing.T) {
	evs := NewEmitter(480).Track(17, nil)
	want := []Event{
		{Track: 17, Channel: 1, Kind: KindProgram},
		{Track: 17, Channel: 1, Kind: KindControl, Data1: CCRPNMSB},
		{Track: 17, Channel: 1, Kind: KindControl, Data1: CCRPNLSB},
		{Track: 17, Channel: 1, Kind: KindControl, Data1: CCDataEntry, Data2: 1},
		{Track: 17, Channel: 1, Kind: KindControl, Data1: CCDataEntryLSB},
	}
	if len(evs) != len(want) {
		t.Fatalf("got %d events, want %d", len(evs), len(want))
	}
	for i := range want {
		if evs[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, evs[i], want[i])
		}
	}
}

func TestTrackEvents(t *testing.T) {
	em := NewEmitter(480)
	evs := em.Track(0, []mdx.Event{
		{Tick: 0, Kind: mdx.EventVolume, Value: 100},
		{Tick: 0, Kind: mdx.EventTone, Value: 130},
		{Tick: 0, Kind: mdx.EventDetune, Value: 50},
		{Tick: 0, Kind: mdx.EventPan, Value: 127},
		{Tick: 48, Kind: mdx.EventNote, Note: 60, Velocity: 90, Length: 24},
		{Tick: 96, Kind: mdx.EventTimbre, Value: 127},
	})[5:]

	type ev struct {
		tick int64
		kind Kind
		d1   uint8
		d2   uint8
		bend int16
	}
	want := []ev{
		{0, KindControl, CCVolume, 100, 0},
		{0, KindProgram, 2, 0, 0},
		{0, KindPitchBend, 0, 0, 4096},
		{0, KindControl, CCPan, 127, 0},
		{480, KindNoteOn, 60, 90, 0},
		{720, KindNoteOff, 60, 0, 0},
		{960, KindControl, CCTimbre, 127, 0},
	}
	if len(evs) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(evs), len(want), evs)
	}
	for i, w := range want {
		e := evs[i]
		if (ev{e.Tick, e.Kind, e.Data1, e.Data2, e.Bend}) != w {
			t.Errorf("event %d = %+v, want %+v", i, e, w)
		}
	}
}

func TestTrackPitchSweep(t *testing.T) {
	evs := NewEmitter(48).Track(0, []mdx.Event{
		{Tick: 0, Kind: mdx.EventPitchSweep, From: 100, Value: 0, Length: 16},
	})[5:]
	if len(evs) != sweepSteps+1 {
		t.Fatalf("got %d bends, want %d", len(evs), sweepSteps+1)
	}
	for i, e := range evs {
		if e.Kind != KindPitchBend || e.Tick != int64(2*i) {
			t.Errorf("step %d = %+v", i, e)
		}
		if i > 0 && e.Bend >= evs[i-1].Bend {
			t.Errorf("ramp not falling at step %d: %d >= %d", i, e.Bend, evs[i-1].Bend)
		}
	}
	if first := evs[0].Bend; first != BendRangeUnits {
		t.Errorf("ramp starts at %d, want %d", first, BendRangeUnits)
	}
	if last := evs[len(evs)-1].Bend; last != 0 {
		t.Errorf("ramp ends at %d, want 0", last)
	}
}

// bendAt returns the pitch bend in effect when the note-on for note sounds.
func bendAt(evs []Event, note uint8) (int16, bool) {
	var bend int16
	for _, e := range evs {
		switch {
		case e.Kind == KindPitchBend:
			bend = e.Bend
		case e.Kind == KindNoteOn && e.Data1 == note:
			return bend, true
		}
	}
	return 0, false
}

func TestPortamentoSettlesOnTarget(t *testing.T) {
	s := mdx.NewPlaybackState()
	var timeline []mdx.Event
	for _, cmd := range []mdx.Command{
		mdx.NoteOn{Pitch: 60, Length: 48, Velocity: 100},
		mdx.Portamento{Target: 61, Speed: 16},
		mdx.NoteOn{Pitch: 61, Length: 48, Velocity: 100},
		mdx.NoteOn{Pitch: 64, Length: 48, Velocity: 100},
	} {
		var evs []mdx.Event
		s, evs = mdx.Apply(s, cmd)
		timeline = append(timeline, evs...)
	}
	evs := NewEmitter(48).Track(0, timeline)

	// The glide starts a semitone below the target and lands on it.
	if bend, ok := bendAt(evs, 61); !ok || bend != -BendRangeUnits {
		t.Errorf("bend at target note-on = %d (found %v), want %d", bend, ok, -BendRangeUnits)
	}
	var last Event
	for _, e := range evs {
		if e.Kind == KindPitchBend {
			last = e
		}
	}
	if last.Bend != 0 || last.Tick != 64 {
		t.Errorf("last bend = %d at tick %d, want 0 at 64", last.Bend, last.Tick)
	}
	if bend, ok := bendAt(evs, 64); !ok || bend != 0 {
		t.Errorf("bend at following note-on = %d (found %v), want 0", bend, ok)
	}
}

func TestNoteOffBeforeNoteOnAtSameTick(t *testing.T) {
	evs := NewEmitter(48).Track(0, []mdx.Event{
		{Tick: 0, Kind: mdx.EventNote, Note: 60, Velocity: 100, Length: 48},
		{Tick: 48, Kind: mdx.EventNote, Note: 62, Velocity: 100, Length: 48},
	})[5:]
	if evs[1].Kind != KindNoteOff || evs[2].Kind != KindNoteOn || evs[1].Tick != evs[2].Tick {
		t.Errorf("events at tick 48 = %+v %+v", evs[1], evs[2])
	}
}

func twoTrackSong() *mdx.Song {
	return &mdx.Song{
		Header: mdx.Header{Title: "merge"},
		Tracks: []mdx.TrackResult{
			{Events: []mdx.Event{
				{Tick: 0, Kind: mdx.EventTempo, BPM: 150},
				{Tick: 0, Kind: mdx.EventNote, Note: 60, Velocity: 100, Length: 48},
				{Tick: 96, Kind: mdx.EventTempo, BPM: 100},
				{Tick: 96, Kind: mdx.EventNote, Note: 64, Velocity: 100, Length: 24},
			}},
			{Events: []mdx.Event{
				{Tick: 24, Kind: mdx.EventNote, Note: 48, Velocity: 80, Length: 72},
				{Tick: 48, Kind: mdx.EventTempo, BPM: 200},
				{Tick: 96, Kind: mdx.EventNote, Note: 50, Velocity: 80, Length: 24},
			}},
		},
	}
}

func TestMergeOrder(t *testing.T) {
	seq := NewEmitter(480).Song(twoTrackSong())
	if got, want := len(seq.Master), len(seq.Tracks[0])+len(seq.Tracks[1]); got != want {
		t.Fatalf("master has %d events, want %d", got, want)
	}
	for i := 1; i < len(seq.Master); i++ {
		a, b := seq.Master[i-1], seq.Master[i]
		if compareEvents(a, b) > 0 {
			t.Fatalf("master out of order at %d: %+v before %+v", i, a, b)
		}
	}

	// At tick 960: tempo, then the note-off, then both note-ons.
	var kinds []Kind
	for _, e := range seq.Master {
		if e.Tick == 960 {
			kinds = append(kinds, e.Kind)
		}
	}
	want := []Kind{KindTempo, KindNoteOff, KindNoteOn, KindNoteOn}
	if len(kinds) != len(want) {
		t.Fatalf("kinds at 960 = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("kinds at 960 = %v, want %v", kinds, want)
			break
		}
	}
}
