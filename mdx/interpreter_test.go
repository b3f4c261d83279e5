package mdx

import (
	"reflect"
	"testing"
)

func loopTrack(count uint8) []byte {
	return stream(
		[]byte{OpLoopStart},
		note(60, 48, 100),
		[]byte{OpLoopEnd, count},
	)
}

func TestLoopRepetitions(t *testing.T) {
	tests := []struct {
		name     string
		count    uint8
		maxLoops int
		want     int
	}{
		{"unlimited marker, max 3", 0, 3, 3},
		{"max 0 plays once", 0, 0, 1},
		{"marker 255 is unlimited", 255, 5, 5},
		{"marker below max", 2, 3, 2},
		{"marker above max", 9, 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := decodeStrict(t, buildSong("loop", loopTrack(tt.count)), tt.maxLoops)
			got := notes(s.Tracks[0].Events)
			if len(got) != tt.want {
				t.Fatalf("got %d notes, want %d", len(got), tt.want)
			}
			for i, n := range got {
				if n.Tick != i*48 {
					t.Errorf("note %d at tick %d, want %d", i, n.Tick, i*48)
				}
			}
			if s.Tracks[0].Rewinds != tt.want-1 {
				t.Errorf("Rewinds = %d, want %d", s.Tracks[0].Rewinds, tt.want-1)
			}
		})
	}
}

func TestLoopDeterministic(t *testing.T) {
	data := buildSong("loop", loopTrack(0), loopTrack(0))
	a := decodeStrict(t, data, 3)
	b := decodeStrict(t, data, 3)
	if !reflect.DeepEqual(a, b) {
		t.Error("two runs over the same input differ")
	}
}

func TestLoopCeiling(t *testing.T) {
	lc := NewLoopController(0, 1<<20)
	lc.Start(1)
	rewinds := 0
	for {
		_, rewind, err := lc.End(10, 0)
		if err != nil {
			t.Fatal(err)
		}
		if !rewind {
			break
		}
		rewinds++
	}
	if rewinds != maxLoopTraversals {
		t.Errorf("rewinds = %d, want %d", rewinds, maxLoopTraversals)
	}
	if lc.InLoop() {
		t.Error("frame still open after the ceiling")
	}
}

func TestLoopStartReplacesFrame(t *testing.T) {
	lc := NewLoopController(0, 2)
	if lc.Start(5) {
		t.Error("first Start reported a replacement")
	}
	if !lc.Start(9) {
		t.Error("second Start did not report a replacement")
	}
	target, rewind, err := lc.End(20, 0)
	if err != nil || !rewind || target != 9 {
		t.Errorf("End = %d, %v, %v; want 9, true, nil", target, rewind, err)
	}

	data := buildSong("nested", stream(
		[]byte{OpLoopStart, OpLoopStart},
		note(60, 48, 100),
		[]byte{OpLoopEnd, 2},
	))
	s := decodeForced(t, data, 2)
	if len(s.Issues) != 1 || s.Issues[0].Kind != 0 {
		t.Errorf("issues = %v, want one notice", s.Issues)
	}
	if n := len(notes(s.Tracks[0].Events)); n != 2 {
		t.Errorf("got %d notes, want 2", n)
	}
}

func TestUnmatchedLoopEnd(t *testing.T) {
	data := buildSong("unmatched", stream(
		note(60, 48, 100),
		[]byte{OpLoopEnd, 3},
		note(62, 48, 100),
	))

	_, err := Decode(data, Options{MaxLoops: 2})
	assertKind(t, err, UnmatchedLoopEnd)

	s := decodeForced(t, data, 2)
	if len(s.Issues) != 1 || s.Issues[0].Kind != UnmatchedLoopEnd {
		t.Errorf("issues = %v, want one unmatched loop end", s.Issues)
	}
	if n := len(notes(s.Tracks[0].Events)); n != 2 {
		t.Errorf("got %d notes, want 2", n)
	}
}

func TestUnknownOpcode(t *testing.T) {
	track := stream(note(60, 48, 100), []byte{0xF7}, note(62, 48, 100))
	data := buildSong("unknown", track)
	at := len(data) - len(track) + 3

	_, err := Decode(data, Options{})
	assertKind(t, err, UnknownOpcode)
	e := err.(*Error)
	if e.Track != 0 || e.Offset != at {
		t.Errorf("error at track %d offset 0x%x, want 0 0x%x", e.Track, e.Offset, at)
	}

	s := decodeForced(t, data, 1)
	got := notes(s.Tracks[0].Events)
	if len(got) != 2 || got[1].Note != 62 || got[1].Tick != 48 {
		t.Errorf("notes = %+v", got)
	}
	if len(s.Issues) != 1 || s.Issues[0].Offset != at {
		t.Errorf("issues = %v", s.Issues)
	}
}

func TestTruncatedTempo(t *testing.T) {
	data := buildSong("truncated", stream(note(60, 48, 100), []byte{OpTempo}))

	_, err := Decode(data, Options{})
	assertKind(t, err, IncompleteTrackData)

	s := decodeForced(t, data, 1)
	r := s.Tracks[0]
	if !r.Abandoned {
		t.Error("track not abandoned")
	}
	for _, e := range r.Events {
		if e.Kind == EventTempo {
			t.Errorf("tempo emitted from a truncated operand: %+v", e)
		}
	}
	if len(notes(r.Events)) != 1 {
		t.Errorf("events before the truncation were dropped: %+v", r.Events)
	}
	if len(s.Issues) != 1 || s.Issues[0].Kind != IncompleteTrackData {
		t.Errorf("issues = %v", s.Issues)
	}
}

func TestStateRoundTrip(t *testing.T) {
	data := buildSong("state", []byte{
		OpVolume, 100,
		OpTone, 5,
		OpGateTime, 50,
		OpDetune, 0x1E, 0x00, // +30
		OpPan, 2,
		OpLFODelay, 12,
		OpKeyOnDelay, 3,
		OpOPM, 0x40, 0x1F,
		OpTempo, 0xF0,
	})
	s := decodeStrict(t, data, 1)
	st := s.Tracks[0].State

	if st.Volume != 100 {
		t.Errorf("Volume = %d, want 100", st.Volume)
	}
	if st.Tone != 5 {
		t.Errorf("Tone = %d, want 5", st.Tone)
	}
	if st.GateRatio != 0.5 {
		t.Errorf("GateRatio = %v, want 0.5", st.GateRatio)
	}
	if st.Detune != 30 {
		t.Errorf("Detune = %d, want 30", st.Detune)
	}
	if st.Pan != (PanState{Position: PanRight, Value: 127}) {
		t.Errorf("Pan = %+v", st.Pan)
	}
	if st.LFODelay != 12 || st.KeyOnDelay != 3 {
		t.Errorf("delays = %d/%d, want 12/3", st.LFODelay, st.KeyOnDelay)
	}
	if st.OPM[0x40] != 0x1F {
		t.Errorf("OPM[0x40] = 0x%x, want 0x1f", st.OPM[0x40])
	}
	if st.TempoBPM != 1024 {
		t.Errorf("TempoBPM = %v, want 1024", st.TempoBPM)
	}
}

func TestTempoZeroIsRecorded(t *testing.T) {
	data := buildSong("tempo", []byte{OpTempo, 0})
	s := decodeForced(t, data, 1)
	if len(s.Issues) != 1 || s.Issues[0].Kind != 0 {
		t.Errorf("issues = %v, want one notice", s.Issues)
	}
	if bpm := s.Tracks[0].State.TempoBPM; bpm != 60*4096/200.0 {
		t.Errorf("TempoBPM = %v", bpm)
	}

	// Strict mode tolerates it without an issue.
	s = decodeStrict(t, data, 1)
	if len(s.Issues) != 0 {
		t.Errorf("strict issues = %v", s.Issues)
	}
}

func TestNoteTiming(t *testing.T) {
	tests := []struct {
		name       string
		prefix     []byte
		n          []byte
		wantTick   int
		wantLength int
		wantVel    uint8
	}{
		{"default gate", nil, note(60, 48, 100), 0, 38, 100},
		{"full gate", []byte{OpGateTime, 100}, note(60, 48, 100), 0, 48, 100},
		{"gate clamped to minimum", []byte{OpGateTime, 0}, note(60, 48, 100), 0, 5, 100},
		{"gate never below one tick", []byte{OpGateTime, 10}, note(60, 1, 100), 0, 1, 100},
		{"key-on delay", []byte{OpKeyOnDelay, 6}, note(60, 48, 100), 6, 38, 100},
		{"velocity clamped", nil, note(60, 48, 200), 0, 38, 127},
		{"velocity from volume", []byte{OpVolume, 90}, note(60, 48, 0), 0, 38, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := decodeStrict(t, buildSong("timing", stream(tt.prefix, tt.n)), 1)
			got := notes(s.Tracks[0].Events)
			if len(got) != 1 {
				t.Fatalf("got %d notes, want 1", len(got))
			}
			n := got[0]
			if n.Tick != tt.wantTick || n.Length != tt.wantLength || n.Velocity != tt.wantVel {
				t.Errorf("note = tick %d len %d vel %d, want %d %d %d",
					n.Tick, n.Length, n.Velocity, tt.wantTick, tt.wantLength, tt.wantVel)
			}
		})
	}
}

func TestZeroLengthNote(t *testing.T) {
	s := decodeStrict(t, buildSong("zero", note(60, 0, 100)), 1)
	if n := len(notes(s.Tracks[0].Events)); n != 0 {
		t.Errorf("zero-length note emitted %d notes", n)
	}
}
