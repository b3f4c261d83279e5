package mdx

import (
	"encoding/binary"
	"errors"
	"testing"
)

// buildSong lays out a file as: header, pointer table, NUL-terminated
// title, four bytes of voice data, then the tracks back to back.
func buildSong(title string, tracks ...[]byte) []byte {
	n := len(tracks)
	buf := make([]byte, headerSize+2*n)
	buf[6] = byte(n)

	binary.LittleEndian.PutUint16(buf[0:], uint16(len(buf)))
	buf = append(buf, title...)
	buf = append(buf, 0)

	binary.LittleEndian.PutUint16(buf[2:], uint16(len(buf)))
	buf = append(buf, 0xFF, 0xFF, 0xFF, 0xFF)

	for i, t := range tracks {
		binary.LittleEndian.PutUint16(buf[pointerTable+2*i:], uint16(len(buf)))
		buf = append(buf, t...)
	}
	return buf
}

func setPointer(buf []byte, track, ptr int) {
	binary.LittleEndian.PutUint16(buf[pointerTable+2*track:], uint16(ptr))
}

func note(pitch, length, velocity uint8) []byte {
	return []byte{OpNoteFirst + pitch, length, velocity}
}

func stream(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// melody is long enough to pass the pointer-repair lookahead.
func melody() []byte {
	var parts [][]byte
	for i := 0; i < scanLookahead; i++ {
		parts = append(parts, note(60+uint8(i), 48, 100))
	}
	return stream(parts...)
}

func notes(events []Event) []Event {
	var out []Event
	for _, e := range events {
		if e.Kind == EventNote {
			out = append(out, e)
		}
	}
	return out
}

func decodeStrict(t *testing.T, data []byte, maxLoops int) *Song {
	t.Helper()
	s, err := Decode(data, Options{MaxLoops: maxLoops, Workers: 2})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return s
}

func decodeForced(t *testing.T, data []byte, maxLoops int) *Song {
	t.Helper()
	s, err := Decode(data, Options{MaxLoops: maxLoops, Forced: true, Workers: 2})
	if err != nil {
		t.Fatalf("Decode (forced): %v", err)
	}
	return s
}

func assertKind(t *testing.T, err error, kinds ...Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %v, got nil", kinds)
	}
	for _, k := range kinds {
		if !errors.Is(err, k) {
			t.Errorf("error %q is not %v", err, k)
		}
	}
}

func hasIssue(issues []Issue, kind Kind) bool {
	for _, iss := range issues {
		if iss.Kind == kind {
			return true
		}
	}
	return false
}

func TestDecodeTracksInOrder(t *testing.T) {
	data := buildSong("two",
		stream(note(60, 48, 100)),
		stream([]byte{OpRest, 24}, note(64, 24, 90)),
	)
	s := decodeStrict(t, data, 1)

	if len(s.Tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(s.Tracks))
	}
	if got := notes(s.Tracks[0].Events); len(got) != 1 || got[0].Note != 60 || got[0].Tick != 0 {
		t.Errorf("track 0 notes = %+v", got)
	}
	if got := notes(s.Tracks[1].Events); len(got) != 1 || got[0].Note != 64 || got[0].Tick != 24 {
		t.Errorf("track 1 notes = %+v", got)
	}
	if s.Length() != 48 {
		t.Errorf("Length = %d, want 48", s.Length())
	}
	if len(s.Issues) != 0 {
		t.Errorf("unexpected issues: %v", s.Issues)
	}
}

func TestDecodeReportsLowestFailingTrack(t *testing.T) {
	data := buildSong("bad",
		stream(note(60, 48, 100)),
		[]byte{0xF7},
		[]byte{0xF8},
	)
	for i := 0; i < 10; i++ {
		_, err := Decode(data, Options{Workers: 3})
		var e *Error
		if !errors.As(err, &e) {
			t.Fatalf("expected *Error, got %v", err)
		}
		if e.Track != 1 {
			t.Fatalf("run %d: error from track %d, want 1", i, e.Track)
		}
	}
}

func TestDecodeCollectsIssues(t *testing.T) {
	data := buildSong("issues",
		stream([]byte{0xF7}, note(60, 48, 100)),
		stream([]byte{OpLoopEnd, 2}, note(62, 48, 100)),
	)
	s := decodeForced(t, data, 1)
	if len(s.Issues) != 2 {
		t.Fatalf("got %d issues, want 2: %v", len(s.Issues), s.Issues)
	}
	if s.Issues[0].Track != 0 || s.Issues[1].Track != 1 {
		t.Errorf("issues out of track order: %v", s.Issues)
	}
	if s.Events() != 2 {
		t.Errorf("Events = %d, want 2", s.Events())
	}
}

func TestErrorFormat(t *testing.T) {
	e := errorf(UnknownOpcode, 2, 0x31, "0x%02x", 0xF7)
	want := "track 2: unknown opcode: 0xf7 (offset=0x0031)"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
	if !errors.Is(e, UnknownOpcode) || errors.Is(e, OutOfBounds) {
		t.Errorf("errors.Is mismatch for %v", e)
	}
}
