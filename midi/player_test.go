package midi

import (
	"context"
	"errors"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
)

type recorder struct {
	msgs  []gomidi.Message
	waits []time.Duration
}

func (r *recorder) send(msg gomidi.Message) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) wait(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func TestPlayerTiming(t *testing.T) {
	events := []Event{
		{Tick: 0, Kind: KindTempo, BPM: 120},
		{Tick: 0, Kind: KindNoteOn, Data1: 60, Data2: 100},
		{Tick: 480, Kind: KindNoteOff, Data1: 60},
		{Tick: 480, Kind: KindNoteOn, Data1: 62, Data2: 100},
		{Tick: 960, Kind: KindNoteOff, Data1: 62},
	}
	rec := &recorder{}
	p := NewPlayer(rec.send, NewTempoMap(480, events))
	p.wait = rec.wait

	if err := p.Play(context.Background(), events); err != nil {
		t.Fatalf("Play: %v", err)
	}

	wantWaits := []time.Duration{0, 500 * time.Millisecond, 0, 500 * time.Millisecond}
	if len(rec.waits) != len(wantWaits) {
		t.Fatalf("waits = %v, want %v", rec.waits, wantWaits)
	}
	for i := range wantWaits {
		if rec.waits[i] != wantWaits[i] {
			t.Errorf("waits = %v, want %v", rec.waits, wantWaits)
			break
		}
	}

	// Four events, then all-notes-off on every channel.
	if len(rec.msgs) != 4+16 {
		t.Fatalf("sent %d messages, want 20", len(rec.msgs))
	}
	var ch, key, vel uint8
	if !rec.msgs[0].GetNoteOn(&ch, &key, &vel) || key != 60 {
		t.Errorf("first message = %v", rec.msgs[0])
	}
	var cc, val uint8
	if !rec.msgs[4].GetControlChange(&ch, &cc, &val) || cc != CCAllNotesOff {
		t.Errorf("silence message = %v", rec.msgs[4])
	}
}

func TestPlayerCancel(t *testing.T) {
	events := []Event{
		{Tick: 0, Kind: KindNoteOn, Data1: 60, Data2: 100},
		{Tick: 480, Kind: KindNoteOff, Data1: 60},
	}
	rec := &recorder{}
	p := NewPlayer(rec.send, NewTempoMap(480, nil))
	p.wait = rec.wait

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Play(ctx, events)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Play = %v, want context.Canceled", err)
	}
	if len(rec.msgs) != 16 {
		t.Errorf("sent %d messages, want only the 16 all-notes-off", len(rec.msgs))
	}
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleep = %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("sleep ignored cancellation")
	}
}

func TestMatchPort(t *testing.T) {
	names := []string{"Midi Through Port-0", "FLUID Synth (1234)", "USB MIDI Interface"}
	tests := []struct {
		name string
		want int
	}{
		{"", 0},
		{"fluid", 1},
		{"usb midi", 2},
		{"missing", -1},
	}
	for _, tt := range tests {
		if got := matchPort(names, tt.name); got != tt.want {
			t.Errorf("matchPort(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
	if got := matchPort(nil, ""); got != -1 {
		t.Errorf("matchPort(nil) = %d, want -1", got)
	}
}
