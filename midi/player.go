package midi

import (
	"context"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"mdx2midi/debug"
)

// Player sends a merged event stream to an output in real time.
type Player struct {
	send  func(msg gomidi.Message) error
	tempo *TempoMap

	// wait blocks for d or until ctx is done.
	wait func(ctx context.Context, d time.Duration) error
}

// NewPlayer returns a player that times events with tempo. send is usually
// the function returned by gomidi.SendTo.
func NewPlayer(send func(msg gomidi.Message) error, tempo *TempoMap) *Player {
	return &Player{send: send, tempo: tempo, wait: sleep}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Play sends events until the end of the stream or until ctx is cancelled.
// Every channel is silenced before it returns.
func (p *Player) Play(ctx context.Context, events []Event) error {
	defer p.silence()

	var played time.Duration
	for i, e := range events {
		if e.Kind == KindTempo {
			debug.Log("player", "tempo %.2f bpm at tick %d", e.BPM, e.Tick)
			continue
		}
		due := p.tempo.Duration(e.Tick)
		if err := p.wait(ctx, due-played); err != nil {
			return err
		}
		played = max(played, due)

		if err := p.send(e.Message()); err != nil {
			return err
		}
		debug.LogEvery(256, "player", "event %d/%d at %v", i+1, len(events), due)
	}
	return nil
}

func (p *Player) silence() {
	for ch := uint8(0); ch < 16; ch++ {
		if err := p.send(gomidi.ControlChange(ch, CCAllNotesOff, 0)); err != nil {
			debug.Warn("player", "all notes off on channel %d: %v", ch, err)
			return
		}
	}
}
