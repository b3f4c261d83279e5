package mdx

import (
	"errors"
	"fmt"

	"mdx2midi/debug"
)

// TrackResult is the outcome of interpreting one track.
type TrackResult struct {
	Track  Track
	Events []Event

	// State is the playback state when the track stopped.
	State PlaybackState

	Issues []Issue

	// Abandoned is set when forced mode stopped the track early.
	Abandoned bool

	// Rewinds is the number of loop rewinds performed.
	Rewinds int

	Err error
}

type interpreter struct {
	cur    *Cursor
	track  Track
	rec    Recovery
	loops  *LoopController
	state  PlaybackState
	events []Event
	issues []Issue
}

// Interpret runs the command stream of t to its end. maxLoops bounds every
// loop as described on LoopController.
func Interpret(src *Source, t Track, maxLoops int, rec Recovery) TrackResult {
	in := &interpreter{
		track: t,
		rec:   rec,
		loops: NewLoopController(t.Index, maxLoops),
		state: NewPlaybackState(),
	}
	res := TrackResult{Track: t}
	if !t.Empty {
		in.cur = src.Cursor(t.Index, t.Start, t.End)
		res.Abandoned, res.Err = in.run()
	}
	res.Events = in.events
	res.State = in.state
	res.Issues = in.issues
	res.Rewinds = in.loops.Traversals()

	debug.Log("track", "track %d: %d events, %d ticks, %d rewinds, abandoned=%v err=%v",
		t.Index, len(res.Events), res.State.Elapsed, res.Rewinds, res.Abandoned, res.Err)
	return res
}

func (in *interpreter) note(iss *Issue) {
	if iss != nil {
		in.issues = append(in.issues, *iss)
	}
}

func (in *interpreter) run() (abandoned bool, _ error) {
	c := in.cur
	for !c.Done() {
		at := c.Pos()
		cmd, err := DecodeCommand(c)
		if err != nil {
			var e *Error
			if !errors.As(err, &e) {
				return false, err
			}
			switch e.Kind {
			case UnknownOpcode:
				iss, err := in.rec.Command(e)
				if err != nil {
					return false, err
				}
				in.note(iss)
				c.Seek(at + 1)
				continue
			case OutOfBounds:
				te := &Error{
					Kind:    IncompleteTrackData,
					Track:   in.track.Index,
					Offset:  e.Offset,
					Message: e.Message,
					Err:     OutOfBounds,
				}
				iss, err := in.rec.Truncated(te)
				if err != nil {
					return false, err
				}
				in.note(iss)
				return true, nil
			default:
				return false, err
			}
		}

		if err := in.dispatch(cmd, at); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (in *interpreter) dispatch(cmd Command, at int) error {
	switch v := cmd.(type) {
	case LoopStart:
		if in.loops.Start(in.cur.Pos()) {
			in.note(in.rec.Notice(0, in.track.Index, at, "loop start inside open loop; frame replaced"))
		}
		return nil

	case LoopEnd:
		target, rewind, err := in.loops.End(at, v.Count)
		if err != nil {
			var e *Error
			if !errors.As(err, &e) {
				return err
			}
			iss, err := in.rec.Command(e)
			if err != nil {
				return err
			}
			in.note(iss)
			return nil
		}
		if rewind {
			debug.LogEvery(64, "loop", "track %d: rewind to 0x%04x", in.track.Index, target)
			in.cur.Seek(target)
		} else if in.loops.Traversals() >= maxLoopTraversals {
			in.note(in.rec.Notice(0, in.track.Index, at, fmt.Sprintf("loop stopped after %d rewinds", maxLoopTraversals)))
		}
		return nil

	case Tempo:
		if _, defaulted := TempoBPM(v.Value); defaulted {
			in.note(in.rec.Notice(0, in.track.Index, at, fmt.Sprintf("tempo value 0 replaced with %d", defaultTempoValue)))
		}
	}

	var evs []Event
	in.state, evs = Apply(in.state, cmd)
	in.events = append(in.events, evs...)
	return nil
}
