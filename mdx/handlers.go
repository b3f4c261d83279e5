package mdx

import (
	"maps"
	"math"

	"mdx2midi/debug"
)

const (
	defaultTempoValue = 200

	opmChannelControl = 0x20 // RL, FB, CONNECT for channels 0-7
	opmKeyFraction    = 0x30 // KF for channels 0-7

	// MaxBendCents is the widest bend a track can express; the bend range
	// is one semitone.
	MaxBendCents = 100
)

// TempoBPM converts a tempo opcode operand to beats per minute.
// A zero operand is invalid and replaced by the driver default.
func TempoBPM(v uint8) (bpm float64, defaulted bool) {
	if v == 0 {
		v = defaultTempoValue
		defaulted = true
	}
	return 60 * 4096 / float64(v), defaulted
}

// GateRatio converts a gate-time percentage to a ratio in [0.1, 1.0].
func GateRatio(v uint8) float64 {
	return math.Max(MinGateRatio, math.Min(1.0, float64(v)/100))
}

// MapPan converts a device pan value to a position and a CC10 value.
func MapPan(v uint8) PanState {
	switch v {
	case 0:
		return PanState{Position: PanLeft, Value: 0}
	case 1, 3:
		return PanState{Position: PanCenter, Value: 64}
	case 2:
		return PanState{Position: PanRight, Value: 127}
	default:
		return PanState{Position: PanCustom, Value: v & 0x7F}
	}
}

func gateLength(length int, ratio float64) int {
	if length <= 0 {
		return 0
	}
	g := int(math.Round(float64(length) * ratio))
	return max(1, min(g, length))
}

// Apply runs the handler for cmd. Loop markers are not handled here; they
// only move the cursor and are owned by the LoopController.
func Apply(s PlaybackState, cmd Command) (PlaybackState, []Event) {
	switch c := cmd.(type) {
	case NoteOn:
		return applyNote(s, c)
	case Rest:
		s.Elapsed += int(c.Duration)
		return s, nil
	case Tempo:
		bpm, _ := TempoBPM(c.Value)
		s.TempoBPM = bpm
		return s, []Event{{Tick: s.Elapsed, Kind: EventTempo, BPM: bpm}}
	case Volume:
		s.Volume = min(c.Level, 127)
		return s, []Event{{Tick: s.Elapsed, Kind: EventVolume, Value: int(s.Volume)}}
	case Tone:
		s.Tone = c.ID
		return s, []Event{{Tick: s.Elapsed, Kind: EventTone, Value: int(c.ID)}}
	case Detune:
		s.Detune = int(c.Cents)
		return s, []Event{{Tick: s.Elapsed, Kind: EventDetune, Value: s.Detune}}
	case Pan:
		s.Pan = MapPan(c.Value)
		return s, []Event{{Tick: s.Elapsed, Kind: EventPan, Value: int(s.Pan.Value)}}
	case GateTime:
		s.GateRatio = GateRatio(c.Value)
		return s, nil
	case LFO:
		return applyLFO(s, c)
	case LFOToggle:
		return applyLFOToggle(s, c)
	case LFODelay:
		s.LFODelay = int(c.Ticks)
		return s, nil
	case KeyOnDelay:
		s.KeyOnDelay = int(c.Ticks)
		return s, nil
	case Portamento:
		return applyPortamento(s, c)
	case OPMRegister:
		return applyOPM(s, c)
	}
	return s, nil
}

func applyNote(s PlaybackState, c NoteOn) (PlaybackState, []Event) {
	var evs []Event
	start := s.Elapsed + s.KeyOnDelay
	length := int(c.Length)

	if s.Portamento.Enabled {
		if s.Sounded {
			evs = append(evs, glide(s, start, length))
		}
		s.Portamento.Enabled = false
	}

	if s.LFO.Active() && s.LFODelay > 0 && s.LFODelay < length {
		evs = append(evs,
			Event{Tick: start, Kind: EventModulation, Value: 0},
			Event{Tick: start + s.LFODelay, Kind: EventModulation, Value: int(s.LFO.Depth())},
		)
	}

	if gated := gateLength(length, s.GateRatio); gated > 0 {
		velocity := c.Velocity
		if velocity == 0 {
			velocity = s.Volume
		}
		evs = append(evs, Event{
			Tick:     start,
			Kind:     EventNote,
			Note:     c.Pitch,
			Velocity: min(velocity, 127),
			Length:   gated,
		})
	}

	s.LastNote = c.Pitch
	s.Sounded = true
	s.Elapsed += length
	return s, evs
}

func applyLFO(s PlaybackState, c LFO) (PlaybackState, []Event) {
	if c.Flags&LFOFlagVibrato != 0 {
		s.LFO.Vibrato = c.Vibrato
	}
	if c.Flags&LFOFlagTremolo != 0 {
		s.LFO.Tremolo = c.Tremolo
	}
	if c.Flags&LFOFlagHardware != 0 {
		s.LFO.Hardware = c.Hardware
	}
	if !s.LFO.Active() {
		return s, nil
	}
	return s, []Event{{Tick: s.Elapsed, Kind: EventModulation, Value: int(s.LFO.Depth())}}
}

func applyLFOToggle(s PlaybackState, c LFOToggle) (PlaybackState, []Event) {
	switch c.Kind {
	case LFOVibrato:
		s.LFO.Vibrato.Enabled = c.Enabled
	case LFOTremolo:
		s.LFO.Tremolo.Enabled = c.Enabled
	case LFOHardware:
		s.LFO.Hardware.Enabled = c.Enabled
	default:
		s.LFO.Vibrato.Enabled = c.Enabled
		s.LFO.Tremolo.Enabled = c.Enabled
		s.LFO.Hardware.Enabled = c.Enabled
	}
	return s, []Event{{Tick: s.Elapsed, Kind: EventModulation, Value: int(s.LFO.Depth())}}
}

// applyPortamento arms a glide into the next note.
func applyPortamento(s PlaybackState, c Portamento) (PlaybackState, []Event) {
	if c.Speed == 0 {
		s.Portamento = PortamentoState{}
		return s, nil
	}
	s.Portamento = PortamentoState{Enabled: true, Target: c.Target, Speed: c.Speed}
	return s, nil
}

// glide starts the target note bent to the previous pitch and ramps back to
// the track detune, finishing within the note. Intervals wider than the bend
// range start from the range limit.
func glide(s PlaybackState, start, length int) Event {
	target := s.Portamento.Target
	from := (int(s.LastNote)-int(target))*100 + s.Detune
	if clamped := max(-MaxBendCents, min(MaxBendCents, from)); clamped != from {
		debug.Log("portamento", "glide %d -> %d: %d cents clamped to %d", s.LastNote, target, from, clamped)
		from = clamped
	}
	return Event{
		Tick:   start,
		Kind:   EventPitchSweep,
		From:   from,
		Value:  s.Detune,
		Length: max(1, min(int(s.Portamento.Speed), length)),
	}
}

func applyOPM(s PlaybackState, c OPMRegister) (PlaybackState, []Event) {
	regs := make(map[uint8]uint8, len(s.OPM)+1)
	maps.Copy(regs, s.OPM)
	regs[c.Reg] = c.Value
	s.OPM = regs

	var evs []Event
	switch {
	case c.Reg >= opmChannelControl && c.Reg < opmChannelControl+8:
		if rl := (c.Value >> 6) & 0x03; rl != 0 {
			var v uint8
			switch rl {
			case 0x01:
				v = 96
			case 0x02:
				v = 32
			default:
				v = 64
			}
			s.Pan = PanState{Position: PanCustom, Value: v}
			evs = append(evs, Event{Tick: s.Elapsed, Kind: EventPan, Value: int(v)})
		}
		fb := int(c.Value>>3) & 0x07
		evs = append(evs, Event{Tick: s.Elapsed, Kind: EventTimbre, Value: fb * 127 / 7})
	case c.Reg >= opmKeyFraction && c.Reg < opmKeyFraction+8:
		kf := int(c.Value >> 2)
		s.Detune = int(math.Round(float64(kf) * 100 / 64))
		evs = append(evs, Event{Tick: s.Elapsed, Kind: EventDetune, Value: s.Detune})
	}
	return s, evs
}
