package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Kind is the type of an emitted event.
type Kind uint8

const (
	KindTempo Kind = iota
	KindNoteOff
	KindControl
	KindProgram
	KindPitchBend
	KindNoteOn
)

// Controller numbers used by the emitter.
const (
	CCModulation   uint8 = 1
	CCDataEntry    uint8 = 6
	CCVolume       uint8 = 7
	CCPan          uint8 = 10
	CCDataEntryLSB uint8 = 38
	CCTimbre       uint8 = 71
	CCRPNLSB       uint8 = 100
	CCRPNMSB       uint8 = 101
	CCAllNotesOff  uint8 = 123
)

// order ranks kinds at the same tick: tempo first so it applies to
// everything at that tick, then note-offs, then controllers, then note-ons.
func (k Kind) order() int {
	switch k {
	case KindTempo:
		return 0
	case KindNoteOff:
		return 1
	case KindNoteOn:
		return 3
	default:
		return 2
	}
}

func (k Kind) String() string {
	switch k {
	case KindTempo:
		return "tempo"
	case KindNoteOff:
		return "note-off"
	case KindControl:
		return "control"
	case KindProgram:
		return "program"
	case KindPitchBend:
		return "pitch-bend"
	case KindNoteOn:
		return "note-on"
	}
	return "unknown"
}

// Event is a MIDI event at an absolute tick.
type Event struct {
	Tick    int64
	Track   int
	Channel uint8
	Kind    Kind

	Data1 uint8 // note, controller or program
	Data2 uint8 // velocity or controller value

	Bend int16
	BPM  float64
}

// Message encodes the event. Tempo events become a tempo meta message.
func (e Event) Message() gomidi.Message {
	switch e.Kind {
	case KindTempo:
		return gomidi.Message(smf.MetaTempo(e.BPM))
	case KindNoteOn:
		return gomidi.NoteOn(e.Channel, e.Data1, e.Data2)
	case KindNoteOff:
		return gomidi.NoteOff(e.Channel, e.Data1)
	case KindControl:
		return gomidi.ControlChange(e.Channel, e.Data1, e.Data2)
	case KindProgram:
		return gomidi.ProgramChange(e.Channel, e.Data1)
	case KindPitchBend:
		return gomidi.Pitchbend(e.Channel, e.Bend)
	}
	return nil
}
