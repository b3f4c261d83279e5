package mdx

// ClocksPerQuarter is the MDX clock resolution used for note lengths.
const ClocksPerQuarter = 48

const (
	DefaultTempoBPM  = 120.0
	DefaultVolume    = 100
	DefaultGateRatio = 0.8
	MinGateRatio     = 0.1
)

type PanPosition uint8

const (
	PanCenter PanPosition = iota
	PanLeft
	PanRight
	PanCustom
)

func (p PanPosition) String() string {
	switch p {
	case PanLeft:
		return "left"
	case PanRight:
		return "right"
	case PanCustom:
		return "custom"
	default:
		return "center"
	}
}

type PanState struct {
	Position PanPosition
	Value    uint8 // MIDI CC10 value
}

type LFOState struct {
	Vibrato  LFOParams
	Tremolo  LFOParams
	Hardware LFOParams
}

// Active reports whether any LFO kind is enabled.
func (l LFOState) Active() bool {
	return l.Vibrato.Enabled || l.Tremolo.Enabled || l.Hardware.Enabled
}

// Depth is the modulation depth of the enabled kinds, clamped to 0..127.
func (l LFOState) Depth() uint8 {
	var d uint8
	for _, p := range []LFOParams{l.Vibrato, l.Tremolo, l.Hardware} {
		if p.Enabled && p.Depth > d {
			d = p.Depth
		}
	}
	return min(d, 127)
}

type PortamentoState struct {
	Enabled bool
	Target  uint8
	Speed   uint8
}

// PlaybackState is the per-track synthesizer state. Handlers take it by
// value and return the updated copy.
type PlaybackState struct {
	TempoBPM   float64
	Volume     uint8
	Pan        PanState
	Detune     int
	GateRatio  float64
	Tone       uint8
	LFO        LFOState
	LFODelay   int
	KeyOnDelay int
	Portamento PortamentoState

	// OPM holds raw register writes. Handlers copy it before writing.
	OPM map[uint8]uint8

	// Elapsed is the track clock in MDX ticks.
	Elapsed int

	LastNote uint8
	Sounded  bool // a note has been played; LastNote is meaningful
}

func NewPlaybackState() PlaybackState {
	return PlaybackState{
		TempoBPM:  DefaultTempoBPM,
		Volume:    DefaultVolume,
		Pan:       PanState{Position: PanCenter, Value: 64},
		GateRatio: DefaultGateRatio,
	}
}

type EventKind uint8

const (
	EventNote EventKind = iota + 1
	EventTempo
	EventVolume
	EventTone
	EventDetune
	EventPan
	EventModulation
	EventPitchSweep
	EventTimbre
)

var eventKindNames = [...]string{
	EventNote:       "note",
	EventTempo:      "tempo",
	EventVolume:     "volume",
	EventTone:       "tone",
	EventDetune:     "detune",
	EventPan:        "pan",
	EventModulation: "modulation",
	EventPitchSweep: "sweep",
	EventTimbre:     "timbre",
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) && eventKindNames[k] != "" {
		return eventKindNames[k]
	}
	return "unknown"
}

// Event is one entry on a track's abstract timeline, in MDX ticks.
//
// Value holds the kind-specific operand: volume level, tone id, detune
// cents, pan CC value, modulation depth, timbre value or sweep target cents.
type Event struct {
	Tick int
	Kind EventKind

	Note     uint8
	Velocity uint8

	// Length is the sounding length of a note or the duration of a sweep.
	Length int

	Value int
	From  int // sweep start cents

	BPM float64
}
