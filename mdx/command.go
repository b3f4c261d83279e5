package mdx

// Opcode bytes of the MDX track stream.
const (
	OpRest       = 0x00
	OpNoteFirst  = 0x80
	OpNoteLast   = 0xDF
	OpLoopStart  = 0xE1
	OpLoopEnd    = 0xE2
	OpLFO        = 0xE3
	OpVibrato    = 0xE4
	OpTremolo    = 0xE5
	OpTone       = 0xE6
	OpTempo      = 0xE7
	OpPortamento = 0xE8
	OpGateTime   = 0xE9
	OpDetune     = 0xEA
	OpVolume     = 0xEB
	OpPan        = 0xEC
	OpOPM        = 0xED
	OpLFODelay   = 0xEE
	OpKeyOnDelay = 0xEF
	OpHardLFO    = 0xF0
	OpLFOAll     = 0xF1
)

// Command is one decoded opcode with its operands.
type Command interface {
	Op() uint8
}

type NoteOn struct {
	Pitch    uint8
	Length   uint8
	Velocity uint8
}

type Rest struct {
	Duration uint8
}

// Tempo carries the raw timer value; see TempoBPM.
type Tempo struct {
	Value uint8
}

type Volume struct {
	Level uint8
}

type Tone struct {
	ID uint8
}

type LoopStart struct{}

// LoopEnd.Count is the marker repeat count; 0 and 255 mean "forever".
type LoopEnd struct {
	Count uint8
}

type Detune struct {
	Cents int16
}

type Pan struct {
	Value uint8
}

// GateTime.Value is a percentage of the note length.
type GateTime struct {
	Value uint8
}

// LFO flag bits.
const (
	LFOFlagVibrato  = 1 << 0
	LFOFlagTremolo  = 1 << 1
	LFOFlagHardware = 1 << 2
)

type LFOKind uint8

const (
	LFOVibrato LFOKind = iota
	LFOTremolo
	LFOHardware
	LFOAll
)

func (k LFOKind) String() string {
	switch k {
	case LFOVibrato:
		return "vibrato"
	case LFOTremolo:
		return "tremolo"
	case LFOHardware:
		return "hardware"
	default:
		return "all"
	}
}

type LFOParams struct {
	Speed    uint8
	Depth    uint8
	Waveform uint8
	Enabled  bool
}

// LFO configures the kinds selected in Flags; the other params are zero.
type LFO struct {
	Flags    uint8
	Vibrato  LFOParams
	Tremolo  LFOParams
	Hardware LFOParams
}

type LFOToggle struct {
	Kind    LFOKind
	Enabled bool
}

type LFODelay struct {
	Ticks uint8
}

type KeyOnDelay struct {
	Ticks uint8
}

type Portamento struct {
	Target uint8
	Speed  uint8
}

type OPMRegister struct {
	Reg   uint8
	Value uint8
}

func (c NoteOn) Op() uint8 { return OpNoteFirst + c.Pitch }
func (Rest) Op() uint8 { return OpRest }
func (Tempo) Op() uint8 { return OpTempo }
func (Volume) Op() uint8 { return OpVolume }
func (Tone) Op() uint8 { return OpTone }
func (LoopStart) Op() uint8 { return OpLoopStart }
func (LoopEnd) Op() uint8 { return OpLoopEnd }
func (Detune) Op() uint8 { return OpDetune }
func (Pan) Op() uint8 { return OpPan }
func (GateTime) Op() uint8 { return OpGateTime }
func (LFO) Op() uint8 { return OpLFO }
func (LFODelay) Op() uint8 { return OpLFODelay }
func (KeyOnDelay) Op() uint8 { return OpKeyOnDelay }
func (Portamento) Op() uint8 { return OpPortamento }
func (OPMRegister) Op() uint8 { return OpOPM }

func (c LFOToggle) Op() uint8 {
	switch c.Kind {
	case LFOVibrato:
		return OpVibrato
	case LFOTremolo:
		return OpTremolo
	case LFOHardware:
		return OpHardLFO
	default:
		return OpLFOAll
	}
}
