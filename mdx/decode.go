package mdx

// decodeFunc reads the operands that follow opcode op.
type decodeFunc func(op uint8, c *Cursor) (Command, error)

// decoders is indexed by opcode byte; nil entries are unknown opcodes.
var decoders [256]decodeFunc

func init() {
	decoders[OpRest] = decodeRest
	for op := OpNoteFirst; op <= OpNoteLast; op++ {
		decoders[op] = decodeNote
	}
	decoders[OpLoopStart] = func(uint8, *Cursor) (Command, error) { return LoopStart{}, nil }
	decoders[OpLoopEnd] = byteOperand("loop count", func(v uint8) Command { return LoopEnd{Count: v} })
	decoders[OpLFO] = decodeLFO
	decoders[OpVibrato] = decodeToggle(LFOVibrato)
	decoders[OpTremolo] = decodeToggle(LFOTremolo)
	decoders[OpHardLFO] = decodeToggle(LFOHardware)
	decoders[OpLFOAll] = decodeToggle(LFOAll)
	decoders[OpTone] = byteOperand("tone", func(v uint8) Command { return Tone{ID: v} })
	decoders[OpTempo] = byteOperand("tempo value", func(v uint8) Command { return Tempo{Value: v} })
	decoders[OpPortamento] = decodePortamento
	decoders[OpGateTime] = byteOperand("gate time", func(v uint8) Command { return GateTime{Value: v} })
	decoders[OpDetune] = decodeDetune
	decoders[OpVolume] = byteOperand("volume", func(v uint8) Command { return Volume{Level: v} })
	decoders[OpPan] = byteOperand("pan", func(v uint8) Command { return Pan{Value: v} })
	decoders[OpOPM] = decodeOPM
	decoders[OpLFODelay] = byteOperand("lfo delay", func(v uint8) Command { return LFODelay{Ticks: v} })
	decoders[OpKeyOnDelay] = byteOperand("key-on delay", func(v uint8) Command { return KeyOnDelay{Ticks: v} })
}

// DecodeCommand reads one opcode and its operands at the cursor.
func DecodeCommand(c *Cursor) (Command, error) {
	start := c.Pos()
	op, err := c.ReadU8("opcode")
	if err != nil {
		return nil, err
	}
	dec := decoders[op]
	if dec == nil {
		return nil, errorf(UnknownOpcode, c.Track, start, "0x%02x", op)
	}
	return dec(op, c)
}

func byteOperand(what string, build func(uint8) Command) decodeFunc {
	return func(_ uint8, c *Cursor) (Command, error) {
		v, err := c.ReadU8(what)
		if err != nil {
			return nil, err
		}
		return build(v), nil
	}
}

func decodeRest(_ uint8, c *Cursor) (Command, error) {
	d, err := c.ReadU8("rest duration")
	if err != nil {
		return nil, err
	}
	return Rest{Duration: d}, nil
}

func decodeNote(op uint8, c *Cursor) (Command, error) {
	length, err := c.ReadU8("note length")
	if err != nil {
		return nil, err
	}
	velocity, err := c.ReadU8("note velocity")
	if err != nil {
		return nil, err
	}
	return NoteOn{Pitch: op - OpNoteFirst, Length: length, Velocity: velocity}, nil
}

func decodeToggle(kind LFOKind) decodeFunc {
	return func(_ uint8, c *Cursor) (Command, error) {
		v, err := c.ReadU8("lfo switch")
		if err != nil {
			return nil, err
		}
		return LFOToggle{Kind: kind, Enabled: v != 0}, nil
	}
}

func decodeLFO(_ uint8, c *Cursor) (Command, error) {
	flags, err := c.ReadU8("lfo flags")
	if err != nil {
		return nil, err
	}
	cmd := LFO{Flags: flags}
	read := func(p *LFOParams, n int, what string) error {
		fields := []*uint8{&p.Speed, &p.Depth, &p.Waveform}
		for i := 0; i < n; i++ {
			v, err := c.ReadU8(what)
			if err != nil {
				return err
			}
			*fields[i] = v
		}
		p.Enabled = true
		return nil
	}
	if flags&LFOFlagVibrato != 0 {
		if err := read(&cmd.Vibrato, 2, "vibrato params"); err != nil {
			return nil, err
		}
	}
	if flags&LFOFlagTremolo != 0 {
		if err := read(&cmd.Tremolo, 2, "tremolo params"); err != nil {
			return nil, err
		}
	}
	if flags&LFOFlagHardware != 0 {
		if err := read(&cmd.Hardware, 3, "hardware lfo params"); err != nil {
			return nil, err
		}
	}
	return cmd, nil
}

func decodePortamento(_ uint8, c *Cursor) (Command, error) {
	target, err := c.ReadU8("portamento target")
	if err != nil {
		return nil, err
	}
	speed, err := c.ReadU8("portamento speed")
	if err != nil {
		return nil, err
	}
	return Portamento{Target: target, Speed: speed}, nil
}

func decodeDetune(_ uint8, c *Cursor) (Command, error) {
	v, err := c.ReadI16("detune")
	if err != nil {
		return nil, err
	}
	return Detune{Cents: v}, nil
}

func decodeOPM(_ uint8, c *Cursor) (Command, error) {
	reg, err := c.ReadU8("opm register")
	if err != nil {
		return nil, err
	}
	v, err := c.ReadU8("opm value")
	if err != nil {
		return nil, err
	}
	return OPMRegister{Reg: reg, Value: v}, nil
}
