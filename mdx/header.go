package mdx

import (
	"errors"
	"slices"
)

const (
	headerSize     = 7 // title, voice, reserved, track count
	pointerTable   = headerSize
	maxTitleLength = 50
	maxTrackCount  = 255
)

// Header is the decoded file header.
type Header struct {
	Title       string
	TitleOffset int

	// VoiceOffset is -1 when the stored offset was unusable and ignored.
	VoiceOffset int

	TrackCount int

	// TrackPointers has TrackCount entries; -1 marks an empty track.
	TrackPointers []int
}

// Track is the byte window a track's command stream occupies.
type Track struct {
	Index int
	Start int
	End   int // exclusive
	Empty bool
}

// headerParser carries the state of a single ParseHeader call.
type headerParser struct {
	src    *Source
	enc    Encoding
	rec    Recovery
	h      Header
	issues []Issue
}

func (p *headerParser) note(iss *Issue) {
	if iss != nil {
		p.issues = append(p.issues, *iss)
	}
}

// ParseHeader decodes the header of src. Failures that rec recovers from are
// returned as issues; anything else aborts with an *Error of kind
// InvalidHeader (or NoTrackData in strict mode).
func ParseHeader(src *Source, enc Encoding, rec Recovery) (Header, []Issue, error) {
	p := &headerParser{src: src, enc: enc, rec: rec}
	if err := p.parse(); err != nil {
		return Header{}, p.issues, err
	}
	return p.h, p.issues, nil
}

func (p *headerParser) parse() error {
	n := p.src.Len()
	if n < headerSize {
		return errorf(InvalidHeader, -1, 0, "file is %d bytes, header needs %d", n, headerSize)
	}

	// The fixed fields are in range after the length check.
	title, _ := p.src.U16(0)
	voice, _ := p.src.U16(2)
	count, _ := p.src.U8(6)
	p.h.TitleOffset = int(title)
	p.h.VoiceOffset = int(voice)

	if err := p.checkVoice(); err != nil {
		return err
	}
	if err := p.trackCount(int(count)); err != nil {
		return err
	}
	if err := p.title(); err != nil {
		return err
	}
	if err := p.pointers(); err != nil {
		return err
	}
	return p.ensureTrack()
}

func (p *headerParser) checkVoice() error {
	v := p.h.VoiceOffset
	if v >= headerSize && v < p.src.Len() {
		return nil
	}
	e := errorf(InvalidHeader, -1, 2, "voice data offset 0x%04x outside [0x%04x, 0x%04x)", v, headerSize, p.src.Len())
	iss, err := p.rec.VoiceOffset(e)
	if err != nil {
		return err
	}
	p.note(iss)
	p.h.VoiceOffset = -1
	return nil
}

// slots is the number of pointer entries that fit before the voice data, or
// before the end of the buffer when there is no usable voice offset.
func (p *headerParser) slots() int {
	limit := p.src.Len()
	if p.h.VoiceOffset >= 0 {
		limit = p.h.VoiceOffset
	}
	return max(limit-pointerTable, 0) / 2
}

func (p *headerParser) trackCount(count int) error {
	if count == 0 {
		e := errorf(InvalidHeader, -1, 6, "track count is 0")
		c, iss, err := p.rec.TrackCount(e, 1)
		if err != nil {
			return err
		}
		p.note(iss)
		count = c
	}
	if fit := p.slots(); count > fit {
		e := wrapError(InvalidHeader, OutOfBounds, -1, pointerTable,
			"%d track pointers do not fit before offset 0x%04x", count, pointerTable+2*fit)
		c, iss, err := p.rec.TrackCount(e, fit)
		if err != nil {
			return err
		}
		p.note(iss)
		count = c
	}
	p.h.TrackCount = min(count, maxTrackCount)
	return nil
}

func (p *headerParser) tableEnd() int {
	return pointerTable + 2*p.h.TrackCount
}

func (p *headerParser) title() error {
	off := p.h.TitleOffset
	var cause *Error
	switch {
	case off < headerSize || off >= p.src.Len():
		cause = errorf(OutOfBounds, -1, 0, "title offset 0x%04x outside [0x%04x, 0x%04x)", off, headerSize, p.src.Len())
	default:
		limit := min(off+maxTitleLength, p.src.Len())
		if v := p.h.VoiceOffset; v > off {
			limit = min(limit, v)
		}
		s, err := p.src.CString(off, limit, p.enc)
		if err == nil {
			p.h.Title = s
			return nil
		}
		if !errors.As(err, &cause) {
			cause = wrapError(EncodingError, err, -1, off, "title")
		}
	}

	e := wrapError(InvalidHeader, cause, -1, cause.Offset, "title")
	s, iss, err := p.rec.Title(e)
	if err != nil {
		return err
	}
	p.note(iss)
	p.h.Title = s
	return nil
}

func (p *headerParser) pointers() error {
	p.h.TrackPointers = make([]int, p.h.TrackCount)
	claimed := make(map[int]bool, p.h.TrackCount)

	var bad []int
	for i := range p.h.TrackPointers {
		at := pointerTable + 2*i
		v, _ := p.src.U16(at)
		ptr := int(v)
		if ptr < p.tableEnd() || ptr >= p.src.Len() {
			p.h.TrackPointers[i] = -1
			bad = append(bad, i)
			continue
		}
		p.h.TrackPointers[i] = ptr
		claimed[ptr] = true
	}

	// Repairs run after all valid pointers are claimed so a scan never
	// lands on another track's data.
	for _, i := range bad {
		at := pointerTable + 2*i
		v, _ := p.src.U16(at)
		e := wrapError(InvalidHeader, OutOfBounds, i, at,
			"track pointer 0x%04x outside [0x%04x, 0x%04x)", v, p.tableEnd(), p.src.Len())
		off, iss, err := p.rec.Pointer(e, p.src, p.scanFrom(), claimed)
		if err != nil {
			return err
		}
		p.note(iss)
		p.h.TrackPointers[i] = off
		if off >= 0 {
			claimed[off] = true
		}
	}
	return nil
}

func (p *headerParser) scanFrom() int {
	if p.h.VoiceOffset >= 0 {
		return p.h.VoiceOffset
	}
	return p.tableEnd()
}

func (p *headerParser) ensureTrack() error {
	for _, ptr := range p.h.TrackPointers {
		if ptr >= 0 {
			return nil
		}
	}
	e := errorf(NoTrackData, -1, p.tableEnd(), "no usable track pointer")
	off, iss, err := p.rec.NoTracks(e, p.src, p.tableEnd())
	if err != nil {
		return err
	}
	p.note(iss)
	if len(p.h.TrackPointers) == 0 {
		p.h.TrackPointers = []int{off}
		p.h.TrackCount = 1
		return nil
	}
	p.h.TrackPointers[0] = off
	return nil
}

// Tracks lays out the byte window of every track. A track ends at the
// nearest known boundary above its start: another track, the voice data,
// the title, or the end of the buffer.
func (h Header) Tracks(size int) []Track {
	bounds := make([]int, 0, len(h.TrackPointers)+2)
	for _, ptr := range h.TrackPointers {
		if ptr >= 0 {
			bounds = append(bounds, ptr)
		}
	}
	if h.VoiceOffset >= 0 {
		bounds = append(bounds, h.VoiceOffset)
	}
	bounds = append(bounds, h.TitleOffset)
	slices.Sort(bounds)

	tracks := make([]Track, len(h.TrackPointers))
	for i, ptr := range h.TrackPointers {
		t := Track{Index: i, Start: ptr, End: size}
		if ptr < 0 {
			t.Start, t.End, t.Empty = 0, 0, true
			tracks[i] = t
			continue
		}
		if j, _ := slices.BinarySearch(bounds, ptr+1); j < len(bounds) && bounds[j] < size {
			t.End = bounds[j]
		}
		tracks[i] = t
	}
	return tracks
}
