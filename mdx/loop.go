package mdx

// maxLoopTraversals caps the total number of rewinds per track, whatever
// the markers say.
const maxLoopTraversals = 1 << 16

// LoopFrame is the open loop of a track.
type LoopFrame struct {
	Track          int
	Start          int // offset right after the loop-start opcode
	IterationsSeen int

	// MaxIterations is the marker count; 0 means unlimited.
	MaxIterations int
}

// LoopController is the per-track loop state machine.
//
// The caller-supplied limit bounds every loop: 0 plays each loop body once,
// n > 0 plays it at most n times (fewer if the marker asks for fewer).
type LoopController struct {
	track      int
	limit      int
	frame      *LoopFrame
	traversals int
}

func NewLoopController(track, limit int) *LoopController {
	return &LoopController{track: track, limit: max(limit, 0)}
}

// InLoop reports whether a loop frame is open.
func (lc *LoopController) InLoop() bool { return lc.frame != nil }

// Traversals is the number of rewinds performed so far.
func (lc *LoopController) Traversals() int { return lc.traversals }

// Start opens a frame at offset. It reports whether an open frame was replaced.
func (lc *LoopController) Start(offset int) (replaced bool) {
	replaced = lc.frame != nil
	lc.frame = &LoopFrame{Track: lc.track, Start: offset}
	return replaced
}

// End handles a loop-end marker found at offset. When rewind is true the
// cursor must move to target; otherwise playback continues after the marker.
func (lc *LoopController) End(offset int, count uint8) (target int, rewind bool, err error) {
	f := lc.frame
	if f == nil {
		return 0, false, errorf(UnmatchedLoopEnd, lc.track, offset, "no open loop")
	}
	if count != 0 && count != 0xFF {
		f.MaxIterations = int(count)
	}
	f.IterationsSeen++

	if f.IterationsSeen < lc.iterationLimit(f) && lc.traversals < maxLoopTraversals {
		lc.traversals++
		return f.Start, true, nil
	}
	lc.frame = nil
	return 0, false, nil
}

func (lc *LoopController) iterationLimit(f *LoopFrame) int {
	switch {
	case lc.limit == 0:
		return 1
	case f.MaxIterations == 0:
		return lc.limit
	default:
		return min(f.MaxIterations, lc.limit)
	}
}
