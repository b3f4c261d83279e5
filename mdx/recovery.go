package mdx

import (
	"fmt"

	"mdx2midi/debug"
)

const (
	// scanWindow bounds the pointer-repair search, counted from its start.
	scanWindow = 0x1000

	// scanLookahead is how many commands must decode cleanly at a candidate offset.
	scanLookahead = 8

	// UnknownTitle replaces a title that cannot be read.
	UnknownTitle = "Unknown"
)

// Recovery decides what happens at each point where strict decoding fails.
// Every method either returns the error (decoding stops) or recovers and
// describes what it did in an Issue.
type Recovery interface {
	// TrackCount is called with a count that fails validation and the
	// nearest usable count.
	TrackCount(err *Error, clamped int) (int, *Issue, error)

	Title(err *Error) (string, *Issue, error)

	// VoiceOffset is called when the voice-data offset is unusable.
	VoiceOffset(err *Error) (*Issue, error)

	// Pointer is called for a track pointer that is out of bounds. It
	// returns a replacement offset or -1 for an empty track.
	Pointer(err *Error, src *Source, from int, claimed map[int]bool) (int, *Issue, error)

	// NoTracks is called when the header yields no usable track at all. It
	// returns the offset of the first track, or -1 to leave it empty.
	NoTracks(err *Error, src *Source, from int) (int, *Issue, error)

	// Command is called for an unknown opcode or an unmatched loop end.
	// On recovery the interpreter skips the command and continues.
	Command(err *Error) (*Issue, error)

	// Truncated is called when a track ends in the middle of an operand.
	// On recovery the track is abandoned and its events so far are kept.
	Truncated(err *Error) (*Issue, error)

	// Notice is called for input that is tolerated in both modes, such as a
	// zero tempo value. Only the forced policy records it.
	Notice(kind Kind, track, offset int, action string) *Issue
}

// Strict returns the policy that fails on every error.
func Strict() Recovery { return strict{} }

// Forced returns the best-effort recovery policy.
func Forced() Recovery { return forced{} }

type strict struct{}

func (strict) TrackCount(err *Error, _ int) (int, *Issue, error) { return 0, nil, err }
func (strict) Title(err *Error) (string, *Issue, error)          { return "", nil, err }
func (strict) VoiceOffset(err *Error) (*Issue, error)            { return nil, err }
func (strict) Command(err *Error) (*Issue, error)                { return nil, err }
func (strict) Truncated(err *Error) (*Issue, error)              { return nil, err }

func (strict) Notice(kind Kind, track, offset int, action string) *Issue {
	debug.Log("decode", "track %d @0x%04x: %s: %s", track, offset, kind, action)
	return nil
}

func (strict) Pointer(err *Error, _ *Source, _ int, _ map[int]bool) (int, *Issue, error) {
	return -1, nil, err
}

func (strict) NoTracks(err *Error, _ *Source, _ int) (int, *Issue, error) {
	return -1, nil, err
}

type forced struct{}

func (forced) TrackCount(err *Error, clamped int) (int, *Issue, error) {
	debug.Log("recover", "%v: using %d tracks", err, clamped)
	return clamped, issueFrom(err, fmt.Sprintf("track count clamped to %d", clamped)), nil
}

func (forced) Title(err *Error) (string, *Issue, error) {
	debug.Log("recover", "%v: title replaced", err)
	return UnknownTitle, issueFrom(err, fmt.Sprintf("title replaced with %q", UnknownTitle)), nil
}

func (forced) VoiceOffset(err *Error) (*Issue, error) {
	debug.Log("recover", "%v: voice data offset ignored", err)
	return issueFrom(err, "voice data offset ignored"), nil
}

func (forced) Pointer(err *Error, src *Source, from int, claimed map[int]bool) (int, *Issue, error) {
	off, ok := ScanForTrack(src, from, scanWindow, claimed)
	if !ok {
		debug.Log("recover", "%v: no track data found from 0x%04x", err, from)
		return -1, issueFrom(err, "track left empty"), nil
	}
	debug.Log("recover", "%v: pointer repaired to 0x%04x", err, off)
	return off, issueFrom(err, fmt.Sprintf("pointer repaired to 0x%04x", off)), nil
}

func (forced) NoTracks(err *Error, src *Source, from int) (int, *Issue, error) {
	off, ok := ScanForTrack(src, from, 0, nil)
	if !ok {
		debug.Log("recover", "%v: no track data anywhere, converting an empty song", err)
		return -1, issueFrom(err, "track left empty"), nil
	}
	debug.Log("recover", "%v: track data found at 0x%04x", err, off)
	return off, issueFrom(err, fmt.Sprintf("track data found by scan at 0x%04x", off)), nil
}

func (forced) Notice(kind Kind, track, offset int, action string) *Issue {
	return &Issue{Kind: kind, Track: track, Offset: offset, Action: action}
}

func (forced) Command(err *Error) (*Issue, error) {
	debug.Log("recover", "%v: skipped", err)
	return issueFrom(err, "skipped"), nil
}

func (forced) Truncated(err *Error) (*Issue, error) {
	debug.Log("recover", "%v: track abandoned", err)
	return issueFrom(err, "track abandoned"), nil
}

// ScanForTrack looks for the first offset in [from, from+window) that is not
// claimed and where a plausible command stream starts. A window of 0 scans
// to the end of the buffer.
func ScanForTrack(src *Source, from, window int, claimed map[int]bool) (int, bool) {
	end := src.Len()
	if window > 0 {
		end = min(end, from+window)
	}
	for off := max(from, 0); off < end; off++ {
		if claimed[off] {
			continue
		}
		if plausibleTrack(src, off) {
			return off, true
		}
	}
	return -1, false
}

// plausibleTrack decodes scanLookahead commands at off. Zero-length notes and
// rests are rejected since runs of zero bytes would otherwise match.
func plausibleTrack(src *Source, off int) bool {
	c := src.Cursor(-1, off, src.Len())
	notes := 0
	for i := 0; i < scanLookahead; i++ {
		cmd, err := DecodeCommand(c)
		if err != nil {
			return false
		}
		switch v := cmd.(type) {
		case NoteOn:
			if v.Length == 0 {
				return false
			}
			notes++
		case Rest:
			if v.Duration == 0 {
				return false
			}
		}
	}
	return notes > 0
}
