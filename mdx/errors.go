package mdx

import (
	"fmt"
	"strings"
)

// Kind classifies decoding failures. A Kind is itself an error so it can be
// used as an errors.Is target:
//
//	if errors.Is(err, mdx.UnknownOpcode) { ... }
type Kind int

const (
	OutOfBounds Kind = iota + 1
	InvalidHeader
	UnknownOpcode
	UnmatchedLoopEnd
	EncodingError
	IncompleteTrackData
	NoTrackData
)

var kindNames = map[Kind]string{
	OutOfBounds:         "out of bounds",
	InvalidHeader:       "invalid header",
	UnknownOpcode:       "unknown opcode",
	UnmatchedLoopEnd:    "unmatched loop end",
	EncodingError:       "encoding error",
	IncompleteTrackData: "incomplete track data",
	NoTrackData:         "no track data",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) Error() string { return k.String() }

// Error is a decoding failure with enough context to locate it in the file.
type Error struct {
	Kind Kind

	// Track is the track index, or -1 for header-level failures.
	Track int

	// Offset is the byte offset inside the MDX buffer.
	Offset int

	Message string

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Track >= 0 {
		fmt.Fprintf(&b, "track %d: ", e.Track)
	}
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	fmt.Fprintf(&b, " (offset=0x%04x)", e.Offset)
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is this error's Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func errorf(kind Kind, track, offset int, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Track:   track,
		Offset:  offset,
		Message: fmt.Sprintf(format, args...),
	}
}

func wrapError(kind Kind, cause error, track, offset int, format string, args ...any) *Error {
	e := errorf(kind, track, offset, format, args...)
	e.Err = cause
	return e
}

// Issue records a recovery performed in forced mode. Kind is 0 for input
// that was tolerated without an error, such as a zero tempo.
type Issue struct {
	Kind   Kind
	Track  int
	Offset int
	Action string
}

func (i Issue) String() string {
	where := "header"
	if i.Track >= 0 {
		where = fmt.Sprintf("track %d", i.Track)
	}
	if i.Kind == 0 {
		return fmt.Sprintf("%s @0x%04x: %s", where, i.Offset, i.Action)
	}
	return fmt.Sprintf("%s @0x%04x: %s: %s", where, i.Offset, i.Kind, i.Action)
}

func issueFrom(err *Error, action string) *Issue {
	return &Issue{
		Kind:   err.Kind,
		Track:  err.Track,
		Offset: err.Offset,
		Action: action,
	}
}
