package midi

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2/smf"
)

// SMF builds a format 1 file: a conductor track with the title and every
// tempo change, followed by one track per MDX track.
func (s *Sequence) SMF() (*smf.SMF, error) {
	if s.Resolution <= 0 || s.Resolution > 0x7FFF {
		return nil, errors.Errorf("resolution %d out of range", s.Resolution)
	}
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(s.Resolution)

	var conductor smf.Track
	conductor.Add(0, smf.MetaTrackSequenceName(s.Title))
	if !s.tempoAtZero() {
		conductor.Add(0, smf.MetaTempo(DefaultBPM))
	}
	var last int64
	for _, e := range s.Master {
		if e.Kind != KindTempo {
			continue
		}
		conductor.Add(uint32(e.Tick-last), smf.MetaTempo(e.BPM))
		last = e.Tick
	}
	conductor.Close(0)
	if err := sm.Add(conductor); err != nil {
		return nil, errors.Wrap(err, "adding conductor track")
	}

	for i, events := range s.Tracks {
		var tr smf.Track
		tr.Add(0, smf.MetaTrackSequenceName(fmt.Sprintf("Track %d", i)))
		last = 0
		for _, e := range events {
			if e.Kind == KindTempo {
				continue
			}
			tr.Add(uint32(e.Tick-last), e.Message())
			last = e.Tick
		}
		tr.Close(0)
		if err := sm.Add(tr); err != nil {
			return nil, errors.Wrapf(err, "adding track %d", i)
		}
	}
	return sm, nil
}

func (s *Sequence) tempoAtZero() bool {
	for _, e := range s.Master {
		if e.Tick > 0 {
			break
		}
		if e.Kind == KindTempo {
			return true
		}
	}
	return false
}

// WriteTo writes the sequence as a standard MIDI file.
func (s *Sequence) WriteTo(w io.Writer) (int64, error) {
	sm, err := s.SMF()
	if err != nil {
		return 0, err
	}
	n, err := sm.WriteTo(w)
	return n, errors.Wrap(err, "writing midi file")
}

// WriteFile writes the sequence to path.
func (s *Sequence) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := s.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "closing %s", path)
}
