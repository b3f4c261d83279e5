package mdx

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"mdx2midi/debug"
)

// Options controls a conversion.
type Options struct {
	// MaxLoops bounds loop playback; 0 plays each loop body once.
	MaxLoops int

	// Forced enables best-effort recovery from malformed input.
	Forced bool

	// Verbose logs a per-track summary at info level. It never changes
	// the decoded result.
	Verbose bool

	// Workers limits how many tracks are interpreted at once; 0 uses
	// one per CPU.
	Workers int

	Encoding Encoding
}

// Song is a decoded MDX file.
type Song struct {
	Header Header
	Tracks []TrackResult

	// Issues lists every recovery, header first, then by track.
	Issues []Issue
}

// Decode parses data and interprets every track. In strict mode the first
// failure is returned; with several failing tracks the lowest track index
// wins so the result does not depend on scheduling.
func Decode(data []byte, opts Options) (*Song, error) {
	rec := Strict()
	if opts.Forced {
		rec = Forced()
	}

	src := NewSource(data)
	h, issues, err := ParseHeader(src, opts.Encoding, rec)
	if err != nil {
		return nil, err
	}
	debug.Log("header", "title=%q tracks=%d voice=0x%04x pointers=%v", h.Title, h.TrackCount, h.VoiceOffset, h.TrackPointers)

	tracks := h.Tracks(src.Len())
	results := make([]TrackResult, len(tracks))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, t := range tracks {
		g.Go(func() error {
			results[i] = Interpret(src, t, max(opts.MaxLoops, 0), rec)
			return results[i].Err
		})
	}
	// Wait reports whichever failure finished first; scan in track order instead.
	_ = g.Wait()

	song := &Song{Header: h, Tracks: results, Issues: issues}
	for _, r := range results {
		if r.Err != nil {
			return nil, r.Err
		}
		song.Issues = append(song.Issues, r.Issues...)
		if opts.Verbose {
			debug.Info("track", "track %d: 0x%04x-0x%04x, %d events, %d ticks",
				r.Track.Index, r.Track.Start, r.Track.End, len(r.Events), r.State.Elapsed)
		}
	}
	return song, nil
}

// Events returns the number of events across all tracks.
func (s *Song) Events() int {
	n := 0
	for _, t := range s.Tracks {
		n += len(t.Events)
	}
	return n
}

// Length is the length of the longest track in MDX clock ticks.
func (s *Song) Length() int {
	n := 0
	for _, t := range s.Tracks {
		n = max(n, t.State.Elapsed)
	}
	return n
}
