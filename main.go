package main

import (
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kennygrant/sanitize"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"mdx2midi/config"
	"mdx2midi/debug"
	"mdx2midi/mdx"
	"mdx2midi/midi"
	"mdx2midi/theme"
	"mdx2midi/tui"
)

var errNotFound = errors.New("input file not found")

// Exit codes.
const (
	exitOK       = 0
	exitNotFound = 1
	exitFormat   = 2
	exitIO       = 3
	exitOther    = 4
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type flags struct {
	out         string
	loops       int
	verbose     bool
	forced      bool
	resolution  int
	workers     int
	configPath  string
	interactive bool
	palette     string
}

func run(args []string, stdout, stderr io.Writer) int {
	fset := flag.NewFlagSet("mdx2midi", flag.ContinueOnError)
	fset.SetOutput(stderr)
	var f flags
	fset.StringVar(&f.out, "o", "", "output file or directory (default: next to the input)")
	fset.IntVar(&f.loops, "l", 2, "maximum loop repetitions (0 plays each loop once)")
	fset.BoolVar(&f.verbose, "v", false, "verbose logging")
	fset.BoolVar(&f.forced, "f", false, "recover from malformed input instead of failing")
	fset.IntVar(&f.resolution, "r", midi.DefaultResolution, "ticks per quarter note")
	fset.IntVar(&f.workers, "j", 0, "tracks decoded in parallel (0 = one per CPU)")
	fset.StringVar(&f.configPath, "config", "", "config file (default ~/.config/mdx2midi/config.json)")
	fset.BoolVar(&f.interactive, "i", false, "show the report interactively")
	fset.StringVar(&f.palette, "palette", "", "GIMP palette for the report")
	fset.Usage = func() {
		fmt.Fprintln(stderr, "usage: mdx2midi [flags] file.mdx")
		fset.PrintDefaults()
	}

	if err := fset.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitOther
	}
	if fset.NArg() != 1 {
		fset.Usage()
		return exitOther
	}

	cfg, err := loadConfig(f.configPath)
	if err == nil {
		applyFlags(fset, &f, cfg)
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(stderr, "mdx2midi: %v\n", err)
		return exitOther
	}
	debug.Enable(stderr, cfg.Verbose)

	err = convert(fset.Arg(0), f.out, cfg, f.interactive, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "mdx2midi: %v\n", err)
		if cfg.Verbose {
			fmt.Fprintf(stderr, "%+v\n", err)
		}
	}
	return exitCode(err)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

// applyFlags copies the flags given on the command line over the config.
func applyFlags(fset *flag.FlagSet, f *flags, cfg *config.Config) {
	fset.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "l":
			cfg.MaxLoops = f.loops
		case "v":
			cfg.Verbose = f.verbose
		case "f":
			cfg.Forced = f.forced
		case "r":
			cfg.Resolution = f.resolution
		case "j":
			cfg.Workers = f.workers
		case "palette":
			cfg.Palette = f.palette
		}
	})
}

func convert(input, out string, cfg *config.Config, interactive bool, stdout io.Writer) error {
	data, err := os.ReadFile(input)
	if errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(errNotFound, input)
	}
	if err != nil {
		return errors.WithStack(err)
	}

	song, err := mdx.Decode(data, mdx.Options{
		MaxLoops: cfg.MaxLoops,
		Forced:   cfg.Forced,
		Verbose:  cfg.Verbose,
		Workers:  cfg.Workers,
		Encoding: mdx.ParseEncoding(cfg.Encoding),
	})
	if err != nil {
		return errors.Wrapf(err, "decoding %s", input)
	}
	for _, iss := range song.Issues {
		debug.Log("recover", "%s", iss)
	}

	seq := midi.NewEmitter(cfg.Resolution).Song(song)
	if out == "" {
		out = cfg.OutputDir
	}
	path := outputPath(out, input, song.Header.Title)
	if err := seq.WriteFile(path); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	debug.Info("convert", "%s: %d tracks, %d events, %.1fs", path, len(seq.Tracks), len(seq.Master), seq.Seconds())

	th := theme.New(loadPalette(cfg.Palette))
	report := tui.NewReport(input, path, song, seq)
	if interactive && isTerminal(stdout) {
		_, err := tea.NewProgram(tui.NewModel(report, th)).Run()
		return errors.Wrap(err, "report")
	}
	_, err = io.WriteString(stdout, tui.Render(report, th))
	return errors.WithStack(err)
}

func loadPalette(path string) *theme.Palette {
	if path == "" {
		return theme.Plasma()
	}
	p, err := theme.LoadGPL(path)
	if err != nil {
		debug.Warn("theme", "%v; using the built-in palette", err)
		return theme.Plasma()
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// outputPath picks the destination. An empty out writes next to the input;
// a directory gets a file named after the song title.
func outputPath(out, input, title string) string {
	switch {
	case out == "":
		return filepath.Join(filepath.Dir(input), stem(input)+".mid")
	case isDir(out):
		name := strings.Trim(sanitize.BaseName(title), "-_. ")
		if name == "" {
			name = stem(input)
		}
		return filepath.Join(out, name+".mid")
	}
	return out
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func exitCode(err error) int {
	var mdxErr *mdx.Error
	var pathErr *fs.PathError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errNotFound):
		return exitNotFound
	case errors.As(err, &mdxErr):
		return exitFormat
	case errors.As(err, &pathErr):
		return exitIO
	}
	return exitOther
}
