package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"mdx2midi/config"
	"mdx2midi/debug"
	"mdx2midi/mdx"
	"mdx2midi/midi"
)

const portTimeout = 3 * time.Second

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	defer gomidi.CloseDriver()

	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts()
	case "play":
		err = play(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "mdxplay: %v\n", err)
		gomidi.CloseDriver()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("MDX player")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                               - List MIDI output ports")
	fmt.Println("  play [-port name] [-l n] [-f] file - Play an MDX file on a MIDI port")
}

func listPorts() error {
	fmt.Println("=== MIDI Output Ports ===")
	fmt.Printf("(waiting up to %s...)\n", portTimeout)
	outs, err := midi.OutPorts(portTimeout)
	if err != nil {
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return err
	}
	for i, p := range outs {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
	return nil
}

func play(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fset := flag.NewFlagSet("play", flag.ExitOnError)
	port := fset.String("port", cfg.Player.PortName, "output port (substring match, default first port)")
	loops := fset.Int("l", cfg.MaxLoops, "maximum loop repetitions")
	forced := fset.Bool("f", cfg.Forced, "recover from malformed input")
	verbose := fset.Bool("v", cfg.Verbose, "verbose logging")
	fset.Parse(args)
	if fset.NArg() != 1 {
		fset.Usage()
		return errors.New("play needs one file")
	}
	debug.Enable(os.Stderr, *verbose)

	data, err := os.ReadFile(fset.Arg(0))
	if err != nil {
		return errors.WithStack(err)
	}
	song, err := mdx.Decode(data, mdx.Options{
		MaxLoops: *loops,
		Forced:   *forced,
		Verbose:  *verbose,
		Workers:  cfg.Workers,
		Encoding: mdx.ParseEncoding(cfg.Encoding),
	})
	if err != nil {
		return err
	}
	for _, iss := range song.Issues {
		debug.Warn("recover", "%s", iss)
	}
	seq := midi.NewEmitter(cfg.Resolution).Song(song)

	outs, err := midi.OutPorts(portTimeout)
	if err != nil {
		return err
	}
	out, err := midi.FindOutPort(outs, *port)
	if err != nil {
		return err
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		return errors.Wrapf(err, "opening %s", out.String())
	}

	fmt.Printf("%s  (%d tracks, %.1fs) on %s\n", song.Header.Title, len(seq.Tracks), seq.Seconds(), out.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err = midi.NewPlayer(send, seq.Tempo).Play(ctx, seq.Master)
	if errors.Is(err, context.Canceled) {
		fmt.Println("stopped")
		return nil
	}
	return err
}
