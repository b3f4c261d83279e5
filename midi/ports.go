package midi

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

var (
	ErrPortTimeout = errors.New("listing midi ports timed out")
	ErrNoPort      = errors.New("no matching midi output port")
)

// OutPorts lists the output ports. Some drivers hang while enumerating
// (CoreMIDI after a crash), so the call gives up after timeout.
func OutPorts(timeout time.Duration) ([]drivers.Out, error) {
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		return outs, nil
	case <-time.After(timeout):
		// Fix: sudo killall coreaudiod midiserver
		return nil, ErrPortTimeout
	}
}

// FindOutPort returns the first port whose name contains name, ignoring
// case. An empty name selects the first port.
func FindOutPort(ports []drivers.Out, name string) (drivers.Out, error) {
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.String()
	}
	i := matchPort(names, name)
	if i < 0 {
		return nil, errors.Wrapf(ErrNoPort, "%q", name)
	}
	return ports[i], nil
}

func matchPort(names []string, name string) int {
	if name == "" && len(names) > 0 {
		return 0
	}
	want := strings.ToLower(name)
	for i, n := range names {
		if name != "" && strings.Contains(strings.ToLower(n), want) {
			return i
		}
	}
	return -1
}
