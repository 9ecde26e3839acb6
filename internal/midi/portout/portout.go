// Package portout writes looper output to a MIDI port of a registered gomidi driver.
//
// A driver must be registered by the program, for example with
//
//	import _ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
package portout

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/leandrodaf/midilooper/sdk/contracts"
)

// ErrNoOutPort is returned when no output port matches the requested name.
var ErrNoOutPort = errors.New("no matching MIDI output port")

// outPorts is replaced in tests.
var outPorts = func() []drivers.Out { return midi.GetOutPorts() }

// Names returns the names of the available output ports.
func Names() []string {
	ports := outPorts()
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.String()
	}
	return names
}

// Port sends encoded messages to a gomidi output port.
type Port struct {
	logger contracts.Logger
	out    drivers.Out
	mu     sync.Mutex
}

// Open finds the first output port whose name contains name (case-insensitive)
// and opens it.
func Open(name string, logger contracts.Logger) (*Port, error) {
	want := strings.ToLower(name)
	for _, out := range outPorts() {
		if !strings.Contains(strings.ToLower(out.String()), want) {
			continue
		}
		if err := out.Open(); err != nil {
			return nil, fmt.Errorf("open MIDI output %q: %w", out.String(), err)
		}
		logger.Info("MIDI output opened", logger.Field().String("port", out.String()))
		return &Port{logger: logger, out: out}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoOutPort, name)
}

// Write sends one encoded MIDI message.
func (p *Port) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.out.Send(data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Close closes the output port.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger.Info("MIDI output closed", p.logger.Field().String("port", p.out.String()))
	return p.out.Close()
}
