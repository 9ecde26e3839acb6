package looper

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/leandrodaf/midilooper/internal/midi/mididarwin"
	"github.com/leandrodaf/midilooper/internal/midi/midiwindows"
	"github.com/leandrodaf/midilooper/sdk/contracts"
)

// ErrUnsupportedOS is returned when the operating system has no system MIDI input.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// clientInitializers maps OS names to corresponding MIDI input initializers.
var clientInitializers = map[string]func(*contracts.LooperOptions) (contracts.ClientMIDI, error){
	"darwin":  mididarwin.NewMIDIClient,  // macOS (Darwin) MIDI client initializer.
	"windows": midiwindows.NewMIDIClient, // Windows MIDI client initializer.
}

// NewSystemInput creates the operating system's MIDI input client with the specified options.
// It supports macOS (Darwin) and Windows, returning ErrUnsupportedOS if the OS is unsupported.
func NewSystemInput(opts ...contracts.Option) (contracts.ClientMIDI, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}
	return newClient(runtime.GOOS, &options)
}

func newClient(goos string, opts *contracts.LooperOptions) (contracts.ClientMIDI, error) {
	if initializer, exists := clientInitializers[goos]; exists {
		return initializer(opts)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedOS, goos)
}
