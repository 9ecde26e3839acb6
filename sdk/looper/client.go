package looper

import (
	"io"

	"github.com/leandrodaf/midilooper/internal/engine"
	"github.com/leandrodaf/midilooper/sdk/contracts"
)

// NewLooper creates a new looper with the specified options.
// It applies default options and builds the engine; the looper starts ticking on Start.
//
// out io.Writer: destination of the encoded MIDI output. A nil writer discards output.
// opts ...contracts.Option: A variadic list of option functions to customize the looper configuration.
//
// Returns:
//   - contracts.Looper: An instance of the looper.
//   - error: An error, if any occurred during the creation of the looper.
func NewLooper(out io.Writer, opts ...contracts.Option) (contracts.Looper, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	e, err := engine.New(options, out)
	if err != nil {
		return nil, err
	}

	return e, nil
}

// Connect starts capture on input and feeds every received byte chunk to l.
func Connect(input contracts.ClientMIDI, l contracts.Looper) {
	input.StartCapture(l.Feed)
}
