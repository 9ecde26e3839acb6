package looper

import (
	"errors"
	"fmt"
	"time"

	"github.com/leandrodaf/midilooper/internal/logger"
	"github.com/leandrodaf/midilooper/internal/relay"
	"github.com/leandrodaf/midilooper/sdk/contracts"
)

// Default looper configuration.
const (
	DefaultLoopLength    = 1000 // ms
	DefaultLoopCapacity  = 512
	DefaultRelayCapacity = 32
	DefaultTickPeriod    = time.Millisecond
	DefaultClientName    = "GO MIDI Client"
)

// ErrInvalidOptions is returned when an option value cannot be used.
var ErrInvalidOptions = errors.New("invalid looper options")

// applyDefaultOptions sets default values for LooperOptions if not explicitly provided.
//
// opts ...contracts.Option: A variadic list of option functions that can modify LooperOptions.
//
// Returns:
//   - contracts.LooperOptions: A structure containing the finalized options with defaults applied.
//   - error: An error if an option holds a value the looper cannot use.
func applyDefaultOptions(opts ...contracts.Option) (contracts.LooperOptions, error) {
	options := &contracts.LooperOptions{}
	for _, opt := range opts {
		opt(options)
	}

	// Set defaults if options are not provided
	if options.Logger == nil {
		options.Logger = logger.NewZapLogger() // Default to a standard logger
	}
	if options.LogLevel == 0 {
		options.LogLevel = contracts.InfoLevel // Default log level to InfoLevel
	}
	if options.LoopLength == 0 {
		options.LoopLength = DefaultLoopLength
	}
	if options.LoopCapacity == 0 {
		options.LoopCapacity = DefaultLoopCapacity
	}
	if options.RelayCapacity == 0 {
		options.RelayCapacity = DefaultRelayCapacity
	}
	if options.TickPeriod == 0 {
		options.TickPeriod = DefaultTickPeriod
	}
	if options.CoreMIDIConfig == nil {
		options.CoreMIDIConfig = &contracts.CoreMIDIConfig{ClientName: DefaultClientName} // Default CoreMIDI config
	}

	if err := validateOptions(options); err != nil {
		return contracts.LooperOptions{}, err
	}

	options.Logger.SetLevel(options.LogLevel) // Set the logger to the specified log level
	if options.LogFilePath != "" {
		options.Logger.SetDestination(contracts.FileLog, options.LogFilePath)
	}
	return *options, nil
}

func validateOptions(options *contracts.LooperOptions) error {
	switch {
	case options.LoopCapacity < 0:
		return fmt.Errorf("%w: loop capacity %d", ErrInvalidOptions, options.LoopCapacity)
	case options.RelayCapacity < 0 || options.RelayCapacity > relay.MaxCapacity:
		return fmt.Errorf("%w: relay capacity %d", ErrInvalidOptions, options.RelayCapacity)
	case options.TickPeriod < 0:
		return fmt.Errorf("%w: tick period %s", ErrInvalidOptions, options.TickPeriod)
	case options.CapacityPolicy != contracts.DropNewest && options.CapacityPolicy != contracts.EvictOldest:
		return fmt.Errorf("%w: capacity policy %d", ErrInvalidOptions, options.CapacityPolicy)
	case options.Trace != nil && options.Trace.Buffer < 0:
		return fmt.Errorf("%w: trace buffer %d", ErrInvalidOptions, options.Trace.Buffer)
	}
	for _, c := range commandsOf(options.MIDIEventFilter) {
		if !c.Valid() {
			return fmt.Errorf("%w: filter command 0x%02X", ErrInvalidOptions, byte(c))
		}
	}
	return nil
}

func commandsOf(f *contracts.MIDIEventFilter) []contracts.MIDICommand {
	if f == nil {
		return nil
	}
	return f.Commands
}
