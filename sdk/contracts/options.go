package contracts

import "time"

// CapacityPolicy selects what the loop buffer does when a new timestamp arrives while it is full.
type CapacityPolicy int

const (
	// DropNewest refuses the new event and leaves the recorded loop untouched.
	DropNewest CapacityPolicy = iota
	// EvictOldest removes the entry written longest ago and stores the new event.
	EvictOldest
)

// String returns the configuration name of the policy.
func (p CapacityPolicy) String() string {
	switch p {
	case DropNewest:
		return "drop-newest"
	case EvictOldest:
		return "evict-oldest"
	}
	return "unknown"
}

// MIDIEventFilter allows users to specify which MIDI commands to record and echo.
type MIDIEventFilter struct {
	Commands []MIDICommand // List of MIDI commands to filter.
}

// Allows reports whether command passes the filter. An empty filter allows everything.
func (f *MIDIEventFilter) Allows(command MIDICommand) bool {
	if f == nil || len(f.Commands) == 0 {
		return true
	}
	for _, allowed := range f.Commands {
		if command == allowed {
			return true
		}
	}
	return false
}

// CoreMIDIConfig holds configuration for CoreMIDI.
type CoreMIDIConfig struct {
	ClientName string // Name of the MIDI client.
}

// TraceConfig controls the best-effort debug trace channel.
type TraceConfig struct {
	Enabled  bool   // Enables trace lines.
	Buffer   int    // Number of pending lines before new ones are dropped.
	TickMark uint32 // Emit a "tick" line every TickMark positions (0 disables it).
}

// LooperOptions defines the configuration options for the looper.
type LooperOptions struct {
	Logger          Logger           // Logger for logging events and errors.
	LogLevel        LogLevel         // Level of logging to use.
	LogFilePath     string           // File path for logging if file logging is enabled.
	LoopLength      uint32           // Loop length in milliseconds.
	LoopCapacity    int              // Maximum number of distinct timestamps stored in the loop.
	RelayCapacity   int              // Maximum number of events waiting for output.
	CapacityPolicy  CapacityPolicy   // Behaviour of a full loop buffer.
	TickPeriod      time.Duration    // Period of one clock tick.
	MIDIEventFilter *MIDIEventFilter // Optional filter for MIDI events to record.
	CoreMIDIConfig  *CoreMIDIConfig  // Configuration specific to CoreMIDI.
	Trace           *TraceConfig     // Debug trace channel configuration.
}

// Option is a function that modifies LooperOptions.
type Option func(*LooperOptions)

// WithLogger sets the logger for the looper.
func WithLogger(l Logger) Option {
	return func(opts *LooperOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level for the looper.
func WithLogLevel(level LogLevel) Option {
	return func(opts *LooperOptions) {
		opts.LogLevel = level
	}
}

// WithLogFile directs log output to the given file.
func WithLogFile(path string) Option {
	return func(opts *LooperOptions) {
		opts.LogFilePath = path
	}
}

// WithLoopLength sets the loop length in milliseconds.
func WithLoopLength(ms uint32) Option {
	return func(opts *LooperOptions) {
		opts.LoopLength = ms
	}
}

// WithLoopCapacity sets how many distinct timestamps the loop can hold.
func WithLoopCapacity(n int) Option {
	return func(opts *LooperOptions) {
		opts.LoopCapacity = n
	}
}

// WithRelayCapacity sets how many events may wait for output.
func WithRelayCapacity(n int) Option {
	return func(opts *LooperOptions) {
		opts.RelayCapacity = n
	}
}

// WithCapacityPolicy sets the behaviour of a full loop buffer.
func WithCapacityPolicy(p CapacityPolicy) Option {
	return func(opts *LooperOptions) {
		opts.CapacityPolicy = p
	}
}

// WithTickPeriod sets the duration of one clock tick.
func WithTickPeriod(d time.Duration) Option {
	return func(opts *LooperOptions) {
		opts.TickPeriod = d
	}
}

// WithMIDIEventFilter sets the MIDI event filter for the looper.
func WithMIDIEventFilter(filter MIDIEventFilter) Option {
	return func(opts *LooperOptions) {
		opts.MIDIEventFilter = &filter
	}
}

// WithCoreMIDIConfig sets the CoreMIDI configuration for the system input.
func WithCoreMIDIConfig(config CoreMIDIConfig) Option {
	return func(opts *LooperOptions) {
		opts.CoreMIDIConfig = &config
	}
}

// WithTrace enables the debug trace channel.
func WithTrace(config TraceConfig) Option {
	return func(opts *LooperOptions) {
		opts.Trace = &config
	}
}
