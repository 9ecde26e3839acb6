// Package config loads the looper host configuration from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leandrodaf/midilooper/sdk/contracts"
)

// Config is the looper host configuration.
type Config struct {
	Loop   Loop     `yaml:"loop"`
	Log    Log      `yaml:"log"`
	Input  Input    `yaml:"input"`
	Output Output   `yaml:"output"`
	Filter []string `yaml:"filter,omitempty"`
	Trace  Trace    `yaml:"trace"`
}

// Loop configures the clock, the loop buffer and the relay.
type Loop struct {
	// LengthMs is the loop length in milliseconds.
	LengthMs uint32 `yaml:"length_ms"`

	// Capacity is the number of distinct timestamps the loop can hold.
	Capacity int `yaml:"capacity"`

	// RelayCapacity is the number of events that may wait for output.
	RelayCapacity int `yaml:"relay_capacity"`

	// Policy is "drop-newest" or "evict-oldest".
	Policy string `yaml:"policy"`

	// TickPeriod is the duration of one clock tick, e.g. "1ms".
	TickPeriod time.Duration `yaml:"tick_period"`
}

// Log configures the logger.
type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// Input selects where live MIDI comes from. A serial device takes precedence
// over the system MIDI device.
type Input struct {
	Serial string `yaml:"serial,omitempty"`
	Baud   int    `yaml:"baud,omitempty"`
	Device int    `yaml:"device"`
}

// Output selects where the looper writes MIDI. An empty port name writes to
// the serial input device when there is one.
type Output struct {
	Port string `yaml:"port,omitempty"`
}

// Trace configures the debug trace lines.
type Trace struct {
	Enabled  bool   `yaml:"enabled"`
	Buffer   int    `yaml:"buffer,omitempty"`
	TickMark uint32 `yaml:"tick_mark,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Loop: Loop{
			LengthMs:      1000,
			Capacity:      512,
			RelayCapacity: 32,
			Policy:        contracts.DropNewest.String(),
			TickPeriod:    time.Millisecond,
		},
		Log:   Log{Level: "info"},
		Input: Input{Baud: 31250},
		Trace: Trace{TickMark: 1000},
	}
}

// Load reads the YAML file at path over the defaults. A missing file yields
// the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that need parsing.
func (c *Config) Validate() error {
	if _, err := parsePolicy(c.Loop.Policy); err != nil {
		return err
	}
	if _, ok := contracts.ParseLogLevel(c.Log.Level); !ok {
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	if _, err := parseCommands(c.Filter); err != nil {
		return err
	}
	return nil
}

// Options converts the configuration into looper options.
func (c *Config) Options() ([]contracts.Option, error) {
	policy, err := parsePolicy(c.Loop.Policy)
	if err != nil {
		return nil, err
	}
	level, ok := contracts.ParseLogLevel(c.Log.Level)
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	commands, err := parseCommands(c.Filter)
	if err != nil {
		return nil, err
	}

	opts := []contracts.Option{
		contracts.WithLogLevel(level),
		contracts.WithLoopLength(c.Loop.LengthMs),
		contracts.WithLoopCapacity(c.Loop.Capacity),
		contracts.WithRelayCapacity(c.Loop.RelayCapacity),
		contracts.WithCapacityPolicy(policy),
		contracts.WithTickPeriod(c.Loop.TickPeriod),
	}
	if c.Log.File != "" {
		opts = append(opts, contracts.WithLogFile(c.Log.File))
	}
	if len(commands) > 0 {
		opts = append(opts, contracts.WithMIDIEventFilter(contracts.MIDIEventFilter{Commands: commands}))
	}
	if c.Trace.Enabled {
		opts = append(opts, contracts.WithTrace(contracts.TraceConfig{
			Enabled:  true,
			Buffer:   c.Trace.Buffer,
			TickMark: c.Trace.TickMark,
		}))
	}
	return opts, nil
}

func parsePolicy(s string) (contracts.CapacityPolicy, error) {
	switch s {
	case contracts.DropNewest.String(), "":
		return contracts.DropNewest, nil
	case contracts.EvictOldest.String():
		return contracts.EvictOldest, nil
	}
	return 0, fmt.Errorf("unknown capacity policy %q", s)
}

var commandNames = map[string]contracts.MIDICommand{
	"note-off":           contracts.NoteOff,
	"note-on":            contracts.NoteOn,
	"poly-aftertouch":    contracts.PolyAftertouch,
	"control-change":     contracts.ControlChange,
	"program-change":     contracts.ProgramChange,
	"channel-aftertouch": contracts.ChannelAftertouch,
	"pitch-bend":         contracts.PitchBend,
}

func parseCommands(names []string) ([]contracts.MIDICommand, error) {
	commands := make([]contracts.MIDICommand, 0, len(names))
	for _, name := range names {
		c, ok := commandNames[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown MIDI command %q in filter", name)
		}
		commands = append(commands, c)
	}
	return commands, nil
}
