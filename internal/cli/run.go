package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leandrodaf/midilooper/internal/config"
	"github.com/leandrodaf/midilooper/internal/logger"
	"github.com/leandrodaf/midilooper/internal/midi/portout"
	"github.com/leandrodaf/midilooper/internal/midi/serialport"
	"github.com/leandrodaf/midilooper/sdk/contracts"
	"github.com/leandrodaf/midilooper/sdk/looper"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Serial     string
	Baud       int
	Device     int
	OutPort    string
	LoopLength uint32
	Duration   time.Duration

	// Logger, Input and Output override what the configuration selects (for testing).
	Logger contracts.Logger
	Input  contracts.ClientMIDI
	Output io.Writer
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the looper",
		Long: `Run the looper until interrupted.

Input comes from a serial MIDI port when --serial is given, otherwise from the
system MIDI device selected with --device. Output goes to the MIDI port named
by --out-port, or back to the serial port.

Example:
  looper run --serial /dev/ttyAMA0
  looper run --device 0 --out-port "IAC Driver" --loop-length 4000 -v`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLooper(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Serial, "serial", "", "serial device for MIDI input and output")
	cmd.Flags().IntVar(&opts.Baud, "baud", serialport.DefaultBaud, "serial baud rate")
	cmd.Flags().IntVar(&opts.Device, "device", 0, "system MIDI input device index")
	cmd.Flags().StringVar(&opts.OutPort, "out-port", "", "MIDI output port name (substring match)")
	cmd.Flags().Uint32Var(&opts.LoopLength, "loop-length", 0, "loop length in milliseconds (overrides config)")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "stop after this long (0 runs until interrupted)")

	return cmd
}

// loadConfig reads the configuration file and applies the flags that were set.
func loadConfig(cmd *cobra.Command, opts *RunOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("serial") {
		cfg.Input.Serial = opts.Serial
	}
	if flags.Changed("baud") {
		cfg.Input.Baud = opts.Baud
	}
	if flags.Changed("device") {
		cfg.Input.Device = opts.Device
	}
	if flags.Changed("out-port") {
		cfg.Output.Port = opts.OutPort
	}
	if flags.Changed("loop-length") {
		cfg.Loop.LengthMs = opts.LoopLength
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func runLooper(cmd *cobra.Command, opts *RunOptions) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewZapLogger()
	}

	looperOpts, err := cfg.Options()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	looperOpts = append(looperOpts, contracts.WithLogger(log))

	input, serial, err := openInput(cfg, opts, log, looperOpts)
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := input.Stop(); stopErr != nil {
			log.Error("error stopping MIDI input", log.Field().Error("error", stopErr))
		}
	}()

	out, closeOut, err := openOutput(cfg, opts, serial, log)
	if err != nil {
		return err
	}
	defer closeOut()

	l, err := looper.NewLooper(out, looperOpts...)
	if err != nil {
		return fmt.Errorf("failed to create looper: %w", err)
	}

	// Setup signal handling for graceful shutdown
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()
	if opts.Duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info("received signal, shutting down", log.Field().String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := l.Start(ctx); err != nil {
		return fmt.Errorf("failed to start looper: %w", err)
	}
	looper.Connect(input, l)

	fmt.Fprintf(cmd.OutOrStdout(), "Looping %d ms. Press Ctrl-C to stop.\n", cfg.Loop.LengthMs)
	<-ctx.Done()

	if err := l.Stop(); err != nil {
		return fmt.Errorf("failed to stop looper: %w", err)
	}
	printStats(cmd.OutOrStdout(), l.Stats())
	return nil
}

// openInput returns the live MIDI input. When the input is a serial port it is
// also returned as serial so it can double as the output.
func openInput(cfg *config.Config, opts *RunOptions, log contracts.Logger, looperOpts []contracts.Option) (contracts.ClientMIDI, *serialport.Port, error) {
	if opts.Input != nil {
		return opts.Input, nil, nil
	}

	if cfg.Input.Serial != "" {
		port, err := serialport.Open(cfg.Input.Serial, cfg.Input.Baud, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open serial MIDI: %w", err)
		}
		return port, port, nil
	}

	input, err := looper.NewSystemInput(looperOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create system MIDI input: %w", err)
	}
	if err := input.SelectDevice(cfg.Input.Device); err != nil {
		_ = input.Stop()
		return nil, nil, fmt.Errorf("failed to select MIDI device %d: %w", cfg.Input.Device, err)
	}
	return input, nil, nil
}

// openOutput returns the writer the looper drains into and a func that closes it.
func openOutput(cfg *config.Config, opts *RunOptions, serial *serialport.Port, log contracts.Logger) (io.Writer, func(), error) {
	noop := func() {}
	switch {
	case opts.Output != nil:
		return opts.Output, noop, nil
	case cfg.Output.Port != "":
		port, err := portout.Open(cfg.Output.Port, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open MIDI output: %w", err)
		}
		return port, func() {
			if err := port.Close(); err != nil {
				log.Error("error closing MIDI output", log.Field().Error("error", err))
			}
		}, nil
	case serial != nil:
		return serial, noop, nil
	}
	return nil, noop, nil
}

func printStats(w io.Writer, s contracts.Stats) {
	fmt.Fprintf(w, "recorded=%d overdubs=%d evicted=%d capacity_drops=%d\n",
		s.Recorded, s.Overdubs, s.Evicted, s.CapacityDrops)
	fmt.Fprintf(w, "echoed=%d echo_drops=%d played=%d playback_drops=%d\n",
		s.Echoed, s.EchoDrops, s.Played, s.PlaybackDrops)
	fmt.Fprintf(w, "written=%d write_errors=%d discarded=%d ticks=%d buffered=%d\n",
		s.Written, s.WriteErrors, s.Discarded, s.Ticks, s.BufferedEntries)
}
