// Package engine runs the looper: a tick goroutine that advances the clock and
// replays recorded events, an input path that records and echoes live events,
// and an output goroutine that drains the relay into the MIDI output.
//
// Ownership:
//   - the clock is advanced only by Tick and read anywhere;
//   - the loop buffer is written by the input path and read by Tick, each under its lock;
//   - the relay is produced by the input path and Tick, consumed only by the drain.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leandrodaf/midilooper/internal/clock"
	"github.com/leandrodaf/midilooper/internal/codec"
	"github.com/leandrodaf/midilooper/internal/loopbuf"
	"github.com/leandrodaf/midilooper/internal/relay"
	"github.com/leandrodaf/midilooper/internal/trace"
	"github.com/leandrodaf/midilooper/sdk/contracts"
)

// Error definitions for the looper lifecycle and configuration.
var (
	ErrAlreadyRunning = errors.New("looper already running")
	ErrInvalidOption  = errors.New("invalid looper option")
)

// Engine implements contracts.Looper.
type Engine struct {
	logger contracts.Logger
	filter *contracts.MIDIEventFilter
	period time.Duration

	clock  *clock.Clock
	buffer *loopbuf.Buffer
	relay  *relay.Relay[contracts.MIDI]
	tracer *trace.Tracer

	inputMu sync.Mutex // serializes Feed; the decoder keeps running status between calls
	decoder *codec.Decoder

	out io.Writer

	stats counters

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	runID   string
}

// New builds an engine from fully defaulted options. Output bytes are written to out.
func New(opts contracts.LooperOptions, out io.Writer) (*Engine, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ErrInvalidOption)
	}
	if opts.LoopLength == 0 {
		return nil, fmt.Errorf("%w: loop length must be positive", ErrInvalidOption)
	}
	if opts.TickPeriod <= 0 {
		return nil, fmt.Errorf("%w: tick period must be positive", ErrInvalidOption)
	}

	buffer, err := loopbuf.New(opts.LoopCapacity, opts.CapacityPolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	r, err := relay.New[contracts.MIDI](opts.RelayCapacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}

	if out == nil {
		opts.Logger.Warn("no MIDI output configured; output is discarded")
		out = io.Discard
	}

	return &Engine{
		logger:  opts.Logger,
		filter:  opts.MIDIEventFilter,
		period:  opts.TickPeriod,
		clock:   clock.New(opts.LoopLength),
		buffer:  buffer,
		relay:   r,
		tracer:  trace.New(opts.Trace, opts.Logger),
		decoder: codec.NewDecoder(),
		out:     out,
	}, nil
}

// Start launches the tick, output and trace goroutines. They run until Stop is
// called or ctx is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.runID = uuid.Must(uuid.NewV7()).String()

	e.wg.Add(3)
	go func() {
		defer e.wg.Done()
		e.tickLoop(ctx)
	}()
	go func() {
		defer e.wg.Done()
		e.drainLoop(ctx)
	}()
	go func() {
		defer e.wg.Done()
		e.tracer.Run(ctx)
	}()

	e.logger.Info("looper started",
		e.logger.Field().String("run", e.runID),
		e.logger.Field().Int64("loopLengthMs", int64(e.clock.LoopLength())),
		e.logger.Field().Int("loopCapacity", e.buffer.Cap()),
		e.logger.Field().Int("relayCapacity", e.relay.Cap()))
	return nil
}

// Stop cancels the goroutines started by Start, waits for them to return and
// writes the events still waiting for output.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		e.logger.Warn("looper is not running")
		return nil
	}

	e.cancel()
	e.wg.Wait()
	e.running = false
	e.flush()

	s := e.Stats()
	e.logger.Info("looper stopped",
		e.logger.Field().String("run", e.runID),
		e.logger.Field().Uint64("recorded", s.Recorded),
		e.logger.Field().Uint64("played", s.Played),
		e.logger.Field().Uint64("echoed", s.Echoed),
		e.logger.Field().Uint64("written", s.Written),
		e.logger.Field().Uint64("discarded", s.Discarded),
		e.logger.Field().Uint64("capacityDrops", s.CapacityDrops),
		e.logger.Field().Uint64("relayDrops", s.EchoDrops+s.PlaybackDrops),
		e.logger.Field().Uint64("traceDrops", e.tracer.Dropped()))
	return nil
}

// Position returns the current loop-relative position in milliseconds.
func (e *Engine) Position() uint32 {
	return e.clock.Current()
}

// Clear empties the recorded loop. The clock keeps running.
func (e *Engine) Clear() {
	e.buffer.Clear()
	e.logger.Info("loop cleared")
}

// Stats returns a snapshot of the counters.
func (e *Engine) Stats() contracts.Stats {
	s := e.stats.snapshot()
	s.BufferedEntries = e.buffer.Len()
	return s
}

var _ contracts.Looper = (*Engine)(nil)
