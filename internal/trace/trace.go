// Package trace is a best-effort diagnostic channel for the timing paths.
//
// Lines are queued without blocking and written to the logger by a background
// goroutine. When the queue is full new lines are dropped and counted.
package trace

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/leandrodaf/midilooper/sdk/contracts"
)

const defaultBuffer = 64

// Tracer queues diagnostic lines. A nil *Tracer is valid and discards everything.
type Tracer struct {
	lines    chan string
	logger   contracts.Logger
	tickMark uint32
	dropped  atomic.Uint64
}

// New creates a tracer, or returns nil when cfg is nil or disabled.
func New(cfg *contracts.TraceConfig, logger contracts.Logger) *Tracer {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	size := cfg.Buffer
	if size <= 0 {
		size = defaultBuffer
	}
	return &Tracer{
		lines:    make(chan string, size),
		logger:   logger,
		tickMark: cfg.TickMark,
	}
}

// Printf queues a formatted line.
func (t *Tracer) Printf(format string, args ...any) {
	if t == nil {
		return
	}
	t.push(fmt.Sprintf(format, args...))
}

// Tick queues a "tick" line when position is a multiple of the configured mark.
func (t *Tracer) Tick(position uint32) {
	if t == nil || t.tickMark == 0 || position%t.tickMark != 0 {
		return
	}
	t.push("tick")
}

func (t *Tracer) push(line string) {
	select {
	case t.lines <- line:
	default:
		t.dropped.Add(1)
	}
}

// Dropped returns how many lines were discarded because the queue was full.
func (t *Tracer) Dropped() uint64 {
	if t == nil {
		return 0
	}
	return t.dropped.Load()
}

// Run writes queued lines to the logger at debug level until ctx is done.
func (t *Tracer) Run(ctx context.Context) {
	if t == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			t.flush()
			return
		case line := <-t.lines:
			t.logger.Debug("trace", t.logger.Field().String("line", line))
		}
	}
}

func (t *Tracer) flush() {
	for {
		select {
		case line := <-t.lines:
			t.logger.Debug("trace", t.logger.Field().String("line", line))
		default:
			return
		}
	}
}
