package engine

import (
	"context"
	"time"

	"github.com/leandrodaf/midilooper/internal/codec"
)

// writeRetry is the pause after a failed output write before the head event is retried.
const writeRetry = time.Millisecond

// flushRetries bounds the failed writes flush tolerates before discarding what is left.
const flushRetries = 3

// DrainOnce writes the event at the head of the relay to the output. The event
// is removed only after a successful write, so a failed write leaves it in
// place for the next attempt. It reports whether an event was written.
func (e *Engine) DrainOnce() (bool, error) {
	ev, ok := e.relay.Peek()
	if !ok {
		return false, nil
	}

	if _, err := e.out.Write(codec.Encode(ev)); err != nil {
		e.stats.writeErrors.Add(1)
		return false, err
	}

	e.relay.Dequeue()
	e.stats.written.Add(1)
	return true, nil
}

// drainLoop empties the relay and then sleeps until the next enqueue.
func (e *Engine) drainLoop(ctx context.Context) {
	for {
		written, err := e.DrainOnce()
		if written {
			continue
		}

		if err != nil {
			e.logger.Debug("MIDI output write failed", e.logger.Field().Error("error", err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(writeRetry):
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-e.relay.Wait():
		}
	}
}

// flush writes the events still queued after the drain goroutine has exited.
// If the output keeps failing the remaining events are discarded and counted.
func (e *Engine) flush() {
	retries := flushRetries
	for {
		written, err := e.DrainOnce()
		if written {
			continue
		}
		if err == nil {
			return
		}
		if retries == 0 {
			for {
				if _, ok := e.relay.Dequeue(); !ok {
					return
				}
				e.stats.discarded.Add(1)
			}
		}
		retries--
		time.Sleep(writeRetry)
	}
}
