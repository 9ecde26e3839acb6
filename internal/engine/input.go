package engine

import (
	"github.com/leandrodaf/midilooper/internal/codec"
	"github.com/leandrodaf/midilooper/internal/loopbuf"
	"github.com/leandrodaf/midilooper/sdk/contracts"
)

// Feed hands received MIDI bytes to the input handler. Partial messages are
// kept until the remaining bytes arrive in a later call. Every complete message
// is stamped with the clock position, recorded and echoed.
//
// Failures never propagate: a full loop buffer drops the recording and a full
// relay drops the echo, each independently.
func (e *Engine) Feed(data []byte) {
	e.inputMu.Lock()
	defer e.inputMu.Unlock()

	for _, b := range data {
		if ev, ok := e.decoder.Feed(b); ok {
			e.handle(ev)
		}
	}
}

func (e *Engine) handle(ev contracts.MIDI) {
	e.stats.decoded.Add(1)

	if !e.filter.Allows(ev.Command) {
		e.stats.filtered.Add(1)
		return
	}

	ev.Timestamp = e.clock.Current()
	e.record(ev)
	e.echo(ev)
}

func (e *Engine) record(ev contracts.MIDI) {
	outcome, err := e.buffer.Insert(ev.Timestamp, ev)
	if err != nil {
		e.stats.capacityDrops.Add(1)
		e.logger.Debug("recording dropped",
			e.logger.Field().Int64("timestamp", int64(ev.Timestamp)),
			e.logger.Field().Error("error", err))
		return
	}

	e.stats.recorded.Add(1)
	switch outcome {
	case loopbuf.Overwritten:
		e.stats.overdubs.Add(1)
	case loopbuf.Evicted:
		e.stats.evicted.Add(1)
	}

	if e.tracer != nil && ev.IsNoteOn() {
		e.tracer.Printf("note on %s @%d", codec.Describe(ev), ev.Timestamp)
	}
}

func (e *Engine) echo(ev contracts.MIDI) {
	if err := e.relay.Enqueue(ev); err != nil {
		e.stats.echoDrops.Add(1)
		e.logger.Debug("echo dropped",
			e.logger.Field().Int64("timestamp", int64(ev.Timestamp)),
			e.logger.Field().Error("error", err))
		return
	}
	e.stats.echoed.Add(1)
}
