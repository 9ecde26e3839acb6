package engine

import (
	"context"
	"time"
)

// maxCatchUp bounds how many ticks one timer wake-up may service.
const maxCatchUp = 32

// Tick advances the clock by one millisecond and relays the event recorded at
// the new position, if any. When the relay is full the event is dropped for
// this cycle. Tick must not be called concurrently with itself.
func (e *Engine) Tick() {
	pos := e.clock.Advance()
	e.stats.ticks.Add(1)
	e.tracer.Tick(pos)

	ev, ok := e.buffer.Lookup(pos)
	if !ok {
		return
	}

	if err := e.relay.Enqueue(ev); err != nil {
		e.stats.playbackDrops.Add(1)
		e.logger.Debug("playback event dropped",
			e.logger.Field().Int64("position", int64(pos)),
			e.logger.Field().Error("error", err))
		return
	}
	e.stats.played.Add(1)
}

// tickLoop calls Tick once per elapsed period. Ticks are counted against the
// start time rather than the ticker, so a late wake-up runs the missed ticks
// (at most maxCatchUp per wake-up) instead of drifting the loop.
func (e *Engine) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(e.period)
	defer ticker.Stop()

	start := time.Now()
	var done uint64

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			due := uint64(now.Sub(start) / e.period)
			for n := 0; done < due && n < maxCatchUp; n++ {
				e.Tick()
				done++
			}
		}
	}
}
