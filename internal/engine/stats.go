package engine

import (
	"sync/atomic"

	"github.com/leandrodaf/midilooper/sdk/contracts"
)

type counters struct {
	decoded       atomic.Uint64
	filtered      atomic.Uint64
	recorded      atomic.Uint64
	overdubs      atomic.Uint64
	evicted       atomic.Uint64
	capacityDrops atomic.Uint64
	echoed        atomic.Uint64
	echoDrops     atomic.Uint64
	played        atomic.Uint64
	playbackDrops atomic.Uint64
	written       atomic.Uint64
	writeErrors   atomic.Uint64
	discarded     atomic.Uint64
	ticks         atomic.Uint64
}

func (c *counters) snapshot() contracts.Stats {
	return contracts.Stats{
		Decoded:       c.decoded.Load(),
		Filtered:      c.filtered.Load(),
		Recorded:      c.recorded.Load(),
		Overdubs:      c.overdubs.Load(),
		Evicted:       c.evicted.Load(),
		CapacityDrops: c.capacityDrops.Load(),
		Echoed:        c.echoed.Load(),
		EchoDrops:     c.echoDrops.Load(),
		Played:        c.played.Load(),
		PlaybackDrops: c.playbackDrops.Load(),
		Written:       c.written.Load(),
		WriteErrors:   c.writeErrors.Load(),
		Discarded:     c.discarded.Load(),
		Ticks:         c.ticks.Load(),
	}
}
