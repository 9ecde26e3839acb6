package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leandrodaf/midilooper/internal/logger"
	"github.com/leandrodaf/midilooper/sdk/contracts"
)

func testOptions() contracts.LooperOptions {
	return contracts.LooperOptions{
		Logger:        logger.NewNopLogger(),
		LoopLength:    1000,
		LoopCapacity:  512,
		RelayCapacity: 32,
		TickPeriod:    time.Millisecond,
	}
}

func newEngine(t *testing.T, opts contracts.LooperOptions, out *bytes.Buffer) *Engine {
	t.Helper()
	var e *Engine
	var err error
	if out == nil {
		e, err = New(opts, nil)
	} else {
		e, err = New(opts, out)
	}
	require.NoError(t, err)
	return e
}

func tickTo(e *Engine, pos uint32) {
	for e.Position() != pos {
		e.Tick()
	}
}

func drainAll(t *testing.T, e *Engine) {
	t.Helper()
	for {
		written, err := e.DrainOnce()
		require.NoError(t, err)
		if !written {
			return
		}
	}
}

var noteOn60 = []byte{0x90, 60, 100}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*contracts.LooperOptions)
	}{
		{"no logger", func(o *contracts.LooperOptions) { o.Logger = nil }},
		{"zero loop", func(o *contracts.LooperOptions) { o.LoopLength = 0 }},
		{"zero tick", func(o *contracts.LooperOptions) { o.TickPeriod = 0 }},
		{"zero capacity", func(o *contracts.LooperOptions) { o.LoopCapacity = 0 }},
		{"zero relay", func(o *contracts.LooperOptions) { o.RelayCapacity = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			tt.mutate(&opts)
			_, err := New(opts, nil)
			assert.ErrorIs(t, err, ErrInvalidOption)
		})
	}
}

func TestEngine_RecordAndEcho(t *testing.T) {
	var out bytes.Buffer
	e := newEngine(t, testOptions(), &out)

	tickTo(e, 250)
	e.Feed(noteOn60)

	stored, ok := e.buffer.Lookup(250)
	require.True(t, ok, "event stored at the capture timestamp")
	assert.Equal(t, contracts.MIDI{Timestamp: 250, Command: contracts.NoteOn, Note: 60, Velocity: 100}, stored)

	drainAll(t, e)
	assert.Equal(t, noteOn60, out.Bytes(), "live input is echoed immediately")

	s := e.Stats()
	assert.Equal(t, uint64(1), s.Recorded)
	assert.Equal(t, uint64(1), s.Echoed)
	assert.Equal(t, uint64(1), s.Written)
	assert.Equal(t, 1, s.BufferedEntries)
}

func TestEngine_PlaybackNextCycle(t *testing.T) {
	e := newEngine(t, testOptions(), nil)

	tickTo(e, 250)
	e.Feed(noteOn60)
	echo, ok := e.relay.Dequeue()
	require.True(t, ok)

	for i := uint32(0); i < e.clock.CycleTicks()-1; i++ {
		e.Tick()
		_, ok := e.relay.Peek()
		require.False(t, ok, "nothing plays before position 250 comes around (tick %d)", i)
	}

	e.Tick()
	assert.Equal(t, uint32(250), e.Position())
	played, ok := e.relay.Dequeue()
	require.True(t, ok, "recorded event relayed on the next cycle")
	assert.Equal(t, echo, played, "played event is value-identical to the recorded one")
	assert.Equal(t, uint64(1), e.Stats().Played)
}

func TestEngine_OverdubReplacesOnLaterCycles(t *testing.T) {
	e := newEngine(t, testOptions(), nil)

	// cycle 1
	tickTo(e, 250)
	e.Feed(noteOn60)
	e.relay.Dequeue()

	// cycle 2: playback of the first take, then the overdub at the same timestamp
	tickTo(e, 0)
	tickTo(e, 250)
	first, ok := e.relay.Dequeue()
	require.True(t, ok)
	assert.Equal(t, byte(60), first.Note)

	e.Feed([]byte{0x90, 64, 90})
	e.relay.Dequeue()

	// cycle 3
	tickTo(e, 0)
	tickTo(e, 250)
	second, ok := e.relay.Dequeue()
	require.True(t, ok)
	assert.Equal(t, byte(64), second.Note, "cycle 3 plays the overdub, not the first take")
	assert.Equal(t, byte(90), second.Velocity)

	_, ok = e.relay.Dequeue()
	assert.False(t, ok)
	assert.Equal(t, uint64(1), e.Stats().Overdubs)
}

func TestEngine_PlaybackDroppedWhenRelayFull(t *testing.T) {
	opts := testOptions()
	opts.RelayCapacity = 2
	e := newEngine(t, opts, nil)

	tickTo(e, 10)
	e.Feed(noteOn60)
	e.relay.Dequeue()

	tickTo(e, 5)
	require.NoError(t, e.relay.Enqueue(contracts.MIDI{Command: contracts.NoteOff, Note: 1}))
	require.NoError(t, e.relay.Enqueue(contracts.MIDI{Command: contracts.NoteOff, Note: 2}))

	tickTo(e, 10)

	s := e.Stats()
	assert.Equal(t, uint64(1), s.PlaybackDrops, "the due event is dropped for this cycle")
	assert.Equal(t, uint64(0), s.Played)

	a, _ := e.relay.Dequeue()
	b, _ := e.relay.Dequeue()
	assert.Equal(t, byte(1), a.Note, "relay contents untouched")
	assert.Equal(t, byte(2), b.Note)

	_, ok := e.buffer.Lookup(10)
	assert.True(t, ok, "the recording survives and plays on the next cycle")
	tickTo(e, 0)
	tickTo(e, 10)
	assert.Equal(t, uint64(1), e.Stats().Played)
}

func TestEngine_EchoDroppedWhenRelayFull(t *testing.T) {
	opts := testOptions()
	opts.RelayCapacity = 1
	e := newEngine(t, opts, nil)

	tickTo(e, 3)
	e.Feed(noteOn60)
	tickTo(e, 4)
	e.Feed([]byte{0x90, 62, 100})

	s := e.Stats()
	assert.Equal(t, uint64(1), s.Echoed)
	assert.Equal(t, uint64(1), s.EchoDrops)
	assert.Equal(t, uint64(2), s.Recorded, "a dropped echo still records")
}

func TestEngine_CapacityDropNewest(t *testing.T) {
	opts := testOptions()
	opts.LoopCapacity = 2
	e := newEngine(t, opts, nil)

	for _, pos := range []uint32{1, 2, 3} {
		tickTo(e, pos)
		e.Feed(noteOn60)
		e.relay.Dequeue()
	}

	s := e.Stats()
	assert.Equal(t, uint64(2), s.Recorded)
	assert.Equal(t, uint64(1), s.CapacityDrops)
	assert.Equal(t, uint64(3), s.Echoed, "live echo continues when recording is refused")
	_, ok := e.buffer.Lookup(3)
	assert.False(t, ok)
}

func TestEngine_CapacityEvictOldest(t *testing.T) {
	opts := testOptions()
	opts.LoopCapacity = 2
	opts.CapacityPolicy = contracts.EvictOldest
	e := newEngine(t, opts, nil)

	for _, pos := range []uint32{1, 2, 3} {
		tickTo(e, pos)
		e.Feed(noteOn60)
	}

	s := e.Stats()
	assert.Equal(t, uint64(3), s.Recorded)
	assert.Equal(t, uint64(1), s.Evicted)
	assert.Equal(t, uint64(0), s.CapacityDrops)
	_, ok := e.buffer.Lookup(1)
	assert.False(t, ok)
	_, ok = e.buffer.Lookup(3)
	assert.True(t, ok)
}

func TestEngine_FeedAcrossCalls(t *testing.T) {
	e := newEngine(t, testOptions(), nil)
	tickTo(e, 7)

	e.Feed([]byte{0x90})
	e.Feed([]byte{60})
	assert.Equal(t, uint64(0), e.Stats().Decoded)
	e.Feed([]byte{100})

	assert.Equal(t, uint64(1), e.Stats().Decoded)
	_, ok := e.buffer.Lookup(7)
	assert.True(t, ok)
}

func TestEngine_Filter(t *testing.T) {
	opts := testOptions()
	opts.MIDIEventFilter = &contracts.MIDIEventFilter{Commands: []contracts.MIDICommand{contracts.NoteOn}}
	e := newEngine(t, opts, nil)

	tickTo(e, 1)
	e.Feed([]byte{0xB0, 7, 100})
	tickTo(e, 2)
	e.Feed(noteOn60)

	s := e.Stats()
	assert.Equal(t, uint64(2), s.Decoded)
	assert.Equal(t, uint64(1), s.Filtered)
	assert.Equal(t, uint64(1), s.Recorded)
	assert.Equal(t, 1, e.relay.Len())
}

func TestEngine_Clear(t *testing.T) {
	e := newEngine(t, testOptions(), nil)
	tickTo(e, 20)
	e.Feed(noteOn60)
	e.relay.Dequeue()

	e.Clear()

	tickTo(e, 0)
	tickTo(e, 20)
	assert.Equal(t, 0, e.relay.Len())
	assert.Equal(t, 0, e.Stats().BufferedEntries)
}

type flakyWriter struct {
	fails int
	buf   bytes.Buffer
}

func (w *flakyWriter) Write(p []byte) (int, error) {
	if w.fails > 0 {
		w.fails--
		return 0, errors.New("uart busy")
	}
	return w.buf.Write(p)
}

func TestEngine_DrainRetriesFailedWrite(t *testing.T) {
	w := &flakyWriter{fails: 1}
	e, err := New(testOptions(), w)
	require.NoError(t, err)

	e.Feed(noteOn60)

	written, err := e.DrainOnce()
	assert.Error(t, err)
	assert.False(t, written)
	assert.Equal(t, 1, e.relay.Len(), "event stays at the head after a failed write")

	written, err = e.DrainOnce()
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, noteOn60, w.buf.Bytes())
	assert.Equal(t, uint64(1), e.Stats().WriteErrors)
}

func TestEngine_DrainEmpty(t *testing.T) {
	e := newEngine(t, testOptions(), nil)
	written, err := e.DrainOnce()
	assert.NoError(t, err)
	assert.False(t, written)
}

// transcript records each output write together with the clock position.
type transcript struct {
	position func() uint32
	buf      bytes.Buffer
}

func (w *transcript) Write(p []byte) (int, error) {
	fmt.Fprintf(&w.buf, "%04d % x\n", w.position(), p)
	return len(p), nil
}

func TestEngine_OverdubTranscriptGolden(t *testing.T) {
	w := &transcript{}
	e, err := New(testOptions(), w)
	require.NoError(t, err)
	w.position = e.Position

	tickTo(e, 250)
	e.Feed(noteOn60)
	drainAll(t, e)

	tickTo(e, 0)
	tickTo(e, 250)
	drainAll(t, e)
	e.Feed([]byte{0x90, 64, 90})
	drainAll(t, e)

	tickTo(e, 0)
	tickTo(e, 250)
	drainAll(t, e)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "overdub", w.buf.Bytes())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func TestEngine_StartStop(t *testing.T) {
	opts := testOptions()
	opts.LoopLength = 20
	opts.Trace = &contracts.TraceConfig{Enabled: true, TickMark: 10}
	out := &syncBuffer{}
	e, err := New(opts, out)
	require.NoError(t, err)

	require.NoError(t, e.Start(context.Background()))
	assert.ErrorIs(t, e.Start(context.Background()), ErrAlreadyRunning)

	e.Feed(noteOn60)

	require.Eventually(t, func() bool {
		s := e.Stats()
		return s.Played >= 1 && out.Len() >= 2*len(noteOn60)
	}, 2*time.Second, 5*time.Millisecond, "the loop replays the recorded note in real time")

	require.NoError(t, e.Stop())
	assert.NoError(t, e.Stop(), "stopping twice is harmless")

	ticks := e.Stats().Ticks
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, ticks, e.Stats().Ticks, "no ticks after Stop")
}

// stoppedWithPending starts e on a cancelled context so the drain goroutine
// makes a single failed write and exits, leaving the echoes queued.
func stoppedWithPending(t *testing.T, e *Engine) {
	t.Helper()
	e.Feed([]byte{0x90, 60, 100, 64, 90})
	require.Equal(t, 2, e.relay.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, e.Start(ctx))
}

func TestEngine_StopWritesPendingOutput(t *testing.T) {
	w := &flakyWriter{fails: 1}
	e, err := New(testOptions(), w)
	require.NoError(t, err)

	stoppedWithPending(t, e)
	require.NoError(t, e.Stop())

	assert.Equal(t, []byte{0x90, 60, 100, 0x90, 64, 90}, w.buf.Bytes())
	s := e.Stats()
	assert.Equal(t, uint64(2), s.Written)
	assert.Equal(t, uint64(0), s.Discarded)
	assert.Equal(t, 0, e.relay.Len())
}

func TestEngine_StopDiscardsWhenOutputKeepsFailing(t *testing.T) {
	w := &flakyWriter{fails: 100}
	e, err := New(testOptions(), w)
	require.NoError(t, err)

	stoppedWithPending(t, e)
	require.NoError(t, e.Stop())

	s := e.Stats()
	assert.Equal(t, uint64(0), s.Written)
	assert.Equal(t, uint64(2), s.Discarded)
	assert.GreaterOrEqual(t, s.WriteErrors, uint64(1+1+flushRetries))
	assert.Equal(t, 0, e.relay.Len())
}
