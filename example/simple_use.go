package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/leandrodaf/midilooper/internal/logger"
	"github.com/leandrodaf/midilooper/internal/midi/serialport"
	"github.com/leandrodaf/midilooper/sdk/contracts"
	"github.com/leandrodaf/midilooper/sdk/looper"
)

func main() {
	log := logger.NewZapLogger()

	device := "/dev/ttyAMA0"
	if len(os.Args) > 1 {
		device = os.Args[1]
	}

	port, err := serialport.Open(device, serialport.DefaultBaud, log)
	if err != nil {
		log.Error("Failed to open serial MIDI port", log.Field().Error("error", err))
		return
	}
	defer port.Stop()

	l, err := looper.NewLooper(port,
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
		contracts.WithLoopLength(2000),
		contracts.WithMIDIEventFilter(contracts.MIDIEventFilter{
			Commands: []contracts.MIDICommand{contracts.NoteOn, contracts.NoteOff},
		}),
	)
	if err != nil {
		log.Error("Failed to initialize looper", log.Field().Error("error", err))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := l.Start(ctx); err != nil {
		log.Error("Failed to start looper", log.Field().Error("error", err))
		return
	}
	looper.Connect(port, l)

	fmt.Println("Looping notes from", device, "... Press Ctrl+C to exit.")
	<-ctx.Done()

	_ = l.Stop()
	s := l.Stats()
	log.Info("Looper stopped",
		log.Field().Uint64("recorded", s.Recorded),
		log.Field().Uint64("played", s.Played),
	)
}
