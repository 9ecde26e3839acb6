package contracts

import "context"

// MIDICommand represents the status nibble of a MIDI channel voice message.
type MIDICommand byte

const (
	// NoteOff is the MIDI command for a Note Off event (0x80).
	NoteOff MIDICommand = 0x80
	// NoteOn is the MIDI command for a Note On event (0x90).
	NoteOn MIDICommand = 0x90
	// PolyAftertouch is the MIDI command for polyphonic key pressure (0xA0).
	PolyAftertouch MIDICommand = 0xA0
	// ControlChange is the MIDI command for a controller change (0xB0).
	ControlChange MIDICommand = 0xB0
	// ProgramChange is the MIDI command for a program change (0xC0).
	ProgramChange MIDICommand = 0xC0
	// ChannelAftertouch is the MIDI command for channel pressure (0xD0).
	ChannelAftertouch MIDICommand = 0xD0
	// PitchBend is the MIDI command for a pitch bend change (0xE0).
	PitchBend MIDICommand = 0xE0
)

// DataLen returns how many data bytes follow the status byte for the command.
func (c MIDICommand) DataLen() int {
	switch c {
	case ProgramChange, ChannelAftertouch:
		return 1
	case NoteOff, NoteOn, PolyAftertouch, ControlChange, PitchBend:
		return 2
	}
	return 0
}

// Valid reports whether c is a channel voice command.
func (c MIDICommand) Valid() bool {
	return c.DataLen() > 0
}

// MIDI represents a channel voice message captured by the looper.
// It is a plain value: assigning it copies the whole message.
type MIDI struct {
	Timestamp uint32      // Timestamp is the loop-relative millisecond the event was captured at.
	Command   MIDICommand // Command specifies the type of MIDI event (e.g., Note On, Note Off).
	Channel   uint8       // Channel is the zero-based MIDI channel (0-15).
	Note      byte        // Note is the first data byte: note, controller or program number.
	Velocity  byte        // Velocity is the second data byte: velocity, pressure or value.
}

// IsNoteOn reports whether the event starts a note. A Note On with zero velocity is a note end.
func (m MIDI) IsNoteOn() bool {
	return m.Command == NoteOn && m.Velocity > 0
}

// Stats is a snapshot of the looper counters.
type Stats struct {
	Decoded         uint64 // Complete messages produced by the decoder.
	Filtered        uint64 // Messages discarded by the event filter.
	Recorded        uint64 // Messages stored in the loop buffer.
	Overdubs        uint64 // Recordings that replaced an event at the same timestamp.
	Evicted         uint64 // Entries evicted to make room under the EvictOldest policy.
	CapacityDrops   uint64 // Recordings refused because the loop buffer was full.
	Echoed          uint64 // Live events handed to the relay.
	EchoDrops       uint64 // Live events dropped because the relay was full.
	Played          uint64 // Recorded events handed to the relay on playback.
	PlaybackDrops   uint64 // Recorded events dropped on playback because the relay was full.
	Written         uint64 // Events written to the output.
	WriteErrors     uint64 // Failed output writes (the event is retried).
	Discarded       uint64 // Events still pending at Stop that the output would not accept.
	Ticks           uint64 // Ticks serviced.
	BufferedEntries int    // Current number of entries in the loop buffer.
}

// Looper defines the operations of a running MIDI looper.
type Looper interface {
	Start(ctx context.Context) error // Starts the tick and output goroutines.
	Stop() error                     // Stops the goroutines and waits for them to exit.
	Feed(data []byte)                // Hands received MIDI bytes to the input handler.
	Position() uint32                // Returns the current loop-relative position in milliseconds.
	Clear()                          // Empties the recorded loop.
	Stats() Stats                    // Returns a snapshot of the looper counters.
}

// ClientMIDI defines an interface for MIDI input port operations.
type ClientMIDI interface {
	Stop() error                            // Stops the MIDI client and releases resources.
	ListDevices() ([]DeviceInfo, error)     // Lists all available MIDI devices.
	SelectDevice(deviceID int) error        // Selects a MIDI device by its ID for communication.
	StartCapture(receive func(data []byte)) // Starts capturing MIDI bytes and hands them to receive.
}
