// Package codec frames MIDI byte streams into channel voice messages and back.
package codec

import (
	"gitlab.com/gomidi/midi/v2"

	"github.com/leandrodaf/midilooper/sdk/contracts"
)

const (
	sysExStart   = 0xF0
	sysExEnd     = 0xF7
	realtimeMin  = 0xF8
	statusBit    = 0x80
	commandMask  = 0xF0
	channelMask  = 0x0F
	dataByteMask = 0x7F
)

// Decoder turns a byte stream into channel voice messages one byte at a time.
// It understands running status, ignores system real-time bytes wherever they
// appear and skips SysEx and system common messages.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	running contracts.MIDICommand
	channel uint8
	data    [2]byte
	count   int
	inSysEx bool
}

// NewDecoder creates a decoder with no running status.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed consumes one byte and returns a message once one is complete.
// The returned message has a zero Timestamp.
func (d *Decoder) Feed(b byte) (contracts.MIDI, bool) {
	if b&statusBit != 0 {
		d.status(b)
		return contracts.MIDI{}, false
	}

	if d.inSysEx || d.running == 0 {
		return contracts.MIDI{}, false
	}

	d.data[d.count] = b
	d.count++
	if d.count < d.running.DataLen() {
		return contracts.MIDI{}, false
	}
	d.count = 0

	msg := contracts.MIDI{
		Command: d.running,
		Channel: d.channel,
		Note:    d.data[0],
	}
	if d.running.DataLen() == 2 {
		msg.Velocity = d.data[1]
	}
	return msg, true
}

// Decode feeds every byte in data and returns the completed messages.
func (d *Decoder) Decode(data []byte) []contracts.MIDI {
	var out []contracts.MIDI
	for _, b := range data {
		if msg, ok := d.Feed(b); ok {
			out = append(out, msg)
		}
	}
	return out
}

// Reset drops running status and any partial message.
func (d *Decoder) Reset() {
	*d = Decoder{}
}

func (d *Decoder) status(b byte) {
	switch {
	case b >= realtimeMin:
		// Clock, start, stop and friends may interleave with any message.
		return
	case b == sysExStart:
		d.inSysEx = true
		d.running = 0
	case b == sysExEnd:
		d.inSysEx = false
		d.running = 0
	case b > sysExStart:
		// System common cancels running status; its data bytes are discarded.
		d.inSysEx = false
		d.running = 0
	default:
		d.inSysEx = false
		d.running = contracts.MIDICommand(b & commandMask)
		d.channel = b & channelMask
	}
	d.count = 0
}

// Encode returns the wire form of ev without running status.
// It returns nil for an event whose command is not a channel voice command.
func Encode(ev contracts.MIDI) []byte {
	switch ev.Command.DataLen() {
	case 1:
		return []byte{byte(ev.Command) | ev.Channel&channelMask, ev.Note & dataByteMask}
	case 2:
		return []byte{byte(ev.Command) | ev.Channel&channelMask, ev.Note & dataByteMask, ev.Velocity & dataByteMask}
	}
	return nil
}

// ToMessage converts ev into a gomidi message.
func ToMessage(ev contracts.MIDI) midi.Message {
	return midi.Message(Encode(ev))
}

// FromMessage converts a gomidi channel voice message into an event.
func FromMessage(msg midi.Message) (contracts.MIDI, bool) {
	d := NewDecoder()
	for _, b := range msg.Bytes() {
		if ev, ok := d.Feed(b); ok {
			return ev, true
		}
	}
	return contracts.MIDI{}, false
}

// Describe renders ev for trace output.
func Describe(ev contracts.MIDI) string {
	return ToMessage(ev).String()
}
