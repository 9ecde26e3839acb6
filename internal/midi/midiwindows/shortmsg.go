package midiwindows

import "github.com/leandrodaf/midilooper/sdk/contracts"

// shortMessage unpacks a winmm short message (status in the low byte, data
// bytes in the next two) into wire bytes. System messages yield nil.
func shortMessage(dwParam1 uintptr) []byte {
	status := byte(dwParam1 & 0xFF)
	n := contracts.MIDICommand(status & 0xF0).DataLen()
	if n == 0 {
		return nil
	}
	msg := []byte{status, byte(dwParam1>>8) & 0x7F, byte(dwParam1>>16) & 0x7F}
	return msg[:n+1]
}
