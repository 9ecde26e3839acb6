package midiwindows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortMessage(t *testing.T) {
	tests := []struct {
		name  string
		param uintptr
		want  []byte
	}{
		{"note on", 0x00643C91, []byte{0x91, 0x3C, 0x64}},
		{"control change", 0x005A07B0, []byte{0xB0, 0x07, 0x5A}},
		{"program change drops second byte", 0x00000AC2, []byte{0xC2, 0x0A}},
		{"channel pressure", 0x000040D0, []byte{0xD0, 0x40}},
		{"clock is ignored", 0x000000F8, nil},
		{"stray data byte", 0x0000003C, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shortMessage(tt.param))
		})
	}
}
