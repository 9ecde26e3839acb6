//go:build !darwin
// +build !darwin

package mididarwin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leandrodaf/midilooper/internal/logger"
	"github.com/leandrodaf/midilooper/sdk/contracts"
)

func TestDummyMIDIClient(t *testing.T) {
	client, err := NewMIDIClient(&contracts.LooperOptions{Logger: logger.NewNopLogger()})
	require.NoError(t, err)

	_, err = client.ListDevices()
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, client.SelectDevice(0), ErrUnavailable)

	called := false
	client.StartCapture(func([]byte) { called = true })
	assert.False(t, called)
	assert.NoError(t, client.Stop())
}
