//go:build !windows
// +build !windows

package midiwindows

import (
	"errors"

	"github.com/leandrodaf/midilooper/sdk/contracts"
)

// ErrUnavailable is returned by the winmm stand-in on systems without winmm.
var ErrUnavailable = errors.New("winmm input is only available on Windows")

// dummyMIDIClient stands in for winmm on other systems. It never delivers
// bytes, so a looper connected to it only replays what is already recorded.
type dummyMIDIClient struct {
	logger contracts.Logger
}

// NewMIDIClient initializes a dummy MIDI client for non-Windows systems.
func NewMIDIClient(options *contracts.LooperOptions) (contracts.ClientMIDI, error) {
	options.Logger.Info("Using dummy MIDI client for non-Windows system")
	return &dummyMIDIClient{
		logger: options.Logger,
	}, nil
}

// ListDevices reports that winmm is unavailable.
func (m *dummyMIDIClient) ListDevices() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListDevices called on dummy MIDI client")
	return nil, ErrUnavailable
}

// SelectDevice reports that winmm is unavailable.
func (m *dummyMIDIClient) SelectDevice(deviceID int) error {
	m.logger.Warn("SelectDevice called on dummy MIDI client",
		m.logger.Field().Int("deviceID", deviceID))
	return ErrUnavailable
}

// StartCapture keeps nothing; receive is never called.
func (m *dummyMIDIClient) StartCapture(receive func(data []byte)) {
	m.logger.Warn("StartCapture called on dummy MIDI client")
}

// Stop has nothing to release.
func (m *dummyMIDIClient) Stop() error {
	return nil
}
