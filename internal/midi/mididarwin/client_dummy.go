//go:build !darwin
// +build !darwin

package mididarwin

import (
	"errors"

	"github.com/leandrodaf/midilooper/sdk/contracts"
)

// ErrUnavailable is returned by the CoreMIDI stand-in on systems without CoreMIDI.
var ErrUnavailable = errors.New("CoreMIDI input is only available on macOS")

// DummyMIDIClient stands in for CoreMIDI on other systems. It never delivers
// bytes, so a looper connected to it only replays what is already recorded.
type DummyMIDIClient struct {
	logger contracts.Logger
}

// NewMIDIClient returns the stand-in client.
func NewMIDIClient(options *contracts.LooperOptions) (contracts.ClientMIDI, error) {
	options.Logger.Info("Using dummy MIDI client for non-macOS system")
	return &DummyMIDIClient{
		logger: options.Logger,
	}, nil
}

func (m *DummyMIDIClient) ListDevices() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListDevices called on dummy MIDI client")
	return nil, ErrUnavailable
}

func (m *DummyMIDIClient) SelectDevice(deviceID int) error {
	m.logger.Warn("SelectDevice called on dummy MIDI client",
		m.logger.Field().Int("deviceID", deviceID))
	return ErrUnavailable
}

// StartCapture keeps nothing; receive is never called.
func (m *DummyMIDIClient) StartCapture(receive func(data []byte)) {
	m.logger.Warn("StartCapture called on dummy MIDI client")
}

func (m *DummyMIDIClient) Stop() error {
	return nil
}
