//go:build darwin
// +build darwin

package mididarwin

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/leandrodaf/midilooper/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// Error definitions for MIDI connection and handling issues.
var (
	ErrNoMIDIDevices       = errors.New("no MIDI devices found")
	ErrInvalidMIDIDevice   = errors.New("invalid MIDI device")
	ErrMIDIConnectionError = errors.New("error connecting to MIDI device")
	ErrCreateInputPort     = errors.New("error creating input port")
	ErrEmptyMIDIPacket     = errors.New("empty MIDI packet")
)

// internalPortConnection is an interface for handling disconnection from a MIDI port.
type internalPortConnection interface {
	Disconnect()
}

// receiver is the type stored in ClientMid.receive.
type receiver func(data []byte)

// ClientMid manages MIDI input on Darwin (macOS) systems.
// CoreMIDI packets are handed, as raw bytes, to the receiver given to StartCapture.
type ClientMid struct {
	logger         contracts.Logger
	receive        atomic.Value              // Atomic storage for the receiver to ensure thread safety.
	client         coremidi.Client           // CoreMIDI client instance for MIDI operations.
	inputPort      coremidi.InputPort        // Input port for receiving MIDI events.
	portConn       internalPortConnection    // Connection to the MIDI port.
	coreMIDIConfig *contracts.CoreMIDIConfig // Configuration for MIDI client.
	mu             sync.Mutex                // Mutex for thread safety on shared resources.
	capturing      bool                      // Indicates if event capturing is currently active.
	wg             sync.WaitGroup            // WaitGroup for managing concurrent MIDI event processing.
	stopOnce       sync.Once                 // Ensures Stop() is executed only once.
}

// NewMIDIClient initializes a new ClientMid for MIDI input on macOS.
func NewMIDIClient(options *contracts.LooperOptions) (contracts.ClientMIDI, error) {
	client, err := coremidi.NewClient(options.CoreMIDIConfig.ClientName)
	if err != nil {
		return nil, err
	}
	options.Logger.Info("MIDI client successfully created")

	return &ClientMid{
		logger:         options.Logger,
		client:         client,
		coreMIDIConfig: options.CoreMIDIConfig,
	}, nil
}

// ListDevices retrieves and returns available MIDI devices.
// If no devices are found, an error is logged and returned.
func (m *ClientMid) ListDevices() ([]contracts.DeviceInfo, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI sources: %w", err)
	}
	if len(sources) == 0 {
		m.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, len(sources))
	for i, source := range sources {
		sourceEntity := source.Entity()
		devices[i] = contracts.DeviceInfo{
			Name:         source.Name(),
			EntityName:   sourceEntity.Name(),
			Manufacturer: sourceEntity.Manufacturer(),
		}
	}
	return devices, nil
}

// SelectDevice selects a MIDI device by ID and connects to it.
// If a device is already connected, it disconnects first.
func (m *ClientMid) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sources, err := coremidi.AllSources()
	if err != nil {
		return fmt.Errorf("error retrieving MIDI sources: %w", err)
	}
	if deviceID < 0 || deviceID >= len(sources) {
		m.logger.Error(ErrInvalidMIDIDevice.Error())
		return ErrInvalidMIDIDevice
	}

	if m.portConn != nil {
		m.portConn.Disconnect()
		m.portConn = nil
	}

	source := sources[deviceID]
	m.logger.Info("MIDI device selected",
		m.logger.Field().Int("deviceID", deviceID),
		m.logger.Field().String("deviceName", source.Name()))

	m.inputPort, err = coremidi.NewInputPort(m.client, "Looper Input", m.handleMIDIMessage)
	if err != nil {
		m.logger.Error(ErrCreateInputPort.Error())
		return fmt.Errorf("%w: %v", ErrCreateInputPort, err)
	}

	m.portConn, err = m.inputPort.Connect(source)
	if err != nil {
		m.logger.Error(ErrMIDIConnectionError.Error())
		return fmt.Errorf("%w: %v", ErrMIDIConnectionError, err)
	}

	m.logger.Info("MIDI device successfully connected")
	return nil
}

// handleMIDIMessage passes the packet bytes to the receiver. CoreMIDI packets
// always start on a status byte, so no framing state crosses packets here.
func (m *ClientMid) handleMIDIMessage(source coremidi.Source, packet coremidi.Packet) {
	m.wg.Add(1)
	defer m.wg.Done()

	receive, _ := m.receive.Load().(receiver)
	if receive == nil {
		m.logger.Warn("receiver not initialized or of invalid type")
		return
	}

	if len(packet.Data) == 0 {
		m.logger.Warn(ErrEmptyMIDIPacket.Error())
		return
	}
	receive(packet.Data)
}

// StartCapture begins capturing MIDI bytes by storing the receiver and marking capturing as active.
func (m *ClientMid) StartCapture(receive func(data []byte)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if receive == nil {
		m.logger.Error("StartCapture called with nil receiver")
		return
	}

	if m.capturing {
		m.logger.Warn("Capture already started; replacing receiver")
	}

	m.logger.Info("Starting MIDI capture")
	m.receive.Store(receiver(receive))
	m.capturing = true
}

// Stop halts MIDI capturing, disconnects from the device, and waits for ongoing processing to complete.
// This function ensures it only executes once, even if called multiple times.
func (m *ClientMid) Stop() error {
	m.stopOnce.Do(func() {
		m.logger.Info("Stopping MIDI capture")
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.capturing {
			m.capturing = false

			if m.portConn != nil {
				m.portConn.Disconnect()
				m.portConn = nil
			}

			// A no-op receiver keeps late callbacks harmless.
			m.receive.Store(receiver(func([]byte) {}))

			m.logger.Info("MIDI capture stopped")
			m.wg.Wait()
		}
	})
	return nil
}
