// Package serialport carries MIDI over a UART using go.bug.st/serial.
package serialport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/leandrodaf/midilooper/sdk/contracts"
)

// DefaultBaud is the MIDI DIN baud rate.
const DefaultBaud = 31250

// readTimeout bounds how long the capture goroutine blocks before checking for Stop.
const readTimeout = 50 * time.Millisecond

// Error definitions for serial port handling.
var (
	ErrNoSerialPorts  = errors.New("no serial ports found")
	ErrInvalidPort    = errors.New("invalid serial port")
	ErrPortNotOpen    = errors.New("serial port not open")
	ErrCaptureRunning = errors.New("capture already started")
)

// openPort is replaced in tests.
var openPort = serial.Open

// listPorts is replaced in tests.
var listPorts = serial.GetPortsList

// ListPorts returns the names of the serial ports present on the system.
func ListPorts() ([]string, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("error listing serial ports: %w", err)
	}
	return ports, nil
}

// Port is a MIDI connection over a serial device. It is both an input
// (contracts.ClientMIDI) and the byte writer used by the output drain.
type Port struct {
	logger contracts.Logger
	baud   int

	mu        sync.Mutex
	port      serial.Port
	name      string
	capturing bool
	stop      chan struct{}
	wg        sync.WaitGroup

	writeMu sync.Mutex
}

// Open opens device at baud. A zero baud selects DefaultBaud.
func Open(device string, baud int, logger contracts.Logger) (*Port, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	p := &Port{logger: logger, baud: baud}
	if err := p.open(device); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Port) open(device string) error {
	port, err := openPort(device, &serial.Mode{BaudRate: p.baud})
	if err != nil {
		p.logger.Error("serial: failed to open port",
			p.logger.Field().String("device", device),
			p.logger.Field().Int("baud", p.baud),
			p.logger.Field().Error("error", err))
		return fmt.Errorf("%w: %s: %v", ErrInvalidPort, device, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("serial: set read timeout on %s: %w", device, err)
	}

	p.port = port
	p.name = device
	p.logger.Info("serial: port opened",
		p.logger.Field().String("device", device),
		p.logger.Field().Int("baud", p.baud))
	return nil
}

// ListDevices lists the serial ports present on the system.
func (p *Port) ListDevices() ([]contracts.DeviceInfo, error) {
	names, err := ListPorts()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		p.logger.Warn(ErrNoSerialPorts.Error())
		return nil, ErrNoSerialPorts
	}

	devices := make([]contracts.DeviceInfo, len(names))
	for i, name := range names {
		devices[i] = contracts.DeviceInfo{Name: name, EntityName: name, Manufacturer: "serial"}
	}
	return devices, nil
}

// SelectDevice closes the current port and opens the deviceID-th serial port.
// An active capture is stopped first.
func (p *Port) SelectDevice(deviceID int) error {
	names, err := ListPorts()
	if err != nil {
		return err
	}
	if deviceID < 0 || deviceID >= len(names) {
		p.logger.Error(ErrInvalidPort.Error(), p.logger.Field().Int("deviceID", deviceID))
		return ErrInvalidPort
	}

	p.stopCapture()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if p.port != nil {
		_ = p.port.Close()
		p.port = nil
	}
	return p.open(names[deviceID])
}

// StartCapture reads bytes from the port in a goroutine and passes each chunk
// to receive. The slice is only valid for the duration of the call.
func (p *Port) StartCapture(receive func(data []byte)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if receive == nil {
		p.logger.Error("StartCapture called with nil receiver")
		return
	}
	if p.port == nil {
		p.logger.Error(ErrPortNotOpen.Error())
		return
	}
	if p.capturing {
		p.logger.Warn(ErrCaptureRunning.Error())
		return
	}

	p.capturing = true
	p.stop = make(chan struct{})
	p.wg.Add(1)
	go p.readLoop(p.port, p.stop, receive)

	p.logger.Info("serial: capture started", p.logger.Field().String("device", p.name))
}

func (p *Port) readLoop(port serial.Port, stop <-chan struct{}, receive func(data []byte)) {
	defer p.wg.Done()

	var buf [64]byte
	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := port.Read(buf[:])
		if err != nil {
			select {
			case <-stop:
			default:
				p.logger.Error("serial: read error", p.logger.Field().Error("error", err))
			}
			return
		}
		if n > 0 {
			receive(buf[:n])
		}
	}
}

// Write sends data to the port.
func (p *Port) Write(data []byte) (int, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if p.port == nil {
		return 0, ErrPortNotOpen
	}
	return p.port.Write(data)
}

// stopCapture ends the read goroutine and waits for it.
func (p *Port) stopCapture() {
	p.mu.Lock()
	if !p.capturing {
		p.mu.Unlock()
		return
	}
	p.capturing = false
	close(p.stop)
	p.mu.Unlock()

	p.wg.Wait()
}

// Stop ends capture and closes the port.
func (p *Port) Stop() error {
	p.stopCapture()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if p.port == nil {
		return nil
	}
	p.logger.Info("serial: closing port", p.logger.Field().String("device", p.name))
	err := p.port.Close()
	p.port = nil
	return err
}

var _ contracts.ClientMIDI = (*Port)(nil)
