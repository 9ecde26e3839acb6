package serialport

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/leandrodaf/midilooper/internal/logger"
)

// fakePort serves queued reads and records writes.
type fakePort struct {
	mu      sync.Mutex
	reads   [][]byte
	written bytes.Buffer
	closed  bool
	mode    *serial.Mode
	timeout time.Duration
}

func (f *fakePort) SetMode(mode *serial.Mode) error { f.mode = mode; return nil }

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return 0, errors.New("port closed")
	}
	if len(f.reads) == 0 {
		f.mu.Unlock()
		time.Sleep(time.Millisecond) // read timeout
		return 0, nil
	}
	chunk := f.reads[0]
	f.reads = f.reads[1:]
	f.mu.Unlock()
	return copy(p, chunk), nil
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written.Write(p)
}

func (f *fakePort) Drain() error             { return nil }
func (f *fakePort) ResetInputBuffer() error  { return nil }
func (f *fakePort) ResetOutputBuffer() error { return nil }
func (f *fakePort) SetDTR(bool) error        { return nil }
func (f *fakePort) SetRTS(bool) error        { return nil }
func (f *fakePort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{}, nil
}
func (f *fakePort) SetReadTimeout(t time.Duration) error { f.timeout = t; return nil }
func (f *fakePort) Break(time.Duration) error            { return nil }

func (f *fakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func withFakes(t *testing.T, ports map[string]*fakePort, names []string) {
	t.Helper()
	prevOpen, prevList := openPort, listPorts
	openPort = func(name string, mode *serial.Mode) (serial.Port, error) {
		p, ok := ports[name]
		if !ok {
			return nil, errors.New("no such device")
		}
		p.mode = mode
		return p, nil
	}
	listPorts = func() ([]string, error) { return names, nil }
	t.Cleanup(func() {
		openPort, listPorts = prevOpen, prevList
	})
}

func TestOpen_DefaultBaud(t *testing.T) {
	fp := &fakePort{}
	withFakes(t, map[string]*fakePort{"/dev/ttyMIDI": fp}, nil)

	p, err := Open("/dev/ttyMIDI", 0, logger.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, DefaultBaud, fp.mode.BaudRate)
	assert.Equal(t, readTimeout, fp.timeout)
	require.NoError(t, p.Stop())
	assert.True(t, fp.closed)
}

func TestOpen_UnknownDevice(t *testing.T) {
	withFakes(t, map[string]*fakePort{}, nil)

	_, err := Open("/dev/missing", DefaultBaud, logger.NewNopLogger())
	assert.ErrorIs(t, err, ErrInvalidPort)
}

func TestPort_CaptureDeliversBytes(t *testing.T) {
	fp := &fakePort{reads: [][]byte{{0x90, 60}, {100}}}
	withFakes(t, map[string]*fakePort{"uart": fp}, nil)

	p, err := Open("uart", DefaultBaud, logger.NewNopLogger())
	require.NoError(t, err)

	var mu sync.Mutex
	var got []byte
	p.StartCapture(func(data []byte) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, data...)
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, time.Millisecond)

	require.NoError(t, p.Stop())
	assert.Equal(t, []byte{0x90, 60, 100}, got)
}

func TestPort_Write(t *testing.T) {
	fp := &fakePort{}
	withFakes(t, map[string]*fakePort{"uart": fp}, nil)

	p, err := Open("uart", DefaultBaud, logger.NewNopLogger())
	require.NoError(t, err)

	n, err := p.Write([]byte{0x80, 60, 0})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{0x80, 60, 0}, fp.written.Bytes())

	require.NoError(t, p.Stop())
	_, err = p.Write([]byte{0x90})
	assert.ErrorIs(t, err, ErrPortNotOpen)
}

func TestPort_ListAndSelectDevice(t *testing.T) {
	a, b := &fakePort{}, &fakePort{}
	withFakes(t, map[string]*fakePort{"a": a, "b": b}, []string{"a", "b"})

	p, err := Open("a", DefaultBaud, logger.NewNopLogger())
	require.NoError(t, err)

	devices, err := p.ListDevices()
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "b", devices[1].Name)

	require.NoError(t, p.SelectDevice(1))
	assert.True(t, a.closed, "previous port closed")

	_, err = p.Write([]byte{0xF8})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF8}, b.written.Bytes())

	assert.ErrorIs(t, p.SelectDevice(5), ErrInvalidPort)
	require.NoError(t, p.Stop())
}

func TestPort_ListDevicesEmpty(t *testing.T) {
	fp := &fakePort{}
	withFakes(t, map[string]*fakePort{"a": fp}, []string{})

	p, err := Open("a", DefaultBaud, logger.NewNopLogger())
	require.NoError(t, err)

	_, err = p.ListDevices()
	assert.ErrorIs(t, err, ErrNoSerialPorts)
}
