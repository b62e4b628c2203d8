package uwb

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// SerialPort is the minimal surface the transport needs from a serial
// port. go.bug.st/serial.Port satisfies it; MockPort implements it for
// tests.
type SerialPort interface {
	io.ReadWriter
	io.Closer
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

const (
	// DefaultBaudRate matches the DWM1001 UART API default.
	DefaultBaudRate = 115200

	// defaultReadTimeout bounds a single port read. Kept short so a
	// silent link never blocks a caller for long.
	defaultReadTimeout = 20 * time.Millisecond
)

// Transport owns the serial handle for one tag: open/close, buffer
// reset, write, and timeout-bounded exact reads.
type Transport struct {
	path        string
	baudRate    int
	readTimeout time.Duration

	mu   sync.Mutex
	port SerialPort
}

// NewTransport creates a transport for the given port path. The port is
// not opened until Open is called.
func NewTransport(path string, baudRate int) *Transport {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	return &Transport{
		path:        path,
		baudRate:    baudRate,
		readTimeout: defaultReadTimeout,
	}
}

// NewTransportWithPort wraps an already-open port. Used by tests and by
// callers that manage port opening themselves.
func NewTransportWithPort(port SerialPort) *Transport {
	return &Transport{port: port, readTimeout: defaultReadTimeout}
}

// Open opens the serial port at 8N1 and applies the read timeout.
func (t *Transport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port != nil {
		return nil
	}

	mode := &serial.Mode{
		BaudRate: t.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(t.path, mode)
	if err != nil {
		return fmt.Errorf("uwb: failed to open %s: %w", t.path, err)
	}
	if err := port.SetReadTimeout(t.readTimeout); err != nil {
		port.Close()
		return fmt.Errorf("uwb: failed to set read timeout: %w", err)
	}
	port.ResetInputBuffer()
	t.port = port
	return nil
}

// Close closes the port. Safe to call more than once.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

// IsOpen reports whether the port is currently open.
func (t *Transport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Write sends p to the port.
func (t *Transport) Write(p []byte) error {
	port := t.currentPort()
	if port == nil {
		return fmt.Errorf("uwb: port not open")
	}
	if _, err := port.Write(p); err != nil {
		return fmt.Errorf("uwb: write failed: %w", err)
	}
	return nil
}

// ReadExact fills buf from the port. Each underlying read is bounded by
// the configured timeout; a read that returns zero bytes means the link
// went silent and the whole call reports false. A short fill is only
// ever a timeout signal, never a partial success.
func (t *Transport) ReadExact(buf []byte) bool {
	port := t.currentPort()
	if port == nil {
		return false
	}
	got := 0
	for got < len(buf) {
		n, err := port.Read(buf[got:])
		if err != nil {
			return false
		}
		if n == 0 {
			// Timeout with no data.
			return false
		}
		got += n
	}
	return true
}

// ResetInput discards any bytes queued before a new request so a stale
// response from a previous cycle cannot be misread as the answer to the
// current one.
func (t *Transport) ResetInput() {
	if port := t.currentPort(); port != nil {
		port.ResetInputBuffer()
	}
}

func (t *Transport) currentPort() SerialPort {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port
}
