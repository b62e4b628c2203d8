package uwb

import (
	"log"
	"time"
)

// cmdLocGet is the dwm_loc_get request of the DWM1001 UART generic
// mode API: command byte 0x0C followed by a zero length byte.
var cmdLocGet = []byte{0x0C, 0x00}

// defaultResponseWindow bounds how long one exchange waits for a valid
// response frame. Kept short so callers fail fast and retry instead of
// blocking.
const defaultResponseWindow = 50 * time.Millisecond

// DWM1001 talks to a DWM1001-DEV tag over its UART generic-mode API.
//
// It is the request/response engine only: one GetLocation call is one
// exchange. Continuous polling and the latest-position cache live in
// Service.
type DWM1001 struct {
	tr     *Transport
	window time.Duration
	debug  bool
}

// DWM1001Config holds connection configuration for the DWM1001 backend.
type DWM1001Config struct {
	PortPath string `yaml:"port_path" json:"portPath"`
	BaudRate int    `yaml:"baud_rate" json:"baudRate"`
	WindowMs int    `yaml:"window_ms" json:"windowMs"` // response window per exchange
	Debug    bool   `yaml:"debug" json:"debug"`        // per-frame debug logging
}

// NewDWM1001 creates a DWM1001 backend. The port is opened by Connect.
func NewDWM1001(cfg DWM1001Config) *DWM1001 {
	window := time.Duration(cfg.WindowMs) * time.Millisecond
	if window <= 0 {
		window = defaultResponseWindow
	}
	return &DWM1001{
		tr:     NewTransport(cfg.PortPath, cfg.BaudRate),
		window: window,
		debug:  cfg.Debug,
	}
}

// newDWM1001WithTransport wires an existing transport in. Used by tests
// to substitute a mock serial port.
func newDWM1001WithTransport(tr *Transport, window time.Duration, debug bool) *DWM1001 {
	if window <= 0 {
		window = defaultResponseWindow
	}
	return &DWM1001{tr: tr, window: window, debug: debug}
}

func (d *DWM1001) Name() string { return "DWM1001" }

// Connect opens the serial port.
func (d *DWM1001) Connect() error {
	if err := d.tr.Open(); err != nil {
		return err
	}
	log.Printf("[uwb] connected to DWM1001 (generic mode)")
	return nil
}

// Close shuts the serial port down. Safe to call more than once.
func (d *DWM1001) Close() error {
	return d.tr.Close()
}

// GetLocation performs one position exchange: flush stale input, send
// the request, then drain frames for one bounded window. The first
// valid, non-sentinel position frame returns immediately; the engine
// never waits out the remainder of the window once good data arrives.
// A device-reported error abandons the window early, since no valid
// frame follows it in the same cycle. Anything else that fails to
// decode is skipped.
//
// Errors do not escape: a failed exchange is an empty LocationData, and
// the caller retries on its own schedule.
func (d *DWM1001) GetLocation() LocationData {
	if !d.tr.IsOpen() {
		return LocationData{}
	}

	d.tr.ResetInput()

	if err := d.tr.Write(cmdLocGet); err != nil {
		if d.debug {
			log.Printf("[uwb] request write failed: %v", err)
		}
		return LocationData{}
	}

	start := time.Now()
	for time.Since(start) < d.window {
		f, ok := ReadFrame(d.tr)
		if !ok {
			continue
		}

		switch f.Type {
		case frameTypePosition:
			if len(f.Value) < positionPayloadLen {
				continue
			}
			pos, ok := DecodePosition(f.Value)
			if !ok {
				if d.debug {
					log.Printf("[uwb] ignoring zero reading with quality=0")
				}
				continue
			}
			if d.debug {
				log.Printf("[uwb] position x=%.3fm y=%.3fm z=%.3fm quality=%d",
					pos.X, pos.Y, pos.Z, pos.Quality)
			}
			return LocationData{Position: &pos}

		case frameTypeStatus:
			if len(f.Value) > 0 && f.Value[0] != 0 {
				if d.debug {
					log.Printf("[uwb] device reported error 0x%02X", f.Value[0])
				}
				return LocationData{}
			}
		}
	}

	return LocationData{}
}
