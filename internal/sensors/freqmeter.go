// Package sensors holds the peer sensor drivers that share the
// positioning daemon's start/stop lifecycle shape: each owns a scoped
// hardware resource, runs a periodic read-and-log loop, and releases
// the resource on stop.
package sensors

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// FreqMeter counts edges on a GPIO line and reports the observed
// frequency once per second. It backs a simple pulse-output sensor
// (flow meter, proximity switch, encoder channel).
type FreqMeter struct {
	cfg  FreqMeterConfig
	line io.Closer

	edges   atomic.Uint64
	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}

	mu sync.Mutex
	hz float64
}

// FreqMeterConfig selects the GPIO line to monitor.
type FreqMeterConfig struct {
	Chip  string `yaml:"chip" json:"chip"`   // e.g. "gpiochip0"
	Line  int    `yaml:"line" json:"line"`   // BCM line offset
	Edge  string `yaml:"edge" json:"edge"`   // "rising", "falling", "both"
	Debug bool   `yaml:"debug" json:"debug"`
}

var requestEdgeLineFn = requestEdgeLine

// NewFreqMeter creates a frequency meter. The GPIO line is not
// requested until Start.
func NewFreqMeter(cfg FreqMeterConfig) *FreqMeter {
	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}
	if cfg.Edge == "" {
		cfg.Edge = "rising"
	}
	return &FreqMeter{cfg: cfg}
}

// Start requests the GPIO line and spawns the reporting loop. A no-op
// when already running.
func (f *FreqMeter) Start() error {
	if !f.running.CompareAndSwap(false, true) {
		return nil
	}

	line, err := requestEdgeLineFn(f.cfg, f.onEdge)
	if err != nil {
		f.running.Store(false)
		return fmt.Errorf("sensors: gpio line %s:%d: %w", f.cfg.Chip, f.cfg.Line, err)
	}
	f.line = line
	f.stop = make(chan struct{})
	f.done = make(chan struct{})
	go f.reportLoop(f.stop, f.done)

	log.Printf("[freq] monitoring %s line %d (%s edges)", f.cfg.Chip, f.cfg.Line, f.cfg.Edge)
	return nil
}

// Stop releases the GPIO line and halts reporting. Safe to call when
// not running.
func (f *FreqMeter) Stop() {
	if !f.running.CompareAndSwap(true, false) {
		return
	}
	close(f.stop)
	<-f.done
	if f.line != nil {
		f.line.Close()
		f.line = nil
	}
	log.Printf("[freq] stopped")
}

// Frequency returns the most recently reported frequency in Hz.
func (f *FreqMeter) Frequency() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hz
}

// onEdge runs in the GPIO event goroutine; it must stay cheap.
func (f *FreqMeter) onEdge() {
	f.edges.Add(1)
}

func (f *FreqMeter) reportLoop(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now

			count := f.edges.Swap(0)
			hz := float64(count) / elapsed.Seconds()

			f.mu.Lock()
			f.hz = hz
			f.mu.Unlock()

			if f.cfg.Debug {
				log.Printf("[freq] %d edges, %.1f Hz", count, hz)
			}
		}
	}
}
