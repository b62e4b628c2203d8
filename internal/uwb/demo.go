package uwb

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// DemoTag generates simulated ranging solutions for development and
// testing without hardware. It refreshes its solution at a fixed rate
// and re-serves the identical value in between, the same way a real tag
// answers saturation polling, so duplicate suppression sees realistic
// input.
type DemoTag struct {
	mu        sync.Mutex
	connected bool
	t         float64
	current   Position
	nextCalc  time.Time
}

// demoSolutionInterval is how often the simulated tag computes a new
// ranging solution (10 Hz, a typical DWM1001 update rate).
const demoSolutionInterval = 100 * time.Millisecond

func NewDemoTag() *DemoTag { return &DemoTag{} }

func (d *DemoTag) Name() string { return "Demo (Simulated)" }

func (d *DemoTag) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = true
	return nil
}

func (d *DemoTag) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	return nil
}

// GetLocation walks a noisy circle around the origin. A fresh solution
// appears every demoSolutionInterval; until then the previous one is
// repeated bit-for-bit.
func (d *DemoTag) GetLocation() LocationData {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return LocationData{}
	}

	now := time.Now()
	if now.After(d.nextCalc) {
		d.t += 0.1
		d.current = Position{
			X:         3.0*math.Cos(d.t*0.2) + rand.Float64()*0.05,
			Y:         3.0*math.Sin(d.t*0.2) + rand.Float64()*0.05,
			Z:         1.2 + rand.Float64()*0.02,
			Quality:   uint8(60 + rand.Intn(40)),
			Timestamp: now,
		}
		d.nextCalc = now.Add(demoSolutionInterval)
	}

	// Emulate one UART round trip so the poll loop does not spin
	// unrealistically fast.
	time.Sleep(2 * time.Millisecond)

	pos := d.current
	return LocationData{Position: &pos}
}
