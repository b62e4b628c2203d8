package uwb

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// defaultIdleYield is slept only when an exchange came back empty,
	// so a disconnected link does not peg a core. When data is flowing
	// the loop re-requests immediately to saturate the link.
	defaultIdleYield = 100 * time.Microsecond

	// reportInterval is how often throughput statistics are logged and
	// the counters reset.
	reportInterval = time.Second

	// stopJoinTimeout bounds how long Stop waits for the loop to
	// observe the cleared flag. Best-effort: if the loop is still in a
	// bounded read, Stop returns anyway.
	stopJoinTimeout = time.Second
)

// PollStats is a snapshot of poller accounting.
type PollStats struct {
	// Counters since the last one-second report.
	PollCount   uint64 `json:"pollCount"`
	UpdateCount uint64 `json:"updateCount"`
	// Rates computed at the last report.
	PollRate   float64 `json:"pollRate"`   // exchanges per second
	UpdateRate float64 `json:"updateRate"` // fresh solutions per second
}

// Poller drives a Locator at maximum rate on a dedicated goroutine and
// keeps the freshest position. Identical consecutive readings are the
// link re-sending an unchanged solution while idle; duplicate
// suppression keeps them out of the update accounting.
//
// The lastPos/counters triple is the only cross-goroutine mutable
// state. One mutex guards it, held only for compare-and-maybe-update or
// a copy-out, never across an I/O call.
type Poller struct {
	loc       Locator
	idleYield time.Duration
	debug     bool

	mu          sync.Mutex
	lastPos     Position
	haveLast    bool
	pollCount   uint64
	updateCount uint64
	pollRate    float64
	updateRate  float64

	running atomic.Bool
	done    chan struct{}
}

// NewPoller creates a poller over loc. The shared state lives as long
// as the poller; it is never reset except for the per-report counters.
func NewPoller(loc Locator, idleYield time.Duration, debug bool) *Poller {
	if idleYield <= 0 {
		idleYield = defaultIdleYield
	}
	return &Poller{
		loc:       loc,
		idleYield: idleYield,
		debug:     debug,
	}
}

// Start spawns the polling goroutine. Calling it while already running
// is a no-op.
func (p *Poller) Start() {
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	p.done = make(chan struct{})
	go p.loop(p.done)
}

// Stop clears the running flag and waits, bounded, for the loop to
// exit. Cancellation is cooperative: the loop checks the flag once per
// iteration, and every blocking call inside an iteration is itself
// timeout-bounded, so the worst-case stop latency is one in-flight
// exchange plus the join timeout.
func (p *Poller) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	select {
	case <-p.done:
	case <-time.After(stopJoinTimeout):
		log.Printf("[poll] loop did not confirm stop within %v", stopJoinTimeout)
	}
}

// Running reports whether the polling goroutine is active.
func (p *Poller) Running() bool { return p.running.Load() }

// Latest copies out the freshest position under the shared lock, so a
// reader never observes a half-written value.
func (p *Poller) Latest() (Position, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPos, p.haveLast
}

// Stats copies out the current accounting.
func (p *Poller) Stats() PollStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PollStats{
		PollCount:   p.pollCount,
		UpdateCount: p.updateCount,
		PollRate:    p.pollRate,
		UpdateRate:  p.updateRate,
	}
}

func (p *Poller) loop(done chan struct{}) {
	defer close(done)
	log.Printf("[poll] starting high-speed position polling (%s)", p.loc.Name())

	lastReport := time.Now()
	for p.running.Load() {
		// I/O happens outside the lock.
		loc := p.loc.GetLocation()
		p.observe(loc)

		if now := time.Now(); now.Sub(lastReport) >= reportInterval {
			p.report(now.Sub(lastReport))
			lastReport = now
		}

		// No sleep while data flows: loop straight into the next
		// request to catch the next solution as soon as it exists.
		if loc.Position == nil {
			time.Sleep(p.idleYield)
		}
	}
	log.Printf("[poll] polling stopped")
}

// observe accounts for one exchange: every poll counts, but only a
// position whose coordinates differ from the previous one counts as an
// update. Comparison has no memory beyond the immediately previous
// value, so A after B is "new" again.
func (p *Poller) observe(loc LocationData) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pollCount++
	if loc.Position == nil {
		return
	}

	if p.haveLast && loc.Position.SameCoords(p.lastPos) {
		return
	}
	p.lastPos = *loc.Position
	p.haveLast = true
	p.updateCount++

	if p.debug {
		log.Printf("[poll] new position (%.2f, %.2f, %.2f) quality=%d",
			p.lastPos.X, p.lastPos.Y, p.lastPos.Z, p.lastPos.Quality)
	}
}

// report logs throughput over the elapsed interval and zeroes the
// counters as part of the same step, so they always read "since last
// report".
func (p *Poller) report(elapsed time.Duration) {
	p.mu.Lock()
	pollRate := float64(p.pollCount) / elapsed.Seconds()
	updateRate := float64(p.updateCount) / elapsed.Seconds()
	p.pollRate = pollRate
	p.updateRate = updateRate
	p.pollCount = 0
	p.updateCount = 0
	current, have := p.lastPos, p.haveLast
	p.mu.Unlock()

	if have {
		log.Printf("[poll] poll: %.0fHz | fresh updates: %.1fHz | pos: (%.2f, %.2f)",
			pollRate, updateRate, current.X, current.Y)
	} else {
		log.Printf("[poll] poll: %.0fHz | fresh updates: %.1fHz", pollRate, updateRate)
	}
}
