package uwb

import (
	"log"
	"sync"
	"time"
)

// RunState tracks where a Service is in its lifecycle.
type RunState int32

const (
	StateDisconnected RunState = iota
	StateConnected
	StateReading
	StateStopped
)

func (s RunState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateReading:
		return "reading"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Service orchestrates a Locator's lifecycle:
//
//	disconnected -> connected -> reading -> stopped -> disconnected
//
// It guarantees the polling goroutine is stopped before the transport
// closes; closing the port while an exchange is mid-read is undefined
// I/O behavior.
type Service struct {
	loc    Locator
	poller *Poller

	mu    sync.Mutex
	state RunState
}

// NewService wraps loc with lifecycle management and continuous
// polling. The poller's shared state is created here and lives as long
// as the service.
func NewService(loc Locator, idleYield time.Duration, debug bool) *Service {
	return &Service{
		loc:    loc,
		poller: NewPoller(loc, idleYield, debug),
	}
}

// Connect opens the underlying link. On failure the service stays
// disconnected and the error surfaces to the caller, who may retry.
func (s *Service) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateDisconnected {
		return nil
	}
	if err := s.loc.Connect(); err != nil {
		return err
	}
	s.state = StateConnected
	return nil
}

// StartContinuousReading spawns the polling goroutine. A no-op when
// already reading or not yet connected.
func (s *Service) StartContinuousReading() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateConnected, StateStopped:
		s.poller.Start()
		s.state = StateReading
	}
}

// StopReading clears the polling flag and joins the goroutine with a
// bounded wait. Best-effort: the loop is asked to stop, not killed.
func (s *Service) StopReading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopReadingLocked()
}

func (s *Service) stopReadingLocked() {
	s.poller.Stop()
	if s.state == StateReading {
		s.state = StateStopped
	}
}

// Disconnect stops reading unconditionally (a safe no-op if already
// stopped) and then closes the link. The ordering is mandatory.
func (s *Service) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisconnected {
		return nil
	}
	s.stopReadingLocked()
	err := s.loc.Close()
	s.state = StateDisconnected
	log.Printf("[uwb] disconnected from %s", s.loc.Name())
	return err
}

// GetLatestPosition returns the freshest accepted position, or false if
// none has arrived yet. Transient link trouble is invisible here beyond
// a stale timestamp.
func (s *Service) GetLatestPosition() (Position, bool) {
	return s.poller.Latest()
}

// Stats exposes poller throughput accounting for external consumers.
func (s *Service) Stats() PollStats {
	return s.poller.Stats()
}

// State returns the current lifecycle state.
func (s *Service) State() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
