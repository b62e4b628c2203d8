package uwb

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lifecycleLocator records lifecycle calls and their ordering relative
// to polling.
type lifecycleLocator struct {
	mu         sync.Mutex
	connectErr error
	connected  bool
	closeCalls int
	polling    int // in-flight GetLocation calls
	closedMid  bool
}

func (l *lifecycleLocator) Name() string { return "lifecycle" }

func (l *lifecycleLocator) Connect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.connectErr != nil {
		return l.connectErr
	}
	l.connected = true
	return nil
}

func (l *lifecycleLocator) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeCalls++
	l.connected = false
	if l.polling > 0 {
		l.closedMid = true
	}
	return nil
}

func (l *lifecycleLocator) GetLocation() LocationData {
	l.mu.Lock()
	l.polling++
	l.mu.Unlock()

	time.Sleep(time.Millisecond)
	pos := Position{X: 1, Quality: 10}

	l.mu.Lock()
	l.polling--
	l.mu.Unlock()
	return LocationData{Position: &pos}
}

func TestServiceLifecycle(t *testing.T) {
	loc := &lifecycleLocator{}
	svc := NewService(loc, 0, false)

	assert.Equal(t, StateDisconnected, svc.State())

	require.NoError(t, svc.Connect())
	assert.Equal(t, StateConnected, svc.State())

	svc.StartContinuousReading()
	assert.Equal(t, StateReading, svc.State())

	svc.StartContinuousReading() // no-op while reading
	assert.Equal(t, StateReading, svc.State())

	svc.StopReading()
	assert.Equal(t, StateStopped, svc.State())

	require.NoError(t, svc.Disconnect())
	assert.Equal(t, StateDisconnected, svc.State())
	assert.Equal(t, 1, loc.closeCalls)
}

func TestServiceConnectFailure(t *testing.T) {
	loc := &lifecycleLocator{connectErr: errors.New("no such port")}
	svc := NewService(loc, 0, false)

	assert.Error(t, svc.Connect())
	assert.Equal(t, StateDisconnected, svc.State())
}

func TestServiceStartRequiresConnect(t *testing.T) {
	svc := NewService(&lifecycleLocator{}, 0, false)
	svc.StartContinuousReading()
	assert.Equal(t, StateDisconnected, svc.State())
}

func TestServiceDisconnectStopsReadingFirst(t *testing.T) {
	loc := &lifecycleLocator{}
	svc := NewService(loc, 0, false)

	require.NoError(t, svc.Connect())
	svc.StartContinuousReading()

	// Disconnect without an explicit StopReading: the polling loop must
	// be joined before the link closes.
	require.NoError(t, svc.Disconnect())
	assert.False(t, loc.closedMid, "transport closed while an exchange was in flight")
	assert.Equal(t, StateDisconnected, svc.State())
}

func TestServiceDisconnectIdempotent(t *testing.T) {
	loc := &lifecycleLocator{}
	svc := NewService(loc, 0, false)

	require.NoError(t, svc.Connect())
	require.NoError(t, svc.Disconnect())
	require.NoError(t, svc.Disconnect())
	assert.Equal(t, 1, loc.closeCalls)
}

func TestServiceRestartAfterStop(t *testing.T) {
	loc := &lifecycleLocator{}
	svc := NewService(loc, 0, false)

	require.NoError(t, svc.Connect())
	svc.StartContinuousReading()
	svc.StopReading()

	svc.StartContinuousReading()
	assert.Equal(t, StateReading, svc.State())

	require.NoError(t, svc.Disconnect())
}

func TestServiceLatestPosition(t *testing.T) {
	loc := &lifecycleLocator{}
	svc := NewService(loc, 0, false)

	_, ok := svc.GetLatestPosition()
	assert.False(t, ok, "no position before reading starts")

	require.NoError(t, svc.Connect())
	svc.StartContinuousReading()

	require.Eventually(t, func() bool {
		_, ok := svc.GetLatestPosition()
		return ok
	}, time.Second, 5*time.Millisecond)

	pos, ok := svc.GetLatestPosition()
	require.True(t, ok)
	assert.Equal(t, 1.0, pos.X)

	require.NoError(t, svc.Disconnect())
}
