package sensors

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLine struct {
	closed bool
}

func (f *fakeLine) Close() error {
	f.closed = true
	return nil
}

func withFakeLine(t *testing.T, err error) (*fakeLine, *func()) {
	t.Helper()
	line := &fakeLine{}
	var onEdge func()
	orig := requestEdgeLineFn
	requestEdgeLineFn = func(cfg FreqMeterConfig, handler func()) (io.Closer, error) {
		if err != nil {
			return nil, err
		}
		onEdge = handler
		return line, nil
	}
	t.Cleanup(func() { requestEdgeLineFn = orig })
	return line, &onEdge
}

func TestFreqMeterStartStop(t *testing.T) {
	line, _ := withFakeLine(t, nil)
	m := NewFreqMeter(FreqMeterConfig{Line: 4})

	require.NoError(t, m.Start())
	require.NoError(t, m.Start()) // idempotent

	m.Stop()
	m.Stop() // safe when already stopped
	assert.True(t, line.closed, "gpio line must be released on stop")
}

func TestFreqMeterStartFailure(t *testing.T) {
	withFakeLine(t, errors.New("line busy"))
	m := NewFreqMeter(FreqMeterConfig{Line: 4})

	assert.Error(t, m.Start())

	// A failed start leaves the meter stoppable and restartable.
	m.Stop()
}

func TestFreqMeterCountsEdges(t *testing.T) {
	_, onEdge := withFakeLine(t, nil)
	m := NewFreqMeter(FreqMeterConfig{Line: 4})

	require.NoError(t, m.Start())
	defer m.Stop()

	for i := 0; i < 50; i++ {
		(*onEdge)()
	}
	assert.Equal(t, uint64(50), m.edges.Load())
}

func TestFreqMeterReportsFrequency(t *testing.T) {
	_, onEdge := withFakeLine(t, nil)
	m := NewFreqMeter(FreqMeterConfig{Line: 4})

	require.NoError(t, m.Start())
	defer m.Stop()

	for i := 0; i < 20; i++ {
		(*onEdge)()
	}

	// The reporter ticks once per second.
	require.Eventually(t, func() bool {
		return m.Frequency() > 0
	}, 3*time.Second, 50*time.Millisecond)
	assert.InDelta(t, 20.0, m.Frequency(), 5.0)
}

func TestFreqMeterDefaults(t *testing.T) {
	m := NewFreqMeter(FreqMeterConfig{})
	assert.Equal(t, "gpiochip0", m.cfg.Chip)
	assert.Equal(t, "rising", m.cfg.Edge)
}
