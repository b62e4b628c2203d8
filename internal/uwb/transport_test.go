package uwb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadExactAcrossChunks(t *testing.T) {
	port := &MockPort{ReadData: []byte{1, 2, 3, 4, 5}, ChunkSize: 2}
	tr := NewTransportWithPort(port)

	buf := make([]byte, 5)
	require.True(t, tr.ReadExact(buf))
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, buf)
}

func TestReadExactTimeout(t *testing.T) {
	// Fewer bytes than asked for is a timeout signal, never a partial
	// success.
	port := &MockPort{ReadData: []byte{1, 2}}
	tr := NewTransportWithPort(port)

	assert.False(t, tr.ReadExact(make([]byte, 5)))
}

func TestReadExactReadError(t *testing.T) {
	port := &MockPort{ReadError: errors.New("io failure")}
	tr := NewTransportWithPort(port)

	assert.False(t, tr.ReadExact(make([]byte, 1)))
}

func TestWriteError(t *testing.T) {
	port := &MockPort{WriteError: errors.New("io failure")}
	tr := NewTransportWithPort(port)

	assert.Error(t, tr.Write([]byte{0x0C, 0x00}))
}

func TestCloseIdempotent(t *testing.T) {
	port := &MockPort{}
	tr := NewTransportWithPort(port)

	require.True(t, tr.IsOpen())
	require.NoError(t, tr.Close())
	assert.True(t, port.Closed)
	assert.False(t, tr.IsOpen())

	// Second close must not touch the port again.
	port.CloseError = errors.New("already closed")
	assert.NoError(t, tr.Close())
}

func TestClosedTransportRefusesIO(t *testing.T) {
	tr := NewTransportWithPort(&MockPort{ReadData: []byte{1, 2, 3}})
	require.NoError(t, tr.Close())

	assert.Error(t, tr.Write([]byte{0x0C}))
	assert.False(t, tr.ReadExact(make([]byte, 1)))
}

func TestResetInput(t *testing.T) {
	port := &MockPort{}
	tr := NewTransportWithPort(port)

	tr.ResetInput()
	tr.ResetInput()
	assert.Equal(t, 2, port.ResetCount)
}
