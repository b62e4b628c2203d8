package uwb

import "time"

// MockPort implements SerialPort for testing. Read serves scripted
// bytes in configurable chunks; an exhausted script reads as a serial
// timeout (zero bytes, nil error), matching how a real port behaves
// with a read timeout set.
type MockPort struct {
	ReadData    []byte
	ChunkSize   int // max bytes returned per Read; 0 means no limit
	WrittenData []byte
	ReadError   error
	WriteError  error
	CloseError  error
	Closed      bool
	ResetCount  int
	ReadTimeout time.Duration
}

func (m *MockPort) Read(p []byte) (int, error) {
	if m.ReadError != nil {
		return 0, m.ReadError
	}
	if len(m.ReadData) == 0 {
		// Timeout: no data arrived within the read timeout.
		return 0, nil
	}
	limit := len(p)
	if m.ChunkSize > 0 && limit > m.ChunkSize {
		limit = m.ChunkSize
	}
	n := copy(p[:limit], m.ReadData)
	m.ReadData = m.ReadData[n:]
	return n, nil
}

func (m *MockPort) Write(p []byte) (int, error) {
	if m.WriteError != nil {
		return 0, m.WriteError
	}
	m.WrittenData = append(m.WrittenData, p...)
	return len(p), nil
}

func (m *MockPort) Close() error {
	m.Closed = true
	return m.CloseError
}

func (m *MockPort) SetReadTimeout(t time.Duration) error {
	m.ReadTimeout = t
	return nil
}

// ResetInputBuffer counts invocations. Scripted ReadData stands for
// bytes that arrive after the request goes out, so it is not discarded.
func (m *MockPort) ResetInputBuffer() error {
	m.ResetCount++
	return nil
}
