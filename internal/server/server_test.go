package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uwbworks/uwbtagd/internal/uwb"
)

type fakeSource struct {
	pos  uwb.Position
	have bool
}

func (f *fakeSource) GetLatestPosition() (uwb.Position, bool) { return f.pos, f.have }
func (f *fakeSource) Stats() uwb.PollStats {
	return uwb.PollStats{PollRate: 120, UpdateRate: 9.5}
}

func TestHandlePositionNoneYet(t *testing.T) {
	srv := New(DefaultConfig(), &fakeSource{}, nil)

	rec := httptest.NewRecorder()
	srv.handlePosition(rec, httptest.NewRequest(http.MethodGet, "/api/position", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"position":null}`, rec.Body.String())
}

func TestHandlePosition(t *testing.T) {
	src := &fakeSource{
		pos:  uwb.Position{X: 1.25, Y: -0.5, Z: 0.75, Quality: 80, Timestamp: time.Now()},
		have: true,
	}
	srv := New(DefaultConfig(), src, nil)

	rec := httptest.NewRecorder()
	srv.handlePosition(rec, httptest.NewRequest(http.MethodGet, "/api/position", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Position uwb.Position `json:"position"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1.25, body.Position.X)
	assert.Equal(t, uint8(80), body.Position.Quality)
}

func TestHandlePositionMethodNotAllowed(t *testing.T) {
	srv := New(DefaultConfig(), &fakeSource{}, nil)

	rec := httptest.NewRecorder()
	srv.handlePosition(rec, httptest.NewRequest(http.MethodPost, "/api/position", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleStats(t *testing.T) {
	srv := New(DefaultConfig(), &fakeSource{}, nil)

	rec := httptest.NewRecorder()
	srv.handleStats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var stats uwb.PollStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 120.0, stats.PollRate)
	assert.Equal(t, 9.5, stats.UpdateRate)
}

func TestHandleConfig(t *testing.T) {
	srv := New(DefaultConfig(), &fakeSource{}, nil)

	rec := httptest.NewRecorder()
	srv.handleConfig(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var cfg Config
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, "demo", cfg.Tag.Type)
}
