package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/uwbworks/uwbtagd/internal/uwb"
)

// PositionSource is the read-only view the feed has of the positioning
// service. It never touches the transport or the shared lock directly.
type PositionSource interface {
	GetLatestPosition() (uwb.Position, bool)
	Stats() uwb.PollStats
}

// FreqSource is the read-only view of the optional frequency meter.
type FreqSource interface {
	Frequency() float64
}

// Server publishes the freshest position and throughput statistics to
// WebSocket clients and over a small JSON API.
type Server struct {
	cfg    *Config
	source PositionSource
	freq   FreqSource // nil when the peer sensor is disabled

	clients   map[*wsClient]struct{}
	clientsMu sync.RWMutex

	upgrader websocket.Upgrader
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Frame is the JSON structure sent to all WebSocket clients.
type Frame struct {
	Position *uwb.Position  `json:"position,omitempty"`
	Stats    *uwb.PollStats `json:"stats,omitempty"`
	FreqHz   *float64       `json:"freqHz,omitempty"`
	Stamp    int64          `json:"stamp"` // Unix ms
}

// New creates a new Server over the given position source.
func New(cfg *Config, source PositionSource, freq FreqSource) *Server {
	return &Server{
		cfg:     cfg,
		source:  source,
		freq:    freq,
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run starts the HTTP server and the broadcast loop, and blocks until
// the context is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/position", s.handlePosition)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/config", s.handleConfig)

	go s.broadcastLoop(ctx)

	srv := &http.Server{
		Addr:    s.cfg.Server.ListenAddr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Printf("[server] listening on %s", s.cfg.Server.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	s.clientsMu.Lock()
	s.clients[client] = struct{}{}
	total := len(s.clients)
	s.clientsMu.Unlock()

	log.Printf("[ws] client connected (%d total)", total)

	// Writer goroutine
	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader goroutine (handle incoming messages / keep-alive)
	go func() {
		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, client)
			total := len(s.clients)
			s.clientsMu.Unlock()
			close(client.send)
			log.Printf("[ws] client disconnected (%d total)", total)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	pos, ok := s.source.GetLatestPosition()
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		// No fix yet: the caller only ever observes "some position" or
		// "none yet".
		w.Write([]byte(`{"position":null}`))
		return
	}
	json.NewEncoder(w).Encode(struct {
		Position uwb.Position `json:"position"`
	}{pos})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.source.Stats())
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := s.cfg.ToJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// broadcastLoop pushes the latest position and stats to all clients at
// the configured rate. It reads through the source only; a slow client
// is skipped rather than allowed to stall the feed.
func (s *Server) broadcastLoop(ctx context.Context) {
	hz := s.cfg.Server.BroadcastHz
	if hz <= 0 {
		hz = 20
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame := Frame{Stamp: time.Now().UnixMilli()}
			if pos, ok := s.source.GetLatestPosition(); ok {
				frame.Position = &pos
			}
			stats := s.source.Stats()
			frame.Stats = &stats
			if s.freq != nil {
				fhz := s.freq.Frequency()
				frame.FreqHz = &fhz
			}
			s.broadcast(frame)
		}
	}
}

func (s *Server) broadcast(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for client := range s.clients {
		select {
		case client.send <- data:
		default:
			// Client too slow, skip
		}
	}
}
