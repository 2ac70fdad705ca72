// Package plotstream serves the live spectrum to plotting clients. Every
// snapshot taken from a spectrum.Feed is broadcast as JSON to the WebSocket
// clients connected on /ws; GET /snapshot returns the latest one.
package plotstream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/audiopilot/audiopilot/spectrum"
)

// Frame is the JSON form of one spectrum snapshot.
type Frame struct {
	Seq  uint64     `json:"seq"`
	Time time.Time  `json:"time"`
	Bins []FrameBin `json:"bins"`
}

// FrameBin is one frequency of a Frame: its newest value and loudness class.
type FrameBin struct {
	Freq  float64        `json:"freq"`
	DB    float64        `json:"db"`
	Level spectrum.Level `json:"level"`
}

// NewFrame converts a snapshot.
func NewFrame(snap spectrum.Snapshot) Frame {
	f := Frame{Seq: snap.Seq, Time: snap.Taken, Bins: make([]FrameBin, 0, len(snap.Bins))}
	for _, b := range snap.Bins {
		db := b.Latest()
		f.Bins = append(f.Bins, FrameBin{Freq: b.Freq, DB: db, Level: spectrum.Classify(db)})
	}
	return f
}

const sendBuffer = 16

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// writePump writes queued frames until send is closed or a write fails.
func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Server fans spectrum frames out to WebSocket clients.
type Server struct {
	feed     *spectrum.Feed
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	latest  []byte
	dropped uint64
}

// New returns a server that broadcasts what it reads from feed.
func New(feed *spectrum.Feed, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		feed:   feed,
		logger: logger.With(zap.String("component", "plotstream")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	return mux
}

// Run broadcasts frames from the feed until ctx ends, then disconnects all
// clients.
func (s *Server) Run(ctx context.Context) error {
	defer s.closeAll()
	for {
		snap, err := s.feed.Next(ctx)
		if err != nil {
			return nil
		}
		s.Broadcast(NewFrame(snap))
	}
}

// ListenAndServe serves Handler on addr and broadcasts until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()
	go func() { _ = s.Run(ctx) }()

	s.logger.Info("plot stream listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Broadcast queues f for every client. Clients whose queue is full miss the
// frame.
func (s *Server) Broadcast(f Frame) {
	msg, err := json.Marshal(f)
	if err != nil {
		s.logger.Error("encoding frame", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = msg
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			s.dropped++
		}
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Dropped returns how many client frames were skipped for slow readers.
func (s *Server) Dropped() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	c := &client{id: uuid.New(), conn: conn, send: make(chan []byte, sendBuffer)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	if s.latest != nil {
		c.send <- s.latest
	}
	s.mu.Unlock()
	s.logger.Info("client connected", zap.String("client", c.id.String()), zap.String("remote", r.RemoteAddr))

	go c.writePump()

	// Clients only listen; reading detects the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	if s.remove(c) {
		close(c.send)
	}
	s.logger.Info("client disconnected", zap.String("client", c.id.String()))
}

func (s *Server) remove(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; !ok {
		return false
	}
	delete(s.clients, c)
	return true
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.mu.RLock()
	msg := s.latest
	s.mu.RUnlock()
	if msg == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(msg)
}
