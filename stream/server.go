package stream

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 2 * time.Second

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Server fans frames out to every connected websocket client. Clients
// only receive; anything they send is discarded.
type Server struct {
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu   sync.Mutex
	subs map[*subscriber]struct{}
	http *http.Server
}

// NewServer creates a server with no listener. Use Handler to mount it or
// Start to listen.
func NewServer(log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:  log,
		subs: make(map[*subscriber]struct{}),
	}
}

// Handler upgrades requests to websocket subscriptions.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serveWS)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		var hs websocket.HandshakeError
		if !errors.As(err, &hs) {
			s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		}
		return
	}

	sub := &subscriber{conn: conn}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	n := len(s.subs)
	s.mu.Unlock()
	s.log.Info("stream client connected", "remote", r.RemoteAddr, "clients", n)

	// read until the client goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("stream client read failed", "remote", r.RemoteAddr, "error", err)
			}
			break
		}
	}
	s.drop(sub)
	s.log.Info("stream client disconnected", "remote", r.RemoteAddr)
}

func (s *Server) drop(sub *subscriber) {
	s.mu.Lock()
	_, ok := s.subs[sub]
	delete(s.subs, sub)
	s.mu.Unlock()
	if ok {
		sub.conn.Close()
	}
}

// Len returns the number of connected clients.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Broadcast sends payload as one binary message to every client and
// returns how many received it. Clients that fail to keep up are dropped.
func (s *Server) Broadcast(payload []byte) int {
	s.mu.Lock()
	subs := make([]*subscriber, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	sent := 0
	for _, sub := range subs {
		sub.mu.Lock()
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := sub.conn.WriteMessage(websocket.BinaryMessage, payload)
		sub.mu.Unlock()
		if err != nil {
			s.log.Warn("stream send failed", "remote", sub.conn.RemoteAddr().String(), "error", err)
			s.drop(sub)
			continue
		}
		sent++
	}
	return sent
}

// Start listens on addr and serves the websocket endpoint at path in the
// background. It returns the bound address.
func (s *Server) Start(addr, path string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.Handle(path, s.Handler())

	s.mu.Lock()
	s.http = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	srv := s.http
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("stream server stopped", "error", err)
		}
	}()
	s.log.Info("stream listening", "addr", ln.Addr().String(), "path", path)
	return ln.Addr().String(), nil
}

// Close disconnects every client and stops the listener if Start was used.
func (s *Server) Close() error {
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[*subscriber]struct{})
	srv := s.http
	s.http = nil
	s.mu.Unlock()

	for sub := range subs {
		sub.mu.Lock()
		sub.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
		sub.mu.Unlock()
		sub.conn.Close()
	}
	if srv != nil {
		return srv.Close()
	}
	return nil
}
