package net

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Banner is the body served on every non-websocket path.
const Banner = "Websocket server is running"

// Handler receives session lifecycle callbacks. OnMessage is called from the
// session's read goroutine, one frame at a time per session.
type Handler interface {
	OnOpen(s *Session)
	OnMessage(s *Session, frame []byte)
	OnClose(s *Session)
}

// Options tune sessions. Zero values select defaults.
type Options struct {
	WSPath         string
	OutQueueSize   int
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
}

func (o *Options) fill() {
	if o.WSPath == "" {
		o.WSPath = "/ws"
	}
	if o.OutQueueSize <= 0 {
		o.OutQueueSize = 64
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
}

// Server accepts websocket upgrades and runs one Session per connection.
type Server struct {
	listener net.Listener
	http     *http.Server
	upgrader websocket.Upgrader
	handler  Handler
	opts     Options
	nextID   atomic.Uint64
	log      *zap.Logger

	mu       sync.Mutex
	sessions map[uint64]*Session
	wg       sync.WaitGroup
}

func NewServer(bindAddr string, opts Options, h Handler, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	opts.fill()
	s := &Server{
		listener: ln,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		handler:  h,
		opts:     opts,
		log:      log,
		sessions: make(map[uint64]*Session),
	}
	s.http = &http.Server{Handler: s.Router(), ReadHeaderTimeout: 10 * time.Second}
	return s, nil
}

// Router maps the websocket path to the upgrade handler and answers every
// other path with Banner.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(s.opts.WSPath, s.serveWS)
	r.NotFoundHandler = http.HandlerFunc(serveBanner)
	r.MethodNotAllowedHandler = http.HandlerFunc(serveBanner)
	return r
}

func serveBanner(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(Banner))
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		serveBanner(w, r)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	if s.opts.MaxMessageSize > 0 {
		conn.SetReadLimit(s.opts.MaxMessageSize)
	}

	id := s.nextID.Add(1)
	sess := newSession(conn, id, s.opts, s.log)
	s.log.Info("client connected", zap.Uint64("session", id), zap.String("ip", sess.IP))

	s.mu.Lock()
	s.sessions[id] = sess
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		sess.run(s.handler)
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		s.log.Info("client disconnected", zap.Uint64("session", id))
	}()
}

// Serve blocks serving HTTP until Shutdown.
func (s *Server) Serve() error {
	if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, closes every session and waits for
// their goroutines to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)

	s.mu.Lock()
	for _, sess := range s.sessions {
		sess.Close()
	}
	s.mu.Unlock()

	waited := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
