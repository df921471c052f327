package net

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Session represents a single websocket client. Network I/O runs in
// dedicated goroutines; inbound frames are handed to the Handler from the
// read goroutine.
type Session struct {
	ID   uint64
	conn *websocket.Conn

	OutQueue chan []byte // writer goroutine reads from here

	IP string

	writeTimeout time.Duration
	readTimeout  time.Duration

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	done      chan struct{} // closed when both loops have exited

	log *zap.Logger
}

func newSession(conn *websocket.Conn, id uint64, opts Options, log *zap.Logger) *Session {
	return &Session{
		ID:           id,
		conn:         conn,
		OutQueue:     make(chan []byte, opts.OutQueueSize),
		IP:           conn.RemoteAddr().String(),
		writeTimeout: opts.WriteTimeout,
		readTimeout:  opts.ReadTimeout,
		closeCh:      make(chan struct{}),
		done:         make(chan struct{}),
		log:          log.With(zap.Uint64("session", id)),
	}
}

// Send queues one text frame. Non-blocking: if OutQueue is full the client
// is too slow and the session is closed.
func (s *Session) Send(data []byte) {
	if s.closed.Load() {
		return
	}
	select {
	case s.OutQueue <- data:
	default:
		s.log.Warn("output queue full, disconnecting slow client")
		s.Close()
	}
}

// Close shuts the session down. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Done is closed after OnClose has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// run starts the writer and blocks in the reader until the connection ends.
func (s *Session) run(h Handler) {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop()
	}()

	h.OnOpen(s)
	s.readLoop(h)
	s.Close()
	<-writerDone
	h.OnClose(s)
	close(s.done)
}

// readLoop reads frames until the connection fails or the session closes.
// Binary frames are ignored.
func (s *Session) readLoop(h Handler) {
	for {
		if s.readTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() && !isNormalClose(err) {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}
		if kind != websocket.TextMessage {
			s.log.Debug("ignoring non-text frame", zap.Int("type", kind))
			continue
		}
		h.OnMessage(s, data)
	}
}

// writeLoop drains OutQueue to the connection.
func (s *Session) writeLoop() {
	for {
		select {
		case data := <-s.OutQueue:
			if !s.writeOne(data) {
				s.Close()
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) writeOne(data []byte) bool {
	s.log.Debug("TX", zap.Int("len", len(data)))
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		if !s.closed.Load() {
			s.log.Debug("write error", zap.Error(err))
		}
		return false
	}
	return true
}

func isNormalClose(err error) bool {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway
	}
	return false
}
