// Package session serializes client input into the combat engine and fans
// the resulting state out to every connected client.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dicebrawl/server/internal/engine"
	"github.com/dicebrawl/server/internal/net"
	"github.com/dicebrawl/server/internal/net/message"
	"go.uber.org/zap"
)

// Client is the send side of one connection.
type Client interface {
	Send(frame []byte)
}

// Journal receives combat log lines in order as they are produced.
type Journal interface {
	Append(ctx context.Context, lines []string) error
}

const (
	journalTimeout   = 5 * time.Second
	journalQueueSize = 256 // batches, one per handled message
)

// Coordinator owns the engine. All engine access happens under mu; there is
// one combat shared by every connected client.
type Coordinator struct {
	mu      sync.Mutex
	engine  *engine.Engine
	clients map[Client]struct{}
	journal Journal
	log     *zap.Logger

	halted bool
	closed bool
	failed chan error

	// journalCh feeds journalLoop, the only caller of journal.Append.
	journalCh   chan []string
	journalDone chan struct{}
}

// New wraps a stabilized engine. journal may be nil. Call Close to flush
// the journal on shutdown.
func New(e *engine.Engine, journal Journal, log *zap.Logger) *Coordinator {
	c := &Coordinator{
		engine:      e,
		clients:     make(map[Client]struct{}),
		journal:     journal,
		log:         log,
		failed:      make(chan error, 1),
		journalDone: make(chan struct{}),
	}
	if journal == nil {
		close(c.journalDone)
		return c
	}
	c.journalCh = make(chan []string, journalQueueSize)
	go c.journalLoop()
	return c
}

// Close stops accepting input and waits for queued journal batches to be
// written.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		if c.journalCh != nil {
			close(c.journalCh)
		}
	}
	c.mu.Unlock()
	<-c.journalDone
}

// Failed delivers the first fatal engine error. The combat cannot continue
// after it.
func (c *Coordinator) Failed() <-chan error {
	return c.failed
}

// Connect registers a client and sends it the current state.
func (c *Coordinator) Connect(cl Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients[cl] = struct{}{}
	c.send(cl)
}

// Disconnect drops a client. Combat state is kept.
func (c *Coordinator) Disconnect(cl Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.clients, cl)
}

// HandleMessage applies one client frame and broadcasts the new state.
// Malformed frames are dropped.
func (c *Coordinator) HandleMessage(cl Client, frame []byte) {
	msg, err := message.Decode(frame)
	if err != nil {
		c.log.Warn("dropping client message", zap.Error(err), zap.ByteString("frame", truncate(frame, 256)))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.halted || c.closed {
		return
	}

	switch msg.Kind {
	case message.FinishDrafting:
		err = c.engine.FinishDrafting(msg.Indices)
	case message.ChooseAction:
		err = c.engine.ChooseAction(msg.Index)
	case message.ChooseTarget:
		err = c.engine.ChooseTarget(msg.Index)
	}
	c.appendJournal()
	if err != nil {
		c.fail(err)
		return
	}
	c.broadcast()
}

// Snapshot returns the current client view.
func (c *Coordinator) Snapshot() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	frame, _ := message.EncodeNewState(c.engine.Snapshot())
	return frame
}

func (c *Coordinator) fail(err error) {
	if errors.Is(err, engine.ErrNonConvergent) {
		c.log.Error("engine did not converge, combat halted", zap.Error(err))
	} else {
		c.log.Error("engine failure, combat halted", zap.Error(err))
	}
	if !c.halted {
		c.halted = true
		c.failed <- err
	}
}

func (c *Coordinator) broadcast() {
	frame, err := message.EncodeNewState(c.engine.Snapshot())
	if err != nil {
		c.log.Error("encode state", zap.Error(err))
		return
	}
	for cl := range c.clients {
		cl.Send(frame)
	}
}

func (c *Coordinator) send(cl Client) {
	frame, err := message.EncodeNewState(c.engine.Snapshot())
	if err != nil {
		c.log.Error("encode state", zap.Error(err))
		return
	}
	cl.Send(frame)
}

// appendJournal queues new log lines for journalLoop. The queue never
// blocks the caller; a full queue drops the batch from the journal only.
func (c *Coordinator) appendJournal() {
	lines := c.engine.DrainLog()
	if c.journalCh == nil || len(lines) == 0 {
		return
	}
	select {
	case c.journalCh <- lines:
	default:
		c.log.Warn("journal queue full, dropping lines", zap.Int("lines", len(lines)))
	}
}

// journalLoop writes batches in order, outside the engine lock.
func (c *Coordinator) journalLoop() {
	defer close(c.journalDone)
	for lines := range c.journalCh {
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		if err := c.journal.Append(ctx, lines); err != nil {
			c.log.Warn("journal append failed", zap.Error(err), zap.Int("lines", len(lines)))
		}
		cancel()
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

// OnOpen, OnMessage and OnClose adapt the coordinator to net.Handler.

func (c *Coordinator) OnOpen(s *net.Session) { c.Connect(s) }

func (c *Coordinator) OnMessage(s *net.Session, frame []byte) { c.HandleMessage(s, frame) }

func (c *Coordinator) OnClose(s *net.Session) { c.Disconnect(s) }

var _ net.Handler = (*Coordinator)(nil)
