package transport

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// MessageHandler is the callback executed for each inbound message.
type MessageHandler func(ctx context.Context, connID uuid.UUID, msg []byte)

// CloseHandler is the callback executed once when the connection dies.
type CloseHandler func(connID uuid.UUID, err error)

type Config struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Connection wraps a single WebSocket session. Outbound messages go
// through a buffered channel drained by the write pump, so Send is safe
// for concurrent use and never blocks the caller on a slow client.
type Connection struct {
	id     uuid.UUID
	ws     *websocket.Conn
	config Config
	send   chan []byte

	onMessage MessageHandler
	onClose   CloseHandler

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	wg        *sync.WaitGroup

	logger *slog.Logger
}

// NewConnection takes one slot on wg; Close releases it, whether or not
// the pumps ever ran.
func NewConnection(parentCtx context.Context, wg *sync.WaitGroup, ws *websocket.Conn, config Config, logger *slog.Logger) *Connection {
	id := uuid.New()
	ctx, cancel := context.WithCancel(parentCtx)
	wg.Add(1)
	return &Connection{
		id:     id,
		ws:     ws,
		config: config,
		send:   make(chan []byte, 256),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		wg:     wg,
		logger: logger.With(slog.String("connID", id.String())),
	}
}

// Run starts the read and write pumps. Handlers must be set before Run.
func (c *Connection) Run() {
	go c.readPump()
	go c.writePump()
	c.logger.Info("connection established")
}

func (c *Connection) readPump() {
	var readErr error
	defer func() {
		c.Close(readErr)
	}()

	for {
		msg, err := c.readOne()
		if err != nil {
			readErr = err
			return
		}
		if msg != nil && c.onMessage != nil {
			c.onMessage(c.ctx, c.id, msg)
		}
	}
}

// readOne blocks for the next text or binary frame. A nil message with
// a nil error means a frame type we ignore.
func (c *Connection) readOne() ([]byte, error) {
	readCtx := c.ctx
	if c.config.ReadTimeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(c.ctx, c.config.ReadTimeout)
		defer cancel()
	}
	typ, r, err := c.ws.Reader(readCtx)
	if err != nil {
		return nil, err
	}
	if typ != websocket.MessageText && typ != websocket.MessageBinary {
		return nil, nil
	}
	return io.ReadAll(r)
}

func (c *Connection) writePump() {
	var writeErr error
	defer func() {
		c.Close(writeErr)
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.writeOne(msg); err != nil {
				writeErr = err
				return
			}
		case <-c.ctx.Done():
			c.ws.Close(websocket.StatusNormalClosure, "connection context cancelled")
			return
		}
	}
}

func (c *Connection) writeOne(msg []byte) error {
	writeCtx := c.ctx
	if c.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(c.ctx, c.config.WriteTimeout)
		defer cancel()
	}
	return c.ws.Write(writeCtx, websocket.MessageText, msg)
}

// Send queues a message for delivery. Safe for concurrent use, even
// racing Close; messages queued on the same connection are written in
// FIFO order, and messages sent after close are dropped.
func (c *Connection) Send(msg []byte) {
	if c.ctx.Err() != nil {
		c.logger.Warn("dropped message for closed connection")
		return
	}
	select {
	case c.send <- msg:
	case <-c.ctx.Done():
		c.logger.Warn("dropped message for closed connection")
	}
}

// Close tears the connection down exactly once and fires the close
// handler so the registry can clean up. The send channel is never
// closed: the write pump exits on the cancelled context, and a
// concurrent Send must stay safe.
func (c *Connection) Close(err error) {
	c.closeOnce.Do(func() {
		c.logger.Info("connection closing", slog.Any("reason", err))
		c.cancel()
		if c.ws != nil {
			c.ws.Close(websocket.StatusNormalClosure, "")
		}
		if c.onClose != nil {
			c.onClose(c.id, err)
		}
		c.wg.Done()
		close(c.done)
	})
}

// Done returns a channel closed when the connection is fully terminated.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) ID() uuid.UUID {
	return c.id
}

func (c *Connection) SetMessageHandler(h MessageHandler) {
	c.onMessage = h
}

func (c *Connection) SetCloseHandler(h CloseHandler) {
	c.onClose = h
}
