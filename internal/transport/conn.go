package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aether-editor/collab/internal/protocol"
	"github.com/aether-editor/collab/internal/util"
)

const (
	readBufferSize = 32 * 1024 // per-read chunk fed into the frame decoder
	outboxSize     = 64        // outgoing message channel capacity
	inboxSize      = 64        // decoded message channel capacity
)

// Conn is the single duplex message stream of a session. Its lifetime bounds
// the session's lifetime: the first read, write, or decode failure — peer
// close included — records one terminal reason, closes the socket, and closes
// Done(). Conn never reconnects; re-establishment is a user action.
//
// All writes go through one sender goroutine, all reads and frame decoding
// through one reader goroutine, so the socket never sees interleaved frames.
type Conn struct {
	nc net.Conn

	outbox chan *protocol.Message
	inbox  chan *protocol.Message

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	failOnce  sync.Once
	reason    error

	log zerolog.Logger
}

// newConn wires the reader and sender goroutines around an established
// socket. The connection dies when either loop fails or parent is cancelled.
func newConn(parent context.Context, nc net.Conn) *Conn {
	ctx, cancel := context.WithCancel(parent)

	c := &Conn{
		nc:     nc,
		outbox: make(chan *protocol.Message, outboxSize),
		inbox:  make(chan *protocol.Message, inboxSize),
		ctx:    ctx,
		cancel: cancel,
		log:    util.Logger("transport"),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readLoop(gctx) })
	g.Go(func() error { return c.sendLoop(gctx) })

	go func() {
		// First failure or cancellation unblocks the reader by closing
		// the socket, then the surviving loop drains out.
		<-gctx.Done()
		nc.Close()
		err := g.Wait()
		c.fail(err)
		c.cancel()
		close(c.inbox)
	}()

	return c
}

// Send enqueues a message for transmission. It never blocks the caller
// beyond outbox capacity and is a no-op once the connection is closed.
func (c *Conn) Send(msg *protocol.Message) {
	select {
	case c.outbox <- msg:
	case <-c.ctx.Done():
	}
}

// Messages returns the stream of decoded inbound messages. The channel is
// closed after the connection dies.
func (c *Conn) Messages() <-chan *protocol.Message {
	return c.inbox
}

// Done returns a channel closed when the connection is terminated, after
// the disconnect reason has been recorded.
func (c *Conn) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Err returns the terminal disconnect reason. Valid after Done() is closed.
func (c *Conn) Err() error {
	return c.reason
}

// RemoteAddr reports the peer's address for status display.
func (c *Conn) RemoteAddr() net.Addr {
	return c.nc.RemoteAddr()
}

// Close tears the connection down locally. Safe to call multiple times;
// the peer observes an ordinary disconnect.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.fail(ErrStopped)
		c.cancel()
	})
	return nil
}

// fail records the first terminal reason. Later calls lose.
func (c *Conn) fail(err error) {
	c.failOnce.Do(func() {
		switch {
		case err == nil, errors.Is(err, context.Canceled):
			c.reason = ErrStopped
		case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			c.reason = ErrPeerClosed
		default:
			c.reason = err
		}
		if c.reason != ErrStopped {
			c.log.Warn().Err(c.reason).Msg("connection terminated")
		}
	})
}

// readLoop performs blocking reads and feeds the frame decoder. Decoded
// messages go to the inbox in arrival order. A decode error is fatal for
// the connection — a desynchronized frame stream cannot be recovered.
func (c *Conn) readLoop(ctx context.Context) error {
	dec := protocol.NewDecoder()
	buf := make([]byte, readBufferSize)

	for {
		n, err := c.nc.Read(buf)
		if n > 0 {
			msgs, decErr := dec.Feed(buf[:n])
			for _, msg := range msgs {
				util.Stats.AddRecv(protocol.HeaderSize + len(msg.Body) + 4)
				select {
				case c.inbox <- msg:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if decErr != nil {
				return decErr
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

// sendLoop is the single-writer goroutine draining the outbox.
func (c *Conn) sendLoop(ctx context.Context) error {
	for {
		select {
		case msg := <-c.outbox:
			frame := protocol.Encode(msg)
			if _, err := c.nc.Write(frame); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
			util.Stats.AddSent(len(frame))

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
