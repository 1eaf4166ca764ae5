// Package transport owns the single TCP connection of a collaborative
// session: the host-side listening socket, the client-side outbound dial,
// and the framed message exchange on the resulting connection.
package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// DefaultDialTimeout bounds the client's connect attempt. It is the only
// user-facing timeout in the session core besides the cancelable accept wait.
const DefaultDialTimeout = 10 * time.Second

// Listener is the bound host-side socket, waiting for the one peer of the
// session.
type Listener struct {
	ln net.Listener
}

// NewListener binds the host-side listening socket.
func NewListener(host string, port int) (*Listener, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}
	return &Listener{ln: ln}, nil
}

// Addr returns the bound address, including the assigned port when the
// requested port was 0.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// AcceptOne waits for exactly one inbound connection, then stops accepting.
// The wait is unbounded; cancelling ctx (the user aborting "start hosting")
// closes the listener and returns its error. A second peer can never
// attach — one connection per session.
func (l *Listener) AcceptOne(ctx context.Context) (*Conn, error) {
	// Stop accepting as soon as we return, with or without a connection.
	defer l.ln.Close()

	accepted := make(chan struct{})
	defer close(accepted)
	go func() {
		select {
		case <-ctx.Done():
			l.ln.Close()
		case <-accepted:
		}
	}()

	nc, err := l.ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("accept on %s: %w", l.ln.Addr(), err)
	}

	return newConn(ctx, nc), nil
}

// Close stops the listener. Redundant after AcceptOne returns.
func (l *Listener) Close() {
	l.ln.Close()
}

// Listen binds the host-side socket and waits for the one peer.
func Listen(ctx context.Context, host string, port int) (*Conn, error) {
	l, err := NewListener(host, port)
	if err != nil {
		return nil, err
	}
	return l.AcceptOne(ctx)
}

// Dial opens the client-side outbound connection with a bounded timeout.
// A zero timeout applies DefaultDialTimeout.
func Dial(ctx context.Context, host string, port int, timeout time.Duration) (*Conn, error) {
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	dialer := net.Dialer{Timeout: timeout}
	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectError{Addr: addr, Err: err}
	}

	return newConn(ctx, nc), nil
}
