package transport

import (
	"errors"
	"fmt"
)

// BindError means the host could not start listening (address in use,
// permission denied). The session never starts; the message is shown to the
// user verbatim.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("cannot host on %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// ConnectError means the outbound connection failed (refused, unreachable,
// timeout). The session never starts.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("cannot connect to %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

var (
	// ErrPeerClosed is the disconnect reason when the remote side closed
	// the connection or the network failed mid-session.
	ErrPeerClosed = errors.New("peer closed the connection")

	// ErrStopped is the disconnect reason when the local user ended the
	// session.
	ErrStopped = errors.New("session stopped")
)
