// Package session composes transport, control arbitration and buffer sync
// into one session object per connection lifecycle. It is the only place a
// Session is created or destroyed.
package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aether-editor/collab/internal/control"
	"github.com/aether-editor/collab/internal/docsync"
	"github.com/aether-editor/collab/internal/protocol"
	"github.com/aether-editor/collab/internal/transport"
	"github.com/aether-editor/collab/internal/util"
)

// actionQueueSize caps pending local UI events. Keystrokes arrive at human
// rate; the loop drains far faster.
const actionQueueSize = 128

// Options carries the user-supplied session parameters.
type Options struct {
	DisplayName string        // announced to the peer in the hello exchange
	DialTimeout time.Duration // client connect bound; zero means the default
}

// Session is one live collaborative session. Exactly one exists per process
// at a time; it dies with its connection.
//
// All arbiter and buffer mutation happens on the single event loop
// goroutine. Local UI events and inbound network messages funnel through
// it in one ordered stream, so no ControlState or buffer locking exists
// anywhere in the core.
type Session struct {
	role    control.Role
	conn    *transport.Conn
	arbiter *control.Arbiter
	engine  *docsync.Engine
	surface Surface

	actions chan func()
	log     zerolog.Logger
}

// Host binds the listening socket and blocks until one peer connects (or
// ctx is cancelled), then starts the session with this side holding control.
func Host(ctx context.Context, host string, port int, opts Options, surface Surface) (*Session, error) {
	conn, err := transport.Listen(ctx, host, port)
	if err != nil {
		return nil, err
	}
	return start(conn, control.RoleHost, opts, surface), nil
}

// Connect dials the hosting peer and starts the session in view-only state.
func Connect(ctx context.Context, host string, port int, opts Options, surface Surface) (*Session, error) {
	conn, err := transport.Dial(ctx, host, port, opts.DialTimeout)
	if err != nil {
		return nil, err
	}
	return start(conn, control.RoleClient, opts, surface), nil
}

// start wires the components around an established connection and launches
// the event loop. The hello goes out first, before any other message.
func start(conn *transport.Conn, role control.Role, opts Options, surface Surface) *Session {
	s := &Session{
		role:    role,
		conn:    conn,
		engine:  docsync.NewEngine(),
		surface: surface,
		actions: make(chan func(), actionQueueSize),
		log:     util.Logger("session").With().Stringer("role", role).Logger(),
	}
	s.arbiter = control.NewArbiter(role, s)

	if hello, err := protocol.NewHello(protocol.Hello{
		Name:    opts.DisplayName,
		Version: protocol.Version,
	}); err == nil {
		conn.Send(hello)
	}

	s.log.Info().Stringer("peer", conn.RemoteAddr()).Msg("session started")
	go s.loop()
	return s
}

// ---------------------------------------------------------------------------
// Producer API — safe to call from any goroutine
// ---------------------------------------------------------------------------

// LocalTextChanged reports a local edit while the surface is editable. The
// full buffer snapshot propagates to the peer if control is held locally;
// for the host in view-only state it first triggers the reclaim path.
func (s *Session) LocalTextChanged(content string) {
	s.post(func() {
		if !s.arbiter.LocalEdit() {
			return
		}
		s.conn.Send(s.engine.LocalChange(content))
	})
}

// RequestControl asks the peer for editing control.
func (s *Session) RequestControl() {
	s.post(s.arbiter.RequestControl)
}

// GrantControl answers a pending peer request affirmatively.
func (s *Session) GrantControl() {
	s.post(s.arbiter.GrantControl)
}

// DeclineControl answers a pending peer request negatively.
func (s *Session) DeclineControl() {
	s.post(s.arbiter.DeclineControl)
}

// Stop ends the session. Closing the socket deterministically unblocks the
// connection's read goroutine; the event loop observes the disconnect and
// tears everything down. The peer sees an ordinary disconnect.
func (s *Session) Stop() {
	s.conn.Close()
}

// Role returns the session role.
func (s *Session) Role() control.Role { return s.role }

// State reports the current control state, answered on the event loop so
// the read is ordered with every other event. After teardown it reads the
// final state directly — nothing mutates it anymore.
func (s *Session) State() control.State {
	ch := make(chan control.State, 1)
	s.post(func() { ch <- s.arbiter.State() })
	select {
	case st := <-ch:
		return st
	case <-s.conn.Done():
		return s.arbiter.State()
	}
}

// Content reports the current local copy of the shared buffer, with the
// same ordering guarantee as State.
func (s *Session) Content() string {
	ch := make(chan string, 1)
	s.post(func() { ch <- s.engine.Content() })
	select {
	case content := <-ch:
		return content
	case <-s.conn.Done():
		return s.engine.Content()
	}
}

// post hands fn to the event loop; a no-op once the session has ended.
func (s *Session) post(fn func()) {
	select {
	case s.actions <- fn:
	case <-s.conn.Done():
	}
}

// ---------------------------------------------------------------------------
// Event loop
// ---------------------------------------------------------------------------

// loop is the single serialized execution context of the session. It owns
// every arbiter transition and buffer application.
func (s *Session) loop() {
	defer s.teardown()

	// The surface learns the starting editability before any exchange.
	s.surface.ControlStateChanged(s.arbiter.State().Editable())

	msgs := s.conn.Messages()
	for {
		select {
		case fn := <-s.actions:
			fn()

		case msg, ok := <-msgs:
			if !ok {
				msgs = nil // connection dead, Done fires next
				continue
			}
			s.handleMessage(msg)

		case <-s.conn.Done():
			return
		}
	}
}

// handleMessage dispatches one inbound message by type: control messages to
// the arbiter, text messages to the sync engine, hello to the log.
func (s *Session) handleMessage(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeHello:
		hello, err := protocol.DecodeHello(msg)
		if err != nil {
			// Malformed hello is a framing-level defect; the codec bound
			// checks passed, so absorb it like any other protocol anomaly.
			s.log.Warn().Err(err).Msg("ignoring malformed hello")
			return
		}
		if hello.Version != protocol.Version {
			s.log.Warn().
				Int("peer_version", hello.Version).
				Int("local_version", protocol.Version).
				Msg("protocol version mismatch")
		}
		s.log.Info().Str("peer_name", hello.Name).Msg("peer identified")

	case protocol.TypeTextUpdate:
		if content, applied := s.engine.ApplyRemote(msg); applied {
			s.surface.RemoteTextApplied(content, msg.Revision)
		}

	default:
		s.arbiter.HandleMessage(msg.Type)
	}
}

// teardown resets the core to its uninitialized state and delivers the one
// terminal notification. Runs exactly once, as the loop's last act.
func (s *Session) teardown() {
	reason := s.conn.Err()
	s.engine.Reset()
	s.log.Info().Err(reason).Msg("session ended")
	s.surface.SessionEnded(reason.Error())
}

// ---------------------------------------------------------------------------
// control.Sink — effects invoked by the arbiter on the event loop
// ---------------------------------------------------------------------------

// SendControl implements control.Sink.
func (s *Session) SendControl(msgType uint8) {
	s.conn.Send(protocol.NewControl(msgType))
}

// ControlChanged implements control.Sink.
func (s *Session) ControlChanged(editable bool) {
	s.surface.ControlStateChanged(editable)
}

// ControlRequested implements control.Sink.
func (s *Session) ControlRequested() {
	s.surface.ControlRequestedByPeer()
}

// ControlDeclined implements control.Sink.
func (s *Session) ControlDeclined() {
	s.surface.ControlDeclinedByPeer()
}
