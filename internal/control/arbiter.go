// Package control owns the single bit of truth of a collaborative session:
// which peer may edit right now. The Arbiter is a state machine driven by
// local UI actions and inbound control messages; all of its methods must be
// called from the session's one event loop goroutine, so it needs no locking.
package control

import (
	"github.com/rs/zerolog"

	"github.com/aether-editor/collab/internal/protocol"
	"github.com/aether-editor/collab/internal/util"
)

// Role identifies which end of the session this process is.
type Role uint8

const (
	RoleHost   Role = iota // accepted the inbound connection, starts with control
	RoleClient             // dialed out, starts in view-only state
)

// String returns a human-readable role name.
func (r Role) String() string {
	if r == RoleHost {
		return "host"
	}
	return "client"
}

// State is the local view of control ownership.
type State uint8

const (
	LocallyHeld    State = iota // this side may edit
	RemotelyHeld                // the peer may edit
	RequestPending              // we asked for control and await the reply
	GrantPending                // the peer asked and we have not answered yet
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case LocallyHeld:
		return "LocallyHeld"
	case RemotelyHeld:
		return "RemotelyHeld"
	case RequestPending:
		return "RequestPending"
	case GrantPending:
		return "GrantPending"
	default:
		return "Unknown"
	}
}

// Editable reports whether the editor surface should accept user edits.
func (s State) Editable() bool {
	return s == LocallyHeld || s == GrantPending
}

// Sink receives the Arbiter's side effects: control messages to transmit
// and notifications for the editor surface. The session implements it.
type Sink interface {
	// SendControl transmits a bodyless control message to the peer.
	SendControl(msgType uint8)
	// ControlChanged tells the editor surface whether the buffer is editable.
	ControlChanged(editable bool)
	// ControlRequested surfaces the peer's grant/decline prompt.
	ControlRequested()
	// ControlDeclined tells the editor surface the peer declined our request.
	ControlDeclined()
}

// Arbiter arbitrates editing control between the two peers. The host starts
// holding control; the client starts viewing. Between the peers the states
// stay complementary once each request/grant/decline exchange completes.
type Arbiter struct {
	role  Role
	state State
	sink  Sink
	log   zerolog.Logger
}

// NewArbiter creates an Arbiter in the starting state for the given role.
func NewArbiter(role Role, sink Sink) *Arbiter {
	state := LocallyHeld
	if role == RoleClient {
		state = RemotelyHeld
	}
	return &Arbiter{
		role:  role,
		state: state,
		sink:  sink,
		log:   util.Logger("control").With().Stringer("role", role).Logger(),
	}
}

// Role returns the session role this Arbiter was created for.
func (a *Arbiter) Role() Role { return a.role }

// State returns the current control state.
func (a *Arbiter) State() State { return a.state }

// RequestControl handles the local "request control" UI action.
func (a *Arbiter) RequestControl() {
	if a.state != RemotelyHeld {
		a.conflict("request control")
		return
	}
	a.state = RequestPending
	a.sink.SendControl(protocol.TypeControlRequest)
}

// GrantControl handles the local "grant" decision on a pending peer request.
func (a *Arbiter) GrantControl() {
	if a.state != GrantPending {
		a.conflict("grant control")
		return
	}
	a.state = RemotelyHeld
	a.sink.SendControl(protocol.TypeControlGranted)
	a.sink.ControlChanged(false)
}

// DeclineControl handles the local "decline" decision on a pending peer request.
func (a *Arbiter) DeclineControl() {
	if a.state != GrantPending {
		a.conflict("decline control")
		return
	}
	a.state = LocallyHeld
	a.sink.SendControl(protocol.TypeControlDeclined)
}

// LocalEdit handles a local keystroke and reports whether the resulting
// change may propagate to the peer.
//
// For the host in RemotelyHeld this is the reclaim-by-typing path: an
// optimistic unilateral takeover announced after the fact via REVOKE_CONTROL.
// The host is never blocked on network latency, at the cost of a window
// where the peer still believes it holds control until the revoke arrives.
// RequestPending and GrantPending still reflect local possession until the
// exchange completes, so edits in those states propagate too.
func (a *Arbiter) LocalEdit() bool {
	if a.state != RemotelyHeld {
		return true
	}
	if a.role != RoleHost {
		// Client edits while view-only are rejected at the surface
		// boundary; arriving here means the surface gate failed.
		a.log.Debug().Msg("dropping local edit without control")
		return false
	}
	a.state = LocallyHeld
	a.sink.SendControl(protocol.TypeControlRevoked)
	a.sink.ControlChanged(true)
	return true
}

// HandleMessage processes an inbound control message. A message that makes
// no sense in the current state is logged and ignored — with only two
// parties, duplication or a reconnect race is the likelier cause, and the
// protocol favors availability over violation detection.
func (a *Arbiter) HandleMessage(msgType uint8) {
	switch msgType {
	case protocol.TypeControlRequest:
		if a.state != LocallyHeld {
			a.conflict(protocol.TypeName(msgType))
			return
		}
		a.state = GrantPending
		a.sink.ControlRequested()

	case protocol.TypeControlGranted:
		if a.state != RequestPending {
			a.conflict(protocol.TypeName(msgType))
			return
		}
		a.state = LocallyHeld
		a.sink.ControlChanged(true)

	case protocol.TypeControlDeclined:
		if a.state != RequestPending {
			a.conflict(protocol.TypeName(msgType))
			return
		}
		a.state = RemotelyHeld
		a.sink.ControlDeclined()

	case protocol.TypeControlRevoked:
		// The host's unilateral reclaim wins from any state, including a
		// previously granted LocallyHeld on the client.
		a.state = RemotelyHeld
		a.sink.ControlChanged(false)

	default:
		a.conflict(protocol.TypeName(msgType))
	}
}

// conflict logs an event that does not fit the current state. Never fatal.
func (a *Arbiter) conflict(event string) {
	a.log.Warn().
		Str("event", event).
		Stringer("state", a.state).
		Msg("control event ignored in current state")
}
