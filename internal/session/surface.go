package session

// Surface is the editor-facing side of the session core. The text widget,
// file explorer and the rest of the editor live outside this module; they
// see the session only through these notifications.
//
// All methods are invoked from the session's event loop goroutine, in order.
// Implementations must not call back into the Session synchronously from a
// notification — hand off to another goroutine instead (the producer methods
// on Session are safe from anywhere).
type Surface interface {
	// RemoteTextApplied reports that the peer's buffer snapshot replaced
	// the local buffer and the widget must re-render.
	RemoteTextApplied(content string, revision uint64)

	// ControlStateChanged reports whether local edits are currently allowed.
	ControlStateChanged(editable bool)

	// ControlRequestedByPeer asks the user to grant or decline the peer's
	// control request; the surface answers via GrantControl/DeclineControl.
	ControlRequestedByPeer()

	// ControlDeclinedByPeer reports that our control request was declined.
	ControlDeclinedByPeer()

	// SessionEnded reports session teardown, whichever side initiated it.
	// No further notifications follow.
	SessionEnded(reason string)
}
