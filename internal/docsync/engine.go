// Package docsync keeps the shared text buffer synchronized between the two
// peers. Outbound: full-buffer snapshots stamped with a monotonically
// increasing revision. Inbound: snapshots applied unconditionally except for
// the staleness guard — only one party is ever expected to be sending them.
//
// Like the Arbiter, an Engine is owned by the session's event loop goroutine
// and needs no locking.
package docsync

import (
	"github.com/rs/zerolog"

	"github.com/aether-editor/collab/internal/protocol"
	"github.com/aether-editor/collab/internal/util"
)

// Engine tracks the local copy of the shared buffer and the revision
// counters on both directions of the exchange.
type Engine struct {
	content string
	applied uint64 // highest revision applied from the peer
	stamped uint64 // highest revision stamped on an outgoing update
	log     zerolog.Logger
}

// NewEngine creates an Engine with an empty buffer at revision zero.
func NewEngine() *Engine {
	return &Engine{log: util.Logger("docsync")}
}

// LocalChange records a full snapshot of the local buffer and returns the
// TEXT_UPDATE to hand to the transport. The control gate lives in the
// session; by the time a change reaches the Engine it is allowed to go out.
func (e *Engine) LocalChange(content string) *protocol.Message {
	e.content = content
	e.stamped = e.Revision() + 1
	return protocol.NewTextUpdate(content, e.stamped)
}

// ApplyRemote applies an inbound TEXT_UPDATE to the local buffer and
// reports the new content. A revision at or below the last applied one is a
// duplicate or out-of-order delivery and is dropped without touching the
// buffer, so replays after a reconnect race cannot corrupt it.
func (e *Engine) ApplyRemote(msg *protocol.Message) (string, bool) {
	if msg.Revision <= e.applied {
		e.log.Debug().
			Uint64("revision", msg.Revision).
			Uint64("applied", e.applied).
			Msg("dropping stale text update")
		return "", false
	}
	e.applied = msg.Revision
	e.content = string(msg.Body)
	return e.content, true
}

// Content returns the current local copy of the shared buffer.
func (e *Engine) Content() string {
	return e.content
}

// Revision returns the highest revision seen in either direction. The next
// outgoing update continues from here, so the sequence stays monotonic
// across a control handoff instead of restarting per holder.
func (e *Engine) Revision() uint64 {
	if e.applied > e.stamped {
		return e.applied
	}
	return e.stamped
}

// Reset returns the Engine to its uninitialized state on session teardown.
func (e *Engine) Reset() {
	e.content = ""
	e.applied = 0
	e.stamped = 0
}
