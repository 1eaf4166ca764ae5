package main

import (
	"bufio"
	"context"
	"os"
	"strings"
	"sync"

	"github.com/pterm/pterm"

	"github.com/aether-editor/collab/internal/control"
	"github.com/aether-editor/collab/internal/session"
)

// consoleSurface is the headless stand-in for the editor surface: session
// events are printed, and the buffer is a plain string grown line by line.
// Notifications arrive on the session's event loop, so every handler only
// prints or flips state under the mutex — never calls back into the session.
type consoleSurface struct {
	mu       sync.Mutex
	content  string
	editable bool

	ended   chan struct{}
	endOnce sync.Once
}

func newConsoleSurface() *consoleSurface {
	return &consoleSurface{ended: make(chan struct{})}
}

// RemoteTextApplied implements session.Surface.
func (c *consoleSurface) RemoteTextApplied(content string, revision uint64) {
	c.mu.Lock()
	c.content = content
	c.mu.Unlock()
	pterm.Println()
	pterm.Info.Println(pterm.Sprintf("Buffer updated by peer (rev %d):", revision))
	pterm.Println(content)
}

// ControlStateChanged implements session.Surface.
func (c *consoleSurface) ControlStateChanged(editable bool) {
	c.mu.Lock()
	c.editable = editable
	c.mu.Unlock()
	if editable {
		pterm.Success.Println("You hold editing control — type to edit")
	} else {
		pterm.Info.Println("Buffer is read-only — /request to ask for control")
	}
}

// ControlRequestedByPeer implements session.Surface.
func (c *consoleSurface) ControlRequestedByPeer() {
	pterm.Warning.Println("Peer requests editing control — /grant or /decline")
}

// ControlDeclinedByPeer implements session.Surface.
func (c *consoleSurface) ControlDeclinedByPeer() {
	pterm.Warning.Println("Peer declined your control request")
}

// SessionEnded implements session.Surface.
func (c *consoleSurface) SessionEnded(reason string) {
	pterm.Info.Println("Session ended: " + reason)
	c.endOnce.Do(func() { close(c.ended) })
}

// appendLine grows the local buffer by one line and returns the new
// snapshot, or false when the buffer is read-only. This is the surface-side
// edit gate: a view-only client's keystrokes never reach the core. The host
// is exempt — typing while view-only is exactly the reclaim path, and the
// core handles it.
func (c *consoleSurface) appendLine(line string, hostReclaim bool) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.editable && !hostReclaim {
		return "", false
	}
	c.content += line + "\n"
	return c.content, true
}

// repl reads console input until the session ends: /-commands drive the
// control exchange, anything else appends to the shared buffer.
func repl(ctx context.Context, sess *session.Session, surface *consoleSurface) {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-surface.ended:
				return
			}
		}
	}()

	for {
		select {
		case line := <-lines:
			handleLine(sess, surface, line)

		case <-ctx.Done():
			sess.Stop()
			<-surface.ended
			return

		case <-surface.ended:
			return
		}
	}
}

func handleLine(sess *session.Session, surface *consoleSurface, line string) {
	switch strings.TrimSpace(line) {
	case "":
		return
	case "/request":
		sess.RequestControl()
	case "/grant":
		sess.GrantControl()
	case "/decline":
		sess.DeclineControl()
	case "/show":
		pterm.Println(sess.Content())
	case "/stop":
		sess.Stop()
	default:
		content, ok := surface.appendLine(line, sess.Role() == control.RoleHost)
		if !ok {
			pterm.Warning.Println("Buffer is read-only — /request to ask for control")
			return
		}
		sess.LocalTextChanged(content)
	}
}
