package bridge

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/aether-editor/collab/internal/util"
)

// outboxSize buffers events produced before or while the surface drains
// them. Events beyond capacity are dropped with a warning — the surface can
// always re-render from the next full snapshot.
const outboxSize = 256

var upgrader = websocket.Upgrader{
	// The bridge binds to loopback; the GUI is a local process.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Controller is the producer half of the session the bridge drives on the
// surface's behalf. *session.Session satisfies it.
type Controller interface {
	LocalTextChanged(content string)
	RequestControl()
	GrantControl()
	DeclineControl()
	Stop()
}

// Server is the local WebSocket endpoint an external editor surface attaches
// to. It accepts exactly one surface connection and implements
// session.Surface by forwarding every notification as a JSON event.
type Server struct {
	addr     string
	listener net.Listener
	connCh   chan *websocket.Conn
	outbox   chan Event
	log      zerolog.Logger
}

// NewServer creates a bridge server for the given local address
// (e.g. "127.0.0.1:0").
func NewServer(addr string) *Server {
	return &Server{
		addr:   addr,
		connCh: make(chan *websocket.Conn, 1),
		outbox: make(chan Event, outboxSize),
		log:    util.Logger("bridge"),
	}
}

// Start begins listening and returns the assigned port number.
func (s *Server) Start() (int, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return 0, fmt.Errorf("failed to start surface bridge: %w", err)
	}
	s.listener = listener
	port := listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc("/surface", s.handleWS)

	go func() {
		_ = http.Serve(listener, mux)
	}()

	return port, nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	// Only accept the first surface.
	select {
	case s.connCh <- conn:
	default:
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "surface already attached"))
		conn.Close()
	}
}

// Attach blocks until an editor surface connects, then pumps events out and
// commands in until the session ends, the surface disconnects, or ctx is
// cancelled. All WebSocket writes happen on this goroutine.
func (s *Server) Attach(ctx context.Context, ctrl Controller) error {
	conn, err := s.waitForSurface(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	s.log.Info().Str("surface", conn.RemoteAddr().String()).Msg("surface attached")

	// Command pump: surface → core.
	errCh := make(chan error, 1)
	go func() {
		for {
			var cmd Command
			if err := conn.ReadJSON(&cmd); err != nil {
				errCh <- err
				return
			}
			switch cmd.Type {
			case CmdLocalText:
				ctrl.LocalTextChanged(cmd.Content)
			case CmdRequestControl:
				ctrl.RequestControl()
			case CmdGrantControl:
				ctrl.GrantControl()
			case CmdDeclineControl:
				ctrl.DeclineControl()
			case CmdStop:
				ctrl.Stop()
			default:
				s.log.Warn().Str("command", string(cmd.Type)).Msg("unknown surface command")
			}
		}
	}()

	// Event pump: core → surface.
	for {
		select {
		case ev := <-s.outbox:
			if err := conn.WriteJSON(ev); err != nil {
				return fmt.Errorf("surface write: %w", err)
			}
			if ev.Type == EventSessionEnded {
				return nil
			}

		case err := <-errCh:
			// The surface went away; end the session rather than keep
			// editing blind.
			ctrl.Stop()
			return fmt.Errorf("surface read: %w", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// waitForSurface blocks until a surface connects or ctx is cancelled.
func (s *Server) waitForSurface(ctx context.Context) (*websocket.Conn, error) {
	select {
	case conn := <-s.connCh:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts down the listener, preventing new surface connections.
func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}
}

// push enqueues an event for the surface, dropping when the surface is not
// keeping up. Full snapshots make every later update self-contained.
func (s *Server) push(ev Event) {
	select {
	case s.outbox <- ev:
	default:
		s.log.Warn().Str("event", string(ev.Type)).Msg("surface outbox full, dropping event")
	}
}

// ---------------------------------------------------------------------------
// session.Surface — notifications forwarded as JSON events
// ---------------------------------------------------------------------------

// RemoteTextApplied implements session.Surface.
func (s *Server) RemoteTextApplied(content string, revision uint64) {
	s.push(Event{Type: EventRemoteText, Content: content, Revision: revision})
}

// ControlStateChanged implements session.Surface.
func (s *Server) ControlStateChanged(editable bool) {
	s.push(Event{Type: EventControlState, Editable: editable})
}

// ControlRequestedByPeer implements session.Surface.
func (s *Server) ControlRequestedByPeer() {
	s.push(Event{Type: EventControlRequested})
}

// ControlDeclinedByPeer implements session.Surface.
func (s *Server) ControlDeclinedByPeer() {
	s.push(Event{Type: EventControlDeclined})
}

// SessionEnded implements session.Surface.
func (s *Server) SessionEnded(reason string) {
	s.push(Event{Type: EventSessionEnded, Reason: reason})
}
