// Package bridge exposes the session core to an external editor surface
// over a local WebSocket: core events go out as JSON, surface commands come
// back in. The GUI process attaches to it instead of linking the core.
package bridge

// EventType identifies a core → surface notification.
type EventType string

const (
	EventRemoteText       EventType = "remote_text"
	EventControlState     EventType = "control_state"
	EventControlRequested EventType = "control_requested"
	EventControlDeclined  EventType = "control_declined"
	EventSessionEnded     EventType = "session_ended"
)

// Event is the JSON structure sent to the attached surface. Field presence
// depends on Type: Content/Revision for remote_text, Editable for
// control_state, Reason for session_ended.
type Event struct {
	Type     EventType `json:"type"`
	Content  string    `json:"content,omitempty"`
	Revision uint64    `json:"revision,omitempty"`
	Editable bool      `json:"editable"`
	Reason   string    `json:"reason,omitempty"`
}

// CommandType identifies a surface → core action.
type CommandType string

const (
	CmdLocalText      CommandType = "local_text"
	CmdRequestControl CommandType = "request_control"
	CmdGrantControl   CommandType = "grant_control"
	CmdDeclineControl CommandType = "decline_control"
	CmdStop           CommandType = "stop"
)

// Command is the JSON structure received from the attached surface.
// Content is set only for local_text.
type Command struct {
	Type    CommandType `json:"type"`
	Content string      `json:"content,omitempty"`
}
