// Package protocol defines the message format exchanged between the two
// session peers and the length-framed wire codec.
package protocol

import "fmt"

// Message type constants.
const (
	TypeHello           uint8 = 0x01 // Identity exchange, sent once after connect
	TypeTextUpdate      uint8 = 0x02 // Full buffer snapshot from the controlling peer
	TypeControlRequest  uint8 = 0x10 // Viewer asks for editing control
	TypeControlGranted  uint8 = 0x11 // Holder hands editing control over
	TypeControlDeclined uint8 = 0x12 // Holder keeps editing control
	TypeControlRevoked  uint8 = 0x13 // Host reclaimed control unilaterally
)

// HeaderSize is the fixed per-message header size: Type(1) + Revision(8).
// The 4-byte frame length prefix is not part of the header; it belongs to
// the framing layer.
const HeaderSize = 9

// MaxFrameSize bounds a single frame's payload. A length prefix above this
// is treated as a corrupt frame, not an allocation request.
const MaxFrameSize = 8 * 1024 * 1024

// Message is one unit of wire data. Revision is meaningful only for
// TypeTextUpdate; control messages carry zero. Body holds the UTF-8 buffer
// snapshot for TypeTextUpdate and the JSON identity blob for TypeHello.
type Message struct {
	Type     uint8
	Revision uint64
	Body     []byte
}

// Hello is the identity payload carried by a TypeHello message body.
type Hello struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

// Version is the protocol version announced in Hello. Mismatches are logged
// by the session, not rejected — both builds are the same program in normal
// use.
const Version = 1

// TypeName returns a short human-readable name for a message type.
func TypeName(t uint8) string {
	switch t {
	case TypeHello:
		return "HELLO"
	case TypeTextUpdate:
		return "TEXT_UPDATE"
	case TypeControlRequest:
		return "REQ_CONTROL"
	case TypeControlGranted:
		return "GRANT_CONTROL"
	case TypeControlDeclined:
		return "DECLINE_CONTROL"
	case TypeControlRevoked:
		return "REVOKE_CONTROL"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", t)
	}
}

// knownType reports whether t is a message type this build understands.
// An unknown tag on the wire means the two sides have desynchronized.
func knownType(t uint8) bool {
	switch t {
	case TypeHello, TypeTextUpdate, TypeControlRequest,
		TypeControlGranted, TypeControlDeclined, TypeControlRevoked:
		return true
	}
	return false
}

// NewTextUpdate builds a TEXT_UPDATE carrying a full buffer snapshot.
func NewTextUpdate(content string, revision uint64) *Message {
	return &Message{Type: TypeTextUpdate, Revision: revision, Body: []byte(content)}
}

// NewControl builds a bodyless control message of the given type.
func NewControl(t uint8) *Message {
	return &Message{Type: t}
}
