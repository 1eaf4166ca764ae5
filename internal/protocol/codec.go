package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// lengthPrefixSize is the fixed width of the frame length field.
const lengthPrefixSize = 4

// Encode serializes a Message into one length-prefixed frame:
// uint32 length (big-endian), then Type(1) + Revision(8) + Body.
func Encode(msg *Message) []byte {
	payloadSize := HeaderSize + len(msg.Body)
	buf := make([]byte, lengthPrefixSize+payloadSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(payloadSize))
	buf[4] = msg.Type
	binary.BigEndian.PutUint64(buf[5:13], msg.Revision)
	if len(msg.Body) > 0 {
		copy(buf[lengthPrefixSize+HeaderSize:], msg.Body)
	}
	return buf
}

// NewHello wraps the identity payload in a HELLO message.
func NewHello(h Hello) (*Message, error) {
	body, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshal hello: %w", err)
	}
	return &Message{Type: TypeHello, Body: body}, nil
}

// DecodeHello parses the identity payload out of a HELLO message body.
func DecodeHello(msg *Message) (Hello, error) {
	var h Hello
	if err := json.Unmarshal(msg.Body, &h); err != nil {
		return Hello{}, fmt.Errorf("corrupt frame: malformed hello body: %w", err)
	}
	return h, nil
}

// Decoder reassembles messages from an accumulating TCP byte stream.
// TCP delivers bytes, not message-sized packets, so a single read may
// carry half a frame or several frames; Feed consumes only complete frames
// and keeps any trailing partial frame buffered for the next read.
//
// A Decoder is goroutine-local (used inside the connection's read goroutine)
// and needs no locking.
type Decoder struct {
	buf []byte
}

// NewDecoder creates a Decoder with an empty buffer.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends p to the internal buffer and returns every message that is
// now complete, in arrival order. Returns nil when no frame completed.
//
// A corrupt frame (length field outside sane bounds, or an unknown message
// tag) returns an error; the stream cannot be resynchronized after that and
// the connection must be torn down.
func (d *Decoder) Feed(p []byte) ([]*Message, error) {
	d.buf = append(d.buf, p...)

	var msgs []*Message
	for {
		if len(d.buf) < lengthPrefixSize {
			return msgs, nil
		}

		payloadSize := int(binary.BigEndian.Uint32(d.buf[0:4]))
		if payloadSize < HeaderSize || payloadSize > MaxFrameSize {
			return msgs, fmt.Errorf("corrupt frame: payload length %d out of bounds", payloadSize)
		}
		if len(d.buf) < lengthPrefixSize+payloadSize {
			return msgs, nil
		}

		frame := d.buf[lengthPrefixSize : lengthPrefixSize+payloadSize]
		msg := &Message{
			Type:     frame[0],
			Revision: binary.BigEndian.Uint64(frame[1:9]),
		}
		if !knownType(msg.Type) {
			return msgs, fmt.Errorf("corrupt frame: unknown message type 0x%02x", msg.Type)
		}
		if payloadSize > HeaderSize {
			msg.Body = make([]byte, payloadSize-HeaderSize)
			copy(msg.Body, frame[HeaderSize:])
		}

		msgs = append(msgs, msg)
		d.buf = d.buf[lengthPrefixSize+payloadSize:]
	}
}

// Buffered returns the number of bytes waiting for frame completion.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}
