// Package server defines the wire-message format and the codec that parses,
// validates, and timestamps every frame exchanged with clients.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Message type discriminators carried in the "type" field of every frame.
const (
	TypeMessage = "message"
	TypeSystem  = "system"
)

// TimestampLayout is the format of the "timestamp" field on every outbound
// frame: ISO-8601-like with microsecond precision, matching what interactive
// clients display verbatim.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Decode errors returned by DecodeClientMessage. All of them are recoverable:
// the offending frame is discarded and the session keeps reading.
var (
	ErrMalformedPayload = errors.New("malformed message payload")
	ErrUnsupportedType  = errors.New("unsupported message type")
	ErrMissingField     = errors.New("missing or invalid message field")
)

// Message is the JSON payload exchanged between server and clients. User
// messages carry Sender; system notices do not. The Timestamp field is set by
// the server at encode time and ignored on input.
type Message struct {
	Type      string `json:"type"`
	Content   string `json:"message"`
	Sender    string `json:"sender,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Codec translates between raw frames and Messages. The server is the sole
// timestamp authority: Encode stamps the current time into every frame,
// overwriting anything the sender supplied.
type Codec struct {
	now func() time.Time
}

// NewCodec returns a Codec using the system clock.
func NewCodec() *Codec {
	return &Codec{now: time.Now}
}

// DecodeClientMessage parses and validates a client-originated frame. Clients
// may only send user messages: the frame must be a JSON object with
// type "message" and non-empty string "sender" and "message" fields.
func (c *Codec) DecodeClientMessage(raw []byte) (Message, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	msgType, ok := fields["type"].(string)
	if !ok || msgType != TypeMessage {
		return Message{}, fmt.Errorf("%w: %q", ErrUnsupportedType, msgType)
	}

	sender, err := requireStringField(fields, "sender")
	if err != nil {
		return Message{}, err
	}

	content, err := requireStringField(fields, "message")
	if err != nil {
		return Message{}, err
	}

	return Message{Type: TypeMessage, Sender: sender, Content: content}, nil
}

func requireStringField(fields map[string]any, name string) (string, error) {
	value, ok := fields[name].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	return value, nil
}

// Encode serializes a Message for transmission, stamping the current server
// time. Any timestamp already present on the Message is overwritten.
func (c *Codec) Encode(msg Message) ([]byte, error) {
	msg.Timestamp = c.now().Format(TimestampLayout)
	return json.Marshal(msg)
}

// SystemNotice builds a server-generated notice carrying the given text.
// The timestamp is attached later by Encode.
func SystemNotice(text string) Message {
	return Message{Type: TypeSystem, Content: text}
}
