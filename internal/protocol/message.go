package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is the envelope carried over the connection. Data is opaque to the
// transport layer; its shape is owned by the operation named in Type.
type Message struct {
	Type    MessageType     `json:"type" cbor:"1,keyasint"`
	ID      string          `json:"id,omitempty" cbor:"2,keyasint,omitempty"`
	ReplyTo string          `json:"reply_to,omitempty" cbor:"3,keyasint,omitempty"` // id of the request this message answers
	Data    json.RawMessage `json:"data,omitempty" cbor:"4,keyasint,omitempty"`
	SentAt  int64           `json:"sent_at,omitempty" cbor:"5,keyasint,omitempty"` // unix milliseconds
}

// NewMessage builds a message whose payload is v encoded as JSON.
// A nil v produces a message without payload.
func NewMessage(t MessageType, v any) (*Message, error) {
	msg := &Message{Type: t}
	if v == nil {
		return msg, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", t, err)
	}
	msg.Data = data
	return msg, nil
}

// Reply builds a response to m; the response carries m's id in ReplyTo.
func (m *Message) Reply(t MessageType, v any) (*Message, error) {
	reply, err := NewMessage(t, v)
	if err != nil {
		return nil, err
	}
	reply.ReplyTo = m.ID
	return reply, nil
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s message has no payload", m.Type)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", m.Type, err)
	}
	return nil
}

// Stamp fills SentAt when it is not set yet.
func (m *Message) Stamp(now time.Time) {
	if m.SentAt == 0 {
		m.SentAt = now.UnixMilli()
	}
}

func (m *Message) String() string {
	if m.ReplyTo != "" {
		return fmt.Sprintf("%s(id=%s reply_to=%s, %d bytes)", m.Type, m.ID, m.ReplyTo, len(m.Data))
	}
	return fmt.Sprintf("%s(id=%s, %d bytes)", m.Type, m.ID, len(m.Data))
}
