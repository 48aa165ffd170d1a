package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"vcampus/internal/protocol"
)

// jsonEnvelope is the JSON wire form. A payload that is already compact JSON
// travels inline as data; anything else travels base64 encoded as data_b64,
// so every payload comes back byte for byte.
type jsonEnvelope struct {
	Type    protocol.MessageType `json:"type"`
	ID      string               `json:"id,omitempty"`
	ReplyTo string               `json:"reply_to,omitempty"`
	Data    json.RawMessage      `json:"data,omitempty"`
	DataB64 []byte               `json:"data_b64,omitempty"`
	SentAt  int64                `json:"sent_at,omitempty"`
}

type jsonCodec struct{}

// JSON returns the default envelope codec.
func JSON() Codec { return jsonCodec{} }

func (jsonCodec) Name() string { return JSONName }

func (jsonCodec) Encode(msg *protocol.Message) ([]byte, error) {
	env := jsonEnvelope{
		Type:    msg.Type,
		ID:      msg.ID,
		ReplyTo: msg.ReplyTo,
		SentAt:  msg.SentAt,
	}
	if len(msg.Data) > 0 {
		if isCompactJSON(msg.Data) {
			env.Data = msg.Data
		} else {
			env.DataB64 = msg.Data
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// inline payloads are written verbatim, not HTML escaped
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		return nil, fmt.Errorf("json encode %s: %w", msg.Type, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (jsonCodec) Decode(data []byte) (*protocol.Message, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}
	if len(env.Data) > 0 && len(env.DataB64) > 0 {
		return nil, errors.New("json decode: both data and data_b64 set")
	}
	msg := &protocol.Message{
		Type:    env.Type,
		ID:      env.ID,
		ReplyTo: env.ReplyTo,
		Data:    env.Data,
		SentAt:  env.SentAt,
	}
	if len(env.DataB64) > 0 {
		msg.Data = env.DataB64
	}
	return checkDecoded(msg)
}

// isCompactJSON reports whether data is valid JSON that the encoder would
// write unchanged.
func isCompactJSON(data []byte) bool {
	if !json.Valid(data) {
		return false
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return false
	}
	return bytes.Equal(buf.Bytes(), data)
}
