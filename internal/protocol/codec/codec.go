// Package codec serializes protocol envelopes to bytes and back.
// Both ends of a connection must be configured with the same codec.
package codec

import (
	"fmt"
	"strings"

	"vcampus/internal/protocol"
)

// Codec converts a Message to a frame payload and back.
type Codec interface {
	Name() string
	Encode(msg *protocol.Message) ([]byte, error)
	Decode(data []byte) (*protocol.Message, error)
}

const (
	JSONName = "json"
	CBORName = "cbor"
)

// New returns the codec registered under name; an empty name selects JSON.
func New(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", JSONName:
		return JSON(), nil
	case CBORName:
		return CBOR()
	default:
		return nil, fmt.Errorf("unsupported codec %q", name)
	}
}

// Names lists the supported codec names.
func Names() []string { return []string{JSONName, CBORName} }

func checkDecoded(msg *protocol.Message) (*protocol.Message, error) {
	if err := msg.Type.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}
