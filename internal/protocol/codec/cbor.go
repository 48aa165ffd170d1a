package codec

import (
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"

	"vcampus/internal/protocol"
)

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// CBOR returns a deterministic CBOR codec.
func CBOR() (Codec, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, err
	}
	return cborCodec{enc: em, dec: dm}, nil
}

func (cborCodec) Name() string { return CBORName }

func (c cborCodec) Encode(msg *protocol.Message) ([]byte, error) {
	data, err := c.enc.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("cbor encode %s: %w", msg.Type, err)
	}
	return data, nil
}

func (c cborCodec) Decode(data []byte) (*protocol.Message, error) {
	var msg protocol.Message
	if err := c.dec.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("cbor decode: %w", err)
	}
	return checkDecoded(&msg)
}
