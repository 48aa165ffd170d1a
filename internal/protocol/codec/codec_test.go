package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcampus/internal/protocol"
)

func allCodecs(t *testing.T) []Codec {
	t.Helper()
	var out []Codec
	for _, name := range Names() {
		c, err := New(name)
		require.NoError(t, err)
		out = append(out, c)
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	samples := []*protocol.Message{
		{Type: protocol.TypePing},
		{Type: protocol.TypeAddStudent, ID: "6f1c", Data: []byte(`{"student_id":"S001","name":"Ada"}`), SentAt: 1700000000123},
		{Type: protocol.TypeAddStudentSuccess, ID: "77aa", ReplyTo: "6f1c", Data: []byte(`{"student_id":"S001"}`)},
		{Type: protocol.TypeNotice, Data: []byte(`"library closes at 22:00"`)},
	}

	for _, c := range allCodecs(t) {
		t.Run(c.Name(), func(t *testing.T) {
			for _, want := range samples {
				data, err := c.Encode(want)
				require.NoError(t, err)

				got, err := c.Decode(data)
				require.NoError(t, err)
				assert.Equal(t, want.Type, got.Type)
				assert.Equal(t, want.ID, got.ID)
				assert.Equal(t, want.ReplyTo, got.ReplyTo)
				assert.Equal(t, want.SentAt, got.SentAt)
				assert.Equal(t, string(want.Data), string(got.Data))
			}
		})
	}
}

func TestPayloadBytesSurviveRoundTrip(t *testing.T) {
	payloads := map[string][]byte{
		"spaced json":  []byte(`{"a": 1,  "b": [1, 2]}`),
		"not json":     []byte(`not json`),
		"binary":       {0x00, 0x01, 'b', 'i', 'n', 0xff},
		"html":         []byte(`{"q":"a<b&c>d"}`),
		"trailing nl":  []byte("{\"a\":1}\n"),
		"compact json": []byte(`{"student_id":"S001","tags":["x","y"]}`),
	}

	for _, c := range allCodecs(t) {
		for name, payload := range payloads {
			t.Run(c.Name()+"/"+name, func(t *testing.T) {
				data, err := c.Encode(&protocol.Message{Type: protocol.TypeNotice, Data: payload})
				require.NoError(t, err)

				got, err := c.Decode(data)
				require.NoError(t, err)
				assert.Equal(t, payload, []byte(got.Data))
			})
		}
	}
}

func TestJSONKeepsCompactPayloadInline(t *testing.T) {
	data, err := JSON().Encode(&protocol.Message{Type: protocol.TypeAddStudent, ID: "1", Data: []byte(`{"student_id":"S001"}`)})
	require.NoError(t, err)
	assert.Equal(t, `{"type":"ADD_STUDENT","id":"1","data":{"student_id":"S001"}}`, string(data))

	data, err = JSON().Encode(&protocol.Message{Type: protocol.TypeNotice, Data: []byte{0x00, 0x01}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"data_b64":"AAE="`)
	assert.NotContains(t, string(data), `"data":`)
}

func TestJSONRejectsAmbiguousPayload(t *testing.T) {
	_, err := JSON().Decode([]byte(`{"type":"NOTICE","data":"x","data_b64":"eA=="}`))
	assert.Error(t, err)
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	for _, c := range allCodecs(t) {
		data, err := c.Encode(&protocol.Message{Type: "NOT_A_TYPE"})
		require.NoError(t, err)

		_, err = c.Decode(data)
		assert.ErrorIs(t, err, protocol.ErrUnknownType, c.Name())
	}
}

func TestDecodeGarbage(t *testing.T) {
	for _, c := range allCodecs(t) {
		_, err := c.Decode([]byte{0xff, 0x00, 0x13})
		assert.Error(t, err, c.Name())
	}
}

func TestNewUnsupported(t *testing.T) {
	_, err := New("xml")
	assert.Error(t, err)

	c, err := New("")
	require.NoError(t, err)
	assert.Equal(t, JSONName, c.Name())
}
