package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationsHaveUniqueResponseTypes(t *testing.T) {
	seen := make(map[MessageType]string)
	for _, op := range Operations() {
		for _, mt := range []MessageType{op.Request, op.Success, op.Failure} {
			if mt == TypeError {
				continue // shared failure type of the control operation
			}
			prev, dup := seen[mt]
			assert.False(t, dup, "%s used by both %s and %s", mt, prev, op.Name)
			seen[mt] = op.Name
		}
	}
}

func TestLookupOperation(t *testing.T) {
	op, ok := LookupOperation(TypeAddStudent)
	require.True(t, ok)
	assert.Equal(t, TypeAddStudentSuccess, op.Success)
	assert.Equal(t, TypeAddStudentFail, op.Failure)

	_, ok = LookupOperation(TypeAddStudentSuccess)
	assert.False(t, ok, "responses are not request types")

	op, ok = OperationFor(TypeResetPasswordFail)
	require.True(t, ok)
	assert.Equal(t, TypeResetPassword, op.Request)
}

func TestTypeClassification(t *testing.T) {
	assert.True(t, IsRequest(TypeSearchBooks))
	assert.False(t, IsResponse(TypeSearchBooks))
	assert.True(t, IsResponse(TypeSearchBooksSuccess))
	assert.True(t, IsResponse(TypeError))
	assert.False(t, IsResponse(TypeNotice))
	assert.True(t, IsKnown(TypeNotice))
	assert.False(t, IsKnown("ADD_UNICORN"))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, TypeDropCourse.Validate())
	assert.True(t, errors.Is(MessageType("").Validate(), ErrUnknownType))
	assert.True(t, errors.Is(MessageType("NOPE").Validate(), ErrUnknownType))
}

func TestNewMessageAndReply(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	req, err := NewMessage(TypeAddStudent, payload{Name: "Ada"})
	require.NoError(t, err)
	req.ID = "req-1"

	reply, err := req.Reply(TypeAddStudentSuccess, payload{Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "req-1", reply.ReplyTo)

	var got payload
	require.NoError(t, reply.Decode(&got))
	assert.Equal(t, "Ada", got.Name)

	empty, err := NewMessage(TypePing, nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Data)
	assert.Error(t, empty.Decode(&got))
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewFrameWriter(&buf, 0)
	frames := [][]byte{[]byte("first"), {}, bytes.Repeat([]byte{0xAB}, 70000)}
	for _, f := range frames {
		require.NoError(t, w.WriteFrame(f))
	}

	r := NewFrameReader(&buf, 0)
	for _, want := range frames {
		got, err := r.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, len(want), len(got))
		assert.True(t, bytes.Equal(want, got))
	}
	_, err := r.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	w := NewFrameWriter(&buf, 8)
	assert.ErrorIs(t, w.WriteFrame(make([]byte, 9)), ErrFrameTooLarge)

	big := NewFrameWriter(&buf, 0)
	require.NoError(t, big.WriteFrame(make([]byte, 32)))
	_, err := NewFrameReader(&buf, 16).ReadFrame()
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestFrameTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFrameWriter(&buf, 0).WriteFrame([]byte("truncated payload")))
	cut := bytes.NewReader(buf.Bytes()[:buf.Len()-3])

	_, err := NewFrameReader(cut, 0).ReadFrame()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
