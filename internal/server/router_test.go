package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcampus/internal/campus"
	"vcampus/internal/protocol"
)

func TestRouterServe(t *testing.T) {
	r := NewRouter(nil)
	r.Handle(protocol.TypeGetStudent, func(_ context.Context, req *Request) (any, error) {
		var ref campus.IDRef
		if err := req.Decode(&ref); err != nil {
			return nil, err
		}
		if ref.ID == "missing" {
			return nil, errors.New("student missing: record not found")
		}
		return campus.Student{StudentID: ref.ID, Name: "Li Lei"}, nil
	})

	get := func(id string) *protocol.Message {
		msg, err := protocol.NewMessage(protocol.TypeGetStudent, campus.IDRef{ID: id})
		require.NoError(t, err)
		msg.ID = "req-" + id
		return msg
	}

	ok := r.Serve(context.Background(), "c1", get("1"))
	assert.Equal(t, protocol.TypeGetStudentSuccess, ok.Type)
	assert.Equal(t, "req-1", ok.ReplyTo)
	assert.NotEmpty(t, ok.ID)
	assert.NotZero(t, ok.SentAt)

	fail := r.Serve(context.Background(), "c1", get("missing"))
	assert.Equal(t, protocol.TypeGetStudentFail, fail.Type)
	var f campus.Failure
	require.NoError(t, fail.Decode(&f))
	assert.Contains(t, f.Reason, "not found")

	bad := r.Serve(context.Background(), "c1", &protocol.Message{Type: protocol.TypeGetStudent, ID: "x", Data: []byte(`"not an object"`)})
	assert.Equal(t, protocol.TypeGetStudentFail, bad.Type)
}

func TestRouterErrors(t *testing.T) {
	r := NewRouter(nil)

	unhandled := r.Serve(context.Background(), "c1", &protocol.Message{Type: protocol.TypeBorrowBook, ID: "a"})
	assert.Equal(t, protocol.TypeError, unhandled.Type)
	assert.Equal(t, "a", unhandled.ReplyTo)

	notRequest := r.Serve(context.Background(), "c1", &protocol.Message{Type: protocol.TypeNotice, ID: "b"})
	assert.Equal(t, protocol.TypeError, notRequest.Type)

	pong := r.Serve(context.Background(), "c1", &protocol.Message{Type: protocol.TypePing, ID: "p"})
	assert.Equal(t, protocol.TypePong, pong.Type)
	assert.Empty(t, pong.Data)
}

func TestRouterHandleRejectsReplyTypes(t *testing.T) {
	r := NewRouter(nil)
	assert.Panics(t, func() {
		r.Handle(protocol.TypeAddStudentSuccess, func(context.Context, *Request) (any, error) { return nil, nil })
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.NoError(t, VerifyPassword(hash, "secret1"))
	assert.Error(t, VerifyPassword(hash, "wrong"))
}
