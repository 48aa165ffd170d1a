package campus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vcampus/internal/protocol"
)

// MockRequester mocks the Requester interface
type MockRequester struct {
	mock.Mock
}

func (m *MockRequester) Request(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*protocol.Message), args.Error(1)
}

func ofType(t protocol.MessageType) any {
	return mock.MatchedBy(func(m *protocol.Message) bool { return m.Type == t })
}

func reply(t *testing.T, mt protocol.MessageType, v any) *protocol.Message {
	t.Helper()
	msg, err := protocol.NewMessage(mt, v)
	require.NoError(t, err)
	return msg
}

func TestAddStudentSuccess(t *testing.T) {
	r := new(MockRequester)
	want := &Student{StudentID: "2024001", Name: "Li Lei", Major: "CS"}
	r.On("Request", mock.Anything, mock.MatchedBy(func(m *protocol.Message) bool {
		var s Student
		return m.Type == protocol.TypeAddStudent && m.Decode(&s) == nil && s.Password == "secret1"
	})).Return(reply(t, protocol.TypeAddStudentSuccess, want), nil)

	got, err := NewClient(r).AddStudent(context.Background(), Student{StudentID: "2024001", Name: "Li Lei", Major: "CS", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, want.StudentID, got.StudentID)
	assert.Empty(t, got.Password)
	r.AssertExpectations(t)
}

func TestAddStudentValidatesLocally(t *testing.T) {
	r := new(MockRequester)
	_, err := NewClient(r).AddStudent(context.Background(), Student{Name: "No ID"})
	assert.Error(t, err)
	r.AssertNotCalled(t, "Request", mock.Anything, mock.Anything)
}

func TestFailureReplyBecomesRejectedError(t *testing.T) {
	r := new(MockRequester)
	r.On("Request", mock.Anything, ofType(protocol.TypeBorrowBook)).
		Return(reply(t, protocol.TypeBorrowBookFail, Failure{Reason: "no copies available"}), nil)

	_, err := NewClient(r).BorrowBook(context.Background(), "978-7-111", "2024001")
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "borrow_book", rejected.Op)
	assert.Equal(t, protocol.TypeBorrowBookFail, rejected.Type)
	assert.Equal(t, "no copies available", rejected.Reason)
}

func TestErrorReplyBecomesRejectedError(t *testing.T) {
	r := new(MockRequester)
	r.On("Request", mock.Anything, ofType(protocol.TypeListCourses)).
		Return(reply(t, protocol.TypeError, Failure{Reason: "rate limit exceeded"}), nil)

	_, err := NewClient(r).ListCourses(context.Background(), Query{})
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, protocol.TypeError, rejected.Type)
}

func TestUnexpectedReplyType(t *testing.T) {
	r := new(MockRequester)
	r.On("Request", mock.Anything, ofType(protocol.TypeGetStudent)).
		Return(reply(t, protocol.TypeSearchBooksSuccess, nil), nil)

	_, err := NewClient(r).GetStudent(context.Background(), "x")
	require.Error(t, err)
	var rejected *RejectedError
	assert.False(t, errors.As(err, &rejected))
}

func TestTransportErrorIsWrapped(t *testing.T) {
	cause := errors.New("connection closed")
	r := new(MockRequester)
	r.On("Request", mock.Anything, ofType(protocol.TypeListStudents)).Return(nil, cause)

	_, err := NewClient(r).ListStudents(context.Background(), Query{Keyword: "li"})
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "list_students")
}

func TestListAndEmptySuccess(t *testing.T) {
	r := new(MockRequester)
	books := []Book{{ISBN: "1", Title: "Go", Total: 2, Available: 1}, {ISBN: "2", Title: "Networks", Total: 1}}
	r.On("Request", mock.Anything, ofType(protocol.TypeSearchBooks)).Return(reply(t, protocol.TypeSearchBooksSuccess, books), nil)
	r.On("Request", mock.Anything, ofType(protocol.TypeDeleteStudent)).Return(reply(t, protocol.TypeDeleteStudentSuccess, nil), nil)

	c := NewClient(r)
	got, err := c.SearchBooks(context.Background(), Query{Keyword: "o"})
	require.NoError(t, err)
	assert.Equal(t, books, got)

	assert.NoError(t, c.DeleteStudent(context.Background(), "2024001"))
}

func TestPasswordResetValidation(t *testing.T) {
	cases := []struct {
		name  string
		reset PasswordReset
		ok    bool
	}{
		{"valid student", PasswordReset{Role: RoleStudent, UserID: "1", NewPassword: "abcdef"}, true},
		{"unknown role", PasswordReset{Role: "admin", UserID: "1", NewPassword: "abcdef"}, false},
		{"missing user", PasswordReset{Role: RoleTeacher, NewPassword: "abcdef"}, false},
		{"short password", PasswordReset{Role: RoleTeacher, UserID: "t1", NewPassword: "abc"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.reset.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPurchaseRejectsNonPositiveQuantity(t *testing.T) {
	r := new(MockRequester)
	_, err := NewClient(r).PurchaseProduct(context.Background(), Purchase{ProductID: "p1", StudentID: "s1"})
	assert.Error(t, err)
	r.AssertNotCalled(t, "Request", mock.Anything, mock.Anything)
}

func TestUpdateStudentAllowsPartialFields(t *testing.T) {
	r := new(MockRequester)
	r.On("Request", mock.Anything, ofType(protocol.TypeUpdateStudent)).
		Return(reply(t, protocol.TypeUpdateStudentSuccess, &Student{StudentID: "2024001", Name: "Li Lei", Major: "Math"}), nil)

	c := NewClient(r)
	got, err := c.UpdateStudent(context.Background(), Student{StudentID: "2024001", Major: "Math"})
	require.NoError(t, err)
	assert.Equal(t, "Li Lei", got.Name)

	_, err = c.UpdateStudent(context.Background(), Student{Major: "Math"})
	assert.Error(t, err)
	_, err = c.UpdateStudent(context.Background(), Student{StudentID: "2024001", Email: "not-an-email"})
	assert.Error(t, err)
	r.AssertNumberOfCalls(t, "Request", 1)
}
