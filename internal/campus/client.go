package campus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vcampus/internal/protocol"
)

// RejectedError is returned when the server answered with a failure reply.
type RejectedError struct {
	Op     string
	Type   protocol.MessageType
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s rejected (%s)", e.Op, e.Type)
	}
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Reason)
}

// Requester sends a request and waits for its correlated reply.
// *gateway.Connection satisfies it.
type Requester interface {
	Request(ctx context.Context, msg *protocol.Message) (*protocol.Message, error)
}

// Client exposes each campus operation as a typed call.
type Client struct {
	r Requester
}

func NewClient(r Requester) *Client {
	return &Client{r: r}
}

func call[Resp any](ctx context.Context, r Requester, t protocol.MessageType, req any) (Resp, error) {
	var out Resp
	op, ok := protocol.LookupOperation(t)
	if !ok {
		return out, fmt.Errorf("%w: %s is not a request", protocol.ErrUnknownType, t)
	}
	msg, err := protocol.NewMessage(t, req)
	if err != nil {
		return out, err
	}
	reply, err := r.Request(ctx, msg)
	if err != nil {
		return out, fmt.Errorf("%s: %w", op.Name, err)
	}

	switch reply.Type {
	case op.Success:
		if len(reply.Data) == 0 {
			return out, nil
		}
		if err := reply.Decode(&out); err != nil {
			return out, err
		}
		return out, nil
	case op.Failure, protocol.TypeError:
		var f Failure
		if len(reply.Data) > 0 {
			_ = reply.Decode(&f)
		}
		return out, &RejectedError{Op: op.Name, Type: reply.Type, Reason: f.Reason}
	default:
		return out, fmt.Errorf("%s: unexpected reply %s", op.Name, reply.Type)
	}
}

// Ping returns the round trip time.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if _, err := call[struct{}](ctx, c.r, protocol.TypePing, nil); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

func (c *Client) AddStudent(ctx context.Context, s Student) (*Student, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return call[*Student](ctx, c.r, protocol.TypeAddStudent, s)
}

// UpdateStudent changes the non-empty fields of s; the rest are kept.
func (c *Client) UpdateStudent(ctx context.Context, s Student) (*Student, error) {
	if strings.TrimSpace(s.StudentID) == "" {
		return nil, errors.New("student_id is required")
	}
	if s.Email != "" && !strings.Contains(s.Email, "@") {
		return nil, fmt.Errorf("invalid email %q", s.Email)
	}
	return call[*Student](ctx, c.r, protocol.TypeUpdateStudent, s)
}

func (c *Client) DeleteStudent(ctx context.Context, studentID string) error {
	_, err := call[struct{}](ctx, c.r, protocol.TypeDeleteStudent, IDRef{ID: studentID})
	return err
}

func (c *Client) GetStudent(ctx context.Context, studentID string) (*Student, error) {
	return call[*Student](ctx, c.r, protocol.TypeGetStudent, IDRef{ID: studentID})
}

func (c *Client) ListStudents(ctx context.Context, q Query) ([]Student, error) {
	return call[[]Student](ctx, c.r, protocol.TypeListStudents, q)
}

func (c *Client) AddTeacher(ctx context.Context, t Teacher) (*Teacher, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return call[*Teacher](ctx, c.r, protocol.TypeAddTeacher, t)
}

func (c *Client) DeleteTeacher(ctx context.Context, teacherID string) error {
	_, err := call[struct{}](ctx, c.r, protocol.TypeDeleteTeacher, IDRef{ID: teacherID})
	return err
}

func (c *Client) ListTeachers(ctx context.Context, q Query) ([]Teacher, error) {
	return call[[]Teacher](ctx, c.r, protocol.TypeListTeachers, q)
}

func (c *Client) ResetPassword(ctx context.Context, r PasswordReset) error {
	if err := r.Validate(); err != nil {
		return err
	}
	_, err := call[struct{}](ctx, c.r, protocol.TypeResetPassword, r)
	return err
}

func (c *Client) SearchDocuments(ctx context.Context, q Query) ([]Document, error) {
	return call[[]Document](ctx, c.r, protocol.TypeSearchDocuments, q)
}

func (c *Client) UploadDocument(ctx context.Context, d Document) (*Document, error) {
	return call[*Document](ctx, c.r, protocol.TypeUploadDocument, d)
}

func (c *Client) SearchBooks(ctx context.Context, q Query) ([]Book, error) {
	return call[[]Book](ctx, c.r, protocol.TypeSearchBooks, q)
}

func (c *Client) BorrowBook(ctx context.Context, isbn, studentID string) (*Loan, error) {
	return call[*Loan](ctx, c.r, protocol.TypeBorrowBook, Loan{ISBN: isbn, StudentID: studentID})
}

func (c *Client) ReturnBook(ctx context.Context, isbn, studentID string) (*Loan, error) {
	return call[*Loan](ctx, c.r, protocol.TypeReturnBook, Loan{ISBN: isbn, StudentID: studentID})
}

func (c *Client) ListProducts(ctx context.Context, q Query) ([]Product, error) {
	return call[[]Product](ctx, c.r, protocol.TypeListProducts, q)
}

func (c *Client) PurchaseProduct(ctx context.Context, p Purchase) (*Order, error) {
	if p.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", p.Quantity)
	}
	return call[*Order](ctx, c.r, protocol.TypePurchaseProduct, p)
}

func (c *Client) ListCourses(ctx context.Context, q Query) ([]Course, error) {
	return call[[]Course](ctx, c.r, protocol.TypeListCourses, q)
}

func (c *Client) SelectCourse(ctx context.Context, courseID, studentID string) (*Course, error) {
	return call[*Course](ctx, c.r, protocol.TypeSelectCourse, Enrollment{CourseID: courseID, StudentID: studentID})
}

func (c *Client) DropCourse(ctx context.Context, courseID, studentID string) (*Course, error) {
	return call[*Course](ctx, c.r, protocol.TypeDropCourse, Enrollment{CourseID: courseID, StudentID: studentID})
}
