package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vcampus/internal/campus"
	"vcampus/internal/protocol"
	"vcampus/internal/store"
)

// Campus implements every campus operation on top of the repositories.
type Campus struct {
	repos *store.Repositories
	now   func() time.Time
}

func NewCampus(repos *store.Repositories) *Campus {
	return &Campus{repos: repos, now: time.Now}
}

// Register installs a handler for every campus request type.
func (c *Campus) Register(r *Router) {
	r.Handle(protocol.TypeAddStudent, c.addStudent)
	r.Handle(protocol.TypeUpdateStudent, c.updateStudent)
	r.Handle(protocol.TypeDeleteStudent, c.deleteStudent)
	r.Handle(protocol.TypeGetStudent, c.getStudent)
	r.Handle(protocol.TypeListStudents, c.listStudents)

	r.Handle(protocol.TypeAddTeacher, c.addTeacher)
	r.Handle(protocol.TypeDeleteTeacher, c.deleteTeacher)
	r.Handle(protocol.TypeListTeachers, c.listTeachers)

	r.Handle(protocol.TypeResetPassword, c.resetPassword)

	r.Handle(protocol.TypeSearchDocuments, c.searchDocuments)
	r.Handle(protocol.TypeUploadDocument, c.uploadDocument)

	r.Handle(protocol.TypeSearchBooks, c.searchBooks)
	r.Handle(protocol.TypeBorrowBook, c.borrowBook)
	r.Handle(protocol.TypeReturnBook, c.returnBook)

	r.Handle(protocol.TypeListProducts, c.listProducts)
	r.Handle(protocol.TypePurchaseProduct, c.purchaseProduct)

	r.Handle(protocol.TypeListCourses, c.listCourses)
	r.Handle(protocol.TypeSelectCourse, c.selectCourse)
	r.Handle(protocol.TypeDropCourse, c.dropCourse)
}

// query decodes an optional Query payload.
func query(req *Request) (campus.Query, error) {
	var q campus.Query
	if len(req.Msg.Data) == 0 {
		return q, nil
	}
	err := req.Decode(&q)
	return q, err
}

func idOf(req *Request) (string, error) {
	var ref campus.IDRef
	if err := req.Decode(&ref); err != nil {
		return "", err
	}
	if strings.TrimSpace(ref.ID) == "" {
		return "", errors.New("id is required")
	}
	return ref.ID, nil
}

func (c *Campus) addStudent(ctx context.Context, req *Request) (any, error) {
	var s campus.Student
	if err := req.Decode(&s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Password != "" {
		hash, err := HashPassword(s.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		s.Hash, s.Password = hash, ""
	}
	s.CreatedAt = c.now()
	s.UpdatedAt = s.CreatedAt
	if err := c.repos.Students.Create(ctx, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// updateStudent overwrites the fields present in the request.
func (c *Campus) updateStudent(ctx context.Context, req *Request) (any, error) {
	var in campus.Student
	if err := req.Decode(&in); err != nil {
		return nil, err
	}
	if in.StudentID == "" {
		return nil, errors.New("student_id is required")
	}
	s, err := c.repos.Students.Get(ctx, in.StudentID)
	if err != nil {
		return nil, err
	}
	merge(&s.Name, in.Name)
	merge(&s.Gender, in.Gender)
	merge(&s.Major, in.Major)
	merge(&s.Class, in.Class)
	merge(&s.Email, in.Email)
	if in.Password != "" {
		hash, err := HashPassword(in.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		s.Hash = hash
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.UpdatedAt = c.now()
	if err := c.repos.Students.Update(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func merge(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (c *Campus) deleteStudent(ctx context.Context, req *Request) (any, error) {
	id, err := idOf(req)
	if err != nil {
		return nil, err
	}
	if err := c.repos.Students.Delete(ctx, id); err != nil {
		return nil, err
	}
	return campus.IDRef{ID: id}, nil
}

func (c *Campus) getStudent(ctx context.Context, req *Request) (any, error) {
	id, err := idOf(req)
	if err != nil {
		return nil, err
	}
	return c.repos.Students.Get(ctx, id)
}

func (c *Campus) listStudents(ctx context.Context, req *Request) (any, error) {
	q, err := query(req)
	if err != nil {
		return nil, err
	}
	return c.repos.Students.List(ctx, q)
}

func (c *Campus) addTeacher(ctx context.Context, req *Request) (any, error) {
	var t campus.Teacher
	if err := req.Decode(&t); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if t.Password != "" {
		hash, err := HashPassword(t.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		t.Hash, t.Password = hash, ""
	}
	t.CreatedAt = c.now()
	if err := c.repos.Teachers.Create(ctx, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Campus) deleteTeacher(ctx context.Context, req *Request) (any, error) {
	id, err := idOf(req)
	if err != nil {
		return nil, err
	}
	if err := c.repos.Teachers.Delete(ctx, id); err != nil {
		return nil, err
	}
	return campus.IDRef{ID: id}, nil
}

func (c *Campus) listTeachers(ctx context.Context, req *Request) (any, error) {
	q, err := query(req)
	if err != nil {
		return nil, err
	}
	return c.repos.Teachers.List(ctx, q)
}

func (c *Campus) resetPassword(ctx context.Context, req *Request) (any, error) {
	var r campus.PasswordReset
	if err := req.Decode(&r); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	hash, err := HashPassword(r.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	switch r.Role {
	case campus.RoleStudent:
		s, err := c.repos.Students.Get(ctx, r.UserID)
		if err != nil {
			return nil, err
		}
		s.Hash, s.UpdatedAt = hash, c.now()
		err = c.repos.Students.Update(ctx, s)
		return nil, err
	default:
		t, err := c.repos.Teachers.Get(ctx, r.UserID)
		if err != nil {
			return nil, err
		}
		t.Hash = hash
		err = c.repos.Teachers.Update(ctx, t)
		return nil, err
	}
}

func (c *Campus) searchDocuments(ctx context.Context, req *Request) (any, error) {
	q, err := query(req)
	if err != nil {
		return nil, err
	}
	return c.repos.Documents.Search(ctx, q)
}

func (c *Campus) uploadDocument(ctx context.Context, req *Request) (any, error) {
	var d campus.Document
	if err := req.Decode(&d); err != nil {
		return nil, err
	}
	if strings.TrimSpace(d.Title) == "" {
		return nil, errors.New("title is required")
	}
	d.UploadedAt = c.now()
	if err := c.repos.Documents.Add(ctx, &d); err != nil {
		return nil, err
	}
	d.Content = ""
	return &d, nil
}

func (c *Campus) searchBooks(ctx context.Context, req *Request) (any, error) {
	q, err := query(req)
	if err != nil {
		return nil, err
	}
	return c.repos.Books.Search(ctx, q)
}

// loanRequest decodes a borrow or return request and checks the student exists.
func (c *Campus) loanRequest(ctx context.Context, req *Request) (campus.Loan, error) {
	var l campus.Loan
	if err := req.Decode(&l); err != nil {
		return l, err
	}
	if l.ISBN == "" || l.StudentID == "" {
		return l, errors.New("isbn and student_id are required")
	}
	if _, err := c.repos.Students.Get(ctx, l.StudentID); err != nil {
		return l, err
	}
	return l, nil
}

func (c *Campus) borrowBook(ctx context.Context, req *Request) (any, error) {
	l, err := c.loanRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.repos.Books.Borrow(ctx, l.ISBN, l.StudentID, c.now())
}

func (c *Campus) returnBook(ctx context.Context, req *Request) (any, error) {
	l, err := c.loanRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.repos.Books.Return(ctx, l.ISBN, l.StudentID, c.now())
}

func (c *Campus) listProducts(ctx context.Context, req *Request) (any, error) {
	q, err := query(req)
	if err != nil {
		return nil, err
	}
	return c.repos.Products.List(ctx, q)
}

func (c *Campus) purchaseProduct(ctx context.Context, req *Request) (any, error) {
	var p campus.Purchase
	if err := req.Decode(&p); err != nil {
		return nil, err
	}
	if p.ProductID == "" || p.StudentID == "" {
		return nil, errors.New("product_id and student_id are required")
	}
	if _, err := c.repos.Students.Get(ctx, p.StudentID); err != nil {
		return nil, err
	}
	return c.repos.Products.Purchase(ctx, p, c.now())
}

func (c *Campus) listCourses(ctx context.Context, req *Request) (any, error) {
	q, err := query(req)
	if err != nil {
		return nil, err
	}
	return c.repos.Courses.List(ctx, q)
}

func (c *Campus) enrollment(ctx context.Context, req *Request) (campus.Enrollment, error) {
	var e campus.Enrollment
	if err := req.Decode(&e); err != nil {
		return e, err
	}
	if e.CourseID == "" || e.StudentID == "" {
		return e, errors.New("course_id and student_id are required")
	}
	if _, err := c.repos.Students.Get(ctx, e.StudentID); err != nil {
		return e, err
	}
	return e, nil
}

func (c *Campus) selectCourse(ctx context.Context, req *Request) (any, error) {
	e, err := c.enrollment(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.repos.Courses.Select(ctx, e.CourseID, e.StudentID)
}

func (c *Campus) dropCourse(ctx context.Context, req *Request) (any, error) {
	e, err := c.enrollment(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.repos.Courses.Drop(ctx, e.CourseID, e.StudentID)
}
