// Package store holds the server side repositories for campus records.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"vcampus/internal/campus"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrAlreadyExists   = errors.New("record already exists")
	ErrNoCopies        = errors.New("no copies available")
	ErrNotBorrowed     = errors.New("book is not borrowed by this student")
	ErrOutOfStock      = errors.New("insufficient stock")
	ErrCourseFull      = errors.New("course is full")
	ErrAlreadyEnrolled = errors.New("already enrolled")
	ErrNotEnrolled     = errors.New("not enrolled")
)

const (
	DefaultListLimit = 50
	LoanPeriod       = 30 * 24 * time.Hour
)

// StudentRepository is implemented by the memory, Redis, Postgres and cached
// backends. Update replaces the whole record, including Hash.
type StudentRepository interface {
	Create(ctx context.Context, s *campus.Student) error
	Update(ctx context.Context, s *campus.Student) error
	Delete(ctx context.Context, studentID string) error
	Get(ctx context.Context, studentID string) (*campus.Student, error)
	List(ctx context.Context, q campus.Query) ([]campus.Student, error)
}

type TeacherRepository interface {
	Create(ctx context.Context, t *campus.Teacher) error
	Update(ctx context.Context, t *campus.Teacher) error
	Delete(ctx context.Context, teacherID string) error
	Get(ctx context.Context, teacherID string) (*campus.Teacher, error)
	List(ctx context.Context, q campus.Query) ([]campus.Teacher, error)
}

type DocumentRepository interface {
	Add(ctx context.Context, d *campus.Document) error
	Search(ctx context.Context, q campus.Query) ([]campus.Document, error)
}

type BookRepository interface {
	Add(ctx context.Context, b campus.Book) error
	Search(ctx context.Context, q campus.Query) ([]campus.Book, error)
	Borrow(ctx context.Context, isbn, studentID string, now time.Time) (*campus.Loan, error)
	Return(ctx context.Context, isbn, studentID string, now time.Time) (*campus.Loan, error)
}

type ProductRepository interface {
	Add(ctx context.Context, p campus.Product) error
	List(ctx context.Context, q campus.Query) ([]campus.Product, error)
	Purchase(ctx context.Context, p campus.Purchase, now time.Time) (*campus.Order, error)
}

type CourseRepository interface {
	Add(ctx context.Context, c campus.Course) error
	List(ctx context.Context, q campus.Query) ([]campus.Course, error)
	Select(ctx context.Context, courseID, studentID string) (*campus.Course, error)
	Drop(ctx context.Context, courseID, studentID string) (*campus.Course, error)
}

// Repositories bundles every repository the server needs.
type Repositories struct {
	Students  StudentRepository
	Teachers  TeacherRepository
	Documents DocumentRepository
	Books     BookRepository
	Products  ProductRepository
	Courses   CourseRepository
}

// matches reports whether any field contains keyword, ignoring case.
func matches(keyword string, fields ...string) bool {
	if keyword == "" {
		return true
	}
	keyword = strings.ToLower(keyword)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), keyword) {
			return true
		}
	}
	return false
}

func limitOf(q campus.Query) int {
	if q.Limit <= 0 || q.Limit > DefaultListLimit*10 {
		return DefaultListLimit
	}
	return q.Limit
}

func sortStudents(list []campus.Student) {
	sort.Slice(list, func(i, j int) bool { return list[i].StudentID < list[j].StudentID })
}

func truncate[T any](list []T, limit int) []T {
	if len(list) > limit {
		return list[:limit]
	}
	return list
}
