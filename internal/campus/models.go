// Package campus holds the business payloads carried inside message data and
// a typed client for every campus operation.
package campus

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

type Student struct {
	StudentID string    `json:"student_id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:64;not null"`
	Gender    string    `json:"gender,omitempty" gorm:"size:16"`
	Major     string    `json:"major,omitempty" gorm:"size:64;index"`
	Class     string    `json:"class,omitempty" gorm:"size:32"`
	Email     string    `json:"email,omitempty" gorm:"size:128"`
	Password  string    `json:"password,omitempty" gorm:"-"` // plain text on add/update requests only
	Hash      string    `json:"-" gorm:"column:password_hash;size:72"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

func (s *Student) Validate() error {
	if strings.TrimSpace(s.StudentID) == "" {
		return errors.New("student_id is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("name is required")
	}
	if s.Email != "" && !strings.Contains(s.Email, "@") {
		return fmt.Errorf("invalid email %q", s.Email)
	}
	return nil
}

type Teacher struct {
	TeacherID  string    `json:"teacher_id"`
	Name       string    `json:"name"`
	Department string    `json:"department,omitempty"`
	Title      string    `json:"title,omitempty"`
	Password   string    `json:"password,omitempty"`
	Hash       string    `json:"-"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

func (t *Teacher) Validate() error {
	if strings.TrimSpace(t.TeacherID) == "" {
		return errors.New("teacher_id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

// IDRef addresses a single record by id.
type IDRef struct {
	ID string `json:"id"`
}

// Query filters list and search operations. An empty Keyword matches everything.
type Query struct {
	Keyword string `json:"keyword,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

type PasswordReset struct {
	Role        Role   `json:"role"`
	UserID      string `json:"user_id"`
	NewPassword string `json:"new_password"`
}

const MinPasswordLength = 6

func (r *PasswordReset) Validate() error {
	if r.Role != RoleStudent && r.Role != RoleTeacher {
		return fmt.Errorf("unknown role %q", r.Role)
	}
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user_id is required")
	}
	if len(r.NewPassword) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

type Document struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author,omitempty"`
	Category   string    `json:"category,omitempty"`
	Content    string    `json:"content,omitempty"`
	UploadedAt time.Time `json:"uploaded_at,omitempty"`
}

type Book struct {
	ISBN      string `json:"isbn"`
	Title     string `json:"title"`
	Author    string `json:"author,omitempty"`
	Total     int    `json:"total"`
	Available int    `json:"available"`
}

// Loan is both the borrow/return request (ISBN, StudentID) and its reply.
type Loan struct {
	ISBN       string    `json:"isbn"`
	StudentID  string    `json:"student_id"`
	BorrowedAt time.Time `json:"borrowed_at,omitempty"`
	DueAt      time.Time `json:"due_at,omitempty"`
	ReturnedAt time.Time `json:"returned_at,omitempty"`
}

type Product struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Stock      int    `json:"stock"`
}

type Purchase struct {
	ProductID string `json:"product_id"`
	StudentID string `json:"student_id"`
	Quantity  int    `json:"quantity"`
}

type Order struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	StudentID  string    `json:"student_id"`
	Quantity   int       `json:"quantity"`
	TotalCents int64     `json:"total_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

type Course struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TeacherID string `json:"teacher_id,omitempty"`
	Credits   int    `json:"credits,omitempty"`
	Capacity  int    `json:"capacity"`
	Enrolled  int    `json:"enrolled"`
}

// Enrollment is the select/drop request and reply.
type Enrollment struct {
	CourseID  string `json:"course_id"`
	StudentID string `json:"student_id"`
}

// Failure is the payload of every _FAIL and ERROR reply.
type Failure struct {
	Reason string `json:"reason"`
}

// Notice is the payload of a server broadcast.
type Notice struct {
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}
