package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"vcampus/internal/campus"
)

// MemoryStudents keeps students in a map. Records are copied in and out so
// callers never share memory with the store.
type MemoryStudents struct {
	mu       sync.RWMutex
	students map[string]campus.Student
}

func NewMemoryStudents() *MemoryStudents {
	return &MemoryStudents{students: make(map[string]campus.Student)}
}

func (r *MemoryStudents) Create(_ context.Context, s *campus.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[s.StudentID]; ok {
		return fmt.Errorf("student %s: %w", s.StudentID, ErrAlreadyExists)
	}
	r.students[s.StudentID] = *s
	return nil
}

func (r *MemoryStudents) Update(_ context.Context, s *campus.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[s.StudentID]; !ok {
		return fmt.Errorf("student %s: %w", s.StudentID, ErrNotFound)
	}
	r.students[s.StudentID] = *s
	return nil
}

func (r *MemoryStudents) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[id]; !ok {
		return fmt.Errorf("student %s: %w", id, ErrNotFound)
	}
	delete(r.students, id)
	return nil
}

func (r *MemoryStudents) Get(_ context.Context, id string) (*campus.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.students[id]
	if !ok {
		return nil, fmt.Errorf("student %s: %w", id, ErrNotFound)
	}
	return &s, nil
}

func (r *MemoryStudents) List(_ context.Context, q campus.Query) ([]campus.Student, error) {
	r.mu.RLock()
	out := make([]campus.Student, 0, len(r.students))
	for _, s := range r.students {
		if matches(q.Keyword, s.StudentID, s.Name, s.Major, s.Class) {
			out = append(out, s)
		}
	}
	r.mu.RUnlock()
	sortStudents(out)
	return truncate(out, limitOf(q)), nil
}

type MemoryTeachers struct {
	mu       sync.RWMutex
	teachers map[string]campus.Teacher
}

func NewMemoryTeachers() *MemoryTeachers {
	return &MemoryTeachers{teachers: make(map[string]campus.Teacher)}
}

func (r *MemoryTeachers) Create(_ context.Context, t *campus.Teacher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teachers[t.TeacherID]; ok {
		return fmt.Errorf("teacher %s: %w", t.TeacherID, ErrAlreadyExists)
	}
	r.teachers[t.TeacherID] = *t
	return nil
}

func (r *MemoryTeachers) Update(_ context.Context, t *campus.Teacher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teachers[t.TeacherID]; !ok {
		return fmt.Errorf("teacher %s: %w", t.TeacherID, ErrNotFound)
	}
	r.teachers[t.TeacherID] = *t
	return nil
}

func (r *MemoryTeachers) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teachers[id]; !ok {
		return fmt.Errorf("teacher %s: %w", id, ErrNotFound)
	}
	delete(r.teachers, id)
	return nil
}

func (r *MemoryTeachers) Get(_ context.Context, id string) (*campus.Teacher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.teachers[id]
	if !ok {
		return nil, fmt.Errorf("teacher %s: %w", id, ErrNotFound)
	}
	return &t, nil
}

func (r *MemoryTeachers) List(_ context.Context, q campus.Query) ([]campus.Teacher, error) {
	r.mu.RLock()
	out := make([]campus.Teacher, 0, len(r.teachers))
	for _, t := range r.teachers {
		if matches(q.Keyword, t.TeacherID, t.Name, t.Department) {
			out = append(out, t)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].TeacherID < out[j].TeacherID })
	return truncate(out, limitOf(q)), nil
}

// MemoryDocuments keeps documents in upload order.
type MemoryDocuments struct {
	mu   sync.RWMutex
	docs []campus.Document
}

func NewMemoryDocuments() *MemoryDocuments { return &MemoryDocuments{} }

// Add assigns an id when the document has none.
func (r *MemoryDocuments) Add(_ context.Context, d *campus.Document) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.docs {
		if existing.ID == d.ID {
			return fmt.Errorf("document %s: %w", d.ID, ErrAlreadyExists)
		}
	}
	r.docs = append(r.docs, *d)
	return nil
}

func (r *MemoryDocuments) Search(_ context.Context, q campus.Query) ([]campus.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []campus.Document
	for _, d := range r.docs {
		if matches(q.Keyword, d.Title, d.Author, d.Category, d.Content) {
			d.Content = "" // search results carry metadata only
			out = append(out, d)
		}
	}
	return truncate(out, limitOf(q)), nil
}

type MemoryBooks struct {
	mu    sync.Mutex
	books map[string]campus.Book
	order []string
	loans map[string]campus.Loan // key: isbn + "/" + student id
}

func NewMemoryBooks() *MemoryBooks {
	return &MemoryBooks{
		books: make(map[string]campus.Book),
		loans: make(map[string]campus.Loan),
	}
}

func (r *MemoryBooks) Add(_ context.Context, b campus.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[b.ISBN]; ok {
		return fmt.Errorf("book %s: %w", b.ISBN, ErrAlreadyExists)
	}
	if b.Available == 0 && b.Total > 0 {
		b.Available = b.Total
	}
	r.books[b.ISBN] = b
	r.order = append(r.order, b.ISBN)
	return nil
}

func (r *MemoryBooks) Search(_ context.Context, q campus.Query) ([]campus.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []campus.Book
	for _, isbn := range r.order {
		b := r.books[isbn]
		if matches(q.Keyword, b.ISBN, b.Title, b.Author) {
			out = append(out, b)
		}
	}
	return truncate(out, limitOf(q)), nil
}

func (r *MemoryBooks) Borrow(_ context.Context, isbn, studentID string, now time.Time) (*campus.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[isbn]
	if !ok {
		return nil, fmt.Errorf("book %s: %w", isbn, ErrNotFound)
	}
	key := isbn + "/" + studentID
	if _, ok := r.loans[key]; ok {
		return nil, fmt.Errorf("book %s: %w", isbn, ErrAlreadyExists)
	}
	if b.Available <= 0 {
		return nil, fmt.Errorf("book %s: %w", isbn, ErrNoCopies)
	}
	b.Available--
	r.books[isbn] = b
	loan := campus.Loan{ISBN: isbn, StudentID: studentID, BorrowedAt: now, DueAt: now.Add(LoanPeriod)}
	r.loans[key] = loan
	return &loan, nil
}

func (r *MemoryBooks) Return(_ context.Context, isbn, studentID string, now time.Time) (*campus.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := isbn + "/" + studentID
	loan, ok := r.loans[key]
	if !ok {
		return nil, fmt.Errorf("book %s: %w", isbn, ErrNotBorrowed)
	}
	delete(r.loans, key)
	b := r.books[isbn]
	b.Available++
	r.books[isbn] = b
	loan.ReturnedAt = now
	return &loan, nil
}

type MemoryProducts struct {
	mu       sync.Mutex
	products map[string]campus.Product
	order    []string
}

func NewMemoryProducts() *MemoryProducts {
	return &MemoryProducts{products: make(map[string]campus.Product)}
}

func (r *MemoryProducts) Add(_ context.Context, p campus.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; ok {
		return fmt.Errorf("product %s: %w", p.ID, ErrAlreadyExists)
	}
	r.products[p.ID] = p
	r.order = append(r.order, p.ID)
	return nil
}

func (r *MemoryProducts) List(_ context.Context, q campus.Query) ([]campus.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []campus.Product
	for _, id := range r.order {
		p := r.products[id]
		if matches(q.Keyword, p.ID, p.Name) {
			out = append(out, p)
		}
	}
	return truncate(out, limitOf(q)), nil
}

func (r *MemoryProducts) Purchase(_ context.Context, req campus.Purchase, now time.Time) (*campus.Order, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("invalid quantity %d", req.Quantity)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[req.ProductID]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", req.ProductID, ErrNotFound)
	}
	if p.Stock < req.Quantity {
		return nil, fmt.Errorf("product %s: %w", req.ProductID, ErrOutOfStock)
	}
	p.Stock -= req.Quantity
	r.products[p.ID] = p
	return &campus.Order{
		ID:         uuid.NewString(),
		ProductID:  p.ID,
		StudentID:  req.StudentID,
		Quantity:   req.Quantity,
		TotalCents: p.PriceCents * int64(req.Quantity),
		CreatedAt:  now,
	}, nil
}

type MemoryCourses struct {
	mu       sync.Mutex
	courses  map[string]campus.Course
	order    []string
	enrolled map[string]map[string]struct{} // course id -> student ids
}

func NewMemoryCourses() *MemoryCourses {
	return &MemoryCourses{
		courses:  make(map[string]campus.Course),
		enrolled: make(map[string]map[string]struct{}),
	}
}

func (r *MemoryCourses) Add(_ context.Context, c campus.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[c.ID]; ok {
		return fmt.Errorf("course %s: %w", c.ID, ErrAlreadyExists)
	}
	c.Enrolled = 0
	r.courses[c.ID] = c
	r.order = append(r.order, c.ID)
	r.enrolled[c.ID] = make(map[string]struct{})
	return nil
}

func (r *MemoryCourses) List(_ context.Context, q campus.Query) ([]campus.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []campus.Course
	for _, id := range r.order {
		c := r.courses[id]
		if matches(q.Keyword, c.ID, c.Name, c.TeacherID) {
			out = append(out, c)
		}
	}
	return truncate(out, limitOf(q)), nil
}

func (r *MemoryCourses) Select(_ context.Context, courseID, studentID string) (*campus.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[courseID]
	if !ok {
		return nil, fmt.Errorf("course %s: %w", courseID, ErrNotFound)
	}
	students := r.enrolled[courseID]
	if _, ok := students[studentID]; ok {
		return nil, fmt.Errorf("course %s: %w", courseID, ErrAlreadyEnrolled)
	}
	if c.Capacity > 0 && len(students) >= c.Capacity {
		return nil, fmt.Errorf("course %s: %w", courseID, ErrCourseFull)
	}
	students[studentID] = struct{}{}
	c.Enrolled = len(students)
	r.courses[courseID] = c
	return &c, nil
}

func (r *MemoryCourses) Drop(_ context.Context, courseID, studentID string) (*campus.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[courseID]
	if !ok {
		return nil, fmt.Errorf("course %s: %w", courseID, ErrNotFound)
	}
	students := r.enrolled[courseID]
	if _, ok := students[studentID]; !ok {
		return nil, fmt.Errorf("course %s: %w", courseID, ErrNotEnrolled)
	}
	delete(students, studentID)
	c.Enrolled = len(students)
	r.courses[courseID] = c
	return &c, nil
}

// NewMemory returns a full set of in-memory repositories.
func NewMemory() *Repositories {
	return &Repositories{
		Students:  NewMemoryStudents(),
		Teachers:  NewMemoryTeachers(),
		Documents: NewMemoryDocuments(),
		Books:     NewMemoryBooks(),
		Products:  NewMemoryProducts(),
		Courses:   NewMemoryCourses(),
	}
}
