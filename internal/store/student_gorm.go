package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vcampus/internal/campus"
)

// studentRow is the students table; it mirrors campus.Student.
type studentRow struct {
	campus.Student
}

func (studentRow) TableName() string { return "students" }

// OpenPostgres opens the database and migrates the students table.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&studentRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate students table: %w", err)
	}
	return db, nil
}

// GormStudents is the PostgreSQL backend.
type GormStudents struct {
	db *gorm.DB
}

func NewGormStudents(db *gorm.DB) *GormStudents {
	return &GormStudents{db: db}
}

func (r *GormStudents) Create(ctx context.Context, s *campus.Student) error {
	row := studentRow{Student: *s}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("student %s: %w", s.StudentID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create student: %w", err)
	}
	s.CreatedAt, s.UpdatedAt = row.CreatedAt, row.UpdatedAt
	return nil
}

func (r *GormStudents) Update(ctx context.Context, s *campus.Student) error {
	// Select("*") writes zero values too; Update replaces the whole record
	res := r.db.WithContext(ctx).Model(&studentRow{}).
		Where("student_id = ?", s.StudentID).
		Select("*").Omit("created_at").
		Updates(&studentRow{Student: *s})
	if res.Error != nil {
		return fmt.Errorf("failed to update student: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("student %s: %w", s.StudentID, ErrNotFound)
	}
	return nil
}

func (r *GormStudents) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&studentRow{}, "student_id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete student: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("student %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *GormStudents) Get(ctx context.Context, id string) (*campus.Student, error) {
	var row studentRow
	if err := r.db.WithContext(ctx).First(&row, "student_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("student %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &row.Student, nil
}

func (r *GormStudents) List(ctx context.Context, q campus.Query) ([]campus.Student, error) {
	var rows []studentRow
	tx := r.db.WithContext(ctx).Order("student_id").Limit(limitOf(q))
	if q.Keyword != "" {
		like := "%" + strings.ToLower(q.Keyword) + "%"
		tx = tx.Where("LOWER(student_id) LIKE ? OR LOWER(name) LIKE ? OR LOWER(major) LIKE ? OR LOWER(class) LIKE ?",
			like, like, like, like)
	}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	out := make([]campus.Student, len(rows))
	for i := range rows {
		out[i] = rows[i].Student
	}
	return out, nil
}
