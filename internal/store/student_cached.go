package store

import (
	"context"
	"errors"
	"log/slog"

	"vcampus/internal/campus"
)

// CachedStudents combines a persistent primary (Postgres) with a Redis cache.
// Writes go to the primary first and then refresh the cache; reads try the
// cache first and warm it on a miss. Lists always come from the primary.
type CachedStudents struct {
	primary StudentRepository
	cache   StudentRepository
	logger  *slog.Logger
}

func NewCachedStudents(primary, cache StudentRepository, logger *slog.Logger) *CachedStudents {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStudents{primary: primary, cache: cache, logger: logger}
}

func (r *CachedStudents) Create(ctx context.Context, s *campus.Student) error {
	if err := r.primary.Create(ctx, s); err != nil {
		return err
	}
	r.refresh(ctx, s)
	return nil
}

func (r *CachedStudents) Update(ctx context.Context, s *campus.Student) error {
	if err := r.primary.Update(ctx, s); err != nil {
		return err
	}
	r.refresh(ctx, s)
	return nil
}

func (r *CachedStudents) Delete(ctx context.Context, id string) error {
	if err := r.primary.Delete(ctx, id); err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		r.logger.Warn("student_cache_delete_failed", "student_id", id, "error", err)
	}
	return nil
}

func (r *CachedStudents) Get(ctx context.Context, id string) (*campus.Student, error) {
	if s, err := r.cache.Get(ctx, id); err == nil {
		return s, nil
	}
	r.logger.Debug("student_cache_miss", "student_id", id)

	s, err := r.primary.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.refresh(ctx, s)
	return s, nil
}

func (r *CachedStudents) List(ctx context.Context, q campus.Query) ([]campus.Student, error) {
	return r.primary.List(ctx, q)
}

// refresh writes s to the cache. Cache failures are logged and never fail
// the operation; the primary already holds the record.
func (r *CachedStudents) refresh(ctx context.Context, s *campus.Student) {
	err := r.cache.Update(ctx, s)
	if errors.Is(err, ErrNotFound) {
		err = r.cache.Create(ctx, s)
	}
	if err != nil {
		r.logger.Warn("student_cache_refresh_failed", "student_id", s.StudentID, "error", err)
	}
}
