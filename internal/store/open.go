package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vcampus/internal/campus"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendHybrid   = "hybrid" // postgres with a redis cache
)

type Options struct {
	Backend       string
	RedisURL      string
	RedisPassword string
	DatabaseURL   string
	Logger        *slog.Logger
}

// Open builds the repositories for the chosen student backend. Every other
// repository is in memory. The returned close func releases connections.
func Open(ctx context.Context, opts Options) (*Repositories, func() error, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	repos := NewMemory()
	noop := func() error { return nil }

	switch opts.Backend {
	case "", BackendMemory:
		return repos, noop, nil

	case BackendRedis:
		rdb, err := NewRedisClient(ctx, opts.RedisURL, opts.RedisPassword)
		if err != nil {
			return nil, nil, err
		}
		repos.Students = NewRedisStudents(rdb)
		logger.Info("student_store_ready", "backend", BackendRedis, "addr", opts.RedisURL)
		return repos, rdb.Close, nil

	case BackendPostgres, BackendHybrid:
		db, err := OpenPostgres(opts.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		primary := NewGormStudents(db)
		if opts.Backend == BackendPostgres {
			repos.Students = primary
			logger.Info("student_store_ready", "backend", BackendPostgres)
			return repos, sqlDB.Close, nil
		}

		rdb, err := NewRedisClient(ctx, opts.RedisURL, opts.RedisPassword)
		if err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		repos.Students = NewCachedStudents(primary, NewRedisStudents(rdb), logger)
		logger.Info("student_store_ready", "backend", BackendHybrid, "redis_addr", opts.RedisURL)
		return repos, func() error {
			return errors.Join(rdb.Close(), sqlDB.Close())
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

// Seed fills the catalog repositories with a small demo data set.
func Seed(ctx context.Context, repos *Repositories, now time.Time) error {
	books := []campus.Book{
		{ISBN: "978-7-111-55842-2", Title: "The Go Programming Language", Author: "Donovan, Kernighan", Total: 3},
		{ISBN: "978-7-115-42802-8", Title: "Computer Networking", Author: "Kurose, Ross", Total: 2},
		{ISBN: "978-7-302-33064-6", Title: "Database System Concepts", Author: "Silberschatz", Total: 1},
	}
	for _, b := range books {
		if err := repos.Books.Add(ctx, b); err != nil && !errors.Is(err, ErrAlreadyExists) {
			return err
		}
	}

	products := []campus.Product{
		{ID: "P001", Name: "Notebook", PriceCents: 450, Stock: 200},
		{ID: "P002", Name: "Campus hoodie", PriceCents: 12900, Stock: 25},
		{ID: "P003", Name: "USB-C cable", PriceCents: 1500, Stock: 60},
	}
	for _, p := range products {
		if err := repos.Products.Add(ctx, p); err != nil && !errors.Is(err, ErrAlreadyExists) {
			return err
		}
	}

	courses := []campus.Course{
		{ID: "CS101", Name: "Introduction to Programming", TeacherID: "T001", Credits: 3, Capacity: 120},
		{ID: "CS305", Name: "Computer Networks", TeacherID: "T002", Credits: 4, Capacity: 60},
		{ID: "MA201", Name: "Linear Algebra", TeacherID: "T003", Credits: 3, Capacity: 90},
	}
	for _, c := range courses {
		if err := repos.Courses.Add(ctx, c); err != nil && !errors.Is(err, ErrAlreadyExists) {
			return err
		}
	}

	docs := []campus.Document{
		{ID: "D001", Title: "Student handbook", Category: "policy", Author: "Academic Affairs", UploadedAt: now},
		{ID: "D002", Title: "Library opening hours", Category: "notice", Author: "Library", UploadedAt: now},
	}
	for i := range docs {
		if err := repos.Documents.Add(ctx, &docs[i]); err != nil && !errors.Is(err, ErrAlreadyExists) {
			return err
		}
	}
	return nil
}
