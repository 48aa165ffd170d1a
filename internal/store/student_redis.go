package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vcampus/internal/campus"
)

const studentIndexKey = "students"

func studentKey(id string) string { return fmt.Sprintf("student:%s", id) }

// RedisStudents stores each student as a hash and keeps the id set in
// studentIndexKey. SADD on the index decides uniqueness.
type RedisStudents struct {
	client *redis.Client
}

// NewRedisClient connects and pings; the caller owns the client.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	// verify connection
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

func NewRedisStudents(client *redis.Client) *RedisStudents {
	return &RedisStudents{client: client}
}

func studentFields(s *campus.Student) map[string]any {
	return map[string]any{
		"student_id":    s.StudentID,
		"name":          s.Name,
		"gender":        s.Gender,
		"major":         s.Major,
		"class":         s.Class,
		"email":         s.Email,
		"password_hash": s.Hash,
		"created_at":    s.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":    s.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func studentFromFields(fields map[string]string) *campus.Student {
	s := &campus.Student{
		StudentID: fields["student_id"],
		Name:      fields["name"],
		Gender:    fields["gender"],
		Major:     fields["major"],
		Class:     fields["class"],
		Email:     fields["email"],
		Hash:      fields["password_hash"],
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields["created_at"])
	s.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields["updated_at"])
	return s
}

func (r *RedisStudents) Create(ctx context.Context, s *campus.Student) error {
	added, err := r.client.SAdd(ctx, studentIndexKey, s.StudentID).Result()
	if err != nil {
		return fmt.Errorf("failed to index student: %w", err)
	}
	if added == 0 {
		return fmt.Errorf("student %s: %w", s.StudentID, ErrAlreadyExists)
	}
	if err := r.client.HSet(ctx, studentKey(s.StudentID), studentFields(s)).Err(); err != nil {
		r.client.SRem(ctx, studentIndexKey, s.StudentID)
		return fmt.Errorf("failed to save student: %w", err)
	}
	return nil
}

func (r *RedisStudents) Update(ctx context.Context, s *campus.Student) error {
	ok, err := r.client.SIsMember(ctx, studentIndexKey, s.StudentID).Result()
	if err != nil {
		return fmt.Errorf("failed to check student: %w", err)
	}
	if !ok {
		return fmt.Errorf("student %s: %w", s.StudentID, ErrNotFound)
	}
	return r.client.HSet(ctx, studentKey(s.StudentID), studentFields(s)).Err()
}

func (r *RedisStudents) Delete(ctx context.Context, id string) error {
	removed, err := r.client.SRem(ctx, studentIndexKey, id).Result()
	if err != nil {
		return fmt.Errorf("failed to unindex student: %w", err)
	}
	if removed == 0 {
		return fmt.Errorf("student %s: %w", id, ErrNotFound)
	}
	return r.client.Del(ctx, studentKey(id)).Err()
}

func (r *RedisStudents) Get(ctx context.Context, id string) (*campus.Student, error) {
	fields, err := r.client.HGetAll(ctx, studentKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("student %s: %w", id, ErrNotFound)
	}
	return studentFromFields(fields), nil
}

func (r *RedisStudents) List(ctx context.Context, q campus.Query) ([]campus.Student, error) {
	ids, err := r.client.SMembers(ctx, studentIndexKey).Result()
	if err != nil {
		return nil, err
	}

	// one round trip for all hashes
	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, studentKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to load students: %w", err)
	}

	out := make([]campus.Student, 0, len(ids))
	for _, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		s := studentFromFields(fields)
		if matches(q.Keyword, s.StudentID, s.Name, s.Major, s.Class) {
			out = append(out, *s)
		}
	}
	sortStudents(out)
	return truncate(out, limitOf(q)), nil
}
