package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

// RedisStudentsTestSuite runs the repository contract against a real Redis.
type RedisStudentsTestSuite struct {
	suite.Suite
	client *redis.Client
}

func (s *RedisStudentsTestSuite) SetupSuite() {
	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		addr = "localhost:6379"
	}
	s.client = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   1, // separate DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.T().Skip("Redis not available, skipping redis store tests")
	}
}

func (s *RedisStudentsTestSuite) SetupTest() {
	s.client.FlushDB(context.Background())
}

func (s *RedisStudentsTestSuite) TearDownSuite() {
	if s.client != nil {
		s.client.FlushDB(context.Background())
		s.client.Close()
	}
}

func (s *RedisStudentsTestSuite) TestContract() {
	exerciseStudents(s.T(), NewRedisStudents(s.client))
}

func (s *RedisStudentsTestSuite) TestCachedOverRedis() {
	exerciseStudents(s.T(), NewCachedStudents(NewMemoryStudents(), NewRedisStudents(s.client), nil))
}

func TestRedisStudentsTestSuite(t *testing.T) {
	suite.Run(t, new(RedisStudentsTestSuite))
}
