//go:build integration

package sequence_test

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/suite"

	"etatcivil/internal/sequence"
	"etatcivil/pkg/testutil"
	"etatcivil/pkg/testutil/containers"
)

type AllocatorIntegrationSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	redis    *containers.RedisContainer
}

func TestAllocatorIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AllocatorIntegrationSuite))
}

func (s *AllocatorIntegrationSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.redis = mgr.GetRedis(s.T())
}

func (s *AllocatorIntegrationSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "sequence_counters"))
	s.Require().NoError(s.redis.FlushAll(ctx))
}

func (s *AllocatorIntegrationSuite) allocators() map[string]sequence.Allocator {
	return map[string]sequence.Allocator{
		"postgres": sequence.NewPostgresAllocator(s.postgres.DB),
		"redis":    sequence.NewRedisAllocator(s.redis.Client),
	}
}

func (s *AllocatorIntegrationSuite) TestConcurrentNextIsGapFreeAndDistinct() {
	for name, alloc := range s.allocators() {
		s.Run(name, func() {
			const n = 50
			values, errs := testutil.RunConcurrentCollect(n, func(int) (int64, error) {
				return alloc.Next(context.Background(), name+":2025")
			})
			for _, err := range errs {
				s.Require().NoError(err)
			}
			sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
			for i, v := range values {
				s.Equal(int64(i+1), v)
			}
		})
	}
}

func (s *AllocatorIntegrationSuite) TestRolledBackTransactionReleasesValue() {
	ctx := context.Background()
	alloc := sequence.NewPostgresAllocator(s.postgres.DB)

	tx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)
	v, err := alloc.WithTx(tx).Next(ctx, "rollback:2025")
	s.Require().NoError(err)
	s.Equal(int64(1), v)
	s.Require().NoError(tx.Rollback())

	v, err = alloc.Next(ctx, "rollback:2025")
	s.Require().NoError(err)
	s.Equal(int64(1), v)
}
