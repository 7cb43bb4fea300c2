package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etatcivil/pkg/platform/outbox"
	"etatcivil/pkg/platform/sentinel"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	second := outbox.NewEntry("declaration", "d2", "declaration.rejected", []byte(`{}`), base.Add(time.Second))
	first := outbox.NewEntry("declaration", "d1", "declaration.sent_to_hospital", []byte(`{}`), base)
	require.NoError(t, s.Append(ctx, second))
	require.NoError(t, s.Append(ctx, first))

	pending, err := s.FetchUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID, "oldest first")

	require.NoError(t, s.MarkProcessed(ctx, first.ID, base.Add(time.Minute)))
	assert.ErrorIs(t, s.MarkProcessed(ctx, first.ID, base.Add(time.Minute)), sentinel.ErrNotFound)

	count, err := s.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	deleted, err := s.DeleteProcessedBefore(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
