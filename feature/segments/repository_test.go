package segments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupDB(t))

	low := &Segment{Name: "Low", Slug: "low", Priority: 1, Definition: "SELECT 1"}
	high := &Segment{Name: "High", Slug: "high", Priority: 10, Definition: "SELECT 2"}
	require.NoError(t, repo.Create(ctx, low))
	require.NoError(t, repo.Create(ctx, high))
	assert.NotZero(t, low.ID)

	t.Run("List By Priority", func(t *testing.T) {
		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "High", list[0].Name)
		assert.Equal(t, "Low", list[1].Name)
	})

	t.Run("Update", func(t *testing.T) {
		low.Definition = "SELECT 3"
		require.NoError(t, repo.Update(ctx, low))

		got, err := repo.Get(ctx, low.ID)
		require.NoError(t, err)
		assert.Equal(t, "SELECT 3", got.Definition)
	})

	t.Run("Mark Refreshed", func(t *testing.T) {
		at := time.Now().Truncate(time.Second)
		require.NoError(t, repo.MarkRefreshed(ctx, high.ID, 42, at))

		got, err := repo.Get(ctx, high.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(42), got.MembersCount)
		require.NotNil(t, got.RecalculatedAt)
		assert.True(t, at.Equal(*got.RecalculatedAt))
	})

	t.Run("Not Found", func(t *testing.T) {
		_, err := repo.Get(ctx, 999)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, 999), ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, low.ID))
		_, err := repo.Get(ctx, low.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Duplicate Slug", func(t *testing.T) {
		err := repo.Create(ctx, &Segment{Name: "Again", Slug: "high", Definition: "SELECT 1"})
		assert.Error(t, err)
	})
}

func TestSegment_Key(t *testing.T) {
	assert.Equal(t, "17", Segment{ID: 17}.Key())
}

func TestRepository_RecordCount(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupDB(t))

	seg := &Segment{Name: "Counted", Slug: "counted", Definition: "SELECT 1"}
	require.NoError(t, repo.Create(ctx, seg))
	require.NoError(t, repo.RecordCount(ctx, seg.ID, 7))

	got, err := repo.Get(ctx, seg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.MembersCount)
	assert.Nil(t, got.RecalculatedAt)
}
