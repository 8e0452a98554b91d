package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"segment-sync/core/batch"
	"segment-sync/core/index"
	kvmocks "segment-sync/core/kvstore/mocks"
	"segment-sync/core/reconcile"
	"segment-sync/core/rows/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDelete(t *testing.T) {
	ctx := context.Background()
	e, mr := setupEngine(t, reconcile.Options{}, zap.NewNop())

	_, err := e.Refresh(ctx, "10", "select 1", mocks.Values(1, 2, 3))
	require.NoError(t, err)
	_, err = e.Refresh(ctx, "11", "select 2", mocks.Values(3))
	require.NoError(t, err)
	mr.Del("changes")

	n, err := e.Delete(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	assert.False(t, mr.Exists("segment:10"))
	assert.Empty(t, members(t, mr, "member:1"))
	assert.Empty(t, members(t, mr, "member:2"))
	assert.Equal(t, []string{"11"}, members(t, mr, "member:3"))
	assert.Equal(t, []string{"1", "2", "3"}, members(t, mr, "changes"))
	assert.Equal(t, 7*24*time.Hour, mr.TTL("changes"))
}

func TestDelete_KeepsQueuedChanges(t *testing.T) {
	ctx := context.Background()
	e, mr := setupEngine(t, reconcile.Options{}, zap.NewNop())

	_, err := e.Refresh(ctx, "10", "select 1", mocks.Values(1))
	require.NoError(t, err)
	_, err = mr.SetAdd("changes", "99")
	require.NoError(t, err)

	_, err = e.Delete(ctx, "10")
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "99"}, members(t, mr, "changes"))
}

func TestDelete_UnknownSegment(t *testing.T) {
	e, mr := setupEngine(t, reconcile.Options{}, zap.NewNop())

	n, err := e.Delete(context.Background(), "404")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, members(t, mr, "changes"))
}

func TestDelete_StoreFailure(t *testing.T) {
	e, mr := setupEngine(t, reconcile.Options{}, zap.NewNop())

	mr.SetError("ERR backend unavailable")
	_, err := e.Delete(context.Background(), "10")
	assert.Error(t, err)
}

func TestDelete_QueuesMembersPerBatch(t *testing.T) {
	ctx := context.Background()
	client := new(kvmocks.Client)
	p := new(kvmocks.Pipeline)
	store := index.New(client, index.Keys{}, zap.NewNop(), time.Hour)
	e := reconcile.NewEngine(client, store, batch.New(client, 10), zap.NewNop(), reconcile.Options{})

	client.On("SCard", ctx, "segment:10").Return(int64(2), nil)
	client.On("Scan", ctx, "segment:10").Return(batch.Slice([]string{"1", "2"}))
	client.On("Pipeline").Return(p)
	for _, m := range []string{"1", "2"} {
		p.On("SRem", ctx, "member:"+m, []string{"10"}).Once()
		p.On("SAdd", ctx, "changes", []string{m}).Once()
	}
	p.On("Exec", ctx).Return(nil).Once()
	client.On("Del", ctx, []string{"segment:10"}).Return(nil)
	client.On("Expire", ctx, "changes", time.Hour).Return(nil)

	n, err := e.Delete(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// The queue is only ever appended to, never rebuilt.
	client.AssertNotCalled(t, "SUnionStore", mock.Anything, mock.Anything, mock.Anything)
	client.AssertExpectations(t)
	p.AssertExpectations(t)
}

func TestDelete_RetractionFailureKeepsLiveSet(t *testing.T) {
	ctx := context.Background()
	client := new(kvmocks.Client)
	p := new(kvmocks.Pipeline)
	store := index.New(client, index.Keys{}, zap.NewNop(), time.Hour)
	e := reconcile.NewEngine(client, store, batch.New(client, 10), zap.NewNop(), reconcile.Options{})

	client.On("SCard", ctx, "segment:10").Return(int64(1), nil)
	client.On("Scan", ctx, "segment:10").Return(batch.Slice([]string{"1"}))
	client.On("Pipeline").Return(p)
	p.On("SRem", ctx, "member:1", []string{"10"})
	p.On("SAdd", ctx, "changes", []string{"1"})
	p.On("Exec", ctx).Return(errors.New("connection reset"))

	_, err := e.Delete(ctx, "10")
	assert.ErrorContains(t, err, "connection reset")
	client.AssertNotCalled(t, "Del", mock.Anything, mock.Anything)
}
