package segments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestScheduler_RefreshAll(t *testing.T) {
	ctx := context.Background()
	svc, _, mr := setupService(t, testConfig())

	core, logs := observer.New(zapcore.InfoLevel)
	sched := NewScheduler(svc, zap.New(core), 2, time.Hour)

	// Stored directly so the broken definition skips validation.
	require.NoError(t, svc.repo.Create(ctx, &Segment{Name: "Active", Slug: "active", Priority: 3, Definition: activeUsers}))
	require.NoError(t, svc.repo.Create(ctx, &Segment{Name: "All", Slug: "all", Priority: 2, Definition: "SELECT id FROM users"}))
	require.NoError(t, svc.repo.Create(ctx, &Segment{Name: "Broken", Slug: "broken", Priority: 1, Definition: "SELECT id FROM missing"}))

	sum, err := sched.RefreshAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.Positive(t, sum.Duration)

	assert.Len(t, liveMembers(t, mr, "segment:1"), 2)
	assert.Len(t, liveMembers(t, mr, "segment:2"), 3)
	assert.Empty(t, liveMembers(t, mr, "segment:3"))

	assert.Equal(t, 2, logs.FilterMessage("Refreshed segment").Len())
	failed := logs.FilterMessage("Failed to refresh segment").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "Broken", failed[0].ContextMap()["name"])

	summary := logs.FilterMessage("Segments refreshed").All()
	require.Len(t, summary, 1)
	assert.EqualValues(t, 2, summary[0].ContextMap()["succeeded"])
	assert.EqualValues(t, 1, summary[0].ContextMap()["failed"])
}

func TestScheduler_RefreshAllEmpty(t *testing.T) {
	svc, _, _ := setupService(t, testConfig())

	sum, err := NewScheduler(svc, zap.NewNop(), 0, time.Hour).RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Total)
}

func TestScheduler_Run(t *testing.T) {
	svc, _, _ := setupService(t, testConfig())
	require.NoError(t, svc.repo.Create(context.Background(), &Segment{Name: "Active", Slug: "active", Definition: activeUsers}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewScheduler(svc, zap.NewNop(), 1, 10*time.Millisecond).Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		seg, err := svc.Get(context.Background(), 1)
		return err == nil && seg.MembersCount == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_RunDisabled(t *testing.T) {
	svc, _, _ := setupService(t, testConfig())

	done := make(chan struct{})
	go func() {
		NewScheduler(svc, zap.NewNop(), 1, 0).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled scheduler should return immediately")
	}
}
