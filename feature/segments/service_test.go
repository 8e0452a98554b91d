package segments

import (
	"context"
	"iter"
	"sync"
	"testing"
	"time"

	"segment-sync/core/batch"
	"segment-sync/core/database"
	"segment-sync/core/index"
	"segment-sync/core/kvstore"
	"segment-sync/core/reconcile"
	"segment-sync/core/rows"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const activeUsers = "SELECT id FROM users WHERE active = 1"

func testConfig() reconcile.Config {
	return reconcile.Config{
		BatchSize:       2,
		ChangeTTL:       time.Hour,
		RefreshInterval: time.Hour,
		Concurrency:     2,
		FailurePolicy:   "preserve",
		RefreshOnSave:   true,
	}
}

// setupDB creates an in-memory catalog with a users table for definitions to query.
func setupDB(t *testing.T) *gorm.DB {
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)

	require.NoError(t, db.Exec("CREATE TABLE users (id INTEGER PRIMARY KEY, active INTEGER)").Error)
	require.NoError(t, db.Exec("INSERT INTO users (id, active) VALUES (1, 1), (2, 1), (3, 0)").Error)
	require.NoError(t, NewRepository(db).Migrate())
	return db
}

func setupService(t *testing.T, cfg reconcile.Config) (*Service, *gorm.DB, *miniredis.Miniredis) {
	db := setupDB(t)
	mr := miniredis.RunT(t)

	client := kvstore.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 0)
	store := index.New(client, index.Keys{}, zap.NewNop(), cfg.ChangeTTL)
	engine := reconcile.NewEngine(client, store, batch.New(client, cfg.BatchSize), zap.NewNop(), cfg.Options())

	svc := NewService(NewRepository(db), engine, NewSQLSource(db), db, zap.NewNop(), cfg)
	return svc, db, mr
}

func liveMembers(t *testing.T, mr *miniredis.Miniredis, key string) []string {
	t.Helper()
	if !mr.Exists(key) {
		return []string{}
	}
	m, err := mr.Members(key)
	require.NoError(t, err)
	return m
}

func TestService_CreateRefreshes(t *testing.T) {
	svc, _, mr := setupService(t, testConfig())

	seg, err := svc.Create(context.Background(), Input{Name: "Active Users", Priority: 5, Definition: activeUsers})
	require.NoError(t, err)

	assert.Equal(t, "active-users", seg.Slug)
	assert.Equal(t, int64(2), seg.MembersCount)
	require.NotNil(t, seg.RecalculatedAt)

	assert.ElementsMatch(t, []string{"1", "2"}, liveMembers(t, mr, "segment:"+seg.Key()))
	assert.ElementsMatch(t, []string{"1", "2"}, liveMembers(t, mr, "changes"))
	assert.Equal(t, time.Hour, mr.TTL("changes"))
}

func TestService_CreateRejects(t *testing.T) {
	tests := []struct {
		name    string
		in      Input
		wantErr error
	}{
		{"Not A Query", Input{Name: "x", Definition: "DELETE FROM users"}, rows.ErrInvalidDefinition},
		{"Broken Query", Input{Name: "x", Definition: "SELECT id FROM missing"}, rows.ErrInvalidDefinition},
		{"Missing Name", Input{Name: "  ", Definition: activeUsers}, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := setupService(t, testConfig())

			_, err := svc.Create(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.wantErr)

			list, err := svc.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc, _, mr := setupService(t, testConfig())

	seg, err := svc.Create(ctx, Input{Name: "Active", Definition: activeUsers})
	require.NoError(t, err)
	mr.Del("changes")

	updated, err := svc.Update(ctx, seg.ID, Input{Name: "Everyone", Slug: "all", Definition: "SELECT id FROM users"})
	require.NoError(t, err)

	assert.Equal(t, "Everyone", updated.Name)
	assert.Equal(t, "all", updated.Slug)
	assert.Equal(t, int64(3), updated.MembersCount)
	assert.Equal(t, []string{"3"}, liveMembers(t, mr, "changes"))
}

func TestService_UpdateWithoutRefreshOnSave(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.RefreshOnSave = false
	svc, _, mr := setupService(t, cfg)

	seg, err := svc.Create(ctx, Input{Name: "Active", Definition: activeUsers})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, seg.ID, Input{Name: "Active", Definition: "SELECT id FROM users"})
	require.NoError(t, err)

	assert.Equal(t, int64(2), updated.MembersCount)
	assert.Len(t, liveMembers(t, mr, "segment:"+seg.Key()), 2)
}

func TestService_UpdateNotFound(t *testing.T) {
	svc, _, _ := setupService(t, testConfig())

	_, err := svc.Update(context.Background(), 42, Input{Name: "x", Definition: activeUsers})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, _, mr := setupService(t, testConfig())

	seg, err := svc.Create(ctx, Input{Name: "Active", Definition: activeUsers})
	require.NoError(t, err)
	mr.Del("changes")

	require.NoError(t, svc.Delete(ctx, seg.ID))

	assert.False(t, mr.Exists("segment:"+seg.Key()))
	assert.Empty(t, liveMembers(t, mr, "member:1"))
	assert.ElementsMatch(t, []string{"1", "2"}, liveMembers(t, mr, "changes"))

	_, err = svc.Get(ctx, seg.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, seg.ID), ErrNotFound)
}

func TestService_DeleteKeepsRowWhenTeardownFails(t *testing.T) {
	ctx := context.Background()
	svc, _, mr := setupService(t, testConfig())

	seg, err := svc.Create(ctx, Input{Name: "Active", Definition: activeUsers})
	require.NoError(t, err)

	mr.SetError("ERR backend unavailable")
	assert.Error(t, svc.Delete(ctx, seg.ID))
	mr.SetError("")

	_, err = svc.Get(ctx, seg.ID)
	assert.NoError(t, err)
}

func TestService_RefreshRecordsCount(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := setupService(t, testConfig())

	seg, err := svc.Create(ctx, Input{Name: "Active", Definition: activeUsers})
	require.NoError(t, err)

	require.NoError(t, db.Exec("INSERT INTO users (id, active) VALUES (4, 1)").Error)

	res, err := svc.Refresh(ctx, seg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Cardinality)
	assert.Equal(t, int64(1), res.Added)

	got, err := svc.Get(ctx, seg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.MembersCount)
}

func TestService_RefreshFailureKeepsMembership(t *testing.T) {
	ctx := context.Background()
	svc, db, mr := setupService(t, testConfig())

	seg, err := svc.Create(ctx, Input{Name: "Active", Definition: activeUsers})
	require.NoError(t, err)

	require.NoError(t, db.Exec("DROP TABLE users").Error)

	_, err = svc.Refresh(ctx, seg.ID)
	require.Error(t, err)

	assert.ElementsMatch(t, []string{"1", "2"}, liveMembers(t, mr, "segment:"+seg.Key()))
	got, err := svc.Get(ctx, seg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.MembersCount)
}

func TestService_RefreshNotFound(t *testing.T) {
	svc, _, _ := setupService(t, testConfig())

	_, err := svc.Refresh(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_ConcurrentRefresh(t *testing.T) {
	ctx := context.Background()
	svc, _, mr := setupService(t, testConfig())

	seg, err := svc.Create(ctx, Input{Name: "Active", Definition: activeUsers})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Refresh(ctx, seg.ID)
			assert.NoError(t, err)
			assert.Equal(t, int64(2), res.Cardinality)
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []string{"1", "2"}, liveMembers(t, mr, "segment:"+seg.Key()))
}

func TestService_MembershipQueries(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t, testConfig())

	active, err := svc.Create(ctx, Input{Name: "Active", Definition: activeUsers})
	require.NoError(t, err)
	all, err := svc.Create(ctx, Input{Name: "All", Definition: "SELECT id FROM users"})
	require.NoError(t, err)

	members, err := svc.Members(ctx, active.ID, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2"}, members)

	members, err = svc.Members(ctx, all.ID, 1)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	n, err := svc.Count(ctx, all.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	segs, err := svc.MemberSegments(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{active.Key(), all.Key()}, segs)

	segs, err = svc.MemberSegments(ctx, "003")
	require.NoError(t, err)
	assert.Equal(t, []string{all.Key()}, segs)

	ok, err := svc.HasMember(ctx, active.ID, "3")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.HasMember(ctx, all.ID, "3")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.MemberSegments(ctx, "abc")
	assert.ErrorIs(t, err, ErrInvalidMember)

	_, err = svc.HasMember(ctx, 99, "1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Members(ctx, 99, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_ValidateDefinition(t *testing.T) {
	svc, _, _ := setupService(t, testConfig())

	probe, err := svc.ValidateDefinition(context.Background(), "SELECT id, active FROM users ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "active"}, probe.Columns)
	assert.True(t, probe.HasRows)
	assert.EqualValues(t, 1, probe.Sample)

	_, err = svc.ValidateDefinition(context.Background(), "UPDATE users SET active = 0")
	assert.ErrorIs(t, err, rows.ErrInvalidDefinition)
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Active Users":      "active-users",
		"  VIP -- 2024 ":    "vip-2024",
		"already-slugged":   "already-slugged",
		"Ünïcode Mëmbers!!": "ünïcode-mëmbers",
		"":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

// gatedSource holds every query until release is closed.
type gatedSource struct {
	rows.Source
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedSource) Rows(ctx context.Context, definition string) iter.Seq2[rows.Row, error] {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.Source.Rows(ctx, definition)
}

func TestService_RefreshSurvivesCancelledCaller(t *testing.T) {
	svc, db, mr := setupService(t, testConfig())
	seg := &Segment{Name: "Active", Slug: "active", Definition: activeUsers}
	require.NoError(t, svc.repo.Create(context.Background(), seg))

	gate := &gatedSource{Source: NewSQLSource(db), started: make(chan struct{}), release: make(chan struct{})}
	svc.source = gate

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(ctx, seg.ID)
		firstErr <- err
	}()
	<-gate.started

	type outcome struct {
		res reconcile.Result
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		res, err := svc.Refresh(context.Background(), seg.ID)
		second <- outcome{res, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(gate.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, int64(2), got.res.Cardinality)
	assert.ElementsMatch(t, []string{"1", "2"}, liveMembers(t, mr, "segment:"+seg.Key()))
}

func TestService_TruncateFailureRecordsCount(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.FailurePolicy = "truncate"
	svc, db, mr := setupService(t, cfg)

	seg, err := svc.Create(ctx, Input{Name: "Active", Definition: activeUsers})
	require.NoError(t, err)
	before, err := svc.Get(ctx, seg.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), before.MembersCount)
	require.NotNil(t, before.RecalculatedAt)

	require.NoError(t, db.Exec("DROP TABLE users").Error)

	res, err := svc.Refresh(ctx, seg.ID)
	require.Error(t, err)
	assert.True(t, res.Published)

	assert.Empty(t, liveMembers(t, mr, "segment:"+seg.Key()))
	got, err := svc.Get(ctx, seg.ID)
	require.NoError(t, err)
	assert.Zero(t, got.MembersCount)
	require.NotNil(t, got.RecalculatedAt)
	assert.True(t, before.RecalculatedAt.Equal(*got.RecalculatedAt))
}
