package leaderboard_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finalsentence/server/internal/leaderboard"
)

func testLeaderboard(t *testing.T) *leaderboard.Leaderboard {
	t.Helper()
	mr := miniredis.RunT(t)
	lb, err := leaderboard.New(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = lb.Close() })
	return lb
}

func TestNew_BadURL(t *testing.T) {
	_, err := leaderboard.New(context.Background(), "not-a-url")
	assert.Error(t, err)
}

func TestNew_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := leaderboard.New(context.Background(), "redis://"+addr)
	assert.Error(t, err)
}

func TestRecordAndTop_OrdersByScore(t *testing.T) {
	lb := testLeaderboard(t)
	ctx := context.Background()

	require.NoError(t, lb.Record(ctx, "p1", "ana", 42.5))
	require.NoError(t, lb.Record(ctx, "p2", "beto", 61.0))
	require.NoError(t, lb.Record(ctx, "p3", "carla", 18.2))

	top, err := lb.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, leaderboard.Entry{PlayerID: "p2", Name: "beto", WPM: 61.0}, top[0])
	assert.Equal(t, "p1", top[1].PlayerID)
	assert.Equal(t, "p3", top[2].PlayerID)
}

func TestRecord_KeepsBestScore(t *testing.T) {
	lb := testLeaderboard(t)
	ctx := context.Background()

	require.NoError(t, lb.Record(ctx, "p1", "ana", 50))
	require.NoError(t, lb.Record(ctx, "p1", "ana", 30))

	top, err := lb.Top(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.InDelta(t, 50.0, top[0].WPM, 1e-9, "a worse run must not lower the best score")

	require.NoError(t, lb.Record(ctx, "p1", "ana", 55))
	top, err = lb.Top(ctx, 1)
	require.NoError(t, err)
	assert.InDelta(t, 55.0, top[0].WPM, 1e-9)
}

func TestRecord_RefreshesName(t *testing.T) {
	lb := testLeaderboard(t)
	ctx := context.Background()

	require.NoError(t, lb.Record(ctx, "p1", "ana", 50))
	require.NoError(t, lb.Record(ctx, "p1", "ana_renamed", 20))

	top, err := lb.Top(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "ana_renamed", top[0].Name)
	assert.InDelta(t, 50.0, top[0].WPM, 1e-9)
}

func TestTop_LimitAndEmpty(t *testing.T) {
	lb := testLeaderboard(t)
	ctx := context.Background()

	top, err := lb.Top(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, top)

	require.NoError(t, lb.Record(ctx, "p1", "ana", 10))
	require.NoError(t, lb.Record(ctx, "p2", "beto", 20))

	top, err = lb.Top(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "p2", top[0].PlayerID)
}

func TestNilLeaderboard_NoOps(t *testing.T) {
	var lb *leaderboard.Leaderboard
	ctx := context.Background()

	assert.NoError(t, lb.Record(ctx, "p1", "ana", 50))
	assert.NoError(t, lb.Ping(ctx))
	assert.NoError(t, lb.Close())

	top, err := lb.Top(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, top)
}
