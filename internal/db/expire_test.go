package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteExpiredJots(t *testing.T) {
	repo, database, clock := setupRepo(t)
	ctx := context.Background()
	cid := mustContext(t, repo, "work")

	past := clock.Now().Add(-time.Second)
	exact := clock.Now()
	future := clock.Now().Add(time.Hour)

	gone, err := repo.CreateJot(ctx, NewJot{ContextID: cid, Message: "expired", ExpiresAt: &past, Tags: []string{"t"}})
	require.NoError(t, err)
	_, err = repo.CreateJot(ctx, NewJot{ContextID: cid, Message: "boundary", ExpiresAt: &exact})
	require.NoError(t, err)
	_, err = repo.CreateJot(ctx, NewJot{ContextID: cid, Message: "later", ExpiresAt: &future})
	require.NoError(t, err)
	_, err = repo.CreateJot(ctx, NewJot{ContextID: cid, Message: "permanent"})
	require.NoError(t, err)

	n, err := repo.DeleteExpiredJots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := repo.GetJot(ctx, gone.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	var tags int
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM jot_tags WHERE jot_id = ?", gone.ID).Scan(&tags))
	assert.Zero(t, tags)

	// A second sweep at the same instant finds nothing.
	n, err = repo.DeleteExpiredJots(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Once time moves past the boundary and the hour, both go; the permanent jot stays.
	clock.Advance(2 * time.Hour)
	n, err = repo.DeleteExpiredJots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := repo.SearchJots(ctx, SearchFilter{IncludeExpired: true})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "permanent", left[0].Message)
}

func TestGetExpiringSoon(t *testing.T) {
	repo, _, clock := setupRepo(t)
	ctx := context.Background()
	cid := mustContext(t, repo, "work")

	day := 24 * time.Hour
	at := func(d time.Duration) *time.Time {
		v := clock.Now().Add(d)
		return &v
	}

	_, err := repo.CreateJot(ctx, NewJot{ContextID: cid, Message: "already expired", ExpiresAt: at(-time.Minute)})
	require.NoError(t, err)
	_, err = repo.CreateJot(ctx, NewJot{ContextID: cid, Message: "now", ExpiresAt: at(0)})
	require.NoError(t, err)
	_, err = repo.CreateJot(ctx, NewJot{ContextID: cid, Message: "in five days", ExpiresAt: at(5 * day)})
	require.NoError(t, err)
	_, err = repo.CreateJot(ctx, NewJot{ContextID: cid, Message: "tomorrow", ExpiresAt: at(day)})
	require.NoError(t, err)
	_, err = repo.CreateJot(ctx, NewJot{ContextID: cid, Message: "edge", ExpiresAt: at(7 * day)})
	require.NoError(t, err)
	_, err = repo.CreateJot(ctx, NewJot{ContextID: cid, Message: "far", ExpiresAt: at(8 * day)})
	require.NoError(t, err)
	_, err = repo.CreateJot(ctx, NewJot{ContextID: cid, Message: "permanent"})
	require.NoError(t, err)

	got, err := repo.GetExpiringSoon(ctx, 7)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "tomorrow", got[0].Message)
	assert.Equal(t, "in five days", got[1].Message)
	assert.Equal(t, "edge", got[2].Message)

	got, err = repo.GetExpiringSoon(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
