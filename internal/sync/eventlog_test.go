package syncx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/coursekit-lms/internal/testutil"
)

func TestEventLog(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewEventRepo(db, "site-a")
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, "enrollment.in_progress", "e1", `{"to":"IN_PROGRESS"}`))
	require.NoError(t, repo.Append(ctx, "enrollment.completed", "e1", `{"to":"COMPLETED"}`))
	require.NoError(t, repo.Append(ctx, "enrollment.approved", "e2", `{"to":"ENROLLED"}`))

	all, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "enrollment.in_progress", all[0].Type)
	assert.Equal(t, "e1", all[0].Key)
	assert.Equal(t, "site-a", all[0].SiteID)
	assert.JSONEq(t, `{"to":"IN_PROGRESS"}`, all[0].DataJSON)

	// Offsets are strictly increasing; consumers window on them.
	assert.Less(t, all[0].Offset, all[1].Offset)
	assert.Less(t, all[1].Offset, all[2].Offset)

	tail, err := repo.List(ctx, all[0].Offset, 10)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, "enrollment.completed", tail[0].Type)

	// Limit bounds the window.
	firstTwo, err := repo.List(ctx, 0, 2)
	require.NoError(t, err)
	assert.Len(t, firstTwo, 2)

	// Nonsense limits fall back to the default window.
	fallback, err := repo.List(ctx, 0, -1)
	require.NoError(t, err)
	assert.Len(t, fallback, 3)
}

func TestEventRepoDefaultSite(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewEventRepo(db, "")
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, "enrollment.completed", "e9", `{}`))
	events, err := repo.List(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "local", events[0].SiteID)
}
