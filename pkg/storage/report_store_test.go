package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProVishP/protegrity-developer-edition-trial-center/internal/report"
)

func TestPutAndGet(t *testing.T) {
	store := NewMemoryReportStore(4)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &report.View{ID: "a", Mode: "redact"}))

	view, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "redact", view.Mode)
}

func TestGetUnknownID(t *testing.T) {
	store := NewMemoryReportStore(4)

	_, err := store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPutRejectsEmptyID(t *testing.T) {
	store := NewMemoryReportStore(4)

	require.Error(t, store.Put(context.Background(), &report.View{}))
	require.Error(t, store.Put(context.Background(), nil))
}

func TestEvictsOldestWhenFull(t *testing.T) {
	store := NewMemoryReportStore(2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Put(ctx, &report.View{ID: fmt.Sprintf("r%d", i)}))
	}

	_, err := store.Get(ctx, "r0")
	require.ErrorIs(t, err, ErrNotFound)

	views, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "r1", views[0].ID)
	assert.Equal(t, "r2", views[1].ID)
}

func TestUpdateDoesNotDuplicate(t *testing.T) {
	store := NewMemoryReportStore(2)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &report.View{ID: "a", Mode: "protect"}))
	require.NoError(t, store.Put(ctx, &report.View{ID: "a", Mode: "redact"}))

	views, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "redact", views[0].Mode)
}
