package background

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careersync/pkg/models"
)

func newTaskResult(processID string) *TaskResult {
	return &TaskResult{
		ProcessID: processID,
		Type:      TaskTypeFetch,
		Status:    models.AsyncStatusAccepted,
		CreatedAt: time.Now(),
		Metadata: map[string]interface{}{
			"url": "https://jobs.acme.example/careers",
		},
	}
}

func TestInMemoryTaskStoreRoundTrip(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, newTaskResult("proc-1")))

	got, err := store.Get(ctx, "proc-1")
	require.NoError(t, err)
	assert.Equal(t, "proc-1", got.ProcessID)
	assert.Equal(t, models.AsyncStatusAccepted, got.Status)

	got.Status = models.AsyncStatusProcessing
	require.NoError(t, store.Update(ctx, got))

	updated, err := store.Get(ctx, "proc-1")
	require.NoError(t, err)
	assert.Equal(t, models.AsyncStatusProcessing, updated.Status)

	require.NoError(t, store.Delete(ctx, "proc-1"))

	_, err = store.Get(ctx, "proc-1")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestInMemoryTaskStoreUnknownProcess(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	assert.ErrorIs(t, store.Update(ctx, newTaskResult("missing")), ErrTaskNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "missing"), ErrTaskNotFound)
}

func TestInMemoryTaskStoreCleanup(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	stale := newTaskResult("stale")
	stale.CreatedAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, store.Store(ctx, stale))

	fresh := newTaskResult("fresh")
	require.NoError(t, store.Store(ctx, fresh))

	require.NoError(t, store.Cleanup(ctx, time.Hour))

	_, err := store.Get(ctx, "stale")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = store.Get(ctx, "fresh")
	assert.NoError(t, err)

	results, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
