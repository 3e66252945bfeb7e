package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"picmagic/models"
)

func TestMemoryStoreGetAbsent(t *testing.T) {
	s := NewMemoryStore()

	task, ok, err := s.Get(context.Background(), "never-written")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, task)
}

func TestMemoryStorePutReplacesFullRecord(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	task := &models.Task{ID: "t1", Status: models.StatusPending}
	require.NoError(t, s.Put(ctx, task))

	task.Status = models.StatusCompleted
	task.Result = &models.StylizeResult{
		PreviewURL: "https://cdn/x.png",
		ImageURLs:  []string{"https://cdn/x.png"},
		StyleName:  "Anime",
	}
	require.NoError(t, s.Put(ctx, task))

	got, ok, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, got.Result.ImageURLs[0], got.Result.PreviewURL)
}

func TestMemoryStoreReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &models.Task{ID: "t1", Status: models.StatusPending}))

	got, _, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	got.Status = models.StatusFailed

	again, _, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, again.Status)
}

func TestMemoryStoreConcurrentPuts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("task-%d", i)
			s.Put(ctx, &models.Task{ID: id, Status: models.StatusPending})
			s.Put(ctx, &models.Task{ID: id, Status: models.StatusProcessing})
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		got, ok, err := s.Get(ctx, fmt.Sprintf("task-%d", i))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, models.StatusProcessing, got.Status)
	}
}
