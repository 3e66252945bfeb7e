package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"picmagic/models"
	"picmagic/provider"
)

// recordingStore remembers every status written per task, in order.
type recordingStore struct {
	mu      sync.Mutex
	tasks   map[string]models.Task
	history map[string][]models.TaskStatus
	putErr  func(task *models.Task) error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		tasks:   make(map[string]models.Task),
		history: make(map[string][]models.TaskStatus),
	}
}

func (s *recordingStore) Put(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		if err := s.putErr(task); err != nil {
			return err
		}
	}
	s.tasks[task.ID] = *task
	s.history[task.ID] = append(s.history[task.ID], task.Status)
	return nil
}

func (s *recordingStore) Get(_ context.Context, id string) (*models.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, false, nil
	}
	return &task, true, nil
}

func (s *recordingStore) statuses(id string) []models.TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TaskStatus, len(s.history[id]))
	copy(out, s.history[id])
	return out
}

type stubStylizer struct {
	result *models.StylizeResult
	err    error
	panics bool
}

func (s *stubStylizer) Stylize(context.Context, provider.Request) (*models.StylizeResult, error) {
	if s.panics {
		panic("stylizer blew up")
	}
	return s.result, s.err
}

func payload() models.TaskPayload {
	return models.TaskPayload{
		ImageURL: "https://x/test.png",
		Style:    "anime",
		APIKey:   "k",
	}
}

func TestLifecycleHappyPathTransitions(t *testing.T) {
	store := newRecordingStore()
	stylizer := &stubStylizer{result: &models.StylizeResult{
		PreviewURL: "https://cdn/a.png",
		ImageURLs:  []string{"https://cdn/a.png"},
		StyleName:  "Anime",
	}}
	executor := NewExecutor(store, stylizer, zaptest.NewLogger(t))
	dispatcher := NewGoDispatcher(executor)
	lifecycle := NewLifecycle(store, dispatcher, zaptest.NewLogger(t))

	taskID, err := lifecycle.Submit(context.Background(), payload(), "trace-1")
	require.NoError(t, err)
	require.NotEmpty(t, taskID)
	dispatcher.Wait()

	assert.Equal(t,
		[]models.TaskStatus{models.StatusPending, models.StatusProcessing, models.StatusCompleted},
		store.statuses(taskID),
	)

	task, ok, err := store.Get(context.Background(), taskID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, task.Result)
	assert.NotEmpty(t, task.Result.ImageURLs)
	assert.Equal(t, task.Result.ImageURLs[0], task.Result.PreviewURL)
	assert.Empty(t, task.Error)
}

func TestLifecycleFailurePathTransitions(t *testing.T) {
	store := newRecordingStore()
	stylizer := &stubStylizer{err: &provider.UpstreamError{StatusCode: 500, Body: "boom"}}
	executor := NewExecutor(store, stylizer, zaptest.NewLogger(t))
	dispatcher := NewGoDispatcher(executor)
	lifecycle := NewLifecycle(store, dispatcher, zaptest.NewLogger(t))

	taskID, err := lifecycle.Submit(context.Background(), payload(), "trace-1")
	require.NoError(t, err)
	dispatcher.Wait()

	assert.Equal(t,
		[]models.TaskStatus{models.StatusPending, models.StatusProcessing, models.StatusFailed},
		store.statuses(taskID),
	)

	task, _, err := store.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.NotEmpty(t, task.Error)
	assert.Contains(t, task.Error, "500")
	assert.Nil(t, task.Result)
}

func TestExecutorNoImageBecomesFailedTask(t *testing.T) {
	store := newRecordingStore()
	stylizer := &stubStylizer{err: provider.ErrNoImageInResponse}
	executor := NewExecutor(store, stylizer, zaptest.NewLogger(t))
	dispatcher := NewGoDispatcher(executor)
	lifecycle := NewLifecycle(store, dispatcher, zaptest.NewLogger(t))

	taskID, err := lifecycle.Submit(context.Background(), payload(), "")
	require.NoError(t, err)
	dispatcher.Wait()

	task, _, err := store.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, task.Status)
	assert.Contains(t, task.Error, provider.ErrNoImageInResponse.Error())
}

func TestExecutorPanicBecomesFailedTask(t *testing.T) {
	store := newRecordingStore()
	executor := NewExecutor(store, &stubStylizer{panics: true}, zaptest.NewLogger(t))
	dispatcher := NewGoDispatcher(executor)
	lifecycle := NewLifecycle(store, dispatcher, zaptest.NewLogger(t))

	taskID, err := lifecycle.Submit(context.Background(), payload(), "")
	require.NoError(t, err)
	dispatcher.Wait()

	task, _, err := store.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, task.Status)
	assert.Contains(t, task.Error, "internal error")
}

func TestExecutorStillProcessingLeavesNoTerminalState(t *testing.T) {
	store := newRecordingStore()
	executor := NewExecutor(store, &stubStylizer{err: provider.ErrStillProcessing}, zaptest.NewLogger(t))
	dispatcher := NewGoDispatcher(executor)
	lifecycle := NewLifecycle(store, dispatcher, zaptest.NewLogger(t))

	taskID, err := lifecycle.Submit(context.Background(), payload(), "")
	require.NoError(t, err)
	dispatcher.Wait()

	task, _, err := store.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, task.Status)
	assert.Empty(t, task.Error)
	assert.Nil(t, task.Result)
}

func TestExecutorTerminalWriteFailureIsSwallowed(t *testing.T) {
	store := newRecordingStore()
	store.putErr = func(task *models.Task) error {
		if task.Status.Terminal() {
			return errors.New("disk full")
		}
		return nil
	}
	stylizer := &stubStylizer{result: &models.StylizeResult{
		PreviewURL: "https://cdn/a.png",
		ImageURLs:  []string{"https://cdn/a.png"},
	}}
	executor := NewExecutor(store, stylizer, zaptest.NewLogger(t))
	dispatcher := NewGoDispatcher(executor)
	lifecycle := NewLifecycle(store, dispatcher, zaptest.NewLogger(t))

	taskID, err := lifecycle.Submit(context.Background(), payload(), "")
	require.NoError(t, err)

	// Must not panic; the task is simply left in its last reliable state.
	dispatcher.Wait()

	task, _, err := store.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, task.Status)
}

func TestExecutorSkipsAlreadyTerminalTask(t *testing.T) {
	store := newRecordingStore()
	done := &models.Task{
		ID:     "done-task",
		Status: models.StatusCompleted,
		Result: &models.StylizeResult{PreviewURL: "u", ImageURLs: []string{"u"}},
	}
	require.NoError(t, store.Put(context.Background(), done))

	executor := NewExecutor(store, &stubStylizer{err: errors.New("should not run")}, zaptest.NewLogger(t))
	executor.Execute(context.Background(), "done-task")

	// Only the seed write; a replayed dispatch changes nothing.
	assert.Equal(t, []models.TaskStatus{models.StatusCompleted}, store.statuses("done-task"))
}

func TestStatusUnknownIDReadsAsPending(t *testing.T) {
	store := newRecordingStore()
	lifecycle := NewLifecycle(store, NewGoDispatcher(NewExecutor(store, &stubStylizer{}, zaptest.NewLogger(t))), zaptest.NewLogger(t))

	task, err := lifecycle.Status(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.Nil(t, task.Result)
	assert.Empty(t, task.Error)
}
