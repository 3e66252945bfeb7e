package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"picmagic/models"
	"picmagic/store"
)

// Dispatcher hands a task to an out-of-band execution context. Dispatch
// must return without waiting on provider latency; the execution context
// writes the terminal state on its own.
type Dispatcher interface {
	Dispatch(ctx context.Context, task *models.Task) error
}

// Lifecycle owns the submission side of the task state machine: it writes
// the pending record, hands the task off and returns the id immediately.
type Lifecycle struct {
	store      store.TaskStore
	dispatcher Dispatcher
	logger     *zap.Logger
}

func NewLifecycle(s store.TaskStore, d Dispatcher, logger *zap.Logger) *Lifecycle {
	return &Lifecycle{store: s, dispatcher: d, logger: logger}
}

// Submit creates the task record and triggers execution. The returned id
// is valid for status polling as soon as this returns.
func (l *Lifecycle) Submit(ctx context.Context, payload models.TaskPayload, traceID string) (string, error) {
	now := time.Now().UTC()
	task := &models.Task{
		ID:        uuid.New().String(),
		TraceID:   traceID,
		Status:    models.StatusPending,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := l.store.Put(ctx, task); err != nil {
		return "", fmt.Errorf("write pending task: %w", err)
	}

	if err := l.dispatcher.Dispatch(ctx, task); err != nil {
		return "", fmt.Errorf("dispatch task: %w", err)
	}

	l.logger.Info("Task submitted",
		zap.String("task_id", task.ID),
		zap.String("trace_id", traceID),
		zap.String("style", payload.Style),
	)

	return task.ID, nil
}

// Status is a pure read. An id the store has never seen maps to a logical
// pending task: the id may have been handed out before the first state
// write landed.
func (l *Lifecycle) Status(ctx context.Context, id string) (*models.Task, error) {
	task, ok, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &models.Task{ID: id, Status: models.StatusPending}, nil
	}
	return task, nil
}
