package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"picmagic/models"
	"picmagic/provider"
	"picmagic/store"
)

// Executor runs one task to a terminal state. Every failure path, panics
// included, ends in exactly one failed write. A failure to write the
// terminal state itself is logged and abandoned: the triggering request
// has long returned and nothing downstream observes the error.
type Executor struct {
	store    store.TaskStore
	stylizer provider.Stylizer
	logger   *zap.Logger
}

func NewExecutor(s store.TaskStore, stylizer provider.Stylizer, logger *zap.Logger) *Executor {
	return &Executor{store: s, stylizer: stylizer, logger: logger}
}

func (e *Executor) Execute(ctx context.Context, taskID string) {
	task, ok, err := e.store.Get(ctx, taskID)
	if err != nil {
		e.logger.Error("Load task for execution",
			zap.String("task_id", taskID),
			zap.Error(err),
		)
		return
	}
	if !ok {
		e.logger.Error("Task not found for execution", zap.String("task_id", taskID))
		return
	}
	if task.Status.Terminal() {
		// Replayed dispatch for an already finished task.
		return
	}

	e.run(ctx, task)
}

func (e *Executor) run(ctx context.Context, task *models.Task) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic during task execution",
				zap.String("task_id", task.ID),
				zap.Any("panic", r),
			)
			e.writeTerminal(ctx, task, nil, fmt.Errorf("internal error: %v", r))
		}
	}()

	task.Status = models.StatusProcessing
	task.UpdatedAt = time.Now().UTC()
	if err := e.store.Put(ctx, task); err != nil {
		// The provider call is still worth finishing; a later write can
		// land even if this one did not.
		e.logger.Error("Write processing state",
			zap.String("task_id", task.ID),
			zap.Error(err),
		)
	}

	result, err := e.stylizer.Stylize(ctx, provider.Request{
		ImageURL: task.Payload.ImageURL,
		Style:    task.Payload.Style,
		APIKey:   task.Payload.APIKey,
	})

	if errors.Is(err, provider.ErrStillProcessing) {
		// The provider holds the job past our budget. No terminal write:
		// the task stays processing and the client runs into its own poll
		// deadline.
		e.logger.Warn("Provider still processing past poll budget",
			zap.String("task_id", task.ID),
		)
		return
	}
	if err == nil && result == nil {
		err = errors.New("provider returned no result")
	}

	e.writeTerminal(ctx, task, result, err)
}

func (e *Executor) writeTerminal(ctx context.Context, task *models.Task, result *models.StylizeResult, err error) {
	if err != nil {
		task.Status = models.StatusFailed
		task.Error = err.Error()
		task.Result = nil
	} else {
		task.Status = models.StatusCompleted
		task.Result = result
		task.Error = ""
	}
	task.UpdatedAt = time.Now().UTC()

	if putErr := e.store.Put(ctx, task); putErr != nil {
		e.logger.Error("Write terminal task state",
			zap.String("task_id", task.ID),
			zap.String("status", string(task.Status)),
			zap.Error(putErr),
		)
		return
	}

	e.logger.Info("Task finished",
		zap.String("task_id", task.ID),
		zap.String("status", string(task.Status)),
	)
}
