package service

import (
	"context"
	"sync"

	"picmagic/kafka"
	"picmagic/models"
)

// GoDispatcher runs the executor on a detached goroutine. The request
// context is deliberately not reused: execution must outlive the request
// that triggered it.
type GoDispatcher struct {
	executor *Executor
	wg       sync.WaitGroup
}

func NewGoDispatcher(executor *Executor) *GoDispatcher {
	return &GoDispatcher{executor: executor}
}

func (d *GoDispatcher) Dispatch(_ context.Context, task *models.Task) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.executor.Execute(context.Background(), task.ID)
	}()
	return nil
}

// Wait blocks until every dispatched task has finished. Used on shutdown
// and in tests.
func (d *GoDispatcher) Wait() {
	d.wg.Wait()
}

// KafkaDispatcher publishes the task id to a topic consumed by the worker
// deployment. Only the id travels; the worker re-reads the payload from
// the shared task store.
type KafkaDispatcher struct {
	producer kafka.Producer
	topic    string
}

func NewKafkaDispatcher(producer kafka.Producer, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{producer: producer, topic: topic}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, task *models.Task) error {
	return d.producer.SendTaskMessage(ctx, d.topic, &kafka.TaskMessage{
		TaskID:  task.ID,
		TraceID: task.TraceID,
	})
}
