package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"picmagic/models"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultPollDeadline = 5 * time.Minute
)

// ErrPollTimeout means no terminal state was observed within the deadline.
// Distinct from a provider-reported failure: the task may still finish
// server-side.
var ErrPollTimeout = errors.New("polling deadline exceeded before task reached a terminal state")

// TaskFailedError carries the error message of a failed task.
type TaskFailedError struct {
	Message string
}

func (e *TaskFailedError) Error() string {
	return "task failed: " + e.Message
}

// Poller drives repeated status queries on a fixed interval until the task
// reaches a terminal state, the deadline passes or the context is
// canceled. A transport error on any single status query aborts the poll;
// the task keeps running server-side regardless.
type Poller struct {
	client   *Client
	Interval time.Duration
	Deadline time.Duration

	// OnUpdate, when set, is called with each observed non-terminal status.
	OnUpdate func(status string)
}

func NewPoller(c *Client) *Poller {
	return &Poller{
		client:   c,
		Interval: DefaultPollInterval,
		Deadline: DefaultPollDeadline,
	}
}

// Wait polls until a terminal state and returns the result of a completed
// task. A failed task surfaces as *TaskFailedError.
func (p *Poller) Wait(ctx context.Context, taskID string) (*models.StylizeResult, error) {
	deadline := time.NewTimer(p.Deadline)
	defer deadline.Stop()
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	// First query right away; the task may already be done.
	if result, done, err := p.check(ctx, taskID); done {
		return result, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrPollTimeout
		case <-ticker.C:
			if result, done, err := p.check(ctx, taskID); done {
				return result, err
			}
		}
	}
}

func (p *Poller) check(ctx context.Context, taskID string) (*models.StylizeResult, bool, error) {
	status, err := p.client.Status(ctx, taskID)
	if err != nil {
		return nil, true, fmt.Errorf("poll task %s: %w", taskID, err)
	}

	switch models.TaskStatus(status.Status) {
	case models.StatusCompleted:
		if status.Result == nil {
			return nil, true, errors.New("completed task carried no result")
		}
		return status.Result, true, nil
	case models.StatusFailed:
		return nil, true, &TaskFailedError{Message: status.Error}
	default:
		if p.OnUpdate != nil {
			p.OnUpdate(status.Status)
		}
		return nil, false, nil
	}
}
