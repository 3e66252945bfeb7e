package store

import (
	"context"

	"picmagic/models"
)

// TaskStore is the key-value contract every driver satisfies. Put replaces
// the full record for the task id; Get reports absence through the bool
// rather than an error, because a client may poll before the first write
// lands.
type TaskStore interface {
	Put(ctx context.Context, task *models.Task) error
	Get(ctx context.Context, id string) (*models.Task, bool, error)
}
