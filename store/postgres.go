package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"picmagic/models"
)

// PostgresStore persists one row per task. Put is an upsert so the same
// statement serves every state transition.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Init creates the tasks table when it does not exist yet.
func (s *PostgresStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id            TEXT PRIMARY KEY,
			trace_id      TEXT NOT NULL DEFAULT '',
			status        TEXT NOT NULL,
			payload       JSONB NOT NULL,
			result        JSONB,
			error_message TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (s *PostgresStore) Put(ctx context.Context, task *models.Task) error {
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	var result []byte
	if task.Result != nil {
		result, err = json.Marshal(task.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
	}

	query := `
		INSERT INTO tasks (id, trace_id, status, payload, result, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    payload = EXCLUDED.payload,
		    result = EXCLUDED.result,
		    error_message = EXCLUDED.error_message,
		    updated_at = EXCLUDED.updated_at
	`

	_, err = s.pool.Exec(ctx, query,
		task.ID,
		task.TraceID,
		task.Status,
		payload,
		result,
		task.Error,
		task.CreatedAt,
		task.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Task, bool, error) {
	query := `
		SELECT id, trace_id, status, payload, result, error_message, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`

	row := s.pool.QueryRow(ctx, query, id)

	var (
		task    models.Task
		payload []byte
		result  []byte
	)
	err := row.Scan(
		&task.ID,
		&task.TraceID,
		&task.Status,
		&payload,
		&result,
		&task.Error,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	if err := json.Unmarshal(payload, &task.Payload); err != nil {
		return nil, false, fmt.Errorf("unmarshal payload for task %s: %w", id, err)
	}
	if len(result) > 0 {
		task.Result = &models.StylizeResult{}
		if err := json.Unmarshal(result, task.Result); err != nil {
			return nil, false, fmt.Errorf("unmarshal result for task %s: %w", id, err)
		}
	}

	return &task, true, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
