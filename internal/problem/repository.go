package problem

import (
	"context"
	"database/sql"

	appErr "vexoj/pkg/errors"
)

// Repository reads problem definitions from MySQL.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get loads one problem by id.
func (r *Repository) Get(ctx context.Context, id string) (*Problem, error) {
	const query = `
		SELECT id, title, time_limit_ms, memory_limit_mb, data_version
		FROM problems WHERE id = ?`
	var p Problem
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.TimeLimitMs, &p.MemoryLimitMB, &p.DataVersion)
	if err == sql.ErrNoRows {
		return nil, appErr.NotFoundError("problem")
	}
	if err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	return &p, nil
}
