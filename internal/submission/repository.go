package submission

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"

	appErr "vexoj/pkg/errors"
)

// Repository persists submission snapshots in MySQL.
type Repository struct {
	db *sql.DB
}

// MySQLConfig holds the database settings.
type MySQLConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// NewRepository opens the database and verifies connectivity.
func NewRepository(cfg MySQLConfig) (*Repository, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	return &Repository{db: db}, nil
}

// NewRepositoryWithDB wraps an existing database handle.
func NewRepositoryWithDB(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle so other repositories can share
// the connection pool.
func (r *Repository) DB() *sql.DB {
	return r.db
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Create inserts a new pending submission.
func (r *Repository) Create(ctx context.Context, s *Snapshot) error {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	if s.Status == "" {
		s.Status = StatusPending
	}

	const query = `
		INSERT INTO submissions (id, user_id, problem_id, contest_id, language, status, score, time_ms, memory_kb, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.ProblemID, s.ContestID, s.Language, s.Status, s.Score, s.TimeMs, s.MemoryKB, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return appErr.Wrap(err, appErr.SubmissionSaveError)
	}
	return nil
}

// UpdateResult records judging progress or the final verdict.
func (r *Repository) UpdateResult(ctx context.Context, id, status string, score int, timeMs, memoryKB int64) error {
	const query = `
		UPDATE submissions
		SET status = ?, score = ?, time_ms = ?, memory_kb = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, status, score, timeMs, memoryKB, time.Now(), id)
	if err != nil {
		return appErr.Wrap(err, appErr.SubmissionSaveError)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return appErr.Newf(appErr.SubmissionNotFound, "submission %s not found", id)
	}
	return nil
}

// Get loads one submission by id.
func (r *Repository) Get(ctx context.Context, id string) (*Snapshot, error) {
	const query = `
		SELECT id, user_id, problem_id, contest_id, language, status, score, time_ms, memory_kb, created_at, updated_at
		FROM submissions WHERE id = ?`
	var s Snapshot
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.UserID, &s.ProblemID, &s.ContestID, &s.Language, &s.Status, &s.Score, &s.TimeMs, &s.MemoryKB, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, appErr.Newf(appErr.SubmissionNotFound, "submission %s not found", id)
	}
	if err != nil {
		return nil, appErr.Wrap(err, appErr.DatabaseError)
	}
	return &s, nil
}
