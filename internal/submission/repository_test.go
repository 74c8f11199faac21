package submission

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	appErr "vexoj/pkg/errors"
)

// recorder captures every statement the repository issues and scripts
// the results handed back.
type recorder struct {
	mu           sync.Mutex
	calls        []recordedCall
	rowsAffected int64
	rows         *scriptedRows
}

type recordedCall struct {
	query string
	args  []driver.Value
}

func (r *recorder) record(query string, args []driver.NamedValue) {
	vals := make([]driver.Value, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}
	r.mu.Lock()
	r.calls = append(r.calls, recordedCall{query: query, args: vals})
	r.mu.Unlock()
}

func (r *recorder) last(t *testing.T) recordedCall {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		t.Fatal("no statement recorded")
	}
	return r.calls[len(r.calls)-1]
}

type fakeConnector struct{ rec *recorder }

func (c *fakeConnector) Connect(context.Context) (driver.Conn, error) {
	return &fakeConn{rec: c.rec}, nil
}

func (c *fakeConnector) Driver() driver.Driver { return fakeDriver{} }

type fakeDriver struct{}

func (fakeDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("use the connector")
}

type fakeConn struct{ rec *recorder }

func (c *fakeConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

func (c *fakeConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.rec.record(query, args)
	return driver.RowsAffected(c.rec.rowsAffected), nil
}

func (c *fakeConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.rec.record(query, args)
	if c.rec.rows == nil {
		return &scriptedRows{}, nil
	}
	return c.rec.rows, nil
}

type scriptedRows struct {
	columns []string
	values  [][]driver.Value
	idx     int
}

func (r *scriptedRows) Columns() []string { return r.columns }

func (r *scriptedRows) Close() error { return nil }

func (r *scriptedRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.idx])
	r.idx++
	return nil
}

func newTestRepository(rec *recorder) *Repository {
	return NewRepositoryWithDB(sql.OpenDB(&fakeConnector{rec: rec}))
}

func TestCreateInsertsPendingRow(t *testing.T) {
	rec := &recorder{rowsAffected: 1}
	repo := newTestRepository(rec)
	defer repo.Close()

	snap := &Snapshot{
		ID:        "sub-1",
		UserID:    "user-7",
		ProblemID: "p1",
		ContestID: "c9",
		Language:  "cpp",
		Score:     0,
	}
	if err := repo.Create(context.Background(), snap); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if snap.Status != StatusPending {
		t.Fatalf("status = %q, want %q", snap.Status, StatusPending)
	}
	if snap.CreatedAt.IsZero() || snap.UpdatedAt.IsZero() {
		t.Fatal("timestamps not set")
	}

	call := rec.last(t)
	if !strings.Contains(call.query, "INSERT INTO submissions") {
		t.Fatalf("unexpected query: %s", call.query)
	}
	if len(call.args) != 11 {
		t.Fatalf("got %d args, want 11", len(call.args))
	}
	if call.args[0] != "sub-1" || call.args[3] != "c9" || call.args[5] != StatusPending {
		t.Fatalf("unexpected args: %v", call.args)
	}
}

func TestUpdateResultWritesVerdict(t *testing.T) {
	rec := &recorder{rowsAffected: 1}
	repo := newTestRepository(rec)
	defer repo.Close()

	err := repo.UpdateResult(context.Background(), "sub-1", "ACCEPTED", 100, 80, 4096)
	if err != nil {
		t.Fatalf("UpdateResult: %v", err)
	}

	call := rec.last(t)
	if !strings.Contains(call.query, "UPDATE submissions") {
		t.Fatalf("unexpected query: %s", call.query)
	}
	if call.args[0] != "ACCEPTED" || call.args[1] != int64(100) {
		t.Fatalf("unexpected args: %v", call.args)
	}
	if call.args[len(call.args)-1] != "sub-1" {
		t.Fatalf("id should be the last arg, got %v", call.args)
	}
}

func TestUpdateResultNotFound(t *testing.T) {
	rec := &recorder{rowsAffected: 0}
	repo := newTestRepository(rec)
	defer repo.Close()

	err := repo.UpdateResult(context.Background(), "missing", "ACCEPTED", 100, 80, 4096)
	if err == nil {
		t.Fatal("expected error for missing submission")
	}
	if appErr.GetCode(err) != appErr.SubmissionNotFound {
		t.Fatalf("code = %d, want SubmissionNotFound", appErr.GetCode(err))
	}
}

func TestGetScansSnapshot(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	updated := created.Add(time.Minute)
	rec := &recorder{rows: &scriptedRows{
		columns: []string{"id", "user_id", "problem_id", "contest_id", "language", "status", "score", "time_ms", "memory_kb", "created_at", "updated_at"},
		values: [][]driver.Value{{
			"sub-1", "user-7", "p1", "c9", "cpp", "ACCEPTED", int64(100), int64(80), int64(4096), created, updated,
		}},
	}}
	repo := newTestRepository(rec)
	defer repo.Close()

	snap, err := repo.Get(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap.ID != "sub-1" || snap.Status != "ACCEPTED" || snap.Score != 100 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.ContestID != "c9" {
		t.Fatalf("contest id = %q, want c9", snap.ContestID)
	}
	if snap.TimeMs != 80 || snap.MemoryKB != 4096 {
		t.Fatalf("unexpected usage: %+v", snap)
	}
	if !snap.Terminal() {
		t.Fatal("accepted snapshot should be terminal")
	}

	call := rec.last(t)
	if call.args[0] != "sub-1" {
		t.Fatalf("unexpected args: %v", call.args)
	}
}

func TestGetNotFound(t *testing.T) {
	rec := &recorder{rows: &scriptedRows{
		columns: []string{"id", "user_id", "problem_id", "contest_id", "language", "status", "score", "time_ms", "memory_kb", "created_at", "updated_at"},
	}}
	repo := newTestRepository(rec)
	defer repo.Close()

	_, err := repo.Get(context.Background(), "missing")
	if appErr.GetCode(err) != appErr.SubmissionNotFound {
		t.Fatalf("code = %d, want SubmissionNotFound", appErr.GetCode(err))
	}
}
