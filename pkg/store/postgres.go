package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/matzehuels/devscout/pkg/httputil"
)

// PostgresTable is the table saved candidates live in.
const PostgresTable = "saved_candidates"

const postgresSchema = `CREATE TABLE IF NOT EXISTS ` + PostgresTable + ` (
	username_key TEXT PRIMARY KEY,
	username     TEXT NOT NULL,
	candidate    JSONB NOT NULL,
	status       TEXT NOT NULL,
	labels       TEXT[] NOT NULL DEFAULT '{}',
	notes        TEXT NOT NULL DEFAULT '',
	saved_by     TEXT NOT NULL DEFAULT '',
	saved_at     TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
)`

var (
	psql         = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	savedColumns = []string{"username", "candidate", "status", "labels", "notes", "saved_by", "saved_at", "updated_at"}
)

// PostgresStore keeps one row per saved candidate. The candidate snapshot
// is a JSONB column; status and labels are plain columns so they can be
// filtered in SQL.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore opens dsn, waits for the server and creates the table
// when missing.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	err = httputil.RetryWithBackoff(ctx, func() error {
		if err := db.PingContext(ctx); err != nil {
			return &httputil.RetryableError{Err: err}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := NewPostgresStoreFromDB(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromDB wraps an open database without touching it.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Migrate creates the table when it does not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create %s: %w", PostgresTable, err)
	}
	return nil
}

func (p *PostgresStore) Save(ctx context.Context, s Saved) (Saved, error) {
	s, err := prepare(s, nil, p.now())
	if err != nil {
		return Saved{}, err
	}
	query, args, err := saveQuery(s)
	if err != nil {
		return Saved{}, err
	}
	// saved_at is not overwritten on conflict, so read the stored value back.
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&s.SavedAt); err != nil {
		return Saved{}, fmt.Errorf("upsert %s: %w", s.Username, err)
	}
	return s, nil
}

func saveQuery(s Saved) (string, []any, error) {
	snapshot, err := json.Marshal(s.Candidate)
	if err != nil {
		return "", nil, fmt.Errorf("marshal candidate: %w", err)
	}
	return psql.Insert(PostgresTable).
		Columns(append([]string{"username_key"}, savedColumns...)...).
		Values(Key(s.Username), s.Username, string(snapshot), s.Status, pq.Array(s.Labels), s.Notes, s.SavedBy, s.SavedAt, s.UpdatedAt).
		Suffix(`ON CONFLICT (username_key) DO UPDATE SET
			username = EXCLUDED.username,
			candidate = EXCLUDED.candidate,
			status = EXCLUDED.status,
			labels = EXCLUDED.labels,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
			RETURNING saved_at`).
		ToSql()
}

func (p *PostgresStore) Get(ctx context.Context, username string) (Saved, error) {
	query, args, err := psql.Select(savedColumns...).
		From(PostgresTable).
		Where(sq.Eq{"username_key": Key(username)}).
		ToSql()
	if err != nil {
		return Saved{}, err
	}
	s, err := scanSaved(p.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Saved{}, ErrNotFound
	}
	return s, err
}

func (p *PostgresStore) List(ctx context.Context, f Filter) ([]Saved, error) {
	query, args, err := listQuery(f)
	if err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query saved: %w", err)
	}
	defer rows.Close()

	var out []Saved
	for rows.Next() {
		s, err := scanSaved(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func listQuery(f Filter) (string, []any, error) {
	b := psql.Select(savedColumns...).From(PostgresTable)
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": f.Status})
	}
	if f.Label != "" {
		b = b.Where(sq.Expr("EXISTS (SELECT 1 FROM unnest(labels) l WHERE lower(l) = lower(?))", f.Label))
	}
	return b.OrderBy("saved_at DESC", "username_key").ToSql()
}

func (p *PostgresStore) UpdateStatus(ctx context.Context, username string, st Status) error {
	if err := checkStatus(st); err != nil {
		return err
	}
	query, args, err := psql.Update(PostgresTable).
		Set("status", st).
		Set("updated_at", p.now()).
		Where(sq.Eq{"username_key": Key(username)}).
		ToSql()
	if err != nil {
		return err
	}
	return p.execOne(ctx, query, args)
}

func (p *PostgresStore) Delete(ctx context.Context, username string) error {
	query, args, err := psql.Delete(PostgresTable).
		Where(sq.Eq{"username_key": Key(username)}).
		ToSql()
	if err != nil {
		return err
	}
	return p.execOne(ctx, query, args)
}

// execOne runs a statement that must affect exactly one row.
func (p *PostgresStore) execOne(ctx context.Context, query string, args []any) error {
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) Close() error { return p.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSaved(row rowScanner) (Saved, error) {
	var (
		s        Saved
		snapshot []byte
		labels   pq.StringArray
	)
	err := row.Scan(&s.Username, &snapshot, &s.Status, &labels, &s.Notes, &s.SavedBy, &s.SavedAt, &s.UpdatedAt)
	if err != nil {
		return Saved{}, err
	}
	if err := json.Unmarshal(snapshot, &s.Candidate); err != nil {
		return Saved{}, fmt.Errorf("decode candidate %s: %w", s.Username, err)
	}
	s.Labels = []string(labels)
	return s, nil
}

var _ Store = (*PostgresStore)(nil)
