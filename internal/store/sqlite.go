package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/repeat311/internal/model"
)

// ErrNotFound is returned when a run id has no archived run.
var ErrNotFound = eris.New("store: not found")

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	input_path    TEXT NOT NULL,
	feature_count INTEGER NOT NULL,
	group_count   INTEGER NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS requests (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	seq         INTEGER NOT NULL,
	case_id     TEXT NOT NULL,
	location    TEXT NOT NULL,
	address_key TEXT NOT NULL,
	case_type   TEXT NOT NULL,
	opened_at   DATETIME NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS repeat_addresses (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	rank        INTEGER NOT NULL,
	address_key TEXT NOT NULL,
	requests    INTEGER NOT NULL,
	PRIMARY KEY (run_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_requests_address_key ON requests(address_key);
CREATE INDEX IF NOT EXISTS idx_repeat_addresses_key ON repeat_addresses(address_key);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun archives a run, its records in input order, and its ranked repeat
// addresses in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run Run, records []model.ServiceRequest, groups []model.AddressGroup) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, input_path, feature_count, group_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.InputPath, run.Features, run.Groups, run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	reqStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO requests (run_id, seq, case_id, location, address_key, case_type, opened_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare request insert")
	}
	defer reqStmt.Close() //nolint:errcheck

	for i, r := range records {
		if _, err := reqStmt.ExecContext(ctx, run.ID, i, r.CaseID, r.Location, r.Key(), r.CaseType, r.OpenedAt.UTC()); err != nil {
			return eris.Wrapf(err, "sqlite: insert request %d", i)
		}
	}

	for i, g := range groups {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO repeat_addresses (run_id, rank, address_key, requests) VALUES (?, ?, ?, ?)`,
			run.ID, i+1, g.Key, g.Count(),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert repeat address %q", g.Key)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	err := s.db.QueryRowContext(ctx,
		`SELECT id, input_path, feature_count, group_count, created_at FROM runs WHERE id = ?`, runID,
	).Scan(&run.ID, &run.InputPath, &run.Features, &run.Groups, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return &run, nil
}

func (s *SQLiteStore) ListRepeatAddresses(ctx context.Context, runID string) ([]RepeatAddress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rank, address_key, requests FROM repeat_addresses WHERE run_id = ? ORDER BY rank`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list repeat addresses %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var out []RepeatAddress
	for rows.Next() {
		var ra RepeatAddress
		if err := rows.Scan(&ra.Rank, &ra.AddressKey, &ra.Requests); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan repeat address")
		}
		out = append(out, ra)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate repeat addresses")
}

func (s *SQLiteStore) CountRequests(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM requests WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: count requests %s", runID)
	}
	return n, nil
}
