package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/catalog-migrate/internal/model"
)

// SQLiteStore keeps all snapshots in a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at dsn in WAL mode and creates the
// snapshots table.
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

const snapshotsTable = `
CREATE TABLE IF NOT EXISTS snapshots (
	origin     TEXT PRIMARY KEY,
	fetched_at INTEGER NOT NULL,
	records    TEXT NOT NULL
);
`

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, snapshotsTable)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, origin model.Origin) (*model.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT fetched_at, records FROM snapshots WHERE origin = ?`, string(origin))

	var fetchedAt int64
	var recordsJSON string
	err := row.Scan(&fetchedAt, &recordsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get snapshot %s", origin)
	}

	snap := &model.Snapshot{Origin: origin, FetchedAt: time.Unix(0, fetchedAt).UTC()}
	if err := json.Unmarshal([]byte(recordsJSON), &snap.Records); err != nil {
		return nil, eris.Wrapf(err, "sqlite: decode snapshot %s", origin)
	}
	return snap, nil
}

func (s *SQLiteStore) Put(ctx context.Context, snap *model.Snapshot) error {
	recordsJSON, err := json.Marshal(snap.Records)
	if err != nil {
		return eris.Wrapf(err, "sqlite: encode snapshot %s", snap.Origin)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (origin, fetched_at, records) VALUES (?, ?, ?)
		 ON CONFLICT(origin) DO UPDATE SET fetched_at = excluded.fetched_at, records = excluded.records`,
		string(snap.Origin), snap.FetchedAt.UnixNano(), string(recordsJSON),
	)
	return eris.Wrapf(err, "sqlite: put snapshot %s", snap.Origin)
}

func (s *SQLiteStore) Delete(ctx context.Context, origin model.Origin) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE origin = ?`, string(origin))
	return eris.Wrapf(err, "sqlite: delete snapshot %s", origin)
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM snapshots`)
	return eris.Wrap(err, "sqlite: clear snapshots")
}
