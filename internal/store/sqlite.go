package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/suplook/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=FULL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	batch_id   TEXT NOT NULL DEFAULT '',
	graduated  INTEGER NOT NULL DEFAULT 0,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS corrections (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_graduated ON leads(graduated);
CREATE INDEX IF NOT EXISTS idx_leads_batch_id ON leads(batch_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT data FROM leads`
	var args []any
	if filter.Graduated != nil {
		query += ` WHERE graduated = ?`
		args = append(args, *filter.Graduated)
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close() //nolint:errcheck

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM leads WHERE id = ?`, id)
	l, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	return l, err
}

func (s *SQLiteStore) InsertLeads(ctx context.Context, leads []model.Lead) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert leads")
	}
	defer tx.Rollback() //nolint:errcheck

	added := 0
	now := time.Now().UTC()
	for _, l := range leads {
		data, err := json.Marshal(l)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: marshal lead %s", l.ID)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO leads (id, batch_id, graduated, data, updated_at) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO NOTHING`,
			l.ID, l.BatchID, l.Graduated, string(data), now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert lead %s", l.ID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit insert leads")
	}
	return added, nil
}

func (s *SQLiteStore) UpsertLead(ctx context.Context, lead model.Lead) error {
	data, err := json.Marshal(lead)
	if err != nil {
		return eris.Wrapf(err, "sqlite: marshal lead %s", lead.ID)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leads (id, batch_id, graduated, data, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			batch_id = excluded.batch_id,
			graduated = excluded.graduated,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		lead.ID, lead.BatchID, lead.Graduated, string(data), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert lead %s", lead.ID)
}

func (s *SQLiteStore) DeleteLead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete lead %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) DeleteAllLeads(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete all leads")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) LoadCorrections(ctx context.Context) (model.CorrectionSet, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM corrections WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NewCorrectionSet(), nil
	}
	if err != nil {
		return model.CorrectionSet{}, eris.Wrap(err, "sqlite: load corrections")
	}
	return decodeCorrections([]byte(data))
}

func (s *SQLiteStore) SaveCorrections(ctx context.Context, set model.CorrectionSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal corrections")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO corrections (id, data, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(data), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: save corrections")
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (*model.Lead, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan lead")
	}
	return decodeLead([]byte(data))
}

func decodeLead(data []byte) (*model.Lead, error) {
	var l model.Lead
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal lead")
	}
	return &l, nil
}

func decodeCorrections(data []byte) (model.CorrectionSet, error) {
	var set model.CorrectionSet
	if err := json.Unmarshal(data, &set); err != nil {
		return model.CorrectionSet{}, eris.Wrap(err, "store: unmarshal corrections")
	}
	set.Normalize()
	return set, nil
}
