package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/suplook/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	seq        BIGSERIAL,
	id         TEXT PRIMARY KEY,
	batch_id   TEXT NOT NULL DEFAULT '',
	graduated  BOOLEAN NOT NULL DEFAULT false,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS corrections (
	id         SMALLINT PRIMARY KEY CHECK (id = 1),
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_seq ON leads(seq);
CREATE INDEX IF NOT EXISTS idx_leads_graduated ON leads(graduated);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT data FROM leads`
	var args []any
	if filter.Graduated != nil {
		query += ` WHERE graduated = $1`
		args = append(args, *filter.Graduated)
	}
	query += ` ORDER BY seq`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		l, err := decodeLead(data)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: iterate leads")
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM leads WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %s", id)
	}
	return decodeLead(data)
}

func (s *PostgresStore) InsertLeads(ctx context.Context, leads []model.Lead) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin insert leads")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	added := 0
	for _, l := range leads {
		data, err := json.Marshal(l)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal lead %s", l.ID)
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO leads (id, batch_id, graduated, data, updated_at) VALUES ($1, $2, $3, $4, now())
			 ON CONFLICT (id) DO NOTHING`,
			l.ID, l.BatchID, l.Graduated, data,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: insert lead %s", l.ID)
		}
		added += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit insert leads")
	}
	return added, nil
}

func (s *PostgresStore) UpsertLead(ctx context.Context, lead model.Lead) error {
	data, err := json.Marshal(lead)
	if err != nil {
		return eris.Wrapf(err, "postgres: marshal lead %s", lead.ID)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO leads (id, batch_id, graduated, data, updated_at) VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (id) DO UPDATE SET
			batch_id = EXCLUDED.batch_id,
			graduated = EXCLUDED.graduated,
			data = EXCLUDED.data,
			updated_at = now()`,
		lead.ID, lead.BatchID, lead.Graduated, data,
	)
	return eris.Wrapf(err, "postgres: upsert lead %s", lead.ID)
}

func (s *PostgresStore) DeleteLead(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete lead %s", id)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

func (s *PostgresStore) DeleteAllLeads(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM leads`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete all leads")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) LoadCorrections(ctx context.Context) (model.CorrectionSet, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM corrections WHERE id = 1`).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.NewCorrectionSet(), nil
	}
	if err != nil {
		return model.CorrectionSet{}, eris.Wrap(err, "postgres: load corrections")
	}
	return decodeCorrections(data)
}

func (s *PostgresStore) SaveCorrections(ctx context.Context, set model.CorrectionSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal corrections")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO corrections (id, data, updated_at) VALUES (1, $1, now())
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		data,
	)
	return eris.Wrap(err, "postgres: save corrections")
}
