package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-hunter/internal/db"
	"github.com/sells-group/lead-hunter/internal/model"
)

// PostgresStore implements PermitStore using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
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

	maxConns := int32(10)
	minConns := int32(2)
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
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS permits (
	id            TEXT PRIMARY KEY,
	latitude      DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude     DOUBLE PRECISION NOT NULL DEFAULT 0,
	address       TEXT NOT NULL DEFAULT '',
	city          TEXT NOT NULL DEFAULT '',
	state         TEXT NOT NULL DEFAULT '',
	zip           TEXT NOT NULL DEFAULT '',
	builder_name  TEXT NOT NULL DEFAULT '',
	builder_phone TEXT NOT NULL DEFAULT '',
	permit_type   TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	notes         TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_permits_status ON permits(status);
CREATE INDEX IF NOT EXISTS idx_permits_city ON permits(lower(city));
CREATE INDEX IF NOT EXISTS idx_permits_created_at ON permits(created_at, id);
`

var permitUpsert = db.UpsertConfig{
	Table:        "permits",
	Columns:      permitColumns,
	ConflictKeys: []string{"id"},
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListPermits(ctx context.Context, filter PermitFilter) ([]model.Permit, error) {
	query := selectPermits
	var where []string
	var args []any

	if len(filter.Statuses) > 0 {
		args = append(args, statusStrings(filter.Statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.Unplaced {
		where = append(where, "latitude = 0 AND longitude = 0")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return s.query(ctx, query, args...)
}

func (s *PostgresStore) GetPermits(ctx context.Context, ids []string) ([]model.Permit, error) {
	if len(ids) == 0 {
		return []model.Permit{}, nil
	}
	permits, err := s.query(ctx, selectPermits+" WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, err
	}
	return orderByIDs(ids, permits), nil
}

// UpsertPermits stages permits with COPY and merges them in one transaction.
func (s *PostgresStore) UpsertPermits(ctx context.Context, permits []model.Permit) (int64, error) {
	rows := make([][]any, len(permits))
	for i, p := range permits {
		rows[i] = permitRow(p)
	}
	n, err := db.BulkUpsert(ctx, s.pool, permitUpsert, rows)
	return n, eris.Wrap(err, "postgres: upsert permits")
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]model.Permit, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list permits")
	}
	defer rows.Close()

	permits := []model.Permit{}
	for rows.Next() {
		p, err := scanPermit(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan permit")
		}
		permits = append(permits, p)
	}
	return permits, eris.Wrap(rows.Err(), "postgres: iterate permits")
}
