package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-hunter/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func permitRows(permits ...model.Permit) *pgxmock.Rows {
	rows := pgxmock.NewRows(permitColumns)
	for _, p := range permits {
		rows.AddRow(p.ID, p.Latitude, p.Longitude, p.Address, p.City, p.State, p.Zip,
			p.BuilderName, p.BuilderPhone, p.PermitType, p.Status, p.Notes, p.CreatedAt)
	}
	return rows
}

func TestPostgresStore_ListPermits(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	a := testPermit("a", model.StatusHot, 42.36, -71.06, time.Hour)

	mock.ExpectQuery(`SELECT id, latitude, .* FROM permits ORDER BY created_at, id$`).
		WillReturnRows(permitRows(a))

	got, err := s.ListPermits(context.Background(), PermitFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a, got[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListPermits_Filters(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM permits WHERE status = ANY\(\$1\) AND latitude = 0 AND longitude = 0 ORDER BY created_at, id LIMIT \$2`).
		WithArgs([]string{"hot"}, 5).
		WillReturnRows(permitRows())

	got, err := s.ListPermits(context.Background(), PermitFilter{
		Statuses: []model.PermitStatus{model.StatusHot},
		Unplaced: true,
		Limit:    5,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListPermits_QueryError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM permits`).WillReturnError(fmt.Errorf("connection reset"))

	_, err := s.ListPermits(context.Background(), PermitFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: list permits")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPermits(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	a := testPermit("a", model.StatusNew, 42.36, -71.06, 0)
	b := testPermit("b", model.StatusNew, 42.37, -71.06, 0)

	mock.ExpectQuery(`FROM permits WHERE id = ANY\(\$1\)`).
		WithArgs([]string{"b", "a"}).
		WillReturnRows(permitRows(a, b))

	got, err := s.GetPermits(context.Background(), []string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertPermits(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_permits"}, permitColumns).WillReturnResult(2)
	mock.ExpectExec("DELETE FROM").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO "permits"`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := s.UpsertPermits(context.Background(), []model.Permit{
		testPermit("a", model.StatusNew, 42.36, -71.06, 0),
		testPermit("b", model.StatusHot, 42.37, -71.06, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertPermits_BeginError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin().WillReturnError(fmt.Errorf("pool exhausted"))

	_, err := s.UpsertPermits(context.Background(), []model.Permit{testPermit("a", model.StatusNew, 1, 1, 0)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: upsert permits")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MigrateAndPing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS permits`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`SELECT 1`).WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
