package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/suplook/internal/model"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return &PostgresStore{pool: mock}, mock
}

func leadJSON(t *testing.T, l model.Lead) []byte {
	t.Helper()
	data, err := json.Marshal(l)
	require.NoError(t, err)
	return data
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS leads").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListLeads(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"data"}).
		AddRow(leadJSON(t, testLead("a", "Joe's Pizza"))).
		AddRow(leadJSON(t, testLead("b", "Wok Inn")))
	mock.ExpectQuery(`SELECT data FROM leads ORDER BY seq`).WillReturnRows(rows)

	leads, err := s.ListLeads(context.Background(), LeadFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "Joe's Pizza", leads[0].Name)
	assert.Equal(t, "b", leads[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListLeadsGraduated(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	grad := testLead("g", "Graduated")
	grad.Graduated = true
	mock.ExpectQuery(`SELECT data FROM leads WHERE graduated = \$1 ORDER BY seq`).
		WithArgs(true).
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(leadJSON(t, grad)))

	yes := true
	leads, err := s.ListLeads(context.Background(), LeadFilter{Graduated: &yes})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.True(t, leads[0].Graduated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetLead(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM leads WHERE id = \$1`).
		WithArgs("a").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(leadJSON(t, testLead("a", "Joe's Pizza"))))

	l, err := s.GetLead(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "pizza", l.Cuisine)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetLeadNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM leads WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetLead(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertLeads(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO leads`).
		WithArgs("a", "batch-1", false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO leads`).
		WithArgs("b", "batch-1", false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectCommit()

	n, err := s.InsertLeads(context.Background(), []model.Lead{testLead("a", "A"), testLead("b", "B")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertLead(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO leads .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("a", "batch-1", false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertLead(context.Background(), testLead("a", "A")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteLead(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM leads WHERE id = \$1`).
		WithArgs("a").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM leads WHERE id = \$1`).
		WithArgs("a").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.DeleteLead(context.Background(), "a"))
	assert.ErrorIs(t, s.DeleteLead(context.Background(), "a"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteAllLeads(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM leads`).WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := s.DeleteAllLeads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Corrections(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM corrections WHERE id = 1`).WillReturnError(pgx.ErrNoRows)

	empty, err := s.LoadCorrections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Count())

	set := model.NewCorrectionSet()
	set.ByCuisine["pizza"] = model.CuisineCorrection{NeverInclude: []string{"PS100"}}
	mock.ExpectExec(`INSERT INTO corrections`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.SaveCorrections(context.Background(), set))

	data, err := json.Marshal(set)
	require.NoError(t, err)
	mock.ExpectQuery(`SELECT data FROM corrections WHERE id = 1`).
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(data))

	got, err := s.LoadCorrections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"PS100"}, got.ByCuisine["pizza"].NeverInclude)
	assert.NoError(t, mock.ExpectationsWereMet())
}
