package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/ledgerapi/internal/jsonapi"
)

func setupMockStore(t *testing.T, dialect Dialect) (*SQLStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db, dialect, testTables()), mock
}

func testTables() map[string]*Table {
	blocks := &Table{
		Name: "blocks",
		Columns: []Column{
			{"id", "id"},
			{"hash", "hash"},
			{"previous_hash", "previousHash"},
		},
		Filters: map[string]string{"hash": "hash", "height": "height"},
		OrderBy: "height DESC",
	}
	transactions := &Table{
		Name: "transactions",
		Columns: []Column{
			{"id", "id"},
			{"block_id", "blockId"},
		},
		OrderBy: "id ASC",
	}
	blocksWithTransactions := *blocks
	blocksWithTransactions.Preloads = []Preload{
		{Field: "transactions", Table: "transactions", LocalField: "id", RemoteColumn: "block_id", Many: true},
	}
	return map[string]*Table{
		"blocks":            blocks,
		"blocksPreloaded":   &blocksWithTransactions,
		"transactions":      transactions,
		"blockTransactions": transactions.nested("block_id"),
	}
}

func TestListPage(t *testing.T) {
	s, mock := setupMockStore(t, Postgres)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "blocks" WHERE "hash" = $1`)).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "hash", "previous_hash" FROM "blocks" WHERE "hash" = $1 ORDER BY height DESC LIMIT $2 OFFSET $3`)).
		WithArgs("abc", 2, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "hash", "previous_hash"}).AddRow("b3", "abc", []byte("prev")))

	result, err := s.List(context.Background(), "blocks", Query{
		Page:    jsonapi.Page{Number: 1, Size: 2},
		Filters: map[string]string{"hash": "abc"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Count)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "b3", result.Rows[0].EntityID())

	prev, ok := result.Rows[0].Field("previousHash")
	assert.True(t, ok)
	assert.Equal(t, "prev", prev)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFiltersInKeyOrder(t *testing.T) {
	s, mock := setupMockStore(t, SQLite)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "blocks" WHERE "hash" = ? AND "height" = ?`)).
		WithArgs("abc", "7").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	result, err := s.List(context.Background(), "blocks", Query{
		Page:    jsonapi.Page{Number: 0, Size: 10},
		Filters: map[string]string{"height": "7", "hash": "abc"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)
	assert.NotNil(t, result.Rows)
	assert.Empty(t, result.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPastLastPageSkipsRowQuery(t *testing.T) {
	s, mock := setupMockStore(t, Postgres)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "blocks"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	result, err := s.List(context.Background(), "blocks", Query{Page: jsonapi.Page{Number: 5, Size: 2}})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Count)
	assert.Empty(t, result.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListNestedCollection(t *testing.T) {
	s, mock := setupMockStore(t, Postgres)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "transactions" WHERE "block_id" = $1`)).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "block_id" FROM "transactions" WHERE "block_id" = $1 ORDER BY id ASC LIMIT $2 OFFSET $3`)).
		WithArgs("b1", 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "block_id"}).AddRow("t1", "b1"))

	result, err := s.List(context.Background(), "blockTransactions", Query{
		Page:     jsonapi.Page{Number: 0, Size: 10},
		ParentID: "b1",
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	blockID, _ := result.Rows[0].Field("blockId")
	assert.Equal(t, "b1", blockID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListErrors(t *testing.T) {
	tests := []struct {
		name       string
		collection string
		query      Query
		wantErr    error
	}{
		{
			name:       "unknown collection",
			collection: "widgets",
			query:      Query{Page: jsonapi.Page{Size: 10}},
			wantErr:    ErrUnknownCollection,
		},
		{
			name:       "invalid filter",
			collection: "blocks",
			query:      Query{Page: jsonapi.Page{Size: 10}, Filters: map[string]string{"nonce": "1"}},
			wantErr:    ErrInvalidFilter,
		},
		{
			name:       "missing parent",
			collection: "blockTransactions",
			query:      Query{Page: jsonapi.Page{Size: 10}},
			wantErr:    ErrMissingParent,
		},
		{
			name:       "invalid page",
			collection: "blocks",
			query:      Query{Page: jsonapi.Page{Number: -1, Size: 10}},
			wantErr:    jsonapi.ErrInvalidPage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := setupMockStore(t, Postgres)

			_, err := s.List(context.Background(), tt.collection, tt.query)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGetWithPreload(t *testing.T) {
	s, mock := setupMockStore(t, Postgres)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "hash", "previous_hash" FROM "blocks" WHERE "id" = $1`)).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "hash", "previous_hash"}).AddRow("b1", "abc", nil))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "block_id" FROM "transactions" WHERE "block_id"::text = ANY($1) ORDER BY id ASC`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "block_id"}).
			AddRow("t1", "b1").
			AddRow("t2", "b1"))

	e, err := s.Get(context.Background(), "blocksPreloaded", "b1")
	require.NoError(t, err)

	txs, ok := e.Field("transactions")
	require.True(t, ok)
	require.Len(t, txs, 2)
	assert.Equal(t, "t1", txs.([]jsonapi.Record)[0].EntityID())

	prev, ok := e.Field("previousHash")
	assert.True(t, ok)
	assert.Nil(t, prev)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	s, mock := setupMockStore(t, SQLite)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "hash", "previous_hash" FROM "blocks" WHERE "id" = ?`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "hash", "previous_hash"}))

	_, err := s.Get(context.Background(), "blocks", "missing")
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDatabaseUnavailable(t *testing.T) {
	s, mock := setupMockStore(t, Postgres)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "hash", "previous_hash" FROM "blocks"`)).
		WillReturnError(&pgconn.PgError{Code: "08006", Message: "connection failure"})

	_, err := s.Get(context.Background(), "blocks", "b1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConvertDBError(t *testing.T) {
	other := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"conn done", sql.ErrConnDone, ErrUnavailable},
		{"pgx malformed id", &pgconn.PgError{Code: "22P02"}, ErrNotFound},
		{"pgx connection", &pgconn.PgError{Code: "08001"}, ErrUnavailable},
		{"pq malformed id", &pq.Error{Code: "22P02"}, ErrNotFound},
		{"pq connection", &pq.Error{Code: "08003"}, ErrUnavailable},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, ErrUnavailable},
		{"sqlite locked", fmt.Errorf("query: %w", sqlite3.Error{Code: sqlite3.ErrLocked}), ErrUnavailable},
		{"passthrough", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertDBError(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestDialectFor(t *testing.T) {
	for driver, want := range map[string]string{
		"pgx":      "postgres",
		"postgres": "postgres",
		"sqlite3":  "sqlite",
		"sqlite":   "sqlite",
	} {
		d, err := DialectFor(driver)
		require.NoError(t, err, driver)
		assert.Equal(t, want, d.Name())
	}

	_, err := DialectFor("mysql")
	assert.Error(t, err)
}

func TestInList(t *testing.T) {
	cond, args := SQLite.InList("block_id", 1, []any{"a", "b"})
	assert.Equal(t, `"block_id" IN (?, ?)`, cond)
	assert.Equal(t, []any{"a", "b"}, args)

	cond, args = Postgres.InList("id", 3, []any{"a", int64(2)})
	assert.Equal(t, `"id"::text = ANY($3)`, cond)
	require.Len(t, args, 1)
}
