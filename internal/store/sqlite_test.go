package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/ledgerapi/internal/jsonapi"
	"github.com/conduit-lang/ledgerapi/internal/resources"
)

// setupSQLite opens an in-memory database with the ledger schema and a small ledger
func setupSQLite(t *testing.T) *SQLStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is a new database
	db.SetMaxOpenConns(1)

	s := NewSQLStore(db, SQLite, nil)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))

	exec := func(query string, args ...any) {
		_, err := db.ExecContext(ctx, query, args...)
		require.NoError(t, err, query)
	}

	exec(`INSERT INTO organizations (id, name, created_at) VALUES ('o1', 'Acme', '2024-01-01T00:00:00Z')`)
	exec(`INSERT INTO participants (id, name, email, role, password_hash, organization_id, created_at)
		VALUES ('p1', 'Ada', 'ada@example.com', 'admin', 'secret', 'o1', '2024-01-02T00:00:00Z')`)
	exec(`INSERT INTO participants (id, name, email, role, organization_id, created_at)
		VALUES ('p2', 'Bob', 'bob@example.com', 'member', 'o1', '2024-01-03T00:00:00Z')`)
	exec(`INSERT INTO keys (id, participant_id, public_key, private_key, algorithm, created_at)
		VALUES ('k1', 'p1', 'pub', 'priv', 'ed25519', '2024-01-04T00:00:00Z')`)
	exec(`INSERT INTO nodes (id, name, address, status, organization_id, maintainer_id)
		VALUES ('n1', 'validator-1', '10.0.0.1:7000', 'online', 'o1', 'p1')`)

	for h := 1; h <= 3; h++ {
		exec(`INSERT INTO blocks (id, hash, height, nonce, timestamp, transaction_count) VALUES (?, ?, ?, 0, '2024-02-01T00:00:00Z', ?)`,
			fmt.Sprintf("b%d", h), fmt.Sprintf("hash%d", h), h, h)
		for i := 1; i <= h; i++ {
			exec(`INSERT INTO transactions (id, hash, block_id, sender_id, amount, status, timestamp) VALUES (?, ?, ?, 'p1', 5, 'confirmed', ?)`,
				fmt.Sprintf("b%dt%d", h, i), fmt.Sprintf("txhash%d%d", h, i), fmt.Sprintf("b%d", h),
				fmt.Sprintf("2024-02-01T00:00:0%dZ", i))
		}
	}

	return s
}

func TestSQLiteListBlocks(t *testing.T) {
	s := setupSQLite(t)

	result, err := s.List(context.Background(), resources.Blocks, Query{Page: jsonapi.Page{Number: 0, Size: 2}})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Count)
	require.Len(t, result.Rows, 2)

	// newest first
	assert.Equal(t, "b3", result.Rows[0].EntityID())
	assert.Equal(t, "b2", result.Rows[1].EntityID())

	txs, ok := result.Rows[0].Field("transactions")
	require.True(t, ok)
	assert.Len(t, txs, 3)
}

func TestSQLiteListRejectsOverflowingPage(t *testing.T) {
	s := setupSQLite(t)

	_, err := s.List(context.Background(), resources.Blocks, Query{Page: jsonapi.Page{Number: 1 << 62, Size: 4}})
	assert.ErrorIs(t, err, jsonapi.ErrInvalidPage)

	result, err := s.List(context.Background(), resources.Blocks, Query{Page: jsonapi.Page{Number: jsonapi.MaxPageNumber(4), Size: 4}})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Count)
	assert.Empty(t, result.Rows, "a page far past the end is empty, never the first page")
}

func TestSQLiteNestedTransactions(t *testing.T) {
	s := setupSQLite(t)

	result, err := s.List(context.Background(), resources.BlockTransactions, Query{
		Page:     jsonapi.Page{Number: 0, Size: 10},
		ParentID: "b2",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "b2t1", result.Rows[0].EntityID())

	sender, ok := result.Rows[0].Field("sender")
	require.True(t, ok)
	assert.Equal(t, "p1", sender.(jsonapi.Record).EntityID())
}

func TestSQLiteFilter(t *testing.T) {
	s := setupSQLite(t)

	result, err := s.List(context.Background(), resources.Participants, Query{
		Page:    jsonapi.Page{Number: 0, Size: 10},
		Filters: map[string]string{"role": "member"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, "p2", result.Rows[0].EntityID())
}

func TestSQLiteGetNodeWithMaintainer(t *testing.T) {
	s := setupSQLite(t)

	node, err := s.Get(context.Background(), resources.Nodes, "n1")
	require.NoError(t, err)

	maintainer, ok := node.Field("maintainer")
	require.True(t, ok)
	m := maintainer.(jsonapi.Record)
	assert.Equal(t, "Ada", m["name"])
	_, hasHash := m["passwordHash"]
	assert.False(t, hasHash, "secret columns are never selected")

	org, ok := node.Field("organization")
	require.True(t, ok)
	assert.Equal(t, "o1", org.(jsonapi.Record).EntityID())
}

func TestSQLiteParticipantWithoutKeys(t *testing.T) {
	s := setupSQLite(t)

	p, err := s.Get(context.Background(), resources.Participants, "p2")
	require.NoError(t, err)

	keys, ok := p.Field("keys")
	require.True(t, ok)
	assert.Equal(t, []jsonapi.Record{}, keys)
}

func TestSQLiteGetNotFound(t *testing.T) {
	s := setupSQLite(t)

	_, err := s.Get(context.Background(), resources.Blocks, "nope")
	assert.True(t, IsNotFound(err))
}

func TestSQLiteMigrateIsIdempotent(t *testing.T) {
	s := setupSQLite(t)
	assert.NoError(t, s.Migrate(context.Background()))
}
