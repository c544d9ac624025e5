package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/conduit-lang/ledgerapi/internal/jsonapi"
)

// SQLStore reads collections from a database/sql database
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	tables  map[string]*Table
	logger  *zap.Logger
}

// SQLOption configures a SQLStore
type SQLOption func(*SQLStore)

// WithLogger logs every statement at debug level
func WithLogger(logger *zap.Logger) SQLOption {
	return func(s *SQLStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSQLStore creates a store over an open database
func NewSQLStore(db *sql.DB, dialect Dialect, tables map[string]*Table, opts ...SQLOption) *SQLStore {
	if tables == nil {
		tables = DefaultTables()
	}
	s := &SQLStore{
		db:      db,
		dialect: dialect,
		tables:  tables,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying database
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *SQLStore) Ping(ctx context.Context) error {
	return ConvertDBError(s.db.PingContext(ctx))
}

func (s *SQLStore) table(collection string) (*Table, error) {
	t, ok := s.tables[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	return t, nil
}

// where renders the parent and filter conditions of a query.
// Filters are applied in key order so statements are stable.
func (s *SQLStore) where(t *Table, q Query) (string, []any, error) {
	var conds []string
	var args []any

	if t.ParentColumn != "" {
		if q.ParentID == "" {
			return "", nil, ErrMissingParent
		}
		args = append(args, q.ParentID)
		conds = append(conds, fmt.Sprintf("%s = %s", pq.QuoteIdentifier(t.ParentColumn), s.dialect.Placeholder(len(args))))
	}

	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		column, ok := t.Filters[k]
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", ErrInvalidFilter, k)
		}
		args = append(args, q.Filters[k])
		conds = append(conds, fmt.Sprintf("%s = %s", pq.QuoteIdentifier(column), s.dialect.Placeholder(len(args))))
	}

	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func selectList(t *Table) string {
	cols := t.columnNames()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

func orderBy(t *Table) string {
	if t.OrderBy == "" {
		return ""
	}
	return " ORDER BY " + t.OrderBy
}

// List returns one page of a collection with the total number of matching rows
func (s *SQLStore) List(ctx context.Context, collection string, q Query) (*PageResult, error) {
	t, err := s.table(collection)
	if err != nil {
		return nil, err
	}
	if !q.Page.Valid() {
		return nil, fmt.Errorf("%w: number=%d size=%d", jsonapi.ErrInvalidPage, q.Page.Number, q.Page.Size)
	}

	where, args, err := s.where(t, q)
	if err != nil {
		return nil, err
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", pq.QuoteIdentifier(t.Name), where)
	s.logger.Debug("count", zap.String("collection", collection), zap.String("sql", countQuery))

	var count int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, fmt.Errorf("count %s: %w", collection, ConvertDBError(err))
	}

	result := &PageResult{Count: count, Rows: []jsonapi.Entity{}}
	if count == 0 || q.Page.Offset() >= count {
		return result, nil
	}

	pageArgs := append(args, q.Page.Size, q.Page.Offset())
	pageQuery := fmt.Sprintf("SELECT %s FROM %s%s%s LIMIT %s OFFSET %s",
		selectList(t),
		pq.QuoteIdentifier(t.Name),
		where,
		orderBy(t),
		s.dialect.Placeholder(len(args)+1),
		s.dialect.Placeholder(len(args)+2),
	)
	s.logger.Debug("list", zap.String("collection", collection), zap.String("sql", pageQuery))

	records, err := s.query(ctx, t, pageQuery, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	if err := s.preload(ctx, t, records); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	result.Rows = jsonapi.Entities(records)
	return result, nil
}

// Get returns a single row by id
func (s *SQLStore) Get(ctx context.Context, collection, id string) (jsonapi.Entity, error) {
	t, err := s.table(collection)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		selectList(t),
		pq.QuoteIdentifier(t.Name),
		pq.QuoteIdentifier("id"),
		s.dialect.Placeholder(1),
	)
	s.logger.Debug("get", zap.String("collection", collection), zap.String("sql", query))

	records, err := s.query(ctx, t, query, id)
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", collection, id, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("get %s %s: %w", collection, id, ErrNotFound)
	}

	if err := s.preload(ctx, t, records[:1]); err != nil {
		return nil, fmt.Errorf("get %s %s: %w", collection, id, err)
	}

	return records[0], nil
}

func (s *SQLStore) query(ctx context.Context, t *Table, query string, args ...any) ([]jsonapi.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	records, err := scanRows(rows, t)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return records, nil
}

// preload attaches related rows to records with one query per preload
func (s *SQLStore) preload(ctx context.Context, t *Table, records []jsonapi.Record) error {
	for _, p := range t.Preloads {
		if err := s.loadPreload(ctx, p, records); err != nil {
			return fmt.Errorf("preload %s: %w", p.Field, err)
		}
	}
	return nil
}

func (s *SQLStore) loadPreload(ctx context.Context, p Preload, records []jsonapi.Record) error {
	related, err := s.table(p.Table)
	if err != nil {
		return err
	}

	// Collect distinct match values
	var keys []any
	seen := make(map[string]bool)
	for _, record := range records {
		v, ok := record[p.LocalField]
		if !ok || v == nil {
			continue
		}
		k := keyOf(v)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, v)
		}
	}

	if len(keys) == 0 {
		if p.Many {
			for _, record := range records {
				record[p.Field] = []jsonapi.Record{}
			}
		}
		return nil
	}

	cond, args := s.dialect.InList(p.RemoteColumn, 1, keys)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s%s",
		selectList(related),
		pq.QuoteIdentifier(related.Name),
		cond,
		orderBy(related),
	)
	s.logger.Debug("preload", zap.String("field", p.Field), zap.String("sql", query))

	rows, err := s.query(ctx, related, query, args...)
	if err != nil {
		return err
	}

	// Group related rows by the remote column value
	remoteField := related.fieldFor(p.RemoteColumn)
	grouped := make(map[string][]jsonapi.Record)
	for _, row := range rows {
		k := keyOf(row[remoteField])
		grouped[k] = append(grouped[k], row)
	}

	for _, record := range records {
		v, ok := record[p.LocalField]
		var matches []jsonapi.Record
		if ok && v != nil {
			matches = grouped[keyOf(v)]
		}

		if p.Many {
			if matches == nil {
				matches = []jsonapi.Record{}
			}
			record[p.Field] = matches
			continue
		}
		if len(matches) > 0 {
			record[p.Field] = matches[0]
		}
	}

	return nil
}
