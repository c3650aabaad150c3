// Package postgres implements docstore.Store on PostgreSQL. Documents live
// in a single jsonb table keyed by (collection, id); live queries are fed
// by a trigger that NOTIFYs on every row change, consumed by a dedicated
// listening connection.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cloudchat-app/cloudchat/internal/common"
	"github.com/cloudchat-app/cloudchat/internal/docstore"
	"github.com/cloudchat-app/cloudchat/internal/docstore/postgres/migrations"
	"github.com/cloudchat-app/cloudchat/internal/logging"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type Store struct {
	db       *sql.DB
	listener *listener
	logger   logging.Logger
}

// New opens the database and prepares (but does not yet start) the
// notification listener. The listener connects on first Watch.
func New(dsn string, logger logging.Logger) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	s := &Store{db: db, logger: logger}
	s.listener = newListener(dsn, s, logger)
	return s, nil
}

// gooseUpContext is a seam for testing RunMigrations.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and applies them.
func (s *Store) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, s.db, ".")
}

// Close stops the listener and closes the database.
func (s *Store) Close() error {
	s.listener.stop()
	return s.db.Close()
}

// mapErr translates driver errors into the store taxonomy: a missing row is
// common.ErrNotFound, everything else counts as the store being unavailable.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	query :=
		`SELECT doc FROM documents
		 WHERE collection = $1 AND id = $2
		 `

	var doc []byte
	if err := s.db.QueryRowContext(ctx, query, collection, id).Scan(&doc); err != nil {
		return nil, mapErr(err)
	}
	return doc, nil
}

func (s *Store) Put(ctx context.Context, collection, id string, doc docstore.Document) error {
	query :=
		`INSERT INTO documents (collection, id, doc)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc
		 `

	if _, err := s.db.ExecContext(ctx, query, collection, id, []byte(doc)); err != nil {
		return mapErr(err)
	}
	return nil
}

// PutUnlessExists inserts the document only if no document in the
// collection matches guard. Check and insert run in one transaction under
// an advisory lock on the guard, so concurrent callers serialize and only
// one of them succeeds.
func (s *Store) PutUnlessExists(ctx context.Context, collection string, guard docstore.Filter, id string, doc docstore.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err)
	}
	defer tx.Rollback()

	// READ COMMITTED alone would let two writers both pass the NOT EXISTS
	// check; the xact lock holds until commit or rollback
	lockKey := collection + "/" + guard.Field + "/" + guard.Value
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
		return mapErr(err)
	}

	query :=
		`INSERT INTO documents (collection, id, doc)
		 SELECT $1, $2, $3
		 WHERE NOT EXISTS (
		   SELECT 1 FROM documents WHERE collection = $1 AND doc->>$4 = $5
		 )
		 `

	res, err := tx.ExecContext(ctx, query, collection, id, []byte(doc), guard.Field, guard.Value)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(err)
	}
	if n == 0 {
		return common.ErrConflict
	}
	return mapErr(tx.Commit())
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	query :=
		`DELETE FROM documents
		 WHERE collection = $1 AND id = $2
		 `

	if _, err := s.db.ExecContext(ctx, query, collection, id); err != nil {
		return mapErr(err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, collection string, filter *docstore.Filter) ([]docstore.Document, error) {
	query := `SELECT doc FROM documents WHERE collection = $1`
	args := []any{collection}
	if filter != nil {
		query += ` AND doc->>$2 = $3`
		args = append(args, filter.Field, filter.Value)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, mapErr(err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return docs, nil
}

// Watch opens a live query backed by LISTEN/NOTIFY. The first Watch starts
// the listening connection.
func (s *Store) Watch(ctx context.Context, collection string, filter *docstore.Filter) (docstore.Subscription, error) {
	return s.listener.watch(ctx, collection, filter)
}
