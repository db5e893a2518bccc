// Package store is the pgx-backed persistence layer: entity writers for
// the batch ingestor, the session ledger, the validation-context loader,
// and the reconciliation snapshot/upsert surface. The DDL lives in
// sql/schema.sql.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgxpool.Pool / pgx.Tx the store needs, so tests
// can substitute either.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store wraps a database handle with the platform's queries.
type Store struct {
	db DBTX
}

// New creates a Store over the given handle.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// valuesClause builds the placeholder list for a multi-row insert:
// ($1,$2,..),($..),... for rows rows of width cols.
func valuesClause(rows, cols int) string {
	var b strings.Builder
	arg := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "$%d", arg)
			arg++
		}
		b.WriteByte(')')
	}
	return b.String()
}
