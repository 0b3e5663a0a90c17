// Package db has the transaction and query helpers the SQLite store
// shares.
package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// WithTx runs fn in a transaction, committing only when fn returns nil.
func WithTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// ExecEach prepares query once and runs it for every argument row.
func ExecEach(tx *sql.Tx, query string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, args := range rows {
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

// In expands ids into an "IN (?, ?, ...)" list and its arguments.
// Callers must not pass an empty slice.
func In[T any](ids []T) (string, []any) {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	return "IN (" + marks + ")", lo.ToAnySlice(ids)
}

// NullStringValue returns "" for NULL.
func NullStringValue(n sql.NullString) string {
	return lo.Ternary(n.Valid, n.String, "")
}
