package eval

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/codenerd/dlsql/internal/dlog"
)

// createSchema creates one table (plus, for dialects that need one, a
// sequence-emulation table) per relation in arities, atomically inside a
// single transaction.
func createSchema(ctx context.Context, db *sql.DB, dialect Dialect, arities map[string]int) error {
	timer := dlog.StartTimer(dlog.CategorySchema, "createSchema")
	defer timer.Stop()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("eval: begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	for rel, arity := range arities {
		for _, stmt := range dialect.CreateTableStmts(rel, arity) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("eval: create table for relation %q: %w", rel, err)
			}
		}
		dlog.Get(dlog.CategorySchema).Infof("created table for relation %q (arity %d)", rel, arity)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("eval: commit schema transaction: %w", err)
	}
	return nil
}
