package eval

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/codenerd/dlsql/internal/ast"
	"github.com/codenerd/dlsql/internal/dlog"
	"github.com/codenerd/dlsql/internal/mir"
)

// loadFacts inserts every fact in m with it=0, skipping tuples already
// present so reloading is idempotent. All inserts happen inside one
// transaction.
func loadFacts(ctx context.Context, db *sql.DB, dialect Dialect, cache *stmtCache, m *mir.Mir) error {
	timer := dlog.StartTimer(dlog.CategoryLoad, "loadFacts")
	defer timer.Stop()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("eval: begin load transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for rel, tuples := range m.Facts() {
		for _, tuple := range tuples {
			exists, err := factExists(ctx, tx, cache, rel, tuple)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			if err := insertFactAtIteration(ctx, tx, dialect, cache, rel, tuple, 0); err != nil {
				return err
			}
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("eval: commit load transaction: %w", err)
	}
	dlog.Get(dlog.CategoryLoad).Infof("loaded %d new facts", inserted)
	return nil
}

func factExists(ctx context.Context, tx *sql.Tx, cache *stmtCache, rel string, tuple []ast.Const) (bool, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", rel)
	args := make([]any, 0, len(tuple))
	if len(tuple) > 0 {
		conds := make([]string, len(tuple))
		for i, c := range tuple {
			conds[i] = fmt.Sprintf("x%d = ?", i)
			args = append(args, c.Name())
		}
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	stmt, err := cache.get(ctx, query)
	if err != nil {
		return false, fmt.Errorf("eval: prepare existence check for %q: %w", rel, err)
	}
	var n int
	if err := tx.StmtContext(ctx, stmt).QueryRowContext(ctx, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("eval: existence check for %q: %w", rel, err)
	}
	return n > 0, nil
}

// insertFactAtIteration inserts tuple into rel with the given iteration
// number, using dialect's column list and identity strategy.
func insertFactAtIteration(ctx context.Context, tx *sql.Tx, dialect Dialect, cache *stmtCache, rel string, tuple []ast.Const, it int) error {
	arity := len(tuple)
	cols, needsID := dialect.InsertColumns(rel, arity)

	args := make([]any, 0, len(cols))
	if needsID {
		id, err := dialect.NextID(ctx, tx, rel)
		if err != nil {
			return err
		}
		args = append(args, id)
	}
	args = append(args, it)
	for _, c := range tuple {
		args = append(args, c.Name())
	}

	placeholders := make([]string, len(cols))
	for i := range placeholders {
		placeholders[i] = "?"
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", rel, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	stmt, err := cache.get(ctx, query)
	if err != nil {
		return fmt.Errorf("eval: prepare insert for %q: %w", rel, err)
	}
	if _, err := tx.StmtContext(ctx, stmt).ExecContext(ctx, args...); err != nil {
		return fmt.Errorf("eval: insert into %q: %w", rel, err)
	}
	return nil
}
