package eval

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/codenerd/dlsql/internal/ast"
	"github.com/codenerd/dlsql/internal/dlog"
)

// runFixpoint drives semi-naive evaluation: for each iteration k >= 1, for
// each rule, execute the compiled statements for every delta position,
// inside one transaction per iteration. The loop stops once an entire
// iteration produces no new row, and returns the iteration count at which
// fixpoint was reached.
func runFixpoint(ctx context.Context, db *sql.DB, cache *stmtCache, rules []ast.Rule) (int, error) {
	timer := dlog.StartTimer(dlog.CategoryFixpoint, "runFixpoint")
	defer timer.Stop()

	k := 0
	for {
		k++
		changed := false

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return 0, fmt.Errorf("eval: begin iteration %d transaction: %w", k, err)
		}

		rowsThisIteration := 0
		for _, r := range rules {
			stmts, err := compileRule(r, k)
			if err != nil {
				tx.Rollback()
				return 0, err
			}
			for _, stmt := range stmts {
				prepared, err := cache.get(ctx, stmt.sql)
				if err != nil {
					tx.Rollback()
					return 0, fmt.Errorf("eval: prepare rule statement for %q: %w", r, err)
				}
				res, err := tx.StmtContext(ctx, prepared).ExecContext(ctx, stmt.args...)
				if err != nil {
					tx.Rollback()
					return 0, fmt.Errorf("eval: execute rule statement for %q: %w", r, err)
				}
				n, err := res.RowsAffected()
				if err != nil {
					tx.Rollback()
					return 0, fmt.Errorf("eval: rows affected for %q: %w", r, err)
				}
				if n > 0 {
					changed = true
					rowsThisIteration += int(n)
				}
			}
		}

		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("eval: commit iteration %d transaction: %w", k, err)
		}

		dlog.Get(dlog.CategoryFixpoint).Infof("iteration %d inserted %d rows across %d rules", k, rowsThisIteration, len(rules))

		if !changed {
			return k, nil
		}
	}
}
