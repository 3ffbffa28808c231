package eval

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/codenerd/dlsql/internal/ast"
	"github.com/codenerd/dlsql/internal/dlog"
)

// Model maps a relation name to the set of ground tuples it contains. The
// set is represented as a slice with no guaranteed order, per the spec's
// explicit statement that tuple order within a relation is unspecified.
type Model map[string][]ast.GroundAtom

// extractModel issues SELECT DISTINCT x0, ..., x(arity-1) against every
// relation in arities (a nullary relation is counted instead, yielding one
// empty tuple if it has any row), including zero-extent ones, which still
// appear as empty slices, and collects the data columns into tuples of
// Const.
func extractModel(ctx context.Context, db *sql.DB, arities map[string]int) (Model, error) {
	timer := dlog.StartTimer(dlog.CategoryModel, "extractModel")
	defer timer.Stop()

	model := make(Model, len(arities))
	for rel, arity := range arities {
		rows, err := selectDistinctTuples(ctx, db, rel, arity)
		if err != nil {
			return nil, err
		}
		relName := ast.MustRel(rel)
		tuples := make([]ast.GroundAtom, 0, len(rows))
		for _, row := range rows {
			consts := make([]ast.Const, len(row))
			for i, v := range row {
				consts[i] = ast.MustConst(v)
			}
			tuples = append(tuples, ast.GroundAtom{Rel: relName, Consts: consts})
		}
		model[rel] = tuples
		dlog.Get(dlog.CategoryModel).Infof("relation %q has %d tuples", rel, len(tuples))
	}
	return model, nil
}

func selectDistinctTuples(ctx context.Context, db *sql.DB, rel string, arity int) ([][]string, error) {
	if arity == 0 {
		var n int
		if err := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", rel)).Scan(&n); err != nil {
			return nil, fmt.Errorf("eval: count rows in %q: %w", rel, err)
		}
		if n == 0 {
			return nil, nil
		}
		return [][]string{{}}, nil
	}

	cols := make([]string, arity)
	for i := range cols {
		cols[i] = fmt.Sprintf("x%d", i)
	}
	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s", strings.Join(cols, ", "), rel)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("eval: select distinct from %q: %w", rel, err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		scanTargets := make([]any, arity)
		values := make([]string, arity)
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("eval: scan row from %q: %w", rel, err)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eval: iterate rows from %q: %w", rel, err)
	}
	return out, nil
}
