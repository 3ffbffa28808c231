// This file implements the per-rule SQL compiler: for a rule and an
// iteration number it emits one deduplicating INSERT ... SELECT per body
// atom ("delta position"), per the semi-naive strategy. The compiler is a
// pure syntactic transform — it makes no decisions about join order or
// cardinality, leaving that to the SQL engine.
package eval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/codenerd/dlsql/internal/ast"
	"github.com/codenerd/dlsql/internal/mir"
)

// compiledStmt is one generated statement plus its bound parameters, in the
// exact left-to-right order they appear as "?" placeholders in sql.
type compiledStmt struct {
	sql  string
	args []any
}

// compileRule compiles rule r for iteration k (k >= 1), emitting one
// statement per body atom. A fact (empty body) has nothing to compile; the
// caller must not invoke this on facts.
func compileRule(r ast.Rule, k int) ([]compiledStmt, error) {
	n := len(r.Body)
	if n == 0 {
		return nil, fmt.Errorf("eval: cannot compile a fact rule %q", r)
	}
	stmts := make([]compiledStmt, 0, n)
	for d := 0; d < n; d++ {
		stmt, err := compileDelta(r, k, d)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

type constFilter struct {
	qual  string
	value string
}

// compileDelta compiles the single INSERT ... SELECT for rule r, iteration
// k, with delta position d constrained to it = k-1.
func compileDelta(r ast.Rule, k, d int) (compiledStmt, error) {
	aliases := make([]string, len(r.Body))
	froms := make([]string, len(r.Body))
	varBindings := make(map[string][]string) // var name -> qualified columns, in first-seen order
	var constFilters []constFilter

	for i, atom := range r.Body {
		alias := fmt.Sprintf("%s%d", atom.Rel.Name(), i)
		aliases[i] = alias
		froms[i] = fmt.Sprintf("%s AS %s", atom.Rel.Name(), alias)
		for pos, term := range atom.Terms {
			qual := fmt.Sprintf("%s.x%d", alias, pos)
			if term.IsVar() {
				name := term.Var().Name()
				varBindings[name] = append(varBindings[name], qual)
			} else {
				constFilters = append(constFilters, constFilter{qual: qual, value: term.Const().Name()})
			}
		}
	}

	var whereConjuncts []string
	var whereArgs []any

	// Delta predicate: exactly one body atom is constrained to the
	// previous iteration.
	whereConjuncts = append(whereConjuncts, fmt.Sprintf("%s.it = ?", aliases[d]))
	whereArgs = append(whereArgs, k-1)

	// Constant occurrences in the body always filter, regardless of
	// repetition.
	for _, cf := range constFilters {
		whereConjuncts = append(whereConjuncts, fmt.Sprintf("%s = ?", cf.qual))
		whereArgs = append(whereArgs, cf.value)
	}

	// Variable unification: for each variable bound at more than one
	// position, chain every subsequent occurrence back to the first. A
	// variable occurring once needs no conjunct. Iterate in sorted name
	// order so generated SQL is deterministic and testable.
	varNames := make([]string, 0, len(varBindings))
	for name := range varBindings {
		varNames = append(varNames, name)
	}
	sort.Strings(varNames)
	for _, name := range varNames {
		quals := varBindings[name]
		for i := 1; i < len(quals); i++ {
			whereConjuncts = append(whereConjuncts, fmt.Sprintf("%s = %s", quals[0], quals[i]))
		}
	}

	rel := r.Head.Rel.Name()
	headArity := len(r.Head.Terms)
	from := strings.Join(froms, ", ")
	where := strings.Join(whereConjuncts, " AND ")

	if headArity == 0 {
		return compileArityZero(rel, k, from, where, whereArgs)
	}

	// Head projection: one expression per head position, either a bound
	// literal or a body column reference. Collected once and reused both
	// in the SELECT list and in the NOT EXISTS anti-join, in textual
	// occurrence order, so args line up with "?" placeholders.
	type projection struct {
		expr    string
		literal bool
		value   string
	}
	projections := make([]projection, headArity)
	for i, term := range r.Head.Terms {
		if term.IsConst() {
			projections[i] = projection{expr: "?", literal: true, value: term.Const().Name()}
			continue
		}
		name := term.Var().Name()
		quals, ok := varBindings[name]
		if !ok {
			return compiledStmt{}, &mir.RangeRestrictionError{Rule: r.String(), Var: name}
		}
		projections[i] = projection{expr: quals[0]}
	}

	var args []any
	selectCols := make([]string, headArity)
	for i, p := range projections {
		selectCols[i] = fmt.Sprintf("%s AS y%d", p.expr, i)
		if p.literal {
			args = append(args, p.value)
		}
	}
	args = append(args, whereArgs...)

	notExistsConds := make([]string, headArity)
	for i, p := range projections {
		notExistsConds[i] = fmt.Sprintf("pre.x%d = %s", i, p.expr)
		if p.literal {
			args = append(args, p.value)
		}
	}

	innerSQL := fmt.Sprintf(
		"SELECT DISTINCT %s FROM %s WHERE %s AND NOT EXISTS (SELECT 1 FROM %s AS pre WHERE %s)",
		strings.Join(selectCols, ", "), from, where, rel, strings.Join(notExistsConds, " AND "),
	)

	outerCols := make([]string, headArity)
	ySelects := make([]string, headArity)
	for i := 0; i < headArity; i++ {
		outerCols[i] = fmt.Sprintf("x%d", i)
		ySelects[i] = fmt.Sprintf("y%d", i)
	}

	finalArgs := append([]any{k}, args...)
	sql := fmt.Sprintf(
		"INSERT INTO %s (it, %s) SELECT ?, %s FROM (%s)",
		rel, strings.Join(outerCols, ", "), strings.Join(ySelects, ", "), innerSQL,
	)

	return compiledStmt{sql: sql, args: finalArgs}, nil
}

// compileArityZero handles nullary relations: the body's satisfiability is
// all that matters, so the inner query projects a constant instead of a
// head tuple, and the outer INSERT lists only "it".
func compileArityZero(rel string, k int, from, where string, whereArgs []any) (compiledStmt, error) {
	innerSQL := fmt.Sprintf(
		"SELECT DISTINCT 1 FROM %s WHERE %s AND NOT EXISTS (SELECT 1 FROM %s)",
		from, where, rel,
	)
	sql := fmt.Sprintf("INSERT INTO %s (it) SELECT ? FROM (%s)", rel, innerSQL)
	args := append([]any{k}, whereArgs...)
	return compiledStmt{sql: sql, args: args}, nil
}
