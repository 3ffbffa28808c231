package eval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codenerd/dlsql/internal/ast"
	"github.com/codenerd/dlsql/internal/mir"
)

func ruleAtom(t *testing.T, rel string, terms ...string) ast.Atom {
	t.Helper()
	r, err := ast.NewRel(rel)
	require.NoError(t, err)
	ts := make([]ast.Term, len(terms))
	for i, s := range terms {
		if s[0] >= 'A' && s[0] <= 'Z' {
			v, err := ast.NewVar(s)
			require.NoError(t, err)
			ts[i] = ast.VarTerm(v)
		} else {
			c, err := ast.NewConst(s)
			require.NoError(t, err)
			ts[i] = ast.ConstTerm(c)
		}
	}
	return ast.Atom{Rel: r, Terms: ts}
}

func TestCompileRuleOneStatementPerDeltaPosition(t *testing.T) {
	rule := ast.Rule{
		Head: ruleAtom(t, "path", "X", "Z"),
		Body: []ast.Atom{
			ruleAtom(t, "path", "X", "Y"),
			ruleAtom(t, "edge", "Y", "Z"),
		},
	}
	stmts, err := compileRule(rule, 3)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
}

func TestCompileDeltaAliasNaming(t *testing.T) {
	rule := ast.Rule{
		Head: ruleAtom(t, "path", "X", "Z"),
		Body: []ast.Atom{
			ruleAtom(t, "edge", "X", "Y"),
			ruleAtom(t, "edge", "Y", "Z"),
		},
	}
	stmts, err := compileRule(rule, 1)
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	// Two occurrences of the same relation in one body get independent
	// aliases "edge0" and "edge1".
	require.Contains(t, stmts[0].sql, "edge AS edge0")
	require.Contains(t, stmts[0].sql, "edge AS edge1")
	require.Contains(t, stmts[0].sql, "edge0.it = ?")
	require.Contains(t, stmts[1].sql, "edge1.it = ?")
}

func TestCompileDeltaUnificationConjunct(t *testing.T) {
	rule := ast.Rule{
		Head: ruleAtom(t, "path", "X", "Z"),
		Body: []ast.Atom{
			ruleAtom(t, "edge", "X", "Y"),
			ruleAtom(t, "edge", "Y", "Z"),
		},
	}
	stmts, err := compileRule(rule, 1)
	require.NoError(t, err)
	require.Contains(t, stmts[0].sql, "edge0.x1 = edge1.x0")
}

func TestCompileDeltaConstFilter(t *testing.T) {
	rule := ast.Rule{
		Head: ruleAtom(t, "reaches", "Y"),
		Body: []ast.Atom{ruleAtom(t, "edge", "start", "Y")},
	}
	stmts, err := compileRule(rule, 1)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	require.Contains(t, stmts[0].sql, "edge0.x0 = ?")
	require.Contains(t, stmts[0].args, "start")
}

func TestCompileDeltaRangeRestrictionViolation(t *testing.T) {
	rule := ast.Rule{
		Head: ruleAtom(t, "bad", "X", "Z"), // Z not bound in body
		Body: []ast.Atom{ruleAtom(t, "edge", "X", "Y")},
	}
	_, err := compileRule(rule, 1)
	var rrErr *mir.RangeRestrictionError
	require.ErrorAs(t, err, &rrErr)
	require.Equal(t, "Z", rrErr.Var)
}

func TestCompileArityZeroHead(t *testing.T) {
	rule := ast.Rule{
		Head: ruleAtom(t, "s"),
		Body: []ast.Atom{ruleAtom(t, "r")},
	}
	stmts, err := compileRule(rule, 1)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	require.Contains(t, stmts[0].sql, "INSERT INTO s (it)")
	require.Contains(t, stmts[0].sql, "SELECT DISTINCT 1")
}

func TestCompileDeltaArgOrderMatchesPlaceholders(t *testing.T) {
	rule := ast.Rule{
		Head: ruleAtom(t, "out", "const1", "Y"),
		Body: []ast.Atom{ruleAtom(t, "edge", "X", "Y")},
	}
	stmts, err := compileRule(rule, 5)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	// 4 placeholders: k, head-literal(select), delta-it, head-literal(not-exists).
	require.Equal(t, 4, countPlaceholders(stmts[0].sql))
	require.Len(t, stmts[0].args, 4)
	require.Equal(t, 5, stmts[0].args[0])    // outer k
	require.Equal(t, "const1", stmts[0].args[1]) // inner select literal
	require.Equal(t, 4, stmts[0].args[2])    // delta predicate k-1
	require.Equal(t, "const1", stmts[0].args[3]) // NOT EXISTS literal
}

func countPlaceholders(sql string) int {
	n := 0
	for _, r := range sql {
		if r == '?' {
			n++
		}
	}
	return n
}
