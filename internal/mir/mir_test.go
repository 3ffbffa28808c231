package mir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codenerd/dlsql/internal/ast"
)

func atom(t *testing.T, rel string, terms ...string) ast.Atom {
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

func TestNewMirSplitsFactsAndRules(t *testing.T) {
	facts := []ast.Rule{
		{Head: atom(t, "edge", "a", "b")},
		{Head: atom(t, "edge", "b", "c")},
	}
	rule := ast.Rule{
		Head: atom(t, "path", "X", "Y"),
		Body: []ast.Atom{atom(t, "edge", "X", "Y")},
	}
	a, err := ast.NewAst(append(facts, rule))
	require.NoError(t, err)

	m, err := NewMir(a)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"edge"}, m.FactRelations())
	require.Len(t, m.FactsOf("edge"), 2)
	require.Len(t, m.Rules(), 1)
}

func TestNewMirDeduplicatesFacts(t *testing.T) {
	facts := []ast.Rule{
		{Head: atom(t, "r")},
		{Head: atom(t, "r")},
	}
	a, err := ast.NewAst(facts)
	require.NoError(t, err)
	m, err := NewMir(a)
	require.NoError(t, err)
	require.Len(t, m.FactsOf("r"), 1)
}

func TestNewMirUngroundedFact(t *testing.T) {
	a, err := ast.NewAst([]ast.Rule{{Head: atom(t, "r", "X")}})
	require.NoError(t, err)
	_, err = NewMir(a)
	require.ErrorIs(t, err, ErrUngrounded)
}

func TestAddFactAndClearFacts(t *testing.T) {
	a, err := ast.NewAst(nil)
	require.NoError(t, err)
	m, err := NewMir(a)
	require.NoError(t, err)

	m.AddFact("edge", []ast.Const{ast.MustConst("a"), ast.MustConst("b")})
	require.Len(t, m.FactsOf("edge"), 1)

	m.ClearFacts()
	require.Empty(t, m.FactsOf("edge"))
}

func TestArities(t *testing.T) {
	facts := []ast.Rule{{Head: atom(t, "edge", "a", "b")}}
	rule := ast.Rule{
		Head: atom(t, "path", "X", "Y"),
		Body: []ast.Atom{atom(t, "edge", "X", "Y")},
	}
	a, err := ast.NewAst(append(facts, rule))
	require.NoError(t, err)
	m, err := NewMir(a)
	require.NoError(t, err)

	arities := m.Arities()
	require.Equal(t, 2, arities["edge"])
	require.Equal(t, 2, arities["path"])
}

func TestCheckRangeRestriction(t *testing.T) {
	ok := ast.Rule{
		Head: atom(t, "path", "X", "Y"),
		Body: []ast.Atom{atom(t, "edge", "X", "Y")},
	}
	require.NoError(t, CheckRangeRestriction(ok))

	bad := ast.Rule{
		Head: atom(t, "path", "X", "Z"),
		Body: []ast.Atom{atom(t, "edge", "X", "Y")},
	}
	err := CheckRangeRestriction(bad)
	var rrErr *RangeRestrictionError
	require.ErrorAs(t, err, &rrErr)
	require.Equal(t, "Z", rrErr.Var)
}

func TestEagerRangeCheckOption(t *testing.T) {
	bad := ast.Rule{
		Head: atom(t, "path", "X", "Z"),
		Body: []ast.Atom{atom(t, "edge", "X", "Y")},
	}
	a, err := ast.NewAst([]ast.Rule{bad})
	require.NoError(t, err)

	_, err = NewMir(a, WithEagerRangeCheck())
	var rrErr *RangeRestrictionError
	require.ErrorAs(t, err, &rrErr)

	// Without the option, construction succeeds (lazy checking is deferred
	// to rule compilation in the eval layer).
	_, err = NewMir(a)
	require.NoError(t, err)
}
