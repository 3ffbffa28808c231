package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustAtom(t *testing.T, rel string, terms ...string) Atom {
	t.Helper()
	r, err := NewRel(rel)
	require.NoError(t, err)
	ts := make([]Term, len(terms))
	for i, s := range terms {
		if s[0] >= 'A' && s[0] <= 'Z' {
			v, err := NewVar(s)
			require.NoError(t, err)
			ts[i] = VarTerm(v)
		} else {
			c, err := NewConst(s)
			require.NoError(t, err)
			ts[i] = ConstTerm(c)
		}
	}
	return Atom{Rel: r, Terms: ts}
}

func TestNewConstRejectsUppercase(t *testing.T) {
	_, err := NewConst("Alice")
	require.ErrorIs(t, err, ErrInvalidConst)
}

func TestNewConstRejectsEmpty(t *testing.T) {
	_, err := NewConst("")
	require.ErrorIs(t, err, ErrInvalidConst)
}

func TestNewVarRejectsLowercase(t *testing.T) {
	_, err := NewVar("x")
	require.ErrorIs(t, err, ErrInvalidVar)
}

func TestNewVarRejectsEmpty(t *testing.T) {
	_, err := NewVar("")
	require.ErrorIs(t, err, ErrInvalidVar)
}

func TestAtomGround(t *testing.T) {
	ground := mustAtom(t, "edge", "a", "b")
	g, ok := ground.Ground()
	require.True(t, ok)
	require.Equal(t, "edge", g.Rel.Name())
	require.Equal(t, []Const{MustConst("a"), MustConst("b")}, g.Consts)

	notGround := mustAtom(t, "edge", "a", "X")
	_, ok = notGround.Ground()
	require.False(t, ok)
}

func TestRuleString(t *testing.T) {
	head := mustAtom(t, "path", "X", "Z")
	b1 := mustAtom(t, "path", "X", "Y")
	b2 := mustAtom(t, "edge", "Y", "Z")
	r := Rule{Head: head, Body: []Atom{b1, b2}}
	require.Equal(t, "path(X, Z) :- path(X, Y), edge(Y, Z).", r.String())

	fact := Rule{Head: mustAtom(t, "r")}
	require.True(t, fact.IsFact())
	require.Equal(t, "r() :- .", fact.String())
}

func TestAtomString(t *testing.T) {
	a := mustAtom(t, "edge", "a", "X")
	require.Equal(t, "edge(a, X)", a.String())
}

func TestNewAstArityConsistency(t *testing.T) {
	rules := []Rule{
		{Head: mustAtom(t, "edge", "a", "b")},
		{Head: mustAtom(t, "edge", "b", "c")},
		{
			Head: mustAtom(t, "path", "X", "Y"),
			Body: []Atom{mustAtom(t, "edge", "X", "Y")},
		},
	}
	a, err := NewAst(rules)
	require.NoError(t, err)
	require.Equal(t, 2, a.Arities()["edge"])
	require.Equal(t, 2, a.Arities()["path"])
}

func TestNewAstArityConflict(t *testing.T) {
	rules := []Rule{
		{Head: mustAtom(t, "edge", "a", "b")},
		{Head: mustAtom(t, "edge", "a")},
	}
	_, err := NewAst(rules)
	var arityErr *ArityError
	require.ErrorAs(t, err, &arityErr)
	require.Equal(t, "edge", arityErr.Relation)
	require.ElementsMatch(t, []int{arityErr.Arity1, arityErr.Arity2}, []int{2, 1})
}

func TestAstAtomsOrderIsHeadThenBody(t *testing.T) {
	r1 := Rule{Head: mustAtom(t, "s"), Body: []Atom{mustAtom(t, "r")}}
	a, err := NewAst([]Rule{r1})
	require.NoError(t, err)

	var seen []string
	for atom := range a.Atoms() {
		seen = append(seen, atom.Rel.Name())
	}
	require.Equal(t, []string{"s", "r"}, seen)
}
