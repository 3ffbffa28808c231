// Package mir implements the mid-level IR derived from a validated ast.Ast:
// ground facts keyed by relation, kept separate from the recursive rules
// that derive further facts from them. Mir supports incremental fact
// addition and fact clearing so a caller can reuse one validated rule set
// against many fact bases.
package mir

import (
	"errors"
	"fmt"
	"strings"

	"github.com/codenerd/dlsql/internal/ast"
)

// ErrUngrounded is returned by NewMir when a fact (a rule with an empty
// body) has a head containing a variable.
var ErrUngrounded = errors.New("mir: fact head is not fully ground")

// tupleKey produces a canonical, collision-resistant key for a tuple of
// constants, used to de-duplicate facts under set semantics. Each field is
// written as its byte length, a colon, the lexeme and a '|' separator; the
// length prefix keeps the key unambiguous even for constant values that
// contain the separator.
func tupleKey(consts []ast.Const) string {
	var b strings.Builder
	for _, c := range consts {
		name := c.Name()
		fmt.Fprintf(&b, "%d:%s|", len(name), name)
	}
	return b.String()
}

// Mir is the mid-level IR: a fact base per relation, plus the set of
// recursive (non-fact) rules that may derive further facts.
type Mir struct {
	facts map[string]map[string][]ast.Const // relation name -> tuple key -> tuple
	rules map[string]ast.Rule               // rule text -> rule, for de-duplication
}

// options holds NewMir's configuration, set up via Option values.
type options struct {
	eagerRangeCheck bool
}

// Option configures NewMir.
type Option func(*options)

// WithEagerRangeCheck makes NewMir check range restriction (every head
// variable appears in the body) for every rule at construction time,
// instead of leaving that check to the eval layer's rule compiler. Both are
// acceptable per the range-restriction design note; this package defaults
// to the lazy (compile-time) check and offers this as an opt-in.
func WithEagerRangeCheck() Option {
	return func(o *options) { o.eagerRangeCheck = true }
}

// RangeRestrictionError reports that a rule head mentions a variable absent
// from its body.
type RangeRestrictionError struct {
	Rule string
	Var  string
}

func (e *RangeRestrictionError) Error() string {
	return fmt.Sprintf("mir: range restriction violated in rule %q: head variable %q does not appear in the body", e.Rule, e.Var)
}

// CheckRangeRestriction verifies that every variable in r's head appears
// somewhere in r's body. NewMir calls it under WithEagerRangeCheck. The eval
// layer's rule compiler does not call it; it performs the equivalent check
// itself while compiling the head projection and reports a violation with
// the same *RangeRestrictionError type.
func CheckRangeRestriction(r ast.Rule) error {
	bound := make(map[string]bool)
	for _, atom := range r.Body {
		for _, t := range atom.Terms {
			if t.IsVar() {
				bound[t.Var().Name()] = true
			}
		}
	}
	for _, t := range r.Head.Terms {
		if t.IsVar() && !bound[t.Var().Name()] {
			return &RangeRestrictionError{Rule: r.String(), Var: t.Var().Name()}
		}
	}
	return nil
}

// NewMir traverses ast's rules, splitting each into a ground fact or a
// recursive rule. Duplicate facts and duplicate rules collapse under set
// semantics.
func NewMir(a *ast.Ast, opts ...Option) (*Mir, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	m := &Mir{
		facts: make(map[string]map[string][]ast.Const),
		rules: make(map[string]ast.Rule),
	}
	for _, r := range a.Rules() {
		if !r.IsFact() {
			if o.eagerRangeCheck {
				if err := CheckRangeRestriction(r); err != nil {
					return nil, err
				}
			}
			m.rules[r.String()] = r
			continue
		}
		g, ok := r.Head.Ground()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUngrounded, r)
		}
		m.insertFact(g.Rel.Name(), g.Consts)
	}
	return m, nil
}

func (m *Mir) insertFact(rel string, tuple []ast.Const) {
	set, ok := m.facts[rel]
	if !ok {
		set = make(map[string][]ast.Const)
		m.facts[rel] = set
	}
	set[tupleKey(tuple)] = append([]ast.Const(nil), tuple...)
}

// AddFact inserts a tuple into facts[rel], creating the relation's fact set
// if absent. No arity check is performed; the caller is responsible for
// supplying tuples consistent with the relation's declared arity.
func (m *Mir) AddFact(rel string, tuple []ast.Const) {
	m.insertFact(rel, tuple)
}

// ClearFacts empties the fact store without touching the rule set.
func (m *Mir) ClearFacts() {
	m.facts = make(map[string]map[string][]ast.Const)
}

// FactRelations returns the names of every relation with at least one fact.
func (m *Mir) FactRelations() []string {
	out := make([]string, 0, len(m.facts))
	for rel := range m.facts {
		out = append(out, rel)
	}
	return out
}

// FactsOf returns the tuples known for rel, in no particular order.
func (m *Mir) FactsOf(rel string) [][]ast.Const {
	set := m.facts[rel]
	out := make([][]ast.Const, 0, len(set))
	for _, tuple := range set {
		out = append(out, tuple)
	}
	return out
}

// Facts returns an iterator over (relation, tuples) pairs, one per relation
// that has at least one fact.
func (m *Mir) Facts() func(yield func(rel string, tuples [][]ast.Const) bool) {
	return func(yield func(rel string, tuples [][]ast.Const) bool) {
		for rel := range m.facts {
			if !yield(rel, m.FactsOf(rel)) {
				return
			}
		}
	}
}

// Rules returns the non-fact rules of the program, in no particular order.
func (m *Mir) Rules() []ast.Rule {
	out := make([]ast.Rule, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, r)
	}
	return out
}

// Arities unions arities observed in facts (sampled from any tuple of each
// relation) with arities observed in rule heads. A disagreement here is a
// debug-time invariant violation: ast.NewAst already ruled it out for any
// Mir built from a validated Ast, so this panics rather than returning an
// error.
func (m *Mir) Arities() map[string]int {
	out := make(map[string]int)
	for rel, set := range m.facts {
		for _, tuple := range set {
			out[rel] = len(tuple)
			break
		}
	}
	for _, r := range m.rules {
		name := r.Head.Rel.Name()
		n := len(r.Head.Terms)
		if existing, ok := out[name]; ok && existing != n {
			panic(fmt.Sprintf("mir: invariant violated: relation %q has arities %d and %d", name, existing, n))
		}
		out[name] = n
		for _, atom := range r.Body {
			bn := atom.Rel.Name()
			ba := len(atom.Terms)
			if existing, ok := out[bn]; ok && existing != ba {
				panic(fmt.Sprintf("mir: invariant violated: relation %q has arities %d and %d", bn, existing, ba))
			}
			out[bn] = ba
		}
	}
	return out
}
