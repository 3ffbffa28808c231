// Package ast defines the immutable surface syntax of a Datalog program:
// constants, variables, terms, relations, atoms, rules, and the program
// itself. It enforces the lexical case rule (constants lowercase, variables
// uppercase) and per-program arity consistency, and leaves everything else —
// concrete-syntax parsing, semi-naive evaluation, SQL compilation — to its
// callers.
package ast

import (
	"fmt"
	"strings"
	"sync"
)

// Const is a Datalog constant: a non-empty string whose first rune is
// lowercase (or otherwise not uppercase, e.g. a digit or underscore).
type Const struct {
	name string
}

// Var is a Datalog variable: a non-empty string whose first rune is
// uppercase.
type Var struct {
	name string
}

// Rel is a relation name. It is an opaque identifier that becomes a SQL
// table name in the eval layer. NewRel only rejects the empty string; case
// and character content are not checked.
type Rel struct {
	name string
}

var (
	constInterns sync.Map // string -> Const
	varInterns   sync.Map // string -> Var
	relInterns   sync.Map // string -> Rel
)

func firstRuneUpper(s string) bool {
	r := []rune(s)[0]
	return r >= 'A' && r <= 'Z'
}

// NewConst validates s and returns a Const. The first character must not be
// uppercase.
func NewConst(s string) (Const, error) {
	if s == "" {
		return Const{}, fmt.Errorf("%w: %q", ErrInvalidConst, s)
	}
	if firstRuneUpper(s) {
		return Const{}, fmt.Errorf("%w: %q starts with an uppercase letter", ErrInvalidConst, s)
	}
	if v, ok := constInterns.Load(s); ok {
		return v.(Const), nil
	}
	c := Const{name: s}
	actual, _ := constInterns.LoadOrStore(s, c)
	return actual.(Const), nil
}

// MustConst is NewConst without validation, for internal construction where
// the caller already knows s is a valid constant lexeme (e.g. decoding an
// already-validated Ast).
func MustConst(s string) Const {
	if v, ok := constInterns.Load(s); ok {
		return v.(Const)
	}
	actual, _ := constInterns.LoadOrStore(s, Const{name: s})
	return actual.(Const)
}

func (c Const) String() string { return c.name }

// Name returns the underlying lexeme.
func (c Const) Name() string { return c.name }

// NewVar validates s and returns a Var. The first character must be
// uppercase.
func NewVar(s string) (Var, error) {
	if s == "" {
		return Var{}, fmt.Errorf("%w: %q", ErrInvalidVar, s)
	}
	if !firstRuneUpper(s) {
		return Var{}, fmt.Errorf("%w: %q does not start with an uppercase letter", ErrInvalidVar, s)
	}
	if v, ok := varInterns.Load(s); ok {
		return v.(Var), nil
	}
	v := Var{name: s}
	actual, _ := varInterns.LoadOrStore(s, v)
	return actual.(Var), nil
}

func (v Var) String() string { return v.name }

// Name returns the underlying lexeme.
func (v Var) Name() string { return v.name }

// NewRel validates s and returns a Rel. Relation names follow the same
// non-empty rule as constants; case carries no meaning for a relation name.
func NewRel(s string) (Rel, error) {
	if s == "" {
		return Rel{}, fmt.Errorf("%w: relation name is empty", ErrInvalidRel)
	}
	if v, ok := relInterns.Load(s); ok {
		return v.(Rel), nil
	}
	r := Rel{name: s}
	actual, _ := relInterns.LoadOrStore(s, r)
	return actual.(Rel), nil
}

// MustRel is NewRel without the error return, for call sites that already
// hold a validated Ast.
func MustRel(s string) Rel {
	r, err := NewRel(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Rel) String() string { return r.name }

// Name returns the underlying relation name.
func (r Rel) Name() string { return r.name }

// TermKind discriminates the two closed variants of Term.
type TermKind int

const (
	// TermConst marks a Term holding a Const.
	TermConst TermKind = iota
	// TermVar marks a Term holding a Var.
	TermVar
)

// Term is a tagged sum of Const and Var. There is no third variant, and
// every switch over Kind() must be exhaustive.
type Term struct {
	kind TermKind
	c    Const
	v    Var
}

// ConstTerm wraps a Const as a Term.
func ConstTerm(c Const) Term { return Term{kind: TermConst, c: c} }

// VarTerm wraps a Var as a Term.
func VarTerm(v Var) Term { return Term{kind: TermVar, v: v} }

// Kind reports which variant t holds.
func (t Term) Kind() TermKind { return t.kind }

// IsConst reports whether t holds a Const.
func (t Term) IsConst() bool { return t.kind == TermConst }

// IsVar reports whether t holds a Var.
func (t Term) IsVar() bool { return t.kind == TermVar }

// Const returns the held constant. It panics if t does not hold a Const;
// callers should guard with IsConst.
func (t Term) Const() Const {
	if t.kind != TermConst {
		panic("ast: Term.Const called on a variable term")
	}
	return t.c
}

// Var returns the held variable. It panics if t does not hold a Var;
// callers should guard with IsVar.
func (t Term) Var() Var {
	if t.kind != TermVar {
		panic("ast: Term.Var called on a constant term")
	}
	return t.v
}

func (t Term) String() string {
	switch t.kind {
	case TermConst:
		return t.c.String()
	case TermVar:
		return t.v.String()
	default:
		panic("ast: unreachable term kind")
	}
}

// Atom is a relation symbol applied to a tuple of terms.
type Atom struct {
	Rel   Rel
	Terms []Term
}

func (a Atom) String() string {
	parts := make([]string, len(a.Terms))
	for i, t := range a.Terms {
		parts[i] = t.String()
	}
	return fmt.Sprintf("%s(%s)", a.Rel, strings.Join(parts, ", "))
}

// Ground consumes an atom and returns the equivalent GroundAtom iff every
// term is a Const.
func (a Atom) Ground() (GroundAtom, bool) {
	consts := make([]Const, len(a.Terms))
	for i, t := range a.Terms {
		if !t.IsConst() {
			return GroundAtom{}, false
		}
		consts[i] = t.Const()
	}
	return GroundAtom{Rel: a.Rel, Consts: consts}, true
}

// GroundAtom is an Atom all of whose terms are constants.
type GroundAtom struct {
	Rel    Rel
	Consts []Const
}

func (g GroundAtom) String() string {
	parts := make([]string, len(g.Consts))
	for i, c := range g.Consts {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%s(%s)", g.Rel, strings.Join(parts, ", "))
}

// Rule is head :- body. A Rule with an empty Body is a fact.
type Rule struct {
	Head Atom
	Body []Atom
}

// IsFact reports whether r is a fact (empty body).
func (r Rule) IsFact() bool { return len(r.Body) == 0 }

func (r Rule) String() string {
	if len(r.Body) == 0 {
		return fmt.Sprintf("%s :- .", r.Head)
	}
	parts := make([]string, len(r.Body))
	for i, b := range r.Body {
		parts[i] = b.String()
	}
	return fmt.Sprintf("%s :- %s.", r.Head, strings.Join(parts, ", "))
}

// Ast is an ordered sequence of rules, validated so that every relation is
// used at a single, consistent arity across all of its occurrences (head or
// body, across every rule).
type Ast struct {
	rules   []Rule
	arities map[string]int
}

// NewAst validates arity consistency across rules and returns the Ast. On a
// conflicting relation arity it returns an *ArityError.
func NewAst(rules []Rule) (*Ast, error) {
	a := &Ast{
		rules:   append([]Rule(nil), rules...),
		arities: make(map[string]int),
	}
	for atom := range a.Atoms() {
		name := atom.Rel.Name()
		n := len(atom.Terms)
		if existing, ok := a.arities[name]; ok {
			if existing != n {
				return nil, &ArityError{Relation: name, Arity1: existing, Arity2: n}
			}
			continue
		}
		a.arities[name] = n
	}
	return a, nil
}

// Rules returns the rules of the program, in input order.
func (a *Ast) Rules() []Rule { return a.rules }

// Atoms returns an iterator over every atom in the program — head atom
// first, then body atoms in order, for each rule in input order.
func (a *Ast) Atoms() func(yield func(*Atom) bool) {
	return func(yield func(*Atom) bool) {
		for i := range a.rules {
			r := &a.rules[i]
			if !yield(&r.Head) {
				return
			}
			for j := range r.Body {
				if !yield(&r.Body[j]) {
					return
				}
			}
		}
	}
}

// Arities returns the relation-name-to-arity mapping computed at
// construction time. The returned map must not be mutated by callers.
func (a *Ast) Arities() map[string]int { return a.arities }
