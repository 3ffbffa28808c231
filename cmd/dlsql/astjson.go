package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/codenerd/dlsql/internal/ast"
)

// jsonTerm mirrors ast.Term 1:1 for decoding: {"kind":"const"|"var","value":"..."}.
type jsonTerm struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type jsonAtom struct {
	Rel   string     `json:"rel"`
	Terms []jsonTerm `json:"terms"`
}

type jsonRule struct {
	Head jsonAtom   `json:"head"`
	Body []jsonAtom `json:"body"`
}

type jsonProgram struct {
	Rules []jsonRule `json:"rules"`
}

func loadAst(path string) (*ast.Ast, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dlsql: read program %q: %w", path, err)
	}
	var prog jsonProgram
	if err := json.Unmarshal(data, &prog); err != nil {
		return nil, fmt.Errorf("dlsql: decode program %q: %w", path, err)
	}

	rules := make([]ast.Rule, len(prog.Rules))
	for i, jr := range prog.Rules {
		head, err := decodeAtom(jr.Head)
		if err != nil {
			return nil, fmt.Errorf("dlsql: rule %d head: %w", i, err)
		}
		body := make([]ast.Atom, len(jr.Body))
		for j, jb := range jr.Body {
			atom, err := decodeAtom(jb)
			if err != nil {
				return nil, fmt.Errorf("dlsql: rule %d body atom %d: %w", i, j, err)
			}
			body[j] = atom
		}
		rules[i] = ast.Rule{Head: head, Body: body}
	}

	a, err := ast.NewAst(rules)
	if err != nil {
		return nil, fmt.Errorf("dlsql: validate program %q: %w", path, err)
	}
	return a, nil
}

func decodeAtom(ja jsonAtom) (ast.Atom, error) {
	rel, err := ast.NewRel(ja.Rel)
	if err != nil {
		return ast.Atom{}, err
	}
	terms := make([]ast.Term, len(ja.Terms))
	for i, jt := range ja.Terms {
		term, err := decodeTerm(jt)
		if err != nil {
			return ast.Atom{}, fmt.Errorf("term %d: %w", i, err)
		}
		terms[i] = term
	}
	return ast.Atom{Rel: rel, Terms: terms}, nil
}

func decodeTerm(jt jsonTerm) (ast.Term, error) {
	switch jt.Kind {
	case "const":
		c, err := ast.NewConst(jt.Value)
		if err != nil {
			return ast.Term{}, err
		}
		return ast.ConstTerm(c), nil
	case "var":
		v, err := ast.NewVar(jt.Value)
		if err != nil {
			return ast.Term{}, err
		}
		return ast.VarTerm(v), nil
	default:
		return ast.Term{}, fmt.Errorf("dlsql: unknown term kind %q (want \"const\" or \"var\")", jt.Kind)
	}
}

// modelJSON is the shape printed by the "model" subcommand: relation name to
// a list of tuples, each tuple a list of constant lexemes.
type modelJSON map[string][][]string

func encodeModel(model map[string][]ast.GroundAtom) modelJSON {
	out := make(modelJSON, len(model))
	for rel, tuples := range model {
		rows := make([][]string, len(tuples))
		for i, ga := range tuples {
			row := make([]string, len(ga.Consts))
			for j, c := range ga.Consts {
				row[j] = c.Name()
			}
			rows[i] = row
		}
		out[rel] = rows
	}
	return out
}
