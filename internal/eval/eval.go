// Package eval is the engine: it owns a database connection and a mir.Mir,
// materializes every relation as a table, bulk-loads facts, and drives
// semi-naive fixpoint evaluation by compiling each rule into SQL against
// the embedded relational engine (see Dialect for the two supported
// backends).
package eval

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/codenerd/dlsql/internal/mir"
)

// Eval owns a database connection and a mir.Mir snapshot. Once constructed
// it exclusively owns both: MIR mutations after construction (AddFact,
// ClearFacts) are inert with respect to this Eval, since Eval copies the
// arities it needs and never re-reads the MIR's fact set. A fresh Eval is
// required to evaluate a different fact base.
type Eval struct {
	db      *sql.DB
	dialect Dialect
	m       *mir.Mir
	arities map[string]int
	cache   *stmtCache

	mu  sync.Mutex
	ran bool
}

// New constructs an Eval backed by dialect against a fresh (empty)
// database at path, creating the schema and bulk-loading m's facts.
// path may be ":memory:" for sqlite-family dialects.
func New(ctx context.Context, dialect Dialect, path string, m *mir.Mir) (*Eval, error) {
	db, err := dialect.Open(path)
	if err != nil {
		return nil, err
	}

	e := &Eval{
		db:      db,
		dialect: dialect,
		m:       m,
		arities: m.Arities(),
		cache:   newStmtCache(db, defaultStmtCacheCapacity),
	}

	if err := createSchema(ctx, db, dialect, e.arities); err != nil {
		db.Close()
		return nil, err
	}
	if err := loadFacts(ctx, db, dialect, e.cache, m); err != nil {
		db.Close()
		return nil, err
	}
	return e, nil
}

// Run is RunContext(context.Background()).
func (e *Eval) Run() (int, error) { return e.RunContext(context.Background()) }

// RunContext drives semi-naive fixpoint evaluation to completion and
// returns the iteration count (>= 1) at which no rule produced a new row.
// It may be called at most once per Eval.
func (e *Eval) RunContext(ctx context.Context) (int, error) {
	e.mu.Lock()
	if e.ran {
		e.mu.Unlock()
		return 0, fmt.Errorf("eval: Run already invoked on this Eval")
	}
	e.ran = true
	e.mu.Unlock()

	return runFixpoint(ctx, e.db, e.cache, e.m.Rules())
}

// Model is ModelContext(context.Background()).
func (e *Eval) Model() (Model, error) { return e.ModelContext(context.Background()) }

// ModelContext extracts the minimal Herbrand model as it currently stands
// in the database: every relation named in facts or a rule head appears as
// a key, even with an empty extent.
func (e *Eval) ModelContext(ctx context.Context) (Model, error) {
	return extractModel(ctx, e.db, e.arities)
}

// Mir returns the MIR snapshot this Eval was constructed from.
func (e *Eval) Mir() *mir.Mir { return e.m }

// Close releases the database connection and cached prepared statements.
func (e *Eval) Close() error {
	cacheErr := e.cache.closeAll()
	dbErr := e.db.Close()
	if cacheErr != nil {
		return fmt.Errorf("eval: close statement cache: %w", cacheErr)
	}
	if dbErr != nil {
		return fmt.Errorf("eval: close database: %w", dbErr)
	}
	return nil
}
