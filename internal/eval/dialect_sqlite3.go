package eval

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Sqlite3Dialect is Backend A: github.com/mattn/go-sqlite3 (cgo). SQLite
// has no CREATE SEQUENCE, so this dialect emulates one with a per-relation
// counter table (REL_seq) and supplies the identity value explicitly on
// every fact-loading INSERT, reproducing the "Backend A" idiom named by the
// spec — and the DuckDB nextval('REL_seq') idiom this system is descended
// from — on top of a driver that has no native sequence object. The
// rule-derived INSERT ... SELECT statements built by compile.go do not list
// id and do not advance REL_seq; SQLite assigns their id as the rowid.
type Sqlite3Dialect struct{}

func (Sqlite3Dialect) DriverName() string { return "sqlite3" }

func (d Sqlite3Dialect) Open(path string) (*sql.DB, error) {
	db, err := sql.Open(d.DriverName(), path)
	if err != nil {
		return nil, fmt.Errorf("eval: open sqlite3 database: %w", err)
	}
	// The evaluator never issues concurrent writes against one Eval; a
	// single connection avoids SQLITE_BUSY without needing WAL tuning.
	db.SetMaxOpenConns(1)
	return db, nil
}

func seqTable(rel string) string { return rel + "_seq" }

func (Sqlite3Dialect) CreateTableStmts(rel string, arity int) []string {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE %s (value INTEGER NOT NULL)`, seqTable(rel)),
		fmt.Sprintf(`INSERT INTO %s (value) VALUES (0)`, seqTable(rel)),
	}

	cols := ""
	for i := 0; i < arity; i++ {
		cols += fmt.Sprintf(",\n  x%d TEXT NOT NULL", i)
	}
	stmts = append(stmts, fmt.Sprintf(`CREATE TABLE %s (
  id INTEGER PRIMARY KEY,
  it INTEGER NOT NULL%s
)`, rel, cols))

	stmts = append(stmts, fmt.Sprintf(`CREATE INDEX %s_it_idx ON %s(it)`, rel, rel))
	for i := 0; i < arity; i++ {
		stmts = append(stmts, fmt.Sprintf(`CREATE INDEX %s_x%d_idx ON %s(x%d)`, rel, i, rel, i))
	}
	return stmts
}

func (Sqlite3Dialect) InsertColumns(rel string, arity int) ([]string, bool) {
	cols := make([]string, 0, arity+2)
	cols = append(cols, "id", "it")
	for i := 0; i < arity; i++ {
		cols = append(cols, fmt.Sprintf("x%d", i))
	}
	return cols, true
}

// NextID advances rel's sequence-emulation table and returns the new value,
// mirroring DuckDB's nextval('REL_seq') semantics: the increment and the
// read happen in the same transaction as the INSERT that consumes it, so
// two concurrent transactions against this Eval (there are none by design,
// see Open) could not observe the same value.
func (Sqlite3Dialect) NextID(ctx context.Context, tx *sql.Tx, rel string) (int64, error) {
	table := seqTable(rel)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET value = value + 1`, table)); err != nil {
		return 0, fmt.Errorf("eval: advance sequence %s: %w", table, err)
	}
	var v int64
	if err := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT value FROM %s`, table)).Scan(&v); err != nil {
		return 0, fmt.Errorf("eval: read sequence %s: %w", table, err)
	}
	return v, nil
}
