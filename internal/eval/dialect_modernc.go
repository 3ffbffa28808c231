package eval

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// ModerncDialect is Backend B: modernc.org/sqlite (pure Go, no cgo).
// Tables declare "id INTEGER PRIMARY KEY", SQLite's alias for rowid, which
// the engine assigns automatically; INSERTs enumerate only "it" and the
// data columns, exercising the spec's auto-assigned-identity idiom.
type ModerncDialect struct{}

func (ModerncDialect) DriverName() string { return "sqlite" }

func (d ModerncDialect) Open(path string) (*sql.DB, error) {
	db, err := sql.Open(d.DriverName(), path)
	if err != nil {
		return nil, fmt.Errorf("eval: open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func (ModerncDialect) CreateTableStmts(rel string, arity int) []string {
	cols := ""
	for i := 0; i < arity; i++ {
		cols += fmt.Sprintf(",\n  x%d TEXT NOT NULL", i)
	}
	stmts := []string{fmt.Sprintf(`CREATE TABLE %s (
  id INTEGER PRIMARY KEY,
  it INTEGER NOT NULL%s
)`, rel, cols)}

	stmts = append(stmts, fmt.Sprintf(`CREATE INDEX %s_it_idx ON %s(it)`, rel, rel))
	for i := 0; i < arity; i++ {
		stmts = append(stmts, fmt.Sprintf(`CREATE INDEX %s_x%d_idx ON %s(x%d)`, rel, i, rel, i))
	}
	return stmts
}

func (ModerncDialect) InsertColumns(rel string, arity int) ([]string, bool) {
	cols := make([]string, 0, arity+1)
	cols = append(cols, "it")
	for i := 0; i < arity; i++ {
		cols = append(cols, fmt.Sprintf("x%d", i))
	}
	return cols, false
}

// NextID is never called for this dialect: InsertColumns reports
// needsExplicitID=false, so the caller never allocates an identity value.
func (ModerncDialect) NextID(ctx context.Context, tx *sql.Tx, rel string) (int64, error) {
	return 0, fmt.Errorf("eval: NextID is not supported by the modernc dialect (relation %q); identity is auto-assigned", rel)
}
