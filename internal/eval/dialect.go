package eval

import (
	"context"
	"database/sql"
)

// Dialect abstracts the two identity/autoincrement idioms the evaluator
// supports. The shared query compiler (compile.go) and fixpoint driver
// (fixpoint.go) are identical across both; only schema construction, the
// insert column list, and identity allocation differ. InsertColumns and
// NextID are used for fact loading only: the compiled rule statements list
// "it" and the data columns and leave id to the engine on both dialects.
type Dialect interface {
	// DriverName is the database/sql driver name to pass to sql.Open.
	DriverName() string

	// Open opens a database at path using this dialect's driver, applying
	// whatever connection settings the driver needs (e.g. a single open
	// connection, since the evaluator never runs concurrent transactions
	// against one Eval).
	Open(path string) (*sql.DB, error)

	// CreateTableStmts returns, in execution order, the DDL statements
	// needed to create relation rel of the given arity: a sequence object
	// if this dialect needs one, the table itself, and its indexes.
	CreateTableStmts(rel string, arity int) []string

	// InsertColumns returns the column list for
	// INSERT INTO rel (columns...) VALUES (...), in order. When
	// needsExplicitID is true the first column is an identity value the
	// caller must supply via NextID (Backend A); when false the column
	// list is exactly "it", "x0", ..., "x(arity-1)" and the primary key is
	// auto-assigned (Backend B).
	InsertColumns(rel string, arity int) (columns []string, needsExplicitID bool)

	// NextID allocates the next identity value for rel within tx. Only
	// called when InsertColumns reports needsExplicitID.
	NextID(ctx context.Context, tx *sql.Tx, rel string) (int64, error)
}
