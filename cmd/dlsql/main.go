// Command dlsql is a thin CLI harness around internal/eval: it loads a
// JSON-encoded program, evaluates it to fixpoint against an embedded
// relational backend, and prints either the iteration count or the
// resulting model. It contains no Datalog semantics of its own.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/codenerd/dlsql/internal/dlog"
	"github.com/codenerd/dlsql/internal/eval"
	"github.com/codenerd/dlsql/internal/mir"
)

var (
	verbose    bool
	programOpt string
	backendOpt string
	dbOpt      string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dlsql",
	Short: "Semi-naive Datalog-to-SQL evaluator",
	Long: `dlsql compiles a Datalog program's rules into SQL and drives
semi-naive fixpoint evaluation against an embedded relational backend.

Facts and rules are supplied as a JSON-encoded program; the engine owns
the database connection and never parses surface Datalog syntax itself.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("dlsql: initialize logger: %w", err)
		}

		dir, err := os.Getwd()
		if err != nil {
			dir = "."
		}
		if err := dlog.Initialize(filepath.Join(dir, ".dlsql", "logs")); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		if verbose {
			dlog.Enable(true)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		_ = dlog.CloseAll()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate a program to fixpoint and print the iteration count",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, k, err := evaluateProgram(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()
		fmt.Printf("fixpoint reached after %s\n", humanize.Comma(int64(k)))
		return nil
	},
}

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Evaluate a program to fixpoint and print the resulting model as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, _, err := evaluateProgram(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		model, err := e.ModelContext(cmd.Context())
		if err != nil {
			return fmt.Errorf("dlsql: extract model: %w", err)
		}

		total := 0
		for rel, tuples := range model {
			total += len(tuples)
			logger.Debug("relation extracted", zap.String("relation", rel), zap.Int("tuples", len(tuples)))
		}
		logger.Info("model extracted", zap.Int("relations", len(model)), zap.String("total_tuples", humanize.Comma(int64(total))))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(encodeModel(model))
	},
}

// evaluateProgram loads --program, builds the Mir, constructs an Eval against
// the chosen backend and database path, and runs it to fixpoint. The caller
// owns the returned *eval.Eval and must Close it.
func evaluateProgram(ctx context.Context) (*eval.Eval, int, error) {
	if programOpt == "" {
		return nil, 0, fmt.Errorf("dlsql: --program is required")
	}

	a, err := loadAst(programOpt)
	if err != nil {
		return nil, 0, err
	}
	m, err := mir.NewMir(a)
	if err != nil {
		return nil, 0, fmt.Errorf("dlsql: build MIR: %w", err)
	}

	dialect, err := resolveDialect(backendOpt)
	if err != nil {
		return nil, 0, err
	}

	dbPath := dbOpt
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), fmt.Sprintf("dlsql-%s.db", uuid.NewString()))
	}

	logger.Info("evaluating program",
		zap.String("program", programOpt),
		zap.String("backend", backendOpt),
		zap.String("db", dbPath),
		zap.Int("rules", len(m.Rules())),
	)

	e, err := eval.New(ctx, dialect, dbPath, m)
	if err != nil {
		return nil, 0, fmt.Errorf("dlsql: construct evaluator: %w", err)
	}

	k, err := e.RunContext(ctx)
	if err != nil {
		e.Close()
		return nil, 0, fmt.Errorf("dlsql: run fixpoint: %w", err)
	}
	return e, k, nil
}

func resolveDialect(name string) (eval.Dialect, error) {
	switch name {
	case "sqlite3":
		return eval.Sqlite3Dialect{}, nil
	case "modernc", "":
		return eval.ModerncDialect{}, nil
	default:
		return nil, fmt.Errorf("dlsql: unknown backend %q (want \"sqlite3\" or \"modernc\")", name)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&programOpt, "program", "", "Path to a JSON-encoded program (required)")
	rootCmd.PersistentFlags().StringVar(&backendOpt, "backend", "modernc", "Backend dialect: sqlite3 or modernc")
	rootCmd.PersistentFlags().StringVar(&dbOpt, "db", "", "Database file path (default: a temp file named with a random UUID)")

	rootCmd.AddCommand(runCmd, modelCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
