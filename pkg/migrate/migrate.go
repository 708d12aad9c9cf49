package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is the on-disk location used by the create command.
const DefaultDir = "pkg/migrate/migrations"

const embeddedDir = "migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Runner applies the embedded migration set against one database.
type Runner struct {
	db      *sql.DB
	dialect string
}

// NewRunner binds the embedded migrations to db. Dialect follows goose naming
// ("postgres", "sqlite3").
func NewRunner(db *sql.DB, dialect string) (*Runner, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if dialect == "" {
		dialect = "postgres"
	}
	return &Runner{db: db, dialect: dialect}, nil
}

func (r *Runner) prepare() error {
	goose.SetBaseFS(embedded)
	if err := goose.SetDialect(r.dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

// Run executes a goose command such as up, down, status or redo.
func (r *Runner) Run(ctx context.Context, command string, args ...string) error {
	if err := r.prepare(); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, r.db, embeddedDir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// Version reports the currently applied migration version.
func (r *Runner) Version() (int64, error) {
	if err := r.prepare(); err != nil {
		return 0, err
	}
	v, err := goose.GetDBVersion(r.db)
	if err != nil {
		return 0, fmt.Errorf("get db version: %w", err)
	}
	return v, nil
}

// MigrateTo moves the schema up or down until it sits at target.
func (r *Runner) MigrateTo(ctx context.Context, target string) error {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", target, err)
	}
	current, err := r.Version()
	if err != nil {
		return err
	}

	switch {
	case current == version:
		return nil
	case current < version:
		if err := goose.UpToContext(ctx, r.db, embeddedDir, version); err != nil {
			return fmt.Errorf("goose up-to %d: %w", version, err)
		}
	default:
		if err := goose.DownToContext(ctx, r.db, embeddedDir, version); err != nil {
			return fmt.Errorf("goose down-to %d: %w", version, err)
		}
	}
	return nil
}
