// Package migrate applies plain SQL migration files in lexical order and
// records each applied filename in schema_migrations.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	createLedgerSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	filename TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	appliedSQL = `SELECT filename FROM schema_migrations`
	recordSQL  = `INSERT INTO schema_migrations (filename) VALUES ($1) ON CONFLICT DO NOTHING`
)

// Result reports what a run did.
type Result struct {
	Applied []string
	Skipped []string // empty files, never recorded
}

// Runner applies migrations from files to db.
type Runner struct {
	db    *sql.DB
	files fs.FS
}

// New returns a Runner reading *.sql files from the root of files.
func New(db *sql.DB, files fs.FS) *Runner {
	return &Runner{db: db, files: files}
}

// Files lists the migration filenames in the order they are applied.
func (r *Runner) Files() ([]string, error) {
	entries, err := fs.ReadDir(r.files, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(path.Ext(e.Name()), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Pending returns the migrations not yet recorded in the ledger.
func (r *Runner) Pending(ctx context.Context) ([]string, error) {
	if _, err := r.db.ExecContext(ctx, createLedgerSQL); err != nil {
		return nil, fmt.Errorf("ensure schema_migrations: %w", err)
	}

	files, err := r.Files()
	if err != nil {
		return nil, err
	}
	applied, err := r.applied(ctx)
	if err != nil {
		return nil, err
	}

	pending := make([]string, 0, len(files))
	for _, name := range files {
		if _, ok := applied[name]; !ok {
			pending = append(pending, name)
		}
	}
	return pending, nil
}

// Up applies every pending migration, each in its own transaction. It stops at
// the first failure; migrations applied before it stay committed.
func (r *Runner) Up(ctx context.Context) (Result, error) {
	var res Result

	pending, err := r.Pending(ctx)
	if err != nil {
		return res, err
	}
	if len(pending) == 0 {
		log.Info().Msg("No pending migrations")
		return res, nil
	}
	log.Info().Strs("pending", pending).Msg("Pending migrations")

	for _, name := range pending {
		body, err := fs.ReadFile(r.files, name)
		if err != nil {
			return res, fmt.Errorf("read %s: %w", name, err)
		}
		if strings.TrimSpace(string(body)) == "" {
			log.Info().Str("file", name).Msg("Skipping empty migration")
			res.Skipped = append(res.Skipped, name)
			continue
		}

		if err := r.apply(ctx, name, string(body)); err != nil {
			return res, err
		}
		log.Info().Str("file", name).Msg("Applied migration")
		res.Applied = append(res.Applied, name)
	}
	return res, nil
}

func (r *Runner) apply(ctx context.Context, name, body string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", name, err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, body); err != nil {
		return fmt.Errorf("apply %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, recordSQL, name); err != nil {
		return fmt.Errorf("record %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	tx = nil
	return nil
}

func (r *Runner) applied(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, appliedSQL)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}
