// Package migrations hands the lock and task ledger schema to a migration
// runner such as the go-persistence-bun client.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	qrmi "github.com/goliatone/go-qrmi"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	DefaultLabel = "go-qrmi"

	rootDir = "data/sql/migrations"
)

// Set is the ledger schema for one dialect. Postgres files live in the root
// directory and SQLite files in its sqlite/ child.
type Set struct {
	Dialect string
	Dir     string
	FS      fs.FS
	Up      []string
}

// RegisterFunc matches the dialect registration hook of migration runners.
type RegisterFunc func(ctx context.Context, dialect string, label string, fsys fs.FS) error

type config struct {
	label    string
	dialects []string
	root     fs.FS
}

type Option func(*config)

func WithLabel(label string) Option {
	return func(c *config) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			c.label = trimmed
		}
	}
}

// WithDialects limits registration to the named dialects.
func WithDialects(dialects ...string) Option {
	return func(c *config) {
		selected := []string{}
		for _, dialect := range dialects {
			dialect = strings.ToLower(strings.TrimSpace(dialect))
			if dialect != "" && !slices.Contains(selected, dialect) {
				selected = append(selected, dialect)
			}
		}
		if len(selected) > 0 {
			c.dialects = selected
		}
	}
}

// WithRoot reads migrations from fsys instead of the embedded files. fsys
// must contain data/sql/migrations.
func WithRoot(fsys fs.FS) Option {
	return func(c *config) {
		if fsys != nil {
			c.root = fsys
		}
	}
}

// Sets returns the ledger schema of every dialect found under root, or the
// embedded schema when root is nil.
func Sets(root fs.FS) ([]Set, error) {
	if root == nil {
		root = qrmi.GetMigrationsFS()
	}
	layout := []struct {
		dialect string
		dir     string
	}{
		{DialectPostgres, rootDir},
		{DialectSQLite, path.Join(rootDir, "sqlite")},
	}

	sets := make([]Set, 0, len(layout))
	for _, entry := range layout {
		sub, err := fs.Sub(root, entry.dir)
		if err != nil {
			return nil, fmt.Errorf("migrations: open %s: %w", entry.dir, err)
		}
		up, err := fs.Glob(sub, "*.up.sql")
		if err != nil {
			return nil, fmt.Errorf("migrations: list %s: %w", entry.dir, err)
		}
		if len(up) == 0 {
			return nil, fmt.Errorf("migrations: %s has no %s ledger migrations", entry.dir, entry.dialect)
		}
		slices.Sort(up)
		sets = append(sets, Set{Dialect: entry.dialect, Dir: entry.dir, FS: sub, Up: up})
	}
	return sets, nil
}

// Register hands each selected dialect's schema to fn and returns the sets
// it registered.
func Register(ctx context.Context, fn RegisterFunc, opts ...Option) ([]Set, error) {
	if fn == nil {
		return nil, fmt.Errorf("migrations: register function is required")
	}
	cfg := config{
		label:    DefaultLabel,
		dialects: []string{DialectPostgres, DialectSQLite},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	sets, err := Sets(cfg.root)
	if err != nil {
		return nil, err
	}
	registered := make([]Set, 0, len(cfg.dialects))
	for _, set := range sets {
		if !slices.Contains(cfg.dialects, set.Dialect) {
			continue
		}
		if err := fn(ctx, set.Dialect, cfg.label, set.FS); err != nil {
			return registered, fmt.Errorf("migrations: register %s ledger schema: %w", set.Dialect, err)
		}
		registered = append(registered, set)
	}
	if len(registered) == 0 {
		return nil, fmt.Errorf("migrations: no ledger schema for dialects %s", strings.Join(cfg.dialects, ", "))
	}
	return registered, nil
}
