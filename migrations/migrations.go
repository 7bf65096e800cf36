// Package migrations applies the embedded schema files in order.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

//go:embed *.sql
var files embed.FS

type Migration struct {
	Version string
	SQL     string
}

type Status struct {
	Version   string     `db:"version"`
	AppliedAt *time.Time `db:"applied_at"`
}

type Migrator struct {
	db     *sqlx.DB
	source fs.FS
	logger zerolog.Logger
}

func NewMigrator(db *sqlx.DB, logger zerolog.Logger) *Migrator {
	return &Migrator{db: db, source: files, logger: logger}
}

// Load returns the migrations found in source sorted by file name.
func Load(source fs.FS) ([]Migration, error) {
	names, err := fs.Glob(source, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	migrations := make([]Migration, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(source, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		migrations = append(migrations, Migration{
			Version: strings.TrimSuffix(name, ".sql"),
			SQL:     string(data),
		})
	}
	return migrations, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func (m *Migrator) applied(ctx context.Context) (map[string]time.Time, error) {
	var rows []struct {
		Version   string    `db:"version"`
		AppliedAt time.Time `db:"applied_at"`
	}
	if err := m.db.SelectContext(ctx, &rows, `SELECT version, applied_at FROM schema_migrations`); err != nil {
		return nil, err
	}
	out := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		out[r.Version] = r.AppliedAt
	}
	return out, nil
}

// Up applies every migration not yet recorded, each in its own transaction.
// It returns the versions applied.
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	done, err := m.applied(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	all, err := Load(m.source)
	if err != nil {
		return nil, err
	}

	var versions []string
	for _, mig := range all {
		if _, ok := done[mig.Version]; ok {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return versions, fmt.Errorf("migration %s: %w", mig.Version, err)
		}
		m.logger.Info().Str("version", mig.Version).Msg("migration applied")
		versions = append(versions, mig.Version)
	}
	return versions, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, mig.Version); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Status lists every known migration with its applied time, nil when pending.
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	all, err := Load(m.source)
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(all))
	for _, mig := range all {
		s := Status{Version: mig.Version}
		if at, ok := done[mig.Version]; ok {
			at := at
			s.AppliedAt = &at
		}
		out = append(out, s)
	}
	return out, nil
}
