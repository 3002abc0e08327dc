package store

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Migrate applies the embedded *.up.sql migrations that are not yet recorded
// in schema_migrations. The tracking table uses the golang-migrate layout
// (bigint version + dirty flag) so the two tools are interchangeable. It
// returns the number of migrations applied.
func Migrate(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) (int, error) {
	if _, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version bigint NOT NULL,
			dirty   boolean NOT NULL,
			PRIMARY KEY (version)
		)`); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := migrationFiles(Migrations)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, f := range files {
		ver, err := versionFromFile(f)
		if err != nil {
			return applied, fmt.Errorf("parse version from %s: %w", f, err)
		}

		var exists bool
		if err := db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1 AND dirty = false)`,
			ver,
		).Scan(&exists); err != nil {
			return applied, fmt.Errorf("check %s: %w", f, err)
		}
		if exists {
			logger.Debug("migration already applied", zap.String("file", f))
			continue
		}

		sql, err := fs.ReadFile(Migrations, path.Join("migrations", f))
		if err != nil {
			return applied, fmt.Errorf("read %s: %w", f, err)
		}

		// Mark dirty before applying so a crash is visible.
		if _, err := db.Exec(ctx,
			`INSERT INTO schema_migrations (version, dirty) VALUES ($1, true)
			 ON CONFLICT (version) DO UPDATE SET dirty = true`, ver,
		); err != nil {
			return applied, fmt.Errorf("mark dirty %s: %w", f, err)
		}

		if _, err := db.Exec(ctx, string(sql)); err != nil {
			return applied, fmt.Errorf("apply %s: %w", f, err)
		}

		if _, err := db.Exec(ctx,
			`UPDATE schema_migrations SET dirty = false WHERE version = $1`, ver,
		); err != nil {
			return applied, fmt.Errorf("mark clean %s: %w", f, err)
		}

		logger.Info("migration applied", zap.String("file", f))
		applied++
	}
	return applied, nil
}

// migrationFiles lists the up migrations in fsys in version order.
func migrationFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// versionFromFile extracts the leading integer from a migration filename.
// "001_init.up.sql" → 1
func versionFromFile(filename string) (int64, error) {
	prefix, _, found := strings.Cut(filename, "_")
	if !found {
		return 0, fmt.Errorf("unexpected filename format")
	}
	return strconv.ParseInt(prefix, 10, 64)
}
