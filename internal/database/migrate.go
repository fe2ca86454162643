package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed migrations/mysql/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

type migration struct {
	Name    string
	Content string
}

// Migrate applies every pending migration for the given driver ("mysql" or
// "sqlite3") in name order. Applied migrations are tracked in the
// schema_migrations table, so calling Migrate repeatedly is safe.
func Migrate(ctx context.Context, db *sql.DB, driver string) ([]string, error) {
	dir, err := migrationDir(driver)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name VARCHAR(255) NOT NULL PRIMARY KEY,
		applied_at VARCHAR(64) NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("creating migrations table: %w", err)
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}
	pending, err := migrationFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migration files: %w", err)
	}

	var ran []string
	for _, m := range pending {
		if applied[m.Name] {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return ran, fmt.Errorf("applying migration %s: %w", m.Name, err)
		}
		ran = append(ran, m.Name)
	}
	return ran, nil
}

func migrationDir(driver string) (string, error) {
	switch driver {
	case "mysql":
		return "migrations/mysql", nil
	case "sqlite3":
		return "migrations/sqlite", nil
	}
	return "", fmt.Errorf("no migrations for driver %q", driver)
}

func appliedMigrations(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

func migrationFiles(dir string) ([]migration, error) {
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return nil, err
	}
	var out []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, migration{Name: e.Name(), Content: string(b)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// apply runs one migration file statement by statement and records it.
// MySQL commits DDL implicitly, so a failure part-way leaves earlier
// statements applied; every statement uses IF NOT EXISTS to make a rerun safe.
func apply(ctx context.Context, db *sql.DB, m migration) error {
	for _, stmt := range splitStatements(m.Content) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO schema_migrations (name, applied_at) VALUES (?, CURRENT_TIMESTAMP)`, m.Name)
	return err
}

func splitStatements(sqlText string) []string {
	var out []string
	for _, part := range strings.Split(sqlText, ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
