// Package migrations applies the numbered SQL files in ./migrations exactly
// once each, tracked in the schema_migrations table.
package migrations

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/go-sql-driver/mysql" // raw SQL execution needs the driver directly
)

// RunMigrations executes all pending database migrations against the given
// MySQL DSN. The DSN must enable multiStatements.
func RunMigrations(dsn string) error {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := ensureMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := getAppliedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	files, err := getMigrationFiles()
	if err != nil {
		return fmt.Errorf("failed to get migration files: %w", err)
	}

	pending := 0
	for _, filename := range files {
		name := strings.TrimSuffix(filename, ".sql")
		if applied[name] {
			continue
		}

		log.Printf("[MIGRATIONS] Applying %s", name)
		content, err := os.ReadFile(filepath.Join("migrations", filename))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
		if err := recordMigration(db, name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}
		pending++
	}

	if pending == 0 {
		log.Println("[MIGRATIONS] No pending migrations")
	} else {
		log.Printf("[MIGRATIONS] Applied %d migration(s)", pending)
	}
	return nil
}

func ensureMigrationsTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			migration_name VARCHAR(255) UNIQUE NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
	`
	_, err := db.Exec(query)
	return err
}

func getAppliedMigrations(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query("SELECT migration_name FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// getMigrationFiles returns .sql files sorted by their numbered prefix
func getMigrationFiles() ([]string, error) {
	files, err := os.ReadDir("migrations")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if strings.HasSuffix(file.Name(), ".sql") {
			names = append(names, file.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func recordMigration(db *sql.DB, name string) error {
	_, err := db.Exec("INSERT INTO schema_migrations (migration_name) VALUES (?)", name)
	return err
}
