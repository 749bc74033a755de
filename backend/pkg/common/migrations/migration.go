package migrations

import (
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/smartfalcon/dealer-gateway/backend/pkg/common/logger"
)

// RunMigrations applies all .sql files in the given directory to the database.
// It creates a 'schema_migrations' table to track applied migrations.
func RunMigrations(db *sql.DB, migrationsDir string) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return errors.Wrap(err, "failed to create schema_migrations table")
	}

	files, err := List(migrationsDir)
	if err != nil {
		return err
	}

	log := logger.Named("migrations")
	for _, file := range files {
		version := strings.TrimSuffix(file, ".sql")

		var exists int
		err := db.QueryRow("SELECT 1 FROM schema_migrations WHERE version = $1", version).Scan(&exists)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return errors.Wrapf(err, "failed to check migration %s", file)
		}

		log.Infof("Applying migration: %s", file)
		content, err := os.ReadFile(filepath.Join(migrationsDir, file))
		if err != nil {
			return errors.Wrapf(err, "failed to read migration file %s", file)
		}

		if err := apply(db, version, string(content)); err != nil {
			return errors.Wrapf(err, "migration %s", file)
		}
	}

	return nil
}

func apply(db *sql.DB, version, content string) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	if _, err := tx.Exec(content); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "failed to execute")
	}

	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "failed to record")
	}

	return errors.Wrap(tx.Commit(), "failed to commit")
}

// List returns the .sql file names in dir in apply order.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read migrations directory")
	}

	var sqlFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			sqlFiles = append(sqlFiles, e.Name())
		}
	}
	sort.Strings(sqlFiles)
	return sqlFiles, nil
}
