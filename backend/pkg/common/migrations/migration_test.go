package migrations

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_index.sql", "0001_create.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "9999_dir.sql"), 0o700))

	files, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_create.sql", "0002_index.sql"}, files)
}

func TestListShippedMigrations(t *testing.T) {
	files, err := List(filepath.Join("..", "..", "..", "migrations", "gateway"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"0001_create_request_audit.sql",
		"0002_widen_dealer_id_add_status.sql",
	}, files)
}

func TestListMissingDir(t *testing.T) {
	_, err := List(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

const (
	createTable = "CREATE TABLE t (id INT);"
	createIndex = "CREATE INDEX t_id ON t (id);"
)

func migrationsDir(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001_create.sql"), []byte(createTable), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0002_index.sql"), []byte(createIndex), 0o600))
	return dir
}

func expectVersionCheck(mock sqlmock.Sqlmock, version string, applied bool) {
	rows := sqlmock.NewRows([]string{"exists"})
	if applied {
		rows.AddRow(1)
	}
	mock.ExpectQuery("SELECT 1 FROM schema_migrations").WithArgs(version).WillReturnRows(rows)
}

func TestRunMigrationsSkipsApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	expectVersionCheck(mock, "0001_create", true)
	expectVersionCheck(mock, "0002_index", false)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(createIndex)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("0002_index").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, RunMigrations(db, migrationsDir(t)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsRollsBackFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	expectVersionCheck(mock, "0001_create", false)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(createTable)).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err = RunMigrations(db, migrationsDir(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration 0001_create.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsTrackingTableError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnError(errors.New("permission denied"))

	err = RunMigrations(db, migrationsDir(t))
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
