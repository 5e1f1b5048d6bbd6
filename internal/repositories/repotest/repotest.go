// Package repotest opens a migrated test database for repository tests.
package repotest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Kentzo-Omakse/hexim/pkg/database"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// Logger discards everything.
func Logger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// Open connects to TEST_DATABASE_URL and applies the migrations. The test is
// skipped when the variable is unset or -short is given.
func Open(t *testing.T) database.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	conn, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	db := database.NewDatabaseInstance(conn, Logger())
	migrations := database.NewMigrationService(Logger(), database.MigrationConfig{FolderPath: migrationsDir()})
	require.NoError(t, migrations.Migrate(db, "hexim_test"))

	for _, table := range []string{"item_updates", "links", "mapping_fields"} {
		_, err := conn.Exec("TRUNCATE " + table)
		require.NoError(t, err)
	}
	return db
}

func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "db", "pg")
}
