package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/storage/database"
)

const truncateQuery = `TRUNCATE verse_reports, verse_comments, bookmarks, khatm_sessions, khatms,
	verse_timestamps, reciters, verses, surahs, users RESTART IDENTITY CASCADE`

// PrepareDB connects to the test database, migrates it and empties every table.
// The test is skipped when TEST_DATABASE_HOST is not set.
func PrepareDB(t *testing.T) (*core.Config, *sqlx.DB) {
	t.Helper()

	if os.Getenv("TEST_DATABASE_HOST") == "" {
		t.Skip("TEST_DATABASE_HOST not set")
	}
	conf := Config()
	if err := database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	if err = database.Migrate(ctx, db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if _, err = db.ExecContext(ctx, truncateQuery); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return conf, db
}
