// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"fmt"
	"testing"

	"anoa.com/mathter/internal/bootstrap"
	"anoa.com/mathter/pkg/database"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OpenDB returns a migrated in-memory SQLite database private to the test.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.Config(false))
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	// one connection keeps the memory database alive and serialises transactions
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := bootstrap.Migrate(db); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}

	return db
}
