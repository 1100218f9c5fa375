// Package storetest opens throwaway in-memory stores for tests.
package storetest

import (
	"fmt"
	"strings"
	"testing"

	"kasir-sync/internal/database"
	"kasir-sync/internal/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB returns a private in-memory sqlite database closed at test end.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_foreign_keys=on", name, uuid.NewString())
	db, err := database.Open("sqlite", dsn, logger.Silent)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// New returns a migrated Store over a private in-memory database.
func New(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.New(OpenDB(t))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}
