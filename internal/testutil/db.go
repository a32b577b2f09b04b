package testutil

import (
	"testing"

	authdomain "mailboard-backend/internal/auth/domain"
	emaildomain "mailboard-backend/internal/email/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens an in-memory SQLite database with every schema migrated.
// A single connection keeps all statements on the same in-memory database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&authdomain.User{}, &authdomain.FCMToken{}, &emaildomain.KanbanColumn{}, &emaildomain.EmailPosition{}, &emaildomain.SnoozeRecord{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}
