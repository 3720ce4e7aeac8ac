package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/coursekit/coursekit-lms/internal/db"
)

var testDBSeq atomic.Int64

// NewTestDB opens an in-memory SQLite database with the full schema applied.
// Each call gets its own database (a plain :memory: DSN would hand every
// pooled connection a fresh empty one). Closed when the test completes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBSeq.Add(1))
	database, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}
