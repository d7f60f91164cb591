// Package testutil provides test utilities for shelfwise: in-memory
// databases and fluent builders for feedback and issue fixtures.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/shelfwise/internal/service"
	"github.com/Veraticus/shelfwise/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a new migrated in-memory database, optionally seeded
// with the given submissions. It is closed automatically when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		testutil.NewSubmission(t).WithIssue("wifi broken", "Network & IT").Build(),
//	)
func SetupTestDB(t *testing.T, seed ...Submission) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	db := &TestDB{Storage: store, t: t}
	db.Seed(seed...)
	return db
}

// Seed saves submissions or fails the test.
func (db *TestDB) Seed(submissions ...Submission) {
	db.t.Helper()
	ctx := context.Background()
	for _, s := range submissions {
		if err := db.Storage.SaveSubmission(ctx, s.Feedback, s.Issue, 0); err != nil {
			db.t.Fatalf("failed to seed submission %s: %v", s.Feedback.ID, err)
		}
	}
}
