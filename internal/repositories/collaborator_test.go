package repositories

import (
	"database/sql"
	"os"
	"strings"
	"sync"
	"testing"

	"invitation-platform/internal/models"

	_ "github.com/lib/pq"
)

// setupAllocateTestDB connects to the database named by DATABASE_URL and
// builds an isolated schema with just the tables Allocate touches. The schema
// is pinned through the connection options so every pooled connection resolves
// the unqualified table names there. Skips when no database is reachable.
func setupAllocateTestDB(t *testing.T) *sql.DB {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("Database tests require DATABASE_URL")
	}
	sep := "?"
	if strings.Contains(dbURL, "?") {
		sep = "&"
	}

	db, err := sql.Open("postgres", dbURL+sep+"options=-csearch_path%3Dallocate_test")
	if err != nil {
		t.Skipf("Failed to connect to test database: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("Failed to ping test database: %v", err)
	}

	stmts := []string{
		"DROP SCHEMA IF EXISTS allocate_test CASCADE",
		"CREATE SCHEMA allocate_test",
		`CREATE TABLE events (
			id SERIAL PRIMARY KEY,
			invite_count INTEGER NOT NULL CHECK (invite_count > 0)
		)`,
		`CREATE TABLE collaborators (
			id SERIAL PRIMARY KEY,
			event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			name VARCHAR(120) NOT NULL,
			phone VARCHAR(32) NOT NULL,
			allocated_invites INTEGER NOT NULL CHECK (allocated_invites > 0),
			used_invites INTEGER NOT NULL DEFAULT 0,
			can_add_guests BOOLEAN NOT NULL DEFAULT TRUE,
			can_edit_guests BOOLEAN NOT NULL DEFAULT FALSE,
			can_delete_guests BOOLEAN NOT NULL DEFAULT FALSE,
			can_view_full_event BOOLEAN NOT NULL DEFAULT FALSE,
			access_token VARCHAR(512) NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed to set up test schema: %v", err)
		}
	}

	t.Cleanup(func() {
		db.Exec("DROP SCHEMA IF EXISTS allocate_test CASCADE")
		db.Close()
	})
	return db
}

func insertAllocateTestEvent(t *testing.T, db *sql.DB, inviteCount int) *models.Event {
	var id int
	err := db.QueryRow(
		"INSERT INTO events (invite_count) VALUES ($1) RETURNING id", inviteCount,
	).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to insert test event: %v", err)
	}
	return &models.Event{ID: id, PackageTier: models.TierVIP, InviteCount: inviteCount}
}

func allocateTestRequest(invites int) *models.CollaboratorCreateRequest {
	return &models.CollaboratorCreateRequest{
		Name:             "Sara",
		Phone:            "+966501112233",
		AllocatedInvites: invites,
		Permissions:      models.CollaboratorPermissions{CanAddGuests: true},
	}
}

// Two simultaneous allocations that each fit on their own but not together
// must not both commit. The event-row lock serializes them; the loser sees the
// winner's insert and gets a quota error.
func TestCollaboratorRepository_Allocate_ConcurrentQuota(t *testing.T) {
	db := setupAllocateTestDB(t)
	repo := NewCollaboratorRepository(db)

	for round := 0; round < 5; round++ {
		event := insertAllocateTestEvent(t, db, 100)

		var wg sync.WaitGroup
		results := make([]error, 2)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, results[i] = repo.Allocate(event, allocateTestRequest(80), 10, "")
			}(i)
		}
		wg.Wait()

		var failures int
		for _, err := range results {
			if err == nil {
				continue
			}
			failures++
			if _, ok := err.(*models.QuotaExceededError); !ok {
				t.Errorf("round %d: unexpected error type: %v", round, err)
			}
		}
		if failures != 1 {
			t.Errorf("round %d: want exactly 1 rejected allocation, got %d", round, failures)
		}

		var allocated int
		err := db.QueryRow(
			"SELECT COALESCE(SUM(allocated_invites), 0) FROM collaborators WHERE event_id = $1",
			event.ID,
		).Scan(&allocated)
		if err != nil {
			t.Fatalf("Failed to read allocation total: %v", err)
		}
		if allocated > event.InviteCount {
			t.Errorf("round %d: allocated %d exceeds invite count %d", round, allocated, event.InviteCount)
		}
	}
}

func TestCollaboratorRepository_Allocate_CollaboratorCap(t *testing.T) {
	db := setupAllocateTestDB(t)
	repo := NewCollaboratorRepository(db)
	event := insertAllocateTestEvent(t, db, 100)

	for i := 0; i < 2; i++ {
		if _, err := repo.Allocate(event, allocateTestRequest(10), 2, ""); err != nil {
			t.Fatalf("allocation %d failed: %v", i, err)
		}
	}

	_, err := repo.Allocate(event, allocateTestRequest(10), 2, "")
	limitErr, ok := err.(*models.CollaboratorLimitError)
	if !ok {
		t.Fatalf("expected CollaboratorLimitError, got %v", err)
	}
	if limitErr.Limit != 2 || limitErr.Current != 2 {
		t.Errorf("unexpected limit error: %+v", limitErr)
	}
}

func TestCollaboratorRepository_Allocate_MissingEvent(t *testing.T) {
	db := setupAllocateTestDB(t)
	repo := NewCollaboratorRepository(db)

	missing := &models.Event{ID: 9999, PackageTier: models.TierVIP, InviteCount: 100}
	if _, err := repo.Allocate(missing, allocateTestRequest(10), 10, ""); err != models.ErrEventNotFound {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}
