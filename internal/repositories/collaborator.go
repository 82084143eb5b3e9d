package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"invitation-platform/internal/models"
)

// CollaboratorRepository handles collaborator data operations
type CollaboratorRepository struct {
	db *sql.DB
}

// NewCollaboratorRepository creates a new collaborator repository
func NewCollaboratorRepository(db *sql.DB) *CollaboratorRepository {
	return &CollaboratorRepository{db: db}
}

const collaboratorColumns = `id, event_id, name, phone, allocated_invites, used_invites,
	can_add_guests, can_edit_guests, can_delete_guests, can_view_full_event, access_token, created_at, updated_at`

func scanCollaborator(row interface{ Scan(...interface{}) error }) (*models.Collaborator, error) {
	c := &models.Collaborator{}
	err := row.Scan(
		&c.ID,
		&c.EventID,
		&c.Name,
		&c.Phone,
		&c.AllocatedInvites,
		&c.UsedInvites,
		&c.Permissions.CanAddGuests,
		&c.Permissions.CanEditGuests,
		&c.Permissions.CanDeleteGuests,
		&c.Permissions.CanViewFullEvent,
		&c.AccessToken,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Allocate inserts a collaborator after checking that the tier's collaborator
// cap and the event's cumulative invite quota both hold. The event row is
// locked first, so concurrent allocations for the same event serialize and the
// aggregate each one reads includes every earlier commit. Without the lock,
// two transactions under READ COMMITTED would both read the pre-insert sum and
// jointly exceed the event's invite count.
func (r *CollaboratorRepository) Allocate(event *models.Event, req *models.CollaboratorCreateRequest, maxCollaborators int, accessToken string) (*models.Collaborator, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lockedID int
	err = tx.QueryRow("SELECT id FROM events WHERE id = $1 FOR UPDATE", event.ID).Scan(&lockedID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to lock event for allocation: %w", err)
	}

	var count, allocated int
	err = tx.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(allocated_invites), 0)
		FROM collaborators WHERE event_id = $1`, event.ID).Scan(&count, &allocated)
	if err != nil {
		return nil, fmt.Errorf("failed to read collaborator totals: %w", err)
	}

	if count >= maxCollaborators {
		return nil, &models.CollaboratorLimitError{
			Tier:    event.PackageTier,
			Limit:   maxCollaborators,
			Current: count,
		}
	}

	if allocated+req.AllocatedInvites > event.InviteCount {
		return nil, &models.QuotaExceededError{
			Allocated: event.InviteCount,
			Used:      allocated,
			Requested: req.AllocatedInvites,
		}
	}

	now := time.Now()
	created := &models.Collaborator{}
	err = tx.QueryRow(fmt.Sprintf(`
		INSERT INTO collaborators (event_id, name, phone, allocated_invites, can_add_guests, can_edit_guests,
			can_delete_guests, can_view_full_event, access_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING %s`, collaboratorColumns),
		event.ID,
		req.Name,
		req.Phone,
		req.AllocatedInvites,
		req.Permissions.CanAddGuests,
		req.Permissions.CanEditGuests,
		req.Permissions.CanDeleteGuests,
		req.Permissions.CanViewFullEvent,
		accessToken,
		now,
	).Scan(
		&created.ID,
		&created.EventID,
		&created.Name,
		&created.Phone,
		&created.AllocatedInvites,
		&created.UsedInvites,
		&created.Permissions.CanAddGuests,
		&created.Permissions.CanEditGuests,
		&created.Permissions.CanDeleteGuests,
		&created.Permissions.CanViewFullEvent,
		&created.AccessToken,
		&created.CreatedAt,
		&created.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collaborator: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit collaborator allocation: %w", err)
	}

	return created, nil
}

// GetByID retrieves a collaborator by ID
func (r *CollaboratorRepository) GetByID(id int) (*models.Collaborator, error) {
	query := fmt.Sprintf("SELECT %s FROM collaborators WHERE id = $1", collaboratorColumns)
	c, err := scanCollaborator(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrCollaboratorNotFound
		}
		return nil, fmt.Errorf("failed to get collaborator: %w", err)
	}
	return c, nil
}

// GetByEvent retrieves all collaborators for an event
func (r *CollaboratorRepository) GetByEvent(eventID int) ([]*models.Collaborator, error) {
	query := fmt.Sprintf("SELECT %s FROM collaborators WHERE event_id = $1 ORDER BY id", collaboratorColumns)
	rows, err := r.db.Query(query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event collaborators: %w", err)
	}
	defer rows.Close()

	var collaborators []*models.Collaborator
	for rows.Next() {
		c, err := scanCollaborator(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collaborator: %w", err)
		}
		collaborators = append(collaborators, c)
	}

	return collaborators, rows.Err()
}

// GetByAccessToken retrieves a collaborator by its access token
func (r *CollaboratorRepository) GetByAccessToken(token string) (*models.Collaborator, error) {
	query := fmt.Sprintf("SELECT %s FROM collaborators WHERE access_token = $1", collaboratorColumns)
	c, err := scanCollaborator(r.db.QueryRow(query, token))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrCollaboratorNotFound
		}
		return nil, fmt.Errorf("failed to get collaborator by token: %w", err)
	}
	return c, nil
}

// Delete removes a collaborator. Guests the collaborator added remain on the
// event; their added_by reference is detached first.
func (r *CollaboratorRepository) Delete(id int) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		UPDATE guests SET added_by_type = $2, added_by_collaborator = NULL
		WHERE added_by_collaborator = $1`, id, models.ActorOwner); err != nil {
		return fmt.Errorf("failed to detach collaborator guests: %w", err)
	}

	result, err := tx.Exec("DELETE FROM collaborators WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete collaborator: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrCollaboratorNotFound
	}

	return tx.Commit()
}
