package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"invitation-platform/internal/models"
)

// GuestRepository handles guest data operations. Collaborator invite quotas
// are charged with conditional increments inside the same transaction as the
// guest write, so concurrent adds by the same collaborator cannot overshoot
// the allocation: the increment fails closed and the add is rejected.
type GuestRepository struct {
	db *sql.DB
}

// NewGuestRepository creates a new guest repository
func NewGuestRepository(db *sql.DB) *GuestRepository {
	return &GuestRepository{db: db}
}

const guestColumns = `id, event_id, name, phone, number_of_accompanying, whatsapp_message_sent,
	rsvp_status, rsvp_at, actually_attended, added_by_type, added_by_collaborator, created_at, updated_at`

func scanGuest(row interface{ Scan(...interface{}) error }) (*models.Guest, error) {
	guest := &models.Guest{}
	err := row.Scan(
		&guest.ID,
		&guest.EventID,
		&guest.Name,
		&guest.Phone,
		&guest.NumberOfAccompanying,
		&guest.WhatsappMessageSent,
		&guest.RSVPStatus,
		&guest.RSVPAt,
		&guest.ActuallyAttended,
		&guest.AddedByType,
		&guest.AddedByCollaborator,
		&guest.CreatedAt,
		&guest.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return guest, nil
}

// chargeQuota performs the checked quota increment for a collaborator inside
// tx. delta may be negative to release invites. Returns a QuotaExceededError
// carrying the collaborator's current counters when the increment does not fit.
func chargeQuota(tx *sql.Tx, collaboratorID, delta int) error {
	result, err := tx.Exec(`
		UPDATE collaborators
		SET used_invites = used_invites + $2, updated_at = $3
		WHERE id = $1
			AND used_invites + $2 >= 0
			AND used_invites + $2 <= allocated_invites`,
		collaboratorID, delta, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update collaborator quota: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var allocated, used int
	err = tx.QueryRow("SELECT allocated_invites, used_invites FROM collaborators WHERE id = $1",
		collaboratorID).Scan(&allocated, &used)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.ErrCollaboratorNotFound
		}
		return fmt.Errorf("failed to read collaborator quota: %w", err)
	}

	return &models.QuotaExceededError{Allocated: allocated, Used: used, Requested: delta}
}

// Create appends a guest, charging the adding collaborator's quota when
// applicable.
func (r *GuestRepository) Create(guest *models.Guest) (*models.Guest, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if guest.AddedByType == models.ActorCollaborator && guest.AddedByCollaborator != nil {
		if err := chargeQuota(tx, *guest.AddedByCollaborator, guest.NumberOfAccompanying); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	created := &models.Guest{}
	err = tx.QueryRow(fmt.Sprintf(`
		INSERT INTO guests (event_id, name, phone, number_of_accompanying, rsvp_status, added_by_type, added_by_collaborator, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING %s`, guestColumns),
		guest.EventID,
		guest.Name,
		guest.Phone,
		guest.NumberOfAccompanying,
		models.RSVPPending,
		guest.AddedByType,
		guest.AddedByCollaborator,
		now,
	).Scan(
		&created.ID,
		&created.EventID,
		&created.Name,
		&created.Phone,
		&created.NumberOfAccompanying,
		&created.WhatsappMessageSent,
		&created.RSVPStatus,
		&created.RSVPAt,
		&created.ActuallyAttended,
		&created.AddedByType,
		&created.AddedByCollaborator,
		&created.CreatedAt,
		&created.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create guest: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit guest creation: %w", err)
	}

	return created, nil
}

// GetByID retrieves a guest by ID
func (r *GuestRepository) GetByID(id int) (*models.Guest, error) {
	query := fmt.Sprintf("SELECT %s FROM guests WHERE id = $1", guestColumns)
	guest, err := scanGuest(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrGuestNotFound
		}
		return nil, fmt.Errorf("failed to get guest: %w", err)
	}
	return guest, nil
}

// GetByEvent retrieves all guests for an event
func (r *GuestRepository) GetByEvent(eventID int) ([]*models.Guest, error) {
	query := fmt.Sprintf("SELECT %s FROM guests WHERE event_id = $1 ORDER BY id", guestColumns)
	rows, err := r.db.Query(query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event guests: %w", err)
	}
	defer rows.Close()

	var guests []*models.Guest
	for rows.Next() {
		guest, err := scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		guests = append(guests, guest)
	}

	return guests, rows.Err()
}

// CountByEvent returns the number of guest entries for an event
func (r *GuestRepository) CountByEvent(eventID int) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM guests WHERE event_id = $1", eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count guests: %w", err)
	}
	return count, nil
}

// Update applies an update request, re-charging the collaborator quota when
// the accompanying count changes for a collaborator-added guest.
func (r *GuestRepository) Update(id int, req *models.GuestUpdateRequest) (*models.Guest, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf("SELECT %s FROM guests WHERE id = $1 FOR UPDATE", guestColumns)
	current, err := scanGuest(tx.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrGuestNotFound
		}
		return nil, fmt.Errorf("failed to get guest: %w", err)
	}

	name := current.Name
	if req.Name != nil {
		name = *req.Name
	}
	phone := current.Phone
	if req.Phone != nil {
		phone = *req.Phone
	}
	accompanying := current.NumberOfAccompanying
	if req.NumberOfAccompanying != nil {
		accompanying = *req.NumberOfAccompanying
	}

	delta := accompanying - current.NumberOfAccompanying
	if delta != 0 && current.AddedByType == models.ActorCollaborator && current.AddedByCollaborator != nil {
		if err := chargeQuota(tx, *current.AddedByCollaborator, delta); err != nil {
			return nil, err
		}
	}

	updated := &models.Guest{}
	err = tx.QueryRow(fmt.Sprintf(`
		UPDATE guests
		SET name = $2, phone = $3, number_of_accompanying = $4, updated_at = $5
		WHERE id = $1
		RETURNING %s`, guestColumns),
		id, name, phone, accompanying, time.Now(),
	).Scan(
		&updated.ID,
		&updated.EventID,
		&updated.Name,
		&updated.Phone,
		&updated.NumberOfAccompanying,
		&updated.WhatsappMessageSent,
		&updated.RSVPStatus,
		&updated.RSVPAt,
		&updated.ActuallyAttended,
		&updated.AddedByType,
		&updated.AddedByCollaborator,
		&updated.CreatedAt,
		&updated.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update guest: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit guest update: %w", err)
	}

	return updated, nil
}

// Delete removes a guest and releases any collaborator quota it consumed
func (r *GuestRepository) Delete(id int) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var accompanying int
	var addedByType models.ActorType
	var collaboratorID *int
	err = tx.QueryRow(`
		SELECT number_of_accompanying, added_by_type, added_by_collaborator
		FROM guests WHERE id = $1 FOR UPDATE`, id).Scan(&accompanying, &addedByType, &collaboratorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.ErrGuestNotFound
		}
		return fmt.Errorf("failed to get guest: %w", err)
	}

	if addedByType == models.ActorCollaborator && collaboratorID != nil {
		if err := chargeQuota(tx, *collaboratorID, -accompanying); err != nil {
			return err
		}
	}

	if _, err := tx.Exec("DELETE FROM guests WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete guest: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit guest deletion: %w", err)
	}

	return nil
}

// MarkWhatsappSent flags a guest as having received the invitation message
func (r *GuestRepository) MarkWhatsappSent(id int) error {
	result, err := r.db.Exec(`UPDATE guests SET whatsapp_message_sent = TRUE, updated_at = $2 WHERE id = $1`,
		id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark guest message sent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrGuestNotFound
	}
	return nil
}

// UpdateRSVP records a guest's RSVP response
func (r *GuestRepository) UpdateRSVP(id int, status models.RSVPStatus) error {
	result, err := r.db.Exec(`UPDATE guests SET rsvp_status = $2, rsvp_at = $3, updated_at = $3 WHERE id = $1`,
		id, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update guest rsvp: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrGuestNotFound
	}
	return nil
}

// RecordAttendance stores post-event attendance for a guest
func (r *GuestRepository) RecordAttendance(id int, attended bool) error {
	result, err := r.db.Exec(`UPDATE guests SET actually_attended = $2, updated_at = $3 WHERE id = $1`,
		id, attended, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record attendance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrGuestNotFound
	}
	return nil
}

// GetUnsentByEvent retrieves guests who have not been sent a WhatsApp invite yet
func (r *GuestRepository) GetUnsentByEvent(eventID int) ([]*models.Guest, error) {
	query := fmt.Sprintf("SELECT %s FROM guests WHERE event_id = $1 AND whatsapp_message_sent = FALSE ORDER BY id", guestColumns)
	rows, err := r.db.Query(query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unsent guests: %w", err)
	}
	defer rows.Close()

	var guests []*models.Guest
	for rows.Next() {
		guest, err := scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		guests = append(guests, guest)
	}

	return guests, rows.Err()
}
