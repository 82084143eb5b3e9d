package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"invitation-platform/internal/models"
)

// EventRepository handles event data operations
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, order_id, order_item_id, owner_id, title, city, date, package_tier, invite_count,
	status, approval_status, card_image_key, card_image_url, approval_notes, qr_reader_url, rejection_reason,
	reviewed_at, reviewed_by, guest_list_confirmed, guest_list_confirmed_at, guest_list_confirmed_by,
	guest_list_reopened_at, guest_list_reopened_by, guest_list_reopen_count, created_at, updated_at`

func scanEvent(row interface{ Scan(...interface{}) error }) (*models.Event, error) {
	event := &models.Event{}
	err := row.Scan(
		&event.ID,
		&event.OrderID,
		&event.OrderItemID,
		&event.OwnerID,
		&event.Title,
		&event.City,
		&event.Date,
		&event.PackageTier,
		&event.InviteCount,
		&event.Status,
		&event.ApprovalStatus,
		&event.CardImageKey,
		&event.CardImageURL,
		&event.ApprovalNotes,
		&event.QRReaderURL,
		&event.RejectionReason,
		&event.ReviewedAt,
		&event.ReviewedBy,
		&event.GuestList.IsConfirmed,
		&event.GuestList.ConfirmedAt,
		&event.GuestList.ConfirmedBy,
		&event.GuestList.ReopenedAt,
		&event.GuestList.ReopenedBy,
		&event.GuestList.ReopenCount,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return event, nil
}

// GetByID retrieves an event by ID
func (r *EventRepository) GetByID(id int) (*models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE id = $1", eventColumns)
	event, err := scanEvent(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

// GetByOrder retrieves all events materialized from an order
func (r *EventRepository) GetByOrder(orderID int) ([]*models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE order_id = $1 ORDER BY order_item_id", eventColumns)
	return r.queryEvents(query, orderID)
}

// GetByOwner retrieves all events owned by a user
func (r *EventRepository) GetByOwner(ownerID int) ([]*models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE owner_id = $1 ORDER BY date", eventColumns)
	return r.queryEvents(query, ownerID)
}

// GetPendingApproval retrieves events awaiting an admin card review
func (r *EventRepository) GetPendingApproval(limit, offset int) ([]*models.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM events WHERE approval_status = $1 ORDER BY created_at LIMIT $2 OFFSET $3`, eventColumns)
	return r.queryEvents(query, models.ApprovalPending, limit, offset)
}

func (r *EventRepository) queryEvents(query string, args ...interface{}) ([]*models.Event, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// Approve records an admin approval of the invitation card. The write is
// conditional on the pending approval status; applied is false when the event
// was already decided.
func (r *EventRepository) Approve(id int, cardImageKey, cardImageURL, notes, qrReaderURL string, reviewerID int) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE events
		SET approval_status = $2, card_image_key = $3, card_image_url = $4, approval_notes = $5,
			qr_reader_url = $6, reviewed_at = $7, reviewed_by = $8, updated_at = $7
		WHERE id = $1 AND approval_status = $9`,
		id, models.ApprovalApproved, cardImageKey, cardImageURL, notes,
		qrReaderURL, time.Now(), reviewerID, models.ApprovalPending)
	if err != nil {
		return false, fmt.Errorf("failed to approve event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Reject records an admin rejection of the invitation card, conditional on the
// pending approval status.
func (r *EventRepository) Reject(id int, reason string, reviewerID int) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE events
		SET approval_status = $2, rejection_reason = $3, reviewed_at = $4, reviewed_by = $5, updated_at = $4
		WHERE id = $1 AND approval_status = $6`,
		id, models.ApprovalRejected, reason, time.Now(), reviewerID, models.ApprovalPending)
	if err != nil {
		return false, fmt.Errorf("failed to reject event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ConfirmGuestList locks the guest list. The write is conditional on the list
// being unconfirmed and non-empty, so concurrent confirms or a confirm racing
// a guest delete cannot lock an empty list.
func (r *EventRepository) ConfirmGuestList(id int, confirmedBy int) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE events
		SET guest_list_confirmed = TRUE, guest_list_confirmed_at = $2, guest_list_confirmed_by = $3, updated_at = $2
		WHERE id = $1
			AND guest_list_confirmed = FALSE
			AND EXISTS (SELECT 1 FROM guests WHERE event_id = $1)`,
		id, time.Now(), confirmedBy)
	if err != nil {
		return false, fmt.Errorf("failed to confirm guest list: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ReopenGuestList unlocks a confirmed guest list and increments the reopen
// counter. Conditional on the list being confirmed.
func (r *EventRepository) ReopenGuestList(id int, reopenedBy int) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE events
		SET guest_list_confirmed = FALSE, guest_list_reopened_at = $2, guest_list_reopened_by = $3,
			guest_list_reopen_count = guest_list_reopen_count + 1, updated_at = $2
		WHERE id = $1 AND guest_list_confirmed = TRUE`,
		id, time.Now(), reopenedBy)
	if err != nil {
		return false, fmt.Errorf("failed to reopen guest list: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// UpdateStatus updates the event lifecycle status
func (r *EventRepository) UpdateStatus(id int, status models.EventStatus) error {
	result, err := r.db.Exec(`UPDATE events SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrEventNotFound
	}
	return nil
}
