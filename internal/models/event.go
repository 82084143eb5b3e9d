package models

import (
	"strings"
	"time"
)

// EventStatus represents the lifecycle status of an event
type EventStatus string

const (
	EventActive    EventStatus = "active"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// ApprovalStatus represents the admin review state of an event's invitation
// card. Approved and rejected are terminal.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// GuestListState tracks the owner-initiated lock on the guest list. Once
// confirmed, only an admin reopen unlocks it; each reopen increments
// ReopenCount.
type GuestListState struct {
	IsConfirmed bool       `json:"is_confirmed" db:"guest_list_confirmed"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty" db:"guest_list_confirmed_at"`
	ConfirmedBy *int       `json:"confirmed_by,omitempty" db:"guest_list_confirmed_by"`
	ReopenedAt  *time.Time `json:"reopened_at,omitempty" db:"guest_list_reopened_at"`
	ReopenedBy  *int       `json:"reopened_by,omitempty" db:"guest_list_reopened_by"`
	ReopenCount int        `json:"reopen_count" db:"guest_list_reopen_count"`
}

// Event represents one invitation event, materialized from an order item when
// the order completes. Tier and invite count are snapshots taken at purchase
// time and never change with later pricing-table edits.
type Event struct {
	ID          int         `json:"id" db:"id"`
	OrderID     int         `json:"order_id" db:"order_id"`
	OrderItemID int         `json:"order_item_id" db:"order_item_id"`
	OwnerID     int         `json:"owner_id" db:"owner_id"`
	Title       string      `json:"title" db:"title"`
	City        string      `json:"city" db:"city"`
	Date        time.Time   `json:"date" db:"date"`
	PackageTier PackageTier `json:"package_tier" db:"package_tier"`
	InviteCount int         `json:"invite_count" db:"invite_count"`
	Status      EventStatus `json:"status" db:"status"`

	ApprovalStatus  ApprovalStatus `json:"approval_status" db:"approval_status"`
	CardImageKey    string         `json:"card_image_key,omitempty" db:"card_image_key"`
	CardImageURL    string         `json:"card_image_url,omitempty" db:"card_image_url"`
	ApprovalNotes   string         `json:"approval_notes,omitempty" db:"approval_notes"`
	QRReaderURL     string         `json:"qr_reader_url,omitempty" db:"qr_reader_url"`
	RejectionReason string         `json:"rejection_reason,omitempty" db:"rejection_reason"`
	ReviewedAt      *time.Time     `json:"reviewed_at,omitempty" db:"reviewed_at"`
	ReviewedBy      *int           `json:"reviewed_by,omitempty" db:"reviewed_by"`

	GuestList GuestListState `json:"guest_list"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Validate validates the event data
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return &ValidationError{Field: "title", Message: "event title is required"}
	}
	if len(e.Title) > 200 {
		return &ValidationError{Field: "title", Message: "event title must be less than 200 characters"}
	}
	if !ValidTier(e.PackageTier) {
		return &ValidationError{Field: "package_tier", Message: "unknown package tier"}
	}
	if e.InviteCount <= 0 {
		return &ValidationError{Field: "invite_count", Message: "invite count must be positive"}
	}
	if err := validateEventStatus(e.Status); err != nil {
		return err
	}
	return validateApprovalStatus(e.ApprovalStatus)
}

func validateEventStatus(status EventStatus) error {
	switch status {
	case EventActive, EventCompleted, EventCancelled:
		return nil
	default:
		return &ValidationError{Field: "status", Message: "invalid event status"}
	}
}

func validateApprovalStatus(status ApprovalStatus) error {
	switch status {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return nil
	default:
		return &ValidationError{Field: "approval_status", Message: "invalid approval status"}
	}
}

// IsActive returns true if the event is active
func (e *Event) IsActive() bool {
	return e.Status == EventActive
}

// IsPendingApproval returns true if the invitation card has not been reviewed yet
func (e *Event) IsPendingApproval() bool {
	return e.ApprovalStatus == ApprovalPending
}

// IsApproved returns true if the invitation card was approved
func (e *Event) IsApproved() bool {
	return e.ApprovalStatus == ApprovalApproved
}

// IsRejected returns true if the invitation card was rejected
func (e *Event) IsRejected() bool {
	return e.ApprovalStatus == ApprovalRejected
}

// CanBeDecided returns true if approve/reject is still a legal transition
func (e *Event) CanBeDecided() bool {
	return e.ApprovalStatus == ApprovalPending
}

// GuestListLocked returns true if guest mutations are currently forbidden
func (e *Event) GuestListLocked() bool {
	return e.GuestList.IsConfirmed
}

// CanConfirmGuestList returns true if the guest list can be confirmed
func (e *Event) CanConfirmGuestList() bool {
	return !e.GuestList.IsConfirmed
}

// CanReopenGuestList returns true if an admin reopen is a legal transition
func (e *Event) CanReopenGuestList() bool {
	return e.GuestList.IsConfirmed
}

// IsPast returns true if the event date has passed
func (e *Event) IsPast() bool {
	return e.Date.Before(time.Now())
}

// SupportsAttendance returns true if post-event attendance can be recorded.
// Attendance tracking ships with the vip package only.
func (e *Event) SupportsAttendance() bool {
	return e.PackageTier == TierVIP
}
