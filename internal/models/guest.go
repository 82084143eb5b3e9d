package models

import (
	"strings"
	"time"
)

// RSVPStatus represents a guest's attendance confirmation status
type RSVPStatus string

const (
	RSVPPending  RSVPStatus = "pending"
	RSVPAccepted RSVPStatus = "accepted"
	RSVPDeclined RSVPStatus = "declined"
)

// ActorType identifies who added a guest to the list
type ActorType string

const (
	ActorOwner        ActorType = "owner"
	ActorCollaborator ActorType = "collaborator"
)

// Guest represents one entry on an event's guest list. A guest row consumes
// NumberOfAccompanying invites from its adder's quota when added by a
// collaborator.
type Guest struct {
	ID                  int        `json:"id" db:"id"`
	EventID             int        `json:"event_id" db:"event_id"`
	Name                string     `json:"name" db:"name"`
	Phone               string     `json:"phone" db:"phone"`
	NumberOfAccompanying int       `json:"number_of_accompanying" db:"number_of_accompanying"`
	WhatsappMessageSent bool       `json:"whatsapp_message_sent" db:"whatsapp_message_sent"`
	RSVPStatus          RSVPStatus `json:"rsvp_status" db:"rsvp_status"`
	RSVPAt              *time.Time `json:"rsvp_at,omitempty" db:"rsvp_at"`
	ActuallyAttended    *bool      `json:"actually_attended,omitempty" db:"actually_attended"`
	AddedByType         ActorType  `json:"added_by_type" db:"added_by_type"`
	AddedByCollaborator *int       `json:"added_by_collaborator,omitempty" db:"added_by_collaborator"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// GuestCreateRequest represents the data needed to add a guest
type GuestCreateRequest struct {
	Name                 string `json:"name" validate:"required,max=120"`
	Phone                string `json:"phone" validate:"required"`
	NumberOfAccompanying int    `json:"number_of_accompanying" validate:"required,min=1"`
}

// GuestUpdateRequest represents the mutable guest fields. Nil pointers leave
// the field unchanged.
type GuestUpdateRequest struct {
	Name                 *string `json:"name,omitempty"`
	Phone                *string `json:"phone,omitempty"`
	NumberOfAccompanying *int    `json:"number_of_accompanying,omitempty"`
}

// Validate validates guest creation data
func (req *GuestCreateRequest) Validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return &ValidationError{Field: "name", Message: "guest name is required"}
	}
	if len(req.Name) > 120 {
		return &ValidationError{Field: "name", Message: "guest name must be less than 120 characters"}
	}
	if req.NumberOfAccompanying < 1 {
		return &ValidationError{Field: "number_of_accompanying", Message: "a guest covers at least one invite"}
	}
	return ValidateGuestPhone(req.Phone)
}

// Validate validates guest update data
func (req *GuestUpdateRequest) Validate() error {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return &ValidationError{Field: "name", Message: "guest name cannot be empty"}
	}
	if req.NumberOfAccompanying != nil && *req.NumberOfAccompanying < 1 {
		return &ValidationError{Field: "number_of_accompanying", Message: "a guest covers at least one invite"}
	}
	if req.Phone != nil {
		return ValidateGuestPhone(*req.Phone)
	}
	return nil
}

// ValidateGuestPhone checks that the phone is present and uses an allow-listed
// country code.
func ValidateGuestPhone(phone string) error {
	if strings.TrimSpace(phone) == "" {
		return &ValidationError{Field: "phone", Message: "guest phone is required"}
	}
	if !PhoneCountryAllowed(phone) {
		return &InvalidPhoneError{Phone: phone}
	}
	return nil
}

// InviteWeight returns the number of invites this guest consumes.
func (g *Guest) InviteWeight() int {
	return g.NumberOfAccompanying
}

// AddedByOwner returns true if the event owner added this guest
func (g *Guest) AddedByOwner() bool {
	return g.AddedByType == ActorOwner
}
