package models

import (
	"strings"
	"time"
)

// CollaboratorPermissions gates what a collaborator may do on an event's guest
// list. Edit and delete are grantable on the vip tier only.
type CollaboratorPermissions struct {
	CanAddGuests     bool `json:"can_add_guests" db:"can_add_guests"`
	CanEditGuests    bool `json:"can_edit_guests" db:"can_edit_guests"`
	CanDeleteGuests  bool `json:"can_delete_guests" db:"can_delete_guests"`
	CanViewFullEvent bool `json:"can_view_full_event" db:"can_view_full_event"`
}

// Collaborator represents a secondary user delegated a sub-quota of an event's
// invites. UsedInvites is maintained by the guest repository with checked
// increments and never exceeds AllocatedInvites.
type Collaborator struct {
	ID               int                     `json:"id" db:"id"`
	EventID          int                     `json:"event_id" db:"event_id"`
	Name             string                  `json:"name" db:"name"`
	Phone            string                  `json:"phone" db:"phone"`
	AllocatedInvites int                     `json:"allocated_invites" db:"allocated_invites"`
	UsedInvites      int                     `json:"used_invites" db:"used_invites"`
	Permissions      CollaboratorPermissions `json:"permissions"`
	AccessToken      string                  `json:"-" db:"access_token"`
	CreatedAt        time.Time               `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at" db:"updated_at"`
}

// CollaboratorCreateRequest represents the data needed to allocate a collaborator
type CollaboratorCreateRequest struct {
	Name             string                  `json:"name" validate:"required,max=120"`
	Phone            string                  `json:"phone" validate:"required"`
	AllocatedInvites int                     `json:"allocated_invites" validate:"required,min=1"`
	Permissions      CollaboratorPermissions `json:"permissions"`
}

// Validate validates collaborator creation data
func (req *CollaboratorCreateRequest) Validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return &ValidationError{Field: "name", Message: "collaborator name is required"}
	}
	if len(req.Name) > 120 {
		return &ValidationError{Field: "name", Message: "collaborator name must be less than 120 characters"}
	}
	if req.AllocatedInvites < 1 {
		return &ValidationError{Field: "allocated_invites", Message: "allocated invites must be at least 1"}
	}
	return ValidateGuestPhone(req.Phone)
}

// RemainingInvites returns how many invites the collaborator can still spend.
func (c *Collaborator) RemainingInvites() int {
	remaining := c.AllocatedInvites - c.UsedInvites
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CanCover returns true if adding a guest with the given accompanying count
// fits inside the remaining quota.
func (c *Collaborator) CanCover(accompanying int) bool {
	return c.UsedInvites+accompanying <= c.AllocatedInvites
}
