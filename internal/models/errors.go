package models

import (
	"errors"
	"fmt"
	"time"
)

// Common errors used throughout the application
var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrEventNotFound        = errors.New("event not found")
	ErrGuestNotFound        = errors.New("guest not found")
	ErrCollaboratorNotFound = errors.New("collaborator not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrDuplicateEntry       = errors.New("duplicate entry")
	ErrInvalidToken         = errors.New("invalid access token")
)

// ValidationError indicates malformed or missing required input. It is
// recoverable and surfaced to the caller verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// InvalidInviteCountError indicates an invite count that does not match any
// pricing bracket of the selected package tier.
type InvalidInviteCountError struct {
	Tier        PackageTier
	InviteCount int
	Brackets    []int
}

func (e *InvalidInviteCountError) Error() string {
	return fmt.Sprintf("invite count %d is not offered for the %s package (available: %v)",
		e.InviteCount, e.Tier, e.Brackets)
}

// UnsupportedAddOnError indicates an add-on selection the package tier or
// event city does not permit.
type UnsupportedAddOnError struct {
	AddOn  string
	Tier   PackageTier
	Reason string
}

func (e *UnsupportedAddOnError) Error() string {
	return fmt.Sprintf("add-on %q is not available for the %s package: %s", e.AddOn, e.Tier, e.Reason)
}

// InvalidTransitionError indicates a state machine misuse. It is surfaced and
// never retried automatically.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s cannot transition from %s to %s", e.Entity, e.From, e.To)
}

// PermissionDeniedError indicates the acting identity lacks the permission
// required for the operation.
type PermissionDeniedError struct {
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: %s required", e.Permission)
}

// PackageNotEligibleError indicates a feature the package tier does not include.
type PackageNotEligibleError struct {
	Tier    PackageTier
	Feature string
}

func (e *PackageNotEligibleError) Error() string {
	return fmt.Sprintf("the %s package does not include %s", e.Tier, e.Feature)
}

// CollaboratorLimitError indicates the tier's collaborator count cap was reached.
type CollaboratorLimitError struct {
	Tier    PackageTier
	Limit   int
	Current int
}

func (e *CollaboratorLimitError) Error() string {
	return fmt.Sprintf("the %s package allows at most %d collaborators (currently %d)",
		e.Tier, e.Limit, e.Current)
}

// QuotaExceededError indicates an invite allocation that would overshoot its
// quota. Allocated/Used carry the state at rejection time so the caller can
// explain why.
type QuotaExceededError struct {
	Allocated int
	Used      int
	Requested int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("invite quota exceeded: %d used of %d allocated, %d more requested",
		e.Used, e.Allocated, e.Requested)
}

// ListLockedError indicates a guest-list mutation on a confirmed list. The
// confirmation time is included so the caller can explain the lock.
type ListLockedError struct {
	EventID     int
	ConfirmedAt *time.Time
}

func (e *ListLockedError) Error() string {
	if e.ConfirmedAt == nil {
		return fmt.Sprintf("guest list for event %d is locked", e.EventID)
	}
	return fmt.Sprintf("guest list for event %d was confirmed at %s and is locked",
		e.EventID, e.ConfirmedAt.Format(time.RFC3339))
}

// InvalidPhoneError indicates a phone number whose country code is not in the
// supported allow-list.
type InvalidPhoneError struct {
	Phone string
}

func (e *InvalidPhoneError) Error() string {
	return fmt.Sprintf("phone number %q does not use a supported country code", e.Phone)
}
