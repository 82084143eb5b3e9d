package services

import (
	"errors"
	"fmt"

	"invitation-platform/internal/models"
	"invitation-platform/internal/utils"

	"github.com/rs/zerolog"
)

// GuestRepository interface for guest data operations
type GuestRepository interface {
	Create(guest *models.Guest) (*models.Guest, error)
	GetByID(id int) (*models.Guest, error)
	GetByEvent(eventID int) ([]*models.Guest, error)
	CountByEvent(eventID int) (int, error)
	Update(id int, req *models.GuestUpdateRequest) (*models.Guest, error)
	Delete(id int) error
	MarkWhatsappSent(id int) error
	UpdateRSVP(id int, status models.RSVPStatus) error
	RecordAttendance(id int, attended bool) error
	GetUnsentByEvent(eventID int) ([]*models.Guest, error)
}

// CollaboratorRepository interface for collaborator data operations
type CollaboratorRepository interface {
	Allocate(event *models.Event, req *models.CollaboratorCreateRequest, maxCollaborators int, accessToken string) (*models.Collaborator, error)
	GetByID(id int) (*models.Collaborator, error)
	GetByEvent(eventID int) ([]*models.Collaborator, error)
	GetByAccessToken(token string) (*models.Collaborator, error)
	Delete(id int) error
}

// GuestService owns guest-list mutations and collaborator allocation. Every
// mutation checks the guest-list lock first, then the actor's permission
// grant; collaborator adds additionally charge the collaborator's invite
// quota.
type GuestService struct {
	guestRepo        GuestRepository
	collaboratorRepo CollaboratorRepository
	eventRepo        EventRepository
	notifier         NotificationService
	tokenSecret      string
	log              zerolog.Logger
}

// NewGuestService creates a new guest service
func NewGuestService(
	guestRepo GuestRepository,
	collaboratorRepo CollaboratorRepository,
	eventRepo EventRepository,
	notifier NotificationService,
	tokenSecret string,
	log zerolog.Logger,
) *GuestService {
	return &GuestService{
		guestRepo:        guestRepo,
		collaboratorRepo: collaboratorRepo,
		eventRepo:        eventRepo,
		notifier:         notifier,
		tokenSecret:      tokenSecret,
		log:              log.With().Str("component", "guests").Logger(),
	}
}

// AddGuest adds a guest to an event's guest list. The owner adds freely; only
// collaborators are quota-bound, needing the add permission and enough
// remaining invites to cover the accompanying count.
func (s *GuestService) AddGuest(eventID int, req *models.GuestCreateRequest, actor models.Actor) (*models.Guest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if event.GuestListLocked() {
		return nil, &models.ListLockedError{EventID: eventID, ConfirmedAt: event.GuestList.ConfirmedAt}
	}

	guest := &models.Guest{
		EventID:              eventID,
		Name:                 req.Name,
		Phone:                req.Phone,
		NumberOfAccompanying: req.NumberOfAccompanying,
		RSVPStatus:           models.RSVPPending,
	}

	switch {
	case actor.OwnerOf(event) || actor.IsAdmin():
		guest.AddedByType = models.ActorOwner
	case actor.IsCollaborator() && actor.Collaborator.EventID == eventID:
		if !actor.Collaborator.Permissions.CanAddGuests {
			return nil, &models.PermissionDeniedError{Permission: "add guests"}
		}
		guest.AddedByType = models.ActorCollaborator
		id := actor.Collaborator.ID
		guest.AddedByCollaborator = &id
	default:
		return nil, &models.PermissionDeniedError{Permission: "add guests"}
	}

	created, err := s.guestRepo.Create(guest)
	if err != nil {
		var quotaErr *models.QuotaExceededError
		if errors.As(err, &quotaErr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to add guest: %w", err)
	}

	s.log.Info().Int("event_id", eventID).Int("guest_id", created.ID).
		Str("added_by", string(created.AddedByType)).Msg("guest added")
	return created, nil
}

// UpdateGuest applies a partial update to a guest. Collaborator edits need the
// edit permission, which only exists on the vip tier; changing the
// accompanying count re-charges the adder's quota for the difference.
func (s *GuestService) UpdateGuest(guestID int, req *models.GuestUpdateRequest, actor models.Actor) (*models.Guest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	guest, err := s.guestRepo.GetByID(guestID)
	if err != nil {
		return nil, err
	}
	event, err := s.eventRepo.GetByID(guest.EventID)
	if err != nil {
		return nil, err
	}
	if event.GuestListLocked() {
		return nil, &models.ListLockedError{EventID: event.ID, ConfirmedAt: event.GuestList.ConfirmedAt}
	}
	if err := s.checkMutatePermission(event, actor, "edit guests", func(p models.CollaboratorPermissions) bool {
		return p.CanEditGuests
	}); err != nil {
		return nil, err
	}

	updated, err := s.guestRepo.Update(guestID, req)
	if err != nil {
		var quotaErr *models.QuotaExceededError
		if errors.As(err, &quotaErr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update guest: %w", err)
	}
	return updated, nil
}

// RemoveGuest deletes a guest and releases their invites back to the adder's
// quota. Collaborator deletes need the delete permission (vip tier only).
func (s *GuestService) RemoveGuest(guestID int, actor models.Actor) error {
	guest, err := s.guestRepo.GetByID(guestID)
	if err != nil {
		return err
	}
	event, err := s.eventRepo.GetByID(guest.EventID)
	if err != nil {
		return err
	}
	if event.GuestListLocked() {
		return &models.ListLockedError{EventID: event.ID, ConfirmedAt: event.GuestList.ConfirmedAt}
	}
	if err := s.checkMutatePermission(event, actor, "delete guests", func(p models.CollaboratorPermissions) bool {
		return p.CanDeleteGuests
	}); err != nil {
		return err
	}

	if err := s.guestRepo.Delete(guestID); err != nil {
		return fmt.Errorf("failed to remove guest: %w", err)
	}

	s.log.Info().Int("guest_id", guestID).Int("event_id", event.ID).Msg("guest removed")
	return nil
}

// GetEventGuests lists an event's guests for its owner, an admin, or a
// collaborator on the event.
func (s *GuestService) GetEventGuests(eventID int, actor models.Actor) ([]*models.Guest, error) {
	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if !s.canViewGuests(event, actor) {
		return nil, &models.PermissionDeniedError{Permission: "view guest list"}
	}
	return s.guestRepo.GetByEvent(eventID)
}

// UpdateRSVP records a guest's RSVP response. Reached through the guest's
// personal link, so it carries no actor.
func (s *GuestService) UpdateRSVP(guestID int, status models.RSVPStatus) error {
	switch status {
	case models.RSVPAccepted, models.RSVPDeclined:
	default:
		return &models.ValidationError{Field: "rsvp_status", Message: "rsvp response must be accepted or declined"}
	}
	return s.guestRepo.UpdateRSVP(guestID, status)
}

// RecordAttendance marks whether a guest actually showed up. Available on the
// vip package only, after the event date.
func (s *GuestService) RecordAttendance(guestID int, attended bool, actor models.Actor) error {
	guest, err := s.guestRepo.GetByID(guestID)
	if err != nil {
		return err
	}
	event, err := s.eventRepo.GetByID(guest.EventID)
	if err != nil {
		return err
	}
	if !event.SupportsAttendance() {
		return &models.PackageNotEligibleError{Tier: event.PackageTier, Feature: "attendance tracking"}
	}
	if !actor.OwnerOf(event) && !actor.IsAdmin() {
		return &models.PermissionDeniedError{Permission: "record attendance"}
	}
	if !event.IsPast() {
		return &models.ValidationError{Field: "event", Message: "attendance can only be recorded after the event date"}
	}

	return s.guestRepo.RecordAttendance(guestID, attended)
}

// SendPendingInvites sends the WhatsApp invitation to every guest who has not
// received one yet. Requires an approved card; sends are sequential and a
// per-guest failure is logged and skipped, not fatal.
func (s *GuestService) SendPendingInvites(eventID int, actor models.Actor) (int, error) {
	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return 0, err
	}
	if !actor.OwnerOf(event) && !actor.IsAdmin() {
		return 0, &models.PermissionDeniedError{Permission: "send invitations"}
	}
	if !event.IsApproved() {
		return 0, &models.ValidationError{Field: "event", Message: "invitations can only be sent after the card is approved"}
	}
	if s.notifier == nil {
		return 0, fmt.Errorf("whatsapp messaging is not configured")
	}

	guests, err := s.guestRepo.GetUnsentByEvent(eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending guests: %w", err)
	}

	sent := 0
	for _, guest := range guests {
		if err := s.notifier.SendGuestInvite(guest, event); err != nil {
			s.log.Warn().Err(err).Int("guest_id", guest.ID).Msg("invitation send failed, skipping")
			continue
		}
		if err := s.guestRepo.MarkWhatsappSent(guest.ID); err != nil {
			s.log.Error().Err(err).Int("guest_id", guest.ID).Msg("failed to mark invitation sent")
			continue
		}
		sent++
	}

	s.log.Info().Int("event_id", eventID).Int("sent", sent).Int("pending", len(guests)).
		Msg("invitation batch finished")
	return sent, nil
}

// AllocateCollaborator delegates a sub-quota of the event's invites to a
// collaborator. Owner-only; the tier caps collaborator count, and edit/delete
// permission grants exist on the vip tier only.
func (s *GuestService) AllocateCollaborator(eventID int, req *models.CollaboratorCreateRequest, actor models.Actor) (*models.Collaborator, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if !actor.OwnerOf(event) && !actor.IsAdmin() {
		return nil, &models.PermissionDeniedError{Permission: "manage collaborators"}
	}

	pricing, ok := models.PricingFor(event.PackageTier)
	if !ok {
		return nil, &models.ValidationError{Field: "package_tier", Message: "unknown package tier"}
	}
	if pricing.MaxCollaborators == 0 {
		return nil, &models.PackageNotEligibleError{Tier: event.PackageTier, Feature: "collaborators"}
	}
	if (req.Permissions.CanEditGuests || req.Permissions.CanDeleteGuests) && !event.PackageTier.AllowsGuestEditing() {
		return nil, &models.PackageNotEligibleError{Tier: event.PackageTier, Feature: "collaborator edit and delete permissions"}
	}

	token, err := s.newAccessToken(eventID, req.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	collaborator, err := s.collaboratorRepo.Allocate(event, req, pricing.MaxCollaborators, token)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int("event_id", eventID).Int("collaborator_id", collaborator.ID).
		Int("allocated", collaborator.AllocatedInvites).Msg("collaborator allocated")
	return collaborator, nil
}

// GetEventCollaborators lists an event's collaborators for its owner or an admin
func (s *GuestService) GetEventCollaborators(eventID int, actor models.Actor) ([]*models.Collaborator, error) {
	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if !actor.OwnerOf(event) && !actor.IsAdmin() {
		return nil, &models.PermissionDeniedError{Permission: "manage collaborators"}
	}
	return s.collaboratorRepo.GetByEvent(eventID)
}

// RemoveCollaborator removes a collaborator grant. Guests they added stay on
// the list, reassigned to the owner.
func (s *GuestService) RemoveCollaborator(collaboratorID int, actor models.Actor) error {
	collaborator, err := s.collaboratorRepo.GetByID(collaboratorID)
	if err != nil {
		return err
	}
	event, err := s.eventRepo.GetByID(collaborator.EventID)
	if err != nil {
		return err
	}
	if !actor.OwnerOf(event) && !actor.IsAdmin() {
		return &models.PermissionDeniedError{Permission: "manage collaborators"}
	}

	if err := s.collaboratorRepo.Delete(collaboratorID); err != nil {
		return fmt.Errorf("failed to remove collaborator: %w", err)
	}

	s.log.Info().Int("collaborator_id", collaboratorID).Int("event_id", event.ID).Msg("collaborator removed")
	return nil
}

// newAccessToken issues a collaborator's access credential. With a signing
// secret configured it is a signed token carrying the event and name; without
// one it falls back to an opaque random token. Either way the database lookup
// in ResolveCollaborator is the final authority.
func (s *GuestService) newAccessToken(eventID int, name string) (string, error) {
	if s.tokenSecret == "" {
		return utils.GenerateSecureToken(32)
	}
	return utils.GenerateCollaboratorToken(eventID, name, s.tokenSecret)
}

// ResolveCollaborator authenticates a collaborator access link. A signed token
// must verify against the signing secret before the lookup; every token must
// still match a live grant.
func (s *GuestService) ResolveCollaborator(token string) (*models.Collaborator, error) {
	if s.tokenSecret != "" {
		if _, err := utils.VerifyCollaboratorToken(token, s.tokenSecret); err != nil {
			return nil, models.ErrInvalidToken
		}
	}
	return s.collaboratorRepo.GetByAccessToken(token)
}

func (s *GuestService) checkMutatePermission(event *models.Event, actor models.Actor, permission string, allowed func(models.CollaboratorPermissions) bool) error {
	if actor.OwnerOf(event) || actor.IsAdmin() {
		return nil
	}
	if actor.IsCollaborator() && actor.Collaborator.EventID == event.ID && allowed(actor.Collaborator.Permissions) {
		return nil
	}
	return &models.PermissionDeniedError{Permission: permission}
}

func (s *GuestService) canViewGuests(event *models.Event, actor models.Actor) bool {
	if actor.OwnerOf(event) || actor.IsAdmin() {
		return true
	}
	return actor.IsCollaborator() && actor.Collaborator.EventID == event.ID
}
