package services

import (
	"bytes"
	"fmt"
	"mime/multipart"

	"invitation-platform/internal/models"

	"github.com/rs/zerolog"
)

// EventRepository interface for event data operations
type EventRepository interface {
	GetByID(id int) (*models.Event, error)
	GetByOrder(orderID int) ([]*models.Event, error)
	GetByOwner(ownerID int) ([]*models.Event, error)
	GetPendingApproval(limit, offset int) ([]*models.Event, error)
	Approve(id int, cardImageKey, cardImageURL, notes, qrReaderURL string, reviewerID int) (bool, error)
	Reject(id int, reason string, reviewerID int) (bool, error)
	ConfirmGuestList(id int, confirmedBy int) (bool, error)
	ReopenGuestList(id int, reopenedBy int) (bool, error)
	UpdateStatus(id int, status models.EventStatus) error
}

// StorageService interface for card image storage
type StorageService interface {
	UploadCardImage(file multipart.File, header *multipart.FileHeader, eventID int) (*UploadResult, error)
	Delete(key string) error
}

// EventService owns the admin approval flow and the guest-list lock. Approval
// decisions are one-shot: once a card is approved or rejected, a second
// decision on the same event is an InvalidTransitionError.
type EventService struct {
	eventRepo EventRepository
	userRepo  UserRepository
	storage   StorageService
	notifier  NotificationService
	log       zerolog.Logger
}

// NewEventService creates a new event service
func NewEventService(
	eventRepo EventRepository,
	userRepo UserRepository,
	storage StorageService,
	notifier NotificationService,
	log zerolog.Logger,
) *EventService {
	return &EventService{
		eventRepo: eventRepo,
		userRepo:  userRepo,
		storage:   storage,
		notifier:  notifier,
		log:       log.With().Str("component", "events").Logger(),
	}
}

// GetEventByID retrieves an event, restricted to its owner, a collaborator on
// it with full view permission, or an admin.
func (s *EventService) GetEventByID(eventID int, actor models.Actor) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return nil, err
	}

	if !s.canViewEvent(event, actor) {
		return nil, &models.PermissionDeniedError{Permission: "view event"}
	}

	return event, nil
}

// GetOwnerEvents retrieves all events owned by a user
func (s *EventService) GetOwnerEvents(ownerID int, actor models.Actor) ([]*models.Event, error) {
	if !actor.IsAdmin() && (actor.User == nil || actor.User.ID != ownerID) {
		return nil, &models.PermissionDeniedError{Permission: "view events"}
	}
	return s.eventRepo.GetByOwner(ownerID)
}

// GetPendingApproval retrieves events awaiting an admin decision
func (s *EventService) GetPendingApproval(actor models.Actor, limit, offset int) ([]*models.Event, error) {
	if !actor.IsAdmin() {
		return nil, &models.PermissionDeniedError{Permission: "review events"}
	}
	return s.eventRepo.GetPendingApproval(limit, offset)
}

// ApproveInput carries the admin's approval decision. The card image is
// mandatory: an approval without the designed invitation attached is invalid.
type ApproveInput struct {
	CardImage       multipart.File
	CardImageHeader *multipart.FileHeader
	Notes           string
	QRReaderURL     string
}

// Approve records an admin approval: uploads the invitation card, attaches the
// optional notes and QR reader link, and notifies the owner.
func (s *EventService) Approve(eventID int, input *ApproveInput, actor models.Actor) (*models.Event, error) {
	if !actor.IsAdmin() {
		return nil, &models.PermissionDeniedError{Permission: "approve events"}
	}
	if input == nil || input.CardImage == nil || input.CardImageHeader == nil {
		return nil, &models.ValidationError{Field: "card_image", Message: "approval requires the invitation card image"}
	}

	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if !event.CanBeDecided() {
		return nil, &models.InvalidTransitionError{
			Entity: "event approval",
			From:   string(event.ApprovalStatus),
			To:     string(models.ApprovalApproved),
		}
	}

	upload, err := s.storage.UploadCardImage(input.CardImage, input.CardImageHeader, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to upload card image: %w", err)
	}

	applied, err := s.eventRepo.Approve(eventID, upload.Key, upload.URL, input.Notes, input.QRReaderURL, actor.User.ID)
	if err != nil {
		s.cleanupUpload(upload.Key)
		return nil, fmt.Errorf("failed to approve event: %w", err)
	}
	if !applied {
		// A concurrent reviewer decided first; the uploaded image is orphaned.
		s.cleanupUpload(upload.Key)
		event, err = s.eventRepo.GetByID(eventID)
		if err != nil {
			return nil, err
		}
		return nil, &models.InvalidTransitionError{
			Entity: "event approval",
			From:   string(event.ApprovalStatus),
			To:     string(models.ApprovalApproved),
		}
	}

	event, err = s.eventRepo.GetByID(eventID)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int("event_id", eventID).Int("reviewer_id", actor.User.ID).Msg("event approved")
	s.notifyDecision(event)

	return event, nil
}

// Reject records an admin rejection. A reason is mandatory so the owner knows
// what to fix before resubmitting through support.
func (s *EventService) Reject(eventID int, reason string, actor models.Actor) (*models.Event, error) {
	if !actor.IsAdmin() {
		return nil, &models.PermissionDeniedError{Permission: "reject events"}
	}
	if reason == "" {
		return nil, &models.ValidationError{Field: "reason", Message: "rejection requires a reason"}
	}

	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if !event.CanBeDecided() {
		return nil, &models.InvalidTransitionError{
			Entity: "event approval",
			From:   string(event.ApprovalStatus),
			To:     string(models.ApprovalRejected),
		}
	}

	applied, err := s.eventRepo.Reject(eventID, reason, actor.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reject event: %w", err)
	}
	if !applied {
		event, err = s.eventRepo.GetByID(eventID)
		if err != nil {
			return nil, err
		}
		return nil, &models.InvalidTransitionError{
			Entity: "event approval",
			From:   string(event.ApprovalStatus),
			To:     string(models.ApprovalRejected),
		}
	}

	event, err = s.eventRepo.GetByID(eventID)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int("event_id", eventID).Str("reason", reason).Msg("event rejected")
	s.notifyDecision(event)

	return event, nil
}

// ConfirmGuestList locks the guest list. Owner-only, requires at least one
// guest, and is one-way: only an admin reopen unlocks it.
func (s *EventService) ConfirmGuestList(eventID int, actor models.Actor) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if !actor.OwnerOf(event) {
		return nil, &models.PermissionDeniedError{Permission: "confirm guest list"}
	}
	if !event.CanConfirmGuestList() {
		return nil, &models.InvalidTransitionError{
			Entity: "guest list",
			From:   "confirmed",
			To:     "confirmed",
		}
	}

	applied, err := s.eventRepo.ConfirmGuestList(eventID, actor.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm guest list: %w", err)
	}
	if !applied {
		// Conditional update also requires at least one guest on the list.
		event, err = s.eventRepo.GetByID(eventID)
		if err != nil {
			return nil, err
		}
		if event.GuestListLocked() {
			return nil, &models.InvalidTransitionError{Entity: "guest list", From: "confirmed", To: "confirmed"}
		}
		return nil, &models.ValidationError{Field: "guests", Message: "cannot confirm an empty guest list"}
	}

	event, err = s.eventRepo.GetByID(eventID)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int("event_id", eventID).Msg("guest list confirmed")
	return event, nil
}

// ReopenGuestList unlocks a confirmed guest list. Admin-only; the owner asks
// support for the change, support reopens it.
func (s *EventService) ReopenGuestList(eventID int, actor models.Actor) (*models.Event, error) {
	if !actor.IsAdmin() {
		return nil, &models.PermissionDeniedError{Permission: "reopen guest list"}
	}

	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if !event.CanReopenGuestList() {
		return nil, &models.InvalidTransitionError{
			Entity: "guest list",
			From:   "open",
			To:     "open",
		}
	}

	applied, err := s.eventRepo.ReopenGuestList(eventID, actor.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen guest list: %w", err)
	}
	if !applied {
		return nil, &models.InvalidTransitionError{Entity: "guest list", From: "open", To: "open"}
	}

	event, err = s.eventRepo.GetByID(eventID)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int("event_id", eventID).Int("admin_id", actor.User.ID).
		Int("reopen_count", event.GuestList.ReopenCount).Msg("guest list reopened")
	return event, nil
}

func (s *EventService) canViewEvent(event *models.Event, actor models.Actor) bool {
	if actor.IsAdmin() || actor.OwnerOf(event) {
		return true
	}
	if actor.Collaborator != nil && actor.Collaborator.EventID == event.ID {
		return actor.Collaborator.Permissions.CanViewFullEvent
	}
	return false
}

func (s *EventService) cleanupUpload(key string) {
	if key == "" {
		return
	}
	if err := s.storage.Delete(key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to clean up orphaned card image")
	}
}

// notifyDecision sends the owner the approval outcome. Fire-and-forget.
func (s *EventService) notifyDecision(event *models.Event) {
	if s.notifier == nil {
		return
	}
	owner, err := s.userRepo.GetByID(event.OwnerID)
	if err != nil {
		s.log.Warn().Err(err).Int("event_id", event.ID).Msg("decision notification skipped, owner lookup failed")
		return
	}
	if err := s.notifier.SendEventDecision(owner.Phone, event); err != nil {
		s.log.Warn().Err(err).Int("event_id", event.ID).Msg("decision notification failed")
	}
}

// detectImageType sniffs the content type from the first bytes of an upload
func detectImageType(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg"
	case bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47}):
		return "image/png"
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	default:
		return ""
	}
}
