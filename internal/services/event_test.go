package services

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"testing"
	"time"

	"invitation-platform/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStorage records uploads and deletes
type fakeStorage struct {
	uploads []string
	deletes []string
	failUp  bool
}

func (f *fakeStorage) UploadCardImage(file multipart.File, header *multipart.FileHeader, eventID int) (*UploadResult, error) {
	if f.failUp {
		return nil, fmt.Errorf("upload failed")
	}
	key := fmt.Sprintf("cards/%d/card.png", eventID)
	f.uploads = append(f.uploads, key)
	return &UploadResult{Key: key, URL: "https://cdn.example.com/" + key}, nil
}

func (f *fakeStorage) Delete(key string) error {
	f.deletes = append(f.deletes, key)
	return nil
}

type fakeFile struct {
	*bytes.Reader
}

func (fakeFile) Close() error { return nil }

func testCardImage() (*fakeFile, *multipart.FileHeader) {
	data := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	return &fakeFile{bytes.NewReader(data)}, &multipart.FileHeader{
		Filename: "card.png",
		Size:     int64(len(data)),
	}
}

func newEventServiceFixture() (*EventService, *fakeEventRepo, *fakeStorage, *fakeNotifier) {
	eventRepo := newFakeEventRepo()
	userRepo := newFakeUserRepo(&models.User{ID: 1, Email: "owner@example.com", Name: "Owner", Phone: "+966501234567", Role: models.RoleCustomer})
	storage := &fakeStorage{}
	notifier := &fakeNotifier{}
	svc := NewEventService(eventRepo, userRepo, storage, notifier, testLogger())
	return svc, eventRepo, storage, notifier
}

func pendingEvent(repo *fakeEventRepo, tier models.PackageTier) *models.Event {
	return repo.add(&models.Event{
		OrderID:        1,
		OwnerID:        1,
		Title:          "Sara & Ahmed Wedding",
		City:           "riyadh",
		Date:           time.Now().AddDate(0, 1, 0),
		PackageTier:    tier,
		InviteCount:    300,
		Status:         models.EventActive,
		ApprovalStatus: models.ApprovalPending,
	})
}

var adminActor = models.Actor{User: &models.User{ID: 9, Email: "admin@example.com", Role: models.RoleAdmin}}
var ownerActor = models.Actor{User: &models.User{ID: 1, Email: "owner@example.com", Role: models.RoleCustomer}}

func TestEventService_Approve(t *testing.T) {
	t.Run("approves with card image", func(t *testing.T) {
		svc, eventRepo, storage, notifier := newEventServiceFixture()
		event := pendingEvent(eventRepo, models.TierVIP)

		file, header := testCardImage()
		approved, err := svc.Approve(event.ID, &ApproveInput{
			CardImage:       file,
			CardImageHeader: header,
			Notes:           "gold foil variant",
			QRReaderURL:     "https://qr.example.com/e/1",
		}, adminActor)
		require.NoError(t, err)

		assert.True(t, approved.IsApproved())
		assert.NotEmpty(t, approved.CardImageURL)
		assert.Equal(t, "gold foil variant", approved.ApprovalNotes)
		assert.Len(t, storage.uploads, 1)
		assert.Equal(t, []int{event.ID}, notifier.decisions)
	})

	t.Run("approval without card image is rejected", func(t *testing.T) {
		svc, eventRepo, storage, _ := newEventServiceFixture()
		event := pendingEvent(eventRepo, models.TierClassic)

		_, err := svc.Approve(event.ID, &ApproveInput{}, adminActor)

		var validationErr *models.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "card_image", validationErr.Field)
		assert.Empty(t, storage.uploads)
	})

	t.Run("non-admin cannot approve", func(t *testing.T) {
		svc, eventRepo, _, _ := newEventServiceFixture()
		event := pendingEvent(eventRepo, models.TierClassic)

		file, header := testCardImage()
		_, err := svc.Approve(event.ID, &ApproveInput{CardImage: file, CardImageHeader: header}, ownerActor)

		var permissionErr *models.PermissionDeniedError
		require.ErrorAs(t, err, &permissionErr)
	})

	t.Run("re-deciding a decided event fails", func(t *testing.T) {
		svc, eventRepo, _, _ := newEventServiceFixture()
		event := pendingEvent(eventRepo, models.TierClassic)

		file, header := testCardImage()
		_, err := svc.Approve(event.ID, &ApproveInput{CardImage: file, CardImageHeader: header}, adminActor)
		require.NoError(t, err)

		file, header = testCardImage()
		_, err = svc.Approve(event.ID, &ApproveInput{CardImage: file, CardImageHeader: header}, adminActor)
		var transitionErr *models.InvalidTransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, "approved", transitionErr.From)

		_, err = svc.Reject(event.ID, "changed my mind", adminActor)
		require.ErrorAs(t, err, &transitionErr)
	})
}

func TestEventService_Reject(t *testing.T) {
	t.Run("rejects with reason", func(t *testing.T) {
		svc, eventRepo, _, notifier := newEventServiceFixture()
		event := pendingEvent(eventRepo, models.TierPremium)

		rejected, err := svc.Reject(event.ID, "text is unreadable on dark background", adminActor)
		require.NoError(t, err)

		assert.True(t, rejected.IsRejected())
		assert.Equal(t, "text is unreadable on dark background", rejected.RejectionReason)
		assert.Len(t, notifier.decisions, 1)
	})

	t.Run("rejection requires a reason", func(t *testing.T) {
		svc, eventRepo, _, _ := newEventServiceFixture()
		event := pendingEvent(eventRepo, models.TierPremium)

		_, err := svc.Reject(event.ID, "", adminActor)

		var validationErr *models.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "reason", validationErr.Field)
	})
}

func TestEventService_GuestListLock(t *testing.T) {
	setup := func(t *testing.T, withGuest bool) (*EventService, *fakeEventRepo, *models.Event) {
		t.Helper()
		svc, eventRepo, _, _ := newEventServiceFixture()
		collabRepo := newFakeCollaboratorRepo()
		guestRepo := newFakeGuestRepo(collabRepo)
		eventRepo.guests = guestRepo
		event := pendingEvent(eventRepo, models.TierClassic)
		if withGuest {
			_, err := guestRepo.Create(&models.Guest{
				EventID:              event.ID,
				Name:                 "Guest One",
				Phone:                "+966501111111",
				NumberOfAccompanying: 2,
				AddedByType:          models.ActorOwner,
			})
			require.NoError(t, err)
		}
		return svc, eventRepo, event
	}

	t.Run("owner confirms a non-empty list", func(t *testing.T) {
		svc, _, event := setup(t, true)

		confirmed, err := svc.ConfirmGuestList(event.ID, ownerActor)
		require.NoError(t, err)
		assert.True(t, confirmed.GuestListLocked())
		assert.NotNil(t, confirmed.GuestList.ConfirmedAt)
	})

	t.Run("empty list cannot be confirmed", func(t *testing.T) {
		svc, _, event := setup(t, false)

		_, err := svc.ConfirmGuestList(event.ID, ownerActor)
		var validationErr *models.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "guests", validationErr.Field)
	})

	t.Run("only the owner confirms", func(t *testing.T) {
		svc, _, event := setup(t, true)

		_, err := svc.ConfirmGuestList(event.ID, adminActor)
		var permissionErr *models.PermissionDeniedError
		require.ErrorAs(t, err, &permissionErr)
	})

	t.Run("double confirm fails", func(t *testing.T) {
		svc, _, event := setup(t, true)

		_, err := svc.ConfirmGuestList(event.ID, ownerActor)
		require.NoError(t, err)

		_, err = svc.ConfirmGuestList(event.ID, ownerActor)
		var transitionErr *models.InvalidTransitionError
		require.ErrorAs(t, err, &transitionErr)
	})

	t.Run("admin reopens and count increments", func(t *testing.T) {
		svc, _, event := setup(t, true)

		_, err := svc.ConfirmGuestList(event.ID, ownerActor)
		require.NoError(t, err)

		reopened, err := svc.ReopenGuestList(event.ID, adminActor)
		require.NoError(t, err)
		assert.False(t, reopened.GuestListLocked())
		assert.Equal(t, 1, reopened.GuestList.ReopenCount)

		// A second confirm/reopen cycle keeps counting.
		_, err = svc.ConfirmGuestList(event.ID, ownerActor)
		require.NoError(t, err)
		reopened, err = svc.ReopenGuestList(event.ID, adminActor)
		require.NoError(t, err)
		assert.Equal(t, 2, reopened.GuestList.ReopenCount)
	})

	t.Run("owner cannot reopen", func(t *testing.T) {
		svc, _, event := setup(t, true)

		_, err := svc.ConfirmGuestList(event.ID, ownerActor)
		require.NoError(t, err)

		_, err = svc.ReopenGuestList(event.ID, ownerActor)
		var permissionErr *models.PermissionDeniedError
		require.ErrorAs(t, err, &permissionErr)
	})

	t.Run("reopening an open list fails", func(t *testing.T) {
		svc, _, event := setup(t, true)

		_, err := svc.ReopenGuestList(event.ID, adminActor)
		var transitionErr *models.InvalidTransitionError
		require.ErrorAs(t, err, &transitionErr)
	})
}

func TestEventService_Visibility(t *testing.T) {
	svc, eventRepo, _, _ := newEventServiceFixture()
	event := pendingEvent(eventRepo, models.TierVIP)

	_, err := svc.GetEventByID(event.ID, ownerActor)
	assert.NoError(t, err)

	_, err = svc.GetEventByID(event.ID, adminActor)
	assert.NoError(t, err)

	stranger := models.Actor{User: &models.User{ID: 5, Role: models.RoleCustomer}}
	_, err = svc.GetEventByID(event.ID, stranger)
	var permissionErr *models.PermissionDeniedError
	assert.ErrorAs(t, err, &permissionErr)

	viewer := models.Actor{Collaborator: &models.Collaborator{ID: 3, EventID: event.ID,
		Permissions: models.CollaboratorPermissions{CanViewFullEvent: true}}}
	_, err = svc.GetEventByID(event.ID, viewer)
	assert.NoError(t, err)

	blindCollaborator := models.Actor{Collaborator: &models.Collaborator{ID: 4, EventID: event.ID}}
	_, err = svc.GetEventByID(event.ID, blindCollaborator)
	assert.ErrorAs(t, err, &permissionErr)
}
