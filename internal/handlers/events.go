package handlers

import (
	"net/http"

	"invitation-platform/internal/middleware"
	"invitation-platform/internal/models"
	"invitation-platform/internal/services"
)

// EventHandler handles event retrieval, the admin review queue and the
// guest-list lock.
type EventHandler struct {
	eventService *services.EventService
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService *services.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// GetEvent returns one event
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlParamInt(r, "eventID")
	if err != nil {
		writeError(w, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	event, err := h.eventService.GetEventByID(eventID, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ListMyEvents returns the signed-in user's events
func (h *EventHandler) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	events, err := h.eventService.GetOwnerEvents(actor.User.ID, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// ListPendingApproval returns the admin review queue
func (h *EventHandler) ListPendingApproval(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	limit, offset := paginationParams(r)

	events, err := h.eventService.GetPendingApproval(actor, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// ApproveEvent records an admin approval. Multipart form: the card_image file
// is required, notes and qr_reader_url are optional.
func (h *EventHandler) ApproveEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlParamInt(r, "eventID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(12 << 20); err != nil {
		writeError(w, &models.ValidationError{Field: "body", Message: "expected multipart form data"})
		return
	}

	file, header, err := r.FormFile("card_image")
	if err != nil {
		writeError(w, &models.ValidationError{Field: "card_image", Message: "approval requires the invitation card image"})
		return
	}
	defer file.Close()

	actor := middleware.ActorFromContext(r.Context())
	event, err := h.eventService.Approve(eventID, &services.ApproveInput{
		CardImage:       file,
		CardImageHeader: header,
		Notes:           r.FormValue("notes"),
		QRReaderURL:     r.FormValue("qr_reader_url"),
	}, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// RejectEvent records an admin rejection with a mandatory reason
func (h *EventHandler) RejectEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlParamInt(r, "eventID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req models.RejectEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	event, err := h.eventService.Reject(eventID, req.Reason, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ConfirmGuestList locks the guest list (owner only)
func (h *EventHandler) ConfirmGuestList(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlParamInt(r, "eventID")
	if err != nil {
		writeError(w, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	event, err := h.eventService.ConfirmGuestList(eventID, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ReopenGuestList unlocks a confirmed guest list (admin only)
func (h *EventHandler) ReopenGuestList(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlParamInt(r, "eventID")
	if err != nil {
		writeError(w, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	event, err := h.eventService.ReopenGuestList(eventID, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}
