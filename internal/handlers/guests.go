package handlers

import (
	"net/http"

	"invitation-platform/internal/middleware"
	"invitation-platform/internal/models"
	"invitation-platform/internal/services"
)

// GuestHandler handles guest-list mutations, RSVP, attendance and invitation
// sending.
type GuestHandler struct {
	guestService *services.GuestService
}

// NewGuestHandler creates a new guest handler
func NewGuestHandler(guestService *services.GuestService) *GuestHandler {
	return &GuestHandler{guestService: guestService}
}

// ListGuests returns an event's guest list
func (h *GuestHandler) ListGuests(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlParamInt(r, "eventID")
	if err != nil {
		writeError(w, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	guests, err := h.guestService.GetEventGuests(eventID, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, guests)
}

// AddGuest adds a guest to an event's guest list
func (h *GuestHandler) AddGuest(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlParamInt(r, "eventID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req models.GuestCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	guest, err := h.guestService.AddGuest(eventID, &req, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, guest)
}

// UpdateGuest applies a partial update to a guest
func (h *GuestHandler) UpdateGuest(w http.ResponseWriter, r *http.Request) {
	guestID, err := urlParamInt(r, "guestID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req models.GuestUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	guest, err := h.guestService.UpdateGuest(guestID, &req, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, guest)
}

// RemoveGuest deletes a guest from the list
func (h *GuestHandler) RemoveGuest(w http.ResponseWriter, r *http.Request) {
	guestID, err := urlParamInt(r, "guestID")
	if err != nil {
		writeError(w, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	if err := h.guestService.RemoveGuest(guestID, actor); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

type rsvpRequest struct {
	Status string `json:"status" validate:"required,oneof=accepted declined"`
}

// UpdateRSVP records a guest's RSVP response from their personal link
func (h *GuestHandler) UpdateRSVP(w http.ResponseWriter, r *http.Request) {
	guestID, err := urlParamInt(r, "guestID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req rsvpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.guestService.UpdateRSVP(guestID, models.RSVPStatus(req.Status)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

// RecordAttendance marks whether a guest actually attended (vip events only)
func (h *GuestHandler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	guestID, err := urlParamInt(r, "guestID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req models.AttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	if err := h.guestService.RecordAttendance(guestID, req.Attended, actor); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// SendInvites sends the WhatsApp invitation to every guest not yet messaged
func (h *GuestHandler) SendInvites(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlParamInt(r, "eventID")
	if err != nil {
		writeError(w, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	sent, err := h.guestService.SendPendingInvites(eventID, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}
