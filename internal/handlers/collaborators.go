package handlers

import (
	"net/http"

	"invitation-platform/internal/middleware"
	"invitation-platform/internal/models"
	"invitation-platform/internal/services"
)

// CollaboratorHandler handles collaborator allocation and access links
type CollaboratorHandler struct {
	guestService *services.GuestService
}

// NewCollaboratorHandler creates a new collaborator handler
func NewCollaboratorHandler(guestService *services.GuestService) *CollaboratorHandler {
	return &CollaboratorHandler{guestService: guestService}
}

// ListCollaborators returns an event's collaborators
func (h *CollaboratorHandler) ListCollaborators(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlParamInt(r, "eventID")
	if err != nil {
		writeError(w, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	collaborators, err := h.guestService.GetEventCollaborators(eventID, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collaborators)
}

type collaboratorResponse struct {
	*models.Collaborator
	AccessToken string `json:"access_token"`
}

// AllocateCollaborator delegates a sub-quota of an event's invites. The access
// token is returned once, in this response only.
func (h *CollaboratorHandler) AllocateCollaborator(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlParamInt(r, "eventID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req models.CollaboratorCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	collaborator, err := h.guestService.AllocateCollaborator(eventID, &req, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, collaboratorResponse{
		Collaborator: collaborator,
		AccessToken:  collaborator.AccessToken,
	})
}

// RemoveCollaborator revokes a collaborator grant
func (h *CollaboratorHandler) RemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	collaboratorID, err := urlParamInt(r, "collaboratorID")
	if err != nil {
		writeError(w, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	if err := h.guestService.RemoveCollaborator(collaboratorID, actor); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// Me returns the collaborator identity behind an access token, with remaining
// quota, so the collaborator UI can show what they can still do.
func (h *CollaboratorHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if actor.Collaborator == nil {
		writeError(w, models.ErrInvalidToken)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"collaborator":      actor.Collaborator,
		"remaining_invites": actor.Collaborator.RemainingInvites(),
	})
}
