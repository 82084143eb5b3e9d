package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"invitation-platform/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeError maps domain errors to HTTP status codes and writes the error body
func writeError(w http.ResponseWriter, err error) {
	var (
		validationErr  *models.ValidationError
		inviteCountErr *models.InvalidInviteCountError
		addOnErr       *models.UnsupportedAddOnError
		phoneErr       *models.InvalidPhoneError
		transitionErr  *models.InvalidTransitionError
		permissionErr  *models.PermissionDeniedError
		eligibilityErr *models.PackageNotEligibleError
		collabLimitErr *models.CollaboratorLimitError
		quotaErr       *models.QuotaExceededError
		listLockedErr  *models.ListLockedError
		validationErrs validator.ValidationErrors
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: validationErr.Field})
	case errors.As(err, &validationErrs):
		field := ""
		if len(validationErrs) > 0 {
			field = validationErrs[0].Field()
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: field})
	case errors.As(err, &inviteCountErr),
		errors.As(err, &addOnErr),
		errors.As(err, &phoneErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.As(err, &transitionErr),
		errors.As(err, &listLockedErr):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.As(err, &permissionErr):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.As(err, &eligibilityErr),
		errors.As(err, &collabLimitErr),
		errors.As(err, &quotaErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrOrderNotFound),
		errors.Is(err, models.ErrEventNotFound),
		errors.Is(err, models.ErrGuestNotFound),
		errors.Is(err, models.ErrCollaboratorNotFound),
		errors.Is(err, models.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

// decodeJSON decodes and validates a JSON request body
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &models.ValidationError{Field: "body", Message: "invalid JSON body"}
	}
	return validate.Struct(dst)
}

// urlParamInt extracts an integer URL parameter
func urlParamInt(r *http.Request, name string) (int, error) {
	value, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || value <= 0 {
		return 0, &models.ValidationError{Field: name, Message: "must be a positive integer"}
	}
	return value, nil
}

// paginationParams reads limit/offset query parameters with sane defaults
func paginationParams(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
