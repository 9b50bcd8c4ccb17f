package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"mathwizard/internal/models"
	"mathwizard/internal/service"
	"mathwizard/internal/validation"
)

// ChildHandler handles the child roster routes
type ChildHandler struct {
	rosterService *service.RosterService
}

// NewChildHandler creates a new child handler
func NewChildHandler(rosterService *service.RosterService) *ChildHandler {
	return &ChildHandler{rosterService: rosterService}
}

type addChildRequest struct {
	ParentEmail string `json:"parentEmail" validate:"omitempty,email"`
	Name        string `json:"name" validate:"notblank"`
	Username    string `json:"username" validate:"required,username"`
	Password    string `json:"password"`
	Year        string `json:"year"`
}

type progressRequest struct {
	Topic string `json:"topic" validate:"notblank"`
	Score int    `json:"score" validate:"gte=0,lte=100"`
}

// AddChild registers a child under the signed-in parent. Admins must name the parent.
func (h *ChildHandler) AddChild(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipalFromContext(r.Context())

	var req addChildRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	parentEmail, ok := resolveParentEmail(principal, req.ParentEmail)
	if !ok {
		respondWithStatus(w, http.StatusForbidden, ErrForbidden)
		return
	}

	creds, err := h.rosterService.AddChild(r.Context(), parentEmail, service.AddChildInput{
		Name:     req.Name,
		Username: req.Username,
		Password: req.Password,
		Year:     req.Year,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, envelope{"child": creds})
}

// RemoveChild deletes a child from the signed-in parent's roster
func (h *ChildHandler) RemoveChild(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipalFromContext(r.Context())
	username := pathParam(r, "username")

	parentEmail := principal.Email
	if principal.IsAdmin() {
		owner, err := h.rosterService.OwnerOf(r.Context(), username)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		parentEmail = owner
	}

	if err := h.rosterService.RemoveChild(r.Context(), parentEmail, username); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, envelope{"message": "Child removed successfully"})
}

// GetChild returns a child's record and progress
func (h *ChildHandler) GetChild(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipalFromContext(r.Context())
	username := pathParam(r, "username")

	if err := h.rosterService.CanAccessChild(r.Context(), principal, username); err != nil {
		respondWithError(w, r, err)
		return
	}

	child, err := h.rosterService.GetChild(r.Context(), username)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, envelope{"child": child})
}

// RecordProgress stores a topic score for the signed-in child
func (h *ChildHandler) RecordProgress(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipalFromContext(r.Context())
	username := pathParam(r, "username")
	if principal.Username != username {
		respondWithStatus(w, http.StatusForbidden, ErrForbidden)
		return
	}

	var req progressRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.rosterService.RecordProgress(r.Context(), username, req.Topic, req.Score); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, envelope{"message": "Progress recorded"})
}

// ListChildren returns the usernames on a parent's roster
func (h *ChildHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipalFromContext(r.Context())
	email, ok := resolveParentEmail(principal, pathParam(r, "email"))
	if !ok {
		respondWithStatus(w, http.StatusForbidden, ErrForbidden)
		return
	}

	children, err := h.rosterService.ListChildren(r.Context(), email)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, envelope{"children": children})
}

// resolveParentEmail returns the parent a request acts on. Parents may only act
// on themselves; admins may act on any parent but must name one.
func resolveParentEmail(p *models.Principal, requested string) (string, bool) {
	requested = validation.NormalizeEmail(requested)
	switch {
	case p.IsAdmin():
		return requested, requested != ""
	case p.Role == models.RoleParent:
		if requested == "" || requested == p.Email {
			return p.Email, true
		}
	}
	return "", false
}

// pathParam returns a decoded chi URL parameter
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
