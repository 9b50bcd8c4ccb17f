package handlers

import (
	"net/http"

	"mathwizard/internal/service"
)

// ParentHandler handles parent self-service routes
type ParentHandler struct {
	parentService   *service.ParentService
	partnerService  *service.PartnerService
	checkoutService *service.CheckoutService
}

// NewParentHandler creates a new parent handler
func NewParentHandler(parentService *service.ParentService, partnerService *service.PartnerService, checkoutService *service.CheckoutService) *ParentHandler {
	return &ParentHandler{
		parentService:   parentService,
		partnerService:  partnerService,
		checkoutService: checkoutService,
	}
}

type settingsRequest struct {
	Name string `json:"name" validate:"notblank"`
}

type addPartnerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password"`
}

// parentFromPath resolves the {email} path parameter against the caller.
// It writes a 403 and returns false when the caller may not act on that parent.
func parentFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, ok := resolveParentEmail(GetPrincipalFromContext(r.Context()), pathParam(r, "email"))
	if !ok {
		respondWithStatus(w, http.StatusForbidden, ErrForbidden)
	}
	return email, ok
}

// UpdateSettings changes the parent's display name
func (h *ParentHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	email, ok := parentFromPath(w, r)
	if !ok {
		return
	}

	var req settingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	parent, err := h.parentService.UpdateSettings(r.Context(), email, req.Name)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, envelope{
		"message": "Settings updated successfully",
		"user":    newParentView(parent),
	})
}

// ListPartners returns the parent's managing partners
func (h *ParentHandler) ListPartners(w http.ResponseWriter, r *http.Request) {
	email, ok := parentFromPath(w, r)
	if !ok {
		return
	}

	partners, err := h.partnerService.ListPartners(r.Context(), email)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, envelope{"partners": partnerViews(partners)})
}

// AddPartner attaches a managing partner
func (h *ParentHandler) AddPartner(w http.ResponseWriter, r *http.Request) {
	email, ok := parentFromPath(w, r)
	if !ok {
		return
	}

	var req addPartnerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	partners, err := h.partnerService.AddPartner(r.Context(), email, req.Name, req.Email, req.Password)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, envelope{
		"message":  "Partner added successfully",
		"partners": partnerViews(partners),
	})
}

// RemovePartner detaches a managing partner
func (h *ParentHandler) RemovePartner(w http.ResponseWriter, r *http.Request) {
	email, ok := parentFromPath(w, r)
	if !ok {
		return
	}

	partners, err := h.partnerService.RemovePartner(r.Context(), email, pathParam(r, "partnerEmail"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, envelope{
		"message":  "Partner removed successfully",
		"partners": partnerViews(partners),
	})
}

// CreateCheckoutSession starts a subscription checkout for the signed-in parent
func (h *ParentHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipalFromContext(r.Context())

	url, err := h.checkoutService.CreateSession(r.Context(), principal.Email)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, envelope{"url": url})
}
