package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"mathwizard/internal/logging"
	"mathwizard/internal/models"
	"mathwizard/internal/service"
)

// AdminHandler handles administrator routes
type AdminHandler struct {
	adminService  *service.AdminService
	backupService *service.BackupService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *service.AdminService, backupService *service.BackupService) *AdminHandler {
	return &AdminHandler{
		adminService:  adminService,
		backupService: backupService,
	}
}

type updateParentRequest struct {
	Name        string `json:"name" validate:"notblank"`
	Email       string `json:"email" validate:"required,email"`
	MaxChildren *int   `json:"maxChildren" validate:"required,gte=0"`
}

type updateSchoolRequest struct {
	Name             string `json:"name" validate:"notblank"`
	Email            string `json:"email" validate:"required,email"`
	NumberOfTeachers *int   `json:"numberOfTeachers" validate:"required,gte=0"`
}

// auditEmail names the acting admin in audit entries. The admin-email header is
// only consulted when the session carries no email.
func auditEmail(r *http.Request) string {
	if p := GetPrincipalFromContext(r.Context()); p != nil && p.Email != "" {
		return p.Email
	}
	return r.Header.Get("admin-email")
}

// ListUsers returns every parent and school account
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.adminService.ListUsers(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, envelope{"users": users})
}

// DeleteUser removes a parent or school account
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	adminEmail := auditEmail(r)

	role, err := h.adminService.DeleteUser(r.Context(), adminEmail, pathParam(r, "id"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	msg := "Parent removed successfully"
	if role == models.RoleSchool {
		msg = "School removed successfully"
	}
	respondSuccess(w, http.StatusOK, envelope{"message": msg})
}

// UpdateParent edits a parent account
func (h *AdminHandler) UpdateParent(w http.ResponseWriter, r *http.Request) {
	adminEmail := auditEmail(r)

	var req updateParentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.adminService.UpdateParent(r.Context(), adminEmail, pathParam(r, "id"), req.Name, req.Email, *req.MaxChildren)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, envelope{"message": "Parent updated successfully"})
}

// UpdateSchool edits a school account
func (h *AdminHandler) UpdateSchool(w http.ResponseWriter, r *http.Request) {
	adminEmail := auditEmail(r)

	var req updateSchoolRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.adminService.UpdateSchool(r.Context(), adminEmail, pathParam(r, "id"), req.Name, req.Email, *req.NumberOfTeachers)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, envelope{"message": "School updated successfully"})
}

// SystemLogs returns recent audit entries, newest first. ?limit= caps the count.
func (h *AdminHandler) SystemLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	logs, err := h.adminService.ListSystemLogs(r.Context(), limit)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, envelope{"logs": logs})
}

// ExportBackup streams a JSON export of every account and audit entry
func (h *AdminHandler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	adminEmail := auditEmail(r)

	filename := fmt.Sprintf("mathwizard_backup_%s.json", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if err := h.backupService.ExportToWriter(r.Context(), w); err != nil {
		respondWithError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("admin", adminEmail).Msg("Backup exported")
}
