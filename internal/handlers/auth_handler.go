package handlers

import (
	"net/http"

	"mathwizard/internal/models"
	"mathwizard/internal/security"
	"mathwizard/internal/service"
)

// AuthHandler handles login, registration and email verification
type AuthHandler struct {
	authService *service.AuthService
	sessions    *security.SessionManager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, sessions *security.SessionManager) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type childLoginRequest struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password"`
}

type checkEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type registerParentRequest struct {
	Name        string `json:"name" validate:"notblank"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	MaxChildren int    `json:"maxChildren" validate:"gte=0"`
}

type registerSchoolRequest struct {
	SchoolName       string `json:"schoolName" validate:"notblank"`
	AdminEmail       string `json:"adminEmail" validate:"required,email"`
	Password         string `json:"password" validate:"required"`
	NumberOfTeachers int    `json:"numberOfTeachers" validate:"gte=0"`
}

type verifyCodeRequest struct {
	Email string `json:"email" validate:"required"`
	Code  string `json:"code" validate:"required"`
}

type resendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Login authenticates an admin, parent or school and returns a session token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	principal, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	h.respondWithSession(w, r, principal)
}

// LoginChild authenticates a child by username
func (h *AuthHandler) LoginChild(w http.ResponseWriter, r *http.Request) {
	var req childLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	principal, err := h.authService.LoginChild(r.Context(), req.Username, req.Password)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	h.respondWithSession(w, r, principal)
}

func (h *AuthHandler) respondWithSession(w http.ResponseWriter, r *http.Request, principal *models.Principal) {
	token, expires, err := h.sessions.Issue(principal)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, envelope{
		"token":     token,
		"expiresAt": expires,
		"user":      newUserView(principal),
	})
}

// CheckEmail reports which kind of account owns an email
func (h *AuthHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	var req checkEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	role, err := h.authService.CheckEmail(r.Context(), req.Email)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, envelope{"role": role})
}

// RegisterParent creates an unverified parent account
func (h *AuthHandler) RegisterParent(w http.ResponseWriter, r *http.Request) {
	var req registerParentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	_, err := h.authService.RegisterParent(r.Context(), service.RegisterParentInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		MaxChildren: req.MaxChildren,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, envelope{
		"message": "Parent registered. Check your email for verification.",
	})
}

// RegisterSchool creates a verified school account
func (h *AuthHandler) RegisterSchool(w http.ResponseWriter, r *http.Request) {
	var req registerSchoolRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	_, err := h.authService.RegisterSchool(r.Context(), service.RegisterSchoolInput{
		SchoolName:       req.SchoolName,
		AdminEmail:       req.AdminEmail,
		Password:         req.Password,
		NumberOfTeachers: req.NumberOfTeachers,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, envelope{"message": "School registered successfully."})
}

// VerifyEmail consumes the token from a verification link
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.VerifyToken(r.Context(), r.URL.Query().Get("token")); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, envelope{"message": "Email verified successfully"})
}

// VerifyCode consumes a 6-digit verification code
func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.VerifyCode(r.Context(), req.Email, req.Code); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, envelope{"message": "Email verified successfully"})
}

// ResendVerification issues a new token and code. The response does not reveal
// whether the email belongs to an account.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.ResendVerification(r.Context(), req.Email); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, envelope{
		"message": "If the account exists and is unverified, a new verification email has been sent.",
	})
}
