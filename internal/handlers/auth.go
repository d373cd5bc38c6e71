package handlers

import (
	"errors"
	"net/http"

	"github.com/crucial707/itam/internal/apperr"
	"github.com/crucial707/itam/internal/credential"
	"github.com/crucial707/itam/internal/models"
	"github.com/crucial707/itam/internal/repo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	UserRepo *repo.UserRepo
	Issuer   *credential.Issuer
	Log      *zap.Logger
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// ==========================
// Signup (role defaults to employee)
// ==========================
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var input struct {
		UserID   string `json:"userId" validate:"omitempty,max=64"`
		Username string `json:"username" validate:"required,min=3,max=64"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6,max=72"`
		Role     string `json:"role" validate:"omitempty,oneof=admin employee"`
	}
	if !decode(w, r, &input) {
		return
	}
	if input.Role == "" {
		input.Role = models.RoleEmployee
	}
	// userId lets an operator link the login to an existing directory entry.
	if input.UserID == "" {
		input.UserID = uuid.NewString()
	}

	user, err := h.UserRepo.Create(r.Context(), input.UserID, input.Username, input.Email, input.Password, input.Role)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			JSONError(w, "User already exists", http.StatusConflict)
			return
		}
		WriteError(w, h.Log, apperr.Internal(err))
		return
	}

	h.respondWithToken(w, http.StatusCreated, user)
}

// ==========================
// Login (username or email)
// ==========================
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password" validate:"required"`
	}
	if !decode(w, r, &input) {
		return
	}
	login := input.Username
	if login == "" {
		login = input.Email
	}
	if login == "" {
		JSONValidationError(w, "validation failed", map[string]string{"username": "username or email required"}, http.StatusBadRequest)
		return
	}

	user, err := h.UserRepo.GetByLogin(r.Context(), login)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			WriteError(w, h.Log, apperr.Internal(err))
			return
		}
		JSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if !repo.CheckPassword(user, input.Password) {
		JSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user *models.User) {
	token, err := h.Issuer.Issue(credential.Identity{SubjectID: user.SubjectID, Role: user.Role})
	if err != nil {
		WriteError(w, h.Log, apperr.Internal(err))
		return
	}
	writeJSON(w, status, authResponse{Token: token, User: user})
}

// ==========================
// Verify
// ==========================

// Verify is the remote half of the credential contract: the gateway calls it
// instead of holding the signing secret.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, err := h.Issuer.Verify(r.Context(), credential.BearerToken(r.Header.Get("Authorization")))
	if err != nil {
		WriteError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "user": id})
}

// ==========================
// Refresh
// ==========================
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, err := h.Issuer.Verify(r.Context(), credential.BearerToken(r.Header.Get("Authorization")))
	if err != nil {
		WriteError(w, h.Log, err)
		return
	}
	token, err := h.Issuer.Issue(id)
	if err != nil {
		WriteError(w, h.Log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Logout is stateless; the client discards its token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
