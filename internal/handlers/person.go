package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/crucial707/itam/internal/apperr"
	"github.com/crucial707/itam/internal/models"
	"github.com/crucial707/itam/internal/repo"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PersonStore is the personnel directory's storage. *repo.PersonRepo implements it.
type PersonStore interface {
	Get(ctx context.Context, id string) (*models.Person, error)
	List(ctx context.Context) ([]models.Person, error)
	ListByKind(ctx context.Context, kind string) ([]models.Person, error)
	Create(ctx context.Context, p models.Person) (*models.Person, error)
	Update(ctx context.Context, id string, u repo.PersonUpdate) (*models.Person, error)
	Delete(ctx context.Context, id string) (*models.Person, error)
}

// ==========================
// PersonHandler
// ==========================
type PersonHandler struct {
	Store PersonStore
	Log   *zap.Logger
}

func (h *PersonHandler) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		JSONError(w, "User not found", http.StatusNotFound)
	case errors.Is(err, repo.ErrDuplicate):
		JSONError(w, "User ID or email already exists", http.StatusConflict)
	default:
		WriteError(w, h.Log, apperr.Internal(err))
	}
}

// ==========================
// List / Get
// ==========================
func (h *PersonHandler) ListPeople(w http.ResponseWriter, r *http.Request) {
	people, err := h.Store.List(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}

func (h *PersonHandler) ListByRole(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	if role != models.KindAdmin && role != models.KindEmployee {
		JSONError(w, "Invalid role", http.StatusBadRequest)
		return
	}
	people, err := h.Store.ListByKind(r.Context(), role)
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}

// GetPerson is the lookup the ledger calls while creating an assignment.
func (h *PersonHandler) GetPerson(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ==========================
// Create
// ==========================
func (h *PersonHandler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var input struct {
		UserID     string `json:"userId" validate:"required,max=64"`
		Role       string `json:"role" validate:"required,oneof=admin employee"`
		Username   string `json:"username" validate:"required,min=2,max=64"`
		Email      string `json:"email" validate:"required,email"`
		Department string `json:"department" validate:"max=128"`
		Position   string `json:"position" validate:"max=128"`
		Phone      string `json:"phone" validate:"max=32"`
		Status     string `json:"status" validate:"omitempty,oneof=active inactive"`
	}
	if !decode(w, r, &input) {
		return
	}

	p, err := h.Store.Create(r.Context(), models.Person{
		UserID:     input.UserID,
		Kind:       input.Role,
		Username:   input.Username,
		Email:      input.Email,
		Department: input.Department,
		Position:   input.Position,
		Phone:      input.Phone,
		Status:     input.Status,
	})
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ==========================
// Update
// ==========================
func (h *PersonHandler) UpdatePerson(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Role       string `json:"role" validate:"omitempty,oneof=admin employee"`
		Username   string `json:"username" validate:"omitempty,min=2,max=64"`
		Email      string `json:"email" validate:"omitempty,email"`
		Department string `json:"department" validate:"max=128"`
		Position   string `json:"position" validate:"max=128"`
		Phone      string `json:"phone" validate:"max=32"`
		Status     string `json:"status" validate:"omitempty,oneof=active inactive"`
	}
	if !decode(w, r, &input) {
		return
	}

	p, err := h.Store.Update(r.Context(), chi.URLParam(r, "id"), repo.PersonUpdate{
		Username:   input.Username,
		Email:      input.Email,
		Kind:       input.Role,
		Department: input.Department,
		Position:   input.Position,
		Phone:      input.Phone,
		Status:     input.Status,
	})
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ==========================
// Delete
// ==========================
func (h *PersonHandler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "User deleted successfully", "user": p})
}
