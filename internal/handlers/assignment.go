package handlers

import (
	"net/http"

	"github.com/crucial707/itam/internal/ledger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ==========================
// AssignmentHandler
// ==========================
type AssignmentHandler struct {
	Ledger *ledger.Service
	Log    *zap.Logger
}

// ==========================
// Create Assignment
// ==========================
func (h *AssignmentHandler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var input struct {
		UserID         string `json:"userId" validate:"required,max=64"`
		AssetID        string `json:"assetId" validate:"required,max=64"`
		AssignmentDate string `json:"assignmentDate"`
		Notes          string `json:"notes" validate:"max=2000"`
	}
	if !decode(w, r, &input) {
		return
	}
	date, ok := parseDate(input.AssignmentDate)
	if !ok {
		JSONValidationError(w, "validation failed", map[string]string{"assignmentDate": "must be YYYY-MM-DD or RFC 3339"}, http.StatusBadRequest)
		return
	}

	a, err := h.Ledger.CreateAssignment(r.Context(), ledger.CreateAssignment{
		UserID:         input.UserID,
		AssetID:        input.AssetID,
		AssignmentDate: date,
		Notes:          input.Notes,
	}, callerFrom(r))
	if err != nil {
		WriteError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// ==========================
// Update Assignment (status, notes, returnDate)
// ==========================
func (h *AssignmentHandler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Status     string  `json:"status"`
		Notes      *string `json:"notes" validate:"omitempty,max=2000"`
		ReturnDate string  `json:"returnDate"`
	}
	if !decode(w, r, &input) {
		return
	}
	returnDate, ok := parseDate(input.ReturnDate)
	if !ok {
		JSONValidationError(w, "validation failed", map[string]string{"returnDate": "must be YYYY-MM-DD or RFC 3339"}, http.StatusBadRequest)
		return
	}

	a, err := h.Ledger.UpdateAssignment(r.Context(), chi.URLParam(r, "id"), ledger.UpdateAssignment{
		Status:     input.Status,
		Notes:      input.Notes,
		ReturnDate: returnDate,
	}, callerFrom(r))
	if err != nil {
		WriteError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ==========================
// Delete Assignment
// ==========================
func (h *AssignmentHandler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Ledger.DeleteAssignment(r.Context(), chi.URLParam(r, "id"), callerFrom(r)); err != nil {
		WriteError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Assignment deleted successfully"})
}

// ==========================
// Reads
// ==========================
func (h *AssignmentHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	list, err := h.Ledger.ListAssignments(r.Context())
	h.respondList(w, list, err)
}

func (h *AssignmentHandler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	a, err := h.Ledger.GetAssignment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AssignmentHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	list, err := h.Ledger.ListAssignmentsByUser(r.Context(), chi.URLParam(r, "userId"))
	h.respondList(w, list, err)
}

func (h *AssignmentHandler) ListByAsset(w http.ResponseWriter, r *http.Request) {
	list, err := h.Ledger.ListAssignmentsByAsset(r.Context(), chi.URLParam(r, "assetId"))
	h.respondList(w, list, err)
}

func (h *AssignmentHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	list, err := h.Ledger.ListAssignmentsByStatus(r.Context(), chi.URLParam(r, "status"))
	h.respondList(w, list, err)
}

func (h *AssignmentHandler) respondList(w http.ResponseWriter, list any, err error) {
	if err != nil {
		WriteError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ==========================
// Reconcile
// ==========================

// Reconcile reports invariant violations; POST also repairs what it safely can.
func (h *AssignmentHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Ledger.Reconcile(r.Context(), r.Method == http.MethodPost)
	if err != nil {
		WriteError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
