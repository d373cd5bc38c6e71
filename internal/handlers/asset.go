package handlers

import (
	"net/http"
	"time"

	"github.com/crucial707/itam/internal/credential"
	"github.com/crucial707/itam/internal/ledger"
	"github.com/crucial707/itam/internal/middleware"
	"github.com/crucial707/itam/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AssetHandler struct {
	Ledger *ledger.Service
	Log    *zap.Logger
}

// callerFrom builds the ledger caller from the authenticated request.
func callerFrom(r *http.Request) ledger.Caller {
	id, _ := middleware.IdentityFrom(r.Context())
	return ledger.Caller{
		SubjectID: id.SubjectID,
		Token:     credential.BearerToken(r.Header.Get("Authorization")),
	}
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(s string) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, true
		}
	}
	return nil, false
}

//
// ==========================
// Create Asset
// ==========================
//

func (h *AssetHandler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var input struct {
		AssetID      string `json:"assetId" validate:"required,max=64"`
		Name         string `json:"assetName" validate:"required,min=2,max=255"`
		Type         string `json:"assetType" validate:"required,max=64"`
		Model        string `json:"model" validate:"max=128"`
		SerialNumber string `json:"serialNumber" validate:"required,max=128"`
		PurchaseDate string `json:"purchaseDate"`
		Warranty     string `json:"warranty" validate:"max=255"`
		Location     string `json:"location" validate:"max=255"`
	}
	if !decode(w, r, &input) {
		return
	}
	purchased, ok := parseDate(input.PurchaseDate)
	if !ok {
		JSONValidationError(w, "validation failed", map[string]string{"purchaseDate": "must be YYYY-MM-DD or RFC 3339"}, http.StatusBadRequest)
		return
	}
	a := models.Asset{
		AssetID:      input.AssetID,
		Name:         input.Name,
		Type:         input.Type,
		Model:        input.Model,
		SerialNumber: input.SerialNumber,
		Warranty:     input.Warranty,
		Location:     input.Location,
	}
	if purchased != nil {
		a.PurchaseDate = *purchased
	} else {
		a.PurchaseDate = time.Now().UTC()
	}

	created, err := h.Ledger.CreateAsset(r.Context(), a, callerFrom(r))
	if err != nil {
		WriteError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

//
// ==========================
// List / Get Assets
// ==========================
//

func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.Ledger.ListAssets(r.Context())
	if err != nil {
		WriteError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

func (h *AssetHandler) ListAssetsByStatus(w http.ResponseWriter, r *http.Request) {
	assets, err := h.Ledger.ListAssetsByStatus(r.Context(), chi.URLParam(r, "status"))
	if err != nil {
		WriteError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	a, err := h.Ledger.GetAsset(r.Context(), chi.URLParam(r, "assetId"))
	if err != nil {
		WriteError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

//
// ==========================
// Update Asset
// ==========================
//

func (h *AssetHandler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name         string `json:"assetName" validate:"omitempty,min=2,max=255"`
		Type         string `json:"assetType" validate:"max=64"`
		Model        string `json:"model" validate:"max=128"`
		SerialNumber string `json:"serialNumber" validate:"max=128"`
		PurchaseDate string `json:"purchaseDate"`
		Warranty     string `json:"warranty" validate:"max=255"`
		Location     string `json:"location" validate:"max=255"`
		Status       string `json:"status" validate:"omitempty,oneof=available assigned maintenance retired"`
	}
	if !decode(w, r, &input) {
		return
	}
	purchased, ok := parseDate(input.PurchaseDate)
	if !ok {
		JSONValidationError(w, "validation failed", map[string]string{"purchaseDate": "must be YYYY-MM-DD or RFC 3339"}, http.StatusBadRequest)
		return
	}

	a, err := h.Ledger.UpdateAsset(r.Context(), chi.URLParam(r, "assetId"), ledger.AssetEdit{
		Name:         input.Name,
		Type:         input.Type,
		Model:        input.Model,
		SerialNumber: input.SerialNumber,
		PurchaseDate: purchased,
		Warranty:     input.Warranty,
		Location:     input.Location,
		Status:       input.Status,
	}, callerFrom(r))
	if err != nil {
		WriteError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

//
// ==========================
// Delete Asset
// ==========================
//

func (h *AssetHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.DeleteAsset(r.Context(), chi.URLParam(r, "assetId"), callerFrom(r)); err != nil {
		WriteError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Asset deleted successfully"})
}
