package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/crucial707/itam/internal/apperr"
	"github.com/crucial707/itam/internal/models"
	"github.com/crucial707/itam/internal/repo"
	"go.uber.org/zap"
)

// Administrative asset operations. They refuse any edit that would move an
// asset into or out of assigned, since only the assignment workflow may.

func (s *Service) CreateAsset(ctx context.Context, a models.Asset, c Caller) (*models.Asset, error) {
	created, err := s.Assets.Create(ctx, a)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, apperr.Conflict("Asset ID or serial number already exists")
		}
		return nil, apperr.Internal(err)
	}
	s.audit(ctx, c, "create", "asset", created.AssetID, created.Name)
	return created, nil
}

func (s *Service) GetAsset(ctx context.Context, assetID string) (*models.Asset, error) {
	a, err := s.Assets.GetByAssetID(ctx, assetID)
	if err != nil {
		return nil, assetLookupError(err)
	}
	return a, nil
}

func (s *Service) ListAssets(ctx context.Context) ([]models.Asset, error) {
	return internal(s.Assets.List(ctx))
}

func (s *Service) ListAssetsByStatus(ctx context.Context, status string) ([]models.Asset, error) {
	if !models.ValidAssetStatus(status) {
		return nil, apperr.Invalid("Invalid status")
	}
	return internal(s.Assets.ListByStatus(ctx, status))
}

// AssetEdit carries the fields an administrator may change. Empty strings and
// a nil PurchaseDate keep the current value.
type AssetEdit struct {
	Name         string
	Type         string
	Model        string
	SerialNumber string
	PurchaseDate *time.Time
	Warranty     string
	Location     string
	Status       string
}

// editAttempts bounds how often an edit re-reads after losing a race with the
// assignment workflow.
const editAttempts = 3

// UpdateAsset writes only while the asset keeps the status it was read with,
// so an edit can never undo a reservation that landed in between.
func (s *Service) UpdateAsset(ctx context.Context, assetID string, e AssetEdit, c Caller) (*models.Asset, error) {
	if e.Status != "" && !models.ValidAssetStatus(e.Status) {
		return nil, apperr.Invalid("Invalid status")
	}
	for attempt := 0; attempt < editAttempts; attempt++ {
		cur, err := s.Assets.GetByAssetID(ctx, assetID)
		if err != nil {
			return nil, assetLookupError(err)
		}
		if e.Status != "" && e.Status != cur.Status &&
			(cur.Status == models.AssetAssigned || e.Status == models.AssetAssigned) {
			return nil, apperr.Conflict("Asset status assigned is managed by assignments")
		}

		u := repo.AssetUpdate{
			Name:         pick(e.Name, cur.Name),
			Type:         pick(e.Type, cur.Type),
			Model:        pick(e.Model, cur.Model),
			SerialNumber: pick(e.SerialNumber, cur.SerialNumber),
			PurchaseDate: cur.PurchaseDate,
			Warranty:     pick(e.Warranty, cur.Warranty),
			Location:     pick(e.Location, cur.Location),
			Status:       pick(e.Status, cur.Status),
			ExpectStatus: cur.Status,
		}
		if e.PurchaseDate != nil {
			u.PurchaseDate = *e.PurchaseDate
		}

		updated, err := s.Assets.Update(ctx, assetID, u)
		if errors.Is(err, repo.ErrStale) {
			s.Log.Info("asset edit raced a status change, re-reading",
				zap.String("asset_id", assetID), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, repo.ErrNotFound):
				return nil, apperr.NotFound("Asset not found")
			case errors.Is(err, repo.ErrDuplicate):
				return nil, apperr.Conflict("Asset ID or serial number already exists")
			}
			return nil, apperr.Internal(err)
		}
		s.audit(ctx, c, "update", "asset", assetID, "status="+updated.Status)
		return updated, nil
	}
	return nil, apperr.Conflict("Asset changed while it was being edited, try again")
}

// DeleteAsset refuses while the asset is assigned or an active assignment
// references it. The check and the delete are one conditional write.
func (s *Service) DeleteAsset(ctx context.Context, assetID string, c Caller) error {
	if err := s.Assets.Delete(ctx, assetID); err != nil {
		switch {
		case errors.Is(err, repo.ErrInUse):
			return apperr.Conflict("Asset has an active assignment")
		case errors.Is(err, repo.ErrNotFound):
			return apperr.NotFound("Asset not found")
		}
		return apperr.Internal(err)
	}
	s.audit(ctx, c, "delete", "asset", assetID, "")
	return nil
}

func pick(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
