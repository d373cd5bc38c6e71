package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/crucial707/itam/internal/models"
)

// ========================
// REPOSITORY STRUCT
// ========================

type AssetRepo struct {
	DB *sql.DB
}

func NewAssetRepo(db *sql.DB) *AssetRepo {
	return &AssetRepo{DB: db}
}

const assetColumns = `id, asset_id, name, type, model, serial_number, purchase_date, warranty, location, status, created_at, updated_at`

func scanAsset(s scanner) (*models.Asset, error) {
	a := &models.Asset{}
	err := s.Scan(
		&a.ID,
		&a.AssetID,
		&a.Name,
		&a.Type,
		&a.Model,
		&a.SerialNumber,
		&a.PurchaseDate,
		&a.Warranty,
		&a.Location,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ========================
// CREATE ASSET
// ========================

// Create inserts a new asset. Status always starts as available.
func (r *AssetRepo) Create(ctx context.Context, a models.Asset) (*models.Asset, error) {
	row := r.DB.QueryRowContext(ctx,
		`INSERT INTO assets (asset_id, name, type, model, serial_number, purchase_date, warranty, location, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'available')
		 RETURNING `+assetColumns,
		a.AssetID, a.Name, a.Type, a.Model, a.SerialNumber, a.PurchaseDate, a.Warranty, a.Location,
	)
	created, err := scanAsset(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create asset: %w", err)
	}
	return created, nil
}

// ========================
// GET ASSET BY ASSET ID
// ========================

func (r *AssetRepo) GetByAssetID(ctx context.Context, assetID string) (*models.Asset, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE asset_id = $1`,
		assetID,
	)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return a, nil
}

// ========================
// LIST ASSETS
// ========================

// List returns every asset, newest first.
func (r *AssetRepo) List(ctx context.Context) ([]models.Asset, error) {
	return r.query(ctx, `SELECT `+assetColumns+` FROM assets ORDER BY created_at DESC, id DESC`)
}

// ListByStatus returns assets in one lifecycle state, newest first.
func (r *AssetRepo) ListByStatus(ctx context.Context, status string) ([]models.Asset, error) {
	return r.query(ctx, `SELECT `+assetColumns+` FROM assets WHERE status = $1 ORDER BY created_at DESC, id DESC`, status)
}

func (r *AssetRepo) query(ctx context.Context, q string, args ...any) ([]models.Asset, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	assets := []models.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// ========================
// UPDATE ASSET
// ========================

// AssetUpdate holds the administrator-editable fields. ExpectStatus is the
// status the caller read; the write only lands while the row still has it.
type AssetUpdate struct {
	Name         string
	Type         string
	Model        string
	SerialNumber string
	PurchaseDate time.Time
	Warranty     string
	Location     string
	Status       string
	ExpectStatus string
}

// Update writes u if the asset is still in u.ExpectStatus. A row that moved
// on returns ErrStale; a missing row returns ErrNotFound.
func (r *AssetRepo) Update(ctx context.Context, assetID string, u AssetUpdate) (*models.Asset, error) {
	row := r.DB.QueryRowContext(ctx,
		`UPDATE assets
		 SET name = $2, type = $3, model = $4, serial_number = $5, purchase_date = $6,
		     warranty = $7, location = $8, status = $9, updated_at = NOW()
		 WHERE asset_id = $1 AND status = $10
		 RETURNING `+assetColumns,
		assetID, u.Name, u.Type, u.Model, u.SerialNumber, u.PurchaseDate, u.Warranty, u.Location, u.Status, u.ExpectStatus,
	)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.missingOr(ctx, assetID, ErrStale)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("update asset: %w", err)
	}
	return a, nil
}

// missingOr tells apart a guarded write that matched nothing because the row
// is gone (ErrNotFound) from one whose guard failed (otherwise).
func (r *AssetRepo) missingOr(ctx context.Context, assetID string, otherwise error) error {
	var one int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM assets WHERE asset_id = $1`, assetID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check asset: %w", err)
	}
	return otherwise
}

// ========================
// CONDITIONAL STATUS TRANSITION
// ========================

// TransitionStatus moves the asset from one status to another only if it is
// currently in from. It reports whether the row changed; false means the
// asset is missing or was not in from. This single statement is the per-asset
// concurrency guard for the assignment workflow.
func (r *AssetRepo) TransitionStatus(ctx context.Context, assetID, from, to string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE assets SET status = $3, updated_at = NOW() WHERE asset_id = $1 AND status = $2`,
		assetID, from, to,
	)
	if err != nil {
		return false, fmt.Errorf("transition asset %s %s->%s: %w", assetID, from, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ========================
// DELETE ASSET
// ========================

// Delete removes the asset unless it is assigned or an active assignment
// still references it. Both checks run inside the one statement, so a
// reservation that lands first makes the delete match nothing.
func (r *AssetRepo) Delete(ctx context.Context, assetID string) error {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM assets
		 WHERE asset_id = $1 AND status <> 'assigned'
		   AND NOT EXISTS (SELECT 1 FROM assignments WHERE asset_id = $1 AND status = 'active')`,
		assetID,
	)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return r.missingOr(ctx, assetID, ErrInUse)
	}
	return nil
}
