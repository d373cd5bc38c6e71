package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/crucial707/itam/internal/models"
)

// AssignmentRepo persists assignments.
type AssignmentRepo struct {
	DB *sql.DB
}

func NewAssignmentRepo(db *sql.DB) *AssignmentRepo {
	return &AssignmentRepo{DB: db}
}

const assignmentColumns = `id, user_id, asset_id, assignment_date, return_date, status, notes, created_at, updated_at`

func scanAssignment(s scanner) (*models.Assignment, error) {
	a := &models.Assignment{}
	var returnDate sql.NullTime
	err := s.Scan(
		&a.ID,
		&a.UserID,
		&a.AssetID,
		&a.AssignmentDate,
		&returnDate,
		&a.Status,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if returnDate.Valid {
		t := returnDate.Time
		a.ReturnDate = &t
	}
	return a, nil
}

// Create inserts a. ID, AssignmentDate and Status must already be set.
// A second active assignment for the same asset is rejected with ErrDuplicate.
func (r *AssignmentRepo) Create(ctx context.Context, a *models.Assignment) error {
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO assignments (id, user_id, asset_id, assignment_date, status, notes)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		a.ID, a.UserID, a.AssetID, a.AssignmentDate, a.Status, a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// GetByID returns one assignment.
func (r *AssignmentRepo) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

// List returns all assignments, newest first.
func (r *AssignmentRepo) List(ctx context.Context) ([]models.Assignment, error) {
	return r.query(ctx, `SELECT `+assignmentColumns+` FROM assignments ORDER BY created_at DESC`)
}

func (r *AssignmentRepo) ListByUser(ctx context.Context, userID string) ([]models.Assignment, error) {
	return r.query(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListByAsset is the assignment history of one asset.
func (r *AssignmentRepo) ListByAsset(ctx context.Context, assetID string) ([]models.Assignment, error) {
	return r.query(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE asset_id = $1 ORDER BY created_at DESC`, assetID)
}

func (r *AssignmentRepo) ListByStatus(ctx context.Context, status string) ([]models.Assignment, error) {
	return r.query(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE status = $1 ORDER BY created_at DESC`, status)
}

func (r *AssignmentRepo) query(ctx context.Context, q string, args ...any) ([]models.Assignment, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	list := []models.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// UpdateDetails rewrites notes and return date; status is untouched.
func (r *AssignmentRepo) UpdateDetails(ctx context.Context, id, notes string, returnDate *time.Time) (*models.Assignment, error) {
	row := r.DB.QueryRowContext(ctx,
		`UPDATE assignments SET notes = $2, return_date = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+assignmentColumns,
		id, notes, nullTime(returnDate),
	)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update assignment: %w", err)
	}
	return a, nil
}

// Transition changes status only while the row is still in from. ErrNotFound
// means the row is gone or another request already moved it.
func (r *AssignmentRepo) Transition(ctx context.Context, id, from, to, notes string, returnDate *time.Time) (*models.Assignment, error) {
	row := r.DB.QueryRowContext(ctx,
		`UPDATE assignments SET status = $3, notes = $4, return_date = $5, updated_at = NOW()
		 WHERE id = $1 AND status = $2
		 RETURNING `+assignmentColumns,
		id, from, to, notes, nullTime(returnDate),
	)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("transition assignment: %w", err)
	}
	return a, nil
}

// Delete removes the assignment and returns the row as it was.
func (r *AssignmentRepo) Delete(ctx context.Context, id string) (*models.Assignment, error) {
	row := r.DB.QueryRowContext(ctx, `DELETE FROM assignments WHERE id = $1 RETURNING `+assignmentColumns, id)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete assignment: %w", err)
	}
	return a, nil
}

// ActiveCounts maps every asset id with at least one active assignment to that count.
func (r *AssignmentRepo) ActiveCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT asset_id, COUNT(*) FROM assignments WHERE status = 'active' GROUP BY asset_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("active counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var assetID string
		var n int
		if err := rows.Scan(&assetID, &n); err != nil {
			return nil, err
		}
		out[assetID] = n
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
