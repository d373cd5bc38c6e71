// Package ledger owns assets and assignments and runs the assignment
// workflow. Asset and assignment rows are separate writes with no shared
// transaction, so every workflow step is ordered to keep the rule "an asset
// is assigned iff exactly one active assignment references it":
//
//	create:  read asset -> confirm person -> reserve asset -> record assignment
//	         (record failure releases the reservation)
//	return:  mark assignment returned -> release asset
//	delete:  delete assignment -> release asset if the assignment was active
//
// Release and compensation only ever flip assigned -> available, so
// maintenance and retired assets are never touched. Writes that fail after
// the assignment side already changed are logged, counted, and left for the
// Reconciler.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crucial707/itam/internal/apperr"
	"github.com/crucial707/itam/internal/metrics"
	"github.com/crucial707/itam/internal/models"
	"github.com/crucial707/itam/internal/repo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssetStore is the asset side of the ledger. *repo.AssetRepo implements it.
type AssetStore interface {
	Create(ctx context.Context, a models.Asset) (*models.Asset, error)
	GetByAssetID(ctx context.Context, assetID string) (*models.Asset, error)
	List(ctx context.Context) ([]models.Asset, error)
	ListByStatus(ctx context.Context, status string) ([]models.Asset, error)
	// Update only writes while the status is still u.ExpectStatus.
	Update(ctx context.Context, assetID string, u repo.AssetUpdate) (*models.Asset, error)
	// TransitionStatus changes status only while it equals from.
	TransitionStatus(ctx context.Context, assetID, from, to string) (bool, error)
	// Delete refuses with repo.ErrInUse while the asset is assigned or referenced.
	Delete(ctx context.Context, assetID string) error
}

// AssignmentStore is the assignment side. *repo.AssignmentRepo implements it.
type AssignmentStore interface {
	Create(ctx context.Context, a *models.Assignment) error
	GetByID(ctx context.Context, id string) (*models.Assignment, error)
	List(ctx context.Context) ([]models.Assignment, error)
	ListByUser(ctx context.Context, userID string) ([]models.Assignment, error)
	ListByAsset(ctx context.Context, assetID string) ([]models.Assignment, error)
	ListByStatus(ctx context.Context, status string) ([]models.Assignment, error)
	UpdateDetails(ctx context.Context, id, notes string, returnDate *time.Time) (*models.Assignment, error)
	Transition(ctx context.Context, id, from, to, notes string, returnDate *time.Time) (*models.Assignment, error)
	Delete(ctx context.Context, id string) (*models.Assignment, error)
	ActiveCounts(ctx context.Context) (map[string]int, error)
}

// Auditor records administrative mutations. *repo.AuditRepo implements it.
type Auditor interface {
	Log(ctx context.Context, actor, action, resourceType, resourceID, details string) error
}

// Caller is who asked, and the bearer token to forward on their behalf.
type Caller struct {
	SubjectID string
	Token     string
}

type Service struct {
	Assets      AssetStore
	Assignments AssignmentStore
	People      Directory
	Audit       Auditor
	Log         *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewService(assets AssetStore, assignments AssignmentStore, people Directory, audit Auditor, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		Assets:      assets,
		Assignments: assignments,
		People:      people,
		Audit:       audit,
		Log:         log,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// ==========================
// Create assignment
// ==========================

type CreateAssignment struct {
	UserID         string
	AssetID        string
	AssignmentDate *time.Time
	Notes          string
}

func (s *Service) CreateAssignment(ctx context.Context, in CreateAssignment, c Caller) (*models.Assignment, error) {
	if in.UserID == "" || in.AssetID == "" {
		return nil, apperr.Invalid("userId and assetId are required")
	}

	asset, err := s.Assets.GetByAssetID(ctx, in.AssetID)
	if err != nil {
		err = assetLookupError(err)
		s.outcome("create", err)
		return nil, err
	}
	if asset.Status != models.AssetAvailable {
		err := unavailableAsset(asset.Status)
		s.outcome("create", err)
		return nil, err
	}

	// Nothing is written before the directory answers.
	if err := s.People.Confirm(ctx, in.UserID, c.Token); err != nil {
		if apperr.Is(err, apperr.KindUnavailable) {
			s.Log.Warn("personnel lookup failed",
				zap.String("user_id", in.UserID),
				zap.String("asset_id", in.AssetID),
				zap.Error(err))
		}
		s.outcome("create", err)
		return nil, err
	}

	reserved, err := s.Assets.TransitionStatus(ctx, in.AssetID, models.AssetAvailable, models.AssetAssigned)
	if err != nil {
		err = apperr.Internal(err)
		s.outcome("create", err)
		return nil, err
	}
	if !reserved {
		err := s.lostReservation(ctx, in.AssetID)
		s.outcome("create", err)
		return nil, err
	}

	date := s.now().UTC()
	if in.AssignmentDate != nil {
		date = *in.AssignmentDate
	}
	a := &models.Assignment{
		ID:             s.newID(),
		UserID:         in.UserID,
		AssetID:        in.AssetID,
		AssignmentDate: date,
		Status:         models.AssignmentActive,
		Notes:          in.Notes,
	}
	if err := s.Assignments.Create(ctx, a); err != nil {
		s.release(ctx, in.AssetID, "compensate")
		if errors.Is(err, repo.ErrDuplicate) {
			err := apperr.Conflict("Asset is already assigned")
			s.outcome("create", err)
			return nil, err
		}
		err = apperr.Internal(err)
		s.outcome("create", err)
		return nil, err
	}

	s.audit(ctx, c, "create", "assignment", a.ID, fmt.Sprintf("asset=%s user=%s", a.AssetID, a.UserID))
	s.outcome("create", nil)
	return a, nil
}

// lostReservation explains why the conditional reserve changed nothing.
func (s *Service) lostReservation(ctx context.Context, assetID string) error {
	asset, err := s.Assets.GetByAssetID(ctx, assetID)
	if err != nil {
		return assetLookupError(err)
	}
	return unavailableAsset(asset.Status)
}

func unavailableAsset(status string) error {
	if status == models.AssetAssigned {
		return apperr.Conflict("Asset is already assigned")
	}
	return apperr.Conflict("Asset is not available")
}

func assetLookupError(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return apperr.NotFound("Asset not found")
	}
	return apperr.Internal(err)
}

// followUpTimeout bounds writes that finish a step already half done.
const followUpTimeout = 5 * time.Second

// detached keeps ctx values but not its cancellation, so a client that hangs
// up or a request deadline cannot strand a half-finished step.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), followUpTimeout)
}

// release flips the asset back to available if, and only if, it is assigned.
// It runs detached from the request. Failures are logged and counted; the
// reconciler repairs them.
func (s *Service) release(ctx context.Context, assetID, reason string) {
	ctx, cancel := detached(ctx)
	defer cancel()
	ok, err := s.Assets.TransitionStatus(ctx, assetID, models.AssetAssigned, models.AssetAvailable)
	switch {
	case err != nil:
		metrics.IncCompensationFailure()
		s.Log.Error("asset release failed",
			zap.String("asset_id", assetID),
			zap.String("reason", reason),
			zap.Error(err))
	case !ok:
		s.Log.Info("asset not released: not currently assigned",
			zap.String("asset_id", assetID),
			zap.String("reason", reason))
	}
}

// ==========================
// Update assignment
// ==========================

type UpdateAssignment struct {
	// Status is the target status. Empty keeps the current one.
	Status     string
	Notes      *string
	ReturnDate *time.Time
}

// UpdateAssignment edits notes and return date, and performs the only
// workflow transition, active -> returned, which releases the asset.
func (s *Service) UpdateAssignment(ctx context.Context, id string, in UpdateAssignment, c Caller) (*models.Assignment, error) {
	if in.Status != "" && !models.ValidAssignmentStatus(in.Status) {
		return nil, apperr.Invalid("Invalid status")
	}

	cur, err := s.Assignments.GetByID(ctx, id)
	if err != nil {
		return nil, assignmentLookupError(err)
	}

	notes := cur.Notes
	if in.Notes != nil {
		notes = *in.Notes
	}

	if in.Status == "" || in.Status == cur.Status {
		returnDate := cur.ReturnDate
		if in.ReturnDate != nil {
			returnDate = in.ReturnDate
		}
		updated, err := s.Assignments.UpdateDetails(ctx, id, notes, returnDate)
		if err != nil {
			return nil, assignmentLookupError(err)
		}
		s.audit(ctx, c, "update", "assignment", id, "details")
		return updated, nil
	}

	if cur.Status != models.AssignmentActive || in.Status != models.AssignmentReturned {
		err := apperr.Invalid(fmt.Sprintf("Invalid status transition from %s to %s", cur.Status, in.Status))
		s.outcome("return", err)
		return nil, err
	}

	returnDate := s.now().UTC()
	if in.ReturnDate != nil {
		returnDate = *in.ReturnDate
	}
	updated, err := s.Assignments.Transition(ctx, id, models.AssignmentActive, models.AssignmentReturned, notes, &returnDate)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			err = apperr.Conflict("Assignment is no longer active")
		} else {
			err = apperr.Internal(err)
		}
		s.outcome("return", err)
		return nil, err
	}

	s.release(ctx, updated.AssetID, "return")
	s.audit(ctx, c, "return", "assignment", id, "asset="+updated.AssetID)
	s.outcome("return", nil)
	return updated, nil
}

// ==========================
// Delete assignment
// ==========================

// DeleteAssignment removes the record. Deleting an active assignment releases
// its asset; deleting a returned one leaves the asset alone, since another
// active assignment may own it by now.
func (s *Service) DeleteAssignment(ctx context.Context, id string, c Caller) (*models.Assignment, error) {
	deleted, err := s.Assignments.Delete(ctx, id)
	if err != nil {
		err = assignmentLookupError(err)
		s.outcome("delete", err)
		return nil, err
	}
	if deleted.Status == models.AssignmentActive {
		s.release(ctx, deleted.AssetID, "delete")
	}
	s.audit(ctx, c, "delete", "assignment", id, "asset="+deleted.AssetID)
	s.outcome("delete", nil)
	return deleted, nil
}

// ==========================
// Reads
// ==========================

func (s *Service) GetAssignment(ctx context.Context, id string) (*models.Assignment, error) {
	a, err := s.Assignments.GetByID(ctx, id)
	if err != nil {
		return nil, assignmentLookupError(err)
	}
	return a, nil
}

func (s *Service) ListAssignments(ctx context.Context) ([]models.Assignment, error) {
	return internal(s.Assignments.List(ctx))
}

func (s *Service) ListAssignmentsByUser(ctx context.Context, userID string) ([]models.Assignment, error) {
	return internal(s.Assignments.ListByUser(ctx, userID))
}

func (s *Service) ListAssignmentsByAsset(ctx context.Context, assetID string) ([]models.Assignment, error) {
	return internal(s.Assignments.ListByAsset(ctx, assetID))
}

func (s *Service) ListAssignmentsByStatus(ctx context.Context, status string) ([]models.Assignment, error) {
	if !models.ValidAssignmentStatus(status) {
		return nil, apperr.Invalid("Invalid status")
	}
	return internal(s.Assignments.ListByStatus(ctx, status))
}

func assignmentLookupError(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return apperr.NotFound("Assignment not found")
	}
	return apperr.Internal(err)
}

func internal[T any](v T, err error) (T, error) {
	if err != nil {
		return v, apperr.Internal(err)
	}
	return v, nil
}

// ==========================
// Bookkeeping
// ==========================

func (s *Service) audit(ctx context.Context, c Caller, action, resourceType, resourceID, details string) {
	if s.Audit == nil {
		return
	}
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := s.Audit.Log(ctx, c.SubjectID, action, resourceType, resourceID, details); err != nil {
		s.Log.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) outcome(op string, err error) {
	if err == nil {
		metrics.RecordAssignment(op, "ok")
		return
	}
	metrics.RecordAssignment(op, apperr.KindOf(err).String())
}
