package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/crucial707/itam/internal/apperr"
	"github.com/crucial707/itam/internal/metrics"
	"github.com/crucial707/itam/internal/models"
	"go.uber.org/zap"
)

// repairGrace leaves recently touched assets alone: an assigned asset whose
// assignment row is still being written looks exactly like drift.
const repairGrace = time.Minute

// Violation is one asset whose status disagrees with its active assignments.
type Violation struct {
	AssetID           string `json:"assetId"`
	AssetStatus       string `json:"assetStatus"`
	ActiveAssignments int    `json:"activeAssignments"`
	Problem           string `json:"problem"`
	Repaired          bool   `json:"repaired"`
}

type Report struct {
	CheckedAt  time.Time   `json:"checkedAt"`
	Assets     int         `json:"assetsChecked"`
	Violations []Violation `json:"violations"`
	Repaired   int         `json:"repaired"`
}

// Reconcile compares every asset with its active assignment count. With
// repair set it flips available/assigned to match when exactly zero or one
// active assignment exists. Multiple active assignments, maintenance and
// retired assets, and assignments pointing at missing assets are reported
// only.
func (s *Service) Reconcile(ctx context.Context, repair bool) (*Report, error) {
	assets, err := s.Assets.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	counts, err := s.Assignments.ActiveCounts(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	rep := &Report{CheckedAt: s.now().UTC(), Assets: len(assets), Violations: []Violation{}}
	known := make(map[string]bool, len(assets))

	for _, a := range assets {
		known[a.AssetID] = true
		n := counts[a.AssetID]
		v := Violation{AssetID: a.AssetID, AssetStatus: a.Status, ActiveAssignments: n}

		var want string
		switch {
		case n > 1:
			v.Problem = "multiple active assignments"
		case a.Status == models.AssetAssigned && n == 0:
			v.Problem = "assigned without an active assignment"
			want = models.AssetAvailable
		case a.Status == models.AssetAvailable && n == 1:
			v.Problem = "available with an active assignment"
			want = models.AssetAssigned
		case (a.Status == models.AssetMaintenance || a.Status == models.AssetRetired) && n > 0:
			v.Problem = fmt.Sprintf("%s with an active assignment", a.Status)
		default:
			continue
		}

		if repair && want != "" && s.now().Sub(a.UpdatedAt) < repairGrace {
			s.Log.Info("reconcile repair deferred: asset changed recently",
				zap.String("asset_id", a.AssetID), zap.Time("updated_at", a.UpdatedAt))
		} else if repair && want != "" {
			ok, err := s.Assets.TransitionStatus(ctx, a.AssetID, a.Status, want)
			if err != nil {
				s.Log.Error("reconcile repair failed", zap.String("asset_id", a.AssetID), zap.Error(err))
			} else if ok {
				v.Repaired = true
				rep.Repaired++
				s.audit(ctx, Caller{SubjectID: "system"}, "reconcile", "asset", a.AssetID, a.Status+"->"+want)
			}
		}
		rep.Violations = append(rep.Violations, v)
	}

	orphans := make([]string, 0)
	for assetID := range counts {
		if !known[assetID] {
			orphans = append(orphans, assetID)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		rep.Violations = append(rep.Violations, Violation{
			AssetID:           id,
			ActiveAssignments: counts[id],
			Problem:           "active assignment for a missing asset",
		})
	}

	metrics.SetInconsistentAssets(len(rep.Violations) - rep.Repaired)
	if len(rep.Violations) > 0 {
		s.Log.Warn("reconcile found inconsistencies",
			zap.Int("violations", len(rep.Violations)),
			zap.Int("repaired", rep.Repaired))
	}
	return rep, nil
}
