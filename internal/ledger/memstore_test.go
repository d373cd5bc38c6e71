package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/crucial707/itam/internal/apperr"
	"github.com/crucial707/itam/internal/models"
	"github.com/crucial707/itam/internal/repo"
)

// memAssets mimics AssetRepo, including the conditional status update.
type memAssets struct {
	mu     sync.Mutex
	byID   map[string]*models.Asset
	seq    int64
	failTx error // returned by TransitionStatus when set
	// beforeWrite runs once, just ahead of the next Update or Delete, to
	// interleave another operation between a read and the guarded write.
	beforeWrite func()
}

func (m *memAssets) interleave() {
	if h := m.beforeWrite; h != nil {
		m.beforeWrite = nil
		h()
	}
}

func newMemAssets() *memAssets {
	return &memAssets{byID: make(map[string]*models.Asset)}
}

func (m *memAssets) put(assetID, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.byID[assetID] = &models.Asset{ID: m.seq, AssetID: assetID, SerialNumber: "SN-" + assetID, Status: status,
		CreatedAt: time.Unix(m.seq, 0)}
}

func (m *memAssets) status(assetID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byID[assetID]; ok {
		return a.Status
	}
	return ""
}

func (m *memAssets) Create(_ context.Context, a models.Asset) (*models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.AssetID == a.AssetID || x.SerialNumber == a.SerialNumber {
			return nil, repo.ErrDuplicate
		}
	}
	m.seq++
	a.ID = m.seq
	a.Status = models.AssetAvailable
	a.CreatedAt = time.Unix(m.seq, 0)
	m.byID[a.AssetID] = &a
	out := a
	return &out, nil
}

func (m *memAssets) GetByAssetID(_ context.Context, assetID string) (*models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[assetID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	out := *a
	return &out, nil
}

func (m *memAssets) List(ctx context.Context) ([]models.Asset, error) {
	return m.ListByStatus(ctx, "")
}

func (m *memAssets) ListByStatus(_ context.Context, status string) ([]models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Asset{}
	for _, a := range m.byID {
		if status == "" || a.Status == status {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memAssets) Update(_ context.Context, assetID string, u repo.AssetUpdate) (*models.Asset, error) {
	m.interleave()
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[assetID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if a.Status != u.ExpectStatus {
		return nil, repo.ErrStale
	}
	a.Name, a.Type, a.Model, a.SerialNumber = u.Name, u.Type, u.Model, u.SerialNumber
	a.PurchaseDate, a.Warranty, a.Location, a.Status = u.PurchaseDate, u.Warranty, u.Location, u.Status
	out := *a
	return &out, nil
}

func (m *memAssets) TransitionStatus(ctx context.Context, assetID, from, to string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTx != nil {
		return false, m.failTx
	}
	a, ok := m.byID[assetID]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	return true, nil
}

func (m *memAssets) Delete(_ context.Context, assetID string) error {
	m.interleave()
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[assetID]
	if !ok {
		return repo.ErrNotFound
	}
	if a.Status == models.AssetAssigned {
		return repo.ErrInUse
	}
	delete(m.byID, assetID)
	return nil
}

// memAssignments mimics AssignmentRepo, including the one-active-per-asset index.
type memAssignments struct {
	mu         sync.Mutex
	byID       map[string]*models.Assignment
	order      []string
	failCreate error
	// onCreate and onTransition run inside the matching call, before it
	// checks its context, the way a driver notices a cancelled request mid-write.
	onCreate     func()
	onTransition func()
}

func newMemAssignments() *memAssignments {
	return &memAssignments{byID: make(map[string]*models.Assignment)}
}

func (m *memAssignments) Create(ctx context.Context, a *models.Assignment) error {
	if m.onCreate != nil {
		m.onCreate()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	for _, x := range m.byID {
		if x.AssetID == a.AssetID && x.Status == models.AssignmentActive && a.Status == models.AssignmentActive {
			return repo.ErrDuplicate
		}
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.byID[a.ID] = &cp
	m.order = append(m.order, a.ID)
	return nil
}

func (m *memAssignments) GetByID(_ context.Context, id string) (*models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	out := *a
	return &out, nil
}

func (m *memAssignments) filter(keep func(models.Assignment) bool) []models.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Assignment{}
	for i := len(m.order) - 1; i >= 0; i-- {
		if a, ok := m.byID[m.order[i]]; ok && keep(*a) {
			out = append(out, *a)
		}
	}
	return out
}

func (m *memAssignments) List(context.Context) ([]models.Assignment, error) {
	return m.filter(func(models.Assignment) bool { return true }), nil
}

func (m *memAssignments) ListByUser(_ context.Context, userID string) ([]models.Assignment, error) {
	return m.filter(func(a models.Assignment) bool { return a.UserID == userID }), nil
}

func (m *memAssignments) ListByAsset(_ context.Context, assetID string) ([]models.Assignment, error) {
	return m.filter(func(a models.Assignment) bool { return a.AssetID == assetID }), nil
}

func (m *memAssignments) ListByStatus(_ context.Context, status string) ([]models.Assignment, error) {
	return m.filter(func(a models.Assignment) bool { return a.Status == status }), nil
}

func (m *memAssignments) UpdateDetails(_ context.Context, id, notes string, returnDate *time.Time) (*models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	a.Notes, a.ReturnDate = notes, returnDate
	out := *a
	return &out, nil
}

func (m *memAssignments) Transition(_ context.Context, id, from, to, notes string, returnDate *time.Time) (*models.Assignment, error) {
	if m.onTransition != nil {
		m.onTransition()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok || a.Status != from {
		return nil, repo.ErrNotFound
	}
	a.Status, a.Notes, a.ReturnDate = to, notes, returnDate
	out := *a
	return &out, nil
}

func (m *memAssignments) Delete(_ context.Context, id string) (*models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	delete(m.byID, id)
	return a, nil
}

func (m *memAssignments) ActiveCounts(context.Context) (map[string]int, error) {
	out := make(map[string]int)
	for _, a := range m.filter(func(a models.Assignment) bool { return a.Status == models.AssignmentActive }) {
		out[a.AssetID]++
	}
	return out, nil
}

// forceActive inserts an active assignment without any checks, to build
// inconsistent fixtures.
func (m *memAssignments) forceActive(id, assetID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id] = &models.Assignment{ID: id, AssetID: assetID, UserID: "U1", Status: models.AssignmentActive}
	m.order = append(m.order, id)
}

// memDirectory knows a fixed set of people, or fails every lookup with down.
type memDirectory struct {
	people map[string]bool
	down   error
}

func (d *memDirectory) Confirm(_ context.Context, userID, _ string) error {
	if d.down != nil {
		return apperr.Unavailable("User service unavailable", d.down)
	}
	if !d.people[userID] {
		return apperr.NotFound("User not found")
	}
	return nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []string
}

func (a *memAudit) Log(_ context.Context, actor, action, resourceType, resourceID, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, actor+" "+action+" "+resourceType+" "+resourceID)
	return nil
}

var errStore = errors.New("store offline")
