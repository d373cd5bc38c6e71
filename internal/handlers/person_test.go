package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crucial707/itam/internal/models"
	"github.com/crucial707/itam/internal/repo"
	"go.uber.org/zap"
)

// fakePeople is an in-memory PersonStore keyed by userId.
type fakePeople struct {
	byID map[string]models.Person
	err  error
}

func newFakePeople(people ...models.Person) *fakePeople {
	f := &fakePeople{byID: map[string]models.Person{}}
	for _, p := range people {
		f.byID[p.UserID] = p
	}
	return f
}

func (f *fakePeople) Get(_ context.Context, id string) (*models.Person, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &p, nil
}

func (f *fakePeople) List(ctx context.Context) ([]models.Person, error) {
	return f.ListByKind(ctx, "")
}

func (f *fakePeople) ListByKind(_ context.Context, kind string) ([]models.Person, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Person{}
	for _, p := range f.byID {
		if kind == "" || p.Kind == kind {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePeople) Create(_ context.Context, p models.Person) (*models.Person, error) {
	if _, ok := f.byID[p.UserID]; ok {
		return nil, repo.ErrDuplicate
	}
	if p.Status == "" {
		p.Status = "active"
	}
	f.byID[p.UserID] = p
	return &p, nil
}

func (f *fakePeople) Update(_ context.Context, id string, u repo.PersonUpdate) (*models.Person, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if u.Department != "" {
		p.Department = u.Department
	}
	if u.Status != "" {
		p.Status = u.Status
	}
	f.byID[id] = p
	return &p, nil
}

func (f *fakePeople) Delete(_ context.Context, id string) (*models.Person, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	delete(f.byID, id)
	return &p, nil
}

var (
	alice = models.Person{UserID: "u1", Kind: models.KindAdmin, Username: "alice", Email: "alice@example.com", Status: "active"}
	bob   = models.Person{UserID: "u2", Kind: models.KindEmployee, Username: "bob", Email: "bob@example.com", Position: "tech", Status: "active"}
)

func TestPersonHandler_GetPerson(t *testing.T) {
	h := &PersonHandler{Store: newFakePeople(alice, bob), Log: zap.NewNop()}

	rr := httptest.NewRecorder()
	h.GetPerson(rr, requestWithChiURLParams("GET", "/users/u2", nil, map[string]string{"id": "u2"}))
	if rr.Code != http.StatusOK {
		t.Fatalf("GetPerson status: got %d, want 200", rr.Code)
	}
	var out struct {
		UserID string `json:"userId"`
		Role   string `json:"role"`
	}
	json.NewDecoder(rr.Body).Decode(&out)
	if out.UserID != "u2" || out.Role != "employee" {
		t.Errorf("unexpected person: %+v", out)
	}

	rr = httptest.NewRecorder()
	h.GetPerson(rr, requestWithChiURLParams("GET", "/users/ghost", nil, map[string]string{"id": "ghost"}))
	if rr.Code != http.StatusNotFound {
		t.Errorf("GetPerson missing: got %d, want 404", rr.Code)
	}
}

func TestPersonHandler_StoreFailure(t *testing.T) {
	store := newFakePeople()
	store.err = errors.New("server selection timeout")
	h := &PersonHandler{Store: store, Log: zap.NewNop()}

	rr := httptest.NewRecorder()
	h.GetPerson(rr, requestWithChiURLParams("GET", "/users/u1", nil, map[string]string{"id": "u1"}))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("GetPerson status: got %d, want 500", rr.Code)
	}
	var out map[string]string
	json.NewDecoder(rr.Body).Decode(&out)
	if out["error"] != ErrMessageInternal {
		t.Errorf("leaked error detail: %q", out["error"])
	}
}

func TestPersonHandler_ListByRole(t *testing.T) {
	h := &PersonHandler{Store: newFakePeople(alice, bob), Log: zap.NewNop()}

	rr := httptest.NewRecorder()
	h.ListByRole(rr, requestWithChiURLParams("GET", "/users/role/admin", nil, map[string]string{"role": "admin"}))
	var list []models.Person
	json.NewDecoder(rr.Body).Decode(&list)
	if rr.Code != http.StatusOK || len(list) != 1 || list[0].UserID != "u1" {
		t.Errorf("ListByRole admin: got %d %+v", rr.Code, list)
	}

	rr = httptest.NewRecorder()
	h.ListByRole(rr, requestWithChiURLParams("GET", "/users/role/contractor", nil, map[string]string{"role": "contractor"}))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("ListByRole invalid: got %d, want 400", rr.Code)
	}
}

func TestPersonHandler_CreatePerson(t *testing.T) {
	store := newFakePeople(alice)
	h := &PersonHandler{Store: store, Log: zap.NewNop()}

	body, _ := json.Marshal(map[string]string{"userId": "u3", "role": "employee", "username": "carol", "email": "carol@example.com"})
	rr := httptest.NewRecorder()
	h.CreatePerson(rr, requestWithChiURLParams("POST", "/users", body, nil))
	if rr.Code != http.StatusCreated {
		t.Fatalf("CreatePerson status: got %d, want 201 (%s)", rr.Code, rr.Body.String())
	}
	if _, ok := store.byID["u3"]; !ok {
		t.Error("person not stored")
	}

	body, _ = json.Marshal(map[string]string{"userId": "u1", "role": "admin", "username": "alice", "email": "alice@example.com"})
	rr = httptest.NewRecorder()
	h.CreatePerson(rr, requestWithChiURLParams("POST", "/users", body, nil))
	if rr.Code != http.StatusConflict {
		t.Errorf("CreatePerson duplicate: got %d, want 409", rr.Code)
	}

	body, _ = json.Marshal(map[string]string{"userId": "u4", "role": "contractor", "username": "dave", "email": "dave@example.com"})
	rr = httptest.NewRecorder()
	h.CreatePerson(rr, requestWithChiURLParams("POST", "/users", body, nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("CreatePerson bad role: got %d, want 400", rr.Code)
	}
}

func TestPersonHandler_UpdateAndDelete(t *testing.T) {
	store := newFakePeople(bob)
	h := &PersonHandler{Store: store, Log: zap.NewNop()}

	rr := httptest.NewRecorder()
	h.UpdatePerson(rr, requestWithChiURLParams("PUT", "/users/u2", []byte(`{"department":"IT"}`), map[string]string{"id": "u2"}))
	if rr.Code != http.StatusOK || store.byID["u2"].Department != "IT" {
		t.Errorf("UpdatePerson: got %d, department %q", rr.Code, store.byID["u2"].Department)
	}

	rr = httptest.NewRecorder()
	h.DeletePerson(rr, requestWithChiURLParams("DELETE", "/users/u2", nil, map[string]string{"id": "u2"}))
	if rr.Code != http.StatusOK {
		t.Errorf("DeletePerson status: got %d, want 200", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.DeletePerson(rr, requestWithChiURLParams("DELETE", "/users/u2", nil, map[string]string{"id": "u2"}))
	if rr.Code != http.StatusNotFound {
		t.Errorf("DeletePerson twice: got %d, want 404", rr.Code)
	}
}
