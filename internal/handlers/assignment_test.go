package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"
)

var assignmentCols = []string{"id", "user_id", "asset_id", "assignment_date", "return_date", "status", "notes", "created_at", "updated_at"}

// personnelStub answers GET /users/{id} with status for every lookup and
// records the Authorization header it saw.
func personnelStub(t *testing.T, status int, gotAuth *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotAuth != nil {
			*gotAuth = r.Header.Get("Authorization")
		}
		w.WriteHeader(status)
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAssignmentHandler_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	var auth string
	people := personnelStub(t, http.StatusOK, &auth)

	mock.ExpectQuery(`SELECT .+ FROM assets WHERE asset_id = \$1`).
		WithArgs("A1").
		WillReturnRows(addAsset(sqlmock.NewRows(assetCols), 1, "A1", "available"))
	mock.ExpectExec(`UPDATE assets SET status = \$3`).
		WithArgs("A1", "available", "assigned").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO assignments`).
		WithArgs(sqlmock.AnyArg(), "u1", "A1", sqlmock.AnyArg(), "active", "desk 4").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))

	h := &AssignmentHandler{Ledger: newTestLedger(db, people.URL), Log: zap.NewNop()}
	body, _ := json.Marshal(map[string]string{"userId": "u1", "assetId": "A1", "notes": "desk 4"})
	rr := httptest.NewRecorder()
	h.CreateAssignment(rr, requestWithChiURLParams("POST", "/assignments", body, nil))

	if rr.Code != http.StatusCreated {
		t.Fatalf("CreateAssignment status: got %d, want 201 (%s)", rr.Code, rr.Body.String())
	}
	var out struct {
		ID      string `json:"id"`
		UserID  string `json:"userId"`
		AssetID string `json:"assetId"`
		Status  string `json:"status"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.ID == "" || out.Status != "active" || out.UserID != "u1" {
		t.Errorf("unexpected assignment: %+v", out)
	}
	if auth != "Bearer caller-token" {
		t.Errorf("personnel lookup Authorization: got %q", auth)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAssignmentHandler_Create_AlreadyAssigned(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM assets WHERE asset_id = \$1`).
		WithArgs("A1").
		WillReturnRows(addAsset(sqlmock.NewRows(assetCols), 1, "A1", "assigned"))

	h := &AssignmentHandler{Ledger: newTestLedger(db, ""), Log: zap.NewNop()}
	body, _ := json.Marshal(map[string]string{"userId": "u1", "assetId": "A1"})
	rr := httptest.NewRecorder()
	h.CreateAssignment(rr, requestWithChiURLParams("POST", "/assignments", body, nil))

	if rr.Code != http.StatusConflict {
		t.Errorf("CreateAssignment status: got %d, want 409", rr.Code)
	}
	var out map[string]string
	json.NewDecoder(rr.Body).Decode(&out)
	if out["error"] != "Asset is already assigned" {
		t.Errorf("unexpected error: %q", out["error"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAssignmentHandler_Create_UnknownUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	people := personnelStub(t, http.StatusNotFound, nil)
	mock.ExpectQuery(`SELECT .+ FROM assets WHERE asset_id = \$1`).
		WithArgs("A1").
		WillReturnRows(addAsset(sqlmock.NewRows(assetCols), 1, "A1", "available"))

	h := &AssignmentHandler{Ledger: newTestLedger(db, people.URL), Log: zap.NewNop()}
	body, _ := json.Marshal(map[string]string{"userId": "ghost", "assetId": "A1"})
	rr := httptest.NewRecorder()
	h.CreateAssignment(rr, requestWithChiURLParams("POST", "/assignments", body, nil))

	if rr.Code != http.StatusNotFound {
		t.Errorf("CreateAssignment status: got %d, want 404", rr.Code)
	}
	// No reservation or insert may follow a failed lookup.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAssignmentHandler_Create_PersonnelDown(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	people := personnelStub(t, http.StatusInternalServerError, nil)
	mock.ExpectQuery(`SELECT .+ FROM assets WHERE asset_id = \$1`).
		WithArgs("A1").
		WillReturnRows(addAsset(sqlmock.NewRows(assetCols), 1, "A1", "available"))

	h := &AssignmentHandler{Ledger: newTestLedger(db, people.URL), Log: zap.NewNop()}
	body, _ := json.Marshal(map[string]string{"userId": "u1", "assetId": "A1"})
	rr := httptest.NewRecorder()
	h.CreateAssignment(rr, requestWithChiURLParams("POST", "/assignments", body, nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("CreateAssignment status: got %d, want 503", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAssignmentHandler_Create_BadDate(t *testing.T) {
	h := &AssignmentHandler{Log: zap.NewNop()}
	body, _ := json.Marshal(map[string]string{"userId": "u1", "assetId": "A1", "assignmentDate": "last tuesday"})
	rr := httptest.NewRecorder()
	h.CreateAssignment(rr, requestWithChiURLParams("POST", "/assignments", body, nil))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("CreateAssignment status: got %d, want 400", rr.Code)
	}
}

func TestAssignmentHandler_Return(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM assignments WHERE id = \$1`).
		WithArgs("as-1").
		WillReturnRows(sqlmock.NewRows(assignmentCols).AddRow("as-1", "u1", "A1", now, nil, "active", "", now, now))
	mock.ExpectQuery(`UPDATE assignments SET status = \$3`).
		WithArgs("as-1", "active", "returned", "", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(assignmentCols).AddRow("as-1", "u1", "A1", now, now, "returned", "", now, now))
	mock.ExpectExec(`UPDATE assets SET status = \$3`).
		WithArgs("A1", "assigned", "available").
		WillReturnResult(sqlmock.NewResult(0, 1))

	h := &AssignmentHandler{Ledger: newTestLedger(db, ""), Log: zap.NewNop()}
	body := []byte(`{"status":"returned"}`)
	rr := httptest.NewRecorder()
	h.UpdateAssignment(rr, requestWithChiURLParams("PUT", "/assignments/as-1", body, map[string]string{"id": "as-1"}))

	if rr.Code != http.StatusOK {
		t.Fatalf("UpdateAssignment status: got %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAssignmentHandler_InvalidTransition(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM assignments WHERE id = \$1`).
		WithArgs("as-1").
		WillReturnRows(sqlmock.NewRows(assignmentCols).AddRow("as-1", "u1", "A1", now, now, "returned", "", now, now))

	h := &AssignmentHandler{Ledger: newTestLedger(db, ""), Log: zap.NewNop()}
	rr := httptest.NewRecorder()
	h.UpdateAssignment(rr, requestWithChiURLParams("PUT", "/assignments/as-1", []byte(`{"status":"active"}`), map[string]string{"id": "as-1"}))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("UpdateAssignment status: got %d, want 400", rr.Code)
	}
	var out map[string]string
	json.NewDecoder(rr.Body).Decode(&out)
	if out["error"] != "Invalid status transition from returned to active" {
		t.Errorf("unexpected error: %q", out["error"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAssignmentHandler_Delete_ActiveReleasesAsset(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`DELETE FROM assignments WHERE id = \$1`).
		WithArgs("as-1").
		WillReturnRows(sqlmock.NewRows(assignmentCols).AddRow("as-1", "u1", "A1", now, nil, "active", "", now, now))
	mock.ExpectExec(`UPDATE assets SET status = \$3`).
		WithArgs("A1", "assigned", "available").
		WillReturnResult(sqlmock.NewResult(0, 1))

	h := &AssignmentHandler{Ledger: newTestLedger(db, ""), Log: zap.NewNop()}
	rr := httptest.NewRecorder()
	h.DeleteAssignment(rr, requestWithChiURLParams("DELETE", "/assignments/as-1", nil, map[string]string{"id": "as-1"}))

	if rr.Code != http.StatusOK {
		t.Errorf("DeleteAssignment status: got %d, want 200", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAssignmentHandler_ListByStatus_Invalid(t *testing.T) {
	h := &AssignmentHandler{Log: zap.NewNop()}
	h.Ledger = newTestLedger(nil, "")
	rr := httptest.NewRecorder()
	h.ListByStatus(rr, requestWithChiURLParams("GET", "/assignments/status/lost", nil, map[string]string{"status": "lost"}))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("ListByStatus status: got %d, want 400", rr.Code)
	}
}
