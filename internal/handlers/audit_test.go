package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/itam/internal/repo"
)

func TestAuditHandler_ListAudit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, actor, action, resource_type, resource_id, details, created_at`).
		WithArgs(10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "actor", "action", "resource_type", "resource_id", "details", "created_at"}).
			AddRow(7, "system", "repair", "asset", "A1", "assigned without active assignment", time.Now()))

	h := &AuditHandler{Repo: repo.NewAuditRepo(db)}
	rr := httptest.NewRecorder()
	h.ListAudit(rr, httptest.NewRequest("GET", "/assets/audit?limit=10&offset=20", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("ListAudit status: got %d, want 200", rr.Code)
	}
	var out []struct {
		Actor  string `json:"actor"`
		Action string `json:"action"`
	}
	json.NewDecoder(rr.Body).Decode(&out)
	if len(out) != 1 || out[0].Action != "repair" {
		t.Errorf("unexpected entries: %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAuditHandler_ListAudit_ClampsLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM audit_log`).
		WithArgs(50, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "actor", "action", "resource_type", "resource_id", "details", "created_at"}))

	h := &AuditHandler{Repo: repo.NewAuditRepo(db)}
	rr := httptest.NewRecorder()
	h.ListAudit(rr, httptest.NewRequest("GET", "/assets/audit?limit=5000&offset=-3", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("ListAudit status: got %d, want 200", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
