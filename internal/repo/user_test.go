package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"
)

var userCols = []string{"id", "subject_id", "username", "email", "password_hash", "role", "created_at"}

func TestUserRepo_Create_HashesPassword(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users \(subject_id, username, email, password_hash, role\)`).
		WithArgs("U1", "alice", "alice@example.com", sqlmock.AnyArg(), "employee").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "U1", "alice", "alice@example.com", "$2a$hash", "employee", time.Now()))

	r := NewUserRepo(db)
	u, err := r.Create(context.Background(), "U1", "alice", "alice@example.com", "s3cret", "employee")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.SubjectID != "U1" || u.Role != "employee" {
		t.Errorf("unexpected user: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_GetByLogin_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1 OR email = \$1`).
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	r := NewUserRepo(db)
	if _, err := r.GetByLogin(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByLogin: got %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	mock.ExpectQuery(`SELECT .+ FROM users WHERE subject_id = \$1`).
		WithArgs("U1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "U1", "alice", "a@example.com", string(hash), "admin", time.Now()))

	u, err := NewUserRepo(db).GetBySubjectID(context.Background(), "U1")
	if err != nil {
		t.Fatalf("GetBySubjectID: %v", err)
	}
	if !CheckPassword(u, "pw") {
		t.Error("expected password to match")
	}
	if CheckPassword(u, "wrong") {
		t.Error("expected wrong password to fail")
	}
}
