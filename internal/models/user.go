package models

import "time"

// Roles carried in credentials.
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

// User is an identity held by the credential service. SubjectID is the
// identifier tokens assert; it matches the personnel directory's userId.
type User struct {
	ID           int       `json:"id"`
	SubjectID    string    `json:"subjectId"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}
