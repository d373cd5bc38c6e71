package models

import "time"

// Assignment lifecycle states. Pending is declared but no workflow step enters or leaves it.
const (
	AssignmentActive   = "active"
	AssignmentReturned = "returned"
	AssignmentPending  = "pending"
)

var AssignmentStatuses = []string{AssignmentActive, AssignmentReturned, AssignmentPending}

// Assignment links one person to one asset. UserID and AssetID are references
// into other aggregates and are not enforced by the database.
type Assignment struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	AssetID        string     `json:"assetId"`
	AssignmentDate time.Time  `json:"assignmentDate"`
	ReturnDate     *time.Time `json:"returnDate,omitempty"`
	Status         string     `json:"status"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func ValidAssignmentStatus(s string) bool {
	for _, v := range AssignmentStatuses {
		if v == s {
			return true
		}
	}
	return false
}
