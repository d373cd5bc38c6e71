package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Person kinds. A person document is one of the two; both live in one collection.
const (
	KindAdmin    = "admin"
	KindEmployee = "employee"
)

// Person is a personnel directory record. Position only applies to employees.
type Person struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID     string             `bson:"userId" json:"userId"`
	Kind       string             `bson:"kind" json:"role"`
	Username   string             `bson:"username" json:"username"`
	Email      string             `bson:"email" json:"email"`
	Department string             `bson:"department,omitempty" json:"department,omitempty"`
	Position   string             `bson:"position,omitempty" json:"position,omitempty"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Status     string             `bson:"status" json:"status"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
