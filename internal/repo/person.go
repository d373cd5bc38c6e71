package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crucial707/itam/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PersonRepo stores admins and employees in one "people" collection,
// discriminated by kind. Lookups are single indexed queries.
type PersonRepo struct {
	c *mongo.Collection
}

func NewPersonRepo(db *mongo.Database) *PersonRepo {
	return &PersonRepo{c: db.Collection("people")}
}

// EnsureIndexes is idempotent; call it at startup.
func (r *PersonRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_userId")},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("kind_createdAt")},
	})
	if err != nil {
		return fmt.Errorf("people indexes: %w", err)
	}
	return nil
}

// idFilter matches the external userId, or the document id when id is an ObjectID hex.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"$or": bson.A{bson.M{"userId": id}, bson.M{"_id": oid}}}
	}
	return bson.M{"userId": id}
}

// Get loads one person by userId (or document id).
func (r *PersonRepo) Get(ctx context.Context, id string) (*models.Person, error) {
	var p models.Person
	if err := r.c.FindOne(ctx, idFilter(id)).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// List returns everyone, newest first.
func (r *PersonRepo) List(ctx context.Context) ([]models.Person, error) {
	return r.find(ctx, bson.M{})
}

// ListByKind returns only admins or only employees.
func (r *PersonRepo) ListByKind(ctx context.Context, kind string) ([]models.Person, error) {
	return r.find(ctx, bson.M{"kind": kind})
}

func (r *PersonRepo) find(ctx context.Context, filter bson.M) ([]models.Person, error) {
	cur, err := r.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	people := []models.Person{}
	if err := cur.All(ctx, &people); err != nil {
		return nil, err
	}
	return people, nil
}

// Create inserts p. Duplicate userId or email returns ErrDuplicate.
func (r *PersonRepo) Create(ctx context.Context, p models.Person) (*models.Person, error) {
	p.ID = primitive.NewObjectID()
	if p.Status == "" {
		p.Status = "active"
	}
	if p.Kind != models.KindEmployee {
		p.Position = ""
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := r.c.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &p, nil
}

// PersonUpdate holds the editable fields. Empty strings leave a field unchanged.
type PersonUpdate struct {
	Username   string
	Email      string
	Kind       string
	Department string
	Position   string
	Phone      string
	Status     string
}

func (u PersonUpdate) set() bson.M {
	set := bson.M{"updatedAt": time.Now().UTC()}
	for k, v := range map[string]string{
		"username":   u.Username,
		"email":      u.Email,
		"kind":       u.Kind,
		"department": u.Department,
		"position":   u.Position,
		"phone":      u.Phone,
		"status":     u.Status,
	} {
		if v != "" {
			set[k] = v
		}
	}
	return set
}

// Update applies u and returns the updated document.
func (r *PersonRepo) Update(ctx context.Context, id string, u PersonUpdate) (*models.Person, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Person
	err := r.c.FindOneAndUpdate(ctx, idFilter(id), bson.M{"$set": u.set()}, opts).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &p, nil
}

// Delete removes one person and returns the removed document.
func (r *PersonRepo) Delete(ctx context.Context, id string) (*models.Person, error) {
	var p models.Person
	if err := r.c.FindOneAndDelete(ctx, idFilter(id)).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Ping verifies the backing deployment for health checks.
func (r *PersonRepo) Ping(ctx context.Context) error {
	return r.c.Database().Client().Ping(ctx, nil)
}
