package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/ports"
)

const collectionDrafts = "registration_drafts"

// DraftRepository implements ports.DraftRepository using MongoDB. One document
// is kept per (user, step).
type DraftRepository struct {
	col *mongo.Collection
}

func NewDraftRepository(db *mongo.Database) *DraftRepository {
	return &DraftRepository{col: db.Collection(collectionDrafts)}
}

type draftDocument struct {
	UserID    string            `bson:"user_id"`
	Step      string            `bson:"step"`
	Fields    map[string]string `bson:"fields"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

// Save upserts the draft for its user and step.
func (r *DraftRepository) Save(ctx context.Context, d ports.RegistrationDraft) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	updatedAt := d.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	doc := draftDocument{
		UserID:    d.UserID,
		Step:      string(d.Step),
		Fields:    d.Fields,
		UpdatedAt: updatedAt.UTC(),
	}

	filter := bson.M{"user_id": d.UserID, "step": string(d.Step)}
	_, err := r.col.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Find retrieves the draft of userID for step.
func (r *DraftRepository) Find(ctx context.Context, userID string, step domain.RegistrationStep) (*ports.RegistrationDraft, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc draftDocument
	err := r.col.FindOne(ctx, bson.M{"user_id": userID, "step": string(step)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrDraftNotFound
		}
		return nil, fmt.Errorf("find draft: %w", err)
	}
	return &ports.RegistrationDraft{
		UserID:    doc.UserID,
		Step:      domain.RegistrationStep(doc.Step),
		Fields:    doc.Fields,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// DeleteAll removes every draft of userID, e.g. once registration completes.
func (r *DraftRepository) DeleteAll(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("delete drafts: %w", err)
	}
	return nil
}

// EnsureIndexes creates the unique (user_id, step) index and a TTL index that
// expires abandoned drafts.
func (r *DraftRepository) EnsureIndexes(ctx context.Context, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "step", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(ttl.Seconds())),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
