package mongodb

import (
	// Go Internal Packages
	"context"
	"time"

	// Local Packages
	errors "pix-stream/errors"
	models "pix-stream/models"

	// External Packages
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Devolutions struct {
	*Collection[models.Devolution, *models.Devolution]
}

func (r *Devolutions) ListByDepositID(ctx context.Context, depositID string) ([]*models.Devolution, error) {
	return r.Find(ctx, bson.M{"deposit_id": depositID})
}

type Refunds struct {
	*Collection[models.Refund, *models.Refund]
}

func (r *Refunds) GetByInfractionIDAndState(ctx context.Context, infractionID string, states ...models.State) (*models.Refund, error) {
	return r.FindOne(ctx, bson.M{"infraction_id": infractionID, "state": bson.M{"$in": states}})
}

// Notifications share request ids across families, so external_id is not
// unique here; the id already encodes the family.
type Notifications struct {
	*Collection[models.Notification, *models.Notification]
}

func (r *Notifications) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "family", Value: 1}, {Key: "state", Value: 1}},
	})
	if err != nil {
		return errors.PersistenceErr("create indexes on notifications", err)
	}
	return nil
}

type FailedTransitions struct {
	coll *mongo.Collection
}

// Create inserts a write-once failure record keyed by correlation id.
func (r *FailedTransitions) Create(ctx context.Context, f models.FailedTransition) error {
	_, err := r.coll.InsertOne(ctx, f)
	if mongo.IsDuplicateKeyError(err) {
		return errors.ErrDuplicate
	}
	if err != nil {
		return errors.PersistenceErr("insert failed transition", err)
	}
	return nil
}

func (r *FailedTransitions) GetByID(ctx context.Context, id string) (*models.FailedTransition, error) {
	var f models.FailedTransition
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&f)
	if errors.IsErr(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.PersistenceErr("find failed transition", err)
	}
	return &f, nil
}

type blockedDocument struct {
	Document  string    `bson:"_id"`
	Reason    string    `bson:"reason"`
	CreatedAt time.Time `bson:"created_at"`
}

// BlockList holds documents barred from receiving deposits.
type BlockList struct {
	coll *mongo.Collection
}

func (r *BlockList) Add(ctx context.Context, document, reason string) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": document},
		blockedDocument{Document: document, Reason: reason, CreatedAt: time.Now().UTC()},
		options.Replace().SetUpsert(true))
	if err != nil {
		return errors.PersistenceErr("upsert blocked document", err)
	}
	return nil
}

func (r *BlockList) Remove(ctx context.Context, document string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": document}); err != nil {
		return errors.PersistenceErr("delete blocked document", err)
	}
	return nil
}

func (r *BlockList) Contains(ctx context.Context, document string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": document}, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.PersistenceErr("count blocked document", err)
	}
	return n > 0, nil
}
