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

// Collection stores one entity family, one document per state machine.
type Collection[E any, P interface {
	*E
	models.Entity
}] struct {
	coll *mongo.Collection
}

func NewCollection[E any, P interface {
	*E
	models.Entity
}](db *mongo.Database, name string) *Collection[E, P] {
	return &Collection[E, P]{coll: db.Collection(name)}
}

// Create inserts a new entity. A clashing id or external id yields
// errors.ErrDuplicate.
func (c *Collection[E, P]) Create(ctx context.Context, entity P) (P, error) {
	_, err := c.coll.InsertOne(ctx, entity)
	if mongo.IsDuplicateKeyError(err) {
		return nil, errors.ErrDuplicate
	}
	if err != nil {
		return nil, errors.PersistenceErr("insert into "+c.coll.Name(), err)
	}
	return entity, nil
}

// Update replaces the document only while its state still equals from, so
// two concurrent transitions of the same row cannot both win.
func (c *Collection[E, P]) Update(ctx context.Context, entity P, from models.State) (bool, error) {
	filter := bson.M{"_id": entity.EntityID(), "state": from}
	res, err := c.coll.ReplaceOne(ctx, filter, entity)
	if err != nil {
		return false, errors.PersistenceErr("replace in "+c.coll.Name(), err)
	}
	return res.MatchedCount == 1, nil
}

func (c *Collection[E, P]) GetByID(ctx context.Context, id string) (P, error) {
	return c.FindOne(ctx, bson.M{"_id": id})
}

func (c *Collection[E, P]) GetByExternalID(ctx context.Context, externalID string) (P, error) {
	return c.FindOne(ctx, bson.M{"external_id": externalID})
}

func (c *Collection[E, P]) ListByState(ctx context.Context, state models.State, before time.Time, limit int) ([]P, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return c.Find(ctx, bson.M{"state": state, "updated_at": bson.M{"$lt": before}}, opts)
}

// FindOne returns nil without error when nothing matches.
func (c *Collection[E, P]) FindOne(ctx context.Context, filter any) (P, error) {
	var v E
	err := c.coll.FindOne(ctx, filter).Decode(&v)
	if errors.IsErr(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.PersistenceErr("find in "+c.coll.Name(), err)
	}
	return P(&v), nil
}

func (c *Collection[E, P]) Find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]P, error) {
	cur, err := c.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, errors.PersistenceErr("find in "+c.coll.Name(), err)
	}
	var rows []E
	if err := cur.All(ctx, &rows); err != nil {
		return nil, errors.PersistenceErr("decode "+c.coll.Name(), err)
	}
	out := make([]P, len(rows))
	for i := range rows {
		out[i] = P(&rows[i])
	}
	return out, nil
}

// EnsureIndexes creates the external id dedupe index and the state scan index.
func (c *Collection[E, P]) EnsureIndexes(ctx context.Context) error {
	_, err := c.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "external_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "state", Value: 1}, {Key: "updated_at", Value: 1}},
		},
	})
	if err != nil {
		return errors.PersistenceErr("create indexes on "+c.coll.Name(), err)
	}
	return nil
}
