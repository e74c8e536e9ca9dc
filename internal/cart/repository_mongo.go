package cart

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "carts"

type document struct {
	SessionID string    `bson:"sessionId"`
	Items     []Item    `bson:"items"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoRepository relies on a TTL index on createdAt for expiry.
type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName), now: func() time.Time { return time.Now().UTC() }}
}

func (r *MongoRepository) GetOrCreate(ctx context.Context, session string) (Cart, error) {
	now := r.now()
	var d document
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"sessionId": session},
		bson.M{"$setOnInsert": bson.M{"items": bson.A{}, "createdAt": now, "updatedAt": now}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		return Cart{}, err
	}
	if d.Items == nil {
		d.Items = []Item{}
	}
	return Cart{SessionID: session, Items: d.Items, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}, nil
}

func (r *MongoRepository) Save(ctx context.Context, c Cart) error {
	items := c.Items
	if items == nil {
		items = []Item{}
	}
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"sessionId": c.SessionID},
		bson.M{"$set": bson.M{"items": items, "createdAt": c.CreatedAt, "updatedAt": c.UpdatedAt}},
		options.Update().SetUpsert(true),
	)
	return err
}

// DeleteExpired covers the gap before MongoDB's TTL monitor runs.
func (r *MongoRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"createdAt": bson.M{"$lt": before}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
