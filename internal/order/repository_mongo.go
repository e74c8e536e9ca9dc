package order

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wichananm65/storefront-backend/internal/pricing"
)

const CollectionName = "orders"

type lineDocument struct {
	ProductID string               `bson:"productId"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	Quantity  int                  `bson:"quantity"`
	LineTotal primitive.Decimal128 `bson:"lineTotal"`
}

type pricingDocument struct {
	Subtotal primitive.Decimal128 `bson:"subtotal"`
	Shipping primitive.Decimal128 `bson:"shipping"`
	Tax      primitive.Decimal128 `bson:"tax"`
	Discount primitive.Decimal128 `bson:"discount"`
	Total    primitive.Decimal128 `bson:"total"`
}

type document struct {
	ID          string          `bson:"_id"`
	OrderNumber string          `bson:"orderNumber"`
	Customer    Customer        `bson:"customer"`
	Shipping    Address         `bson:"shipping"`
	Billing     Billing         `bson:"billing"`
	Items       []lineDocument  `bson:"items"`
	Pricing     pricingDocument `bson:"pricing"`
	Payment     Payment         `bson:"payment"`
	Status      Status          `bson:"status"`
	CreatedAt   time.Time       `bson:"createdAt"`
	UpdatedAt   time.Time       `bson:"updatedAt"`
}

// decimalCodec collects the first conversion error so document mapping stays
// linear.
type decimalCodec struct{ err error }

func (c *decimalCodec) to(d decimal.Decimal) primitive.Decimal128 {
	if c.err != nil {
		return primitive.Decimal128{}
	}
	v, err := primitive.ParseDecimal128(d.String())
	c.err = err
	return v
}

func (c *decimalCodec) from(d primitive.Decimal128) decimal.Decimal {
	if c.err != nil {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(d.String())
	c.err = err
	return v
}

func toDocument(o Order) (document, error) {
	var c decimalCodec
	items := make([]lineDocument, 0, len(o.Items))
	for _, l := range o.Items {
		items = append(items, lineDocument{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     c.to(l.Price),
			Quantity:  l.Quantity,
			LineTotal: c.to(l.LineTotal),
		})
	}
	d := document{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Customer:    o.Customer,
		Shipping:    o.Shipping,
		Billing:     o.Billing,
		Items:       items,
		Pricing: pricingDocument{
			Subtotal: c.to(o.Pricing.Subtotal),
			Shipping: c.to(o.Pricing.Shipping),
			Tax:      c.to(o.Pricing.Tax),
			Discount: c.to(o.Pricing.Discount),
			Total:    c.to(o.Pricing.Total),
		},
		Payment:   o.Payment,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	return d, c.err
}

func (d document) order() (Order, error) {
	var c decimalCodec
	items := make([]Line, 0, len(d.Items))
	for _, l := range d.Items {
		items = append(items, Line{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     c.from(l.Price),
			Quantity:  l.Quantity,
			LineTotal: c.from(l.LineTotal),
		})
	}
	o := Order{
		ID:          d.ID,
		OrderNumber: d.OrderNumber,
		Customer:    d.Customer,
		Shipping:    d.Shipping,
		Billing:     d.Billing,
		Items:       items,
		Pricing: pricing.Breakdown{
			Subtotal: c.from(d.Pricing.Subtotal),
			Shipping: c.from(d.Pricing.Shipping),
			Tax:      c.from(d.Pricing.Tax),
			Discount: c.from(d.Pricing.Discount),
			Total:    c.from(d.Pricing.Total),
		},
		Payment:   d.Payment,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	return o, c.err
}

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName)}
}

func (r *MongoRepository) Create(ctx context.Context, o Order) (Order, error) {
	d, err := toDocument(o)
	if err != nil {
		return Order{}, err
	}
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Order{}, ErrDuplicate
		}
		return Order{}, err
	}
	return o, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, idOrNumber string) (Order, error) {
	var d document
	q := bson.M{"$or": bson.A{bson.M{"_id": idOrNumber}, bson.M{"orderNumber": idOrNumber}}}
	err := r.coll.FindOne(ctx, q).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return d.order()
}

func (r *MongoRepository) List(ctx context.Context, f ListFilter) ([]Order, error) {
	q := bson.M{}
	if f.Status != "" {
		q["status"] = f.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cur, err := r.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]Order, 0)
	for cur.Next(ctx) {
		var d document
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		o, err := d.order()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, cur.Err()
}

func (r *MongoRepository) UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStatusConflict
}

func (r *MongoRepository) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	cur, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$status"}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[Status]int64)
	for cur.Next(ctx) {
		var row struct {
			Status Status `bson:"_id"`
			Count  int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Status] = row.Count
	}
	return out, cur.Err()
}
