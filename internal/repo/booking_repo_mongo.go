package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"greenhome/internal/domain"
)

// 调用方附加字段内联存放在文档顶层
type bookingDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    flexID             `bson:"userId"`
	ListingID string             `bson:"listingId"`
	Email     string             `bson:"email"`
	Status    string             `bson:"status"`
	BookedAt  time.Time          `bson:"bookedAt"`
	Extra     bson.M             `bson:",inline"`
}

func (d bookingDoc) toDomain() domain.Booking {
	var extra map[string]any
	if len(d.Extra) > 0 {
		extra = plainMap(d.Extra)
	}
	return domain.Booking{
		ID:        d.ID.Hex(),
		UserID:    string(d.UserID),
		ListingID: d.ListingID,
		Email:     d.Email,
		Status:    d.Status,
		BookedAt:  d.BookedAt.UTC(),
		Extra:     extra,
	}
}

type MongoBookingRepo struct{ c *mongo.Collection }

func NewMongoBookingRepo(db *mongo.Database) *MongoBookingRepo {
	return &MongoBookingRepo{c: db.Collection(collBookings)}
}

func (r *MongoBookingRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "listingId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_user_listing"),
		},
		{Keys: bson.D{{Key: "email", Value: 1}}},
		{Keys: bson.D{{Key: "bookedAt", Value: -1}}},
	})
	return err
}

func (r *MongoBookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	d := bookingDoc{
		ID:        primitive.NewObjectID(),
		UserID:    flexID(b.UserID),
		ListingID: b.ListingID,
		Email:     b.Email,
		Status:    b.Status,
		BookedAt:  b.BookedAt,
		Extra:     docFields(b.Extra, domain.BookingReservedKeys...),
	}
	if _, err := r.c.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicate
		}
		return err
	}
	b.ID = d.ID.Hex()
	return nil
}

func (r *MongoBookingRepo) Exists(ctx context.Context, userID, listingID string) (bool, error) {
	n, err := r.c.CountDocuments(ctx, bson.M{"userId": idFilter(userID), "listingId": listingID}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *MongoBookingRepo) List(ctx context.Context, q domain.BookingQuery) ([]domain.Booking, error) {
	filter := bson.M{}
	if q.UserID != "" {
		filter["userId"] = idFilter(q.UserID)
	}
	if q.Email != "" {
		filter["email"] = q.Email
	}
	opts := options.Find()
	if q.Newest {
		opts.SetSort(bson.D{{Key: "bookedAt", Value: -1}, {Key: "_id", Value: -1}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []bookingDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Booking, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *MongoBookingRepo) UpdateStatus(ctx context.Context, id, status string) (bool, error) {
	oid, ok := oidOf(id)
	if !ok {
		return false, nil
	}
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoBookingRepo) Delete(ctx context.Context, id string) (bool, error) {
	oid, ok := oidOf(id)
	if !ok {
		return false, nil
	}
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoBookingRepo) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	res, err := r.c.DeleteMany(ctx, bson.M{"email": email})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *MongoBookingRepo) Count(ctx context.Context) (int64, error) {
	return r.c.CountDocuments(ctx, bson.M{})
}

type groupRow struct {
	Key   string `bson:"_id"`
	Count int64  `bson:"count"`
}

func (r *MongoBookingRepo) group(ctx context.Context, pipeline mongo.Pipeline) ([]groupRow, error) {
	cur, err := r.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []groupRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func countBy(field string) bson.D {
	return bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: "$" + field},
		{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
	}}}
}

func statusHistogramPipeline() mongo.Pipeline {
	return mongo.Pipeline{countBy("status")}
}

// popularPipeline limit<=0 不限条数（$limit 不接受 0）
func popularPipeline(limit int) mongo.Pipeline {
	p := mongo.Pipeline{
		countBy("listingId"),
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	if limit > 0 {
		p = append(p, bson.D{{Key: "$limit", Value: int64(limit)}})
	}
	return p
}

func (r *MongoBookingRepo) StatusHistogram(ctx context.Context) (map[string]int64, error) {
	rows, err := r.group(ctx, statusHistogramPipeline())
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Count
	}
	return out, nil
}

func (r *MongoBookingRepo) Popular(ctx context.Context, limit int) ([]domain.ListingCount, error) {
	rows, err := r.group(ctx, popularPipeline(limit))
	if err != nil {
		return nil, err
	}
	out := make([]domain.ListingCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ListingCount{ListingID: row.Key, Count: row.Count})
	}
	return out, nil
}
