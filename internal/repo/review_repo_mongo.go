package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"greenhome/internal/domain"
)

type reviewDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    flexID             `bson:"userId"`
	Text      string             `bson:"reviewtext"`
	Rating    int                `bson:"rating"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt *time.Time         `bson:"updatedAt,omitempty"`
}

func (d reviewDoc) toDomain() domain.Review {
	return domain.Review{
		ID:        d.ID.Hex(),
		UserID:    string(d.UserID),
		Text:      d.Text,
		Rating:    d.Rating,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: utcPtr(d.UpdatedAt),
	}
}

type MongoReviewRepo struct{ c *mongo.Collection }

func NewMongoReviewRepo(db *mongo.Database) *MongoReviewRepo {
	return &MongoReviewRepo{c: db.Collection(collReviews)}
}

func (r *MongoReviewRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	return err
}

func (r *MongoReviewRepo) Create(ctx context.Context, rv *domain.Review) error {
	d := reviewDoc{
		ID:        primitive.NewObjectID(),
		UserID:    flexID(rv.UserID),
		Text:      rv.Text,
		Rating:    rv.Rating,
		CreatedAt: rv.CreatedAt,
	}
	if _, err := r.c.InsertOne(ctx, d); err != nil {
		return err
	}
	rv.ID = d.ID.Hex()
	return nil
}

func (r *MongoReviewRepo) FindByID(ctx context.Context, id string) (*domain.Review, error) {
	oid, ok := oidOf(id)
	if !ok {
		return nil, nil
	}
	var d reviewDoc
	err := r.c.FindOne(ctx, bson.M{"_id": oid}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rv := d.toDomain()
	return &rv, nil
}

func (r *MongoReviewRepo) List(ctx context.Context, q domain.ReviewQuery) ([]domain.Review, error) {
	filter := bson.M{}
	if q.UserID != "" {
		filter["userId"] = idFilter(q.UserID)
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if q.Skip > 0 {
		opts.SetSkip(int64(q.Skip))
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []reviewDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Review, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *MongoReviewRepo) Count(ctx context.Context, userID string) (int64, error) {
	filter := bson.M{}
	if userID != "" {
		filter["userId"] = idFilter(userID)
	}
	return r.c.CountDocuments(ctx, filter)
}

func (r *MongoReviewRepo) Update(ctx context.Context, id string, p domain.ReviewPatch, now time.Time) (bool, error) {
	oid, ok := oidOf(id)
	if !ok {
		return false, nil
	}
	set := bson.M{"updatedAt": now}
	if p.Text != nil {
		set["reviewtext"] = *p.Text
	}
	if p.Rating != nil {
		set["rating"] = *p.Rating
	}
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoReviewRepo) Delete(ctx context.Context, id string) (bool, error) {
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
