package repo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"greenhome/internal/domain"
)

type MongoListingRepo struct{ c *mongo.Collection }

func NewMongoListingRepo(db *mongo.Database) *MongoListingRepo {
	return &MongoListingRepo{c: db.Collection(collHouses)}
}

func listingFromDoc(m bson.M) domain.Listing {
	id := idString(m["_id"])
	delete(m, "_id")
	return domain.Listing{ID: id, Fields: plainMap(m)}
}

func (r *MongoListingRepo) decodeAll(ctx context.Context, cur *mongo.Cursor) ([]domain.Listing, error) {
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Listing, 0, len(docs))
	for _, d := range docs {
		out = append(out, listingFromDoc(d))
	}
	return out, nil
}

func (r *MongoListingRepo) List(ctx context.Context) ([]domain.Listing, error) {
	cur, err := r.c.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	return r.decodeAll(ctx, cur)
}

func (r *MongoListingRepo) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	oid, ok := oidOf(id)
	if !ok {
		return nil, nil
	}
	var m bson.M
	err := r.c.FindOne(ctx, bson.M{"_id": oid}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l := listingFromDoc(m)
	return &l, nil
}

func (r *MongoListingRepo) Create(ctx context.Context, fields map[string]any) (string, error) {
	doc := docFields(fields, "_id")
	oid := primitive.NewObjectID()
	doc["_id"] = oid
	if _, err := r.c.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return oid.Hex(), nil
}

func (r *MongoListingRepo) Update(ctx context.Context, id string, fields map[string]any) (bool, error) {
	oid, ok := oidOf(id)
	if !ok {
		return false, nil
	}
	set := docFields(fields, "_id")
	if len(set) == 0 {
		// 空 $set 会被服务端拒绝，只确认存在
		n, err := r.c.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
		return n > 0, err
	}
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoListingRepo) Delete(ctx context.Context, id string) (bool, error) {
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

func (r *MongoListingRepo) Count(ctx context.Context) (int64, error) {
	return r.c.CountDocuments(ctx, bson.M{})
}

func (r *MongoListingRepo) ListExcluding(ctx context.Context, ids []string, limit int) ([]domain.Listing, error) {
	filter := bson.M{}
	if oids := oidsOf(ids); len(oids) > 0 {
		filter["_id"] = bson.M{"$nin": oids}
	}
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return r.decodeAll(ctx, cur)
}
