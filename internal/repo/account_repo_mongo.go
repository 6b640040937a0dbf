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

type accountDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Email          string             `bson:"email"`
	DisplayName    string             `bson:"displayName"`
	PhotoURL       string             `bson:"photoURL"`
	GoogleName     string             `bson:"googleName,omitempty"`
	GooglePhotoURL string             `bson:"googlePhotoUrl,omitempty"`
	Role           string             `bson:"role,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      *time.Time         `bson:"updatedAt,omitempty"`
}

func (d accountDoc) toDomain() domain.Account {
	return domain.Account{
		ID:             d.ID.Hex(),
		Email:          d.Email,
		DisplayName:    d.DisplayName,
		PhotoURL:       d.PhotoURL,
		GoogleName:     d.GoogleName,
		GooglePhotoURL: d.GooglePhotoURL,
		Role:           d.Role,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      utcPtr(d.UpdatedAt),
	}
}

type MongoAccountRepo struct{ c *mongo.Collection }

func NewMongoAccountRepo(db *mongo.Database) *MongoAccountRepo {
	return &MongoAccountRepo{c: db.Collection(collUsers)}
}

func (r *MongoAccountRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	return err
}

func (r *MongoAccountRepo) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var d accountDoc
	err := r.c.FindOne(ctx, bson.M{"email": email}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a := d.toDomain()
	return &a, nil
}

func (r *MongoAccountRepo) FindByIDs(ctx context.Context, ids []string) ([]domain.Account, error) {
	oids := oidsOf(ids)
	if len(oids) == 0 {
		return nil, nil
	}
	cur, err := r.c.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, err
	}
	var docs []accountDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Account, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *MongoAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	d := accountDoc{
		ID:             primitive.NewObjectID(),
		Email:          a.Email,
		DisplayName:    a.DisplayName,
		PhotoURL:       a.PhotoURL,
		GoogleName:     a.GoogleName,
		GooglePhotoURL: a.GooglePhotoURL,
		Role:           a.Role,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
	if _, err := r.c.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicate
		}
		return err
	}
	a.ID = d.ID.Hex()
	return nil
}

// providerUpsert 影子字段每次刷新，展示字段只在插入时写入
func providerUpsert(p domain.ProviderProfile, now time.Time) bson.M {
	return bson.M{
		"$set": bson.M{
			"googleName":     p.DisplayName,
			"googlePhotoUrl": p.PhotoURL,
		},
		"$setOnInsert": bson.M{
			"displayName": p.DisplayName,
			"photoURL":    p.PhotoURL,
			"createdAt":   now,
		},
	}
}

func (r *MongoAccountRepo) UpsertFromProvider(ctx context.Context, p domain.ProviderProfile, now time.Time) (*domain.Account, bool, error) {
	update := providerUpsert(p, now)
	opts := options.Update().SetUpsert(true)
	res, err := r.c.UpdateOne(ctx, bson.M{"email": p.Email}, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		// 并发首登：另一请求刚插入，再走一次即为更新
		res, err = r.c.UpdateOne(ctx, bson.M{"email": p.Email}, update, opts)
	}
	if err != nil {
		return nil, false, err
	}
	a, err := r.FindByEmail(ctx, p.Email)
	if err != nil {
		return nil, false, err
	}
	if a == nil {
		return nil, false, errors.New("upserted account not readable")
	}
	return a, res.UpsertedCount > 0, nil
}

func (r *MongoAccountRepo) UpdateProfile(ctx context.Context, email, displayName, photoURL string, now time.Time) (bool, error) {
	res, err := r.c.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": bson.M{
		"displayName": displayName,
		"photoURL":    photoURL,
		"updatedAt":   now,
	}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoAccountRepo) SetRole(ctx context.Context, email, role string, now time.Time) (bool, error) {
	update := bson.M{"$set": bson.M{"role": role, "updatedAt": now}}
	if role == "" {
		update = bson.M{"$unset": bson.M{"role": ""}, "$set": bson.M{"updatedAt": now}}
	}
	res, err := r.c.UpdateOne(ctx, bson.M{"email": email}, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoAccountRepo) CountAdmins(ctx context.Context) (int64, error) {
	return r.c.CountDocuments(ctx, bson.M{"role": domain.RoleAdmin})
}

func (r *MongoAccountRepo) Count(ctx context.Context) (int64, error) {
	return r.c.CountDocuments(ctx, bson.M{})
}

func (r *MongoAccountRepo) List(ctx context.Context, q domain.AccountQuery) ([]domain.Account, error) {
	filter := bson.M{}
	if q.AdminsOnly {
		filter["role"] = domain.RoleAdmin
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []accountDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Account, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
