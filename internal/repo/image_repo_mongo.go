package repo

import (
	"context"
	"errors"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"greenhome/internal/domain"
)

type imageDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	FileID      primitive.ObjectID `bson:"fileId"`
	Name        string             `bson:"name"`
	ContentType string             `bson:"contentType"`
	Size        int64              `bson:"size"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

func (d imageDoc) toDomain() domain.Image {
	return domain.Image{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		ContentType: d.ContentType,
		Size:        d.Size,
		CreatedAt:   d.CreatedAt.UTC(),
	}
}

// MongoImageRepo 内容存 GridFS（bucket: images），元数据存 images 集合
type MongoImageRepo struct {
	db *mongo.Database
	c  *mongo.Collection
}

func NewMongoImageRepo(db *mongo.Database) *MongoImageRepo {
	return &MongoImageRepo{db: db, c: db.Collection(collImages)}
}

// bucket 每次新建，Bucket 内部缓冲区不可并发共享
func (r *MongoImageRepo) bucket() (*gridfs.Bucket, error) {
	return gridfs.NewBucket(r.db, options.GridFSBucket().SetName(collImages))
}

func (r *MongoImageRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.c.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: -1}}})
	return err
}

func (r *MongoImageRepo) Save(ctx context.Context, img *domain.Image, content io.Reader) error {
	b, err := r.bucket()
	if err != nil {
		return err
	}
	if dl, ok := ctx.Deadline(); ok {
		if err := b.SetWriteDeadline(dl); err != nil {
			return err
		}
	}
	cr := &countingReader{r: content}
	fileID, err := b.UploadFromStream(img.Name, cr,
		options.GridFSUpload().SetMetadata(bson.D{{Key: "contentType", Value: img.ContentType}}))
	if err != nil {
		return err
	}
	d := imageDoc{
		ID:          primitive.NewObjectID(),
		FileID:      fileID,
		Name:        img.Name,
		ContentType: img.ContentType,
		Size:        cr.n,
		CreatedAt:   img.CreatedAt,
	}
	if _, err := r.c.InsertOne(ctx, d); err != nil {
		_ = b.Delete(fileID)
		return err
	}
	img.ID = d.ID.Hex()
	img.Size = cr.n
	return nil
}

func (r *MongoImageRepo) List(ctx context.Context) ([]domain.Image, error) {
	cur, err := r.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []imageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Image, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *MongoImageRepo) Open(ctx context.Context, id string) (*domain.Image, io.ReadCloser, error) {
	oid, ok := oidOf(id)
	if !ok {
		return nil, nil, nil
	}
	var d imageDoc
	err := r.c.FindOne(ctx, bson.M{"_id": oid}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	b, err := r.bucket()
	if err != nil {
		return nil, nil, err
	}
	stream, err := b.OpenDownloadStream(d.FileID)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	img := d.toDomain()
	return &img, stream, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
