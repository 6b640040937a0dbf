package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoOpts struct {
	URI         string
	Database    string
	Timeout     time.Duration
	MaxPoolSize uint64
	AppName     string
}

// NewMongo 建连并 ping 主节点，失败时已建立的连接会被断开
func NewMongo(ctx context.Context, o MongoOpts) (*mongo.Client, *mongo.Database, error) {
	if o.URI == "" || o.Database == "" {
		return nil, nil, errors.New("mongo uri and database are required")
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	opts := options.Client().
		ApplyURI(o.URI).
		SetConnectTimeout(o.Timeout).
		SetServerSelectionTimeout(o.Timeout)
	if o.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(o.MaxPoolSize)
	}
	if o.AppName != "" {
		opts.SetAppName(o.AppName)
	}

	cctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()
	client, err := mongo.Connect(cctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, client.Database(o.Database), nil
}
