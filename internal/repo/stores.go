package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"greenhome/internal/core/config"
	"greenhome/internal/core/database"
	"greenhome/internal/domain"
)

// Stores 一组仓储及其底层连接
type Stores struct {
	Accounts domain.AccountRepository
	Listings domain.ListingRepository
	Bookings domain.BookingRepository
	Reviews  domain.ReviewRepository
	Images   domain.ImageRepository

	driver string
	mongo  *mongo.Client
	sql    *gorm.DB
}

func NewMemoryStores() *Stores {
	return &Stores{
		Accounts: NewMemAccountRepo(),
		Listings: NewMemListingRepo(),
		Bookings: NewMemBookingRepo(),
		Reviews:  NewMemReviewRepo(),
		Images:   NewMemImageRepo(),
		driver:   "memory",
	}
}

func (s *Stores) Driver() string { return s.driver }

// Open 按 db.driver 建连并准备索引/表结构
func Open(ctx context.Context, c config.DB, appName string, log *zap.Logger) (*Stores, error) {
	switch c.Driver {
	case "memory":
		log.Warn("using in-memory stores, data is lost on restart")
		return NewMemoryStores(), nil
	case "mongo":
		return openMongo(ctx, c, appName, log)
	case "postgres", "mysql":
		return openSQL(ctx, c, log)
	default:
		return nil, fmt.Errorf("%w: %q", database.ErrUnsupportedDriver, c.Driver)
	}
}

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

func openMongo(ctx context.Context, c config.DB, appName string, log *zap.Logger) (*Stores, error) {
	client, db, err := database.NewMongo(ctx, database.MongoOpts{
		URI:         c.Mongo.URI,
		Database:    c.Mongo.Database,
		Timeout:     time.Duration(c.Mongo.TimeoutSec) * time.Second,
		MaxPoolSize: c.Mongo.MaxPoolSize,
		AppName:     appName,
	})
	if err != nil {
		return nil, err
	}
	accounts := NewMongoAccountRepo(db)
	bookings := NewMongoBookingRepo(db)
	reviews := NewMongoReviewRepo(db)
	images := NewMongoImageRepo(db)

	for _, ix := range []indexer{accounts, bookings, reviews, images} {
		if err := ix.EnsureIndexes(ctx); err != nil {
			// 历史数据可能违反唯一约束，不阻塞启动
			log.Warn("ensure indexes failed", zap.Error(err))
		}
	}
	log.Info("mongo connected", zap.String("database", c.Mongo.Database))
	return &Stores{
		Accounts: accounts,
		Listings: NewMongoListingRepo(db),
		Bookings: bookings,
		Reviews:  reviews,
		Images:   images,
		driver:   "mongo",
		mongo:    client,
	}, nil
}

func openSQL(ctx context.Context, c config.DB, log *zap.Logger) (*Stores, error) {
	db, err := database.NewGorm(database.Opts{
		Driver:             c.Driver,
		DSN:                c.DSN,
		Username:           c.Username,
		Password:           c.Password,
		MaxOpenConns:       c.MaxOpenConns,
		MaxIdleConns:       c.MaxIdleConns,
		ConnMaxLifetimeMin: c.ConnMaxLifetimeMin,
		LogLevel:           c.LogLevel,
	}, log)
	if err != nil {
		return nil, err
	}
	if c.AutoMigrate {
		if err := db.WithContext(ctx).AutoMigrate(GormModels()...); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		log.Info("auto migrate done")
	}
	log.Info("sql connected", zap.String("driver", c.Driver))
	return &Stores{
		Accounts: NewGormAccountRepo(db),
		Listings: NewGormListingRepo(db),
		Bookings: NewGormBookingRepo(db),
		Reviews:  NewGormReviewRepo(db),
		Images:   NewGormImageRepo(db),
		driver:   c.Driver,
		sql:      db,
	}, nil
}

// Ping 健康检查用
func (s *Stores) Ping(ctx context.Context) error {
	switch {
	case s.mongo != nil:
		return s.mongo.Ping(ctx, readpref.Primary())
	case s.sql != nil:
		sqlDB, err := s.sql.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
	return nil
}

func (s *Stores) Close(ctx context.Context) error {
	var errs []error
	if s.mongo != nil {
		errs = append(errs, s.mongo.Disconnect(ctx))
	}
	if s.sql != nil {
		if sqlDB, err := s.sql.DB(); err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
