package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"pitchbook/pkg/config"
	"pitchbook/pkg/model"
)

const (
	ItemCollectionName = "BookingItems"
)

type mongoBookingItemRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type BookingItemRepository interface {
	InsertMany(ctx context.Context, items []*model.BookingItem) error
	FindByBooking(ctx context.Context, bookingID string) ([]*model.BookingItem, error)
}

func NewMongoBookingItemRepository(cfg *config.Config) BookingItemRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingItemRepository{
		cfg:        cfg,
		collection: db.Collection(ItemCollectionName),
	}
}

func (r *mongoBookingItemRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBookingItemRepository) InsertMany(ctx context.Context, items []*model.BookingItem) error {
	if len(items) == 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]interface{}, 0, len(items))
	for _, item := range items {
		item.CreatedAt = now
		docs = append(docs, item)
	}

	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert booking items: %w", err)
	}
	return nil
}

func (r *mongoBookingItemRepository) FindByBooking(ctx context.Context, bookingID string) ([]*model.BookingItem, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"booking_id": bookingID})
	if err != nil {
		return nil, fmt.Errorf("failed to find booking items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []*model.BookingItem
	if err = cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode booking items: %w", err)
	}

	return items, nil
}
