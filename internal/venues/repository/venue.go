package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	venueerrors "pitchbook/internal/venues/errors"
	"pitchbook/pkg/config"
	"pitchbook/pkg/model"
)

const (
	VenueCollectionName      = "Venues"
	RentalItemCollectionName = "RentalItems"
)

// VenueRepository is a read-only view over the venue catalog. Venue CRUD
// lives in a separate management service; the booking core only resolves
// references.
type VenueRepository interface {
	FindByID(ctx context.Context, id string) (*model.Venue, error)
	FindRentalItem(ctx context.Context, id string) (*model.RentalItem, error)
	FindRentalItemsByVenue(ctx context.Context, venueID string) ([]*model.RentalItem, error)
}

type mongoVenueRepository struct {
	cfg       *config.Config
	venues    *mongo.Collection
	rentItems *mongo.Collection
}

func NewMongoVenueRepository(cfg *config.Config) VenueRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoVenueRepository{
		cfg:       cfg,
		venues:    db.Collection(VenueCollectionName),
		rentItems: db.Collection(RentalItemCollectionName),
	}
}

func (r *mongoVenueRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoVenueRepository) FindByID(ctx context.Context, id string) (*model.Venue, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", venueerrors.ErrInvalidID, id)
	}

	var venue model.Venue
	err = r.venues.FindOne(ctx, bson.M{"_id": objectID}).Decode(&venue)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, venueerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find venue: %w", err)
	}

	return &venue, nil
}

func (r *mongoVenueRepository) FindRentalItem(ctx context.Context, id string) (*model.RentalItem, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", venueerrors.ErrInvalidID, id)
	}

	var item model.RentalItem
	err = r.rentItems.FindOne(ctx, bson.M{"_id": objectID}).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, venueerrors.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to find rental item: %w", err)
	}

	return &item, nil
}

func (r *mongoVenueRepository) FindRentalItemsByVenue(ctx context.Context, venueID string) ([]*model.RentalItem, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.rentItems.Find(ctx, bson.M{"venue_id": venueID})
	if err != nil {
		return nil, fmt.Errorf("failed to find rental items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []*model.RentalItem
	if err = cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode rental items: %w", err)
	}

	return items, nil
}
