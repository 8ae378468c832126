package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	sloterrors "pitchbook/internal/slots/errors"
	"pitchbook/pkg/config"
	mongotx "pitchbook/pkg/db/mongo"
	"pitchbook/pkg/model"
)

const (
	CollectionName = "Slots"
)

type mongoSlotRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type SlotRepository interface {
	InsertMany(ctx context.Context, slots []*model.Slot) (int, error)
	FindByID(ctx context.Context, id string) (*model.Slot, error)
	FindByIDs(ctx context.Context, ids []string) ([]*model.Slot, error)
	FindByVenueAndDate(ctx context.Context, venueID string, date string) ([]*model.Slot, error)
	FindHeldByPlayer(ctx context.Context, venueID string, playerID string, cutoff time.Time) ([]*model.Slot, error)
	AcquireLock(ctx context.Context, slotID string, playerID string, now time.Time, cutoff time.Time) (*model.Slot, error)
	ReleaseLock(ctx context.Context, slotID string, playerID string) (bool, error)
	ReleaseByPlayer(ctx context.Context, venueID string, playerID string, excludeIDs []string) (int64, error)
	ExpireSweep(ctx context.Context, venueID string, date string, cutoff time.Time) (int64, error)
	BookMany(ctx context.Context, ids []string, playerID string, cutoff time.Time) (int64, error)
	ReleaseBooked(ctx context.Context, ids []string) (int64, error)
	UpdateSlot(ctx context.Context, id string, updates *model.SlotUpdate) (*model.Slot, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context unchanged
// with a no-op cancel function, as we cannot wrap SessionContext without breaking
// transaction semantics.
func (r *mongoSlotRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func toObjectIDs(ids []string) ([]primitive.ObjectID, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", sloterrors.ErrInvalidID, id)
		}
		objectIDs = append(objectIDs, oid)
	}
	return objectIDs, nil
}

// lockableFilter matches slots a player may take a lock on: available,
// reserved by the same player, or reserved with a stale lock. A
// reservation without a lock timestamp counts as stale, matching
// Slot.LockExpired and the list sweep.
func lockableFilter(playerID string, cutoff time.Time) []bson.M {
	return []bson.M{
		{"status": model.SlotAvailable},
		{"status": model.SlotReserved, "locked_by": playerID},
		{"status": model.SlotReserved, "locked_at": bson.M{"$lt": cutoff}},
		{"status": model.SlotReserved, "locked_at": nil},
	}
}

// InsertMany writes the slot grid unordered so duplicate keys on the
// (venue_id, date, start_time) unique index skip already generated slots
// instead of failing the batch. Returns the number actually inserted.
func (r *mongoSlotRepository) InsertMany(ctx context.Context, slots []*model.Slot) (int, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]interface{}, 0, len(slots))
	for _, slot := range slots {
		slot.CreatedAt = now
		docs = append(docs, slot)
	}

	opts := options.InsertMany().SetOrdered(false)
	result, err := r.collection.InsertMany(ctx, docs, opts)
	if err != nil {
		var bulkErr mongo.BulkWriteException
		if errors.As(err, &bulkErr) {
			for _, writeErr := range bulkErr.WriteErrors {
				if !mongo.IsDuplicateKeyError(writeErr) {
					return 0, fmt.Errorf("failed to insert slots: %w", err)
				}
			}
			return len(result.InsertedIDs), nil
		}
		return 0, fmt.Errorf("failed to insert slots: %w", err)
	}

	return len(result.InsertedIDs), nil
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", sloterrors.ErrInvalidID, id)
	}

	var slot model.Slot
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sloterrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}

	return &slot, nil
}

func (r *mongoSlotRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.Slot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectIDs, err := toObjectIDs(ids)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []*model.Slot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}

	return slots, nil
}

func (r *mongoSlotRepository) FindByVenueAndDate(ctx context.Context, venueID string, date string) ([]*model.Slot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"venue_id": venueID,
		"date":     date,
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []*model.Slot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}

	return slots, nil
}

// FindHeldByPlayer returns the player's live reservations at a venue,
// ignoring locks that are already past the cutoff.
func (r *mongoSlotRepository) FindHeldByPlayer(ctx context.Context, venueID string, playerID string, cutoff time.Time) ([]*model.Slot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"venue_id":  venueID,
		"status":    model.SlotReserved,
		"locked_by": playerID,
		"locked_at": bson.M{"$gte": cutoff},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find held slots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []*model.Slot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode held slots: %w", err)
	}

	return slots, nil
}

// AcquireLock atomically flips a lockable slot to reserved for playerID.
// The filter and update travel in one findOneAndUpdate so two players
// racing for the same slot cannot both win. Returns ErrLockConflict when
// the slot exists but is not lockable.
func (r *mongoSlotRepository) AcquireLock(ctx context.Context, slotID string, playerID string, now time.Time, cutoff time.Time) (*model.Slot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(slotID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", sloterrors.ErrInvalidID, slotID)
	}

	filter := bson.M{
		"_id": objectID,
		"$or": lockableFilter(playerID, cutoff),
	}
	update := bson.M{
		"$set": bson.M{
			"status":    model.SlotReserved,
			"locked_by": playerID,
			"locked_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var slot model.Slot
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sloterrors.ErrLockConflict
		}
		return nil, fmt.Errorf("failed to acquire slot lock: %w", err)
	}

	return &slot, nil
}

// ReleaseLock frees a reservation held by playerID. Returns false when
// nothing matched, which callers treat as an already released lock.
func (r *mongoSlotRepository) ReleaseLock(ctx context.Context, slotID string, playerID string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(slotID)
	if err != nil {
		return false, fmt.Errorf("%w: %s", sloterrors.ErrInvalidID, slotID)
	}

	filter := bson.M{
		"_id":       objectID,
		"status":    model.SlotReserved,
		"locked_by": playerID,
	}
	update := bson.M{
		"$set":   bson.M{"status": model.SlotAvailable},
		"$unset": bson.M{"locked_by": "", "locked_at": ""},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to release slot lock: %w", err)
	}

	return result.ModifiedCount > 0, nil
}

// ReleaseByPlayer frees every reservation playerID holds at the venue
// except the given slot IDs. Used when a new lock resets the selection.
func (r *mongoSlotRepository) ReleaseByPlayer(ctx context.Context, venueID string, playerID string, excludeIDs []string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"venue_id":  venueID,
		"status":    model.SlotReserved,
		"locked_by": playerID,
	}
	if len(excludeIDs) > 0 {
		objectIDs, err := toObjectIDs(excludeIDs)
		if err != nil {
			return 0, err
		}
		filter["_id"] = bson.M{"$nin": objectIDs}
	}

	update := bson.M{
		"$set":   bson.M{"status": model.SlotAvailable},
		"$unset": bson.M{"locked_by": "", "locked_at": ""},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to release player slots: %w", err)
	}

	return result.ModifiedCount, nil
}

// ExpireSweep flips reservations whose lock predates the cutoff back to
// available. date narrows the sweep to one day; empty date sweeps the
// whole venue.
func (r *mongoSlotRepository) ExpireSweep(ctx context.Context, venueID string, date string, cutoff time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"venue_id": venueID,
		"status":   model.SlotReserved,
		"$or": []bson.M{
			{"locked_at": bson.M{"$lt": cutoff}},
			{"locked_at": nil},
		},
	}
	if date != "" {
		filter["date"] = date
	}

	update := bson.M{
		"$set":   bson.M{"status": model.SlotAvailable},
		"$unset": bson.M{"locked_by": "", "locked_at": ""},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired locks: %w", err)
	}

	return result.ModifiedCount, nil
}

// BookMany flips the given slots to booked, but only those still
// lockable by playerID. The caller must compare the returned count with
// len(ids); a shortfall means another request won a slot in between.
func (r *mongoSlotRepository) BookMany(ctx context.Context, ids []string, playerID string, cutoff time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectIDs, err := toObjectIDs(ids)
	if err != nil {
		return 0, err
	}

	filter := bson.M{
		"_id": bson.M{"$in": objectIDs},
		"$or": lockableFilter(playerID, cutoff),
	}
	update := bson.M{
		"$set":   bson.M{"status": model.SlotBooked},
		"$unset": bson.M{"locked_by": "", "locked_at": ""},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to book slots: %w", err)
	}

	return result.ModifiedCount, nil
}

// ReleaseBooked returns booked slots to the open pool, used when a
// booking is cancelled.
func (r *mongoSlotRepository) ReleaseBooked(ctx context.Context, ids []string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectIDs, err := toObjectIDs(ids)
	if err != nil {
		return 0, err
	}

	filter := bson.M{
		"_id":    bson.M{"$in": objectIDs},
		"status": model.SlotBooked,
	}
	update := bson.M{
		"$set":   bson.M{"status": model.SlotAvailable},
		"$unset": bson.M{"locked_by": "", "locked_at": ""},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to release booked slots: %w", err)
	}

	return result.ModifiedCount, nil
}

// UpdateSlot applies a manual edit. Only available and blocked slots are
// editable; reserved and booked slots are guarded by the filter so the
// check and the write are one operation.
func (r *mongoSlotRepository) UpdateSlot(ctx context.Context, id string, updates *model.SlotUpdate) (*model.Slot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", sloterrors.ErrInvalidID, id)
	}

	set := bson.M{}
	if updates.Price != nil {
		set["price"] = *updates.Price
	}
	if updates.Status != "" {
		set["status"] = updates.Status
	}

	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$in": []string{model.SlotAvailable, model.SlotBlocked}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var slot model.Slot
	err = r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sloterrors.ErrNotEditable
		}
		return nil, fmt.Errorf("failed to update slot: %w", err)
	}

	return &slot, nil
}

func (r *mongoSlotRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
