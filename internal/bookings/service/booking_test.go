package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	bookingserrors "pitchbook/internal/bookings/errors"
	"pitchbook/internal/bookings/events"
	"pitchbook/internal/bookings/repository"
	"pitchbook/internal/bookings/validator"
	sloterrors "pitchbook/internal/slots/errors"
	venueerrors "pitchbook/internal/venues/errors"
	"pitchbook/pkg/config"
	mongotx "pitchbook/pkg/db/mongo"
	apperrors "pitchbook/pkg/errors"
	"pitchbook/pkg/logger"
	"pitchbook/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	testVenueID   = "507f1f77bcf86cd799439011"
	testPlayerID  = "507f1f77bcf86cd799439099"
	testBookingID = "507f1f77bcf86cd799439031"
	testSlotID    = "507f1f77bcf86cd799439021"
	testSlotID2   = "507f1f77bcf86cd799439022"
	testItemID    = "507f1f77bcf86cd799439041"
	testPhone     = "+919876543210"
)

type mockBookingRepository struct {
	createFunc       func(ctx context.Context, booking *model.Booking) error
	findByIDFunc     func(ctx context.Context, id string) (*model.Booking, error)
	findByVenueFunc  func(ctx context.Context, venueID string, status string, limit int, offset int64) ([]*model.Booking, error)
	updateStatusFunc func(ctx context.Context, id string, fromStatuses []string, set repository.StatusSet) error

	capturedBooking *model.Booking
	capturedSet     repository.StatusSet
	capturedFrom    []string
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, booking)
	}
	m.capturedBooking = booking
	booking.ID = testBookingID
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) FindByVenue(ctx context.Context, venueID string, status string, limit int, offset int64) ([]*model.Booking, error) {
	if m.findByVenueFunc != nil {
		return m.findByVenueFunc(ctx, venueID, status, limit, offset)
	}
	return nil, nil
}

func (m *mockBookingRepository) CountByVenue(ctx context.Context, venueID string, status string) (int64, error) {
	return 0, nil
}

func (m *mockBookingRepository) FindByPlayer(ctx context.Context, playerID string, limit int, offset int64) ([]*model.Booking, error) {
	return nil, nil
}

func (m *mockBookingRepository) CountByPlayer(ctx context.Context, playerID string) (int64, error) {
	return 0, nil
}

func (m *mockBookingRepository) UpdateStatus(ctx context.Context, id string, fromStatuses []string, set repository.StatusSet) error {
	m.capturedFrom = fromStatuses
	m.capturedSet = set
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, fromStatuses, set)
	}
	return nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	sessCtx := mongo.NewSessionContext(ctx, nil)
	return fn(sessCtx)
}

type mockBookingItemRepository struct {
	capturedItems []*model.BookingItem
	findFunc      func(ctx context.Context, bookingID string) ([]*model.BookingItem, error)
}

func (m *mockBookingItemRepository) InsertMany(ctx context.Context, items []*model.BookingItem) error {
	m.capturedItems = items
	return nil
}

func (m *mockBookingItemRepository) FindByBooking(ctx context.Context, bookingID string) ([]*model.BookingItem, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, bookingID)
	}
	return nil, nil
}

type mockSlotRepository struct {
	findByIDsFunc     func(ctx context.Context, ids []string) ([]*model.Slot, error)
	bookManyFunc      func(ctx context.Context, ids []string, playerID string, cutoff time.Time) (int64, error)
	releaseBookedFunc func(ctx context.Context, ids []string) (int64, error)

	bookedIDs   []string
	releasedIDs []string
}

func (m *mockSlotRepository) InsertMany(ctx context.Context, slots []*model.Slot) (int, error) {
	return len(slots), nil
}

func (m *mockSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	return nil, sloterrors.ErrNotFound
}

func (m *mockSlotRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.Slot, error) {
	if m.findByIDsFunc != nil {
		return m.findByIDsFunc(ctx, ids)
	}
	return nil, nil
}

func (m *mockSlotRepository) FindByVenueAndDate(ctx context.Context, venueID string, date string) ([]*model.Slot, error) {
	return nil, nil
}

func (m *mockSlotRepository) FindHeldByPlayer(ctx context.Context, venueID string, playerID string, cutoff time.Time) ([]*model.Slot, error) {
	return nil, nil
}

func (m *mockSlotRepository) AcquireLock(ctx context.Context, slotID string, playerID string, now time.Time, cutoff time.Time) (*model.Slot, error) {
	return nil, sloterrors.ErrLockConflict
}

func (m *mockSlotRepository) ReleaseLock(ctx context.Context, slotID string, playerID string) (bool, error) {
	return false, nil
}

func (m *mockSlotRepository) ReleaseByPlayer(ctx context.Context, venueID string, playerID string, excludeIDs []string) (int64, error) {
	return 0, nil
}

func (m *mockSlotRepository) ExpireSweep(ctx context.Context, venueID string, date string, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (m *mockSlotRepository) BookMany(ctx context.Context, ids []string, playerID string, cutoff time.Time) (int64, error) {
	if m.bookManyFunc != nil {
		return m.bookManyFunc(ctx, ids, playerID, cutoff)
	}
	m.bookedIDs = ids
	return int64(len(ids)), nil
}

func (m *mockSlotRepository) ReleaseBooked(ctx context.Context, ids []string) (int64, error) {
	m.releasedIDs = ids
	if m.releaseBookedFunc != nil {
		return m.releaseBookedFunc(ctx, ids)
	}
	return int64(len(ids)), nil
}

func (m *mockSlotRepository) UpdateSlot(ctx context.Context, id string, updates *model.SlotUpdate) (*model.Slot, error) {
	return nil, sloterrors.ErrNotEditable
}

func (m *mockSlotRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	sessCtx := mongo.NewSessionContext(ctx, nil)
	return fn(sessCtx)
}

type mockVenueRepository struct {
	venue *model.Venue
	items map[string]*model.RentalItem
}

func (m *mockVenueRepository) FindByID(ctx context.Context, id string) (*model.Venue, error) {
	if m.venue == nil || m.venue.ID != id {
		return nil, venueerrors.ErrNotFound
	}
	return m.venue, nil
}

func (m *mockVenueRepository) FindRentalItem(ctx context.Context, id string) (*model.RentalItem, error) {
	if item, ok := m.items[id]; ok {
		return item, nil
	}
	return nil, venueerrors.ErrItemNotFound
}

func (m *mockVenueRepository) FindRentalItemsByVenue(ctx context.Context, venueID string) ([]*model.RentalItem, error) {
	var items []*model.RentalItem
	for _, item := range m.items {
		items = append(items, item)
	}
	return items, nil
}

type capturePublisher struct {
	created       []*model.Booking
	statusChanges []string
}

func (p *capturePublisher) BookingCreated(ctx context.Context, booking *model.Booking) error {
	p.created = append(p.created, booking)
	return nil
}

func (p *capturePublisher) BookingStatusChanged(ctx context.Context, booking *model.Booking, previousStatus string) error {
	p.statusChanges = append(p.statusChanges, previousStatus+"->"+booking.Status)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

var _ events.Publisher = (*capturePublisher)(nil)

func testConfig() *config.Config {
	return &config.Config{
		SlotLockTTL:            3 * time.Minute,
		DefaultVenueMaxPlayers: 22,
		Log: logger.New(logger.Config{
			Level:   logger.LevelError,
			Format:  logger.FormatText,
			Service: "test",
		}),
	}
}

type testEnv struct {
	repo      *mockBookingRepository
	itemRepo  *mockBookingItemRepository
	slotRepo  *mockSlotRepository
	venueRepo *mockVenueRepository
	publisher *capturePublisher
	svc       *bookingService
}

func newTestEnv(now time.Time) *testEnv {
	env := &testEnv{
		repo:     &mockBookingRepository{},
		itemRepo: &mockBookingItemRepository{},
		slotRepo: &mockSlotRepository{},
		venueRepo: &mockVenueRepository{
			venue: &model.Venue{
				ID:         testVenueID,
				Name:       "North Pitch",
				MaxPlayers: 14,
			},
			items: map[string]*model.RentalItem{},
		},
		publisher: &capturePublisher{},
	}

	cfg := testConfig()
	env.svc = NewBookingService(
		env.repo,
		env.itemRepo,
		env.slotRepo,
		env.venueRepo,
		validator.NewBookingValidator(cfg.Log),
		env.publisher,
		cfg,
	).(*bookingService)
	env.svc.now = func() time.Time { return now }
	return env
}

func testSlot(id, start, end string) *model.Slot {
	return &model.Slot{
		ID:        id,
		VenueID:   testVenueID,
		Date:      "2026-09-01",
		StartTime: start,
		EndTime:   end,
		Price:     500,
		Status:    model.SlotAvailable,
	}
}

func validRequest() *model.BookingRequest {
	return &model.BookingRequest{
		VenueID:           testVenueID,
		SlotIDs:           []string{testSlotID, testSlotID2},
		PlayerName:        "Arjun Rao",
		Phone:             testPhone,
		PlayersCount:      10,
		PaymentType:       model.PaymentTypeAdvance,
		AdvanceAmount:     200,
		RulesAcknowledged: true,
		PlayerID:          testPlayerID,
	}
}

func TestCreate_AdvancePayment(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)
	env.slotRepo.findByIDsFunc = func(ctx context.Context, ids []string) ([]*model.Slot, error) {
		return []*model.Slot{
			testSlot(testSlotID, "10:00", "11:00"),
			testSlot(testSlotID2, "11:00", "12:00"),
		}, nil
	}

	booking, err := env.svc.Create(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if booking.Status != model.BookingPendingPayment {
		t.Errorf("status = %q, want pending_payment", booking.Status)
	}
	if booking.PaymentStatus != model.PaymentStatusPartiallyPaid {
		t.Errorf("payment_status = %q, want partially_paid for advance", booking.PaymentStatus)
	}
	if len(env.slotRepo.bookedIDs) != 2 {
		t.Errorf("BookMany flipped %d slots, want 2", len(env.slotRepo.bookedIDs))
	}
	if len(env.publisher.created) != 1 {
		t.Errorf("published %d created events, want 1", len(env.publisher.created))
	}
}

func TestCreate_PayAtVenue(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)
	env.slotRepo.findByIDsFunc = func(ctx context.Context, ids []string) ([]*model.Slot, error) {
		return []*model.Slot{testSlot(testSlotID, "10:00", "11:00")}, nil
	}

	req := validRequest()
	req.SlotIDs = []string{testSlotID}
	req.PaymentType = model.PaymentTypePayAtVenue
	// a stray advance on a pay_at_venue request must not be stored
	req.AdvanceAmount = 300

	booking, err := env.svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if booking.PaymentStatus != model.PaymentStatusPending {
		t.Errorf("payment_status = %q, want pending_payment for pay_at_venue", booking.PaymentStatus)
	}
	if booking.AdvanceAmount != 0 {
		t.Errorf("advance_amount = %d, want 0 for pay_at_venue", booking.AdvanceAmount)
	}
}

func TestCreate_CapacityExceeded(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)

	req := validRequest()
	req.PlayersCount = 15 // venue max is 14

	_, err := env.svc.Create(context.Background(), req)
	if err == nil {
		t.Fatal("expected capacity error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeCapacityExceeded {
		t.Errorf("error code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeCapacityExceeded)
	}
}

func TestCreate_UnknownVenue(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)
	env.venueRepo.venue = nil

	_, err := env.svc.Create(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected invalid reference error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeInvalidReference {
		t.Errorf("error code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeInvalidReference)
	}
}

func TestCreate_MissingSlot(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)
	env.slotRepo.findByIDsFunc = func(ctx context.Context, ids []string) ([]*model.Slot, error) {
		return []*model.Slot{testSlot(testSlotID, "10:00", "11:00")}, nil // one of two
	}

	_, err := env.svc.Create(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected invalid reference error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeInvalidReference {
		t.Errorf("error code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeInvalidReference)
	}
}

func TestCreate_BookedSlotConflict(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)
	env.slotRepo.findByIDsFunc = func(ctx context.Context, ids []string) ([]*model.Slot, error) {
		taken := testSlot(testSlotID, "10:00", "11:00")
		taken.Status = model.SlotBooked
		return []*model.Slot{taken, testSlot(testSlotID2, "11:00", "12:00")}, nil
	}

	_, err := env.svc.Create(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeConflict {
		t.Errorf("error code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeConflict)
	}
}

func TestCreate_HeldByRequesterSucceeds(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	lockedAt := now.Add(-time.Minute)

	env := newTestEnv(now)
	env.slotRepo.findByIDsFunc = func(ctx context.Context, ids []string) ([]*model.Slot, error) {
		held := testSlot(testSlotID, "10:00", "11:00")
		held.Status = model.SlotReserved
		held.LockedBy = testPlayerID
		held.LockedAt = &lockedAt
		return []*model.Slot{held, testSlot(testSlotID2, "11:00", "12:00")}, nil
	}

	if _, err := env.svc.Create(context.Background(), validRequest()); err != nil {
		t.Fatalf("Create() with own live lock should succeed, got: %v", err)
	}
}

func TestCreate_HeldByAnotherConflict(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	lockedAt := now.Add(-time.Minute)

	env := newTestEnv(now)
	env.slotRepo.findByIDsFunc = func(ctx context.Context, ids []string) ([]*model.Slot, error) {
		held := testSlot(testSlotID, "10:00", "11:00")
		held.Status = model.SlotReserved
		held.LockedBy = "507f1f77bcf86cd799439055"
		held.LockedAt = &lockedAt
		return []*model.Slot{held, testSlot(testSlotID2, "11:00", "12:00")}, nil
	}

	_, err := env.svc.Create(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeConflict {
		t.Errorf("error code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeConflict)
	}
}

func TestCreate_ExpiredForeignLockSucceeds(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	stale := now.Add(-10 * time.Minute)

	env := newTestEnv(now)
	env.slotRepo.findByIDsFunc = func(ctx context.Context, ids []string) ([]*model.Slot, error) {
		expired := testSlot(testSlotID, "10:00", "11:00")
		expired.Status = model.SlotReserved
		expired.LockedBy = "507f1f77bcf86cd799439055"
		expired.LockedAt = &stale
		return []*model.Slot{expired, testSlot(testSlotID2, "11:00", "12:00")}, nil
	}

	if _, err := env.svc.Create(context.Background(), validRequest()); err != nil {
		t.Fatalf("Create() over an expired foreign lock should succeed, got: %v", err)
	}
}

func TestCreate_MultipleDates(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)
	env.slotRepo.findByIDsFunc = func(ctx context.Context, ids []string) ([]*model.Slot, error) {
		other := testSlot(testSlotID2, "10:00", "11:00")
		other.Date = "2026-09-02"
		return []*model.Slot{testSlot(testSlotID, "10:00", "11:00"), other}, nil
	}

	_, err := env.svc.Create(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected multiple dates error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeMultipleDates {
		t.Errorf("error code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeMultipleDates)
	}
}

func TestCreate_NonContiguousSelection(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)
	env.slotRepo.findByIDsFunc = func(ctx context.Context, ids []string) ([]*model.Slot, error) {
		return []*model.Slot{
			testSlot(testSlotID, "10:00", "11:00"),
			testSlot(testSlotID2, "14:00", "15:00"),
		}, nil
	}

	_, err := env.svc.Create(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected validation error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeValidation {
		t.Errorf("error code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeValidation)
	}
}

func TestCreate_PastSlot(t *testing.T) {
	now := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC) // after the slot date
	env := newTestEnv(now)
	env.slotRepo.findByIDsFunc = func(ctx context.Context, ids []string) ([]*model.Slot, error) {
		return []*model.Slot{
			testSlot(testSlotID, "10:00", "11:00"),
			testSlot(testSlotID2, "11:00", "12:00"),
		}, nil
	}

	_, err := env.svc.Create(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected past slot error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodePastSlot {
		t.Errorf("error code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodePastSlot)
	}
}

func TestCreate_LosesSlotRace(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)
	env.slotRepo.findByIDsFunc = func(ctx context.Context, ids []string) ([]*model.Slot, error) {
		return []*model.Slot{
			testSlot(testSlotID, "10:00", "11:00"),
			testSlot(testSlotID2, "11:00", "12:00"),
		}, nil
	}
	// Another commit wins one of the two slots between validation and
	// the conditional write.
	env.slotRepo.bookManyFunc = func(ctx context.Context, ids []string, playerID string, cutoff time.Time) (int64, error) {
		return 1, nil
	}

	_, err := env.svc.Create(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected conflict when losing the race")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeConflict {
		t.Errorf("error code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeConflict)
	}
	if env.repo.capturedBooking != nil {
		t.Error("booking must not be created when the slot flip falls short")
	}
	if len(env.publisher.created) != 0 {
		t.Error("no event should be published for a failed commit")
	}
}

func TestCreate_RulesNotAcknowledged(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)

	req := validRequest()
	req.RulesAcknowledged = false

	_, err := env.svc.Create(context.Background(), req)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeValidation {
		t.Errorf("error code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeValidation)
	}
}

func TestCreate_UnknownRentalItem(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)
	env.slotRepo.findByIDsFunc = func(ctx context.Context, ids []string) ([]*model.Slot, error) {
		return []*model.Slot{
			testSlot(testSlotID, "10:00", "11:00"),
			testSlot(testSlotID2, "11:00", "12:00"),
		}, nil
	}

	req := validRequest()
	req.Items = map[string]int{testItemID: 2}

	_, err := env.svc.Create(context.Background(), req)
	if err == nil {
		t.Fatal("expected invalid reference error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeInvalidReference {
		t.Errorf("error code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeInvalidReference)
	}
}

func TestCreate_RentalItemsAttached(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)
	env.venueRepo.items[testItemID] = &model.RentalItem{ID: testItemID, VenueID: testVenueID, Name: "Football", RentPrice: 100}
	env.slotRepo.findByIDsFunc = func(ctx context.Context, ids []string) ([]*model.Slot, error) {
		return []*model.Slot{
			testSlot(testSlotID, "10:00", "11:00"),
			testSlot(testSlotID2, "11:00", "12:00"),
		}, nil
	}

	req := validRequest()
	req.Items = map[string]int{testItemID: 2}

	booking, err := env.svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if len(env.itemRepo.capturedItems) != 1 {
		t.Fatalf("inserted %d items, want 1", len(env.itemRepo.capturedItems))
	}
	item := env.itemRepo.capturedItems[0]
	if item.BookingID != booking.ID {
		t.Errorf("item booking_id = %q, want %q", item.BookingID, booking.ID)
	}
	if item.Quantity != 2 {
		t.Errorf("item quantity = %d, want 2", item.Quantity)
	}
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)
	env.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return &model.Booking{
			ID:     testBookingID,
			Status: model.BookingCompleted,
		}, nil
	}

	_, err := env.svc.UpdateStatus(context.Background(), testBookingID, &model.BookingStatusUpdate{
		Status: model.BookingBooked,
	})
	if err == nil {
		t.Fatal("expected invalid transition error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeInvalidTransition {
		t.Errorf("error code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeInvalidTransition)
	}
}

func TestUpdateStatus_CancelReleasesSlots(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)
	env.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return &model.Booking{
			ID:      testBookingID,
			VenueID: testVenueID,
			SlotIDs: []string{testSlotID, testSlotID2},
			Status:  model.BookingBooked,
		}, nil
	}

	booking, err := env.svc.UpdateStatus(context.Background(), testBookingID, &model.BookingStatusUpdate{
		Status: model.BookingCancelled,
	})
	if err != nil {
		t.Fatalf("UpdateStatus() failed: %v", err)
	}

	if booking.Status != model.BookingCancelled {
		t.Errorf("status = %q, want cancelled", booking.Status)
	}
	if booking.CancelReason != model.CancelledByVenue {
		t.Errorf("cancel_reason = %q, want default %q", booking.CancelReason, model.CancelledByVenue)
	}
	if len(env.slotRepo.releasedIDs) != 2 {
		t.Errorf("released %d slots, want 2", len(env.slotRepo.releasedIDs))
	}
	if len(env.publisher.statusChanges) != 1 {
		t.Errorf("published %d status events, want 1", len(env.publisher.statusChanges))
	}
}

func TestUpdateStatus_ConditionalOnObservedStatus(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)
	env.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return &model.Booking{ID: testBookingID, Status: model.BookingPendingPayment}, nil
	}

	if _, err := env.svc.UpdateStatus(context.Background(), testBookingID, &model.BookingStatusUpdate{
		Status: model.BookingBooked,
	}); err != nil {
		t.Fatalf("UpdateStatus() failed: %v", err)
	}

	if len(env.repo.capturedFrom) != 1 || env.repo.capturedFrom[0] != model.BookingPendingPayment {
		t.Errorf("conditional from = %v, want [pending_payment]", env.repo.capturedFrom)
	}
}

func TestUpdateStatus_ConcurrentChangeConflict(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)
	env.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return &model.Booking{ID: testBookingID, Status: model.BookingPendingPayment}, nil
	}
	env.repo.updateStatusFunc = func(ctx context.Context, id string, from []string, set repository.StatusSet) error {
		return bookingserrors.ErrStatusChanged
	}

	_, err := env.svc.UpdateStatus(context.Background(), testBookingID, &model.BookingStatusUpdate{
		Status: model.BookingBooked,
	})
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeConflict {
		t.Errorf("error code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeConflict)
	}
}

func TestComplete_SettlesPayment(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)
	env.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return &model.Booking{
			ID:            testBookingID,
			Status:        model.BookingBooked,
			PaymentStatus: model.PaymentStatusPartiallyPaid,
		}, nil
	}

	booking, err := env.svc.Complete(context.Background(), testBookingID)
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}

	if booking.Status != model.BookingCompleted {
		t.Errorf("status = %q, want completed", booking.Status)
	}
	if booking.PaymentStatus != model.PaymentStatusFullyPaid {
		t.Errorf("payment_status = %q, want fully_paid", booking.PaymentStatus)
	}
}

func TestPublicCancel_PhoneMismatch(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)
	env.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return &model.Booking{
			ID:     testBookingID,
			Phone:  testPhone,
			Status: model.BookingBooked,
		}, nil
	}

	_, err := env.svc.PublicCancel(context.Background(), &model.PublicCancelRequest{
		BookingID: testBookingID,
		Phone:     "+919876543211",
	})
	if err == nil {
		t.Fatal("expected unauthorized error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeUnauthorized {
		t.Errorf("error code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeUnauthorized)
	}
}

func TestPublicCancel_LocalPhoneFormMatches(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)
	env.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return &model.Booking{
			ID:      testBookingID,
			Phone:   testPhone,
			SlotIDs: []string{testSlotID},
			Status:  model.BookingBooked,
		}, nil
	}

	booking, err := env.svc.PublicCancel(context.Background(), &model.PublicCancelRequest{
		BookingID: testBookingID,
		Phone:     "9876543210", // same number, local form
	})
	if err != nil {
		t.Fatalf("PublicCancel() failed: %v", err)
	}

	if booking.Status != model.BookingCancelled {
		t.Errorf("status = %q, want cancelled", booking.Status)
	}
	if booking.CancelReason != model.CancelledByPlayer {
		t.Errorf("cancel_reason = %q, want default %q", booking.CancelReason, model.CancelledByPlayer)
	}
	if len(env.slotRepo.releasedIDs) != 1 {
		t.Errorf("released %d slots, want 1", len(env.slotRepo.releasedIDs))
	}
}

func TestPublicCancel_AlreadyCancelled(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)
	env.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return &model.Booking{
			ID:     testBookingID,
			Phone:  testPhone,
			Status: model.BookingCancelled,
		}, nil
	}

	_, err := env.svc.PublicCancel(context.Background(), &model.PublicCancelRequest{
		BookingID: testBookingID,
		Phone:     testPhone,
	})
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeConflict {
		t.Errorf("error code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeConflict)
	}
}

func TestPublicCancel_MissingBooking(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)

	_, err := env.svc.PublicCancel(context.Background(), &model.PublicCancelRequest{
		BookingID: testBookingID,
		Phone:     testPhone,
	})
	if err == nil {
		t.Fatal("expected not found error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeNotFound {
		t.Errorf("error code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeNotFound)
	}
}

func TestCreate_SingleWinnerCommit(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)
	env.slotRepo.findByIDsFunc = func(ctx context.Context, ids []string) ([]*model.Slot, error) {
		return []*model.Slot{
			testSlot(testSlotID, "10:00", "11:00"),
			testSlot(testSlotID2, "11:00", "12:00"),
		}, nil
	}

	// One-shot conditional flip: whoever gets there first wins both
	// slots, everyone after modifies nothing.
	var mu sync.Mutex
	taken := false
	env.slotRepo.bookManyFunc = func(ctx context.Context, ids []string, playerID string, cutoff time.Time) (int64, error) {
		mu.Lock()
		defer mu.Unlock()
		if taken {
			return 0, nil
		}
		taken = true
		return int64(len(ids)), nil
	}

	var created int64
	env.repo.createFunc = func(ctx context.Context, booking *model.Booking) error {
		atomic.AddInt64(&created, 1)
		booking.ID = testBookingID
		return nil
	}

	const committers = 16
	var wg sync.WaitGroup
	results := make(chan error, committers)
	for i := 0; i < committers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Create(context.Background(), validRequest())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		if apperrors.AsAppError(err).Code != apperrors.CodeConflict {
			t.Errorf("loser got %v, want conflict", err)
		}
		conflicts++
	}

	if wins != 1 {
		t.Errorf("%d commits succeeded, want exactly 1", wins)
	}
	if conflicts != committers-1 {
		t.Errorf("%d conflicts, want %d", conflicts, committers-1)
	}
	if created != 1 {
		t.Errorf("%d bookings created, want 1", created)
	}
}

func TestEarnings_AggregatesDashboardStats(t *testing.T) {
	// Fixed clock on the slot date so the active booking counts as today.
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(now)

	env.repo.findByVenueFunc = func(ctx context.Context, venueID string, status string, limit int, offset int64) ([]*model.Booking, error) {
		if status != "" {
			t.Errorf("earnings queried status %q, want all statuses", status)
		}
		if offset > 0 {
			return nil, nil
		}
		return []*model.Booking{
			{
				ID:            testBookingID,
				SlotIDs:       []string{testSlotID, testSlotID2},
				Status:        model.BookingBooked,
				PaymentStatus: model.PaymentStatusPartiallyPaid,
				AdvanceAmount: 200,
			},
			{
				ID:     "507f1f77bcf86cd799439032",
				Status: model.BookingCancelled,
			},
			{
				// still pending payment, contributes nothing yet
				ID:     "507f1f77bcf86cd799439033",
				Status: model.BookingPendingPayment,
			},
		}, nil
	}
	env.slotRepo.findByIDsFunc = func(ctx context.Context, ids []string) ([]*model.Slot, error) {
		return []*model.Slot{
			testSlot(testSlotID, "10:00", "11:00"),
			testSlot(testSlotID2, "11:00", "12:00"),
		}, nil
	}

	summary, err := env.svc.Earnings(context.Background(), testVenueID)
	if err != nil {
		t.Fatalf("Earnings() failed: %v", err)
	}

	if summary.TodayBookings != 1 {
		t.Errorf("today bookings = %d, want 1", summary.TodayBookings)
	}
	if summary.AdvanceCollected != 200 {
		t.Errorf("advance collected = %d, want 200", summary.AdvanceCollected)
	}
	if summary.PendingPayments != 800 {
		t.Errorf("pending payments = %d, want 800 (1000 slot total minus 200 advance)", summary.PendingPayments)
	}
	if summary.CancelledCount != 1 {
		t.Errorf("cancelled count = %d, want 1", summary.CancelledCount)
	}
}
