package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	bookingserrors "pitchbook/internal/bookings/errors"
	"pitchbook/internal/bookings/events"
	"pitchbook/internal/bookings/repository"
	"pitchbook/internal/bookings/validator"
	slotrepo "pitchbook/internal/slots/repository"
	slotvalidator "pitchbook/internal/slots/validator"
	venueerrors "pitchbook/internal/venues/errors"
	venuerepo "pitchbook/internal/venues/repository"
	"pitchbook/pkg/config"
	apperrors "pitchbook/pkg/errors"
	"pitchbook/pkg/model"
	"pitchbook/pkg/sanitizer"
)

type BookingService interface {
	Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.BookingDetail, error)
	GetByVenue(ctx context.Context, venueID string, status string, limit int, offset int64) ([]*model.Booking, int64, error)
	GetByPlayer(ctx context.Context, playerID string, limit int, offset int64) ([]*model.Booking, int64, error)
	UpdateStatus(ctx context.Context, id string, update *model.BookingStatusUpdate) (*model.Booking, error)
	PublicCancel(ctx context.Context, req *model.PublicCancelRequest) (*model.Booking, error)
	Complete(ctx context.Context, id string) (*model.Booking, error)
	Earnings(ctx context.Context, venueID string) (*model.EarningsSummary, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	itemRepo  repository.BookingItemRepository
	slotRepo  slotrepo.SlotRepository
	venueRepo venuerepo.VenueRepository
	validator *validator.BookingValidator
	publisher events.Publisher
	cfg       *config.Config

	// injectable clock for lock expiry tests
	now func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	itemRepo repository.BookingItemRepository,
	slotRepo slotrepo.SlotRepository,
	venueRepo venuerepo.VenueRepository,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		itemRepo:  itemRepo,
		slotRepo:  slotRepo,
		venueRepo: venueRepo,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Create commits a booking: every check runs against the slots' current
// state, and the slot flips happen conditionally inside one transaction
// so exactly one concurrent commit can win a given slot.
func (s *bookingService) Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	s.sanitizeRequest(req)

	if err := s.validator.ValidateRequest(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return nil, apperrors.Validation("Invalid booking request", map[string]any{"error": err.Error()})
	}
	if req.Phone == "" {
		return nil, apperrors.Validation("Invalid booking request", map[string]any{
			"error": "phone could not be parsed as a valid number",
		})
	}

	venue, err := s.resolveVenue(ctx, req.VenueID)
	if err != nil {
		return nil, err
	}

	maxPlayers := venue.MaxPlayers
	if maxPlayers <= 0 {
		maxPlayers = s.cfg.DefaultVenueMaxPlayers
	}
	if req.PlayersCount > maxPlayers {
		return nil, apperrors.CapacityExceeded(fmt.Sprintf(
			"Players count %d exceeds venue capacity %d", req.PlayersCount, maxPlayers,
		))
	}

	slots, err := s.resolveSlots(ctx, req, venue)
	if err != nil {
		return nil, err
	}

	items, err := s.resolveItems(ctx, req)
	if err != nil {
		return nil, err
	}

	booking := s.buildBooking(req, slots)

	now := s.now()
	cutoff := now.Add(-s.cfg.SlotLockTTL)

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		booked, err := s.slotRepo.BookMany(sessCtx, booking.SlotIDs, req.PlayerID, cutoff)
		if err != nil {
			return apperrors.Internal("Failed to book slots", err)
		}
		if booked != int64(len(booking.SlotIDs)) {
			return apperrors.Conflict("One or more slots were taken by another booking, please reselect")
		}

		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}

		for _, item := range items {
			item.BookingID = booking.ID
		}
		if err := s.itemRepo.InsertMany(sessCtx, items); err != nil {
			return apperrors.Internal("Failed to create booking items", err)
		}

		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to commit booking", "venue_id", req.VenueID, "player_id", req.PlayerID, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Booking created",
		"id", booking.ID,
		"venue_id", booking.VenueID,
		"player_id", booking.PlayerID,
		"slots", len(booking.SlotIDs),
		"payment_type", booking.PaymentType,
	)

	// Event delivery is best-effort; the booking is already committed.
	if err := s.publisher.BookingCreated(ctx, booking); err != nil {
		s.cfg.Log.Warn("Booking created event not published", "id", booking.ID, "error", err)
	}

	return booking, nil
}

func (s *bookingService) sanitizeRequest(req *model.BookingRequest) {
	req.PlayerName = sanitizer.NormalizeName(req.PlayerName)
	req.Phone = sanitizer.NormalizePhone(req.Phone)
}

func (s *bookingService) resolveVenue(ctx context.Context, venueID string) (*model.Venue, error) {
	venue, err := s.venueRepo.FindByID(ctx, venueID)
	if err != nil {
		if errors.Is(err, venueerrors.ErrNotFound) || errors.Is(err, venueerrors.ErrInvalidID) {
			return nil, apperrors.InvalidReference(fmt.Sprintf("Venue %s does not exist", venueID))
		}
		return nil, apperrors.Internal("Failed to resolve venue", err)
	}
	return venue, nil
}

// resolveSlots loads the requested slots and re-runs every commit-time
// check: existence, venue ownership, lockability for this player, past
// start, and selection continuity.
func (s *bookingService) resolveSlots(ctx context.Context, req *model.BookingRequest, venue *model.Venue) ([]*model.Slot, error) {
	slots, err := s.slotRepo.FindByIDs(ctx, req.SlotIDs)
	if err != nil {
		return nil, apperrors.Internal("Failed to resolve slots", err)
	}
	if len(slots) != len(req.SlotIDs) {
		return nil, apperrors.InvalidReference("One or more slots do not exist")
	}

	now := s.now()
	for _, slot := range slots {
		if slot.VenueID != venue.ID {
			return nil, apperrors.InvalidReference(fmt.Sprintf("Slot %s does not belong to venue %s", slot.ID, venue.ID))
		}
		if slot.InPast(now) {
			return nil, apperrors.PastSlot(fmt.Sprintf("Slot %s has already started", slot.ID))
		}

		effective := slot.EffectiveStatus(now, s.cfg.SlotLockTTL)
		switch {
		case effective == model.SlotAvailable:
		case slot.HeldBy(req.PlayerID, now, s.cfg.SlotLockTTL):
		case effective == model.SlotBooked:
			return nil, apperrors.Conflict(fmt.Sprintf("Slot %s is already booked", slot.ID))
		case effective == model.SlotReserved:
			return nil, apperrors.Conflict(fmt.Sprintf("Slot %s is held by another player", slot.ID))
		default:
			return nil, apperrors.Conflict(fmt.Sprintf("Slot %s is not available", slot.ID))
		}
	}

	if err := slotvalidator.ValidateSelection(slots); err != nil {
		switch {
		case errors.Is(err, slotvalidator.ErrMultipleDates):
			return nil, apperrors.MultipleDates("All slots in a booking must fall on the same date")
		case errors.Is(err, slotvalidator.ErrMixedVenues):
			return nil, apperrors.InvalidReference("All slots must belong to the same venue")
		default:
			return nil, apperrors.Validation("Slot selection must be contiguous", map[string]any{"error": err.Error()})
		}
	}

	return slots, nil
}

func (s *bookingService) resolveItems(ctx context.Context, req *model.BookingRequest) ([]*model.BookingItem, error) {
	if len(req.Items) == 0 {
		return nil, nil
	}

	catalog, err := s.venueRepo.FindRentalItemsByVenue(ctx, req.VenueID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load venue rental items", err)
	}
	known := make(map[string]bool, len(catalog))
	for _, rental := range catalog {
		known[rental.ID] = true
	}

	var items []*model.BookingItem
	for itemID, qty := range req.Items {
		if qty <= 0 {
			continue
		}
		if !known[itemID] {
			return nil, apperrors.InvalidReference(fmt.Sprintf("Rental item %s does not exist for this venue", itemID))
		}
		items = append(items, &model.BookingItem{
			ItemID:   itemID,
			Quantity: qty,
		})
	}
	return items, nil
}

func (s *bookingService) buildBooking(req *model.BookingRequest, slots []*model.Slot) *model.Booking {
	paymentStatus := model.PaymentStatusPending
	advanceAmount := 0
	if req.PaymentType == model.PaymentTypeAdvance {
		paymentStatus = model.PaymentStatusPartiallyPaid
		advanceAmount = req.AdvanceAmount
	}

	slotIDs := make([]string, 0, len(slots))
	for _, slot := range slots {
		slotIDs = append(slotIDs, slot.ID)
	}

	return &model.Booking{
		VenueID:           req.VenueID,
		SlotIDs:           slotIDs,
		PlayerName:        req.PlayerName,
		Phone:             req.Phone,
		PlayersCount:      req.PlayersCount,
		PaymentType:       req.PaymentType,
		AdvanceAmount:     advanceAmount,
		RulesAcknowledged: req.RulesAcknowledged,
		PaymentStatus:     paymentStatus,
		PlayerID:          req.PlayerID,
		Status:            model.BookingPendingPayment,
	}
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.BookingDetail, error) {
	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	slots, err := s.slotRepo.FindByIDs(ctx, booking.SlotIDs)
	if err != nil {
		s.cfg.Log.Error("Failed to load booking slots", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to load booking slots", err)
	}

	detail := &model.BookingDetail{
		Booking: booking,
		Slots:   slots,
	}

	items, err := s.itemRepo.FindByBooking(ctx, booking.ID)
	if err != nil {
		s.cfg.Log.Error("Failed to load booking items", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to load booking items", err)
	}
	for _, item := range items {
		rental, err := s.venueRepo.FindRentalItem(ctx, item.ItemID)
		if err != nil {
			s.cfg.Log.Warn("Booking references missing rental item", "booking_id", id, "item_id", item.ItemID)
			continue
		}
		detail.RentalItems = append(detail.RentalItems, &model.BookingItemDetail{
			Item:     rental,
			Quantity: item.Quantity,
		})
	}

	return detail, nil
}

func (s *bookingService) GetByVenue(ctx context.Context, venueID string, status string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if venueID == "" {
		return nil, 0, apperrors.InvalidInput("Venue ID cannot be empty")
	}

	count, err := s.repo.CountByVenue(ctx, venueID, status)
	if err != nil {
		s.cfg.Log.Error("Failed to count bookings", "venue_id", venueID, "error", err)
		return nil, 0, apperrors.Internal("Failed to count bookings", err)
	}

	bookings, err := s.repo.FindByVenue(ctx, venueID, status, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "venue_id", venueID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", err)
	}

	return bookings, count, nil
}

func (s *bookingService) GetByPlayer(ctx context.Context, playerID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if playerID == "" {
		return nil, 0, apperrors.InvalidInput("Player ID cannot be empty")
	}

	count, err := s.repo.CountByPlayer(ctx, playerID)
	if err != nil {
		s.cfg.Log.Error("Failed to count bookings", "player_id", playerID, "error", err)
		return nil, 0, apperrors.Internal("Failed to count bookings", err)
	}

	bookings, err := s.repo.FindByPlayer(ctx, playerID, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "player_id", playerID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", err)
	}

	return bookings, count, nil
}

// UpdateStatus drives the booking lifecycle. Transitions are checked
// against the state machine, and the write is conditional on the status
// the decision was made from, so concurrent updates cannot interleave.
func (s *bookingService) UpdateStatus(ctx context.Context, id string, update *model.BookingStatusUpdate) (*model.Booking, error) {
	if err := s.validator.ValidateStatusUpdate(update); err != nil {
		s.cfg.Log.Warn("Booking status update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid status update", map[string]any{"error": err.Error()})
	}

	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	previousStatus := booking.Status

	if update.Status != "" && update.Status != booking.Status {
		if !model.CanTransition(booking.Status, update.Status) {
			return nil, apperrors.InvalidTransition(fmt.Sprintf(
				"Cannot move booking from %s to %s", booking.Status, update.Status,
			))
		}
	}
	if update.Status == "" && model.IsTerminalBookingStatus(booking.Status) {
		return nil, apperrors.Conflict(fmt.Sprintf("Booking is already %s", booking.Status))
	}

	set := repository.StatusSet{
		Status:        update.Status,
		PaymentStatus: update.PaymentStatus,
	}

	// Completion always settles the payment.
	if update.Status == model.BookingCompleted {
		set.PaymentStatus = model.PaymentStatusFullyPaid
	}
	if update.Status == model.BookingCancelled {
		set.CancelReason = update.CancelReason
		if set.CancelReason == "" {
			set.CancelReason = model.CancelledByVenue
		}
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.UpdateStatus(sessCtx, id, []string{previousStatus}, set); err != nil {
			return s.mapStatusError(err, id)
		}

		// Cancelling returns the booking's slots to the open pool in the
		// same transaction.
		if update.Status == model.BookingCancelled {
			if _, err := s.slotRepo.ReleaseBooked(sessCtx, booking.SlotIDs); err != nil {
				return apperrors.Internal("Failed to release booking slots", err)
			}
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update booking status", "id", id, "error", err)
		return nil, err
	}

	s.applyStatusSet(booking, set)

	s.cfg.Log.Info("Booking status updated",
		"id", id,
		"from", previousStatus,
		"to", booking.Status,
		"payment_status", booking.PaymentStatus,
	)

	if booking.Status != previousStatus {
		if err := s.publisher.BookingStatusChanged(ctx, booking, previousStatus); err != nil {
			s.cfg.Log.Warn("Booking status event not published", "id", id, "error", err)
		}
	}

	return booking, nil
}

// PublicCancel lets a guest cancel their own booking by proving they
// know the phone number it was made with.
func (s *bookingService) PublicCancel(ctx context.Context, req *model.PublicCancelRequest) (*model.Booking, error) {
	if err := s.validator.ValidatePublicCancel(req); err != nil {
		s.cfg.Log.Warn("Public cancel validation failed", "error", err)
		return nil, apperrors.Validation("Invalid cancellation request", map[string]any{"error": err.Error()})
	}

	booking, err := s.findBooking(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	if !sanitizer.SamePhone(req.Phone, booking.Phone) {
		s.cfg.Log.Warn("Public cancel phone mismatch", "booking_id", req.BookingID)
		return nil, apperrors.Unauthorized("Phone number does not match this booking")
	}

	if booking.Status == model.BookingCancelled {
		return nil, apperrors.Conflict("Booking is already cancelled")
	}
	if booking.Status == model.BookingCompleted {
		return nil, apperrors.Conflict("A completed booking cannot be cancelled")
	}

	reason := sanitizer.NormalizeReason(req.Reason)
	if reason == "" {
		reason = model.CancelledByPlayer
	}

	previousStatus := booking.Status
	set := repository.StatusSet{
		Status:       model.BookingCancelled,
		CancelReason: reason,
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		from := []string{model.BookingPendingPayment, model.BookingBooked}
		if err := s.repo.UpdateStatus(sessCtx, req.BookingID, from, set); err != nil {
			return s.mapStatusError(err, req.BookingID)
		}
		if _, err := s.slotRepo.ReleaseBooked(sessCtx, booking.SlotIDs); err != nil {
			return apperrors.Internal("Failed to release booking slots", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to cancel booking", "id", req.BookingID, "error", err)
		return nil, err
	}

	s.applyStatusSet(booking, set)

	s.cfg.Log.Info("Booking cancelled by player", "id", req.BookingID, "reason", reason)

	if err := s.publisher.BookingStatusChanged(ctx, booking, previousStatus); err != nil {
		s.cfg.Log.Warn("Booking status event not published", "id", req.BookingID, "error", err)
	}

	return booking, nil
}

// Complete is the venue's one-call settle: booked to completed with the
// payment marked fully paid.
func (s *bookingService) Complete(ctx context.Context, id string) (*model.Booking, error) {
	return s.UpdateStatus(ctx, id, &model.BookingStatusUpdate{
		Status: model.BookingCompleted,
	})
}

func (s *bookingService) Earnings(ctx context.Context, venueID string) (*model.EarningsSummary, error) {
	if venueID == "" {
		return nil, apperrors.InvalidInput("Venue ID cannot be empty")
	}
	if _, err := s.resolveVenue(ctx, venueID); err != nil {
		return nil, err
	}

	summary := &model.EarningsSummary{VenueID: venueID}
	today := s.now().Format(model.DateLayout)

	limit := config.DefaultPaginationLimit
	var offset int64
	for {
		bookings, err := s.repo.FindByVenue(ctx, venueID, "", limit, offset)
		if err != nil {
			return nil, apperrors.Internal("Failed to load bookings", err)
		}

		for _, booking := range bookings {
			switch booking.Status {
			case model.BookingBooked, model.BookingCompleted:
				slots, err := s.slotRepo.FindByIDs(ctx, booking.SlotIDs)
				if err != nil {
					return nil, apperrors.Internal("Failed to load booking slots", err)
				}

				for _, slot := range slots {
					if slot.Date == today {
						summary.TodayBookings++
						break
					}
				}

				summary.AdvanceCollected += booking.AdvanceAmount

				if booking.PaymentStatus == model.PaymentStatusPending ||
					booking.PaymentStatus == model.PaymentStatusPartiallyPaid {
					total := 0
					for _, slot := range slots {
						total += slot.Price
					}
					if outstanding := total - booking.AdvanceAmount; outstanding > 0 {
						summary.PendingPayments += outstanding
					}
				}
			case model.BookingCancelled:
				summary.CancelledCount++
			}
		}

		if len(bookings) < limit {
			break
		}
		offset += int64(len(bookings))
	}

	s.cfg.Log.Debug("Earnings computed",
		"venue_id", venueID,
		"today", summary.TodayBookings,
		"advance", summary.AdvanceCollected,
		"pending", summary.PendingPayments,
	)
	return summary, nil
}

// --- Helpers ---

func (s *bookingService) findBooking(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

func (s *bookingService) mapStatusError(err error, id string) error {
	if errors.Is(err, bookingserrors.ErrStatusChanged) {
		return apperrors.Conflict("Booking status changed concurrently, please refresh")
	}
	if errors.Is(err, bookingserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Booking", id)
	}
	if errors.Is(err, bookingserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid booking ID format")
	}
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal("Failed to update booking status", err)
}

func (s *bookingService) applyStatusSet(booking *model.Booking, set repository.StatusSet) {
	if set.Status != "" {
		booking.Status = set.Status
	}
	if set.PaymentStatus != "" {
		booking.PaymentStatus = set.PaymentStatus
	}
	if set.CancelReason != "" {
		booking.CancelReason = set.CancelReason
	}
}
