package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	sloterrors "pitchbook/internal/slots/errors"
	"pitchbook/internal/slots/repository"
	"pitchbook/internal/slots/validator"
	venueerrors "pitchbook/internal/venues/errors"
	venuerepo "pitchbook/internal/venues/repository"
	"pitchbook/pkg/config"
	apperrors "pitchbook/pkg/errors"
	"pitchbook/pkg/model"
)

type SlotService interface {
	GetByID(ctx context.Context, id string) (*model.Slot, error)
	ListByVenueAndDate(ctx context.Context, venueID string, date string) ([]*model.Slot, error)
	Generate(ctx context.Context, req *model.SlotGenerateRequest) (int, error)
	Acquire(ctx context.Context, req *model.SlotLockRequest) (*model.AcquireResult, error)
	Release(ctx context.Context, req *model.SlotUnlockRequest) error
	Update(ctx context.Context, id string, updates *model.SlotUpdate) (*model.Slot, error)
}

type slotService struct {
	repo      repository.SlotRepository
	venueRepo venuerepo.VenueRepository
	validator *validator.SlotValidator
	cfg       *config.Config

	// injectable clock for lock expiry tests
	now func() time.Time
}

func NewSlotService(
	repo repository.SlotRepository,
	venueRepo venuerepo.VenueRepository,
	validator *validator.SlotValidator,
	cfg *config.Config,
) SlotService {
	return &slotService{
		repo:      repo,
		venueRepo: venueRepo,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

// cutoff is the lock timestamp boundary: any lock placed before it has
// outlived the TTL.
func (s *slotService) cutoff(now time.Time) time.Time {
	return now.Add(-s.cfg.SlotLockTTL)
}

func (s *slotService) GetByID(ctx context.Context, id string) (*model.Slot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}

	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapSlotError(err, id)
	}

	// Present expired reservations as available without waiting for a
	// sweep to materialize it.
	slot.Status = slot.EffectiveStatus(s.now(), s.cfg.SlotLockTTL)
	if slot.Status == model.SlotAvailable {
		slot.LockedBy = ""
		slot.LockedAt = nil
	}
	return slot, nil
}

func (s *slotService) ListByVenueAndDate(ctx context.Context, venueID string, date string) ([]*model.Slot, error) {
	if venueID == "" {
		return nil, apperrors.InvalidInput("Venue ID cannot be empty")
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD", date))
	}

	now := s.now()
	released, err := s.repo.ExpireSweep(ctx, venueID, date, s.cutoff(now))
	if err != nil {
		s.cfg.Log.Error("Failed to sweep expired slot locks", "venue_id", venueID, "date", date, "error", err)
		return nil, apperrors.Internal("Failed to refresh slot availability", err)
	}
	if released > 0 {
		s.cfg.Log.Info("Expired slot locks released", "venue_id", venueID, "date", date, "count", released)
	}

	slots, err := s.repo.FindByVenueAndDate(ctx, venueID, date)
	if err != nil {
		s.cfg.Log.Error("Failed to list slots", "venue_id", venueID, "date", date, "error", err)
		return nil, apperrors.Internal("Failed to retrieve slots", err)
	}

	return slots, nil
}

func (s *slotService) Generate(ctx context.Context, req *model.SlotGenerateRequest) (int, error) {
	if err := s.validator.ValidateGenerate(req); err != nil {
		s.cfg.Log.Warn("Slot generation validation failed", "error", err)
		return 0, apperrors.Validation("Invalid slot generation request", map[string]any{"error": err.Error()})
	}

	today := s.now().Format(model.DateLayout)
	if req.Date < today {
		return 0, apperrors.InvalidInput("Cannot generate slots for a past date")
	}

	venue, err := s.venueRepo.FindByID(ctx, req.VenueID)
	if err != nil {
		if errors.Is(err, venueerrors.ErrNotFound) || errors.Is(err, venueerrors.ErrInvalidID) {
			return 0, apperrors.InvalidReference(fmt.Sprintf("Venue %s does not exist", req.VenueID))
		}
		return 0, apperrors.Internal("Failed to resolve venue", err)
	}

	slots, err := s.buildDayGrid(venue, req.Date)
	if err != nil {
		return 0, err
	}
	if len(slots) == 0 {
		return 0, apperrors.InvalidInput("Venue operating hours leave no room for a slot")
	}

	inserted, err := s.repo.InsertMany(ctx, slots)
	if err != nil {
		s.cfg.Log.Error("Failed to generate slots", "venue_id", req.VenueID, "date", req.Date, "error", err)
		return 0, apperrors.Internal("Failed to generate slots", err)
	}

	s.cfg.Log.Info("Slot grid generated",
		"venue_id", req.VenueID,
		"date", req.Date,
		"requested", len(slots),
		"inserted", inserted,
	)
	return inserted, nil
}

// buildDayGrid lays fixed-duration slots between the venue's opening and
// closing times. Venue fields fall back to the configured defaults.
func (s *slotService) buildDayGrid(venue *model.Venue, date string) ([]*model.Slot, error) {
	opening := venue.OpeningTime
	if opening == "" {
		opening = s.cfg.DefaultVenueOpeningTime
	}
	closing := venue.ClosingTime
	if closing == "" {
		closing = s.cfg.DefaultVenueClosingTime
	}
	durationMin := venue.SlotDurationMin
	if durationMin <= 0 {
		durationMin = s.cfg.DefaultSlotDurationMin
	}
	price := venue.BasePrice
	if price <= 0 {
		price = s.cfg.DefaultSlotPrice
	}

	openAt, err := time.Parse(model.TimeLayout, opening)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Venue opening time %q is not HH:MM", opening))
	}
	closeAt, err := time.Parse(model.TimeLayout, closing)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Venue closing time %q is not HH:MM", closing))
	}
	if !closeAt.After(openAt) {
		return nil, apperrors.InvalidInput("Venue closing time must be after opening time")
	}

	step := time.Duration(durationMin) * time.Minute
	var slots []*model.Slot
	for start := openAt; !start.Add(step).After(closeAt); start = start.Add(step) {
		end := start.Add(step)
		slots = append(slots, &model.Slot{
			VenueID:   venue.ID,
			Date:      date,
			StartTime: start.Format(model.TimeLayout),
			EndTime:   end.Format(model.TimeLayout),
			Price:     price,
			Status:    model.SlotAvailable,
		})
	}

	return slots, nil
}

func (s *slotService) Acquire(ctx context.Context, req *model.SlotLockRequest) (*model.AcquireResult, error) {
	if err := s.validator.ValidateLock(req); err != nil {
		s.cfg.Log.Warn("Slot lock validation failed", "error", err)
		return nil, apperrors.Validation("Invalid lock request", map[string]any{"error": err.Error()})
	}

	slot, err := s.repo.FindByID(ctx, req.SlotID)
	if err != nil {
		return nil, s.mapSlotError(err, req.SlotID)
	}

	now := s.now()
	if slot.InPast(now) {
		return nil, apperrors.PastSlot("Cannot lock a slot that has already started")
	}

	acquired, err := s.repo.AcquireLock(ctx, req.SlotID, req.PlayerID, now, s.cutoff(now))
	if err != nil {
		if errors.Is(err, sloterrors.ErrLockConflict) {
			return nil, s.classifyLockConflict(ctx, req.SlotID, now)
		}
		s.cfg.Log.Error("Failed to acquire slot lock", "slot_id", req.SlotID, "player_id", req.PlayerID, "error", err)
		return nil, apperrors.Internal("Failed to lock slot", err)
	}

	result := &model.AcquireResult{Slot: acquired}

	held, err := s.repo.FindHeldByPlayer(ctx, acquired.VenueID, req.PlayerID, s.cutoff(now))
	if err != nil {
		// The lock itself succeeded; degrade to reporting just it.
		s.cfg.Log.Warn("Failed to load player selection after lock", "player_id", req.PlayerID, "error", err)
		result.Held = []*model.Slot{acquired}
		return result, nil
	}

	if len(held) > 1 && !validator.Contiguous(held) {
		released, err := s.repo.ReleaseByPlayer(ctx, acquired.VenueID, req.PlayerID, []string{acquired.ID})
		if err != nil {
			s.cfg.Log.Error("Failed to reset player selection", "player_id", req.PlayerID, "error", err)
			return nil, apperrors.Internal("Failed to reset slot selection", err)
		}
		s.cfg.Log.Info("Slot selection reset",
			"player_id", req.PlayerID,
			"venue_id", acquired.VenueID,
			"kept_slot", acquired.ID,
			"released", released,
		)
		result.Held = []*model.Slot{acquired}
		result.SelectionReset = true
		return result, nil
	}

	result.Held = held
	return result, nil
}

// classifyLockConflict turns a failed atomic acquire into a specific
// client-facing error by inspecting the slot's current state.
func (s *slotService) classifyLockConflict(ctx context.Context, slotID string, now time.Time) error {
	slot, err := s.repo.FindByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, sloterrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Slot", slotID)
		}
		return apperrors.Conflict("Slot is no longer available")
	}

	switch slot.EffectiveStatus(now, s.cfg.SlotLockTTL) {
	case model.SlotBooked:
		return apperrors.Conflict("Slot is already booked")
	case model.SlotBlocked:
		return apperrors.Conflict("Slot is blocked by the venue")
	case model.SlotReserved:
		return apperrors.Conflict("Slot is currently held by another player")
	default:
		// State changed again between the acquire and this read.
		return apperrors.Conflict("Slot is no longer available, please retry")
	}
}

func (s *slotService) Release(ctx context.Context, req *model.SlotUnlockRequest) error {
	if err := s.validator.ValidateUnlock(req); err != nil {
		s.cfg.Log.Warn("Slot unlock validation failed", "error", err)
		return apperrors.Validation("Invalid unlock request", map[string]any{"error": err.Error()})
	}

	released, err := s.repo.ReleaseLock(ctx, req.SlotID, req.PlayerID)
	if err != nil {
		if errors.Is(err, sloterrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid slot ID format")
		}
		s.cfg.Log.Error("Failed to release slot lock", "slot_id", req.SlotID, "player_id", req.PlayerID, "error", err)
		return apperrors.Internal("Failed to unlock slot", err)
	}

	// Releasing a lock the player no longer holds is a no-op, not an
	// error: the TTL may have already reclaimed it.
	if !released {
		s.cfg.Log.Debug("Unlock matched no held lock", "slot_id", req.SlotID, "player_id", req.PlayerID)
	}
	return nil
}

func (s *slotService) Update(ctx context.Context, id string, updates *model.SlotUpdate) (*model.Slot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}
	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Slot update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid slot update", map[string]any{"error": err.Error()})
	}

	slot, err := s.repo.UpdateSlot(ctx, id, updates)
	if err != nil {
		if errors.Is(err, sloterrors.ErrNotEditable) {
			// Distinguish a missing slot from one in a protected state.
			if _, findErr := s.repo.FindByID(ctx, id); errors.Is(findErr, sloterrors.ErrNotFound) {
				return nil, apperrors.NotFoundWithID("Slot", id)
			}
			return nil, apperrors.Conflict("Slot cannot be edited while reserved or booked")
		}
		if errors.Is(err, sloterrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid slot ID format")
		}
		s.cfg.Log.Error("Failed to update slot", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update slot", err)
	}

	s.cfg.Log.Info("Slot updated", "id", id)
	return slot, nil
}

func (s *slotService) mapSlotError(err error, id string) error {
	if errors.Is(err, sloterrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Slot", id)
	}
	if errors.Is(err, sloterrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid slot ID format")
	}
	return apperrors.Internal("Failed to retrieve slot", err)
}
