package validator

import (
	"testing"

	"pitchbook/pkg/logger"
	"pitchbook/pkg/model"
)

func testValidator() *BookingValidator {
	return NewBookingValidator(logger.New(logger.Config{
		Level:   logger.LevelError,
		Format:  logger.FormatText,
		Service: "test",
	}))
}

func validRequest() *model.BookingRequest {
	return &model.BookingRequest{
		VenueID:           "507f1f77bcf86cd799439011",
		SlotIDs:           []string{"507f1f77bcf86cd799439021"},
		PlayerName:        "Arjun Rao",
		Phone:             "+919876543210",
		PlayersCount:      10,
		PaymentType:       model.PaymentTypePayAtVenue,
		RulesAcknowledged: true,
		PlayerID:          "507f1f77bcf86cd799439099",
	}
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(req *model.BookingRequest)
		wantErr bool
	}{
		{"valid pay at venue", func(req *model.BookingRequest) {}, false},
		{"valid advance", func(req *model.BookingRequest) {
			req.PaymentType = model.PaymentTypeAdvance
			req.AdvanceAmount = 200
		}, false},
		{"rules not acknowledged", func(req *model.BookingRequest) {
			req.RulesAcknowledged = false
		}, true},
		{"advance without amount", func(req *model.BookingRequest) {
			req.PaymentType = model.PaymentTypeAdvance
			req.AdvanceAmount = 0
		}, true},
		{"negative item quantity", func(req *model.BookingRequest) {
			req.Items = map[string]int{"507f1f77bcf86cd799439041": -1}
		}, true},
		{"no slots", func(req *model.BookingRequest) {
			req.SlotIDs = nil
		}, true},
		{"malformed slot id", func(req *model.BookingRequest) {
			req.SlotIDs = []string{"not-an-object-id"}
		}, true},
		{"unknown payment type", func(req *model.BookingRequest) {
			req.PaymentType = "crypto"
		}, true},
		{"single character name", func(req *model.BookingRequest) {
			req.PlayerName = "A"
		}, true},
		{"zero players", func(req *model.BookingRequest) {
			req.PlayersCount = 0
		}, true},
	}

	v := testValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			err := v.ValidateRequest(req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateStatusUpdate_RejectsEmpty(t *testing.T) {
	v := testValidator()
	if err := v.ValidateStatusUpdate(&model.BookingStatusUpdate{}); err == nil {
		t.Error("expected empty update to be rejected")
	}
	if err := v.ValidateStatusUpdate(&model.BookingStatusUpdate{PaymentStatus: model.PaymentStatusFullyPaid}); err != nil {
		t.Errorf("payment-only update should be valid, got: %v", err)
	}
}

func TestValidatePublicCancel(t *testing.T) {
	v := testValidator()
	if err := v.ValidatePublicCancel(&model.PublicCancelRequest{
		BookingID: "507f1f77bcf86cd799439031",
		Phone:     "+919876543210",
	}); err != nil {
		t.Errorf("valid cancel rejected: %v", err)
	}
	if err := v.ValidatePublicCancel(&model.PublicCancelRequest{Phone: "+919876543210"}); err == nil {
		t.Error("expected missing booking id to be rejected")
	}
}
