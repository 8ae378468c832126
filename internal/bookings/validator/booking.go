package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"pitchbook/pkg/logger"
	"pitchbook/pkg/model"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	return &BookingValidator{
		validate: validator.New(),
		logger:   log,
	}
}

func (v *BookingValidator) ValidateRequest(req *model.BookingRequest) error {
	if err := v.validateStruct(req); err != nil {
		return err
	}

	if !req.RulesAcknowledged {
		return ValidationErrors{
			ValidationError{
				Field:   "RulesAcknowledged",
				Message: "venue rules must be acknowledged before booking",
			},
		}
	}

	if req.PaymentType == model.PaymentTypeAdvance && req.AdvanceAmount <= 0 {
		return ValidationErrors{
			ValidationError{
				Field:   "AdvanceAmount",
				Message: "advance payment requires a positive advance_amount",
			},
		}
	}

	for itemID, qty := range req.Items {
		if qty < 0 {
			return ValidationErrors{
				ValidationError{
					Field:   "Items",
					Message: fmt.Sprintf("quantity for item %s cannot be negative", itemID),
				},
			}
		}
	}

	return nil
}

func (v *BookingValidator) ValidateStatusUpdate(update *model.BookingStatusUpdate) error {
	if update.Status == "" && update.PaymentStatus == "" {
		return ValidationErrors{
			ValidationError{
				Field:   "BookingStatusUpdate",
				Message: "at least one of status or payment_status must be provided",
			},
		}
	}
	return v.validateStruct(update)
}

func (v *BookingValidator) ValidatePublicCancel(req *model.PublicCancelRequest) error {
	return v.validateStruct(req)
}

func (v *BookingValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
