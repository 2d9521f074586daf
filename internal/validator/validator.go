package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"labbook/internal/models"
	"labbook/internal/timerange"
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

// BookingRequest is the inbound shape of a new booking.
type BookingRequest struct {
	AssetID   string `json:"assetId" validate:"required,max=64"`
	UserID    string `json:"userId" validate:"required,max=128"`
	Date      string `json:"date" validate:"required,day"`
	StartTime string `json:"startTime" validate:"required,clock"`
	EndTime   string `json:"endTime" validate:"required,clock"`
	Purpose   string `json:"purpose" validate:"max=500"`
}

// ToBooking converts a validated request. The date is read in loc.
func (r *BookingRequest) ToBooking(loc *time.Location) (*models.Booking, error) {
	date, err := timerange.ParseDate(r.Date, loc)
	if err != nil {
		return nil, err
	}
	return &models.Booking{
		AssetID:   r.AssetID,
		UserID:    r.UserID,
		Date:      date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Purpose:   r.Purpose,
	}, nil
}

// AssetRequest is the inbound shape of an asset upsert.
type AssetRequest struct {
	ID                 string     `json:"id" validate:"required,max=64"`
	Name               string     `json:"name" validate:"required,max=200"`
	Type               string     `json:"type" validate:"required,max=100"`
	CalibrationStatus  string     `json:"calibrationStatus" validate:"required,calibration"`
	LastCalibrated     *time.Time `json:"lastCalibrated,omitempty"`
	NextCalibrationDue *time.Time `json:"nextCalibrationDue,omitempty"`
	Location           string     `json:"location,omitempty" validate:"max=200"`
	Available          *bool      `json:"available,omitempty"`
}

// ToAsset converts a validated request. Available defaults to true.
func (r *AssetRequest) ToAsset() *models.Asset {
	available := true
	if r.Available != nil {
		available = *r.Available
	}
	return &models.Asset{
		ID:                 r.ID,
		Name:               r.Name,
		Type:               r.Type,
		CalibrationStatus:  models.CalibrationStatus(r.CalibrationStatus),
		LastCalibrated:     r.LastCalibrated,
		NextCalibrationDue: r.NextCalibrationDue,
		Location:           r.Location,
		Available:          available,
	}
}

type Validator struct {
	validate *validator.Validate
}

func New() (*Validator, error) {
	v := validator.New()

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("clock", validateClock); err != nil {
		return nil, fmt.Errorf("register 'clock' validator: %w", err)
	}
	if err := v.RegisterValidation("day", validateDay); err != nil {
		return nil, fmt.Errorf("register 'day' validator: %w", err)
	}
	if err := v.RegisterValidation("calibration", validateCalibration); err != nil {
		return nil, fmt.Errorf("register 'calibration' validator: %w", err)
	}
	v.RegisterStructValidation(validateBookingRange, BookingRequest{})

	return &Validator{validate: v}, nil
}

func validateClock(fl validator.FieldLevel) bool {
	return timerange.ValidClock(fl.Field().String())
}

func validateDay(fl validator.FieldLevel) bool {
	_, err := timerange.ParseDate(fl.Field().String(), time.UTC)
	return err == nil
}

func validateCalibration(fl validator.FieldLevel) bool {
	return models.CalibrationStatus(fl.Field().String()).Valid()
}

func validateBookingRange(sl validator.StructLevel) {
	r := sl.Current().Interface().(BookingRequest)
	if !timerange.ValidClock(r.StartTime) || !timerange.ValidClock(r.EndTime) {
		return
	}
	if r.StartTime >= r.EndTime {
		sl.ReportError(r.EndTime, "endTime", "EndTime", "after_start", "")
	}
}

// Struct validates s and returns ValidationErrors for field failures.
func (v *Validator) Struct(s any) error {
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
	var out ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "clock":
			message = fmt.Sprintf("%s must be in HH:MM 24-hour format", err.Field())
		case "day":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case "calibration":
			message = "calibrationStatus must be one of Calibrated, Due Soon, Overdue, Not Required"
		case "after_start":
			message = "endTime must be after startTime"
		}

		out = append(out, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return out
}
