package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"slotbook/pkg/logger"
	"slotbook/pkg/model"
	"slotbook/pkg/timenorm"

	"github.com/go-playground/validator/v10"
)

var (
	hhmmRegex    = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	isoDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
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

// SchedulingValidator checks request payloads before they reach the
// scheduling service. Calendar validity and time zone resolution stay with
// the normalizer; the tags here only check shape.
type SchedulingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewSchedulingValidator(log *logger.Logger) *SchedulingValidator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	custom := map[string]validator.Func{
		"hhmm":               validateHHMM,
		"hhmm_end":           validateHHMMEnd,
		"iso_date":           validateISODate,
		"reservation_status": validateReservationStatus,
		"actor_role":         validateActorRole,
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatal("Failed to register validator", "tag", tag, "error", err)
		}
	}

	log.Debug("Scheduling validator initialized successfully")

	return &SchedulingValidator{
		validate: v,
		logger:   log,
	}
}

func (v *SchedulingValidator) Validate(payload any) error {
	if err := v.validate.Struct(payload); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

func validateHHMM(fl validator.FieldLevel) bool {
	return hhmmRegex.MatchString(fl.Field().String())
}

// validateHHMMEnd also admits 24:00, which only makes sense as an end bound.
func validateHHMMEnd(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == timenorm.EndOfDay || hhmmRegex.MatchString(value)
}

func validateISODate(fl validator.FieldLevel) bool {
	return isoDateRegex.MatchString(fl.Field().String())
}

func validateReservationStatus(fl validator.FieldLevel) bool {
	return model.ReservationStatus(fl.Field().String()).Valid()
}

func validateActorRole(fl validator.FieldLevel) bool {
	return model.ActorRole(fl.Field().String()).Valid()
}

func (v *SchedulingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "required_with":
			message = fmt.Sprintf("%s is required when any of %s is set", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "uuid":
			message = fmt.Sprintf("%s must be a valid UUID", err.Field())
		case "hhmm":
			message = fmt.Sprintf("%s must be HH:MM in 24-hour format", err.Field())
		case "hhmm_end":
			message = fmt.Sprintf("%s must be HH:MM in 24-hour format or 24:00", err.Field())
		case "iso_date":
			message = fmt.Sprintf("%s must be YYYY-MM-DD", err.Field())
		case "reservation_status":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), joinStatuses())
		case "actor_role":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), joinRoles())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}

func joinStatuses() string {
	values := make([]string, 0, len(model.AllReservationStatuses))
	for _, s := range model.AllReservationStatuses {
		values = append(values, string(s))
	}
	return strings.Join(values, " ")
}

func joinRoles() string {
	values := make([]string, 0, len(model.AllActorRoles))
	for _, r := range model.AllActorRoles {
		values = append(values, string(r))
	}
	return strings.Join(values, " ")
}
