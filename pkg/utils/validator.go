package utils

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"charger-booking/pkg/civiltime"

	"github.com/go-playground/validator/v10"
)

var apartmentPattern = regexp.MustCompile(`^\d+-\d+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// report fields by their JSON name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("apartment", func(fl validator.FieldLevel) bool {
		return apartmentPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("civildate", func(fl validator.FieldLevel) bool {
		_, err := civiltime.ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("civilmonth", func(fl validator.FieldLevel) bool {
		_, _, err := civiltime.MonthRange(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, _, err := civiltime.ParseClock(fl.Field().String())
		return err == nil
	})

	return v
}

func ValidateStruct(data interface{}) map[string]string {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, err := range validationErrors {
			errors[err.Field()] = getErrorMessage(err)
		}
	}

	return errors
}

// converts validator errors to human-readable messages
func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "required_with":
		return "Start and end time must be given together"
	case "email":
		return "Invalid email format"
	case "min":
		return fmt.Sprintf("Minimum length is %s", err.Param())
	case "max":
		return fmt.Sprintf("Maximum length is %s", err.Param())
	case "len":
		return fmt.Sprintf("Must be exactly %s characters", err.Param())
	case "oneof":
		options := strings.ReplaceAll(err.Param(), " ", ", ")
		return fmt.Sprintf("Must be one of: %s", options)
	case "apartment":
		return "Must be TOWER-UNIT, e.g. 5-1502"
	case "civildate":
		return "Must be a valid date in YYYY-MM-DD format"
	case "civilmonth":
		return "Must be a valid month in YYYY-MM format"
	case "clock":
		return "Must be a 24-hour time in HH:MM format"
	default:
		return fmt.Sprintf("Invalid %s field", err.Field())
	}
}

// formats validation errors map into single string, ordered by field
func FormatValidationErrors(errors map[string]string) string {
	fields := make([]string, 0, len(errors))
	for field := range errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, field := range fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, errors[field]))
	}
	return strings.Join(msgs, "; ")
}

// ValidateVar checks a single value against a tag expression.
func ValidateVar(value any, tag string) bool {
	return validate.Var(value, tag) == nil
}
