package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	MaxResponseLength = 500
	MinAttempts       = 1
	MaxAttempts       = 10
)

func (v *Validator) registerRules() {
	// Response text validation (at most 500 characters once trimmed)
	v.validate.RegisterValidation("response_text", func(fl validator.FieldLevel) bool {
		text := strings.TrimSpace(fl.Field().String())
		return utf8.RuneCountInString(text) <= MaxResponseLength
	})

	// Passing score validation (0-100)
	v.validate.RegisterValidation("passing_score", func(fl validator.FieldLevel) bool {
		score := fl.Field().Int()
		return score >= 0 && score <= 100
	})

	// Max attempts validation (1-10)
	v.validate.RegisterValidation("max_attempts", func(fl validator.FieldLevel) bool {
		attempts := fl.Field().Int()
		return attempts >= MinAttempts && attempts <= MaxAttempts
	})
}

// errorMessage returns user-friendly error messages
func errorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", err.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", err.Param())
	case "response_text":
		return fmt.Sprintf("must not exceed %d characters", MaxResponseLength)
	case "passing_score":
		return "must be between 0 and 100"
	case "max_attempts":
		return fmt.Sprintf("must be between %d and %d", MinAttempts, MaxAttempts)
	default:
		return fmt.Sprintf("validation failed for rule '%s'", err.Tag())
	}
}
