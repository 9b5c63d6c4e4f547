// Package validation holds request validation rules and input sanitizing.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	// MaxVisionLength is the longest vision text accepted, in characters
	MaxVisionLength = 500
	// MaxFundingAmount caps a single funding pledge
	MaxFundingAmount = 1_000_000
)

// Validate is a shared validator instance
var Validate *validator.Validate

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("vision_text", validateVisionText); err != nil {
		panic(fmt.Sprintf("failed to register vision_text validator: %v", err))
	}
}

// validateVisionText rejects text that is blank once sanitized
func validateVisionText(fl validator.FieldLevel) bool {
	return SanitizeText(fl.Field().String()) != ""
}

// VisionRequest is the body of a vision submission
type VisionRequest struct {
	Text       string `json:"text" validate:"required,vision_text,max=500"`
	CategoryID string `json:"category_id,omitempty" validate:"omitempty,max=64"`
}

// CategorizeRequest is the body of a categorize call
type CategorizeRequest struct {
	Text string `json:"text" validate:"required,max=500"`
}

// FundingRequest is the body of a funding pledge
type FundingRequest struct {
	CategoryID string `json:"category_id" validate:"required,max=64"`
	Amount     int    `json:"amount" validate:"required,gt=0,lte=1000000"`
}

// SanitizeText trims whitespace and removes control characters other than
// newline and tab.
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}
	return sanitized.String()
}

// ErrEmptyVision is returned for text that is blank after sanitizing
var ErrEmptyVision = errors.New("vision text is required")

// VisionText sanitizes text and enforces the length limit
func VisionText(text string) (string, error) {
	s := SanitizeText(text)
	if s == "" {
		return "", ErrEmptyVision
	}
	if n := utf8.RuneCountInString(s); n > MaxVisionLength {
		return "", fmt.Errorf("vision text is %d characters, maximum is %d", n, MaxVisionLength)
	}
	return s, nil
}

// Message turns a validation error into a client-facing message
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation failed"
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required", "vision_text":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s exceeds maximum of %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("Validation failed: %s", fe.Error())
	}
}
