package validation

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
	minPhoneDigits       = 7
	maxPhoneDigits       = 15
)

// ValidateTitle requires a non-blank title within MaxTitleLength.
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("title too long (max %d characters)", MaxTitleLength)
	}
	return nil
}

// ValidateDescription bounds the free-text description.
func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return fmt.Errorf("description too long (max %d characters)", MaxDescriptionLength)
	}
	return nil
}

// ValidatePhone accepts international formatting as long as the digit count is plausible.
func ValidatePhone(phone string) error {
	digits := 0
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return fmt.Errorf("invalid character %q in phone number", r)
		}
	}
	if digits < minPhoneDigits || digits > maxPhoneDigits {
		return errors.New("phone number must have between 7 and 15 digits")
	}
	return nil
}

// ValidateCoordinates requires both or neither coordinate and checks their ranges.
func ValidateCoordinates(lat, lng *float64) error {
	if (lat == nil) != (lng == nil) {
		return errors.New("location_lat and location_lng must be provided together")
	}
	if lat == nil {
		return nil
	}
	if math.IsNaN(*lat) || *lat < -90 || *lat > 90 {
		return errors.New("location_lat out of range")
	}
	if math.IsNaN(*lng) || *lng < -180 || *lng > 180 {
		return errors.New("location_lng out of range")
	}
	return nil
}
