package utils

import (
	"regexp"
	"strings"
)

var (
	addressLineRegex  = regexp.MustCompile(`^[\p{L}\p{N}\s,.'#ºª\-/]+$`)
	cityRegex         = regexp.MustCompile(`^[\p{L}\s'\-]+$`)
	postalCodePTRegex = regexp.MustCompile(`^[0-9]{4}-[0-9]{3}$`)
)

// ValidateShippingAddress checks the content of a delivery address. Presence
// of the fields is checked by the caller.
func ValidateShippingAddress(address, city, postalCode, country string) FieldValidationErrors {
	errs := FieldValidationErrors{}

	address = strings.TrimSpace(address)
	if len(address) > 255 {
		errs = append(errs, FieldValidationError{"address", "Address must not exceed 255 characters"})
	} else if address != "" && !addressLineRegex.MatchString(address) {
		errs = append(errs, FieldValidationError{"address", "Address contains invalid characters"})
	}

	city = strings.TrimSpace(city)
	if city != "" && !cityRegex.MatchString(city) {
		errs = append(errs, FieldValidationError{"city", "City must only contain letters and spaces"})
	}

	// Only Portuguese codes have a known format
	postalCode = strings.TrimSpace(postalCode)
	switch strings.ToUpper(strings.TrimSpace(country)) {
	case "PT", "PRT", "PORTUGAL":
		if postalCode != "" && !postalCodePTRegex.MatchString(postalCode) {
			errs = append(errs, FieldValidationError{"postalCode", "Postal code must use the format 1234-567"})
		}
	}

	return errs
}
