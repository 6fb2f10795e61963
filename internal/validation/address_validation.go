package validation

import (
	"fmt"
	"regexp"
	"strings"

	"storybook-service/internal/models"
)

// AddressValidationError represents a validation error with field details
type AddressValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e AddressValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// AddressValidationErrors is a collection of validation errors
type AddressValidationErrors []AddressValidationError

func (e AddressValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are validation errors
func (e AddressValidationErrors) HasErrors() bool {
	return len(e) > 0
}

var (
	// ISO 3166-1 alpha-2
	countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

	phonePattern = regexp.MustCompile(`^[\+]?[(]?[0-9]{1,4}[)]?[-\s\.]?[(]?[0-9]{1,3}[)]?[-\s\.]?[0-9]{1,4}[-\s\.]?[0-9]{1,4}[-\s\.]?[0-9]{1,9}$`)

	postcodePatterns = map[string]*regexp.Regexp{
		"US": regexp.MustCompile(`^\d{5}(-\d{4})?$`),
		"CA": regexp.MustCompile(`^[A-Za-z]\d[A-Za-z][ -]?\d[A-Za-z]\d$`),
		"GB": regexp.MustCompile(`^[A-Za-z]{1,2}[0-9][A-Za-z0-9]? ?[0-9][A-Za-z]{2}$`),
		"AU": regexp.MustCompile(`^\d{4}$`),
		"IN": regexp.MustCompile(`^\d{6}$`),
		"DE": regexp.MustCompile(`^\d{5}$`),
		"FR": regexp.MustCompile(`^\d{5}$`),
		"NL": regexp.MustCompile(`^\d{4} ?[A-Za-z]{2}$`),
	}

	// Markup or control characters never belong on a shipping label
	dangerousCharsPattern = regexp.MustCompile(`[<>\"';\x00-\x1f]`)
)

// Field length limits
const (
	MaxNameLength     = 100
	MaxCompanyLength  = 255
	MaxAddressLength  = 255
	MaxCityLength     = 100
	MaxStateLength    = 100
	MaxPostcodeLength = 20
	MaxPhoneLength    = 50
)

// ValidateShippingAddress validates an address a print vendor will ship to.
func ValidateShippingAddress(address *models.Address) AddressValidationErrors {
	var errs AddressValidationErrors

	required := []struct {
		field, value, label string
	}{
		{"address_1", address.Address1, "Address line 1"},
		{"city", address.City, "City"},
		{"postcode", address.Postcode, "Postcode"},
		{"country", address.Country, "Country"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, AddressValidationError{
				Field:   r.field,
				Message: r.label + " is required",
				Code:    "REQUIRED",
			})
		}
	}

	limits := []struct {
		field, value string
		max          int
	}{
		{"first_name", address.FirstName, MaxNameLength},
		{"last_name", address.LastName, MaxNameLength},
		{"company", address.Company, MaxCompanyLength},
		{"address_1", address.Address1, MaxAddressLength},
		{"address_2", address.Address2, MaxAddressLength},
		{"city", address.City, MaxCityLength},
		{"state", address.State, MaxStateLength},
		{"postcode", address.Postcode, MaxPostcodeLength},
		{"phone", address.Phone, MaxPhoneLength},
	}
	for _, l := range limits {
		if len(l.value) > l.max {
			errs = append(errs, AddressValidationError{
				Field:   l.field,
				Message: fmt.Sprintf("Must not exceed %d characters", l.max),
				Code:    "MAX_LENGTH",
			})
		}
		if dangerousCharsPattern.MatchString(l.value) {
			errs = append(errs, AddressValidationError{
				Field:   l.field,
				Message: "Contains invalid characters",
				Code:    "INVALID_CHARACTERS",
			})
		}
	}

	country := strings.ToUpper(strings.TrimSpace(address.Country))
	if country != "" && !countryCodePattern.MatchString(country) {
		errs = append(errs, AddressValidationError{
			Field:   "country",
			Message: "Country must be a 2-letter ISO code",
			Code:    "INVALID_FORMAT",
		})
	}

	if pattern, ok := postcodePatterns[country]; ok && address.Postcode != "" {
		if !pattern.MatchString(strings.TrimSpace(address.Postcode)) {
			errs = append(errs, AddressValidationError{
				Field:   "postcode",
				Message: fmt.Sprintf("Invalid postcode format for %s", country),
				Code:    "INVALID_FORMAT",
			})
		}
	}

	if address.Phone != "" && !phonePattern.MatchString(strings.TrimSpace(address.Phone)) {
		errs = append(errs, AddressValidationError{
			Field:   "phone",
			Message: "Invalid phone number format",
			Code:    "INVALID_FORMAT",
		})
	}

	return errs
}

// NormalizeAddress trims whitespace and upper-cases the country code.
func NormalizeAddress(address *models.Address) {
	address.FirstName = strings.TrimSpace(address.FirstName)
	address.LastName = strings.TrimSpace(address.LastName)
	address.Company = strings.TrimSpace(address.Company)
	address.Address1 = strings.TrimSpace(address.Address1)
	address.Address2 = strings.TrimSpace(address.Address2)
	address.City = strings.TrimSpace(address.City)
	address.State = strings.TrimSpace(address.State)
	address.Postcode = strings.TrimSpace(address.Postcode)
	address.Country = strings.ToUpper(strings.TrimSpace(address.Country))
	address.Phone = strings.TrimSpace(address.Phone)
}
