package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"storybook-service/internal/models"
)

func validAddress() models.Address {
	return models.Address{
		FirstName: "Ann",
		LastName:  "Lee",
		Address1:  "10 Downing St",
		City:      "London",
		Postcode:  "SW1A 2AA",
		Country:   "GB",
		Phone:     "+44 20 7946 0958",
	}
}

func fields(errs AddressValidationErrors) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field+":"+e.Code)
	}
	return out
}

func TestValidateShippingAddress_Valid(t *testing.T) {
	addr := validAddress()
	assert.False(t, ValidateShippingAddress(&addr).HasErrors())
}

func TestValidateShippingAddress_RequiredFields(t *testing.T) {
	errs := ValidateShippingAddress(&models.Address{})

	assert.ElementsMatch(t, []string{
		"address_1:REQUIRED",
		"city:REQUIRED",
		"postcode:REQUIRED",
		"country:REQUIRED",
	}, fields(errs))
	assert.Contains(t, errs.Error(), "City is required")
}

func TestValidateShippingAddress_PostcodeByCountry(t *testing.T) {
	addr := validAddress()
	addr.Country = "US"
	addr.Postcode = "ABCDE"

	assert.Contains(t, fields(ValidateShippingAddress(&addr)), "postcode:INVALID_FORMAT")

	addr.Postcode = "94105"
	assert.False(t, ValidateShippingAddress(&addr).HasErrors())
}

func TestValidateShippingAddress_LengthAndCharacters(t *testing.T) {
	addr := validAddress()
	addr.City = strings.Repeat("x", MaxCityLength+1)
	addr.Address2 = "<script>"

	got := fields(ValidateShippingAddress(&addr))

	assert.Contains(t, got, "city:MAX_LENGTH")
	assert.Contains(t, got, "address_2:INVALID_CHARACTERS")
}

func TestValidateShippingAddress_CountryCode(t *testing.T) {
	addr := validAddress()
	addr.Country = "Germany"

	assert.Contains(t, fields(ValidateShippingAddress(&addr)), "country:INVALID_FORMAT")
}

func TestNormalizeAddress(t *testing.T) {
	addr := models.Address{City: "  Paris ", Country: " fr "}
	NormalizeAddress(&addr)

	assert.Equal(t, "Paris", addr.City)
	assert.Equal(t, "FR", addr.Country)
}
