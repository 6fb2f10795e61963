package pii

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"storybook-service/internal/models"
)

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "j***@example.com", MaskEmail("jane@example.com"))
	assert.Equal(t, "***", MaskEmail("a@b"))
	assert.Equal(t, "***", MaskEmail("not-an-email"))
	assert.Equal(t, "É***@x.fr", MaskEmail("Élodie@x.fr"))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "***0958", MaskPhone("+44 20 7946 0958"))
	assert.Equal(t, "***", MaskPhone("12"))
}

func TestMaskAddress(t *testing.T) {
	masked := MaskAddress(models.Address{
		FirstName: "Ann",
		LastName:  "Lee",
		Address1:  "10 Downing St",
		City:      "London",
		Postcode:  "SW1A 2AA",
		Country:   "GB",
		Email:     "ann@x.com",
	})

	assert.Equal(t, "A***", masked.FirstName)
	assert.Equal(t, "10 ***", masked.Address1)
	assert.Empty(t, masked.Address2)
	assert.Equal(t, "London", masked.City)
	assert.Equal(t, "SW1***", masked.Postcode)
	assert.Equal(t, "a***@x.com", masked.Email)
	assert.Empty(t, masked.Phone)
}

func TestMaskCustomer_DoesNotTouchAggregates(t *testing.T) {
	c := models.Customer{Email: "ann@x.com", FirstName: "Ann", TotalSpent: "12.00", OrdersCount: 3, AvatarURL: "https://gravatar/x"}

	masked := MaskCustomer(c)

	assert.Equal(t, "a***@x.com", masked.Email)
	assert.Equal(t, "12.00", masked.TotalSpent)
	assert.Equal(t, 3, masked.OrdersCount)
	assert.Empty(t, masked.AvatarURL)
	assert.Equal(t, "ann@x.com", c.Email, "input is not modified")
}

func TestHashEmail(t *testing.T) {
	assert.Equal(t, HashEmail("Ann@X.com "), HashEmail("ann@x.com"))
	assert.Len(t, HashEmail("ann@x.com"), 16)
	assert.Empty(t, HashEmail(""))
}
