// Package pii masks customer personal data before it reaches logs or the debug CLI.
package pii

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"storybook-service/internal/models"
)

const mask = "***"

// MaskEmail masks an email address for display (e.g., "j***@example.com")
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 1 || utf8.RuneCountInString(email) < 5 {
		return mask
	}
	first, _ := utf8.DecodeRuneInString(email)
	return string(first) + mask + email[at:]
}

// MaskPhone keeps the last 4 digits
func MaskPhone(phone string) string {
	digits := normalizePhone(phone)
	if len(digits) < 4 {
		return mask
	}
	return mask + digits[len(digits)-4:]
}

// MaskName masks a name for display (e.g., "J***")
func MaskName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	first, _ := utf8.DecodeRuneInString(name)
	return string(first) + mask
}

// MaskStreet keeps the first 3 characters of an address line
func MaskStreet(line string) string {
	r := []rune(strings.TrimSpace(line))
	if len(r) == 0 {
		return ""
	}
	if len(r) < 5 {
		return mask
	}
	return string(r[:3]) + mask
}

// MaskPostcode keeps the first 3 characters for partial matching
func MaskPostcode(postcode string) string {
	r := []rune(strings.TrimSpace(postcode))
	if len(r) < 3 {
		return mask
	}
	return string(r[:3]) + mask
}

// MaskAddress masks the personal fields of an address. City, state and country are kept.
func MaskAddress(a models.Address) models.Address {
	return models.Address{
		FirstName: MaskName(a.FirstName),
		LastName:  MaskName(a.LastName),
		Company:   MaskName(a.Company),
		Address1:  MaskStreet(a.Address1),
		Address2:  MaskStreet(a.Address2),
		City:      a.City,
		State:     a.State,
		Postcode:  MaskPostcode(a.Postcode),
		Country:   a.Country,
		Email:     maskOptionalEmail(a.Email),
		Phone:     maskOptionalPhone(a.Phone),
	}
}

// MaskCustomer returns a copy of c with personal fields masked.
func MaskCustomer(c models.Customer) models.Customer {
	c.Email = MaskEmail(c.Email)
	c.FirstName = MaskName(c.FirstName)
	c.LastName = MaskName(c.LastName)
	c.Billing = MaskAddress(c.Billing)
	c.AvatarURL = ""
	return c
}

// HashEmail is a stable, non-reversible correlation id for an email in logs.
func HashEmail(email string) string {
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:8])
}

func maskOptionalEmail(email string) string {
	if email == "" {
		return ""
	}
	return MaskEmail(email)
}

func maskOptionalPhone(phone string) string {
	if phone == "" {
		return ""
	}
	return MaskPhone(phone)
}

// normalizePhone removes all non-digit characters from a phone number
func normalizePhone(phone string) string {
	var result strings.Builder
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			result.WriteRune(c)
		}
	}
	return result.String()
}
