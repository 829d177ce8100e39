package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateShippingAddress(t *testing.T) {
	assert.Empty(t, ValidateShippingAddress("Rua de São Bento 12, 3º Esq.", "Évora", "7000-123", "PT"))
	assert.Empty(t, ValidateShippingAddress("221B Baker Street", "London", "NW1 6XE", "GB"), "foreign postal codes are not checked")

	errs := ValidateShippingAddress("Rua <script>", "Porto 1", "4000", "Portugal")
	fields := map[string]string{}
	for _, e := range errs {
		fields[e.Field] = e.Message
	}
	assert.Equal(t, map[string]string{
		"address":    "Address contains invalid characters",
		"city":       "City must only contain letters and spaces",
		"postalCode": "Postal code must use the format 1234-567",
	}, fields)
}
