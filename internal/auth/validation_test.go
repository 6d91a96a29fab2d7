package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"ada@example.com",
		"ada.lovelace+koru@example.co.uk",
		"a_b%c@sub.example.org",
	}
	for _, email := range valid {
		assert.True(t, ValidateEmail(email), email)
	}

	invalid := []string{
		"",
		"ada",
		"ada@",
		"@example.com",
		"ada@example",
		"ada @example.com",
		strings.Repeat("a", 250) + "@example.com",
	}
	for _, email := range invalid {
		assert.False(t, ValidateEmail(email), email)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.False(t, ValidatePassword("short"))
	assert.True(t, ValidatePassword("exactly8"))
	assert.True(t, ValidatePassword(strings.Repeat("a", 72)))
	assert.False(t, ValidatePassword(strings.Repeat("a", 73)))
}
