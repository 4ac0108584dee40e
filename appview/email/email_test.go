package email

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	valid := []string{
		"a@x.com",
		"first.last@example.co.uk",
		"user+tag@example.com",
	}
	for _, addr := range valid {
		assert.True(t, IsValidEmail(addr), addr)
	}

	invalid := []string{
		"",
		"a",
		"@example.com",
		"user@",
		"user@@example.com",
		"user example.com",
		"a@" + strings.Repeat("x", 260) + ".com",
	}
	for _, addr := range invalid {
		assert.False(t, IsValidEmail(addr), addr)
	}
}
