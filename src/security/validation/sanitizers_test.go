package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanBankText(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"trims whitespace", "  ACME STORE  ", "ACME STORE"},
		{"strips html", "ACME <script>alert(1)</script> STORE", "ACME  STORE"},
		{"strips control characters", "ACME STORE\x07\x1b", "ACME STORE"},
		{"keeps accented text", "Café Zürich", "Café Zürich"},
		{"empty stays empty", "   ", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CleanBankText(tc.input))
		})
	}
}

func TestSanitizeForFormulaInjection(t *testing.T) {
	assert.Equal(t, "'=SUM(A1)", SanitizeForFormulaInjection("=SUM(A1)"))
	assert.Equal(t, "'+1234", SanitizeForFormulaInjection("+1234"))
	assert.Equal(t, "plain text", SanitizeForFormulaInjection("plain text"))
}
