package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRegister(t *testing.T) {
	errs := ValidateRegister("alice@example.com", "Alice", "Str0ngPass")
	assert.False(t, errs.HasErrors())

	errs = ValidateRegister("", "", "")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "display_name")
	assert.Contains(t, errs, "password")

	errs = ValidateRegister("not-an-email", "Alice", "Str0ngPass")
	assert.Equal(t, "Invalid email address", errs["email"])

	errs = ValidateRegister("alice@example.com", "A", "Str0ngPass")
	assert.Contains(t, errs, "display_name")
}

func TestValidatePasswordRules(t *testing.T) {
	cases := []struct {
		password string
		want     string
	}{
		{"short1A", "at least 8 characters"},
		{"alllowercase1", "one uppercase letter"},
		{"ALLUPPERCASE1", "one lowercase letter"},
		{"NoDigitsHere", "one number"},
		{"G00dPassword", ""},
	}

	for _, tc := range cases {
		errs := ValidateRegister("alice@example.com", "Alice", tc.password)
		if tc.want == "" {
			assert.NotContains(t, errs, "password", "password %q", tc.password)
			continue
		}
		assert.Contains(t, errs["password"], tc.want, "password %q", tc.password)
	}
}

func TestValidateLogin(t *testing.T) {
	errs := ValidateLogin("alice@example.com", "whatever")
	assert.False(t, errs.HasErrors())

	errs = ValidateLogin("", "")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
}

func TestValidateMessageText(t *testing.T) {
	assert.False(t, ValidateMessageText("hello").HasErrors())
	assert.True(t, ValidateMessageText("   ").HasErrors())
	assert.True(t, ValidateMessageText(strings.Repeat("x", 4001)).HasErrors())
}

func TestValidateDueDateRequest(t *testing.T) {
	errs := ValidateDueDateRequest("2026-10-15", "need more time")
	assert.False(t, errs.HasErrors())

	errs = ValidateDueDateRequest("15/10/2026", "need more time")
	assert.Contains(t, errs, "proposed_due_date")

	errs = ValidateDueDateRequest("2026-10-15", "  ")
	assert.Contains(t, errs, "reason")

	errs = ValidateDueDateRequest("2026-10-15", strings.Repeat("x", 1001))
	assert.Contains(t, errs, "reason")
}
