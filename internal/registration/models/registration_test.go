package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luckdraw/pkg/domain"
	dErrors "luckdraw/pkg/domain-errors"
)

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("ab"))
	assert.NoError(t, ValidateName(strings.Repeat("x", NameMaxLen)))
	// Multi-byte characters count as single characters.
	assert.NoError(t, ValidateName("张三"))

	assert.Error(t, ValidateName("a"))
	assert.Error(t, ValidateName(""))
	assert.Error(t, ValidateName(strings.Repeat("x", NameMaxLen+1)))
}

func TestValidatePhone(t *testing.T) {
	valid := []string{"13800138000", "19912345678", "15011112222"}
	for _, phone := range valid {
		assert.NoError(t, ValidatePhone(phone), phone)
	}

	invalid := []string{
		"",
		"12800138000",  // second digit out of range
		"23800138000",  // wrong prefix
		"1380013800",   // too short
		"138001380001", // too long
		"1380013800a",  // non-digit
		"+8613800138000",
	}
	for _, phone := range invalid {
		assert.Error(t, ValidatePhone(phone), phone)
	}
}

func TestNewRegistrationTrimsAndValidates(t *testing.T) {
	now := time.Now()
	activityID := domain.NewActivityID()

	reg, err := NewRegistration(domain.NewRegistrationID(), activityID, "  Alice  ", " 13800138000 ", now)
	require.NoError(t, err)
	assert.Equal(t, "Alice", reg.Name)
	assert.Equal(t, "13800138000", reg.Phone)
	assert.False(t, reg.IsWinner)

	_, err = NewRegistration(domain.NewRegistrationID(), activityID, "A", "13800138000", now)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestMaskedPhone(t *testing.T) {
	w := Winner{Phone: "13800138000"}
	assert.Equal(t, "138****8000", w.MaskedPhone())

	// Anything that is not 11 digits passes through untouched.
	assert.Equal(t, "short", Winner{Phone: "short"}.MaskedPhone())
}
