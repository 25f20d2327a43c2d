package vin

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kindOf(t *testing.T, err error) ErrorKind {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	return verr.Kind
}

func TestValidateAcceptsWellFormedVIN(t *testing.T) {
	normalized, err := Validate("1HGBH41JXMN109186")
	require.NoError(t, err)
	assert.Equal(t, "1HGBH41JXMN109186", normalized)
}

func TestValidateNormalizesCaseAndWhitespace(t *testing.T) {
	normalized, err := Validate("  1hgbh41jxmn109186 ")
	require.NoError(t, err)
	assert.Equal(t, "1HGBH41JXMN109186", normalized)
}

func TestValidateIsIdempotentOverNormalization(t *testing.T) {
	raw := "1hgbh41jxmn109186"
	first, err := Validate(raw)
	require.NoError(t, err)
	second, err := Validate(Normalize(raw))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestValidateRejectsEmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		_, err := Validate(raw)
		assert.Equal(t, ErrEmptyInput, kindOf(t, err), "input %q", raw)
	}
}

func TestValidateRejectsWrongLength(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"sixteen chars", "1HGBH41JXMN10918"},
		{"eighteen chars", "1HGBH41JXMN1091866"},
		{"single char", "A"},
		{"very long", strings.Repeat("A", 64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.raw)
			assert.Equal(t, ErrInvalidLength, kindOf(t, err))
		})
	}
}

func TestValidateRejectsForbiddenCharacters(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"single O", "1HGBH41JXMN10918O", "O"},
		{"single I", "1HGBH41JXMN10918I", "I"},
		{"single Q", "1HGBH41JXMN10918Q", "Q"},
		{"lowercase o normalized first", "1hgbh41jxmn10918o", "O"},
		{"all three reported once each", "IOQIOQIOQIOQIOQIO", "IOQ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.raw)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, ErrForbiddenCharacter, verr.Kind)
			assert.Equal(t, tt.expected, string(verr.Forbidden))
		})
	}
}

func TestValidateRejectsCharactersOutsideAlphabet(t *testing.T) {
	for _, raw := range []string{
		"1HGBH41JXMN10918-",
		"1HGBH41JXMN10918*",
		"1HGBH41JXMN1091 6",
	} {
		_, err := Validate(raw)
		assert.Equal(t, ErrInvalidCharacter, kindOf(t, err), "input %q", raw)
	}
}

func TestValidateChecksForbiddenBeforeAlphabet(t *testing.T) {
	// Contains both a forbidden letter and a symbol outside the alphabet;
	// the forbidden-set check wins for message precision.
	_, err := Validate("1HGBH41JXMN1091O*")
	assert.Equal(t, ErrForbiddenCharacter, kindOf(t, err))
}

func TestValidateIsDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		_, err := Validate("IOQIOQIOQIOQIOQIO")
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "IOQ", string(verr.Forbidden))
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("1HGBH41JXMN109186"))
	assert.False(t, IsValid("1HGBH41JXMN10918"))
}
