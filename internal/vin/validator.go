// Package vin validates and normalizes vehicle identification numbers.
package vin

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Length is the required length of a normalized VIN.
const Length = 17

// vinPattern matches the full VIN alphabet: A-Z and 0-9 minus I, O, Q.
var vinPattern = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

// forbiddenChars are letters that never appear in a VIN because they are
// easily confused with digits.
var forbiddenChars = map[rune]struct{}{'I': {}, 'O': {}, 'Q': {}}

// ErrorKind classifies validation failures so callers can render a precise
// user-facing message.
type ErrorKind string

const (
	ErrEmptyInput         ErrorKind = "EMPTY_INPUT"
	ErrInvalidLength      ErrorKind = "INVALID_LENGTH"
	ErrForbiddenCharacter ErrorKind = "FORBIDDEN_CHARACTER"
	ErrInvalidCharacter   ErrorKind = "INVALID_CHARACTER"
)

// ValidationError reports why a candidate VIN was rejected.
type ValidationError struct {
	Kind ErrorKind
	// Forbidden holds the offending characters when Kind is
	// ErrForbiddenCharacter, sorted for stable messages.
	Forbidden []rune
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case ErrEmptyInput:
		return "vin must not be empty"
	case ErrInvalidLength:
		return fmt.Sprintf("vin must contain exactly %d characters", Length)
	case ErrForbiddenCharacter:
		parts := make([]string, 0, len(e.Forbidden))
		for _, r := range e.Forbidden {
			parts = append(parts, string(r))
		}
		return "vin contains forbidden characters: " + strings.Join(parts, ", ")
	case ErrInvalidCharacter:
		return "vin contains invalid characters"
	}
	return "invalid vin"
}

// Normalize trims surrounding whitespace and upper-cases the input.
// Normalization is idempotent.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Validate checks a raw VIN and returns its normalized form.
//
// Checks run in order of user-facing precision: emptiness, length, the
// forbidden I/O/Q set (reporting every offender present), then the full
// alphabet.
func Validate(raw string) (string, error) {
	normalized := Normalize(raw)
	if normalized == "" {
		return "", &ValidationError{Kind: ErrEmptyInput}
	}
	if len(normalized) != Length {
		return "", &ValidationError{Kind: ErrInvalidLength}
	}

	seen := map[rune]struct{}{}
	var forbidden []rune
	for _, r := range normalized {
		if _, bad := forbiddenChars[r]; !bad {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		forbidden = append(forbidden, r)
	}
	if len(forbidden) > 0 {
		sort.Slice(forbidden, func(i, j int) bool { return forbidden[i] < forbidden[j] })
		return "", &ValidationError{Kind: ErrForbiddenCharacter, Forbidden: forbidden}
	}

	if !vinPattern.MatchString(normalized) {
		return "", &ValidationError{Kind: ErrInvalidCharacter}
	}
	return normalized, nil
}

// IsValid reports whether the raw VIN passes validation.
func IsValid(raw string) bool {
	_, err := Validate(raw)
	return err == nil
}
