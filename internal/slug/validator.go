// Package slug validates user-supplied custom slugs. Validation is
// purely syntactic; uniqueness against existing slugs belongs to the
// registry and its storage layer.
package slug

import (
	"errors"
	"strings"
)

const (
	MinLength = 3
	MaxLength = 50
)

var (
	ErrTooShort     = errors.New("slug is too short")
	ErrTooLong      = errors.New("slug is too long")
	ErrInvalidChars = errors.New("slug contains invalid characters")
	ErrReserved     = errors.New("slug is reserved")
)

// DefaultReserved lists slugs that collide with boundary route names.
// Operators can extend the set through configuration.
var DefaultReserved = []string{"stats", "shorten", "admin", "login", "logout"}

type Validator struct {
	reserved map[string]struct{}
}

// NewValidator builds a validator whose reserved set is DefaultReserved
// plus any extra entries (compared case-insensitively).
func NewValidator(extraReserved []string) *Validator {
	reserved := make(map[string]struct{})
	for _, s := range DefaultReserved {
		reserved[s] = struct{}{}
	}
	for _, s := range extraReserved {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			reserved[s] = struct{}{}
		}
	}
	return &Validator{reserved: reserved}
}

// Validate normalizes the candidate (trim, lowercase) and returns it,
// or the first rule it breaks: length, charset, reserved word.
func (v *Validator) Validate(candidate string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(candidate))

	if len(normalized) < MinLength {
		return "", ErrTooShort
	}
	if len(normalized) > MaxLength {
		return "", ErrTooLong
	}
	for i := 0; i < len(normalized); i++ {
		if !validChar(normalized[i]) {
			return "", ErrInvalidChars
		}
	}
	if _, ok := v.reserved[normalized]; ok {
		return "", ErrReserved
	}

	return normalized, nil
}

func validChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}
