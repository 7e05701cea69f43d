package auth

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"

	"github.com/promodesk/promodesk/internal/platform/httpx"
)

// bcryptCost is deliberately above the library default to slow down offline
// brute force.
const bcryptCost = 12

// HashPassword derives a salted one-way digest of the plaintext.
func HashPassword(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(digest), nil
}

// CheckPassword reports whether the plaintext matches the stored digest.
func CheckPassword(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// ValidatePasswordStrength enforces the registration password rule: at least
// 6 characters with a lowercase letter, an uppercase letter and a digit.
func ValidatePasswordStrength(plaintext string) error {
	var hasLower, hasUpper, hasDigit bool
	for _, r := range plaintext {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if len(plaintext) < 6 || !hasLower || !hasUpper || !hasDigit {
		return fmt.Errorf("%w: password must be at least 6 characters and contain lowercase, uppercase and digit", httpx.ErrValidation)
	}
	return nil
}

var emailFolder = cases.Fold()

// NormalizeEmail trims and case-folds an email address so uniqueness checks
// are case-insensitive.
func NormalizeEmail(email string) string {
	return emailFolder.String(strings.TrimSpace(email))
}
