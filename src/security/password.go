package security

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`\d`)
	specialRe = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

var commonPasswords = map[string]struct{}{
	"password":    {},
	"12345678":    {},
	"password123": {},
	"qwerty123":   {},
	"admin123":    {},
	"welcome123":  {},
	"letmein123":  {},
}

// ValidatePasswordStrength returns the first rule the password breaks.
func ValidatePasswordStrength(password string) error {
	n := utf8.RuneCountInString(password)
	switch {
	case n < 8:
		return errors.New("Password must be at least 8 characters long")
	case n > 128:
		return errors.New("Password must not exceed 128 characters")
	case !upperRe.MatchString(password):
		return errors.New("Password must contain at least one uppercase letter")
	case !lowerRe.MatchString(password):
		return errors.New("Password must contain at least one lowercase letter")
	case !digitRe.MatchString(password):
		return errors.New("Password must contain at least one digit")
	case !specialRe.MatchString(password):
		return errors.New("Password must contain at least one special character")
	}
	if _, common := commonPasswords[strings.ToLower(password)]; common {
		return errors.New("Password is too common, please choose a stronger password")
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
